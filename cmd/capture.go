// -- cmd/capture.go --
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/veritas9k/consnap-cli/internal/browser"
	"github.com/veritas9k/consnap-cli/internal/capture"
	"github.com/veritas9k/consnap-cli/internal/config"
	"github.com/veritas9k/consnap-cli/internal/console"
	"github.com/veritas9k/consnap-cli/internal/heal"
	"github.com/veritas9k/consnap-cli/internal/inventory"
	"github.com/veritas9k/consnap-cli/internal/navigate"
	"github.com/veritas9k/consnap-cli/internal/observability"
	"github.com/veritas9k/consnap-cli/internal/store"
)

const dateLayout = "2006-01-02"

// newCaptureCmd creates and configures the `capture` command.
func newCaptureCmd() *cobra.Command {
	captureCmd := &cobra.Command{
		Use:   "capture",
		Short: "Navigates to a console resource and captures evidence screenshots",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("capture.max_pages", cmd.Flags().Lookup("pages")); err != nil {
				return err
			}
			if err := viper.BindPFlag("capture.full_page", cmd.Flags().Lookup("full-page")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg := appCfg

			target, err := console.NewTarget(
				viper.GetString("service"),
				viper.GetString("resource"),
				viper.GetString("tab"),
				viper.GetString("region"),
			)
			if err != nil {
				return err
			}

			filter, err := buildDateFilter()
			if err != nil {
				return err
			}

			if err := verifyTargetInventory(ctx, cfg, target, logger); err != nil {
				return err
			}

			accountID := viper.GetString("account")
			if accountID == "" {
				accountID = "default"
			}

			logger.Info("Starting capture",
				zap.String("target", target.String()),
				zap.String("account", accountID))

			manager := browser.NewManager(cfg, logger)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := manager.Shutdown(shutdownCtx); err != nil {
					logger.Warn("Browser shutdown incomplete", zap.Error(err))
				}
			}()

			sess, err := manager.Acquire(ctx, accountID, target.Region)
			if err != nil {
				return fmt.Errorf("failed to acquire console session: %w", err)
			}

			resolver := navigate.NewResolver(manager.Executor(), cfg.Console, logger)
			controller := heal.NewController(cfg.Retry, cfg.Console.ElementTimeout, logger)

			resolved, attemptLog, err := controller.Resolve(ctx, sess, target, resolver.Tiers(target))
			if err != nil {
				logger.Error("Navigation failed",
					zap.String("target", target.String()),
					zap.String("attempts", attemptLog.String()))
				return err
			}

			outputDir, err := cfg.ResolveOutputDir()
			if err != nil {
				return err
			}
			capCfg := captureSettings(cfg.Capture)
			capCfg.OutputDir = outputDir

			capturer := capture.NewCapturer(capCfg, manager.Executor(), logger)
			result, err := capturer.Capture(ctx, sess, resolved, capture.Options{
				RFICode:  viper.GetString("rfi"),
				Filter:   filter,
				Paginate: viper.GetBool("paginate"),
				MaxPages: capCfg.MaxPages,
			})
			if err != nil {
				return fmt.Errorf("capture failed: %w", err)
			}

			if err := indexArtifacts(ctx, cfg, result.Artifacts, logger); err != nil {
				// Evidence is already on disk; a broken index is not fatal.
				logger.Warn("Failed to index artifacts", zap.Error(err))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Captured %d page(s) for %s", result.Pages, target.String())
			if filter != nil {
				fmt.Fprintf(cmd.OutOrStdout(), " (%d / %d resources match %s)", result.ItemsMatched, result.ItemsSeen, filter.Describe())
			}
			fmt.Fprintln(cmd.OutOrStdout())
			for _, art := range result.Artifacts {
				fmt.Fprintln(cmd.OutOrStdout(), "  "+art.FilePath)
			}
			return nil
		},
	}

	captureCmd.Flags().String("service", "", "console service, e.g. rds, ec2, s3, lambda (required)")
	captureCmd.Flags().String("resource", "", "exact resource identifier to capture (required)")
	captureCmd.Flags().String("tab", "", "detail tab to open, e.g. configuration, monitoring")
	captureCmd.Flags().String("region", "us-east-1", "console region")
	captureCmd.Flags().String("account", "default", "account alias; each alias gets its own browser")
	captureCmd.Flags().String("rfi", "", "audit request code to tag the evidence with")
	captureCmd.Flags().Bool("paginate", false, "capture every page of a paginated list view")
	captureCmd.Flags().Int("pages", 0, "maximum pages to capture when paginating")
	captureCmd.Flags().Bool("full-page", false, "capture the full scroll height, not just the viewport")
	captureCmd.Flags().String("from", "", "date filter window start (YYYY-MM-DD)")
	captureCmd.Flags().String("to", "", "date filter window end (YYYY-MM-DD)")
	captureCmd.Flags().String("date-column", "", "column header to date-filter on when autodetection is ambiguous")

	_ = captureCmd.MarkFlagRequired("service")
	_ = captureCmd.MarkFlagRequired("resource")

	return captureCmd
}

// captureSettings re-reads the flag-bound capture keys on top of the config
// snapshot. The root pre-run unmarshals the snapshot before this command's
// PreRunE binds its flags, so the snapshot alone never sees them.
func captureSettings(base config.CaptureConfig) config.CaptureConfig {
	base.MaxPages = viper.GetInt("capture.max_pages")
	base.FullPage = viper.GetBool("capture.full_page")
	return base
}

// buildDateFilter translates the from/to flags into a filter window. An open
// start means "since the epoch"; an open end means "through today".
func buildDateFilter() (*capture.DateFilter, error) {
	fromStr := viper.GetString("from")
	toStr := viper.GetString("to")
	if fromStr == "" && toStr == "" {
		return nil, nil
	}

	from := time.Unix(0, 0).UTC()
	to := time.Now().UTC()
	var err error
	if fromStr != "" {
		if from, err = time.Parse(dateLayout, fromStr); err != nil {
			return nil, fmt.Errorf("invalid --from date %q: %w", fromStr, err)
		}
	}
	if toStr != "" {
		if to, err = time.Parse(dateLayout, toStr); err != nil {
			return nil, fmt.Errorf("invalid --to date %q: %w", toStr, err)
		}
		// Window end is inclusive of the whole day.
		to = to.Add(24*time.Hour - time.Nanosecond)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("--to %s is before --from %s", toStr, fromStr)
	}
	return &capture.DateFilter{From: from, To: to, ColumnHint: viper.GetString("date-column")}, nil
}

// verifyTargetInventory cross-checks the resource against the provider API
// when credentials are configured. Without credentials it is a no-op.
func verifyTargetInventory(ctx context.Context, cfg *config.Config, target console.Target, logger *zap.Logger) error {
	enum := inventory.NewEnumerator(cfg.Inventory, logger)
	if !enum.Enabled() {
		return nil
	}
	known, err := enum.ListResources(ctx, target.Service, target.Region)
	if err != nil {
		logger.Warn("Inventory check unavailable; continuing without it", zap.Error(err))
		return nil
	}
	return target.CheckEnumerated(known)
}

// indexArtifacts writes artifact metadata to the evidence index when a
// database is configured.
func indexArtifacts(ctx context.Context, cfg *config.Config, artifacts []*capture.Artifact, logger *zap.Logger) error {
	if cfg.Database.URL == "" || len(artifacts) == 0 {
		return nil
	}
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to evidence index: %w", err)
	}
	defer pool.Close()

	st, err := store.New(ctx, pool, logger)
	if err != nil {
		return err
	}
	return st.IndexArtifacts(ctx, artifacts)
}
