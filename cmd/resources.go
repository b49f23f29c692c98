// -- cmd/resources.go --
package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/veritas9k/consnap-cli/internal/inventory"
	"github.com/veritas9k/consnap-cli/internal/observability"
)

// newResourcesCmd creates the `resources` command, which lists what the
// inventory API knows about a service so operators can copy exact
// identifiers into a capture call.
func newResourcesCmd() *cobra.Command {
	resourcesCmd := &cobra.Command{
		Use:   "resources",
		Short: "Lists resource identifiers known to the provider API",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			enum := inventory.NewEnumerator(appCfg.Inventory, logger)
			if !enum.Enabled() {
				return fmt.Errorf("inventory requires credentials; set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY and inventory.enabled")
			}

			service := viper.GetString("service")
			region := viper.GetString("region")

			account, arn, err := enum.CallerIdentity(ctx, region)
			if err != nil {
				return fmt.Errorf("failed to resolve caller identity: %w", err)
			}
			logger.Info("Enumerating resources",
				zap.String("service", service),
				zap.String("region", region),
				zap.String("account", account),
				zap.String("arn", arn))

			names, err := enum.ListResources(ctx, service, region)
			if err != nil {
				return fmt.Errorf("failed to enumerate %s resources: %w", service, err)
			}
			if names == nil {
				return fmt.Errorf("service %q has no inventory support", service)
			}

			sort.Strings(names)
			fmt.Fprintf(cmd.OutOrStdout(), "%d %s resource(s) in %s (account %s):\n", len(names), service, region, account)
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), "  "+name)
			}
			return nil
		},
	}

	resourcesCmd.Flags().String("service", "", "service to enumerate, e.g. rds, ec2, s3, lambda (required)")
	resourcesCmd.Flags().String("region", "us-east-1", "region to enumerate")
	_ = resourcesCmd.MarkFlagRequired("service")

	return resourcesCmd
}
