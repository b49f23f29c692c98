// internal/capture/capture.go

package capture

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/veritas9k/consnap-cli/internal/browser"
	"github.com/veritas9k/consnap-cli/internal/config"
	"github.com/veritas9k/consnap-cli/internal/navigate"
)

// pageDriver is the slice of the browser executor the capturer drives the
// page through. Tests script it to exercise pagination and filter accounting
// without a browser.
type pageDriver interface {
	Evaluate(tabCtx context.Context, script string, out interface{}) error
	Screenshot(tabCtx context.Context, fullPage bool) ([]byte, error)
}

// Capturer takes screenshots of resolved console pages and writes them, with
// metadata sidecars, to the evidence directory.
type Capturer struct {
	cfg    config.CaptureConfig
	exec   pageDriver
	logger *zap.Logger

	// run funnels browser work through the session; a test seam.
	run func(ctx context.Context, sess *browser.Session, fn func(context.Context) error) error
}

// NewCapturer returns a capturer writing into cfg.OutputDir. The directory
// must already be resolved (no "~" shortcuts) by the caller.
func NewCapturer(cfg config.CaptureConfig, exec pageDriver, logger *zap.Logger) *Capturer {
	return &Capturer{
		cfg:    cfg,
		exec:   exec,
		logger: logger.Named("capture"),
		run: func(ctx context.Context, sess *browser.Session, fn func(context.Context) error) error {
			return sess.Do(ctx, fn)
		},
	}
}

// Options tune a single capture call.
type Options struct {
	// RFICode tags the artifacts with the audit request they answer.
	RFICode string
	// Filter, when set, narrows list views to a date window before
	// capturing. Fails the capture if no date column exists.
	Filter *DateFilter
	// Paginate sweeps every page of a paginated list view instead of
	// capturing only the first.
	Paginate bool
	// MaxPages overrides the configured page ceiling when positive.
	MaxPages int
}

// Result summarizes what a capture call produced.
type Result struct {
	Artifacts    []*Artifact
	Pages        int
	ItemsSeen    int
	ItemsMatched int
}

// page holds one captured page's bytes until the session is released and the
// files can be written without holding the browser lock.
type page struct {
	index int
	rows  int
	png   []byte
}

// Capture screenshots the page the resolver landed on. All browser work runs
// inside a single session operation; file writes happen after the browser is
// released.
func (c *Capturer) Capture(ctx context.Context, sess *browser.Session, resolved *navigate.ResolvedState, opts Options) (*Result, error) {
	if err := os.MkdirAll(c.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create evidence directory %s: %w", c.cfg.OutputDir, err)
	}

	maxPages := c.cfg.MaxPages
	if opts.MaxPages > 0 {
		maxPages = opts.MaxPages
	}

	var (
		pages        []page
		itemsSeen    int
		itemsMatched int
		filterDesc   string
	)
	err := c.run(ctx, sess, func(tabCtx context.Context) error {
		if opts.Filter != nil {
			res, err := c.applyDateFilter(tabCtx, opts.Filter)
			if err != nil {
				return err
			}
			itemsSeen = res.Total
			itemsMatched = res.Matched
			filterDesc = opts.Filter.Describe()
			c.logger.Info("Date filter applied.",
				zap.String("column", res.Column),
				zap.Int("matched", res.Matched),
				zap.Int("total", res.Total))
		}

		sig, err := c.stabilize(tabCtx)
		if err != nil {
			return err
		}
		png, err := c.exec.Screenshot(tabCtx, c.cfg.FullPage)
		if err != nil {
			return err
		}
		rows := 0
		if opts.Filter == nil {
			if rows, err = c.countRows(tabCtx); err != nil {
				c.logger.Debug("Row count unavailable.", zap.Error(err))
				rows = 0
			}
			itemsSeen += rows
		}
		pages = append(pages, page{index: 1, rows: rows, png: png})

		if !opts.Paginate {
			return nil
		}
		kind, err := c.detectPager(tabCtx)
		if err != nil || kind == PagerNone {
			return err
		}
		c.logger.Debug("Paginated list detected.", zap.String("pager", string(kind)))
		for len(pages) < maxPages {
			advanced, err := c.advancePage(tabCtx, sig)
			if err != nil {
				return err
			}
			if !advanced {
				break
			}
			if sig, err = c.stabilize(tabCtx); err != nil {
				return err
			}
			if png, err = c.exec.Screenshot(tabCtx, c.cfg.FullPage); err != nil {
				return err
			}
			rows := 0
			if opts.Filter == nil {
				if rows, err = c.countRows(tabCtx); err == nil {
					itemsSeen += rows
				}
			}
			pages = append(pages, page{index: len(pages) + 1, rows: rows, png: png})
		}
		if len(pages) == maxPages {
			c.logger.Warn("Pagination stopped at page ceiling.", zap.Int("max_pages", maxPages))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	capturedAt := time.Now()
	result := &Result{
		Pages:        len(pages),
		ItemsSeen:    itemsSeen,
		ItemsMatched: itemsMatched,
	}
	for _, p := range pages {
		art, err := writeArtifact(c.cfg.OutputDir, resolved.Target, string(resolved.Tier),
			opts.RFICode, filterDesc, capturedAt, p.index, len(pages), p.png)
		if err != nil {
			return nil, err
		}
		result.Artifacts = append(result.Artifacts, art)
		c.logger.Info("Evidence written.",
			zap.String("path", art.FilePath),
			zap.Int("page", p.index),
			zap.Int("rows", p.rows))
	}
	return result, nil
}
