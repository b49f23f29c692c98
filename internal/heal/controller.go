// internal/heal/controller.go

// Package heal wraps navigation in a bounded, self-healing retry loop. It is
// the single place that decides whether a failure means "try harder", "try
// differently", or "stop and tell the caller".
package heal

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/veritas9k/consnap-cli/internal/browser"
	"github.com/veritas9k/consnap-cli/internal/config"
	"github.com/veritas9k/consnap-cli/internal/console"
	"github.com/veritas9k/consnap-cli/internal/navigate"
)

// Controller drives navigation tiers with bounded retries.
type Controller struct {
	cfg         config.RetryConfig
	baseTimeout time.Duration
	logger      *zap.Logger
}

// NewController builds a controller. baseTimeout is the starting per-tier
// verification timeout, stretched on same-tier retries after a timeout.
func NewController(cfg config.RetryConfig, baseTimeout time.Duration, logger *zap.Logger) *Controller {
	return &Controller{
		cfg:         cfg,
		baseTimeout: baseTimeout,
		logger:      logger.Named("heal"),
	}
}

// decision is what the classifier tells the loop to do next.
type decision int

const (
	decideRetrySameTier decision = iota
	decideNextTier
	decideAbort
)

// classify maps a failure class to the loop's next move.
//
// Timeouts get the same tier again with a longer leash: slow pages are the
// console's normal mood. Element and verification failures advance: if a
// tier's addressing scheme is wrong for this page, more time won't fix it.
// Authentication loss aborts the whole call; retrying navigation against a
// signed-out browser cannot succeed, and only the session manager can fix it.
func classify(err error) decision {
	switch console.ClassOf(err) {
	case console.ClassAuthenticationRequired, console.ClassAuthenticationTimeout, console.ClassInvalidTarget:
		return decideAbort
	case console.ClassNavigationTimeout:
		return decideRetrySameTier
	default:
		return decideNextTier
	}
}

// Resolve walks the tiers until one verifies, the attempts run out, or the
// total budget expires. The attempt log is returned in every case; terminal
// failures carry it in their detail so nothing is silently swallowed.
func (c *Controller) Resolve(ctx context.Context, sess *browser.Session, target console.Target, tiers []navigate.Tier) (*navigate.ResolvedState, *console.AttemptLog, error) {
	log := &console.AttemptLog{}
	if len(tiers) == 0 {
		return nil, log, console.ErrInvalidTarget.WithDetail("no navigation strategy applies to " + target.String())
	}

	budgetCtx, cancel := context.WithTimeout(ctx, c.cfg.TotalBudget)
	defer cancel()

	var lastErr error

	for _, tier := range tiers {
		timeout := c.baseTimeout
	attempts:
		for attempt := 1; attempt <= c.cfg.AttemptsPerTier; attempt++ {
			if budgetCtx.Err() != nil {
				return nil, log, c.budgetExhausted(target, log, lastErr)
			}
			c.logger.Debug("Attempting navigation tier.",
				zap.String("tier", string(tier.Kind)),
				zap.Int("attempt", attempt),
				zap.Duration("timeout", timeout),
				zap.String("target", target.String()))

			resolved, err := tier.Run(budgetCtx, sess, timeout, log)
			if err == nil {
				c.logger.Info("Navigation resolved.",
					zap.String("tier", string(tier.Kind)),
					zap.String("target", target.String()),
					zap.Int("attempts", log.Len()))
				return resolved, log, nil
			}
			lastErr = err
			if budgetCtx.Err() != nil {
				return nil, log, c.budgetExhausted(target, log, lastErr)
			}

			switch classify(err) {
			case decideAbort:
				c.logger.Warn("Navigation aborted.",
					zap.String("tier", string(tier.Kind)),
					zap.String("class", string(console.ClassOf(err))),
					zap.Error(err))
				return nil, log, err
			case decideRetrySameTier:
				timeout = time.Duration(float64(timeout) * c.cfg.TimeoutStretch)
				c.logger.Info("Tier timed out; retrying with longer timeout.",
					zap.String("tier", string(tier.Kind)),
					zap.Duration("next_timeout", timeout))
			case decideNextTier:
				c.logger.Info("Tier failed; advancing to next strategy.",
					zap.String("tier", string(tier.Kind)),
					zap.String("class", string(console.ClassOf(err))))
				break attempts
			}
		}
	}

	ne := console.NewNavError(console.ClassOf(lastErr),
		"all navigation strategies exhausted for "+target.String(), lastErr)
	return nil, log, ne.WithDetail(log.String())
}

func (c *Controller) budgetExhausted(target console.Target, log *console.AttemptLog, lastErr error) error {
	ne := console.NewNavError(console.ClassNavigationTimeout,
		"total time budget exhausted for "+target.String(), lastErr)
	return ne.WithDetail(log.String())
}
