// internal/heal/controller_test.go
package heal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veritas9k/consnap-cli/internal/browser"
	"github.com/veritas9k/consnap-cli/internal/config"
	"github.com/veritas9k/consnap-cli/internal/console"
	"github.com/veritas9k/consnap-cli/internal/navigate"
)

func testRetryConfig() config.RetryConfig {
	return config.RetryConfig{
		AttemptsPerTier: 2,
		TimeoutStretch:  1.5,
		TotalBudget:     5 * time.Second,
	}
}

func testTarget(t *testing.T) console.Target {
	t.Helper()
	target, err := console.NewTarget("rds", "prod-db-01", "", "us-east-1")
	require.NoError(t, err)
	return target
}

// scriptedTier returns a tier whose runs pop errors off the script; a nil
// entry means success. Timeouts passed to each run are recorded for
// stretch assertions.
func scriptedTier(kind console.StrategyKind, script []error, timeouts *[]time.Duration) navigate.Tier {
	i := 0
	return navigate.Tier{
		Kind: kind,
		Run: func(ctx context.Context, sess *browser.Session, timeout time.Duration, log *console.AttemptLog) (*navigate.ResolvedState, error) {
			if timeouts != nil {
				*timeouts = append(*timeouts, timeout)
			}
			var err error
			if i < len(script) {
				err = script[i]
			}
			i++
			log.RecordOutcome(kind, "", time.Now(), err)
			if err != nil {
				return nil, err
			}
			return &navigate.ResolvedState{Tier: kind, VerifiedAt: time.Now()}, nil
		},
	}
}

func TestControllerResolve(t *testing.T) {
	logger := zap.NewNop()
	base := 100 * time.Millisecond

	t.Run("should succeed on the first tier without touching later tiers", func(t *testing.T) {
		c := NewController(testRetryConfig(), base, logger)
		var laterRan bool
		tiers := []navigate.Tier{
			scriptedTier(console.StrategyDeepLink, []error{nil}, nil),
			{Kind: console.StrategySearch, Run: func(ctx context.Context, sess *browser.Session, timeout time.Duration, log *console.AttemptLog) (*navigate.ResolvedState, error) {
				laterRan = true
				return nil, console.ErrElementNotFound
			}},
		}

		resolved, log, err := c.Resolve(context.Background(), nil, testTarget(t), tiers)
		require.NoError(t, err)
		assert.Equal(t, console.StrategyDeepLink, resolved.Tier)
		assert.False(t, laterRan)
		assert.Equal(t, 1, log.Len())
	})

	t.Run("should retry the same tier with a stretched timeout after a timeout", func(t *testing.T) {
		c := NewController(testRetryConfig(), base, logger)
		var timeouts []time.Duration
		tiers := []navigate.Tier{
			scriptedTier(console.StrategyDeepLink, []error{
				console.ErrNavigationTimeout.WithDetail("slow page"),
				nil,
			}, &timeouts),
		}

		resolved, _, err := c.Resolve(context.Background(), nil, testTarget(t), tiers)
		require.NoError(t, err)
		assert.Equal(t, console.StrategyDeepLink, resolved.Tier)
		require.Len(t, timeouts, 2)
		assert.Equal(t, base, timeouts[0])
		assert.Equal(t, time.Duration(float64(base)*1.5), timeouts[1])
	})

	t.Run("should advance to the next tier on element failures", func(t *testing.T) {
		c := NewController(testRetryConfig(), base, logger)
		var deepLinkRuns int
		tiers := []navigate.Tier{
			{Kind: console.StrategyDeepLink, Run: func(ctx context.Context, sess *browser.Session, timeout time.Duration, log *console.AttemptLog) (*navigate.ResolvedState, error) {
				deepLinkRuns++
				log.RecordOutcome(console.StrategyDeepLink, "", time.Now(), console.ErrWrongPageLanded)
				return nil, console.ErrWrongPageLanded.WithDetail("dashboard instead of detail")
			}},
			scriptedTier(console.StrategySearch, []error{nil}, nil),
		}

		resolved, log, err := c.Resolve(context.Background(), nil, testTarget(t), tiers)
		require.NoError(t, err)
		assert.Equal(t, console.StrategySearch, resolved.Tier)
		// Wrong-page failures don't burn the per-tier attempt budget.
		assert.Equal(t, 1, deepLinkRuns)
		assert.Equal(t, []console.StrategyKind{console.StrategyDeepLink, console.StrategySearch}, log.TiersTried())
	})

	t.Run("should abort immediately on authentication loss", func(t *testing.T) {
		c := NewController(testRetryConfig(), base, logger)
		var searchRan bool
		tiers := []navigate.Tier{
			scriptedTier(console.StrategyDeepLink, []error{
				console.ErrAuthenticationRequired.WithDetail("bounced to signin"),
			}, nil),
			{Kind: console.StrategySearch, Run: func(ctx context.Context, sess *browser.Session, timeout time.Duration, log *console.AttemptLog) (*navigate.ResolvedState, error) {
				searchRan = true
				return nil, nil
			}},
		}

		_, _, err := c.Resolve(context.Background(), nil, testTarget(t), tiers)
		require.Error(t, err)
		assert.ErrorIs(t, err, console.ErrAuthenticationRequired)
		assert.False(t, searchRan)
	})

	t.Run("should exhaust all tiers and carry the attempt log in the error", func(t *testing.T) {
		c := NewController(testRetryConfig(), base, logger)
		tiers := []navigate.Tier{
			scriptedTier(console.StrategyDeepLink, []error{
				console.ErrNavigationTimeout,
				console.ErrNavigationTimeout,
				console.ErrNavigationTimeout,
			}, nil),
			scriptedTier(console.StrategySearch, []error{
				console.ErrElementNotFound.WithDetail("no search box"),
			}, nil),
		}

		_, log, err := c.Resolve(context.Background(), nil, testTarget(t), tiers)
		require.Error(t, err)
		// Two timeout attempts on the first tier (the per-tier cap), one
		// element failure on the second.
		assert.Equal(t, 3, log.Len())
		assert.Contains(t, err.Error(), "all navigation strategies exhausted")
		assert.Contains(t, err.Error(), "no search box")
	})

	t.Run("should stop when the total budget expires", func(t *testing.T) {
		cfg := testRetryConfig()
		cfg.TotalBudget = 30 * time.Millisecond
		cfg.AttemptsPerTier = 100
		c := NewController(cfg, base, logger)

		tiers := []navigate.Tier{
			{Kind: console.StrategyDeepLink, Run: func(ctx context.Context, sess *browser.Session, timeout time.Duration, log *console.AttemptLog) (*navigate.ResolvedState, error) {
				time.Sleep(10 * time.Millisecond)
				log.RecordOutcome(console.StrategyDeepLink, "", time.Now(), console.ErrNavigationTimeout)
				return nil, console.ErrNavigationTimeout
			}},
		}

		start := time.Now()
		_, _, err := c.Resolve(context.Background(), nil, testTarget(t), tiers)
		require.Error(t, err)
		assert.ErrorIs(t, err, console.ErrNavigationTimeout)
		assert.Contains(t, err.Error(), "total time budget exhausted")
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("should reject an empty tier list as an invalid target", func(t *testing.T) {
		c := NewController(testRetryConfig(), base, logger)
		_, _, err := c.Resolve(context.Background(), nil, testTarget(t), nil)
		assert.ErrorIs(t, err, console.ErrInvalidTarget)
	})
}
