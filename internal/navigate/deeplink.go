// internal/navigate/deeplink.go
package navigate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/veritas9k/consnap-cli/internal/browser"
	"github.com/veritas9k/consnap-cli/internal/console"
)

// runDeepLink is the fast path: a URL that encodes service, resource, and
// tab. Success is still proven by content, never by the URL — a single-page
// app can accept the URL and render something else entirely.
func (r *Resolver) runDeepLink(t console.Target) func(context.Context, *browser.Session, time.Duration, *console.AttemptLog) (*ResolvedState, error) {
	return func(ctx context.Context, sess *browser.Session, timeout time.Duration, log *console.AttemptLog) (*ResolvedState, error) {
		link, ok := console.DeepLinkFor(t)
		if !ok {
			return nil, console.NewNavError(console.ClassWrongPageLanded, "service has no deep-link template", nil)
		}

		started := time.Now()
		var state *ResolvedState
		err := sess.Do(ctx, func(tabCtx context.Context) error {
			if err := r.exec.Navigate(tabCtx, link); err != nil {
				return err
			}
			if err := r.verify(tabCtx, t, timeout); err != nil {
				if authErr := r.checkAuthLoss(tabCtx); authErr != nil {
					return authErr
				}
				return err
			}
			url, _ := r.exec.Location(tabCtx)
			state = &ResolvedState{Target: t, Tier: console.StrategyDeepLink, URL: url, VerifiedAt: time.Now()}
			return nil
		})
		log.RecordOutcome(console.StrategyDeepLink, link, started, err)
		if err != nil {
			return nil, err
		}
		r.logger.Info("Deep link resolved.",
			zap.String("target", t.String()),
			zap.Duration("took", time.Since(started)))
		return state, nil
	}
}
