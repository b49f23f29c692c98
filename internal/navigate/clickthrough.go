// internal/navigate/clickthrough.go
package navigate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/veritas9k/consnap-cli/internal/browser"
	"github.com/veritas9k/consnap-cli/internal/console"
)

// runClickThrough is the last tier: open the service's list view, find the
// resource row, click through to its detail page. The row lookup leans
// entirely on the layered locators because console tables are virtualized —
// a row may be an anchor, a div, or a bare text node depending on the
// service and the release week.
func (r *Resolver) runClickThrough(t console.Target) func(context.Context, *browser.Session, time.Duration, *console.AttemptLog) (*ResolvedState, error) {
	return func(ctx context.Context, sess *browser.Session, timeout time.Duration, log *console.AttemptLog) (*ResolvedState, error) {
		listURL, ok := console.ListViewFor(t)
		if !ok {
			return nil, console.NewNavError(console.ClassWrongPageLanded, "service has no list view", nil)
		}

		started := time.Now()
		var state *ResolvedState
		err := sess.Do(ctx, func(tabCtx context.Context) error {
			if err := r.exec.Navigate(tabCtx, listURL); err != nil {
				return err
			}
			if authErr := r.checkAuthLoss(tabCtx); authErr != nil {
				return authErr
			}

			// The listing itself must render the resource before a row can
			// be clicked; virtualized tables may need the name to scroll
			// into the window, which the full-scan layer tolerates.
			if err := r.exec.WaitFor(tabCtx, browser.TextAppears(t.Resource), timeout); err != nil {
				return err
			}

			rowSel, layer, err := r.exec.Find(tabCtx, browser.LocatorSet{
				Attr:      "data-resource-id",
				AttrValue: t.Resource,
				Text:      t.Resource,
				Tags:      []string{"a", "tr", "td", "div", "span"},
			})
			if err != nil {
				return err
			}
			defer r.exec.ClearRef(tabCtx, rowSel)
			r.logger.Debug("Resource row located.",
				zap.String("layer", string(layer)),
				zap.String("resource", t.Resource))

			post := browser.TextAppears(t.Resource)
			if err := r.exec.Click(tabCtx, rowSel, browser.ClickOptions{Post: &post, Log: log}); err != nil {
				return err
			}

			if t.Tab != "" {
				if err := r.clickTab(tabCtx, t, log); err != nil {
					return err
				}
			}
			if err := r.verify(tabCtx, t, timeout); err != nil {
				if authErr := r.checkAuthLoss(tabCtx); authErr != nil {
					return authErr
				}
				return err
			}
			url, _ := r.exec.Location(tabCtx)
			state = &ResolvedState{Target: t, Tier: console.StrategyClickThrough, URL: url, VerifiedAt: time.Now()}
			return nil
		})
		log.RecordOutcome(console.StrategyClickThrough, listURL, started, err)
		if err != nil {
			return nil, err
		}
		return state, nil
	}
}
