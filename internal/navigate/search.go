// internal/navigate/search.go
package navigate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/veritas9k/consnap-cli/internal/browser"
	"github.com/veritas9k/consnap-cli/internal/console"
)

// The console's unified search control. The newer nav bar exposes a test id;
// the input id is the long-standing fallback.
var searchBoxSelectors = []string{
	`[data-testid="awsc-concierge-input"]`,
	`input#awsc-concierge-input`,
	`input[type="search"]`,
}

// runSearch drives the console's own global search. The search index covers
// every service and resource the account can see, which is why this tier
// outranks the hand-maintained click-through paths.
func (r *Resolver) runSearch(t console.Target) func(context.Context, *browser.Session, time.Duration, *console.AttemptLog) (*ResolvedState, error) {
	return func(ctx context.Context, sess *browser.Session, timeout time.Duration, log *console.AttemptLog) (*ResolvedState, error) {
		started := time.Now()
		query := t.Service + " " + t.Resource

		var state *ResolvedState
		err := sess.Do(ctx, func(tabCtx context.Context) error {
			box, err := r.findSearchBox(tabCtx)
			if err != nil {
				if authErr := r.checkAuthLoss(tabCtx); authErr != nil {
					return authErr
				}
				return err
			}

			if err := r.exec.Type(tabCtx, box, query); err != nil {
				return err
			}

			// Results render into a listbox as you type. Find the entry
			// naming the resource; the layered locator handles the results
			// list being virtualized.
			resultSel, layer, err := r.exec.Find(tabCtx, browser.LocatorSet{
				Attr:      "data-testid",
				AttrValue: "concierge-result",
				Text:      t.Resource,
				Tags:      []string{"a", "li", "div", "span"},
			})
			if err != nil {
				return err
			}
			defer r.exec.ClearRef(tabCtx, resultSel)
			r.logger.Debug("Search result located.", zap.String("layer", string(layer)))

			from, _ := r.exec.Location(tabCtx)
			post := browser.URLChanges(from)
			if err := r.exec.Click(tabCtx, resultSel, browser.ClickOptions{Post: &post, Log: log}); err != nil {
				return err
			}

			if t.Tab != "" {
				// Landing from search selects the default tab; switch.
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
			state = &ResolvedState{Target: t, Tier: console.StrategySearch, URL: url, VerifiedAt: time.Now()}
			return nil
		})
		log.RecordOutcome(console.StrategySearch, query, started, err)
		if err != nil {
			return nil, err
		}
		return state, nil
	}
}

// findSearchBox returns the first search control present on the page.
func (r *Resolver) findSearchBox(tabCtx context.Context) (string, error) {
	var lastErr error
	for _, sel := range searchBoxSelectors {
		if err := r.exec.WaitFor(tabCtx, browser.ElementClickable(sel), r.cfg.PollInterval*8); err != nil {
			lastErr = err
			continue
		}
		return sel, nil
	}
	return "", console.NewNavError(console.ClassElementNotFound, "console search box not found", lastErr)
}
