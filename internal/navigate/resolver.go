// internal/navigate/resolver.go

// Package navigate turns a logical target (service, resource, tab, region)
// into an actual on-screen console state. Three strategies are exposed as
// ordered tiers; the self-healing controller decides how often to retry each
// and when to advance.
package navigate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/veritas9k/consnap-cli/internal/browser"
	"github.com/veritas9k/consnap-cli/internal/config"
	"github.com/veritas9k/consnap-cli/internal/console"
)

// ResolvedState proves the browser is sitting on the requested view.
type ResolvedState struct {
	Target     console.Target
	Tier       console.StrategyKind
	URL        string
	VerifiedAt time.Time
}

// Tier is one navigation strategy, runnable independently.
type Tier struct {
	Kind console.StrategyKind
	Run  func(ctx context.Context, sess *browser.Session, timeout time.Duration, log *console.AttemptLog) (*ResolvedState, error)
}

// Resolver builds tiers for targets. It holds no per-call state.
type Resolver struct {
	exec   *browser.Executor
	cfg    config.ConsoleConfig
	logger *zap.Logger
}

// NewResolver creates a resolver on top of the element action executor.
func NewResolver(exec *browser.Executor, cfg config.ConsoleConfig, logger *zap.Logger) *Resolver {
	return &Resolver{
		exec:   exec,
		cfg:    cfg,
		logger: logger.Named("resolver"),
	}
}

// Tiers returns the ordered strategies applicable to the target. The console
// search tier comes before click-through deliberately: the console's own
// search is authoritative for the full resource catalog and needs no
// maintenance as the provider adds services, unlike a hand-kept URL map.
func (r *Resolver) Tiers(t console.Target) []Tier {
	var tiers []Tier
	if _, ok := console.DeepLinkFor(t); ok {
		tiers = append(tiers, Tier{Kind: console.StrategyDeepLink, Run: r.runDeepLink(t)})
	}
	tiers = append(tiers, Tier{Kind: console.StrategySearch, Run: r.runSearch(t)})
	if _, ok := console.ListViewFor(t); ok {
		tiers = append(tiers, Tier{Kind: console.StrategyClickThrough, Run: r.runClickThrough(t)})
	}
	return tiers
}

// verify is the single definition of success for every tier: the resource's
// identifying name is present in the rendered page AND, when a tab was
// requested, that tab is the selected one. Landing on a superficially
// plausible page ("recently viewed" shortcuts, a sibling resource) fails
// here regardless of what the URL looks like.
func (r *Resolver) verify(tabCtx context.Context, t console.Target, timeout time.Duration) error {
	if err := r.exec.WaitFor(tabCtx, browser.TextAppears(t.Resource), timeout); err != nil {
		snippet := r.exec.DOMSnippet(tabCtx, "main", 500)
		return console.NewNavError(console.ClassWrongPageLanded,
			fmt.Sprintf("resource %q not present in page content", t.Resource), err).
			WithDetail(snippet)
	}
	if marker := console.MarkerFor(t.Service); marker != "" {
		if ok, err := r.exec.PageContains(tabCtx, marker); err == nil && !ok {
			return console.NewNavError(console.ClassWrongPageLanded,
				fmt.Sprintf("page lacks the %s detail marker %q", t.Service, marker), nil)
		}
	}
	if t.Tab != "" {
		if err := r.verifyTab(tabCtx, t, timeout); err != nil {
			return err
		}
	}
	return nil
}

// verifyTab checks the requested tab is selected, preferring semantic roles
// over labels: visible tab text drifts across console releases, the selected
// state does not.
func (r *Resolver) verifyTab(tabCtx context.Context, t console.Target, timeout time.Duration) error {
	tab := console.NormalizeTab(t.Tab)
	script := fmt.Sprintf(`(() => {
		for (const el of document.querySelectorAll('[role="tab"][aria-selected="true"]')) {
			if ((el.innerText || '').toLowerCase().includes(%s)) return true;
		}
		return false;
	})()`, jsQuote(strings.ToLower(strings.SplitN(tab, "-", 2)[0])))

	deadline := time.Now().Add(timeout)
	for {
		var ok bool
		if err := r.exec.Evaluate(tabCtx, script, &ok); err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			break
		}
		select {
		case <-tabCtx.Done():
			return tabCtx.Err()
		case <-time.After(r.cfg.PollInterval):
		}
	}

	// The tab may not be selected yet because nothing clicked it (a deep
	// link without a tab fragment). Try clicking it once by role.
	if err := r.clickTab(tabCtx, t, nil); err != nil {
		return err
	}
	var ok bool
	if err := r.exec.Evaluate(tabCtx, script, &ok); err != nil {
		return err
	}
	if !ok {
		return console.NewNavError(console.ClassWrongPageLanded,
			fmt.Sprintf("tab %q is not the selected tab", t.Tab), nil)
	}
	return nil
}

// clickTab activates the requested tab through role-based lookup first, text
// lookup second.
func (r *Resolver) clickTab(tabCtx context.Context, t console.Target, log *console.AttemptLog) error {
	sel, _, err := r.exec.Find(tabCtx, browser.LocatorSet{
		Attr:      "role",
		AttrValue: "tab",
		Text:      t.Tab,
		Tags:      []string{"button", "a", "li", "div", "span"},
	})
	if err != nil {
		return err
	}
	defer r.exec.ClearRef(tabCtx, sel)
	return r.exec.Click(tabCtx, sel, browser.ClickOptions{Log: log})
}

// checkAuthLoss detects a mid-navigation bounce to the identity provider.
// The caller must abort the whole navigation and re-enter the session
// manager's authentication path; retrying tiers against a signed-out
// browser only burns the budget.
func (r *Resolver) checkAuthLoss(tabCtx context.Context) error {
	loc, err := r.exec.Location(tabCtx)
	if err != nil {
		return nil // can't tell; let the original failure stand
	}
	if !console.OnAuthenticatedDomain(loc) {
		return console.ErrAuthenticationRequired.WithDetail("browser moved to " + loc)
	}
	return nil
}

func jsQuote(s string) string {
	return fmt.Sprintf("%q", s)
}
