// internal/browser/executor.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/veritas9k/consnap-cli/internal/config"
	"github.com/veritas9k/consnap-cli/internal/console"
)

// Executor locates and interacts with DOM elements despite dynamic and
// virtualized rendering. It operates on a tab context obtained inside
// Session.Do; it never owns a session itself.
type Executor struct {
	cfg    config.ConsoleConfig
	logger *zap.Logger
}

// NewExecutor creates an executor with the given timing configuration.
func NewExecutor(cfg config.ConsoleConfig, logger *zap.Logger) *Executor {
	return &Executor{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "executor")),
	}
}

// Navigate loads a URL and waits for the document body to exist.
func (e *Executor) Navigate(tabCtx context.Context, url string) error {
	e.logger.Debug("Navigating", zap.String("url", url))
	navCtx, cancel := context.WithTimeout(tabCtx, e.cfg.NavigationTimeout)
	defer cancel()
	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		if navCtx.Err() != nil {
			return console.NewNavError(console.ClassNavigationTimeout, "page load did not complete", err).
				WithDetail(url)
		}
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// WaitFor polls a condition until it holds or the timeout expires. The poll
// cadence is bounded by a rate limiter so a cheap predicate cannot spin.
func (e *Executor) WaitFor(tabCtx context.Context, cond Condition, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = e.cfg.ElementTimeout
	}
	waitCtx, cancel := context.WithTimeout(tabCtx, timeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(e.cfg.PollInterval), 1)
	for {
		ok, err := e.check(waitCtx, cond)
		if err != nil {
			if waitCtx.Err() != nil {
				return cond.timeoutError(timeout.String())
			}
			return err
		}
		if ok {
			return nil
		}
		if err := limiter.Wait(waitCtx); err != nil {
			return cond.timeoutError(timeout.String())
		}
	}
}

// check evaluates the condition once.
func (e *Executor) check(ctx context.Context, cond Condition) (bool, error) {
	if cond.usesLocation() {
		var loc string
		if err := chromedp.Run(ctx, chromedp.Location(&loc)); err != nil {
			return false, err
		}
		return cond.matchesURL(loc), nil
	}
	var ok bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(cond.predicate(), &ok)); err != nil {
		return false, err
	}
	return ok, nil
}

// clickStrategy is one way of activating an element.
type clickStrategy struct {
	kind console.StrategyKind
	run  func(ctx context.Context, selector string) error
	// terminalOnly strategies are skipped unless the caller marked the click
	// as a terminal submit action.
	terminalOnly bool
}

func (e *Executor) clickStrategies() []clickStrategy {
	return []clickStrategy{
		{kind: console.ClickNative, run: func(ctx context.Context, sel string) error {
			return chromedp.Run(ctx, chromedp.Click(sel, chromedp.ByQuery))
		}},
		{kind: console.ClickScript, run: func(ctx context.Context, sel string) error {
			script := fmt.Sprintf(`(() => {
				const el = document.querySelector(%s);
				if (!el) throw new Error('element gone');
				el.click();
				return true;
			})()`, jsString(sel))
			var ok bool
			return chromedp.Run(ctx, chromedp.Evaluate(script, &ok))
		}},
		{kind: console.ClickScrolled, run: func(ctx context.Context, sel string) error {
			scroll := fmt.Sprintf(`(() => {
				const el = document.querySelector(%s);
				if (!el) throw new Error('element gone');
				el.scrollIntoView({block: 'center', inline: 'center'});
				return true;
			})()`, jsString(sel))
			var ok bool
			if err := chromedp.Run(ctx, chromedp.Evaluate(scroll, &ok)); err != nil {
				return err
			}
			return chromedp.Run(ctx, chromedp.Click(sel, chromedp.ByQuery))
		}},
		{kind: console.ClickSynthetic, run: func(ctx context.Context, sel string) error {
			script := fmt.Sprintf(`(() => {
				const el = document.querySelector(%s);
				if (!el) throw new Error('element gone');
				const r = el.getBoundingClientRect();
				const opts = {bubbles: true, cancelable: true, view: window,
					clientX: r.left + r.width / 2, clientY: r.top + r.height / 2};
				for (const type of ['pointerdown', 'mousedown', 'pointerup', 'mouseup', 'click']) {
					el.dispatchEvent(new MouseEvent(type, opts));
				}
				return true;
			})()`, jsString(sel))
			var ok bool
			return chromedp.Run(ctx, chromedp.Evaluate(script, &ok))
		}},
		{kind: console.ClickFormSubmit, terminalOnly: true, run: func(ctx context.Context, sel string) error {
			script := fmt.Sprintf(`(() => {
				const el = document.querySelector(%s);
				if (!el) throw new Error('element gone');
				const form = el.closest('form');
				if (!form) throw new Error('no enclosing form');
				form.submit();
				return true;
			})()`, jsString(sel))
			var ok bool
			return chromedp.Run(ctx, chromedp.Evaluate(script, &ok))
		}},
	}
}

// ClickOptions parameterizes Click.
type ClickOptions struct {
	// Post is the condition proving the click took effect. Without one, the
	// first strategy that does not error is accepted.
	Post *Condition
	// Terminal enables the form-submit fallback, which is only safe for
	// actions that are meant to submit.
	Terminal bool
	// Log receives one StrategyAttempt per strategy tried.
	Log *console.AttemptLog
}

// Click activates the element behind selector, walking the strategy chain
// until one both executes and, when a post-condition is given, visibly takes
// effect within the grace period.
func (e *Executor) Click(tabCtx context.Context, selector string, opts ClickOptions) error {
	var lastErr error
	for _, st := range e.clickStrategies() {
		if st.terminalOnly && !opts.Terminal {
			continue
		}
		started := time.Now()
		err := st.run(tabCtx, selector)
		if err == nil && opts.Post != nil {
			err = e.WaitFor(tabCtx, *opts.Post, e.cfg.PostClickGrace)
		}
		if opts.Log != nil {
			opts.Log.RecordOutcome(st.kind, selector, started, err)
		}
		if err == nil {
			return nil
		}
		if tabCtx.Err() != nil {
			return tabCtx.Err()
		}
		e.logger.Debug("Click strategy failed",
			zap.String("strategy", string(st.kind)),
			zap.String("selector", selector),
			zap.Error(err))
		lastErr = err
	}
	return console.NewNavError(console.ClassClickIntercepted, "all click strategies failed", lastErr).
		WithDetail(selector)
}

// Type focuses an element and sends keystrokes.
func (e *Executor) Type(tabCtx context.Context, selector, text string) error {
	if err := e.WaitFor(tabCtx, ElementVisible(selector), 0); err != nil {
		return err
	}
	return chromedp.Run(tabCtx,
		chromedp.Click(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
}

// PressEnter sends the Enter key to the focused element.
func (e *Executor) PressEnter(tabCtx context.Context) error {
	return chromedp.Run(tabCtx, chromedp.KeyEvent("\r"))
}

// PageContains reports whether the page's visible text contains the given
// string, case-insensitively. This is the resolver's proof of landing: a URL
// change alone proves nothing in a single-page app.
func (e *Executor) PageContains(tabCtx context.Context, text string) (bool, error) {
	script := fmt.Sprintf(`(document.body ? document.body.innerText : '').toLowerCase().includes(%s)`,
		jsString(strings.ToLower(text)))
	var ok bool
	if err := chromedp.Run(tabCtx, chromedp.Evaluate(script, &ok)); err != nil {
		return false, err
	}
	return ok, nil
}

// DOMSnippet extracts a bounded chunk of HTML around a selector for failure
// diagnostics. Errors degrade to an empty snippet; diagnostics must never
// mask the original failure.
func (e *Executor) DOMSnippet(tabCtx context.Context, selector string, maxLen int) string {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s) || document.body;
		if (!el) return '';
		return el.outerHTML.slice(0, %d);
	})()`, jsString(selector), maxLen)
	var snippet string
	if err := chromedp.Run(tabCtx, chromedp.Evaluate(script, &snippet)); err != nil {
		return ""
	}
	return snippet
}

// Evaluate runs a script and unmarshals its result. Thin wrapper so packages
// above never import chromedp directly.
func (e *Executor) Evaluate(tabCtx context.Context, script string, out interface{}) error {
	return chromedp.Run(tabCtx, chromedp.Evaluate(script, out))
}

// Location returns the browser's current URL.
func (e *Executor) Location(tabCtx context.Context) (string, error) {
	var loc string
	if err := chromedp.Run(tabCtx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// Screenshot captures the viewport, or the full scroll height when fullPage
// is set.
func (e *Executor) Screenshot(tabCtx context.Context, fullPage bool) ([]byte, error) {
	var buf []byte
	var action chromedp.Action
	if fullPage {
		action = chromedp.FullScreenshot(&buf, 90)
	} else {
		action = chromedp.CaptureScreenshot(&buf)
	}
	if err := chromedp.Run(tabCtx, action); err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}
