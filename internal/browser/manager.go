// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/veritas9k/consnap-cli/internal/config"
	"github.com/veritas9k/consnap-cli/internal/console"
)

// Region selector control. The console's navigation bar exposes it under a
// test id that has been stable across UI releases, with the older menu id as
// a fallback.
const (
	regionMenuSelector     = `[data-testid="awsc-nav-regions-menu-button"]`
	regionMenuSelectorOld  = `#nav-regionMenu`
	regionMenuListSelector = `[data-testid="awsc-region-list"]`
)

// Manager owns every browser process. At most one live Session exists per
// account at any time, and each account gets its own browser process so a
// crash in one account's browser cannot take down another's.
type Manager struct {
	cfg    *config.Config
	logger *zap.Logger
	exec   *Executor

	mu       sync.Mutex
	sessions map[string]*Session

	// group collapses concurrent Acquire calls for the same account into a
	// single launch/authentication pass.
	group singleflight.Group

	// wg tracks live sessions for graceful shutdown.
	wg sync.WaitGroup

	// Overridable seams for tests; production wiring is set in NewManager.
	launch       func(ctx context.Context, accountID string) (*Session, error)
	locate       func(ctx context.Context, s *Session) (string, error)
	enterSignIn  func(ctx context.Context, s *Session) error
	switchRegion func(ctx context.Context, s *Session, region string) error
}

// NewManager creates the session manager. No browser is launched until the
// first Acquire.
func NewManager(cfg *config.Config, logger *zap.Logger) *Manager {
	m := &Manager{
		cfg:      cfg,
		logger:   logger.Named("session_manager"),
		exec:     NewExecutor(cfg.Console, logger),
		sessions: make(map[string]*Session),
	}
	m.launch = m.launchBrowser
	m.locate = func(ctx context.Context, s *Session) (string, error) { return s.Location(ctx) }
	m.enterSignIn = func(ctx context.Context, s *Session) error {
		return s.Do(ctx, func(tabCtx context.Context) error {
			return m.exec.Navigate(tabCtx, console.SignInEntryURL)
		})
	}
	m.switchRegion = m.switchRegionViaSelector
	return m
}

// Executor returns the element action executor bound to this manager's
// timing configuration.
func (m *Manager) Executor() *Executor { return m.exec }

// Acquire returns the account's session, creating and authenticating one if
// needed. It is idempotent: an already-authenticated browser is returned
// as-is (with the region switched when it differs), and the sign-in entry
// URL is never re-visited — doing so on an authenticated browser triggers
// the provider's "choose your session" interstitial.
func (m *Manager) Acquire(ctx context.Context, accountID, region string) (*Session, error) {
	v, err, _ := m.group.Do(accountID, func() (interface{}, error) {
		return m.acquire(ctx, accountID, region)
	})
	if err != nil {
		return nil, err
	}
	sess := v.(*Session)
	// A coalesced caller may have asked for a different region than the one
	// the shared acquire switched to. Re-check against this caller's request;
	// a matching region makes this a no-op.
	if err := m.ensureRegion(ctx, sess, region); err != nil {
		return nil, err
	}
	return sess, nil
}

func (m *Manager) acquire(ctx context.Context, accountID, region string) (*Session, error) {
	m.mu.Lock()
	sess := m.sessions[accountID]
	m.mu.Unlock()

	created := false
	if sess == nil {
		var err error
		sess, err = m.launch(ctx, accountID)
		if err != nil {
			return nil, fmt.Errorf("launching browser for account %s: %w", accountID, err)
		}
		created = true
		m.mu.Lock()
		m.sessions[accountID] = sess
		m.mu.Unlock()
		m.wg.Add(1)
	}

	// Authentication state comes from the live location at call time. A
	// cached flag goes stale across partial failures; the URL cannot.
	loc, err := m.locate(ctx, sess)
	if err != nil {
		if created {
			m.dropSession(ctx, accountID, sess)
		}
		return nil, fmt.Errorf("probing browser location: %w", err)
	}

	if console.OnAuthenticatedDomain(loc) {
		if err := m.ensureRegion(ctx, sess, region); err != nil {
			return nil, err
		}
		return sess, nil
	}

	m.logger.Info("Session not authenticated; entering sign-in flow.",
		zap.String("account_id", accountID), zap.String("location", loc))
	if err := m.enterSignIn(ctx, sess); err != nil {
		return nil, fmt.Errorf("opening sign-in entry: %w", err)
	}

	if err := m.waitForAuthentication(ctx, sess); err != nil {
		return nil, err
	}
	if err := m.ensureRegion(ctx, sess, region); err != nil {
		return nil, err
	}
	return sess, nil
}

// waitForAuthentication blocks until the external sign-in handshake (human
// or SSO collaborator) lands the browser on the authenticated domain.
func (m *Manager) waitForAuthentication(ctx context.Context, sess *Session) error {
	deadline := time.Now().Add(m.cfg.Console.AuthTimeout)
	ticker := time.NewTicker(m.cfg.Console.AuthPollInterval)
	defer ticker.Stop()

	for {
		loc, err := m.locate(ctx, sess)
		if err == nil && console.OnAuthenticatedDomain(loc) {
			m.logger.Info("Session authenticated.", zap.String("account_id", sess.AccountID))
			return nil
		}
		if time.Now().After(deadline) {
			return console.ErrAuthenticationTimeout.WithDetail(
				fmt.Sprintf("waited %s; last location %q", m.cfg.Console.AuthTimeout, loc))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ensureRegion switches the console region through the region-selector
// control when the session's last-used region differs. A full
// re-authentication is never needed for a region change.
func (m *Manager) ensureRegion(ctx context.Context, sess *Session, region string) error {
	if region == "" || strings.EqualFold(sess.Region(), region) {
		return nil
	}
	m.logger.Info("Switching console region.",
		zap.String("account_id", sess.AccountID),
		zap.String("from", sess.Region()),
		zap.String("to", region))
	if err := m.switchRegion(ctx, sess, region); err != nil {
		return fmt.Errorf("switching region to %s: %w", region, err)
	}
	sess.setRegion(region)
	return nil
}

func (m *Manager) switchRegionViaSelector(ctx context.Context, sess *Session, region string) error {
	return sess.Do(ctx, func(tabCtx context.Context) error {
		// Open the region menu; the control id differs between console
		// generations, so try both.
		menuSel := regionMenuSelector
		if err := m.exec.WaitFor(tabCtx, ElementClickable(menuSel), 0); err != nil {
			menuSel = regionMenuSelectorOld
			if err := m.exec.WaitFor(tabCtx, ElementClickable(menuSel), 0); err != nil {
				return err
			}
		}
		if err := m.exec.Click(tabCtx, menuSel, ClickOptions{}); err != nil {
			return err
		}

		// Region entries carry the region code as visible text.
		sel, _, err := m.exec.Find(tabCtx, LocatorSet{
			Attr:      "data-region",
			AttrValue: region,
			Text:      region,
		})
		if err != nil {
			return err
		}
		defer m.exec.ClearRef(tabCtx, sel)

		post := URLContains("region=" + region)
		return m.exec.Click(tabCtx, sel, ClickOptions{Post: &post})
	})
}

// launchBrowser starts a dedicated browser process for an account and opens
// its single tab. The session's region starts empty: the console boots in
// its own default region, and only an actual selector switch records one.
func (m *Manager) launchBrowser(ctx context.Context, accountID string) (*Session, error) {
	m.logger.Info("Launching browser.", zap.String("account_id", accountID))

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), m.buildAllocatorOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// Verify the browser starts and responds before handing it out.
	probeCtx, cancelProbe := context.WithTimeout(tabCtx, 30*time.Second)
	defer cancelProbe()
	if err := chromedp.Run(probeCtx, chromedp.Navigate("about:blank")); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	return newSession(accountID, "", tabCtx, tabCancel, allocCancel, m.logger), nil
}

// buildAllocatorOptions assembles flags for a configurable browser instance.
// The automation banner is disabled by overriding enable-automation after the
// defaults: the console occasionally varies its UI for detected automation.
func (m *Manager) buildAllocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	opts = append(opts,
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("headless", m.cfg.Browser.Headless),
		chromedp.Flag("ignore-certificate-errors", m.cfg.Browser.IgnoreTLSErrors),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", m.cfg.Browser.Headless),
		chromedp.WindowSize(m.cfg.Browser.WindowWidth, m.cfg.Browser.WindowHeight),
	)
	if m.cfg.Browser.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(m.cfg.Browser.UserAgent))
	}

	// Custom arguments from the config file.
	for _, arg := range m.cfg.Browser.Args {
		parts := strings.SplitN(arg, "=", 2)
		flagName := strings.TrimPrefix(parts[0], "--")
		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(flagName, parts[1]))
		} else {
			opts = append(opts, chromedp.Flag(flagName, true))
		}
	}

	// Flags required for running inside containers (e.g. Docker on Linux).
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}
	return opts
}

// Release closes and forgets an account's session.
func (m *Manager) Release(ctx context.Context, accountID string) error {
	m.mu.Lock()
	sess := m.sessions[accountID]
	delete(m.sessions, accountID)
	m.mu.Unlock()
	if sess == nil {
		return nil
	}
	defer m.wg.Done()
	return sess.Close(ctx)
}

func (m *Manager) dropSession(ctx context.Context, accountID string, sess *Session) {
	m.mu.Lock()
	if m.sessions[accountID] == sess {
		delete(m.sessions, accountID)
	}
	m.mu.Unlock()
	_ = sess.Close(ctx)
	m.wg.Done()
}

// Shutdown closes all sessions, waiting for in-flight work up to the
// caller's deadline.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Session manager shutdown initiated.")

	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		sessions = append(sessions, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		if err := s.Close(ctx); err != nil {
			m.logger.Warn("Session close failed during shutdown.", zap.Error(err))
		}
		m.wg.Done()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		m.logger.Info("All sessions closed.")
		return nil
	case <-ctx.Done():
		m.logger.Warn("Shutdown deadline exceeded.", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}
