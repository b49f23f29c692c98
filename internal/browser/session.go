// internal/browser/session.go

// Package browser owns the browser processes and every interaction with the
// live DOM. A Session is one authenticated browser per account; the Executor
// is the only API through which other packages touch its tab.
package browser

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is a single live browser owned by one account. All operations
// against the tab are funneled through Do, which serializes them: a tab has
// one DOM, and concurrent script execution against it is undefined.
type Session struct {
	AccountID string

	id     string
	logger *zap.Logger

	// tabCtx is the chromedp context for the session's tab; allocCancel
	// tears down the whole browser process.
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc

	// opMu serializes browser operations; mu guards the plain fields below
	// and is never held across a browser call.
	opMu sync.Mutex

	mu         sync.Mutex
	region     string
	lastURL    string
	lastUsedAt time.Time
	closed     bool
}

// ErrSessionClosed is returned for operations against a closed session.
var ErrSessionClosed = errors.New("browser session is closed")

func newSession(accountID, region string, tabCtx context.Context, tabCancel, allocCancel context.CancelFunc, logger *zap.Logger) *Session {
	id := uuid.New().String()
	return &Session{
		AccountID:   accountID,
		id:          id,
		region:      region,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		logger:      logger.With(zap.String("session_id", id[:8]), zap.String("account_id", accountID)),
		lastUsedAt:  time.Now(),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Region returns the region the session last navigated in.
func (s *Session) Region() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.region
}

func (s *Session) setRegion(region string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.region = region
}

// LastURL returns the most recently observed browser location. This is a
// cache for diagnostics only; authentication decisions always re-query the
// live location.
func (s *Session) LastURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastURL
}

// Do runs fn against the session's tab, holding the per-session lock for the
// duration. fn receives a context that is both the chromedp tab context and
// bounded by the caller's ctx.
func (s *Session) Do(ctx context.Context, fn func(tabCtx context.Context) error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.lastUsedAt = time.Now()
	tabCtx := s.tabCtx
	s.mu.Unlock()

	// Hold an operation-level lock separate from the field mutex so state
	// reads (Region, LastURL) don't block behind a long browser call.
	s.opMu.Lock()
	defer s.opMu.Unlock()

	runCtx, cancel := context.WithCancel(tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := fn(runCtx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Location queries the browser's current URL at call time.
func (s *Session) Location(ctx context.Context) (string, error) {
	var loc string
	err := s.Do(ctx, func(tabCtx context.Context) error {
		return chromedp.Run(tabCtx, chromedp.Location(&loc))
	})
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.lastURL = loc
	s.mu.Unlock()
	return loc, nil
}

// Close tears down the tab and the browser process. Safe to call twice.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	tabCtx := s.tabCtx
	tabCancel := s.tabCancel
	allocCancel := s.allocCancel
	s.mu.Unlock()

	if tabCancel != nil {
		tabCancel()
	}
	if allocCancel != nil {
		allocCancel()
	}
	if tabCtx == nil {
		return nil
	}

	// Wait for the tab context to wind down, respecting the caller's deadline.
	waitCtx, cancelWait := context.WithTimeout(ctx, 10*time.Second)
	defer cancelWait()
	select {
	case <-tabCtx.Done():
		s.logger.Debug("Browser session closed gracefully.")
	case <-waitCtx.Done():
		s.logger.Warn("Deadline exceeded waiting for browser session to close.", zap.Error(waitCtx.Err()))
	}
	return nil
}
