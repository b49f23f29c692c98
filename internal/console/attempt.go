// internal/console/attempt.go
package console

import (
	"fmt"
	"strings"
	"time"
)

// StrategyKind names one way of getting at the target, either a whole
// navigation tier or an individual click technique.
type StrategyKind string

const (
	StrategyDeepLink     StrategyKind = "deep_link"
	StrategySearch       StrategyKind = "dom_search"
	StrategyClickThrough StrategyKind = "ui_click"

	ClickNative     StrategyKind = "click_native"
	ClickScript     StrategyKind = "click_script"
	ClickScrolled   StrategyKind = "click_scrolled"
	ClickSynthetic  StrategyKind = "click_synthetic"
	ClickFormSubmit StrategyKind = "click_form_submit"
)

// StrategyAttempt records one try of one strategy. Attempts accumulate into
// an AttemptLog for the duration of a single call and are discarded after.
type StrategyAttempt struct {
	Strategy    StrategyKind
	Parameters  string
	StartedAt   time.Time
	Duration    time.Duration
	Success     bool
	ErrorDetail string
}

// AttemptLog is the ordered record of everything that was tried during one
// navigation call. It travels inside terminal errors so the caller can see
// exactly which strategies failed and why.
type AttemptLog struct {
	attempts []StrategyAttempt
}

// Record appends a finished attempt.
func (l *AttemptLog) Record(a StrategyAttempt) {
	l.attempts = append(l.attempts, a)
}

// RecordOutcome is a convenience wrapper that computes the duration and
// derives success from err.
func (l *AttemptLog) RecordOutcome(strategy StrategyKind, params string, started time.Time, err error) {
	a := StrategyAttempt{
		Strategy:   strategy,
		Parameters: params,
		StartedAt:  started,
		Duration:   time.Since(started),
		Success:    err == nil,
	}
	if err != nil {
		a.ErrorDetail = err.Error()
	}
	l.attempts = append(l.attempts, a)
}

// Attempts returns a copy of the recorded attempts in order.
func (l *AttemptLog) Attempts() []StrategyAttempt {
	out := make([]StrategyAttempt, len(l.attempts))
	copy(out, l.attempts)
	return out
}

// Len reports how many attempts have been recorded.
func (l *AttemptLog) Len() int { return len(l.attempts) }

// TiersTried returns the distinct navigation tiers attempted, in first-seen
// order. Click-level strategies are excluded.
func (l *AttemptLog) TiersTried() []StrategyKind {
	seen := map[StrategyKind]bool{}
	var tiers []StrategyKind
	for _, a := range l.attempts {
		switch a.Strategy {
		case StrategyDeepLink, StrategySearch, StrategyClickThrough:
			if !seen[a.Strategy] {
				seen[a.Strategy] = true
				tiers = append(tiers, a.Strategy)
			}
		}
	}
	return tiers
}

// String renders the log for error messages and operator output.
func (l *AttemptLog) String() string {
	if len(l.attempts) == 0 {
		return "no strategies attempted"
	}
	var sb strings.Builder
	for i, a := range l.attempts {
		if i > 0 {
			sb.WriteString("; ")
		}
		outcome := "ok"
		if !a.Success {
			outcome = "failed: " + a.ErrorDetail
		}
		fmt.Fprintf(&sb, "%d. %s(%s) %s after %s", i+1, a.Strategy, a.Parameters, outcome, a.Duration.Round(time.Millisecond))
	}
	return sb.String()
}
