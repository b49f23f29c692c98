// internal/console/attempt_test.go
package console

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttemptLog(t *testing.T) {
	t.Run("RecordOutcome should derive success and duration", func(t *testing.T) {
		log := &AttemptLog{}
		started := time.Now().Add(-50 * time.Millisecond)
		log.RecordOutcome(StrategyDeepLink, "https://example.test", started, nil)
		log.RecordOutcome(StrategySearch, "rds prod-db-01", time.Now(), errors.New("no results"))

		attempts := log.Attempts()
		require.Len(t, attempts, 2)
		assert.True(t, attempts[0].Success)
		assert.GreaterOrEqual(t, attempts[0].Duration, 50*time.Millisecond)
		assert.False(t, attempts[1].Success)
		assert.Equal(t, "no results", attempts[1].ErrorDetail)
	})

	t.Run("Attempts should return a copy", func(t *testing.T) {
		log := &AttemptLog{}
		log.RecordOutcome(StrategyDeepLink, "x", time.Now(), nil)
		attempts := log.Attempts()
		attempts[0].Parameters = "mutated"
		assert.Equal(t, "x", log.Attempts()[0].Parameters)
	})

	t.Run("TiersTried should dedupe and exclude click strategies", func(t *testing.T) {
		log := &AttemptLog{}
		log.RecordOutcome(StrategyDeepLink, "", time.Now(), errors.New("timeout"))
		log.RecordOutcome(StrategyDeepLink, "", time.Now(), errors.New("timeout"))
		log.RecordOutcome(ClickNative, "#next", time.Now(), errors.New("intercepted"))
		log.RecordOutcome(StrategySearch, "", time.Now(), nil)

		assert.Equal(t, []StrategyKind{StrategyDeepLink, StrategySearch}, log.TiersTried())
	})

	t.Run("String should number attempts and include outcomes", func(t *testing.T) {
		log := &AttemptLog{}
		assert.Equal(t, "no strategies attempted", log.String())

		log.RecordOutcome(StrategyDeepLink, "url", time.Now(), errors.New("wrong page"))
		log.RecordOutcome(StrategySearch, "query", time.Now(), nil)

		s := log.String()
		assert.Contains(t, s, "1. deep_link(url) failed: wrong page")
		assert.Contains(t, s, "2. dom_search(query) ok")
	})
}
