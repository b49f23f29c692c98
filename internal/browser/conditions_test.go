// internal/browser/conditions_test.go
package browser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/veritas9k/consnap-cli/internal/console"
)

func TestConditionPredicate(t *testing.T) {
	t.Run("should quote selectors into valid JS literals", func(t *testing.T) {
		cond := ElementPresent(`[data-testid="awsc-concierge-input"]`)
		js := cond.predicate()
		assert.Contains(t, js, `document.querySelector("[data-testid=\"awsc-concierge-input\"]")`)
	})

	t.Run("text matching should be case-insensitive", func(t *testing.T) {
		cond := TextAppears("Prod-DB-01")
		js := cond.predicate()
		assert.Contains(t, js, `"prod-db-01"`)
		assert.Contains(t, js, "toLowerCase()")
	})

	t.Run("removed should invert present", func(t *testing.T) {
		assert.Contains(t, ElementRemoved("#spinner").predicate(), `!document.querySelector`)
	})

	t.Run("clickable should check pointer events and disabled state", func(t *testing.T) {
		js := ElementClickable("button.submit").predicate()
		assert.Contains(t, js, "el.disabled")
		assert.Contains(t, js, "pointerEvents")
	})
}

func TestConditionMatchesURL(t *testing.T) {
	t.Run("url_contains should be case-insensitive", func(t *testing.T) {
		cond := URLContains("region=US-EAST-1")
		assert.True(t, cond.matchesURL("https://console.aws.amazon.com/rds/home?region=us-east-1"))
		assert.False(t, cond.matchesURL("https://console.aws.amazon.com/rds/home"))
	})

	t.Run("url_changes should require a non-empty different URL", func(t *testing.T) {
		cond := URLChanges("https://a.test/start")
		assert.False(t, cond.matchesURL("https://a.test/start"))
		assert.False(t, cond.matchesURL(""))
		assert.True(t, cond.matchesURL("https://a.test/next"))
	})

	t.Run("usesLocation should select the URL conditions only", func(t *testing.T) {
		assert.True(t, URLContains("x").usesLocation())
		assert.True(t, URLChanges("x").usesLocation())
		assert.False(t, ElementPresent("x").usesLocation())
		assert.False(t, TextAppears("x").usesLocation())
	})
}

func TestConditionTimeoutError(t *testing.T) {
	cases := []struct {
		cond Condition
		want *console.NavError
	}{
		{ElementPresent("#row"), console.ErrElementNotFound},
		{ElementVisible("#row"), console.ErrElementNotFound},
		{ElementClickable("#row"), console.ErrElementNotFound},
		{TextAppears("prod-db-01"), console.ErrWrongPageLanded},
		{URLContains("region="), console.ErrNavigationTimeout},
		{URLChanges("https://a.test"), console.ErrNavigationTimeout},
		{ElementRemoved("#spinner"), console.ErrNavigationTimeout},
	}
	for _, tc := range cases {
		err := tc.cond.timeoutError("15s")
		assert.True(t, errors.Is(err, tc.want), "condition %s should classify as %s", tc.cond.Kind, tc.want.Class)
		assert.Contains(t, err.Error(), "within 15s")
	}
}
