// internal/console/errors_test.go
package console

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNavError(t *testing.T) {
	t.Run("should match sentinels of the same class through errors.Is", func(t *testing.T) {
		err := ErrElementNotFound.WithDetail("selector #missing")
		assert.True(t, errors.Is(err, ErrElementNotFound))
		assert.False(t, errors.Is(err, ErrNavigationTimeout))
	})

	t.Run("should match wrapped errors", func(t *testing.T) {
		inner := ErrWrongPageLanded.WithDetail("landed on dashboard")
		wrapped := fmt.Errorf("tier failed: %w", inner)
		assert.True(t, errors.Is(wrapped, ErrWrongPageLanded))
		assert.Equal(t, ClassWrongPageLanded, ClassOf(wrapped))
	})

	t.Run("WithDetail should not mutate the sentinel", func(t *testing.T) {
		detailed := ErrAuthenticationTimeout.WithDetail("waited 5m")
		assert.Empty(t, ErrAuthenticationTimeout.Detail)
		assert.Equal(t, "waited 5m", detailed.Detail)
	})

	t.Run("Error should include class, detail, and cause", func(t *testing.T) {
		cause := errors.New("context deadline exceeded")
		err := NewNavError(ClassNavigationTimeout, "page load timed out", cause).WithDetail("url https://example.test")
		msg := err.Error()
		assert.Contains(t, msg, "navigation_timeout")
		assert.Contains(t, msg, "page load timed out")
		assert.Contains(t, msg, "url https://example.test")
		assert.Contains(t, msg, "context deadline exceeded")
		require.ErrorIs(t, err, cause)
	})

	t.Run("ClassOf should default to unknown for foreign errors", func(t *testing.T) {
		assert.Equal(t, ClassUnknown, ClassOf(errors.New("boom")))
		assert.Equal(t, ClassUnknown, ClassOf(nil))
	})
}

func TestTransient(t *testing.T) {
	transient := []ErrorClass{
		ClassElementNotFound,
		ClassClickIntercepted,
		ClassNavigationTimeout,
		ClassWrongPageLanded,
		ClassUnknown,
	}
	for _, class := range transient {
		assert.True(t, Transient(class), "class %s should be transient", class)
	}

	terminal := []ErrorClass{
		ClassAuthenticationTimeout,
		ClassAuthenticationRequired,
		ClassInvalidTarget,
		ClassNoDateColumnFound,
	}
	for _, class := range terminal {
		assert.False(t, Transient(class), "class %s should not be transient", class)
	}
}
