// -- cmd/capture_test.go --
package cmd

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritas9k/consnap-cli/internal/config"
)

func setDateFlags(t *testing.T, from, to, column string) {
	t.Helper()
	viper.Set("from", from)
	viper.Set("to", to)
	viper.Set("date-column", column)
	t.Cleanup(viper.Reset)
}

func TestCaptureSettings(t *testing.T) {
	// The root pre-run unmarshals the config before the capture command
	// binds its flags, so the snapshot cannot see them; captureSettings
	// must pick the bound values up afterwards.
	t.Run("should apply flag-bound values over the config snapshot", func(t *testing.T) {
		t.Cleanup(viper.Reset)
		config.SetDefaults(viper.GetViper())
		viper.Set("capture.max_pages", 5)
		viper.Set("capture.full_page", false)

		base := config.CaptureConfig{MaxPages: 20, FullPage: true, OutputDir: "/tmp/evidence"}
		got := captureSettings(base)

		assert.Equal(t, 5, got.MaxPages)
		assert.False(t, got.FullPage)
		assert.Equal(t, "/tmp/evidence", got.OutputDir)
	})

	t.Run("should keep defaults when no flags are bound", func(t *testing.T) {
		t.Cleanup(viper.Reset)
		config.SetDefaults(viper.GetViper())

		got := captureSettings(config.CaptureConfig{MaxPages: 20, FullPage: true})

		assert.Equal(t, 20, got.MaxPages)
		assert.True(t, got.FullPage)
	})
}

func TestBuildDateFilter(t *testing.T) {
	t.Run("should return nil when no window is requested", func(t *testing.T) {
		setDateFlags(t, "", "", "")
		filter, err := buildDateFilter()
		require.NoError(t, err)
		assert.Nil(t, filter)
	})

	t.Run("should build an inclusive window from both bounds", func(t *testing.T) {
		setDateFlags(t, "2026-01-01", "2026-03-31", "Creation time")
		filter, err := buildDateFilter()
		require.NoError(t, err)
		require.NotNil(t, filter)
		assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), filter.From)
		// The end bound covers the whole final day.
		assert.True(t, filter.To.After(time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)))
		assert.Equal(t, "Creation time", filter.ColumnHint)
	})

	t.Run("should default an open end to now", func(t *testing.T) {
		setDateFlags(t, "2026-01-01", "", "")
		filter, err := buildDateFilter()
		require.NoError(t, err)
		require.NotNil(t, filter)
		assert.WithinDuration(t, time.Now().UTC(), filter.To, time.Minute)
	})

	t.Run("should default an open start to the epoch", func(t *testing.T) {
		setDateFlags(t, "", "2026-03-31", "")
		filter, err := buildDateFilter()
		require.NoError(t, err)
		require.NotNil(t, filter)
		assert.Equal(t, time.Unix(0, 0).UTC(), filter.From)
	})

	t.Run("should reject malformed dates", func(t *testing.T) {
		setDateFlags(t, "01/02/2026", "", "")
		_, err := buildDateFilter()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid --from date")
	})

	t.Run("should reject an inverted window", func(t *testing.T) {
		setDateFlags(t, "2026-03-01", "2026-01-01", "")
		_, err := buildDateFilter()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "before")
	})
}
