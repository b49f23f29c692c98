// internal/inventory/enumerator_test.go
package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veritas9k/consnap-cli/internal/config"
)

func TestEnumeratorEnabled(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.InventoryConfig
		want bool
	}{
		{"fully configured", config.InventoryConfig{Enabled: true, AccessKeyID: "AKIA", SecretAccessKey: "s"}, true},
		{"disabled by flag", config.InventoryConfig{Enabled: false, AccessKeyID: "AKIA", SecretAccessKey: "s"}, false},
		{"missing key id", config.InventoryConfig{Enabled: true, SecretAccessKey: "s"}, false},
		{"missing secret", config.InventoryConfig{Enabled: true, AccessKeyID: "AKIA"}, false},
		{"empty", config.InventoryConfig{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := NewEnumerator(tc.cfg, zap.NewNop())
			assert.Equal(t, tc.want, e.Enabled())
		})
	}
}

func TestListResources(t *testing.T) {
	t.Run("should skip silently when not configured", func(t *testing.T) {
		e := NewEnumerator(config.InventoryConfig{}, zap.NewNop())
		names, err := e.ListResources(context.Background(), "rds", "us-east-1")
		require.NoError(t, err)
		assert.Nil(t, names)
	})

	t.Run("should report no support for unenumerable services", func(t *testing.T) {
		e := NewEnumerator(config.InventoryConfig{Enabled: true, AccessKeyID: "AKIA", SecretAccessKey: "s"}, zap.NewNop())
		names, err := e.ListResources(context.Background(), "quicksight", "us-east-1")
		require.NoError(t, err)
		assert.Nil(t, names)
	})
}

func TestCallerIdentityRequiresCredentials(t *testing.T) {
	e := NewEnumerator(config.InventoryConfig{}, zap.NewNop())
	_, _, err := e.CallerIdentity(context.Background(), "us-east-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
