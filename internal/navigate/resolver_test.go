// internal/navigate/resolver_test.go
package navigate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/veritas9k/consnap-cli/internal/browser"
	"github.com/veritas9k/consnap-cli/internal/config"
	"github.com/veritas9k/consnap-cli/internal/console"
)

func testResolver() *Resolver {
	cfg := config.NewDefaultConfig()
	exec := browser.NewExecutor(cfg.Console, zap.NewNop())
	return NewResolver(exec, cfg.Console, zap.NewNop())
}

func tierKinds(tiers []Tier) []console.StrategyKind {
	kinds := make([]console.StrategyKind, len(tiers))
	for i, tier := range tiers {
		kinds[i] = tier.Kind
	}
	return kinds
}

func TestResolverTiers(t *testing.T) {
	r := testResolver()

	t.Run("catalog services get all three tiers in order", func(t *testing.T) {
		target, err := console.NewTarget("rds", "prod-db-01", "configuration", "us-east-1")
		require.NoError(t, err)

		tiers := r.Tiers(target)
		assert.Equal(t, []console.StrategyKind{
			console.StrategyDeepLink,
			console.StrategySearch,
			console.StrategyClickThrough,
		}, tierKinds(tiers))
		for _, tier := range tiers {
			assert.NotNil(t, tier.Run)
		}
	})

	t.Run("unknown services fall back to search only", func(t *testing.T) {
		target, err := console.NewTarget("quicksight", "sales-dashboard", "", "us-east-1")
		require.NoError(t, err)

		tiers := r.Tiers(target)
		assert.Equal(t, []console.StrategyKind{console.StrategySearch}, tierKinds(tiers))
	})
}
