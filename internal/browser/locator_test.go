// internal/browser/locator_test.go
package browser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildFindScript(t *testing.T) {
	t.Run("should contain all four layers in escalation order", func(t *testing.T) {
		script := buildFindScript(LocatorSet{
			Attr:      "data-testid",
			AttrValue: "resource-link",
			Text:      "prod-db-01",
		}, "42")

		exact := strings.Index(script, "'attribute_exact'")
		text := strings.Index(script, "'text_content'")
		contains := strings.Index(script, "'attribute_contains'")
		scan := strings.Index(script, "'full_scan'")

		assert.Greater(t, exact, -1)
		assert.Greater(t, text, exact)
		assert.Greater(t, contains, text)
		assert.Greater(t, scan, contains)
	})

	t.Run("should narrow the attribute layers by the text", func(t *testing.T) {
		script := buildFindScript(LocatorSet{Attr: "role", AttrValue: "tab", Text: "Monitoring"}, "7")

		// The first [role="tab"] in document order must not win when a
		// label was asked for: every attribute candidate is checked
		// against the needle instead of a bare first-match querySelector.
		assert.NotContains(t, script, `document.querySelector('[' + attr`)

		exactBlock := script[:strings.Index(script, "'attribute_exact'")]
		assert.Contains(t, exactBlock, "t.includes(needle)")

		containsBlock := script[strings.Index(script, "'text_content'"):strings.LastIndex(script, "'attribute_contains'")]
		assert.Contains(t, containsBlock, "!t.includes(needle)")
	})

	t.Run("should keep attribute-only lookups unconstrained", func(t *testing.T) {
		script := buildFindScript(LocatorSet{Attr: "data-testid", AttrValue: "resource-link"}, "7")
		assert.Contains(t, script, "if (!needle) { tag(el); return 'attribute_exact'; }")
	})

	t.Run("should quote the ref token as a JS string", func(t *testing.T) {
		script := buildFindScript(LocatorSet{Text: "x"}, "42")
		assert.Contains(t, script, `"token_42"`)
		assert.Contains(t, script, refAttr)
	})

	t.Run("should lower and quote scan tags", func(t *testing.T) {
		script := buildFindScript(LocatorSet{Text: "x", Tags: []string{"A", "tr", "TD"}}, "1")
		assert.Contains(t, script, `["a", "tr", "td"].join`)
	})

	t.Run("should default the scan to all elements", func(t *testing.T) {
		script := buildFindScript(LocatorSet{Text: "x"}, "1")
		assert.Contains(t, script, `['*'].join`)
	})

	t.Run("should escape quotes in the search text", func(t *testing.T) {
		script := buildFindScript(LocatorSet{Text: `say "hi"`}, "1")
		assert.Contains(t, script, `"say \"hi\""`)
	})
}

func TestLocatorSetDescribe(t *testing.T) {
	assert.Equal(t, "empty locator set", LocatorSet{}.describe())
	assert.Equal(t, `data-testid="x", text="y"`, LocatorSet{Attr: "data-testid", AttrValue: "x", Text: "y"}.describe())
	assert.Equal(t, `text="y"`, LocatorSet{Text: "y"}.describe())
}
