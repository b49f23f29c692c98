// internal/browser/locator.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/veritas9k/consnap-cli/internal/console"
)

// LocatorSet describes an element in terms resilient to virtualized
// rendering: an attribute to match exactly, visible text to match, and the
// tags the full scan should sweep when the structured layers fail.
type LocatorSet struct {
	// Attr / AttrValue drive the attribute-exact and attribute-contains
	// layers (e.g. Attr "data-testid", AttrValue "resource-link").
	Attr      string
	AttrValue string
	// Text drives the text-content layer and the full scan.
	Text string
	// Tags bounds the full scan; empty means all elements. Virtualized
	// tables may render rows as bare divs or text nodes, so callers should
	// not assume anchors.
	Tags []string
}

// Layer identifies which locator layer found the element.
type Layer string

const (
	LayerAttributeExact    Layer = "attribute_exact"
	LayerTextContent       Layer = "text_content"
	LayerAttributeContains Layer = "attribute_contains"
	LayerFullScan          Layer = "full_scan"
)

// refAttr is the temporary attribute stamped on a located element so later
// actions have a stable selector even in a virtualized table. The same trick
// withstands React re-keying better than any structural selector.
const refAttr = "data-consnap-ref"

// buildFindScript renders the layered lookup. The script tags the first
// match with refAttr=token and returns the name of the matching layer, or an
// empty string when nothing matched.
func buildFindScript(loc LocatorSet, token string) string {
	tags := "'*'"
	if len(loc.Tags) > 0 {
		quoted := make([]string, len(loc.Tags))
		for i, t := range loc.Tags {
			quoted[i] = jsString(strings.ToLower(t))
		}
		tags = strings.Join(quoted, ", ")
	}
	return fmt.Sprintf(`(() => {
	const attr = %s, attrValue = %s, text = %s;
	const needle = text.toLowerCase();
	const tag = (el) => el.setAttribute(%q, %s);
	const visible = (el) => {
		const r = el.getBoundingClientRect();
		return r.width > 0 && r.height > 0;
	};

	// When text is given alongside the attribute, it narrows the attribute
	// layers too: a page full of [role="tab"] elements must yield the tab
	// whose label matches, not the first one in document order.
	if (attr && attrValue) {
		for (const el of document.querySelectorAll('[' + attr + '="' + attrValue + '"]')) {
			if (!needle) { tag(el); return 'attribute_exact'; }
			const t = (el.innerText || el.textContent || '').trim().toLowerCase();
			if (t.includes(needle)) { tag(el); return 'attribute_exact'; }
		}
	}

	if (needle) {
		const candidates = document.querySelectorAll('a, button, td, th, span, div[role], [role="link"], [role="button"], [role="tab"], [role="row"]');
		for (const el of candidates) {
			if (!visible(el)) continue;
			const t = (el.innerText || el.textContent || '').trim().toLowerCase();
			if (t === needle) { tag(el); return 'text_content'; }
		}
	}

	if (attr && attrValue) {
		for (const el of document.querySelectorAll('[' + attr + ']')) {
			const v = (el.getAttribute(attr) || '').toLowerCase();
			if (!v.includes(attrValue.toLowerCase())) continue;
			if (needle) {
				const t = (el.innerText || el.textContent || '').toLowerCase();
				if (!t.includes(needle)) continue;
			}
			tag(el); return 'attribute_contains';
		}
	}

	// Full scan: virtualized tables often render rows without anchor tags,
	// so sweep every candidate element and match on contained text or any
	// attribute value, case-insensitively. Prefer the deepest match so a
	// row container does not shadow the cell inside it.
	if (needle) {
		let best = null;
		for (const el of document.querySelectorAll([%s].join(', '))) {
			const t = (el.innerText || el.textContent || '').toLowerCase();
			let hit = t.includes(needle);
			if (!hit) {
				for (const a of el.attributes || []) {
					if ((a.value || '').toLowerCase().includes(needle)) { hit = true; break; }
				}
			}
			if (hit && (!best || best.contains(el))) best = el;
		}
		if (best) { tag(best); return 'full_scan'; }
	}
	return '';
})()`,
		jsString(loc.Attr), jsString(loc.AttrValue), jsString(loc.Text),
		refAttr, jsString("token_"+token), tags)
}

// Find locates an element through the layered strategies and returns a
// stable selector for it plus the layer that matched.
func (e *Executor) Find(tabCtx context.Context, loc LocatorSet) (string, Layer, error) {
	token := fmt.Sprintf("%d", time.Now().UnixNano())
	var layer string
	if err := e.Evaluate(tabCtx, buildFindScript(loc, token), &layer); err != nil {
		return "", "", fmt.Errorf("locator scan: %w", err)
	}
	if layer == "" {
		return "", "", console.NewNavError(console.ClassElementNotFound, "no locator layer matched", nil).
			WithDetail(loc.describe())
	}
	e.logger.Debug("Element located",
		zap.String("layer", layer),
		zap.String("text", loc.Text),
		zap.String("attr", loc.Attr))
	return fmt.Sprintf(`[%s="token_%s"]`, refAttr, token), Layer(layer), nil
}

// ClearRef removes the temporary reference attribute after the caller is
// done with the element. Best effort; stale refs are harmless.
func (e *Executor) ClearRef(tabCtx context.Context, selector string) {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (el) el.removeAttribute(%q);
		return true;
	})()`, jsString(selector), refAttr)
	var ok bool
	_ = e.Evaluate(tabCtx, script, &ok)
}

func (l LocatorSet) describe() string {
	var parts []string
	if l.Attr != "" {
		parts = append(parts, fmt.Sprintf("%s=%q", l.Attr, l.AttrValue))
	}
	if l.Text != "" {
		parts = append(parts, fmt.Sprintf("text=%q", l.Text))
	}
	if len(parts) == 0 {
		return "empty locator set"
	}
	return strings.Join(parts, ", ")
}
