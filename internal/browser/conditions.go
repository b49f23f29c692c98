// internal/browser/conditions.go
package browser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/veritas9k/consnap-cli/internal/console"
)

// ConditionKind enumerates the executor's wait conditions.
type ConditionKind string

const (
	CondElementPresent   ConditionKind = "element_present"
	CondElementVisible   ConditionKind = "element_visible"
	CondElementClickable ConditionKind = "element_clickable"
	CondTextAppears      ConditionKind = "text_appears"
	CondURLContains      ConditionKind = "url_contains"
	CondURLChanges       ConditionKind = "url_changes"
	CondElementRemoved   ConditionKind = "element_removed"
)

// Condition is one wait condition with its parameters. Build them through the
// constructors below so the failure classification is always set.
type Condition struct {
	Kind     ConditionKind
	Selector string
	Text     string
	URLPart  string
	FromURL  string

	// failClass is the error class reported when the condition never
	// materializes within its timeout.
	failClass console.ErrorClass
}

func ElementPresent(selector string) Condition {
	return Condition{Kind: CondElementPresent, Selector: selector, failClass: console.ClassElementNotFound}
}

func ElementVisible(selector string) Condition {
	return Condition{Kind: CondElementVisible, Selector: selector, failClass: console.ClassElementNotFound}
}

func ElementClickable(selector string) Condition {
	return Condition{Kind: CondElementClickable, Selector: selector, failClass: console.ClassElementNotFound}
}

func TextAppears(text string) Condition {
	return Condition{Kind: CondTextAppears, Text: text, failClass: console.ClassWrongPageLanded}
}

func URLContains(part string) Condition {
	return Condition{Kind: CondURLContains, URLPart: part, failClass: console.ClassNavigationTimeout}
}

func URLChanges(from string) Condition {
	return Condition{Kind: CondURLChanges, FromURL: from, failClass: console.ClassNavigationTimeout}
}

func ElementRemoved(selector string) Condition {
	return Condition{Kind: CondElementRemoved, Selector: selector, failClass: console.ClassNavigationTimeout}
}

// usesLocation reports whether the condition is evaluated against the
// browser's URL rather than the DOM.
func (c Condition) usesLocation() bool {
	return c.Kind == CondURLContains || c.Kind == CondURLChanges
}

// predicate renders the JavaScript expression that evaluates the condition in
// the page. Only valid for DOM conditions.
func (c Condition) predicate() string {
	sel := jsString(c.Selector)
	switch c.Kind {
	case CondElementPresent:
		return fmt.Sprintf(`!!document.querySelector(%s)`, sel)
	case CondElementRemoved:
		return fmt.Sprintf(`!document.querySelector(%s)`, sel)
	case CondElementVisible:
		return fmt.Sprintf(`(() => {
			const el = document.querySelector(%s);
			if (!el) return false;
			const r = el.getBoundingClientRect();
			const st = window.getComputedStyle(el);
			return r.width > 0 && r.height > 0 && st.visibility !== 'hidden' && st.display !== 'none';
		})()`, sel)
	case CondElementClickable:
		return fmt.Sprintf(`(() => {
			const el = document.querySelector(%s);
			if (!el || el.disabled) return false;
			const r = el.getBoundingClientRect();
			const st = window.getComputedStyle(el);
			return r.width > 0 && r.height > 0 && st.visibility !== 'hidden' &&
				st.display !== 'none' && st.pointerEvents !== 'none';
		})()`, sel)
	case CondTextAppears:
		return fmt.Sprintf(`(document.body ? document.body.innerText : '').toLowerCase().includes(%s)`,
			jsString(strings.ToLower(c.Text)))
	}
	return "false"
}

// matchesURL evaluates URL conditions against a live location.
func (c Condition) matchesURL(current string) bool {
	switch c.Kind {
	case CondURLContains:
		return strings.Contains(strings.ToLower(current), strings.ToLower(c.URLPart))
	case CondURLChanges:
		return current != "" && current != c.FromURL
	}
	return false
}

// timeoutError produces the classified error for an expired wait.
func (c Condition) timeoutError(timeoutDesc string) *console.NavError {
	ne := console.NewNavError(c.failClass, fmt.Sprintf("condition %s not met", c.Kind), nil)
	return ne.WithDetail(c.describe() + " within " + timeoutDesc)
}

func (c Condition) describe() string {
	switch {
	case c.Selector != "":
		return fmt.Sprintf("%s %q", c.Kind, c.Selector)
	case c.Text != "":
		return fmt.Sprintf("%s %q", c.Kind, c.Text)
	case c.URLPart != "":
		return fmt.Sprintf("%s %q", c.Kind, c.URLPart)
	default:
		return string(c.Kind)
	}
}

// jsString renders a Go string as a JavaScript string literal. strconv.Quote
// escapes quotes and control characters in a form JS accepts.
func jsString(s string) string {
	return strconv.Quote(s)
}
