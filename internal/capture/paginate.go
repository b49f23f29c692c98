// internal/capture/paginate.go

package capture

import (
	"context"
	"fmt"
	"time"
)

// PagerKind is which pagination control the page exposes, if any.
type PagerKind string

const (
	PagerNone     PagerKind = "none"
	PagerNext     PagerKind = "next_button"
	PagerLoadMore PagerKind = "load_more"
)

// detectPagerScript finds an enabled pagination control. Console list views
// use either a next-arrow pager or an incremental "Load more" button; both
// are located by the usual landmarks first and by visible text as a fallback.
const detectPagerScript = `(() => {
	const enabled = (el) => el && !el.disabled &&
		el.getAttribute('aria-disabled') !== 'true' &&
		el.offsetParent !== null;
	const nextSelectors = [
		'button[aria-label="Next page"]',
		'button[aria-label*="Next"]',
		'[data-testid="pagination-next"]',
		'a[rel="next"]',
	];
	for (const sel of nextSelectors) {
		const el = document.querySelector(sel);
		if (enabled(el)) return 'next_button';
	}
	for (const el of document.querySelectorAll('button, a[role="button"]')) {
		const text = (el.innerText || '').trim().toLowerCase();
		if ((text === 'load more' || text === 'view more' || text === 'show more') && enabled(el)) {
			return 'load_more';
		}
	}
	return 'none';
})()`

// advancePagerScript clicks the control found by detectPagerScript. Returns
// false when the control has gone away or been disabled, which is how the
// console signals the last page.
const advancePagerScript = `(() => {
	const enabled = (el) => el && !el.disabled &&
		el.getAttribute('aria-disabled') !== 'true' &&
		el.offsetParent !== null;
	const nextSelectors = [
		'button[aria-label="Next page"]',
		'button[aria-label*="Next"]',
		'[data-testid="pagination-next"]',
		'a[rel="next"]',
	];
	for (const sel of nextSelectors) {
		const el = document.querySelector(sel);
		if (enabled(el)) { el.click(); return true; }
	}
	for (const el of document.querySelectorAll('button, a[role="button"]')) {
		const text = (el.innerText || '').trim().toLowerCase();
		if ((text === 'load more' || text === 'view more' || text === 'show more') && enabled(el)) {
			el.click();
			return true;
		}
	}
	return false;
})()`

// contentSignatureScript fingerprints the visible list content. Two equal
// signatures in a row mean the virtualized table has stopped re-rendering
// and the page is safe to screenshot.
const contentSignatureScript = `(() => {
	const rows = document.querySelectorAll('tr, [role="row"]');
	let sig = rows.length + ':';
	let i = 0;
	for (const row of rows) {
		if (i++ >= 40) break;
		sig += (row.innerText || '').slice(0, 120) + '|';
	}
	let hash = 0;
	for (let j = 0; j < sig.length; j++) {
		hash = ((hash << 5) - hash + sig.charCodeAt(j)) | 0;
	}
	return String(hash) + ':' + rows.length;
})()`

// countRowsScript counts visible data rows, excluding header rows.
const countRowsScript = `(() => {
	let n = 0;
	for (const row of document.querySelectorAll('tbody tr, [role="row"]')) {
		if (row.querySelector('th') === null &&
			row.getAttribute('aria-rowindex') !== '1' &&
			row.offsetParent !== null) n++;
	}
	return n;
})()`

func (c *Capturer) detectPager(tabCtx context.Context) (PagerKind, error) {
	var kind string
	if err := c.exec.Evaluate(tabCtx, detectPagerScript, &kind); err != nil {
		return PagerNone, fmt.Errorf("pager detection failed: %w", err)
	}
	return PagerKind(kind), nil
}

// advancePage clicks the pager and waits for the content signature to move
// off the previous page's value. A signature that never changes means the
// click landed on the last page's disabled control.
func (c *Capturer) advancePage(tabCtx context.Context, prevSig string) (bool, error) {
	var clicked bool
	if err := c.exec.Evaluate(tabCtx, advancePagerScript, &clicked); err != nil {
		return false, fmt.Errorf("pager click failed: %w", err)
	}
	if !clicked {
		return false, nil
	}
	deadline := time.Now().Add(c.cfg.StabilizeWait * time.Duration(c.cfg.StabilizeRetries))
	for time.Now().Before(deadline) {
		select {
		case <-tabCtx.Done():
			return false, tabCtx.Err()
		case <-time.After(c.cfg.StabilizeWait):
		}
		sig, err := c.contentSignature(tabCtx)
		if err != nil {
			return false, err
		}
		if sig != prevSig {
			return true, nil
		}
	}
	return false, nil
}

func (c *Capturer) contentSignature(tabCtx context.Context) (string, error) {
	var sig string
	if err := c.exec.Evaluate(tabCtx, contentSignatureScript, &sig); err != nil {
		return "", fmt.Errorf("content signature failed: %w", err)
	}
	return sig, nil
}

// stabilize waits for two successive identical content signatures before
// returning the settled signature. Gives up after the configured retries and
// returns the latest signature; a slightly unsettled screenshot beats none.
func (c *Capturer) stabilize(tabCtx context.Context) (string, error) {
	prev, err := c.contentSignature(tabCtx)
	if err != nil {
		return "", err
	}
	for i := 0; i < c.cfg.StabilizeRetries; i++ {
		select {
		case <-tabCtx.Done():
			return "", tabCtx.Err()
		case <-time.After(c.cfg.StabilizeWait):
		}
		sig, err := c.contentSignature(tabCtx)
		if err != nil {
			return "", err
		}
		if sig == prev {
			return sig, nil
		}
		prev = sig
	}
	return prev, nil
}

func (c *Capturer) countRows(tabCtx context.Context) (int, error) {
	var n int
	if err := c.exec.Evaluate(tabCtx, countRowsScript, &n); err != nil {
		return 0, fmt.Errorf("row count failed: %w", err)
	}
	return n, nil
}
