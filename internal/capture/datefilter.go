// internal/capture/datefilter.go

package capture

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/veritas9k/consnap-cli/internal/console"
)

// DateFilter narrows a list view to rows whose date column falls inside the
// window. The filter is applied in the page itself so the screenshot shows
// exactly what matched and the summary banner the reviewer expects.
type DateFilter struct {
	From time.Time
	To   time.Time
	// ColumnHint names the date column when autodetection would be
	// ambiguous, e.g. "Creation time" on a page that also shows
	// "Last modified".
	ColumnHint string
}

// Describe renders the filter for filenames, sidecars, and log lines.
func (f *DateFilter) Describe() string {
	layout := "2006-01-02"
	hint := ""
	if f.ColumnHint != "" {
		hint = " on " + f.ColumnHint
	}
	return fmt.Sprintf("%s to %s%s", f.From.Format(layout), f.To.Format(layout), hint)
}

// filterResult is what the in-page script reports back.
type filterResult struct {
	Matched int    `json:"matched"`
	Total   int    `json:"total"`
	Column  string `json:"column"`
}

// dateFilterScript locates the date column, hides rows outside the window,
// highlights the ones inside it, and injects a match-count banner above the
// table. Returns {matched, total, column}; column is "" when no header looks
// like a date, which the Go side turns into a hard failure rather than
// capturing an unfiltered page that claims to be filtered.
const dateFilterScript = `((fromMs, toMs, hint, banner) => {
	const table = document.querySelector('table');
	if (!table) return {matched: 0, total: 0, column: ''};
	const headers = Array.from(table.querySelectorAll('th'));
	const datePattern = /date|created|creation|modified|updated|time|launched/i;
	let col = -1, colName = '';
	for (let i = 0; i < headers.length; i++) {
		const label = (headers[i].innerText || '').trim();
		if (hint !== '') {
			if (label.toLowerCase().includes(hint.toLowerCase())) { col = i; colName = label; break; }
		} else if (datePattern.test(label)) {
			col = i; colName = label; break;
		}
	}
	if (col < 0) return {matched: 0, total: 0, column: ''};
	let matched = 0, total = 0;
	for (const row of table.querySelectorAll('tbody tr')) {
		const cells = row.querySelectorAll('td, th');
		if (cells.length <= col) continue;
		total++;
		const ts = Date.parse((cells[col].innerText || '').trim());
		if (!isNaN(ts) && ts >= fromMs && ts <= toMs) {
			matched++;
			row.style.outline = '2px solid #0972d3';
			row.style.display = '';
		} else {
			row.style.display = 'none';
		}
	}
	const old = document.getElementById('consnap-filter-banner');
	if (old) old.remove();
	const div = document.createElement('div');
	div.id = 'consnap-filter-banner';
	div.style.cssText = 'padding:8px 12px;margin:4px 0;background:#f2f8fd;' +
		'border:1px solid #0972d3;border-radius:4px;font-weight:bold;';
	div.innerText = matched + ' / ' + total + ' resources match ' + banner +
		' (column: ' + colName + ')';
	table.parentElement.insertBefore(div, table);
	return {matched: matched, total: total, column: colName};
})(%s, %s, %s, %s)`

// applyDateFilter runs the filter inside the page. Fails fast with
// ClassNoDateColumnFound when no column can carry the filter.
func (c *Capturer) applyDateFilter(tabCtx context.Context, f *DateFilter) (*filterResult, error) {
	script := fmt.Sprintf(dateFilterScript,
		strconv.FormatInt(f.From.UnixMilli(), 10),
		strconv.FormatInt(f.To.UnixMilli(), 10),
		jsQuote(f.ColumnHint),
		jsQuote(f.Describe()))

	var res filterResult
	if err := c.exec.Evaluate(tabCtx, script, &res); err != nil {
		return nil, fmt.Errorf("date filter injection failed: %w", err)
	}
	if res.Column == "" {
		return nil, console.ErrNoDateColumnFound.WithDetail(
			"no header matched" + columnHintDetail(f.ColumnHint))
	}
	return &res, nil
}

func columnHintDetail(hint string) string {
	if hint == "" {
		return " the date/created/modified pattern"
	}
	return " hint " + strconv.Quote(hint)
}

func jsQuote(s string) string {
	return strconv.Quote(s)
}
