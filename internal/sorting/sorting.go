// Package sorting orders logical row views by prioritized (column, direction)
// keys. Sorting produces a view; row order values are never touched.
package sorting

import (
	"sort"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/zakazai/ulin-grid/internal/types"
)

// Comparator compares rows under sort keys. TEXT values use a case-insensitive
// collator for the configured locale. Safe for concurrent use.
type Comparator struct {
	mu   sync.Mutex
	coll *collate.Collator
}

// New creates a comparator for the given locale tag ("und" for root order).
func New(locale string) *Comparator {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	return &Comparator{coll: collate.New(tag, collate.IgnoreCase)}
}

// Normalize keeps the first key per column and fills an empty direction with asc.
func Normalize(keys []types.SortKey) []types.SortKey {
	seen := make(map[string]bool, len(keys))
	out := make([]types.SortKey, 0, len(keys))
	for _, k := range keys {
		if k.ColumnID == "" || seen[k.ColumnID] {
			continue
		}
		seen[k.ColumnID] = true
		if k.Direction != types.Desc {
			k.Direction = types.Asc
		}
		out = append(out, k)
	}
	return out
}

type resolvedKey struct {
	column types.Column
	desc   bool
}

func resolve(keys []types.SortKey, cols types.Columns) []resolvedKey {
	out := make([]resolvedKey, 0, len(keys))
	for _, k := range Normalize(keys) {
		col, ok := cols.Lookup(k.ColumnID)
		if !ok {
			continue
		}
		out = append(out, resolvedKey{column: col, desc: k.Direction == types.Desc})
	}
	return out
}

// Compare returns -1, 0 or 1. The first key whose values differ decides;
// desc inverts that key. Rows equal on every key compare 0.
func (c *Comparator) Compare(a, b types.RowView, keys []types.SortKey, cols types.Columns) int {
	rk := resolve(keys, cols)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compareResolved(a, b, rk)
}

func (c *Comparator) compareResolved(a, b types.RowView, keys []resolvedKey) int {
	for _, k := range keys {
		r := c.compareValue(k.column, a, b)
		if r == 0 {
			continue
		}
		if k.desc {
			return -r
		}
		return r
	}
	return 0
}

// compareValue treats null text as "" and null number as 0.
func (c *Comparator) compareValue(col types.Column, a, b types.RowView) int {
	va, _ := a.Get(col.ID)
	vb, _ := b.Get(col.ID)
	if col.Type == types.ColumnNumber {
		na, _ := va.Number()
		nb, _ := vb.Number()
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	}
	ta, _ := va.Text()
	tb, _ := vb.Text()
	return c.coll.CompareString(ta, tb)
}

// Sort orders rows in place. The sort is stable: rows equal under keys keep
// their relative input order.
func (c *Comparator) Sort(rows []types.RowView, keys []types.SortKey, cols types.Columns) {
	rk := resolve(keys, cols)
	if len(rk) == 0 || len(rows) < 2 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	sort.SliceStable(rows, func(i, j int) bool {
		return c.compareResolved(rows[i], rows[j], rk) < 0
	})
}
