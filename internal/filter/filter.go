// Package filter evaluates per-column predicates against logical row views.
//
// The same rules are available in two forms: Matches evaluates them row by
// row in memory, Compile turns them into a SQL predicate over the persisted
// cell table. Both resolve filters through Resolve, so a filter that is a
// no-op in one form is a no-op in the other.
package filter

import (
	"math"
	"strconv"
	"strings"

	"github.com/zakazai/ulin-grid/internal/cell"
	"github.com/zakazai/ulin-grid/internal/types"
)

// Resolved is a filter that survived resolution against the current columns.
type Resolved struct {
	Column types.Column
	Type   types.FilterType
	Folded string  // case-folded operand, TEXT columns
	Number float64 // parsed operand, NUMBER columns
}

// Resolve drops every filter that must not exclude rows: empty type or value,
// a column that no longer exists, an operator that does not apply to the
// column type, or a NUMBER operand that does not parse.
func Resolve(filters []types.Filter, cols types.Columns) []Resolved {
	out := make([]Resolved, 0, len(filters))
	for _, f := range filters {
		if f.Type == "" || f.Value == "" {
			continue
		}
		col, ok := cols.Lookup(f.ColumnID)
		if !ok {
			continue
		}
		switch col.Type {
		case types.ColumnText:
			switch f.Type {
			case types.FilterEquals, types.FilterNotEquals, types.FilterContains, types.FilterNotContains:
				out = append(out, Resolved{Column: col, Type: f.Type, Folded: cell.Fold(f.Value)})
			}
		case types.ColumnNumber:
			switch f.Type {
			case types.FilterEquals, types.FilterNotEquals, types.FilterGreaterThan, types.FilterLessThan:
				n, err := strconv.ParseFloat(strings.TrimSpace(f.Value), 64)
				if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
					continue
				}
				out = append(out, Resolved{Column: col, Type: f.Type, Number: n})
			}
		}
	}
	return out
}

// Matches reports whether row satisfies every filter.
func Matches(row types.RowView, filters []types.Filter, cols types.Columns) bool {
	return MatchesResolved(row, Resolve(filters, cols))
}

// MatchesResolved is Matches for filters already resolved once per query.
func MatchesResolved(row types.RowView, resolved []Resolved) bool {
	for _, r := range resolved {
		if !r.match(row) {
			return false
		}
	}
	return true
}

func (r Resolved) match(row types.RowView) bool {
	v, ok := row.Get(r.Column.ID)
	if !ok {
		v = types.Null(r.Column.Type)
	}

	if r.Column.Type == types.ColumnText {
		s := cell.Fold(v.Display())
		switch r.Type {
		case types.FilterEquals:
			return s == r.Folded
		case types.FilterNotEquals:
			return s != r.Folded
		case types.FilterContains:
			return strings.Contains(s, r.Folded)
		case types.FilterNotContains:
			return !strings.Contains(s, r.Folded)
		}
		return true
	}

	n, ok := v.Number()
	if !ok {
		// a null number only satisfies notEquals
		return r.Type == types.FilterNotEquals
	}
	switch r.Type {
	case types.FilterEquals:
		return n == r.Number
	case types.FilterNotEquals:
		return n != r.Number
	case types.FilterGreaterThan:
		return n > r.Number
	case types.FilterLessThan:
		return n < r.Number
	}
	return true
}

// Search reports whether any value of row contains term, case-insensitively.
// An empty term matches every row.
func Search(row types.RowView, term string) bool {
	if term == "" {
		return true
	}
	folded := cell.Fold(term)
	for _, v := range row.Values {
		if strings.Contains(cell.Fold(v.Display()), folded) {
			return true
		}
	}
	return false
}

// Hit reports whether a single value is a search hit. Used for highlighting.
func Hit(v types.Value, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(cell.Fold(v.Display()), cell.Fold(term))
}
