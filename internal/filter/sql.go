package filter

import (
	"strings"

	"github.com/zakazai/ulin-grid/internal/cell"
	"github.com/zakazai/ulin-grid/internal/types"
)

// Names of the persisted schema the compiled predicates refer to. The outer
// query must select from RowsTable without an alias.
const (
	RowsTable    = "grid_rows"
	CellsTable   = "grid_cells"
	FoldedColumn = "folded" // cell.Fold of the cell's display value, never null
)

// Predicate is a SQL boolean expression with positional arguments.
type Predicate struct {
	SQL  string
	Args []interface{}
}

// Empty reports whether the predicate selects every row.
func (p Predicate) Empty() bool { return p.SQL == "" }

// And joins predicates, skipping empty ones.
func And(preds ...Predicate) Predicate {
	var parts []string
	var args []interface{}
	for _, p := range preds {
		if p.Empty() {
			continue
		}
		parts = append(parts, p.SQL)
		args = append(args, p.Args...)
	}
	if len(parts) == 0 {
		return Predicate{}
	}
	return Predicate{SQL: strings.Join(parts, " AND "), Args: args}
}

// Compile translates filters into a predicate over RowsTable with the same
// semantics as Matches.
func Compile(filters []types.Filter, cols types.Columns) Predicate {
	resolved := Resolve(filters, cols)
	preds := make([]Predicate, 0, len(resolved))
	for _, r := range resolved {
		preds = append(preds, r.compile())
	}
	return And(preds...)
}

func (r Resolved) compile() Predicate {
	var cond string
	var arg interface{}
	if r.Column.Type == types.ColumnText {
		arg = r.Folded
		switch r.Type {
		case types.FilterEquals:
			cond = "c.folded = ?"
		case types.FilterNotEquals:
			cond = "c.folded <> ?"
		case types.FilterContains:
			cond = "instr(c.folded, ?) > 0"
		case types.FilterNotContains:
			cond = "instr(c.folded, ?) = 0"
		}
	} else {
		arg = r.Number
		switch r.Type {
		case types.FilterEquals:
			cond = "c.number_value = ?"
		case types.FilterNotEquals:
			cond = "(c.number_value IS NULL OR c.number_value <> ?)"
		case types.FilterGreaterThan:
			cond = "c.number_value > ?"
		case types.FilterLessThan:
			cond = "c.number_value < ?"
		}
	}
	return Predicate{
		SQL: "EXISTS (SELECT 1 FROM " + CellsTable + " c WHERE c.row_id = " + RowsTable +
			".id AND c.column_id = ? AND " + cond + ")",
		Args: []interface{}{r.Column.ID, arg},
	}
}

// CompileSearch matches rows with any cell whose display contains term.
func CompileSearch(term string) Predicate {
	if term == "" {
		return Predicate{}
	}
	return Predicate{
		SQL: "EXISTS (SELECT 1 FROM " + CellsTable + " s WHERE s.row_id = " + RowsTable +
			".id AND instr(s.folded, ?) > 0)",
		Args: []interface{}{cell.Fold(term)},
	}
}
