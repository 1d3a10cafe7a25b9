// Package cell converts raw user input into typed cell values and projects
// persisted rows into the logical row view.
package cell

import (
	"math"
	"strconv"
	"strings"

	"github.com/zakazai/ulin-grid/internal/types"
)

// Normalize turns a raw input string into the value written for a column of
// type t. A NUMBER input that does not parse is rejected before any write.
func Normalize(t types.ColumnType, raw string) (types.Value, error) {
	switch t {
	case types.ColumnText:
		return types.Text(raw), nil
	case types.ColumnNumber:
		s := strings.TrimSpace(raw)
		if s == "" {
			return types.Null(types.ColumnNumber), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return types.Value{}, types.Validationf("invalid number format: %q", raw)
		}
		return types.Number(f), nil
	}
	return types.Value{}, types.Validationf("unknown column type %q", t)
}

// Empty is the value a back-filled cell starts with.
func Empty(t types.ColumnType) types.Value {
	return types.Null(t)
}

// Project builds the logical row view of a row from its cells.
func Project(row types.Row) types.RowView {
	values := make(map[string]types.Value, len(row.Cells))
	for _, c := range row.Cells {
		values[c.ColumnID] = c.Value
	}
	return types.RowView{RowID: row.ID, Order: row.Order, Values: values}
}

// Fold is the case folding shared by every case-insensitive comparison, in
// memory and in persisted form.
func Fold(s string) string {
	return strings.ToLower(s)
}
