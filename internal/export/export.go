// Package export writes grid views to spreadsheet files.
package export

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"github.com/zakazai/ulin-grid/internal/grid"
	"github.com/zakazai/ulin-grid/internal/types"
)

const maxSheetName = 31

// SheetName makes a table name acceptable as a worksheet name.
func SheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	name = strings.Trim(name, "'")
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	if name == "" {
		return "Sheet1"
	}
	return name
}

// WriteXLSX writes one worksheet: a header row of column names, then one
// row per view in the given order. NUMBER cells are written as numbers and
// null cells are left blank.
func WriteXLSX(w io.Writer, sheet string, cols types.Columns, rows []types.RowView) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet = SheetName(sheet)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("open sheet: %w", err)
	}

	cols = cols.Sorted()
	header := make([]interface{}, len(cols))
	for i, c := range cols {
		header[i] = c.Name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i, r := range rows {
		cells := make([]interface{}, len(cols))
		for j, c := range cols {
			cells[j] = cellValue(r, c.ID)
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(axis, cells); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	_, err = f.WriteTo(w)
	return err
}

func cellValue(r types.RowView, columnID string) interface{} {
	v, ok := r.Get(columnID)
	if !ok || v.IsNull() {
		return nil
	}
	if n, ok := v.Number(); ok {
		return n
	}
	s, _ := v.Text()
	return s
}

// View loads every remaining page of the controller's current view and
// writes it, filtered and sorted as displayed.
func View(ctx context.Context, c *grid.Controller, w io.Writer) (int, error) {
	for c.HasMore() {
		more, err := c.FetchNextPage(ctx)
		if err != nil {
			return 0, err
		}
		if !more {
			break
		}
	}
	t := c.Table()
	rows := c.Rows()
	return len(rows), WriteXLSX(w, t.Name, t.Columns, rows)
}
