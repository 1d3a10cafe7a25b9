package shell

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/zakazai/ulin-grid/internal/parser"
	"github.com/zakazai/ulin-grid/internal/types"
)

func printResult(out io.Writer, result interface{}) {
	switch r := result.(type) {
	case nil:
	case *parser.RowsResult:
		printRows(out, r)
	case *parser.MatchesResult:
		printMatches(out, r)
	case types.Columns:
		printColumns(out, r)
	case []types.Workspace:
		printWorkspaces(out, r)
	default:
		fmt.Fprintln(out, r)
	}
}

// printTable formats rows under a header, padding every column to its
// widest value.
func printTable(out io.Writer, header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range rows {
		for i, v := range row {
			if n := utf8.RuneCountInString(v); n > widths[i] {
				widths[i] = n
			}
		}
	}

	line := func(cells []string) {
		for i, v := range cells {
			if i > 0 {
				fmt.Fprint(out, " | ")
			}
			fmt.Fprint(out, v, strings.Repeat(" ", widths[i]-utf8.RuneCountInString(v)))
		}
		fmt.Fprintln(out)
	}

	line(header)
	for i, w := range widths {
		if i > 0 {
			fmt.Fprint(out, "-+-")
		}
		fmt.Fprint(out, strings.Repeat("-", w))
	}
	fmt.Fprintln(out)
	for _, row := range rows {
		line(row)
	}
}

func printRows(out io.Writer, r *parser.RowsResult) {
	if len(r.Rows) == 0 {
		fmt.Fprintln(out, "Empty result set")
		return
	}
	cols := r.Columns.Sorted()
	header := []string{"#"}
	for _, c := range cols {
		header = append(header, c.Name)
	}

	rows := make([][]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		cells := []string{strconv.Itoa(row.Order)}
		for _, c := range cols {
			v, ok := row.Get(c.ID)
			switch {
			case !ok || v.IsNull():
				cells = append(cells, "NULL")
			default:
				cells = append(cells, v.Display())
			}
		}
		rows = append(rows, cells)
	}
	printTable(out, header, rows)

	more := ""
	if r.HasMore {
		more = ", more available"
	}
	fmt.Fprintf(out, "(%d of %d loaded, %d total%s)\n", len(r.Rows), r.Loaded, r.Total, more)
}

func printMatches(out io.Writer, r *parser.MatchesResult) {
	if len(r.Hits) == 0 {
		fmt.Fprintln(out, "No matches")
		return
	}
	rows := make([][]string, 0, len(r.Hits))
	for _, h := range r.Hits {
		name := h.ColumnID
		if c, ok := r.Columns.Lookup(h.ColumnID); ok {
			name = c.Name
		}
		rows = append(rows, []string{strconv.Itoa(h.RowIndex), name})
	}
	printTable(out, []string{"#", "Column"}, rows)
}

func printColumns(out io.Writer, cols types.Columns) {
	rows := make([][]string, 0, len(cols))
	for _, c := range cols.Sorted() {
		rows = append(rows, []string{strconv.Itoa(c.Order), c.Name, string(c.Type), c.ID})
	}
	printTable(out, []string{"Order", "Name", "Type", "ID"}, rows)
}

func printWorkspaces(out io.Writer, ws []types.Workspace) {
	if len(ws) == 0 {
		fmt.Fprintln(out, "No workspaces")
		return
	}
	var rows [][]string
	for _, w := range ws {
		if len(w.Tables) == 0 {
			rows = append(rows, []string{w.Name, "", "", ""})
		}
		for _, t := range w.Tables {
			rows = append(rows, []string{w.Name, t.Name, strconv.Itoa(t.RowCount), t.ID})
		}
	}
	printTable(out, []string{"Workspace", "Table", "Rows", "ID"}, rows)
}
