package parser

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/zakazai/ulin-grid/internal/edit"
	"github.com/zakazai/ulin-grid/internal/export"
	"github.com/zakazai/ulin-grid/internal/grid"
	"github.com/zakazai/ulin-grid/internal/storage"
	"github.com/zakazai/ulin-grid/internal/types"
)

// Session is what statements run against: a store and, once a table has
// been opened with USE, its grid.
type Session interface {
	Store() storage.Storage
	// Grid returns the open grid, or a validation error when no table is
	// open.
	Grid() (*grid.Controller, error)
	Use(ctx context.Context, tableID string) (types.Table, error)
}

type Statement interface {
	Execute(ctx context.Context, s Session) (interface{}, error)
}

// RowsResult is a window of the grid view.
type RowsResult struct {
	Columns types.Columns
	Rows    []types.RowView
	Loaded  int
	Total   int
	HasMore bool
}

// MatchesResult lists the search hits among the loaded rows.
type MatchesResult struct {
	Columns types.Columns
	Hits    []grid.Coord
}

type FilterStatement struct {
	Column string
	Type   types.FilterType
	Value  string
	Clear  bool
}

type SortTerm struct {
	Column    string
	Direction types.Direction
}

type SortStatement struct {
	Keys []SortTerm
}

type SearchStatement struct {
	Term string
}

// ClearStatement resets FILTERS, SORT or SEARCH, or all three when What is
// empty.
type ClearStatement struct {
	What string
}

type ShowStatement struct {
	First int
	Count int
}

type NextStatement struct{}

type RefreshStatement struct{}

// SetStatement writes a cell. Row is the row index shown by SHOW.
type SetStatement struct {
	Row    int
	Column string
	Value  string
}

type AddColumnStatement struct {
	Name string
	Type types.ColumnType
}

type AddRowStatement struct{}

type FakeStatement struct {
	Count int
}

type ColumnsStatement struct{}

type MatchesStatement struct{}

type WorkspacesStatement struct{}

type CreateWorkspaceStatement struct {
	Name string
}

type CreateTableStatement struct {
	Name      string
	Workspace string
}

type UseStatement struct {
	Table string
}

type ExportStatement struct {
	Path string
}

type HelpStatement struct{}

type ExitStatement struct{}

// resolveColumn finds a column by name, then by id.
func resolveColumn(g *grid.Controller, ref string) (types.Column, error) {
	cols := g.Table().Columns
	if col, ok := cols.ByName(ref); ok {
		return col, nil
	}
	if col, ok := cols.Lookup(ref); ok {
		return col, nil
	}
	return types.Column{}, types.Validationf("unknown column %q", ref)
}

func summary(g *grid.Controller) string {
	return fmt.Sprintf("%d rows match, %d loaded", g.TotalCount(), g.Len())
}

func (s *FilterStatement) Execute(ctx context.Context, sess Session) (interface{}, error) {
	g, err := sess.Grid()
	if err != nil {
		return nil, err
	}
	col, err := resolveColumn(g, s.Column)
	if err != nil {
		return nil, err
	}

	var filters []types.Filter
	for _, f := range g.Query().Filters {
		if f.ColumnID != col.ID {
			filters = append(filters, f)
		}
	}
	if !s.Clear {
		filters = append(filters, types.Filter{ColumnID: col.ID, Type: s.Type, Value: s.Value})
	}
	g.SetFilters(filters)
	if err := g.Flush(ctx); err != nil {
		return nil, err
	}
	return summary(g), nil
}

func (s *SortStatement) Execute(ctx context.Context, sess Session) (interface{}, error) {
	g, err := sess.Grid()
	if err != nil {
		return nil, err
	}
	keys := make([]types.SortKey, 0, len(s.Keys))
	for _, k := range s.Keys {
		col, err := resolveColumn(g, k.Column)
		if err != nil {
			return nil, err
		}
		keys = append(keys, types.SortKey{ColumnID: col.ID, Direction: k.Direction})
	}
	g.SetSort(keys)
	if err := g.Flush(ctx); err != nil {
		return nil, err
	}
	return summary(g), nil
}

func (s *SearchStatement) Execute(ctx context.Context, sess Session) (interface{}, error) {
	g, err := sess.Grid()
	if err != nil {
		return nil, err
	}
	g.SetSearchTerm(s.Term)
	if err := g.Flush(ctx); err != nil {
		return nil, err
	}
	return summary(g), nil
}

func (s *ClearStatement) Execute(ctx context.Context, sess Session) (interface{}, error) {
	g, err := sess.Grid()
	if err != nil {
		return nil, err
	}
	if s.What == "" || s.What == "FILTERS" {
		g.SetFilters(nil)
	}
	if s.What == "" || s.What == "SORT" {
		g.SetSort(nil)
	}
	if s.What == "" || s.What == "SEARCH" {
		g.SetSearchTerm("")
	}
	if err := g.Flush(ctx); err != nil {
		return nil, err
	}
	return summary(g), nil
}

func (s *ShowStatement) Execute(ctx context.Context, sess Session) (interface{}, error) {
	g, err := sess.Grid()
	if err != nil {
		return nil, err
	}
	last := s.First + s.Count - 1
	for g.Len() <= last && g.HasMore() {
		more, err := g.FetchNextPage(ctx)
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
	}
	rows, err := g.Scroll(ctx, s.First, last)
	if err != nil {
		return nil, err
	}
	return rowsResult(g, rows), nil
}

func rowsResult(g *grid.Controller, rows []types.RowView) *RowsResult {
	return &RowsResult{
		Columns: g.Table().Columns,
		Rows:    rows,
		Loaded:  g.Len(),
		Total:   g.TotalCount(),
		HasMore: g.HasMore(),
	}
}

func (s *NextStatement) Execute(ctx context.Context, sess Session) (interface{}, error) {
	g, err := sess.Grid()
	if err != nil {
		return nil, err
	}
	if !g.HasMore() {
		return "no more rows", nil
	}
	if _, err := g.FetchNextPage(ctx); err != nil {
		return nil, err
	}
	return summary(g), nil
}

func (s *RefreshStatement) Execute(ctx context.Context, sess Session) (interface{}, error) {
	g, err := sess.Grid()
	if err != nil {
		return nil, err
	}
	if err := g.Invalidate(ctx); err != nil {
		return nil, err
	}
	return summary(g), nil
}

func (s *SetStatement) Execute(ctx context.Context, sess Session) (interface{}, error) {
	g, err := sess.Grid()
	if err != nil {
		return nil, err
	}
	col, err := resolveColumn(g, s.Column)
	if err != nil {
		return nil, err
	}

	status, err := g.UpdateCell(ctx, s.Row, col.ID, s.Value)
	if types.KindOf(err) == types.KindNotFound {
		// the row is outside the loaded view; write through the store
		table := g.Table()
		if err := sess.Store().UpdateCell(ctx, table.ID, s.Row, col.ID, s.Value); err != nil {
			return nil, err
		}
		return "updated", g.Invalidate(ctx)
	}
	if err != nil {
		return nil, err
	}
	if status == edit.Error {
		_, editErr := g.EditState(s.Row, col.ID)
		return nil, editErr
	}
	return status.String(), nil
}

func (s *AddColumnStatement) Execute(ctx context.Context, sess Session) (interface{}, error) {
	g, err := sess.Grid()
	if err != nil {
		return nil, err
	}
	col, err := g.AddColumn(ctx, s.Name, s.Type)
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("added column %s (%s)", col.Name, col.Type), nil
}

func (s *AddRowStatement) Execute(ctx context.Context, sess Session) (interface{}, error) {
	g, err := sess.Grid()
	if err != nil {
		return nil, err
	}
	row, err := g.AddRow(ctx)
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("added row %d", row.Order), nil
}

func (s *FakeStatement) Execute(ctx context.Context, sess Session) (interface{}, error) {
	g, err := sess.Grid()
	if err != nil {
		return nil, err
	}
	n, err := g.AddFakeRows(ctx, s.Count)
	if err != nil {
		return nil, fmt.Errorf("added %d rows: %w", n, err)
	}
	return fmt.Sprintf("added %d rows", n), nil
}

func (s *ColumnsStatement) Execute(ctx context.Context, sess Session) (interface{}, error) {
	g, err := sess.Grid()
	if err != nil {
		return nil, err
	}
	return g.Table().Columns, nil
}

func (s *MatchesStatement) Execute(ctx context.Context, sess Session) (interface{}, error) {
	g, err := sess.Grid()
	if err != nil {
		return nil, err
	}
	return &MatchesResult{Columns: g.Table().Columns, Hits: g.Matches()}, nil
}

func (s *WorkspacesStatement) Execute(ctx context.Context, sess Session) (interface{}, error) {
	return sess.Store().ListWorkspaces(ctx)
}

func (s *CreateWorkspaceStatement) Execute(ctx context.Context, sess Session) (interface{}, error) {
	ws, err := sess.Store().CreateWorkspace(ctx, s.Name)
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("created workspace %s (%s)", ws.Name, ws.ID), nil
}

func (s *CreateTableStatement) Execute(ctx context.Context, sess Session) (interface{}, error) {
	workspaces, err := sess.Store().ListWorkspaces(ctx)
	if err != nil {
		return nil, err
	}
	wsID := ""
	for _, ws := range workspaces {
		if ws.ID == s.Workspace || strings.EqualFold(ws.Name, s.Workspace) {
			wsID = ws.ID
			break
		}
	}
	if wsID == "" {
		return nil, types.NotFoundf("workspace %q not found", s.Workspace)
	}

	t, err := sess.Store().CreateDefaultTable(ctx, wsID, s.Name)
	if err != nil {
		return nil, err
	}
	if _, err := sess.Use(ctx, t.ID); err != nil {
		return nil, err
	}
	return fmt.Sprintf("created table %s (%s)", t.Name, t.ID), nil
}

func (s *UseStatement) Execute(ctx context.Context, sess Session) (interface{}, error) {
	tableID := s.Table
	workspaces, err := sess.Store().ListWorkspaces(ctx)
	if err != nil {
		return nil, err
	}
	for _, ws := range workspaces {
		for _, t := range ws.Tables {
			if strings.EqualFold(t.Name, s.Table) {
				tableID = t.ID
			}
		}
	}

	t, err := sess.Use(ctx, tableID)
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("using table %s (%d rows)", t.Name, t.RowCount), nil
}

func (s *ExportStatement) Execute(ctx context.Context, sess Session) (interface{}, error) {
	g, err := sess.Grid()
	if err != nil {
		return nil, err
	}
	f, err := os.Create(s.Path)
	if err != nil {
		return nil, err
	}
	n, err := export.View(ctx, g, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("exported %d rows to %s", n, s.Path), nil
}

// Help lists the commands.
const Help = `FILTER <column> <op> <value>   op is = != ~ !~ > <
FILTER <column> CLEAR
SORT <column> [ASC|DESC] [, ...]
SEARCH [<term>]
CLEAR [FILTERS|SORT|SEARCH]
SHOW [<first> [<count>]]
NEXT | REFRESH
SET <row> <column> = <value>
ADD COLUMN <name> [TEXT|NUMBER] | ADD ROW
FAKE <count>
COLUMNS | MATCHES
WORKSPACES | CREATE WORKSPACE <name> | CREATE TABLE <name> IN <workspace>
USE <table>
EXPORT <file.xlsx>
EXIT`

func (s *HelpStatement) Execute(ctx context.Context, sess Session) (interface{}, error) {
	return Help, nil
}

func (s *ExitStatement) Execute(ctx context.Context, sess Session) (interface{}, error) {
	return nil, nil
}
