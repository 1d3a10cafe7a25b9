package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zakazai/ulin-grid/internal/cell"
	"github.com/zakazai/ulin-grid/internal/query"
	"github.com/zakazai/ulin-grid/internal/sorting"
	"github.com/zakazai/ulin-grid/internal/types"
)

// Reader reads table metadata and plain row pages.
type Reader interface {
	GetTableByID(ctx context.Context, tableID string) (types.Table, error)
	// GetRows pages through rows ascending by order.
	GetRows(ctx context.Context, tableID string, limit int, cursor string) (types.RowPage, error)
}

// QueryReader evaluates filters, sort and search in the store.
type QueryReader interface {
	GetRowsWithOperations(ctx context.Context, req types.PageRequest) (types.RowPage, error)
}

// Writer mutates tables. Every write keeps the cell matrix dense.
type Writer interface {
	AddColumn(ctx context.Context, tableID, name string, colType types.ColumnType) (types.Column, error)
	AddRow(ctx context.Context, tableID string) (types.Row, error)
	AddFakeRows(ctx context.Context, tableID string, count int) (int, error)
	UpdateCell(ctx context.Context, tableID string, rowIndex int, columnID, value string) error
}

// WorkspaceStore manages the workspaces that own tables.
type WorkspaceStore interface {
	CreateWorkspace(ctx context.Context, name string) (types.Workspace, error)
	ListWorkspaces(ctx context.Context) ([]types.Workspace, error)
	CreateDefaultTable(ctx context.Context, workspaceID, name string) (types.Table, error)
}

// Storage is the full persistence collaborator.
type Storage interface {
	Reader
	QueryReader
	Writer
	WorkspaceStore
	Close() error
}

// TableDump is a whole table with every row, used for snapshots.
type TableDump struct {
	Table types.Table
	Rows  []types.Row
}

// Dumper exports every table regardless of caller. It is for maintenance
// jobs and is not reachable through the API.
type Dumper interface {
	DumpTables(ctx context.Context) ([]TableDump, error)
}

// FakeBatchSize bounds the rows written per batch by AddFakeRows.
const FakeBatchSize = 1000

// Default table layout created by CreateDefaultTable.
var (
	DefaultColumns = []string{"Name", "Note"}
	DefaultRows    = 3
)

type tableData struct {
	Table types.Table
	Rows  []types.Row // ascending by Order
}

// Database is the in-memory image of every workspace and table.
type Database struct {
	Workspaces map[string]*types.Workspace
	Tables     map[string]*tableData
	mu         sync.RWMutex
}

func newDatabase() *Database {
	return &Database{
		Workspaces: make(map[string]*types.Workspace),
		Tables:     make(map[string]*tableData),
	}
}

// InMemoryStorage implements Storage over mutex-guarded maps.
type InMemoryStorage struct {
	db   *Database
	cmp  *sorting.Comparator
	fake *fakeSource
	now  func() time.Time
	log  *types.Logger
	// persist runs under the write lock after every successful mutation.
	persist func() error
}

// NewInMemoryStorage creates a new in-memory storage
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		db:   newDatabase(),
		cmp:  sorting.New("und"),
		fake: newFakeSource(0),
		now:  time.Now,
		log:  types.GlobalLogger.WithField("store", "memory"),
	}
}

// SetLocale changes the collation used for text sort keys.
func (s *InMemoryStorage) SetLocale(locale string) {
	s.cmp = sorting.New(locale)
}

func (s *InMemoryStorage) save() error {
	if s.persist == nil {
		return nil
	}
	return s.persist()
}

// authorize returns the table if the caller owns it directly or through its
// workspace. The read or write lock must be held.
func (s *InMemoryStorage) authorize(ctx context.Context, tableID string) (*tableData, error) {
	caller, err := types.CallerFrom(ctx)
	if err != nil {
		return nil, err
	}
	t, ok := s.db.Tables[tableID]
	if !ok || !s.owns(caller, t.Table) {
		return nil, types.NotFoundf("table %s not found", tableID)
	}
	return t, nil
}

func (s *InMemoryStorage) owns(caller string, t types.Table) bool {
	if t.OwnerID == caller {
		return true
	}
	ws, ok := s.db.Workspaces[t.WorkspaceID]
	return ok && ws.OwnerID == caller
}

func (t *tableData) meta() types.Table {
	out := t.Table
	out.Columns = t.Table.Columns.Sorted()
	out.RowCount = len(t.Rows)
	return out
}

func (s *InMemoryStorage) GetTableByID(ctx context.Context, tableID string) (types.Table, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	t, err := s.authorize(ctx, tableID)
	if err != nil {
		return types.Table{}, err
	}
	return t.meta(), nil
}

func (s *InMemoryStorage) GetRows(ctx context.Context, tableID string, limit int, cursor string) (types.RowPage, error) {
	return s.GetRowsWithOperations(ctx, types.PageRequest{TableID: tableID, Limit: limit, Cursor: cursor})
}

func (s *InMemoryStorage) GetRowsWithOperations(ctx context.Context, req types.PageRequest) (types.RowPage, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	t, err := s.authorize(ctx, req.TableID)
	if err != nil {
		return types.RowPage{}, err
	}
	page, err := query.Run(t.Table.Columns, t.Rows, req, s.cmp)
	if err != nil {
		return types.RowPage{}, err
	}
	for i, r := range page.Rows {
		page.Rows[i] = cloneRow(r)
	}
	return page, nil
}

func (s *InMemoryStorage) AddColumn(ctx context.Context, tableID, name string, colType types.ColumnType) (types.Column, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Column{}, types.Validationf("column name is required")
	}
	colType, err := types.ParseColumnType(string(colType))
	if err != nil {
		return types.Column{}, err
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	t, err := s.authorize(ctx, tableID)
	if err != nil {
		return types.Column{}, err
	}

	col := types.Column{
		ID:      uuid.NewString(),
		TableID: tableID,
		Name:    name,
		Type:    colType,
		Order:   t.Table.Columns.NextOrder(),
	}
	ncols := len(t.Table.Columns)
	t.Table.Columns = append(t.Table.Columns, col)
	for i := range t.Rows {
		t.Rows[i].Cells = append(t.Rows[i].Cells, newCell(t.Rows[i].ID, col, cell.Empty(col.Type)))
	}

	if err := s.save(); err != nil {
		t.Table.Columns = t.Table.Columns[:ncols]
		for i := range t.Rows {
			t.Rows[i].Cells = t.Rows[i].Cells[:ncols]
		}
		return types.Column{}, err
	}
	s.log.Debug("added column %s (%s) to table %s", col.Name, col.Type, tableID)
	return col, nil
}

func (s *InMemoryStorage) AddRow(ctx context.Context, tableID string) (types.Row, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	t, err := s.authorize(ctx, tableID)
	if err != nil {
		return types.Row{}, err
	}

	row := t.newRow(nextRowOrder(t.Rows), func(col types.Column) types.Value { return cell.Empty(col.Type) })
	t.Rows = append(t.Rows, row)

	if err := s.save(); err != nil {
		t.Rows = t.Rows[:len(t.Rows)-1]
		return types.Row{}, err
	}
	return cloneRow(row), nil
}

// AddFakeRows appends count rows of synthetic data in batches. Each batch is
// applied and persisted on its own; on failure the rows of earlier batches
// remain and their number is returned with the error. A batch whose save
// fails is dropped.
func (s *InMemoryStorage) AddFakeRows(ctx context.Context, tableID string, count int) (int, error) {
	if err := validateFakeCount(count); err != nil {
		return 0, err
	}

	created := 0
	for created < count {
		if err := ctx.Err(); err != nil {
			return created, types.TransientIO("add fake rows", err)
		}
		n := min(FakeBatchSize, count-created)
		if err := s.addFakeBatch(ctx, tableID, n); err != nil {
			return created, err
		}
		created += n
	}
	s.log.Info("added %d fake rows to table %s", created, tableID)
	return created, nil
}

func (s *InMemoryStorage) addFakeBatch(ctx context.Context, tableID string, n int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	t, err := s.authorize(ctx, tableID)
	if err != nil {
		return err
	}
	nrows := len(t.Rows)
	start := nextRowOrder(t.Rows)
	for i := 0; i < n; i++ {
		t.Rows = append(t.Rows, t.newRow(start+i, s.fake.value))
	}
	if err := s.save(); err != nil {
		t.Rows = t.Rows[:nrows]
		return err
	}
	return nil
}

func (s *InMemoryStorage) UpdateCell(ctx context.Context, tableID string, rowIndex int, columnID, value string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	t, err := s.authorize(ctx, tableID)
	if err != nil {
		return err
	}

	ri := sort.Search(len(t.Rows), func(i int) bool { return t.Rows[i].Order >= rowIndex })
	if ri == len(t.Rows) || t.Rows[ri].Order != rowIndex {
		return types.NotFoundf("row %d not found", rowIndex)
	}
	col, ok := t.Table.Columns.Lookup(columnID)
	if !ok {
		return types.NotFoundf("column %s not found", columnID)
	}
	row := &t.Rows[ri]
	ci := -1
	for i := range row.Cells {
		if row.Cells[i].ColumnID == columnID {
			ci = i
			break
		}
	}
	if ci < 0 {
		return types.NotFoundf("cell not found")
	}

	v, err := cell.Normalize(col.Type, value)
	if err != nil {
		return err
	}
	prev := row.Cells[ci].Value
	row.Cells[ci].Value = v
	if err := s.save(); err != nil {
		row.Cells[ci].Value = prev
		return err
	}
	return nil
}

func (s *InMemoryStorage) CreateWorkspace(ctx context.Context, name string) (types.Workspace, error) {
	caller, err := types.CallerFrom(ctx)
	if err != nil {
		return types.Workspace{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Workspace{}, types.Validationf("workspace name is required")
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	ws := &types.Workspace{
		ID:        uuid.NewString(),
		Name:      name,
		OwnerID:   caller,
		CreatedAt: s.now().UTC(),
	}
	s.db.Workspaces[ws.ID] = ws
	if err := s.save(); err != nil {
		delete(s.db.Workspaces, ws.ID)
		return types.Workspace{}, err
	}
	return *ws, nil
}

// ListWorkspaces returns the caller's workspaces, newest first, each with
// its tables ordered by name.
func (s *InMemoryStorage) ListWorkspaces(ctx context.Context) ([]types.Workspace, error) {
	caller, err := types.CallerFrom(ctx)
	if err != nil {
		return nil, err
	}

	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var out []types.Workspace
	for _, ws := range s.db.Workspaces {
		if ws.OwnerID != caller {
			continue
		}
		w := *ws
		w.Tables = nil
		for _, t := range s.db.Tables {
			if t.Table.WorkspaceID == ws.ID {
				w.Tables = append(w.Tables, t.meta())
			}
		}
		sortTables(w.Tables)
		out = append(out, w)
	}
	sortWorkspaces(out)
	return out, nil
}

// CreateDefaultTable creates a table with the default columns and rows in
// the caller's workspace.
func (s *InMemoryStorage) CreateDefaultTable(ctx context.Context, workspaceID, name string) (types.Table, error) {
	caller, err := types.CallerFrom(ctx)
	if err != nil {
		return types.Table{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Table{}, types.Validationf("table name is required")
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	ws, ok := s.db.Workspaces[workspaceID]
	if !ok || ws.OwnerID != caller {
		return types.Table{}, types.NotFoundf("workspace %s not found", workspaceID)
	}

	t := newDefaultTable(workspaceID, name, caller)
	s.db.Tables[t.Table.ID] = t
	if err := s.save(); err != nil {
		delete(s.db.Tables, t.Table.ID)
		return types.Table{}, err
	}
	return t.meta(), nil
}

func (s *InMemoryStorage) DumpTables(ctx context.Context) ([]TableDump, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := make([]TableDump, 0, len(s.db.Tables))
	for _, t := range s.db.Tables {
		d := TableDump{Table: t.meta(), Rows: make([]types.Row, len(t.Rows))}
		for i, r := range t.Rows {
			d.Rows[i] = cloneRow(r)
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Table.ID < out[j].Table.ID })
	return out, nil
}

func (s *InMemoryStorage) Close() error {
	return nil
}

func newDefaultTable(workspaceID, name, owner string) *tableData {
	t := &tableData{Table: types.Table{
		ID:          uuid.NewString(),
		Name:        name,
		WorkspaceID: workspaceID,
		OwnerID:     owner,
	}}
	for i, n := range DefaultColumns {
		t.Table.Columns = append(t.Table.Columns, types.Column{
			ID:      uuid.NewString(),
			TableID: t.Table.ID,
			Name:    n,
			Type:    types.ColumnText,
			Order:   i,
		})
	}
	for i := 0; i < DefaultRows; i++ {
		t.Rows = append(t.Rows, t.newRow(i, func(types.Column) types.Value { return types.Text("") }))
	}
	return t
}

// newRow builds a row with one cell per column, valued by fill.
func (t *tableData) newRow(order int, fill func(types.Column) types.Value) types.Row {
	row := types.Row{ID: uuid.NewString(), TableID: t.Table.ID, Order: order}
	for _, col := range t.Table.Columns.Sorted() {
		row.Cells = append(row.Cells, newCell(row.ID, col, fill(col)))
	}
	return row
}

func newCell(rowID string, col types.Column, v types.Value) types.Cell {
	return types.Cell{ID: uuid.NewString(), RowID: rowID, ColumnID: col.ID, Value: v}
}

// nextRowOrder is max(order)+1, or 0 for an empty table. rows are ascending.
func nextRowOrder(rows []types.Row) int {
	if len(rows) == 0 {
		return 0
	}
	return rows[len(rows)-1].Order + 1
}

func cloneRow(r types.Row) types.Row {
	cells := make([]types.Cell, len(r.Cells))
	copy(cells, r.Cells)
	r.Cells = cells
	return r
}

func validateFakeCount(count int) error {
	if count < 1 || count > types.MaxFakeRows {
		return types.Validationf("row count must be between 1 and %d, got %d", types.MaxFakeRows, count)
	}
	return nil
}

func sortWorkspaces(ws []types.Workspace) {
	sort.SliceStable(ws, func(i, j int) bool {
		if !ws[i].CreatedAt.Equal(ws[j].CreatedAt) {
			return ws[i].CreatedAt.After(ws[j].CreatedAt)
		}
		return ws[i].ID < ws[j].ID
	})
}

func sortTables(ts []types.Table) {
	sort.SliceStable(ts, func(i, j int) bool {
		if ts[i].Name != ts[j].Name {
			return ts[i].Name < ts[j].Name
		}
		return ts[i].ID < ts[j].ID
	})
}
