package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zakazai/ulin-grid/internal/cell"
	"github.com/zakazai/ulin-grid/internal/filter"
	"github.com/zakazai/ulin-grid/internal/query"
	"github.com/zakazai/ulin-grid/internal/sorting"
	"github.com/zakazai/ulin-grid/internal/types"
)

type workspaceModel struct {
	ID        string    `gorm:"primaryKey"`
	Name      string    `gorm:"not null"`
	OwnerID   string    `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null"`
}

func (workspaceModel) TableName() string { return "grid_workspaces" }

type tableModel struct {
	ID          string `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	WorkspaceID string `gorm:"index"`
	OwnerID     string `gorm:"not null;index"`
	CreatedAt   time.Time
	// Version counts committed mutations of the table's rows, columns and cells.
	Version int64 `gorm:"not null;default:0"`
}

func (tableModel) TableName() string { return "grid_tables" }

type columnModel struct {
	ID      string `gorm:"primaryKey"`
	TableID string `gorm:"not null;uniqueIndex:idx_grid_columns_order,priority:1"`
	Name    string `gorm:"not null"`
	Type    string `gorm:"not null"`
	Order   int    `gorm:"column:col_order;not null;uniqueIndex:idx_grid_columns_order,priority:2"`
}

func (columnModel) TableName() string { return "grid_columns" }

type rowModel struct {
	ID      string `gorm:"primaryKey"`
	TableID string `gorm:"not null;uniqueIndex:idx_grid_rows_order,priority:1"`
	Order   int    `gorm:"column:row_order;not null;uniqueIndex:idx_grid_rows_order,priority:2"`
}

func (rowModel) TableName() string { return filter.RowsTable }

// cellModel stores the two nullable slots of a value plus its folded
// display text, which the compiled filter and search predicates read.
type cellModel struct {
	ID          string `gorm:"primaryKey"`
	RowID       string `gorm:"not null;uniqueIndex:idx_grid_cells_row_column,priority:1"`
	ColumnID    string `gorm:"not null;index;uniqueIndex:idx_grid_cells_row_column,priority:2"`
	TextValue   *string
	NumberValue *float64
	Folded      string `gorm:"not null"`
}

func (cellModel) TableName() string { return filter.CellsTable }

// sqlBatchSize bounds the rows per INSERT statement.
const sqlBatchSize = 500

// orderCacheSize bounds the cached (table, query) row orders.
const orderCacheSize = 32

// SQLStorage implements Storage on SQLite through GORM. Filters and search
// run as SQL; multi-key sort runs in process over the matching rows with the
// same comparator the in-memory store uses. The resulting id order is cached
// per table version so paging through it costs one page load.
type SQLStorage struct {
	db     *gorm.DB
	cmp    *sorting.Comparator
	orders *orderCache
	fake   *fakeSource
	now    func() time.Time
	log    *types.Logger
}

// NewSQLStorage opens (creating if needed) a SQLite database at path and
// migrates the grid schema.
func NewSQLStorage(path string) (*SQLStorage, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	log := types.GlobalLogger.WithField("store", "sqlite")
	mode := logger.Silent
	if log.GetLevel() == types.LogLevelDebug {
		mode = logger.Info
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.New(gormWriter{log}, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  mode,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, types.TransientIO("open sqlite database", err)
	}
	if err := db.AutoMigrate(&workspaceModel{}, &tableModel{}, &columnModel{}, &rowModel{}, &cellModel{}); err != nil {
		return nil, types.TransientIO("migrate schema", err)
	}

	return &SQLStorage{
		db:     db,
		cmp:    sorting.New("und"),
		orders: newOrderCache(orderCacheSize),
		fake:   newFakeSource(0),
		now:    time.Now,
		log:    log,
	}, nil
}

// gormWriter sends GORM's statement trace to the debug log.
type gormWriter struct {
	log *types.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Debug(format, args...)
}

// SetLocale changes the collation used for text sort keys.
func (s *SQLStorage) SetLocale(locale string) {
	s.cmp = sorting.New(locale)
	s.orders.clear()
}

func dbErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var typed *types.Error
	if errors.As(err, &typed) {
		return err
	}
	return types.TransientIO(op, err)
}

// take loads one record, mapping a missing record to notFound.
func take(q *gorm.DB, dest interface{}, notFound error, op string) error {
	err := q.Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return dbErr(op, err)
}

func (s *SQLStorage) authorize(ctx context.Context, tx *gorm.DB, tableID string) (tableModel, error) {
	caller, err := types.CallerFrom(ctx)
	if err != nil {
		return tableModel{}, err
	}
	var t tableModel
	q := tx.Where("id = ? AND (owner_id = ? OR workspace_id IN (SELECT id FROM grid_workspaces WHERE owner_id = ?))",
		tableID, caller, caller)
	err = take(q, &t, types.NotFoundf("table %s not found", tableID), "load table")
	return t, err
}

func (s *SQLStorage) columns(tx *gorm.DB, tableID string) (types.Columns, error) {
	var models []columnModel
	if err := tx.Where("table_id = ?", tableID).Order("col_order").Find(&models).Error; err != nil {
		return nil, dbErr("load columns", err)
	}
	cols := make(types.Columns, len(models))
	for i, m := range models {
		cols[i] = types.Column{ID: m.ID, TableID: m.TableID, Name: m.Name, Type: types.ColumnType(m.Type), Order: m.Order}
	}
	return cols, nil
}

func (s *SQLStorage) meta(tx *gorm.DB, t tableModel) (types.Table, error) {
	cols, err := s.columns(tx, t.ID)
	if err != nil {
		return types.Table{}, err
	}
	var n int64
	if err := tx.Model(&rowModel{}).Where("table_id = ?", t.ID).Count(&n).Error; err != nil {
		return types.Table{}, dbErr("count rows", err)
	}
	return types.Table{
		ID:          t.ID,
		Name:        t.Name,
		WorkspaceID: t.WorkspaceID,
		OwnerID:     t.OwnerID,
		Columns:     cols,
		RowCount:    int(n),
	}, nil
}

func (s *SQLStorage) GetTableByID(ctx context.Context, tableID string) (types.Table, error) {
	tx := s.db.WithContext(ctx)
	t, err := s.authorize(ctx, tx, tableID)
	if err != nil {
		return types.Table{}, err
	}
	return s.meta(tx, t)
}

func (s *SQLStorage) GetRows(ctx context.Context, tableID string, limit int, cursor string) (types.RowPage, error) {
	return s.GetRowsWithOperations(ctx, types.PageRequest{TableID: tableID, Limit: limit, Cursor: cursor})
}

func (s *SQLStorage) GetRowsWithOperations(ctx context.Context, req types.PageRequest) (types.RowPage, error) {
	tx := s.db.WithContext(ctx)
	t, err := s.authorize(ctx, tx, req.TableID)
	if err != nil {
		return types.RowPage{}, err
	}

	key := orderKey(req.TableID, req.Query)
	ids, ok := s.orders.get(key, t.Version)
	if !ok {
		if ids, err = s.matchingIDs(tx, req); err != nil {
			return types.RowPage{}, err
		}
		s.orders.put(key, t.Version, ids)
	}

	start, end, next, err := query.Paginate(ids, req.Cursor, query.ClampLimit(req.Limit))
	if err != nil {
		return types.RowPage{}, err
	}
	rows, err := s.loadRows(tx, ids[start:end])
	if err != nil {
		return types.RowPage{}, err
	}
	return types.RowPage{
		Rows:        rows,
		NextCursor:  next,
		HasNextPage: next != "",
		TotalCount:  len(ids),
	}, nil
}

// matchingIDs returns the ids of the rows matching req's filters and search,
// in sort order.
func (s *SQLStorage) matchingIDs(tx *gorm.DB, req types.PageRequest) ([]string, error) {
	cols, err := s.columns(tx, req.TableID)
	if err != nil {
		return nil, err
	}

	pred := filter.And(filter.Compile(req.Filters, cols), filter.CompileSearch(req.Search))
	q := tx.Model(&rowModel{}).Where("table_id = ?", req.TableID)
	if !pred.Empty() {
		q = q.Where(pred.SQL, pred.Args...)
	}

	var ids []string
	if err := q.Order("row_order").Pluck("id", &ids).Error; err != nil {
		return nil, dbErr("select rows", err)
	}

	keys := effectiveKeys(req.Sort, cols)
	if len(keys) > 0 && len(ids) > 1 {
		return s.sortIDs(tx, req.TableID, ids, keys, cols)
	}
	return ids, nil
}

// bumpVersion marks the table changed inside the mutation's transaction.
func bumpVersion(tx *gorm.DB, tableID string) error {
	err := tx.Model(&tableModel{}).Where("id = ?", tableID).
		UpdateColumn("version", gorm.Expr("version + 1")).Error
	return dbErr("bump table version", err)
}

// effectiveKeys keeps the first key per column, dropping removed columns.
func effectiveKeys(keys []types.SortKey, cols types.Columns) []types.SortKey {
	var out []types.SortKey
	for _, k := range sorting.Normalize(keys) {
		if _, ok := cols.Lookup(k.ColumnID); ok {
			out = append(out, k)
		}
	}
	return out
}

// sortIDs orders ids, given ascending by row order, by the sort keys. Only
// the cells of sorted columns are loaded.
func (s *SQLStorage) sortIDs(tx *gorm.DB, tableID string, ids []string, keys []types.SortKey, cols types.Columns) ([]string, error) {
	colIDs := make([]string, len(keys))
	for i, k := range keys {
		colIDs[i] = k.ColumnID
	}

	var cells []cellModel
	err := tx.Model(&cellModel{}).
		Select("grid_cells.*").
		Joins("JOIN grid_rows r ON r.id = grid_cells.row_id").
		Where("r.table_id = ? AND grid_cells.column_id IN ?", tableID, colIDs).
		Find(&cells).Error
	if err != nil {
		return nil, dbErr("load sort cells", err)
	}

	views := make([]types.RowView, len(ids))
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		views[i] = types.RowView{RowID: id, Values: make(map[string]types.Value, len(keys))}
		index[id] = i
	}
	for _, c := range cells {
		i, ok := index[c.RowID]
		if !ok {
			continue
		}
		col, _ := cols.Lookup(c.ColumnID)
		views[i].Values[c.ColumnID] = types.FromSlots(col.Type, c.TextValue, c.NumberValue)
	}

	s.cmp.Sort(views, keys, cols)
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.RowID
	}
	return out, nil
}

// loadRows returns full rows for ids in the given order, cells ordered by
// column order.
func (s *SQLStorage) loadRows(tx *gorm.DB, ids []string) ([]types.Row, error) {
	if len(ids) == 0 {
		return []types.Row{}, nil
	}
	var rows []rowModel
	var cells []cellModel
	for lo := 0; lo < len(ids); lo += FakeBatchSize {
		chunk := ids[lo:min(lo+FakeBatchSize, len(ids))]
		var rs []rowModel
		if err := tx.Where("id IN ?", chunk).Find(&rs).Error; err != nil {
			return nil, dbErr("load rows", err)
		}
		var cs []cellModel
		if err := tx.Where("row_id IN ?", chunk).Find(&cs).Error; err != nil {
			return nil, dbErr("load cells", err)
		}
		rows = append(rows, rs...)
		cells = append(cells, cs...)
	}
	if len(rows) == 0 {
		return []types.Row{}, nil
	}
	cols, err := s.columns(tx, rows[0].TableID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*types.Row, len(rows))
	for _, m := range rows {
		byID[m.ID] = &types.Row{ID: m.ID, TableID: m.TableID, Order: m.Order}
	}
	for _, c := range cells {
		r, ok := byID[c.RowID]
		if !ok {
			continue
		}
		col, _ := cols.Lookup(c.ColumnID)
		r.Cells = append(r.Cells, types.Cell{
			ID:       c.ID,
			RowID:    c.RowID,
			ColumnID: c.ColumnID,
			Value:    types.FromSlots(col.Type, c.TextValue, c.NumberValue),
		})
	}

	order := make(map[string]int, len(cols))
	for _, col := range cols {
		order[col.ID] = col.Order
	}
	out := make([]types.Row, 0, len(ids))
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			continue
		}
		sort.Slice(r.Cells, func(i, j int) bool { return order[r.Cells[i].ColumnID] < order[r.Cells[j].ColumnID] })
		out = append(out, *r)
	}
	return out, nil
}

func toCellModel(rowID, columnID string, v types.Value) cellModel {
	text, number := v.Slots()
	return cellModel{
		ID:          uuid.NewString(),
		RowID:       rowID,
		ColumnID:    columnID,
		TextValue:   text,
		NumberValue: number,
		Folded:      cell.Fold(v.Display()),
	}
}

func (s *SQLStorage) nextOrder(tx *gorm.DB, model interface{}, column, tableID string) (int, error) {
	var max int
	err := tx.Model(model).Where("table_id = ?", tableID).
		Select("COALESCE(MAX(" + column + "), -1)").Scan(&max).Error
	return max + 1, dbErr("read max order", err)
}

func (s *SQLStorage) AddColumn(ctx context.Context, tableID, name string, colType types.ColumnType) (types.Column, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Column{}, types.Validationf("column name is required")
	}
	colType, err := types.ParseColumnType(string(colType))
	if err != nil {
		return types.Column{}, err
	}

	var col types.Column
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.authorize(ctx, tx, tableID); err != nil {
			return err
		}
		order, err := s.nextOrder(tx, &columnModel{}, "col_order", tableID)
		if err != nil {
			return err
		}
		m := columnModel{ID: uuid.NewString(), TableID: tableID, Name: name, Type: string(colType), Order: order}
		if err := tx.Create(&m).Error; err != nil {
			return dbErr("create column", err)
		}

		var rowIDs []string
		if err := tx.Model(&rowModel{}).Where("table_id = ?", tableID).Pluck("id", &rowIDs).Error; err != nil {
			return dbErr("list rows", err)
		}
		if len(rowIDs) > 0 {
			cells := make([]cellModel, len(rowIDs))
			for i, id := range rowIDs {
				cells[i] = toCellModel(id, m.ID, cell.Empty(colType))
			}
			if err := tx.CreateInBatches(cells, sqlBatchSize).Error; err != nil {
				return dbErr("back-fill cells", err)
			}
		}

		col = types.Column{ID: m.ID, TableID: tableID, Name: name, Type: colType, Order: order}
		return bumpVersion(tx, tableID)
	})
	if err != nil {
		return types.Column{}, err
	}
	s.log.Debug("added column %s (%s) to table %s", col.Name, col.Type, tableID)
	return col, nil
}

// insertRows creates rows at consecutive orders starting from the next free
// order, filling one cell per column. The caller provides the transaction.
func (s *SQLStorage) insertRows(tx *gorm.DB, tableID string, count int, fill func(types.Column) types.Value) ([]types.Row, error) {
	start, err := s.nextOrder(tx, &rowModel{}, "row_order", tableID)
	if err != nil {
		return nil, err
	}
	cols, err := s.columns(tx, tableID)
	if err != nil {
		return nil, err
	}
	return insertRowsAt(tx, tableID, start, count, cols, fill)
}

func insertRowsAt(tx *gorm.DB, tableID string, start, count int, cols types.Columns, fill func(types.Column) types.Value) ([]types.Row, error) {
	rows := make([]rowModel, count)
	cells := make([]cellModel, 0, count*len(cols))
	out := make([]types.Row, count)
	for i := range rows {
		rows[i] = rowModel{ID: uuid.NewString(), TableID: tableID, Order: start + i}
		out[i] = types.Row{ID: rows[i].ID, TableID: tableID, Order: rows[i].Order}
		for _, col := range cols {
			m := toCellModel(rows[i].ID, col.ID, fill(col))
			cells = append(cells, m)
			out[i].Cells = append(out[i].Cells, types.Cell{
				ID:       m.ID,
				RowID:    m.RowID,
				ColumnID: col.ID,
				Value:    types.FromSlots(col.Type, m.TextValue, m.NumberValue),
			})
		}
	}
	if err := tx.CreateInBatches(rows, sqlBatchSize).Error; err != nil {
		return nil, dbErr("create rows", err)
	}
	if len(cells) > 0 {
		if err := tx.CreateInBatches(cells, sqlBatchSize).Error; err != nil {
			return nil, dbErr("create cells", err)
		}
	}
	return out, nil
}

func (s *SQLStorage) AddRow(ctx context.Context, tableID string) (types.Row, error) {
	var row types.Row
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.authorize(ctx, tx, tableID); err != nil {
			return err
		}
		rows, err := s.insertRows(tx, tableID, 1, func(col types.Column) types.Value { return cell.Empty(col.Type) })
		if err != nil {
			return err
		}
		row = rows[0]
		return bumpVersion(tx, tableID)
	})
	return row, err
}

// AddFakeRows writes count synthetic rows, one transaction per batch. Rows
// from batches committed before a failure remain.
func (s *SQLStorage) AddFakeRows(ctx context.Context, tableID string, count int) (int, error) {
	if err := validateFakeCount(count); err != nil {
		return 0, err
	}

	created := 0
	for created < count {
		n := min(FakeBatchSize, count-created)
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if _, err := s.authorize(ctx, tx, tableID); err != nil {
				return err
			}
			if _, err := s.insertRows(tx, tableID, n, s.fake.value); err != nil {
				return err
			}
			return bumpVersion(tx, tableID)
		})
		if err != nil {
			return created, dbErr("add fake rows", err)
		}
		created += n
	}
	s.log.Info("added %d fake rows to table %s", created, tableID)
	return created, nil
}

func (s *SQLStorage) UpdateCell(ctx context.Context, tableID string, rowIndex int, columnID, value string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.authorize(ctx, tx, tableID); err != nil {
			return err
		}

		var row rowModel
		q := tx.Where("table_id = ? AND row_order = ?", tableID, rowIndex)
		if err := take(q, &row, types.NotFoundf("row %d not found", rowIndex), "load row"); err != nil {
			return err
		}

		var col columnModel
		q = tx.Where("id = ? AND table_id = ?", columnID, tableID)
		if err := take(q, &col, types.NotFoundf("column %s not found", columnID), "load column"); err != nil {
			return err
		}

		var c cellModel
		q = tx.Where("row_id = ? AND column_id = ?", row.ID, columnID)
		if err := take(q, &c, types.NotFoundf("cell not found"), "load cell"); err != nil {
			return err
		}

		v, err := cell.Normalize(types.ColumnType(col.Type), value)
		if err != nil {
			return err
		}
		text, number := v.Slots()
		err = tx.Model(&cellModel{}).Where("id = ?", c.ID).Updates(map[string]interface{}{
			"text_value":   text,
			"number_value": number,
			"folded":       cell.Fold(v.Display()),
		}).Error
		if err != nil {
			return dbErr("update cell", err)
		}
		return bumpVersion(tx, tableID)
	})
}

func (s *SQLStorage) CreateWorkspace(ctx context.Context, name string) (types.Workspace, error) {
	caller, err := types.CallerFrom(ctx)
	if err != nil {
		return types.Workspace{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Workspace{}, types.Validationf("workspace name is required")
	}

	m := workspaceModel{ID: uuid.NewString(), Name: name, OwnerID: caller, CreatedAt: s.now().UTC()}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return types.Workspace{}, dbErr("create workspace", err)
	}
	return types.Workspace{ID: m.ID, Name: m.Name, OwnerID: m.OwnerID, CreatedAt: m.CreatedAt}, nil
}

func (s *SQLStorage) ListWorkspaces(ctx context.Context) ([]types.Workspace, error) {
	caller, err := types.CallerFrom(ctx)
	if err != nil {
		return nil, err
	}
	tx := s.db.WithContext(ctx)

	var models []workspaceModel
	if err := tx.Where("owner_id = ?", caller).Order("created_at DESC, id").Find(&models).Error; err != nil {
		return nil, dbErr("list workspaces", err)
	}

	out := make([]types.Workspace, 0, len(models))
	for _, m := range models {
		ws := types.Workspace{ID: m.ID, Name: m.Name, OwnerID: m.OwnerID, CreatedAt: m.CreatedAt.UTC()}
		var tables []tableModel
		if err := tx.Where("workspace_id = ?", m.ID).Order("name, id").Find(&tables).Error; err != nil {
			return nil, dbErr("list tables", err)
		}
		for _, t := range tables {
			meta, err := s.meta(tx, t)
			if err != nil {
				return nil, err
			}
			ws.Tables = append(ws.Tables, meta)
		}
		out = append(out, ws)
	}
	return out, nil
}

func (s *SQLStorage) CreateDefaultTable(ctx context.Context, workspaceID, name string) (types.Table, error) {
	caller, err := types.CallerFrom(ctx)
	if err != nil {
		return types.Table{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Table{}, types.Validationf("table name is required")
	}

	var table types.Table
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ws workspaceModel
		q := tx.Where("id = ? AND owner_id = ?", workspaceID, caller)
		if err := take(q, &ws, types.NotFoundf("workspace %s not found", workspaceID), "load workspace"); err != nil {
			return err
		}

		t := tableModel{ID: uuid.NewString(), Name: name, WorkspaceID: workspaceID, OwnerID: caller, CreatedAt: s.now().UTC()}
		if err := tx.Create(&t).Error; err != nil {
			return dbErr("create table", err)
		}
		cols := make([]columnModel, len(DefaultColumns))
		for i, n := range DefaultColumns {
			cols[i] = columnModel{ID: uuid.NewString(), TableID: t.ID, Name: n, Type: string(types.ColumnText), Order: i}
		}
		if err := tx.Create(&cols).Error; err != nil {
			return dbErr("create columns", err)
		}
		defaults, err := s.columns(tx, t.ID)
		if err != nil {
			return err
		}
		if _, err := insertRowsAt(tx, t.ID, 0, DefaultRows, defaults, func(types.Column) types.Value { return types.Text("") }); err != nil {
			return err
		}
		table, err = s.meta(tx, t)
		return err
	})
	return table, err
}

func (s *SQLStorage) DumpTables(ctx context.Context) ([]TableDump, error) {
	tx := s.db.WithContext(ctx)
	var tables []tableModel
	if err := tx.Order("id").Find(&tables).Error; err != nil {
		return nil, dbErr("list tables", err)
	}
	out := make([]TableDump, 0, len(tables))
	for _, t := range tables {
		meta, err := s.meta(tx, t)
		if err != nil {
			return nil, err
		}
		var ids []string
		if err := tx.Model(&rowModel{}).Where("table_id = ?", t.ID).Order("row_order").Pluck("id", &ids).Error; err != nil {
			return nil, dbErr("list rows", err)
		}
		rows, err := s.loadRows(tx, ids)
		if err != nil {
			return nil, err
		}
		out = append(out, TableDump{Table: meta, Rows: rows})
	}
	return out, nil
}

func (s *SQLStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
