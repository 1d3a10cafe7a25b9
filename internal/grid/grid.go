// Package grid is the controller behind one table view. It owns the column
// definitions, the filter, sort and search state, and the loaded row
// sequence, and it dispatches fetches and mutations to a Backend.
package grid

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/zakazai/ulin-grid/internal/cell"
	"github.com/zakazai/ulin-grid/internal/edit"
	"github.com/zakazai/ulin-grid/internal/filter"
	"github.com/zakazai/ulin-grid/internal/pager"
	"github.com/zakazai/ulin-grid/internal/planner"
	"github.com/zakazai/ulin-grid/internal/query"
	"github.com/zakazai/ulin-grid/internal/sorting"
	"github.com/zakazai/ulin-grid/internal/storage"
	"github.com/zakazai/ulin-grid/internal/types"
)

// Backend is the persistence collaborator. When it also implements
// storage.QueryReader the controller can push filters, sort and search to it.
type Backend interface {
	storage.Reader
	storage.Writer
}

// ErrPending is returned when the same mutation is already in flight.
var ErrPending = errors.New("grid: operation already in progress")

// ViewState is what the view should render.
type ViewState int

const (
	Loading ViewState = iota
	Ready
	NotFound
	Unauthorized
	Failed
)

func (s ViewState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case NotFound:
		return "not found"
	case Unauthorized:
		return "unauthorized"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Options tunes a Controller. Zero values select the defaults.
type Options struct {
	PageSize     int
	Lookahead    int
	Debounce     time.Duration
	SyncedWindow time.Duration
	// LocalThreshold is the largest table evaluated in process; negative
	// means planner.DefaultLocalThreshold and 0 disables local evaluation
	// when the backend can evaluate remotely.
	LocalThreshold  int
	Locale          string
	KeepFailedInput bool
	Scheduler       edit.Scheduler
	Logger          *types.Logger
}

const DefaultDebounce = 500 * time.Millisecond

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = types.DefaultPageSize
	}
	o.PageSize = query.ClampLimit(o.PageSize)
	if o.Lookahead <= 0 {
		o.Lookahead = pager.DefaultLookahead
	}
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.SyncedWindow <= 0 {
		o.SyncedWindow = edit.DefaultWindow
	}
	if o.Locale == "" {
		o.Locale = "und"
	}
	if o.Scheduler == nil {
		o.Scheduler = edit.AfterFunc
	}
	if o.Logger == nil {
		o.Logger = types.GlobalLogger
	}
	return o
}

// Coord locates a search hit: Index is the position in the loaded
// sequence, RowIndex the row's order.
type Coord struct {
	Index    int
	RowIndex int
	ColumnID string
}

// Controller drives one table view.
type Controller struct {
	backend Backend
	ops     storage.QueryReader
	tableID string
	opts    Options
	log     *types.Logger

	pager    *pager.Store
	planner  *planner.Planner
	cmp      *sorting.Comparator
	local    *localSource
	debounce *debouncer
	// applyMu serializes query changes so Flush waits for a debounced
	// apply that is already running.
	applyMu sync.Mutex

	mu      sync.Mutex
	baseCtx context.Context
	table   types.Table
	state   ViewState
	err     error
	desired types.Query
	applied types.Query
	plan    planner.Plan
	edits   map[edit.Key]*edit.Cell
	pending map[string]bool
}

// New creates a controller for tableID. Nothing is fetched until Open.
func New(backend Backend, tableID string, opts Options) *Controller {
	opts = opts.withDefaults()
	c := &Controller{
		backend:  backend,
		tableID:  tableID,
		opts:     opts,
		log:      opts.Logger.WithField("table", tableID),
		pager:    pager.New(),
		planner:  planner.NewPlanner(opts.LocalThreshold),
		cmp:      sorting.New(opts.Locale),
		local:    &localSource{},
		debounce: newDebouncer(opts.Scheduler),
		baseCtx:  context.Background(),
		edits:    make(map[edit.Key]*edit.Cell),
		pending:  make(map[string]bool),
	}
	if ops, ok := backend.(storage.QueryReader); ok {
		c.ops = ops
	}
	return c
}

// Open loads the table metadata and the first page. Debounced refetches
// run with ctx's values but without its cancellation.
func (c *Controller) Open(ctx context.Context) error {
	c.mu.Lock()
	c.baseCtx = context.WithoutCancel(ctx)
	c.state = Loading
	c.mu.Unlock()

	if err := c.loadTable(ctx); err != nil {
		return err
	}
	c.resetPager()

	_, err := c.FetchNextPage(ctx)
	return err
}

// resetPager restarts the sequence under the applied query. Holding mu keeps
// the pager's snapshot in step with applied.
func (c *Controller) resetPager() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pager.Reset(c.applied)
}

func (c *Controller) loadTable(ctx context.Context) error {
	table, err := c.backend.GetTableByID(ctx, c.tableID)
	if err != nil {
		c.fail(err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.table = table
	c.state = Ready
	c.err = nil
	c.replanLocked()
	return nil
}

func (c *Controller) replanLocked() {
	caps := planner.Capabilities{Operations: c.ops != nil, RowCount: c.table.RowCount}
	c.plan = c.planner.CreatePlan(c.applied, c.table.Columns, caps)
	c.log.Debug("plan %s: %s", c.plan.Strategy, c.plan.Reason)
}

// fail records a fetch error. NotFound and Unauthorized are terminal for
// the view; other errors leave a loaded view usable.
func (c *Controller) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
	switch types.KindOf(err) {
	case types.KindNotFound:
		c.state = NotFound
	case types.KindUnauthorized:
		c.state = Unauthorized
	default:
		if c.state == Loading {
			c.state = Failed
		}
	}
}

// SetFilters replaces the filter set. The refetch is debounced.
func (c *Controller) SetFilters(filters []types.Filter) {
	c.mu.Lock()
	c.desired.Filters = slices.Clone(filters)
	c.mu.Unlock()
	c.debounce.Trigger(c.opts.Debounce, c.applyAsync)
}

// SetSearchTerm replaces the search term. The refetch is debounced.
func (c *Controller) SetSearchTerm(term string) {
	c.mu.Lock()
	c.desired.Search = term
	c.mu.Unlock()
	c.debounce.Trigger(c.opts.Debounce, c.applyAsync)
}

// SetSort replaces the sort keys, keeping the first key per column. The
// refetch is scheduled without delay.
func (c *Controller) SetSort(keys []types.SortKey) {
	c.mu.Lock()
	c.desired.Sort = sorting.Normalize(keys)
	c.mu.Unlock()
	c.debounce.Trigger(0, c.applyAsync)
}

// Flush applies pending filter, sort and search changes now.
func (c *Controller) Flush(ctx context.Context) error {
	c.debounce.Cancel()
	return c.apply(ctx)
}

func (c *Controller) applyAsync() {
	c.mu.Lock()
	ctx := c.baseCtx
	c.mu.Unlock()
	if err := c.apply(ctx); err != nil {
		c.log.Warning("refetch failed: %v", err)
	}
}

// apply restarts pagination under the desired query if it changed.
func (c *Controller) apply(ctx context.Context) error {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()

	c.mu.Lock()
	if c.desired.Equal(c.applied) {
		c.mu.Unlock()
		return nil
	}
	c.applied = types.Query{
		Filters: slices.Clone(c.desired.Filters),
		Sort:    slices.Clone(c.desired.Sort),
		Search:  c.desired.Search,
	}
	c.replanLocked()
	c.pager.Reset(c.applied)
	c.mu.Unlock()

	_, err := c.FetchNextPage(ctx)
	return err
}

// FetchNextPage loads the next page under the applied query. It reports
// false without error when a fetch is already in flight, the last page is
// loaded, or the response arrived after the query changed.
func (c *Controller) FetchNextPage(ctx context.Context) (bool, error) {
	c.mu.Lock()
	q := c.applied
	plan := c.plan
	table := c.table
	c.mu.Unlock()

	ticket, ok := c.pager.Begin(q)
	if !ok {
		return false, nil
	}

	page, err := c.fetch(ctx, plan.Strategy, table, ticket)
	if err != nil {
		if ticket.Cursor != "" && types.KindOf(err) == types.KindValidation && c.pager.Restart(ticket) {
			// the cursor row no longer matches, so page again from the top
			c.log.Warning("cursor %s left the result set, reloading from the first page", ticket.Cursor)
			return c.FetchNextPage(ctx)
		}
		c.pager.Fail(ticket)
		c.fail(err)
		return false, err
	}
	if !c.pager.Complete(ticket, page) {
		c.log.Debug("discarded stale page for %s", ticket.Query)
		return false, nil
	}
	return true, nil
}

func (c *Controller) fetch(ctx context.Context, strategy planner.Strategy, table types.Table, t pager.Ticket) (types.RowPage, error) {
	req := types.PageRequest{TableID: c.tableID, Limit: c.opts.PageSize, Cursor: t.Cursor, Query: t.Query}
	switch strategy {
	case planner.Remote:
		return c.ops.GetRowsWithOperations(ctx, req)
	case planner.Local:
		rows, err := c.local.load(ctx, c.backend, c.tableID, c.opts.PageSize)
		if err != nil {
			return types.RowPage{}, err
		}
		return query.Run(table.Columns, rows, req, c.cmp)
	default:
		return c.backend.GetRows(ctx, c.tableID, c.opts.PageSize, t.Cursor)
	}
}

// Window returns the loaded rows with index in [first, last].
func (c *Controller) Window(first, last int) []types.RowView {
	return c.pager.Window(first, last)
}

// Scroll is Window for a renderer: when last is within the lookahead of the
// end of the loaded rows it fetches the next page first.
func (c *Controller) Scroll(ctx context.Context, first, last int) ([]types.RowView, error) {
	if c.pager.ShouldFetchMore(last, c.opts.Lookahead) {
		if _, err := c.FetchNextPage(ctx); err != nil {
			return c.pager.Window(first, last), err
		}
	}
	return c.pager.Window(first, last), nil
}

// Invalidate refetches metadata and reloads as many rows as were loaded.
func (c *Controller) Invalidate(ctx context.Context) error {
	loaded := c.pager.Len()
	c.local.invalidate()
	if err := c.loadTable(ctx); err != nil {
		return err
	}

	c.resetPager()

	for {
		more, err := c.FetchNextPage(ctx)
		if err != nil {
			return err
		}
		if !more || c.pager.Len() >= loaded || !c.pager.HasMore() {
			break
		}
	}
	c.reconcileEdits()
	return nil
}

// reconcileEdits feeds refetched values to idle edit records.
func (c *Controller) reconcileEdits() {
	c.mu.Lock()
	edits := make([]*edit.Cell, 0, len(c.edits))
	for _, e := range c.edits {
		edits = append(edits, e)
	}
	c.mu.Unlock()

	for _, e := range edits {
		k := e.Key()
		row, ok := c.pager.Get(k.RowIndex)
		if !ok {
			continue
		}
		if v, ok := row.Get(k.ColumnID); ok {
			e.Reconcile(v)
		}
	}
}

// guard marks a mutation as in flight, failing if it already is.
func (c *Controller) guard(op string) (release func(), err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending[op] {
		return nil, ErrPending
	}
	c.pending[op] = true
	return func() {
		c.mu.Lock()
		delete(c.pending, op)
		c.mu.Unlock()
	}, nil
}

// IsPending reports whether the named mutation ("addColumn", "addRow",
// "addFakeRows") is in flight.
func (c *Controller) IsPending(op string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending[op]
}

// AddColumn appends a column and refreshes the view.
func (c *Controller) AddColumn(ctx context.Context, name string, colType types.ColumnType) (types.Column, error) {
	if strings.TrimSpace(name) == "" {
		return types.Column{}, types.Validationf("column name is required")
	}
	release, err := c.guard("addColumn")
	if err != nil {
		return types.Column{}, err
	}
	defer release()

	col, err := c.backend.AddColumn(ctx, c.tableID, name, colType)
	if err != nil {
		return types.Column{}, err
	}
	return col, c.Invalidate(ctx)
}

// AddRow appends an empty row and refreshes the view.
func (c *Controller) AddRow(ctx context.Context) (types.Row, error) {
	release, err := c.guard("addRow")
	if err != nil {
		return types.Row{}, err
	}
	defer release()

	row, err := c.backend.AddRow(ctx, c.tableID)
	if err != nil {
		return types.Row{}, err
	}
	return row, c.Invalidate(ctx)
}

// AddFakeRows appends synthetic rows and refreshes the view. On a partial
// failure the view is still refreshed and the inserted count returned.
func (c *Controller) AddFakeRows(ctx context.Context, count int) (int, error) {
	release, err := c.guard("addFakeRows")
	if err != nil {
		return 0, err
	}
	defer release()

	n, err := c.backend.AddFakeRows(ctx, c.tableID, count)
	if n > 0 {
		if ierr := c.Invalidate(ctx); err == nil {
			err = ierr
		}
	}
	return n, err
}

func (c *Controller) column(columnID string) (types.Column, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table.Columns.Lookup(columnID)
}

// BeginEdit returns the edit record for a cell, creating it from the loaded
// value. rowIndex is the row's order.
func (c *Controller) BeginEdit(rowIndex int, columnID string) (*edit.Cell, error) {
	key := edit.Key{TableID: c.tableID, RowIndex: rowIndex, ColumnID: columnID}

	c.mu.Lock()
	if e, ok := c.edits[key]; ok {
		c.mu.Unlock()
		return e, nil
	}
	c.mu.Unlock()

	col, ok := c.column(columnID)
	if !ok {
		return nil, types.NotFoundf("column %s not found", columnID)
	}
	row, ok := c.pager.Get(rowIndex)
	if !ok {
		return nil, types.NotFoundf("row %d is not loaded", rowIndex)
	}
	v, ok := row.Get(columnID)
	if !ok {
		v = cell.Empty(col.Type)
	}

	e := edit.New(key, v, edit.Options{
		Window:          c.opts.SyncedWindow,
		Scheduler:       c.opts.Scheduler,
		KeepFailedInput: c.opts.KeepFailedInput,
		OnTransition:    c.onEditTransition,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.edits[key]; ok {
		return existing, nil
	}
	c.edits[key] = e
	return e, nil
}

// onEditTransition keeps the loaded row in step with the edit and drops the
// record once it settles.
func (c *Controller) onEditTransition(key edit.Key, _, to edit.Status) {
	c.mu.Lock()
	e := c.edits[key]
	c.mu.Unlock()
	if e == nil || to != edit.Idle {
		return
	}

	display := e.Display()
	if col, ok := c.column(key.ColumnID); ok {
		v, err := cell.Normalize(col.Type, display)
		if err != nil {
			// kept input that is not a valid value lives in the edit record only
			v = e.Committed()
		}
		c.pager.SetValue(key.RowIndex, key.ColumnID, v)
	}

	if e.Committed().Display() == display {
		c.mu.Lock()
		if c.edits[key] == e {
			delete(c.edits, key)
		}
		c.mu.Unlock()
	}
}

// Input records a keystroke in a cell.
func (c *Controller) Input(rowIndex int, columnID, raw string) error {
	e, err := c.BeginEdit(rowIndex, columnID)
	if err != nil {
		return err
	}
	e.Input(raw)
	return nil
}

// Blur commits a cell edit. Write failures, including invalid input, are
// reported through the returned status and EditState, not as an error.
func (c *Controller) Blur(ctx context.Context, rowIndex int, columnID string) (edit.Status, error) {
	key := edit.Key{TableID: c.tableID, RowIndex: rowIndex, ColumnID: columnID}
	c.mu.Lock()
	e, ok := c.edits[key]
	c.mu.Unlock()
	if !ok {
		return edit.Idle, nil
	}

	if err := e.Blur(ctx, c.writeCell); err != nil {
		c.log.Debug("cell %d/%s: %v", rowIndex, columnID, err)
	}
	return e.Status(), nil
}

// writeCell applies the value to the loaded row, persists it, and on
// success refetches so the view derives from committed state.
func (c *Controller) writeCell(ctx context.Context, key edit.Key, raw string) error {
	if col, ok := c.column(key.ColumnID); ok {
		if v, err := cell.Normalize(col.Type, raw); err == nil {
			c.pager.SetValue(key.RowIndex, key.ColumnID, v)
		}
	}
	if err := c.backend.UpdateCell(ctx, c.tableID, key.RowIndex, key.ColumnID, raw); err != nil {
		return err
	}
	if err := c.Invalidate(ctx); err != nil {
		c.log.Warning("refresh after cell write failed: %v", err)
	}
	return nil
}

// UpdateCell is BeginEdit, Input and Blur in one call.
func (c *Controller) UpdateCell(ctx context.Context, rowIndex int, columnID, value string) (edit.Status, error) {
	if err := c.Input(rowIndex, columnID, value); err != nil {
		return edit.Idle, err
	}
	return c.Blur(ctx, rowIndex, columnID)
}

// EditState reports the edit status of a cell and the error that put it in
// Error, if any.
func (c *Controller) EditState(rowIndex int, columnID string) (edit.Status, error) {
	key := edit.Key{TableID: c.tableID, RowIndex: rowIndex, ColumnID: columnID}
	c.mu.Lock()
	e, ok := c.edits[key]
	c.mu.Unlock()
	if !ok {
		return edit.Idle, nil
	}
	return e.Status(), e.Err()
}

// Matches returns the loaded cells containing the search term, for
// highlighting. It never excludes rows.
func (c *Controller) Matches() []Coord {
	c.mu.Lock()
	term := c.desired.Search
	cols := c.table.Columns.Sorted()
	c.mu.Unlock()
	if term == "" {
		return nil
	}

	var out []Coord
	for i, row := range c.pager.All() {
		for _, col := range cols {
			if v, ok := row.Get(col.ID); ok && filter.Hit(v, term) {
				out = append(out, Coord{Index: i, RowIndex: row.Order, ColumnID: col.ID})
			}
		}
	}
	return out
}

// State returns the view state and the last fetch error.
func (c *Controller) State() (ViewState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.err
}

// Table returns the current table metadata.
func (c *Controller) Table() types.Table {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.table
	t.Columns = t.Columns.Sorted()
	return t
}

// Query returns the query the loaded rows were fetched under.
func (c *Controller) Query() types.Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applied
}

// Plan returns the current evaluation plan.
func (c *Controller) Plan() planner.Plan {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plan
}

func (c *Controller) Len() int { return c.pager.Len() }

func (c *Controller) HasMore() bool { return c.pager.HasMore() }

// TotalCount is the size of the filtered set, or -1 before the first page.
func (c *Controller) TotalCount() int { return c.pager.TotalCount() }

// Rows returns every loaded row in view order.
func (c *Controller) Rows() []types.RowView { return c.pager.All() }

// Close drops any pending debounced refetch.
func (c *Controller) Close() {
	c.debounce.Cancel()
}
