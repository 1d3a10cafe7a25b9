package grid_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zakazai/ulin-grid/internal/cell"
	"github.com/zakazai/ulin-grid/internal/edit"
	"github.com/zakazai/ulin-grid/internal/grid"
	"github.com/zakazai/ulin-grid/internal/planner"
	"github.com/zakazai/ulin-grid/internal/storage"
	"github.com/zakazai/ulin-grid/internal/types"
)

var alice = types.WithCaller(context.Background(), "alice")

// manualClock holds scheduled callbacks until Fire.
type manualClock struct {
	mu      sync.Mutex
	pending []*timer
}

type timer struct {
	f         func()
	cancelled bool
}

func (m *manualClock) schedule(_ time.Duration, f func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &timer{f: f}
	m.pending = append(m.pending, t)
	return func() {
		m.mu.Lock()
		t.cancelled = true
		m.mu.Unlock()
	}
}

func (m *manualClock) Fire() {
	m.mu.Lock()
	timers := m.pending
	m.pending = nil
	m.mu.Unlock()
	for _, t := range timers {
		m.mu.Lock()
		cancelled := t.cancelled
		m.mu.Unlock()
		if !cancelled {
			t.f()
		}
	}
}

// gatedStore can hold one call to GetRows or AddRow until released, and
// counts cell writes.
type gatedStore struct {
	*storage.InMemoryStorage

	mu      sync.Mutex
	gate    string
	entered chan struct{}
	release chan struct{}
	updates int
}

func (g *gatedStore) arm(op string) (entered, release chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gate = op
	g.entered = make(chan struct{})
	g.release = make(chan struct{})
	return g.entered, g.release
}

func (g *gatedStore) block(op string) {
	g.mu.Lock()
	if g.gate != op {
		g.mu.Unlock()
		return
	}
	g.gate = ""
	entered, release := g.entered, g.release
	g.mu.Unlock()
	close(entered)
	<-release
}

func (g *gatedStore) GetRows(ctx context.Context, tableID string, limit int, cursor string) (types.RowPage, error) {
	g.block("GetRows")
	return g.InMemoryStorage.GetRows(ctx, tableID, limit, cursor)
}

func (g *gatedStore) AddRow(ctx context.Context, tableID string) (types.Row, error) {
	g.block("AddRow")
	return g.InMemoryStorage.AddRow(ctx, tableID)
}

func (g *gatedStore) UpdateCell(ctx context.Context, tableID string, rowIndex int, columnID, value string) error {
	g.mu.Lock()
	g.updates++
	g.mu.Unlock()
	return g.InMemoryStorage.UpdateCell(ctx, tableID, rowIndex, columnID, value)
}

func (g *gatedStore) Updates() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.updates
}

type fixture struct {
	store *gatedStore
	table types.Table
	name  string
	clock *manualClock
}

// newFixture creates a default table whose Name cells are apple, banana and
// cherry at orders 0, 1 and 2.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := &gatedStore{InMemoryStorage: storage.NewInMemoryStorage()}
	ws, err := store.CreateWorkspace(alice, "Work")
	require.NoError(t, err)
	table, err := store.CreateDefaultTable(alice, ws.ID, "Fruit")
	require.NoError(t, err)

	name, ok := table.Columns.ByName("Name")
	require.True(t, ok)
	for i, v := range []string{"apple", "banana", "cherry"} {
		require.NoError(t, store.InMemoryStorage.UpdateCell(alice, table.ID, i, name.ID, v))
	}
	return &fixture{store: store, table: table, name: name.ID, clock: &manualClock{}}
}

func (f *fixture) open(t *testing.T, backend grid.Backend, opts grid.Options) *grid.Controller {
	t.Helper()
	if opts.Scheduler == nil {
		opts.Scheduler = f.clock.schedule
	}
	c := grid.New(backend, f.table.ID, opts)
	require.NoError(t, c.Open(alice))
	t.Cleanup(c.Close)
	return c
}

func names(c *grid.Controller, colID string) []string {
	var out []string
	for _, r := range c.Rows() {
		v, _ := r.Get(colID)
		out = append(out, v.Display())
	}
	return out
}

// basic hides GetRowsWithOperations from the controller.
func basic(s storage.Storage) grid.Backend {
	return struct {
		storage.Reader
		storage.Writer
	}{s, s}
}

func TestOpenLoadsFirstPage(t *testing.T) {
	f := newFixture(t)
	c := f.open(t, f.store, grid.Options{PageSize: 2})

	state, err := c.State()
	require.NoError(t, err)
	assert.Equal(t, grid.Ready, state)
	assert.Equal(t, 2, c.Len())
	assert.True(t, c.HasMore())
	assert.Equal(t, 3, c.TotalCount())
	assert.Equal(t, planner.Plain, c.Plan().Strategy)
	assert.Equal(t, []string{"Name", "Note"}, []string{c.Table().Columns[0].Name, c.Table().Columns[1].Name})

	more, err := c.FetchNextPage(alice)
	require.NoError(t, err)
	assert.True(t, more)
	assert.Equal(t, []string{"apple", "banana", "cherry"}, names(c, f.name))

	more, err = c.FetchNextPage(alice)
	require.NoError(t, err)
	assert.False(t, more, "last page already loaded")
}

func TestSearchIsDebounced(t *testing.T) {
	f := newFixture(t)
	c := f.open(t, f.store, grid.Options{})

	c.SetSearchTerm("a")
	c.SetSearchTerm("an")
	assert.Equal(t, "", c.Query().Search, "nothing applied before the delay")
	assert.Len(t, c.Rows(), 3)

	f.clock.Fire()
	assert.Equal(t, "an", c.Query().Search)
	assert.Equal(t, planner.Remote, c.Plan().Strategy)
	assert.Equal(t, []string{"banana"}, names(c, f.name))
	assert.Equal(t, 1, c.TotalCount())
}

func TestFlushAppliesSortNow(t *testing.T) {
	f := newFixture(t)
	c := f.open(t, f.store, grid.Options{})

	c.SetSort([]types.SortKey{
		{ColumnID: f.name, Direction: types.Desc},
		{ColumnID: f.name, Direction: types.Asc},
	})
	require.NoError(t, c.Flush(alice))

	assert.Len(t, c.Query().Sort, 1, "duplicate column keys collapse to the first")
	assert.Equal(t, []string{"cherry", "banana", "apple"}, names(c, f.name))

	// the flushed change leaves nothing for the debouncer to run
	f.clock.Fire()
	assert.Equal(t, []string{"cherry", "banana", "apple"}, names(c, f.name))
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	f := newFixture(t)
	c := f.open(t, f.store, grid.Options{})

	entered, release := f.store.arm("GetRows")
	done := make(chan error, 1)
	go func() { done <- c.Invalidate(alice) }()
	<-entered

	// the unfiltered reload is still in flight when the search lands
	c.SetSearchTerm("an")
	require.NoError(t, c.Flush(alice))
	assert.Equal(t, []string{"banana"}, names(c, f.name))

	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, []string{"banana"}, names(c, f.name), "late unfiltered page must not be merged")
	assert.Equal(t, "an", c.Query().Search)
}

func TestVanishedCursorRestartsPaging(t *testing.T) {
	f := newFixture(t)
	c := f.open(t, f.store, grid.Options{PageSize: 1})

	c.SetSearchTerm("e")
	require.NoError(t, c.Flush(alice))
	assert.Equal(t, []string{"apple"}, names(c, f.name))

	// an edit made elsewhere drops the cursor row out of the search
	require.NoError(t, f.store.InMemoryStorage.UpdateCell(alice, f.table.ID, 0, f.name, "fig"))

	more, err := c.FetchNextPage(alice)
	require.NoError(t, err)
	assert.True(t, more)
	assert.Equal(t, []string{"cherry"}, names(c, f.name))
	assert.False(t, c.HasMore())
	assert.Equal(t, "e", c.Query().Search)
}

func TestLocalEvaluationWithoutOperations(t *testing.T) {
	f := newFixture(t)
	c := f.open(t, basic(f.store), grid.Options{PageSize: 2})
	assert.Equal(t, planner.Local, c.Plan().Strategy)
	assert.Equal(t, 2, c.Len())

	c.SetFilters([]types.Filter{{ColumnID: f.name, Type: types.FilterContains, Value: "e"}})
	c.SetSort([]types.SortKey{{ColumnID: f.name, Direction: types.Desc}})
	require.NoError(t, c.Flush(alice))

	assert.Equal(t, planner.Local, c.Plan().Strategy)
	assert.Equal(t, []string{"cherry", "apple"}, names(c, f.name))
	assert.Equal(t, 2, c.TotalCount())
}

func TestLocalThresholdPicksLocalForSmallTables(t *testing.T) {
	f := newFixture(t)
	c := f.open(t, f.store, grid.Options{LocalThreshold: -1})

	c.SetSearchTerm("RR")
	require.NoError(t, c.Flush(alice))
	assert.Equal(t, planner.Local, c.Plan().Strategy)
	assert.Equal(t, []string{"cherry"}, names(c, f.name))
}

func TestAddColumn(t *testing.T) {
	f := newFixture(t)
	c := f.open(t, f.store, grid.Options{})

	_, err := c.AddColumn(alice, "   ", types.ColumnText)
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.Len(t, c.Table().Columns, 2)

	col, err := c.AddColumn(alice, "Score", types.ColumnNumber)
	require.NoError(t, err)
	assert.Equal(t, 2, col.Order)

	cols := c.Table().Columns
	require.Len(t, cols, 3)
	assert.Equal(t, "Score", cols[2].Name)
	for _, r := range c.Rows() {
		v, ok := r.Get(col.ID)
		require.True(t, ok, "every row gains the new cell")
		assert.True(t, v.IsNull())
	}
}

func TestMutationPendingGuard(t *testing.T) {
	f := newFixture(t)
	c := f.open(t, f.store, grid.Options{})

	entered, release := f.store.arm("AddRow")
	done := make(chan error, 1)
	go func() {
		_, err := c.AddRow(alice)
		done <- err
	}()
	<-entered

	assert.True(t, c.IsPending("addRow"))
	_, err := c.AddRow(alice)
	assert.ErrorIs(t, err, grid.ErrPending)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, c.IsPending("addRow"))
	assert.Equal(t, 4, c.Len())
}

func TestAddFakeRowsRefreshes(t *testing.T) {
	f := newFixture(t)
	c := f.open(t, f.store, grid.Options{})

	n, err := c.AddFakeRows(alice, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, 13, c.Len())
	assert.Equal(t, 13, c.TotalCount())

	_, err = c.AddFakeRows(alice, 0)
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestCellEditLifecycle(t *testing.T) {
	f := newFixture(t)
	c := f.open(t, f.store, grid.Options{})

	status, err := c.UpdateCell(alice, 0, f.name, "apricot")
	require.NoError(t, err)
	assert.Equal(t, edit.Synced, status)
	assert.Equal(t, 1, f.store.Updates())
	assert.Equal(t, "apricot", names(c, f.name)[0])

	page, err := f.store.GetRows(alice, f.table.ID, 1, "")
	require.NoError(t, err)
	stored, _ := cell.Project(page.Rows[0]).Get(f.name)
	assert.Equal(t, "apricot", stored.Display())

	f.clock.Fire()
	status, err = c.EditState(0, f.name)
	require.NoError(t, err)
	assert.Equal(t, edit.Idle, status)

	// retyping the committed value writes nothing
	status, err = c.UpdateCell(alice, 0, f.name, "apricot")
	require.NoError(t, err)
	assert.Equal(t, edit.Idle, status)
	assert.Equal(t, 1, f.store.Updates())
}

func TestNumberEdits(t *testing.T) {
	f := newFixture(t)
	c := f.open(t, f.store, grid.Options{})
	col, err := c.AddColumn(alice, "Score", types.ColumnNumber)
	require.NoError(t, err)

	status, err := c.UpdateCell(alice, 1, col.ID, "abc")
	require.NoError(t, err)
	assert.Equal(t, edit.Error, status)
	_, editErr := c.EditState(1, col.ID)
	assert.ErrorIs(t, editErr, types.ErrValidation)
	assert.Equal(t, 0, f.store.Updates(), "invalid input never reaches the store")

	f.clock.Fire()
	status, _ = c.EditState(1, col.ID)
	assert.Equal(t, edit.Idle, status)
	row := c.Window(1, 1)
	require.Len(t, row, 1)
	v, _ := row[0].Get(col.ID)
	assert.True(t, v.IsNull())

	status, err = c.UpdateCell(alice, 1, col.ID, " 1e3 ")
	require.NoError(t, err)
	assert.Equal(t, edit.Synced, status)
	row = c.Window(1, 1)
	v, _ = row[0].Get(col.ID)
	assert.Equal(t, "1000", v.Display())
}

func TestMatchesHighlightLoadedCells(t *testing.T) {
	f := newFixture(t)
	c := f.open(t, basic(f.store), grid.Options{})
	assert.Nil(t, c.Matches())

	c.SetSearchTerm("AN")
	require.NoError(t, c.Flush(alice))

	assert.Equal(t, []grid.Coord{{Index: 0, RowIndex: 1, ColumnID: f.name}}, c.Matches())
}

func TestScrollFetchesNearTheEnd(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.AddFakeRows(alice, f.table.ID, 247)
	require.NoError(t, err)

	c := f.open(t, f.store, grid.Options{PageSize: 100, Lookahead: 10})
	require.Equal(t, 100, c.Len())

	window, err := c.Scroll(alice, 0, 49)
	require.NoError(t, err)
	assert.Len(t, window, 50)
	assert.Equal(t, 100, c.Len(), "far from the end")

	_, err = c.Scroll(alice, 50, 95)
	require.NoError(t, err)
	assert.Equal(t, 200, c.Len())

	_, err = c.Scroll(alice, 150, 199)
	require.NoError(t, err)
	assert.Equal(t, 250, c.Len())
	assert.False(t, c.HasMore())
}

func TestViewStates(t *testing.T) {
	f := newFixture(t)

	missing := grid.New(f.store, "no-such-table", grid.Options{Scheduler: f.clock.schedule})
	err := missing.Open(alice)
	assert.ErrorIs(t, err, types.ErrNotFound)
	state, _ := missing.State()
	assert.Equal(t, grid.NotFound, state)

	bob := types.WithCaller(context.Background(), "bob")
	foreign := grid.New(f.store, f.table.ID, grid.Options{Scheduler: f.clock.schedule})
	assert.ErrorIs(t, foreign.Open(bob), types.ErrNotFound)

	anon := grid.New(f.store, f.table.ID, grid.Options{Scheduler: f.clock.schedule})
	assert.ErrorIs(t, anon.Open(context.Background()), types.ErrUnauthorized)
	state, _ = anon.State()
	assert.Equal(t, grid.Unauthorized, state)
}
