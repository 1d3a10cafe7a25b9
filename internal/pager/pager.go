// Package pager merges successive row pages into one logical, append-only
// sequence and decides when the next page should be fetched.
package pager

import (
	"sync"

	"github.com/zakazai/ulin-grid/internal/cell"
	"github.com/zakazai/ulin-grid/internal/types"
)

// DefaultLookahead is how close to the end of the loaded rows the visible
// window may get before another page is requested.
const DefaultLookahead = 100

// Ticket identifies one in-flight fetch. It carries the state the request
// was issued under so a late response can be recognised as stale.
type Ticket struct {
	Generation uint64
	Cursor     string
	Query      types.Query
}

// Store is the logical row sequence for one table.
type Store struct {
	mu         sync.Mutex
	rows       []types.RowView
	seen       map[string]int
	generation uint64
	query      types.Query
	cursor     string
	exhausted  bool
	inFlight   bool
	total      int
}

// New returns an empty store whose first fetch starts at cursor "".
func New() *Store {
	return &Store{seen: make(map[string]int), total: -1}
}

// Begin grants a fetch ticket for the next page under q. It returns false
// when a fetch is already in flight, the last page has been loaded, or q is
// not the snapshot the sequence was last Reset to.
func (s *Store) Begin(q types.Query) (Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.query.Equal(q) || s.inFlight || s.exhausted {
		return Ticket{}, false
	}
	s.inFlight = true
	return Ticket{Generation: s.generation, Cursor: s.cursor, Query: q}, true
}

// Complete appends page if t is still current. It reports whether the page
// was applied; a stale page is dropped without touching the sequence.
func (s *Store) Complete(t Ticket, page types.RowPage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.Generation != s.generation || !t.Query.Equal(s.query) {
		return false
	}
	s.inFlight = false

	for _, r := range page.Rows {
		if _, dup := s.seen[r.ID]; dup {
			continue
		}
		s.seen[r.ID] = len(s.rows)
		s.rows = append(s.rows, cell.Project(r))
	}
	s.total = page.TotalCount
	if page.HasNextPage && page.NextCursor != "" {
		s.cursor = page.NextCursor
	} else {
		s.exhausted = true
	}
	return true
}

// Fail releases the in-flight guard after a failed fetch so the user can
// retry. A stale ticket is ignored.
func (s *Store) Fail(t Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Generation == s.generation {
		s.inFlight = false
	}
}

// Reset discards every loaded row and invalidates outstanding tickets.
func (s *Store) Reset(q types.Query) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked(q)
}

// Restart discards the sequence and starts again from the first page under
// the same snapshot, provided t is still current. It reports whether it did.
func (s *Store) Restart(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Generation != s.generation {
		return false
	}
	s.resetLocked(s.query)
	return true
}

func (s *Store) resetLocked(q types.Query) {
	s.generation++
	s.query = q
	s.rows = nil
	s.seen = make(map[string]int)
	s.cursor = ""
	s.exhausted = false
	s.inFlight = false
	s.total = -1
}

// ShouldFetchMore reports whether lastVisible is within lookahead rows of
// the end of the loaded sequence and another page can be requested.
func (s *Store) ShouldFetchMore(lastVisible, lookahead int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight || s.exhausted {
		return false
	}
	return lastVisible >= len(s.rows)-lookahead
}

// Window returns copies of the rows with index in [first, last], clamped to
// the loaded range.
func (s *Store) Window(first, last int) []types.RowView {
	s.mu.Lock()
	defer s.mu.Unlock()

	if first < 0 {
		first = 0
	}
	if last >= len(s.rows) {
		last = len(s.rows) - 1
	}
	if first > last {
		return nil
	}
	out := make([]types.RowView, 0, last-first+1)
	for _, r := range s.rows[first : last+1] {
		out = append(out, r.Clone())
	}
	return out
}

// All returns a copy of the loaded sequence.
func (s *Store) All() []types.RowView {
	s.mu.Lock()
	n := len(s.rows)
	s.mu.Unlock()
	return s.Window(0, n-1)
}

// SetValue applies an optimistic point update to the row with the given
// order. It reports whether such a row is loaded.
func (s *Store) SetValue(order int, columnID string, v types.Value) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].Order != order {
			continue
		}
		if _, ok := s.rows[i].Values[columnID]; !ok {
			return false
		}
		s.rows[i] = s.rows[i].Clone()
		s.rows[i].Values[columnID] = v
		return true
	}
	return false
}

// Get returns the loaded row with the given order.
func (s *Store) Get(order int) (types.RowView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.Order == order {
			return r.Clone(), true
		}
	}
	return types.RowView{}, false
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// HasMore reports whether another page exists.
func (s *Store) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.exhausted
}

// TotalCount is the filtered set size from the last page, or -1.
func (s *Store) TotalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Query returns the snapshot the sequence is currently built under.
func (s *Store) Query() types.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}
