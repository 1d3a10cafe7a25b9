// Package edit implements the per-cell edit lifecycle:
//
//	Idle -> Pending -> Saving -> Synced -> Idle
//	                         \-> Error  -> Idle
//
// A write is only issued on blur, and only when the displayed value differs
// from the value that was committed when editing began.
package edit

import (
	"context"
	"sync"
	"time"

	"github.com/zakazai/ulin-grid/internal/cell"
	"github.com/zakazai/ulin-grid/internal/types"
)

// Status is the lifecycle state of one cell edit.
type Status int

const (
	Idle Status = iota
	Pending
	Saving
	Synced
	Error
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Saving:
		return "saving"
	case Synced:
		return "synced"
	case Error:
		return "error"
	}
	return "unknown"
}

// DefaultWindow is how long Synced and Error stay visible before reverting.
const DefaultWindow = 1500 * time.Millisecond

// Key addresses the cell being edited. RowIndex is the row's order.
type Key struct {
	TableID  string
	RowIndex int
	ColumnID string
}

// WriteFunc persists a raw value for a cell.
type WriteFunc func(ctx context.Context, key Key, raw string) error

// Scheduler runs f after d and returns a function that cancels it.
type Scheduler func(d time.Duration, f func()) (cancel func())

// AfterFunc is the wall-clock Scheduler.
func AfterFunc(d time.Duration, f func()) func() {
	t := time.AfterFunc(d, f)
	return func() { t.Stop() }
}

// Options configures a Cell.
type Options struct {
	Window    time.Duration
	Scheduler Scheduler
	// OnTransition is called outside the cell lock after every status change.
	OnTransition func(key Key, from, to Status)
	// KeepFailedInput leaves the user's rejected text in place after an
	// Error reverts to Idle instead of restoring the committed value.
	KeepFailedInput bool
}

// Cell is the edit record for one (table, row, column).
type Cell struct {
	mu        sync.Mutex
	key       Key
	colType   types.ColumnType
	committed types.Value
	display   string
	status    Status
	err       error
	seq       uint64
	cancel    func()
	opts      Options
}

type transition struct {
	from, to Status
}

// New starts an Idle edit record over the committed value.
func New(key Key, committed types.Value, opts Options) *Cell {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Scheduler == nil {
		opts.Scheduler = AfterFunc
	}
	return &Cell{
		key:       key,
		colType:   committed.Type(),
		committed: committed,
		display:   committed.Display(),
		opts:      opts,
	}
}

func (c *Cell) Key() Key { return c.key }

// Input records a keystroke. Diverging from the committed value enters
// Pending; typing back to it returns to Idle. While Saving only the
// displayed text changes, and the cell returns to Pending after the save if
// that text differs from what was written.
func (c *Cell) Input(raw string) {
	c.mu.Lock()
	c.display = raw
	if c.status == Saving {
		c.mu.Unlock()
		return
	}
	c.stopTimerLocked()
	next := Idle
	if raw != c.committed.Display() {
		next = Pending
	}
	tr := c.setLocked(next)
	c.mu.Unlock()
	c.notify(tr)
}

// Blur commits the displayed value through write. It is a no-op while a
// write for this cell is already in flight, or when the value is unchanged.
// Invalid input for the column type fails without calling write.
func (c *Cell) Blur(ctx context.Context, write WriteFunc) error {
	c.mu.Lock()
	if c.status == Saving {
		c.mu.Unlock()
		return nil
	}
	raw := c.display
	if raw == c.committed.Display() {
		tr := c.setLocked(Idle)
		c.mu.Unlock()
		c.notify(tr)
		return nil
	}

	v, err := cell.Normalize(c.colType, raw)
	if err != nil {
		tr := c.failLocked(err)
		c.mu.Unlock()
		c.notify(tr)
		return err
	}

	c.stopTimerLocked()
	tr := c.setLocked(Saving)
	c.mu.Unlock()
	c.notify(tr)

	err = write(ctx, c.key, raw)

	c.mu.Lock()
	if err != nil {
		tr = c.failLocked(err)
	} else {
		c.committed = v
		c.err = nil
		switch {
		case c.display == raw:
			c.display = v.Display()
			tr = c.setLocked(Synced)
			c.scheduleRevertLocked()
		case c.display == v.Display():
			tr = c.setLocked(Synced)
			c.scheduleRevertLocked()
		default:
			// typed during the save; the new text still needs its own blur
			tr = c.setLocked(Pending)
		}
	}
	c.mu.Unlock()
	c.notify(tr)
	return err
}

// Reconcile adopts a value refetched from the store. It only applies while
// the cell is not being edited.
func (c *Cell) Reconcile(v types.Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != Idle && c.status != Synced {
		return
	}
	c.committed = v
	c.display = v.Display()
}

func (c *Cell) failLocked(err error) transition {
	c.stopTimerLocked()
	c.err = err
	tr := c.setLocked(Error)
	c.scheduleRevertLocked()
	return tr
}

func (c *Cell) scheduleRevertLocked() {
	c.seq++
	seq := c.seq
	c.cancel = c.opts.Scheduler(c.opts.Window, func() { c.revert(seq) })
}

func (c *Cell) revert(seq uint64) {
	c.mu.Lock()
	if seq != c.seq || (c.status != Synced && c.status != Error) {
		c.mu.Unlock()
		return
	}
	if c.status == Error && !c.opts.KeepFailedInput {
		c.display = c.committed.Display()
	}
	c.cancel = nil
	tr := c.setLocked(Idle)
	c.mu.Unlock()
	c.notify(tr)
}

func (c *Cell) stopTimerLocked() {
	c.seq++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Cell) setLocked(to Status) transition {
	tr := transition{from: c.status, to: to}
	c.status = to
	return tr
}

func (c *Cell) notify(tr transition) {
	if tr.from == tr.to || c.opts.OnTransition == nil {
		return
	}
	c.opts.OnTransition(c.key, tr.from, tr.to)
}

func (c *Cell) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Display is the text currently shown in the cell.
func (c *Cell) Display() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.display
}

// Committed is the last value confirmed by the store.
func (c *Cell) Committed() types.Value {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.committed
}

// Err is the failure that put the cell into Error, if any.
func (c *Cell) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
