package grid

import (
	"sync"
	"time"

	"github.com/zakazai/ulin-grid/internal/edit"
)

// debouncer runs at most one pending action. Each Trigger replaces the
// pending action and restarts its delay.
type debouncer struct {
	mu       sync.Mutex
	schedule edit.Scheduler
	cancel   func()
	action   func()
	seq      uint64
}

func newDebouncer(schedule edit.Scheduler) *debouncer {
	return &debouncer{schedule: schedule}
}

func (d *debouncer) Trigger(delay time.Duration, action func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.action = action
	d.seq++
	seq := d.seq
	d.cancel = d.schedule(delay, func() { d.fire(seq) })
}

func (d *debouncer) fire(seq uint64) {
	d.mu.Lock()
	if seq != d.seq || d.action == nil {
		d.mu.Unlock()
		return
	}
	action := d.action
	d.action = nil
	d.cancel = nil
	d.mu.Unlock()
	action()
}

// Pending reports whether an action is waiting.
func (d *debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.action != nil
}

// Cancel drops the pending action without running it.
func (d *debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.action = nil
}

func (d *debouncer) stopLocked() {
	d.seq++
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
