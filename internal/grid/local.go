package grid

import (
	"context"
	"sync"

	"github.com/zakazai/ulin-grid/internal/types"
)

// localSource caches a whole table, loaded through plain pagination, for
// in-process evaluation.
type localSource struct {
	mu     sync.Mutex
	rows   []types.Row
	loaded bool
	gen    uint64
}

func (l *localSource) load(ctx context.Context, r Backend, tableID string, pageSize int) ([]types.Row, error) {
	l.mu.Lock()
	if l.loaded {
		rows := l.rows
		l.mu.Unlock()
		return rows, nil
	}
	gen := l.gen
	l.mu.Unlock()

	var rows []types.Row
	cursor := ""
	for {
		page, err := r.GetRows(ctx, tableID, pageSize, cursor)
		if err != nil {
			return nil, err
		}
		rows = append(rows, page.Rows...)
		if !page.HasNextPage || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	// an invalidation during the load means rows may already be stale
	if gen == l.gen {
		l.rows = rows
		l.loaded = true
	}
	return rows, nil
}

func (l *localSource) invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.rows = nil
	l.loaded = false
}
