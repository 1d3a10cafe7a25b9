package storage

import (
	"encoding/json"
	"sync"

	"github.com/zakazai/ulin-grid/internal/types"
)

// orderCache remembers the ordered matching row ids of recent queries. An
// entry is only served for the table version it was computed at.
type orderCache struct {
	mu      sync.Mutex
	size    int
	entries map[string]orderEntry
	keys    []string // oldest first
}

type orderEntry struct {
	version int64
	ids     []string
}

func newOrderCache(size int) *orderCache {
	return &orderCache{size: size, entries: make(map[string]orderEntry)}
}

func orderKey(tableID string, q types.Query) string {
	b, _ := json.Marshal(q)
	return tableID + "\x00" + string(b)
}

func (c *orderCache) get(key string, version int64) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.version != version {
		return nil, false
	}
	return e.ids, true
}

func (c *orderCache) put(key string, version int64, ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && e.version > version {
		return
	}
	if _, ok := c.entries[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.entries[key] = orderEntry{version: version, ids: ids}
	for len(c.keys) > c.size {
		delete(c.entries, c.keys[0])
		c.keys = c.keys[1:]
	}
}

func (c *orderCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]orderEntry)
	c.keys = nil
}
