package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zakazai/ulin-grid/internal/types"
)

func TestOrderCache(t *testing.T) {
	c := newOrderCache(2)
	a := orderKey("t1", types.Query{Search: "a"})
	b := orderKey("t1", types.Query{Search: "b"})
	other := orderKey("t2", types.Query{Search: "a"})
	assert.NotEqual(t, a, other)

	c.put(a, 1, []string{"r1"})
	ids, ok := c.get(a, 1)
	assert.True(t, ok)
	assert.Equal(t, []string{"r1"}, ids)

	_, ok = c.get(a, 2)
	assert.False(t, ok, "a newer table version misses")

	c.put(a, 2, []string{"r2"})
	c.put(a, 1, []string{"old"})
	ids, _ = c.get(a, 2)
	assert.Equal(t, []string{"r2"}, ids, "an older computation never replaces a newer one")

	c.put(b, 1, nil)
	c.put(other, 1, nil)
	_, ok = c.get(a, 2)
	assert.False(t, ok, "oldest entry is evicted")
	_, ok = c.get(other, 1)
	assert.True(t, ok)

	c.clear()
	_, ok = c.get(other, 1)
	assert.False(t, ok)
}
