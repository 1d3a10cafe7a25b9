package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zakazai/ulin-grid/internal/types"
)

func TestCreatePlan(t *testing.T) {
	cols := types.Columns{{ID: "age", Type: types.ColumnNumber}}
	filtered := types.Query{Filters: []types.Filter{{ColumnID: "age", Type: types.FilterGreaterThan, Value: "30"}}}

	tests := []struct {
		name string
		q    types.Query
		caps Capabilities
		want Strategy
	}{
		{
			name: "no operations support",
			q:    filtered,
			caps: Capabilities{Operations: false, RowCount: 1 << 20},
			want: Local,
		},
		{
			name: "small table",
			q:    filtered,
			caps: Capabilities{Operations: true, RowCount: 10},
			want: Local,
		},
		{
			name: "large table with filter",
			q:    filtered,
			caps: Capabilities{Operations: true, RowCount: 50000},
			want: Remote,
		},
		{
			name: "unknown size with filter",
			q:    filtered,
			caps: Capabilities{Operations: true, RowCount: -1},
			want: Remote,
		},
		{
			name: "large table without query",
			q:    types.Query{},
			caps: Capabilities{Operations: true, RowCount: 50000},
			want: Plain,
		},
		{
			name: "stale column only",
			q:    types.Query{Sort: []types.SortKey{{ColumnID: "gone", Direction: types.Asc}}},
			caps: Capabilities{Operations: true, RowCount: 50000},
			want: Plain,
		},
	}

	p := NewPlanner(DefaultLocalThreshold)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.CreatePlan(tt.q, cols, tt.caps)
			assert.Equal(t, tt.want, got.Strategy, got.Reason)
			assert.NotEmpty(t, got.Reason)
		})
	}
}

func TestZeroThresholdPrefersRemote(t *testing.T) {
	p := NewPlanner(0)
	got := p.CreatePlan(types.Query{Search: "x"}, nil, Capabilities{Operations: true, RowCount: 3})
	assert.Equal(t, Remote, got.Strategy)
}

func TestIsOperational(t *testing.T) {
	cols := types.Columns{{ID: "name", Type: types.ColumnText}}
	assert.False(t, IsOperational(types.Query{}, cols))
	assert.False(t, IsOperational(types.Query{Filters: []types.Filter{{ColumnID: "name", Type: types.FilterEquals}}}, cols))
	assert.True(t, IsOperational(types.Query{Filters: []types.Filter{{ColumnID: "name", Type: types.FilterEquals, Value: "a"}}}, cols))
	assert.True(t, IsOperational(types.Query{Search: "a"}, cols))
}
