package query_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zakazai/ulin-grid/internal/query"
	"github.com/zakazai/ulin-grid/internal/sorting"
	"github.com/zakazai/ulin-grid/internal/types"
)

var cols = types.Columns{
	{ID: "name", Name: "Name", Type: types.ColumnText, Order: 0},
	{ID: "n", Name: "N", Type: types.ColumnNumber, Order: 1},
}

func makeRows(count int) []types.Row {
	rows := make([]types.Row, count)
	for i := range rows {
		id := fmt.Sprintf("r%03d", i)
		rows[i] = types.Row{ID: id, Order: i, Cells: []types.Cell{
			{ColumnID: "name", Value: types.Text(fmt.Sprintf("item %d", i%7))},
			{ColumnID: "n", Value: types.Number(float64(i % 10))},
		}}
	}
	return rows
}

func TestPaginationCompleteness(t *testing.T) {
	rows := makeRows(53)
	cmp := sorting.New("und")
	q := types.Query{
		Filters: []types.Filter{{ColumnID: "n", Type: types.FilterGreaterThan, Value: "2"}},
		Sort:    []types.SortKey{{ColumnID: "name", Direction: types.Desc}},
	}

	full, err := query.Run(cols, rows, types.PageRequest{Limit: 1000, Query: q}, cmp)
	require.NoError(t, err)
	assert.False(t, full.HasNextPage)

	var paged []string
	seen := map[string]bool{}
	cursor := ""
	for {
		page, err := query.Run(cols, rows, types.PageRequest{Limit: 4, Cursor: cursor, Query: q}, cmp)
		require.NoError(t, err)
		assert.Equal(t, full.TotalCount, page.TotalCount)
		for _, r := range page.Rows {
			assert.False(t, seen[r.ID], "duplicate %s", r.ID)
			seen[r.ID] = true
			paged = append(paged, r.ID)
		}
		if !page.HasNextPage {
			break
		}
		cursor = page.NextCursor
	}

	var want []string
	for _, r := range full.Rows {
		want = append(want, r.ID)
	}
	assert.Equal(t, want, paged)
}

func TestRunOrdersByRowOrderWithoutSort(t *testing.T) {
	rows := makeRows(5)
	rows[0], rows[4] = rows[4], rows[0]

	page, err := query.Run(cols, rows, types.PageRequest{Limit: 10}, sorting.New("und"))
	require.NoError(t, err)
	for i, r := range page.Rows {
		assert.Equal(t, i, r.Order)
	}
}

func TestSearchNarrowsRows(t *testing.T) {
	page, err := query.Run(cols, makeRows(20), types.PageRequest{Limit: 100, Query: types.Query{Search: "ITEM 3"}}, sorting.New("und"))
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalCount)
}

func TestPaginate(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}

	start, end, next, err := query.Paginate(ids, "", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids[start:end])
	assert.Equal(t, "b", next)

	start, end, next, err = query.Paginate(ids, "d", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"e"}, ids[start:end])
	assert.Empty(t, next)

	_, _, _, err = query.Paginate(ids, "zz", 2)
	assert.ErrorIs(t, err, types.ErrValidation)

	assert.Equal(t, types.MaxPageSize, query.ClampLimit(5000))
	assert.Equal(t, types.DefaultPageSize, query.ClampLimit(0))
}
