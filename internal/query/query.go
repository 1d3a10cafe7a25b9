// Package query runs a filtered, sorted, searched page request over an
// in-memory row set. Stores that hold rows in memory and the grid's local
// fallback both evaluate through Run, so they page identically.
package query

import (
	"sort"

	"github.com/zakazai/ulin-grid/internal/cell"
	"github.com/zakazai/ulin-grid/internal/filter"
	"github.com/zakazai/ulin-grid/internal/sorting"
	"github.com/zakazai/ulin-grid/internal/types"
)

// ClampLimit bounds a requested page size to [1, MaxPageSize].
func ClampLimit(limit int) int {
	if limit <= 0 {
		return types.DefaultPageSize
	}
	if limit > types.MaxPageSize {
		return types.MaxPageSize
	}
	return limit
}

// Run evaluates req against rows, which may be in any order; the base order
// before sorting is ascending row order.
func Run(cols types.Columns, rows []types.Row, req types.PageRequest, cmp *sorting.Comparator) (types.RowPage, error) {
	base := make([]types.Row, len(rows))
	copy(base, rows)
	sort.SliceStable(base, func(i, j int) bool { return base[i].Order < base[j].Order })

	byID := make(map[string]types.Row, len(base))
	resolved := filter.Resolve(req.Filters, cols)
	views := make([]types.RowView, 0, len(base))
	for _, r := range base {
		v := cell.Project(r)
		if !filter.MatchesResolved(v, resolved) || !filter.Search(v, req.Search) {
			continue
		}
		byID[r.ID] = r
		views = append(views, v)
	}

	if len(req.Sort) > 0 {
		cmp.Sort(views, req.Sort, cols)
	}

	ids := make([]string, len(views))
	for i, v := range views {
		ids[i] = v.RowID
	}

	start, end, next, err := Paginate(ids, req.Cursor, ClampLimit(req.Limit))
	if err != nil {
		return types.RowPage{}, err
	}

	page := types.RowPage{
		Rows:        make([]types.Row, 0, end-start),
		NextCursor:  next,
		HasNextPage: next != "",
		TotalCount:  len(ids),
	}
	for _, id := range ids[start:end] {
		page.Rows = append(page.Rows, byID[id])
	}
	return page, nil
}

// Paginate returns the [start, end) slice of ids following cursor and the
// cursor for the page after it (empty when this is the last page).
func Paginate(ids []string, cursor string, limit int) (start, end int, next string, err error) {
	if cursor != "" {
		start = -1
		for i, id := range ids {
			if id == cursor {
				start = i + 1
				break
			}
		}
		if start < 0 {
			return 0, 0, "", types.Validationf("unknown cursor %q", cursor)
		}
	}
	end = start + limit
	if end >= len(ids) {
		return start, len(ids), "", nil
	}
	return start, end, ids[end-1], nil
}
