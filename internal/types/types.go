package types

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"
)

// ColumnType is the declared type of a column. It is fixed at creation.
type ColumnType string

const (
	ColumnText   ColumnType = "TEXT"
	ColumnNumber ColumnType = "NUMBER"
)

// ParseColumnType accepts TEXT or NUMBER in any case.
func ParseColumnType(s string) (ColumnType, error) {
	switch ColumnType(strings.ToUpper(strings.TrimSpace(s))) {
	case ColumnText:
		return ColumnText, nil
	case ColumnNumber:
		return ColumnNumber, nil
	}
	return "", Validationf("unknown column type %q", s)
}

// Workspace is the top-level container owned by a user.
type Workspace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
	Tables    []Table   `json:"tables,omitempty"`
}

// Table is a named grid of columns and rows. Columns are kept sorted by Order.
// RowCount is filled by table lookups and is -1 when the store cannot tell.
type Table struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	WorkspaceID string  `json:"workspaceId"`
	OwnerID     string  `json:"ownerId"`
	Columns     Columns `json:"columns"`
	RowCount    int     `json:"rowCount"`
}

// Column is a typed field definition with a unique display order.
type Column struct {
	ID      string     `json:"id"`
	TableID string     `json:"tableId"`
	Name    string     `json:"name"`
	Type    ColumnType `json:"type"`
	Order   int        `json:"order"`
}

// Columns is an ordered column set with lookup by id.
type Columns []Column

// Lookup returns the column with the given id.
func (cs Columns) Lookup(id string) (Column, bool) {
	for _, c := range cs {
		if c.ID == id {
			return c, true
		}
	}
	return Column{}, false
}

// ByName finds a column by case-insensitive name.
func (cs Columns) ByName(name string) (Column, bool) {
	for _, c := range cs {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// Sorted returns a copy ordered by Order.
func (cs Columns) Sorted() Columns {
	out := slices.Clone(cs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// NextOrder is max(order)+1, or 0 for an empty set.
func (cs Columns) NextOrder() int {
	next := 0
	for _, c := range cs {
		if c.Order >= next {
			next = c.Order + 1
		}
	}
	return next
}

// Row is an ordered record. Order is assigned once and never renumbered.
type Row struct {
	ID      string `json:"id"`
	TableID string `json:"tableId"`
	Order   int    `json:"order"`
	Cells   []Cell `json:"cells"`
}

// Cell is the value at a (row, column) intersection.
type Cell struct {
	ID       string `json:"id"`
	RowID    string `json:"rowId"`
	ColumnID string `json:"columnId"`
	Value    Value  `json:"value"`
}

// RowView is the logical row view: column id to value, plus the row identity
// needed for cursors and edits.
type RowView struct {
	RowID  string
	Order  int
	Values map[string]Value
}

// Get returns the value for a column, or ok=false if the row has no such cell.
func (v RowView) Get(columnID string) (Value, bool) {
	val, ok := v.Values[columnID]
	return val, ok
}

// Clone copies the value map so point updates do not leak between views.
func (v RowView) Clone() RowView {
	values := make(map[string]Value, len(v.Values))
	for k, val := range v.Values {
		values[k] = val
	}
	return RowView{RowID: v.RowID, Order: v.Order, Values: values}
}

// FilterType names a filter operator.
type FilterType string

const (
	FilterEquals      FilterType = "equals"
	FilterNotEquals   FilterType = "notEquals"
	FilterContains    FilterType = "contains"
	FilterNotContains FilterType = "notContains"
	FilterGreaterThan FilterType = "greaterThan"
	FilterLessThan    FilterType = "lessThan"
)

// Filter is a single per-column predicate. Value is always the raw user string.
type Filter struct {
	ColumnID string     `json:"columnId"`
	Type     FilterType `json:"type"`
	Value    string     `json:"value"`
}

// Direction of a sort key.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortKey is one (column, direction) entry; position in the slice is priority.
type SortKey struct {
	ColumnID  string    `json:"columnId"`
	Direction Direction `json:"direction"`
}

// Query is the filter/sort/search snapshot a page request is evaluated under.
type Query struct {
	Filters []Filter  `json:"filters,omitempty"`
	Sort    []SortKey `json:"sort,omitempty"`
	Search  string    `json:"search,omitempty"`
}

// Equal reports whether two snapshots select the same remote result set.
func (q Query) Equal(o Query) bool {
	return q.Search == o.Search && slices.Equal(q.Filters, o.Filters) && slices.Equal(q.Sort, o.Sort)
}

// IsZero reports whether the query has no filter, sort or search.
func (q Query) IsZero() bool {
	return len(q.Filters) == 0 && len(q.Sort) == 0 && q.Search == ""
}

func (q Query) String() string {
	return fmt.Sprintf("filters=%d sort=%d search=%q", len(q.Filters), len(q.Sort), q.Search)
}

// PageRequest asks for one page of rows under a query.
type PageRequest struct {
	TableID string `json:"tableId"`
	Limit   int    `json:"limit"`
	Cursor  string `json:"cursor,omitempty"`
	Query
}

// RowPage is one fetched page. NextCursor is empty on the last page.
// TotalCount is the size of the filtered set, or -1 when unknown.
type RowPage struct {
	Rows        []Row  `json:"rows"`
	NextCursor  string `json:"nextCursor,omitempty"`
	HasNextPage bool   `json:"hasNextPage"`
	TotalCount  int    `json:"totalCount"`
}

// MaxPageSize caps a single page, MaxFakeRows a single synthetic insert.
const (
	MaxPageSize     = 1000
	DefaultPageSize = 1000
	MaxFakeRows     = 50000
)
