package sorting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zakazai/ulin-grid/internal/sorting"
	"github.com/zakazai/ulin-grid/internal/types"
)

var cols = types.Columns{
	{ID: "name", Name: "Name", Type: types.ColumnText, Order: 0},
	{ID: "age", Name: "Age", Type: types.ColumnNumber, Order: 1},
}

func person(id string, age float64, name string) types.RowView {
	return types.RowView{RowID: id, Values: map[string]types.Value{
		"name": types.Text(name),
		"age":  types.Number(age),
	}}
}

func ids(rows []types.RowView) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.RowID
	}
	return out
}

func TestMultiKeyScenario(t *testing.T) {
	rows := []types.RowView{person("1", 30, "B"), person("2", 30, "A"), person("3", 20, "C")}
	keys := []types.SortKey{{ColumnID: "age", Direction: types.Desc}, {ColumnID: "name", Direction: types.Asc}}

	sorting.New("und").Sort(rows, keys, cols)
	assert.Equal(t, []string{"2", "1", "3"}, ids(rows))
}

func TestStableWhenTied(t *testing.T) {
	rows := []types.RowView{person("a", 1, "x"), person("b", 1, "X"), person("c", 1, "x")}
	c := sorting.New("und")

	c.Sort(rows, []types.SortKey{{ColumnID: "name"}}, cols)
	assert.Equal(t, []string{"a", "b", "c"}, ids(rows))

	c.Sort(rows, nil, cols)
	assert.Equal(t, []string{"a", "b", "c"}, ids(rows))

	c.Sort(rows, []types.SortKey{{ColumnID: "gone", Direction: types.Desc}}, cols)
	assert.Equal(t, []string{"a", "b", "c"}, ids(rows))
}

func TestTextIsCaseInsensitive(t *testing.T) {
	rows := []types.RowView{person("1", 0, "banana"), person("2", 0, "Apple"), person("3", 0, "cherry")}
	sorting.New("en").Sort(rows, []types.SortKey{{ColumnID: "name", Direction: types.Asc}}, cols)
	assert.Equal(t, []string{"2", "1", "3"}, ids(rows))
}

func TestNullsCompareAsZero(t *testing.T) {
	null := types.RowView{RowID: "n", Values: map[string]types.Value{
		"name": types.Null(types.ColumnText),
		"age":  types.Null(types.ColumnNumber),
	}}
	rows := []types.RowView{person("pos", 5, "b"), null, person("neg", -5, "a")}
	c := sorting.New("und")

	c.Sort(rows, []types.SortKey{{ColumnID: "age", Direction: types.Asc}}, cols)
	assert.Equal(t, []string{"neg", "n", "pos"}, ids(rows))

	c.Sort(rows, []types.SortKey{{ColumnID: "name", Direction: types.Asc}}, cols)
	assert.Equal(t, "n", rows[0].RowID)
}

func TestMonotonic(t *testing.T) {
	rows := []types.RowView{}
	for i, a := range []float64{5, 3, 9, 3, -1, 7, 0} {
		rows = append(rows, person(string(rune('a'+i)), a, ""))
	}
	c := sorting.New("und")

	c.Sort(rows, []types.SortKey{{ColumnID: "age", Direction: types.Desc}}, cols)
	for i := 1; i < len(rows); i++ {
		prev, _ := rows[i-1].Values["age"].Number()
		cur, _ := rows[i].Values["age"].Number()
		assert.GreaterOrEqual(t, prev, cur)
	}
}

func TestCompareAndNormalize(t *testing.T) {
	c := sorting.New("und")
	keys := []types.SortKey{{ColumnID: "age", Direction: types.Desc}}
	assert.Equal(t, -1, c.Compare(person("a", 2, ""), person("b", 1, ""), keys, cols))
	assert.Equal(t, 0, c.Compare(person("a", 2, ""), person("b", 2, ""), keys, cols))

	got := sorting.Normalize([]types.SortKey{{ColumnID: "a"}, {ColumnID: "a", Direction: types.Desc}, {ColumnID: "b", Direction: types.Desc}})
	assert.Equal(t, []types.SortKey{{ColumnID: "a", Direction: types.Asc}, {ColumnID: "b", Direction: types.Desc}}, got)
}
