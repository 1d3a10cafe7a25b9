package filter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zakazai/ulin-grid/internal/filter"
	"github.com/zakazai/ulin-grid/internal/types"
)

var cols = types.Columns{
	{ID: "name", Name: "Name", Type: types.ColumnText, Order: 0},
	{ID: "age", Name: "Age", Type: types.ColumnNumber, Order: 1},
}

func row(name string, age *float64) types.RowView {
	values := map[string]types.Value{"name": types.Text(name)}
	if age != nil {
		values["age"] = types.Number(*age)
	} else {
		values["age"] = types.Null(types.ColumnNumber)
	}
	return types.RowView{RowID: name, Values: values}
}

func num(f float64) *float64 { return &f }

func TestMatchesText(t *testing.T) {
	r := row("Grace Hopper", num(85))

	tests := []struct {
		name   string
		filter types.Filter
		want   bool
	}{
		{"Equals_case_insensitive", types.Filter{ColumnID: "name", Type: types.FilterEquals, Value: "grace HOPPER"}, true},
		{"Equals_mismatch", types.Filter{ColumnID: "name", Type: types.FilterEquals, Value: "grace"}, false},
		{"NotEquals", types.Filter{ColumnID: "name", Type: types.FilterNotEquals, Value: "ada"}, true},
		{"Contains", types.Filter{ColumnID: "name", Type: types.FilterContains, Value: "HOP"}, true},
		{"NotContains", types.Filter{ColumnID: "name", Type: types.FilterNotContains, Value: "hop"}, false},
		{"GreaterThan_on_text_is_noop", types.Filter{ColumnID: "name", Type: types.FilterGreaterThan, Value: "z"}, true},
		{"Empty_value_is_noop", types.Filter{ColumnID: "name", Type: types.FilterEquals, Value: ""}, true},
		{"Empty_type_is_noop", types.Filter{ColumnID: "name", Value: "nobody"}, true},
		{"Stale_column_is_noop", types.Filter{ColumnID: "gone", Type: types.FilterEquals, Value: "x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, filter.Matches(r, []types.Filter{tt.filter}, cols))
		})
	}
}

func TestMatchesNumber(t *testing.T) {
	tests := []struct {
		name   string
		age    *float64
		filter types.Filter
		want   bool
	}{
		{"Equals", num(30), types.Filter{ColumnID: "age", Type: types.FilterEquals, Value: "30.0"}, true},
		{"NotEquals", num(30), types.Filter{ColumnID: "age", Type: types.FilterNotEquals, Value: "30"}, false},
		{"GreaterThan_strict", num(30), types.Filter{ColumnID: "age", Type: types.FilterGreaterThan, Value: "30"}, false},
		{"LessThan", num(25), types.Filter{ColumnID: "age", Type: types.FilterLessThan, Value: "30"}, true},
		{"Malformed_operand_is_noop", num(25), types.Filter{ColumnID: "age", Type: types.FilterGreaterThan, Value: "thirty"}, true},
		{"Contains_on_number_is_noop", num(25), types.Filter{ColumnID: "age", Type: types.FilterContains, Value: "9"}, true},
		{"Null_fails_greaterThan", nil, types.Filter{ColumnID: "age", Type: types.FilterGreaterThan, Value: "0"}, false},
		{"Null_fails_equals", nil, types.Filter{ColumnID: "age", Type: types.FilterEquals, Value: "0"}, false},
		{"Null_passes_notEquals", nil, types.Filter{ColumnID: "age", Type: types.FilterNotEquals, Value: "0"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, filter.Matches(row("x", tt.age), []types.Filter{tt.filter}, cols))
		})
	}
}

func TestGreaterThanScenario(t *testing.T) {
	rows := []types.RowView{row("a", num(25)), row("b", num(30)), row("c", num(35)), row("d", nil)}
	filters := []types.Filter{{ColumnID: "age", Type: types.FilterGreaterThan, Value: "30"}}

	var got []string
	for _, r := range rows {
		if filter.Matches(r, filters, cols) {
			got = append(got, r.RowID)
		}
	}
	assert.Equal(t, []string{"c"}, got)
}

func TestConjunction(t *testing.T) {
	rows := []types.RowView{
		row("Ada", num(36)), row("Alan", num(41)), row("Grace", num(85)), row("Adele", nil),
	}
	filters := []types.Filter{
		{ColumnID: "name", Type: types.FilterContains, Value: "a"},
		{ColumnID: "age", Type: types.FilterLessThan, Value: "50"},
		{ColumnID: "removed", Type: types.FilterEquals, Value: "whatever"},
	}

	for _, r := range rows {
		each := true
		for _, f := range filters {
			each = each && filter.Matches(r, []types.Filter{f}, cols)
		}
		assert.Equal(t, each, filter.Matches(r, filters, cols), r.RowID)
	}
}

func TestSearch(t *testing.T) {
	r := row("Grace", num(12.5))
	assert.True(t, filter.Search(r, "RAC"))
	assert.True(t, filter.Search(r, "12.5"))
	assert.True(t, filter.Search(r, ""))
	assert.False(t, filter.Search(r, "zzz"))
	assert.True(t, filter.Hit(types.Text("Grace"), "grace"))
	assert.False(t, filter.Hit(types.Text("Grace"), ""))
}

func TestCompile(t *testing.T) {
	p := filter.Compile([]types.Filter{
		{ColumnID: "name", Type: types.FilterContains, Value: "AB"},
		{ColumnID: "age", Type: types.FilterNotEquals, Value: "3"},
		{ColumnID: "age", Type: types.FilterGreaterThan, Value: "bad"},
	}, cols)

	assert.Contains(t, p.SQL, "instr(c.folded, ?) > 0")
	assert.Contains(t, p.SQL, "c.number_value IS NULL OR c.number_value <> ?")
	assert.Equal(t, []interface{}{"name", "ab", "age", 3.0}, p.Args)

	assert.True(t, filter.Compile(nil, cols).Empty())
	assert.True(t, filter.CompileSearch("").Empty())

	joined := filter.And(p, filter.CompileSearch("X"))
	assert.Equal(t, "x", joined.Args[len(joined.Args)-1])
}
