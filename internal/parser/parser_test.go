package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zakazai/ulin-grid/internal/types"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Statement
		wantErr bool
	}{
		{
			name:  "Filter contains",
			input: "FILTER Name ~ 'an'",
			want:  &FilterStatement{Column: "Name", Type: types.FilterContains, Value: "an"},
		},
		{
			name:  "Filter greater than number",
			input: "filter 'Unit Price' > 10.5",
			want:  &FilterStatement{Column: "Unit Price", Type: types.FilterGreaterThan, Value: "10.5"},
		},
		{
			name:  "Filter not contains",
			input: "FILTER Name !~ x",
			want:  &FilterStatement{Column: "Name", Type: types.FilterNotContains, Value: "x"},
		},
		{
			name:  "Filter clear",
			input: "FILTER Name CLEAR",
			want:  &FilterStatement{Column: "Name", Clear: true},
		},
		{
			name:  "Sort multiple keys",
			input: "SORT Age DESC, Name",
			want: &SortStatement{Keys: []SortTerm{
				{Column: "Age", Direction: types.Desc},
				{Column: "Name", Direction: types.Asc},
			}},
		},
		{
			name:  "Search",
			input: "SEARCH 'apple pie'",
			want:  &SearchStatement{Term: "apple pie"},
		},
		{
			name:  "Search without term",
			input: "SEARCH;",
			want:  &SearchStatement{},
		},
		{
			name:  "Clear sort",
			input: "CLEAR SORT",
			want:  &ClearStatement{What: "SORT"},
		},
		{
			name:  "Show default",
			input: "SHOW",
			want:  &ShowStatement{Count: DefaultShowCount},
		},
		{
			name:  "Show range",
			input: "SHOW 100 5",
			want:  &ShowStatement{First: 100, Count: 5},
		},
		{
			name:  "Set cell",
			input: "SET 3 Score = 1e3",
			want:  &SetStatement{Row: 3, Column: "Score", Value: "1e3"},
		},
		{
			name:  "Set cell empty",
			input: "SET 0 Note =",
			want:  &SetStatement{Row: 0, Column: "Note"},
		},
		{
			name:  "Add number column",
			input: "ADD COLUMN Score NUMBER",
			want:  &AddColumnStatement{Name: "Score", Type: types.ColumnNumber},
		},
		{
			name:  "Add column defaults to text",
			input: "ADD COLUMN 'Due date'",
			want:  &AddColumnStatement{Name: "Due date", Type: types.ColumnText},
		},
		{
			name:  "Add row",
			input: "add row",
			want:  &AddRowStatement{},
		},
		{
			name:  "Fake rows",
			input: "FAKE 5000",
			want:  &FakeStatement{Count: 5000},
		},
		{
			name:  "Create table",
			input: "CREATE TABLE Tasks IN Work",
			want:  &CreateTableStatement{Name: "Tasks", Workspace: "Work"},
		},
		{
			name:  "Export adds extension",
			input: "EXPORT 'out/view'",
			want:  &ExportStatement{Path: "out/view.xlsx"},
		},
		{
			name:  "Quit",
			input: "QUIT",
			want:  &ExitStatement{},
		},
		{
			name:    "Unknown command",
			input:   "SELECT * FROM t",
			wantErr: true,
		},
		{
			name:    "Filter without operator",
			input:   "FILTER Name 'x'",
			wantErr: true,
		},
		{
			name:    "Trailing tokens",
			input:   "NEXT 5",
			wantErr: true,
		},
		{
			name:    "Set without equals",
			input:   "SET 1 Name 'x'",
			wantErr: true,
		},
		{
			name:    "Unterminated string",
			input:   "SEARCH 'abc",
			wantErr: true,
		},
		{
			name:    "Empty",
			input:   "   ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
