package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zakazai/ulin-grid/internal/lexer"
)

func TestLexer(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []lexer.Token
	}{
		{
			name:  "Filter_contains",
			input: "filter Name ~ 'ann'",
			expected: []lexer.Token{
				{Type: lexer.KEYWORD, Literal: "FILTER"},
				{Type: lexer.IDENTIFIER, Literal: "Name"},
				{Type: lexer.OPERATOR, Literal: "~"},
				{Type: lexer.STRING, Literal: "ann"},
			},
		},
		{
			name:  "Negated_operators",
			input: "!= !~",
			expected: []lexer.Token{
				{Type: lexer.OPERATOR, Literal: "!="},
				{Type: lexer.OPERATOR, Literal: "!~"},
			},
		},
		{
			name:  "Sort_keys",
			input: "SORT Age DESC, name asc;",
			expected: []lexer.Token{
				{Type: lexer.KEYWORD, Literal: "SORT"},
				{Type: lexer.IDENTIFIER, Literal: "Age"},
				{Type: lexer.KEYWORD, Literal: "DESC"},
				{Type: lexer.COMMA, Literal: ","},
				{Type: lexer.IDENTIFIER, Literal: "name"},
				{Type: lexer.KEYWORD, Literal: "ASC"},
				{Type: lexer.SEMICOLON, Literal: ";"},
			},
		},
		{
			name:  "Numbers",
			input: "SET 2 Score = -1.5e3",
			expected: []lexer.Token{
				{Type: lexer.KEYWORD, Literal: "SET"},
				{Type: lexer.NUMBER, Literal: "2"},
				{Type: lexer.IDENTIFIER, Literal: "Score"},
				{Type: lexer.OPERATOR, Literal: "="},
				{Type: lexer.NUMBER, Literal: "-1.5e3"},
			},
		},
		{
			name:  "Escaped_quote",
			input: `SEARCH "say \"hi\""`,
			expected: []lexer.Token{
				{Type: lexer.KEYWORD, Literal: "SEARCH"},
				{Type: lexer.STRING, Literal: `say "hi"`},
			},
		},
		{
			name:  "Unicode_identifier",
			input: "USE café-2",
			expected: []lexer.Token{
				{Type: lexer.KEYWORD, Literal: "USE"},
				{Type: lexer.IDENTIFIER, Literal: "café-2"},
			},
		},
		{
			name:  "Unterminated_string",
			input: "SEARCH 'abc",
			expected: []lexer.Token{
				{Type: lexer.KEYWORD, Literal: "SEARCH"},
				{Type: lexer.ILLEGAL, Literal: "'abc"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := lexer.New(tt.input)
			tokens := []lexer.Token{}
			for {
				tok := l.NextToken()
				tokens = append(tokens, tok)
				if tok.Type == lexer.EOF {
					break
				}
			}
			assert.Equal(t, tt.expected, tokens[:len(tokens)-1])
		})
	}
}
