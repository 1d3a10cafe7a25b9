// Package parser turns shell command lines into statements that run against
// an open grid.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zakazai/ulin-grid/internal/lexer"
	"github.com/zakazai/ulin-grid/internal/types"
)

// DefaultShowCount is how many rows SHOW prints without a count.
const DefaultShowCount = 20

var operators = map[string]types.FilterType{
	"=":  types.FilterEquals,
	"!=": types.FilterNotEquals,
	"~":  types.FilterContains,
	"!~": types.FilterNotContains,
	">":  types.FilterGreaterThan,
	"<":  types.FilterLessThan,
}

// New creates a new parser with the given lexer
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.next()
	return p
}

// Parser represents a command parser
type Parser struct {
	l   *lexer.Lexer
	cur lexer.Token
}

func (p *Parser) next() lexer.Token {
	tok := p.cur
	p.cur = p.l.NextToken()
	return tok
}

func (p *Parser) keyword(word string) bool {
	if p.cur.Type == lexer.KEYWORD && p.cur.Literal == word {
		p.next()
		return true
	}
	return false
}

func (p *Parser) expectKeyword(word string) error {
	if !p.keyword(word) {
		return fmt.Errorf("expected %s, got %s", word, describe(p.cur))
	}
	return nil
}

// name accepts a bare identifier or a quoted string.
func (p *Parser) name(what string) (string, error) {
	switch p.cur.Type {
	case lexer.IDENTIFIER, lexer.STRING:
		return p.next().Literal, nil
	}
	return "", fmt.Errorf("expected %s, got %s", what, describe(p.cur))
}

// value accepts anything that can be typed into a cell.
func (p *Parser) value() (string, error) {
	switch p.cur.Type {
	case lexer.IDENTIFIER, lexer.STRING, lexer.NUMBER, lexer.KEYWORD:
		return p.next().Literal, nil
	}
	return "", fmt.Errorf("expected value, got %s", describe(p.cur))
}

func (p *Parser) integer(what string) (int, error) {
	if p.cur.Type != lexer.NUMBER {
		return 0, fmt.Errorf("expected %s, got %s", what, describe(p.cur))
	}
	tok := p.next()
	n, err := strconv.Atoi(tok.Literal)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", what, tok.Literal)
	}
	return n, nil
}

func (p *Parser) end() error {
	if p.cur.Type == lexer.SEMICOLON {
		p.next()
	}
	if p.cur.Type != lexer.EOF {
		return fmt.Errorf("unexpected %s", describe(p.cur))
	}
	return nil
}

func describe(tok lexer.Token) string {
	if tok.Type == lexer.EOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", tok.Literal)
}

// Parse parses one command
func (p *Parser) Parse() (Statement, error) {
	tok := p.next()
	if tok.Type == lexer.EOF {
		return nil, fmt.Errorf("empty statement")
	}
	if tok.Type != lexer.KEYWORD {
		return nil, fmt.Errorf("unknown command %q", tok.Literal)
	}

	var (
		stmt Statement
		err  error
	)
	switch tok.Literal {
	case "FILTER":
		stmt, err = p.parseFilter()
	case "SORT":
		stmt, err = p.parseSort()
	case "SEARCH":
		stmt, err = p.parseSearch()
	case "CLEAR":
		stmt, err = p.parseClear()
	case "SHOW":
		stmt, err = p.parseShow()
	case "NEXT":
		stmt = &NextStatement{}
	case "REFRESH":
		stmt = &RefreshStatement{}
	case "SET":
		stmt, err = p.parseSet()
	case "ADD":
		stmt, err = p.parseAdd()
	case "FAKE":
		stmt, err = p.parseFake()
	case "COLUMNS":
		stmt = &ColumnsStatement{}
	case "MATCHES":
		stmt = &MatchesStatement{}
	case "WORKSPACES":
		stmt = &WorkspacesStatement{}
	case "CREATE":
		stmt, err = p.parseCreate()
	case "USE":
		stmt, err = p.parseUse()
	case "EXPORT":
		stmt, err = p.parseExport()
	case "HELP":
		stmt = &HelpStatement{}
	case "EXIT", "QUIT":
		stmt = &ExitStatement{}
	default:
		return nil, fmt.Errorf("unsupported command: %s", tok.Literal)
	}
	if err != nil {
		return nil, err
	}
	if err := p.end(); err != nil {
		return nil, err
	}
	return stmt, nil
}

// FILTER col op value | FILTER col CLEAR
func (p *Parser) parseFilter() (*FilterStatement, error) {
	col, err := p.name("column")
	if err != nil {
		return nil, err
	}
	stmt := &FilterStatement{Column: col}
	if p.keyword("CLEAR") {
		stmt.Clear = true
		return stmt, nil
	}

	if p.cur.Type != lexer.OPERATOR {
		return nil, fmt.Errorf("expected operator, got %s", describe(p.cur))
	}
	stmt.Type = operators[p.next().Literal]
	if stmt.Value, err = p.value(); err != nil {
		return nil, err
	}
	return stmt, nil
}

// SORT col [ASC|DESC] {, col [ASC|DESC]}
func (p *Parser) parseSort() (*SortStatement, error) {
	stmt := &SortStatement{}
	for {
		col, err := p.name("column")
		if err != nil {
			return nil, err
		}
		key := SortTerm{Column: col, Direction: types.Asc}
		if p.keyword("DESC") {
			key.Direction = types.Desc
		} else {
			p.keyword("ASC")
		}
		stmt.Keys = append(stmt.Keys, key)

		if p.cur.Type != lexer.COMMA {
			return stmt, nil
		}
		p.next()
	}
}

func (p *Parser) parseSearch() (*SearchStatement, error) {
	if p.cur.Type == lexer.EOF || p.cur.Type == lexer.SEMICOLON {
		return &SearchStatement{}, nil
	}
	term, err := p.value()
	if err != nil {
		return nil, err
	}
	return &SearchStatement{Term: term}, nil
}

// CLEAR [FILTERS|SORT|SEARCH]
func (p *Parser) parseClear() (*ClearStatement, error) {
	stmt := &ClearStatement{}
	if p.cur.Type == lexer.KEYWORD {
		switch p.cur.Literal {
		case "FILTERS", "SORT", "SEARCH":
			stmt.What = p.next().Literal
		}
	}
	return stmt, nil
}

// SHOW [first [count]]
func (p *Parser) parseShow() (*ShowStatement, error) {
	stmt := &ShowStatement{Count: DefaultShowCount}
	if p.cur.Type != lexer.NUMBER {
		return stmt, nil
	}
	first, err := p.integer("first row")
	if err != nil {
		return nil, err
	}
	stmt.First = first
	if p.cur.Type == lexer.NUMBER {
		if stmt.Count, err = p.integer("row count"); err != nil {
			return nil, err
		}
	}
	if stmt.First < 0 || stmt.Count < 1 {
		return nil, fmt.Errorf("invalid range %d %d", stmt.First, stmt.Count)
	}
	return stmt, nil
}

// SET row col = value
func (p *Parser) parseSet() (*SetStatement, error) {
	row, err := p.integer("row index")
	if err != nil {
		return nil, err
	}
	col, err := p.name("column")
	if err != nil {
		return nil, err
	}
	if p.cur.Type != lexer.OPERATOR || p.cur.Literal != "=" {
		return nil, fmt.Errorf("expected =, got %s", describe(p.cur))
	}
	p.next()

	// SET r c = clears the cell
	if p.cur.Type == lexer.EOF || p.cur.Type == lexer.SEMICOLON {
		return &SetStatement{Row: row, Column: col}, nil
	}
	val, err := p.value()
	if err != nil {
		return nil, err
	}
	return &SetStatement{Row: row, Column: col, Value: val}, nil
}

// ADD COLUMN name [TEXT|NUMBER] | ADD ROW
func (p *Parser) parseAdd() (Statement, error) {
	if p.keyword("ROW") {
		return &AddRowStatement{}, nil
	}
	if err := p.expectKeyword("COLUMN"); err != nil {
		return nil, fmt.Errorf("expected COLUMN or ROW after ADD")
	}
	name, err := p.name("column name")
	if err != nil {
		return nil, err
	}
	stmt := &AddColumnStatement{Name: name, Type: types.ColumnText}
	if p.keyword("NUMBER") {
		stmt.Type = types.ColumnNumber
	} else {
		p.keyword("TEXT")
	}
	return stmt, nil
}

func (p *Parser) parseFake() (*FakeStatement, error) {
	n, err := p.integer("row count")
	if err != nil {
		return nil, err
	}
	return &FakeStatement{Count: n}, nil
}

// CREATE WORKSPACE name | CREATE TABLE name IN workspace
func (p *Parser) parseCreate() (Statement, error) {
	if p.keyword("WORKSPACE") {
		name, err := p.name("workspace name")
		if err != nil {
			return nil, err
		}
		return &CreateWorkspaceStatement{Name: name}, nil
	}
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, fmt.Errorf("expected WORKSPACE or TABLE after CREATE")
	}
	name, err := p.name("table name")
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("IN"); err != nil {
		return nil, err
	}
	ws, err := p.name("workspace")
	if err != nil {
		return nil, err
	}
	return &CreateTableStatement{Name: name, Workspace: ws}, nil
}

func (p *Parser) parseUse() (*UseStatement, error) {
	table, err := p.name("table")
	if err != nil {
		return nil, err
	}
	return &UseStatement{Table: table}, nil
}

func (p *Parser) parseExport() (*ExportStatement, error) {
	path, err := p.name("file path")
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		path += ".xlsx"
	}
	return &ExportStatement{Path: path}, nil
}

// Parse parses a command line and returns a Statement
func Parse(input string) (Statement, error) {
	l := lexer.New(input)
	p := New(l)
	return p.Parse()
}
