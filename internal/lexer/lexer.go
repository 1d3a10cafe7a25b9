package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenType represents the type of a token
type TokenType int

const (
	// EOF represents the end of input
	EOF TokenType = iota
	// KEYWORD represents a command keyword
	KEYWORD
	// IDENTIFIER represents a bare name
	IDENTIFIER
	// NUMBER represents a number token
	NUMBER
	// STRING represents a quoted string, unquoted
	STRING
	// OPERATOR represents a filter operator: = != > < ~ !~
	OPERATOR
	// COMMA represents a comma
	COMMA
	// SEMICOLON represents a semicolon
	SEMICOLON
	// ILLEGAL represents an unexpected character or an unterminated string
	ILLEGAL
)

func (t TokenType) String() string {
	switch t {
	case EOF:
		return "EOF"
	case KEYWORD:
		return "KEYWORD"
	case IDENTIFIER:
		return "IDENTIFIER"
	case NUMBER:
		return "NUMBER"
	case STRING:
		return "STRING"
	case OPERATOR:
		return "OPERATOR"
	case COMMA:
		return "COMMA"
	case SEMICOLON:
		return "SEMICOLON"
	}
	return "ILLEGAL"
}

// Token represents a lexical token
type Token struct {
	Type    TokenType
	Literal string
}

// Lexer represents a lexical analyzer
type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           rune
}

// New creates a new lexer with the given input
func New(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	l.position = l.readPosition
	if l.readPosition >= len(l.input) {
		l.ch = 0
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.readPosition += size
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) NextToken() Token {
	var tok Token

	l.skipWhitespace()

	switch l.ch {
	case ',':
		tok = Token{Type: COMMA, Literal: ","}
	case ';':
		tok = Token{Type: SEMICOLON, Literal: ";"}
	case '=', '>', '<', '~':
		tok = Token{Type: OPERATOR, Literal: string(l.ch)}
	case '!':
		if next := l.peekChar(); next == '=' || next == '~' {
			l.readChar()
			tok = Token{Type: OPERATOR, Literal: "!" + string(next)}
		} else {
			tok = Token{Type: ILLEGAL, Literal: "!"}
		}
	case 0:
		return Token{Type: EOF, Literal: ""}
	case '"', '\'':
		quote := l.ch
		l.readChar()
		literal, ok := l.readString(quote)
		if !ok {
			return Token{Type: ILLEGAL, Literal: string(quote) + literal}
		}
		tok = Token{Type: STRING, Literal: literal}
	default:
		if isLetter(l.ch) {
			tok.Literal = l.readIdentifier()
			upperLiteral := strings.ToUpper(tok.Literal)
			if isKeyword(upperLiteral) {
				tok.Type = KEYWORD
				tok.Literal = upperLiteral
			} else {
				tok.Type = IDENTIFIER
			}
			return tok
		} else if isDigit(l.ch) || (l.ch == '-' && isDigit(l.peekChar())) {
			tok.Type = NUMBER
			tok.Literal = l.readNumber()
			return tok
		}
		tok = Token{Type: ILLEGAL, Literal: string(l.ch)}
	}

	l.readChar()
	return tok
}

func (l *Lexer) skipWhitespace() {
	for unicode.IsSpace(l.ch) {
		l.readChar()
	}
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || l.ch == '-' {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readNumber accepts an optional sign, digits with one decimal point, and
// an exponent.
func (l *Lexer) readNumber() string {
	position := l.position
	if l.ch == '-' {
		l.readChar()
	}
	for isDigit(l.ch) || l.ch == '.' {
		l.readChar()
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '-' || next == '+' {
			l.readChar()
			l.readChar()
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	return l.input[position:l.position]
}

// readString reads up to the closing quote, resolving backslash escapes of
// the quote and of backslash itself. It reports false if the input ends
// first.
func (l *Lexer) readString(quote rune) (string, bool) {
	var sb strings.Builder
	for {
		switch l.ch {
		case quote:
			return sb.String(), true
		case 0:
			if l.position >= len(l.input) {
				return sb.String(), false
			}
		case '\\':
			if next := l.peekChar(); next == quote || next == '\\' {
				l.readChar()
			}
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
}

func isLetter(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

var keywords = map[string]bool{
	"FILTER": true, "SORT": true, "SEARCH": true, "CLEAR": true,
	"FILTERS": true, "ASC": true, "DESC": true, "SHOW": true,
	"NEXT": true, "REFRESH": true, "SET": true, "ADD": true,
	"COLUMN": true, "ROW": true, "FAKE": true, "COLUMNS": true,
	"MATCHES": true, "WORKSPACES": true, "CREATE": true, "WORKSPACE": true,
	"TABLE": true, "IN": true, "USE": true, "EXPORT": true,
	"TEXT": true, "NUMBER": true, "EXIT": true, "QUIT": true,
	"HELP": true,
}

func isKeyword(word string) bool {
	return keywords[word]
}

func (t Token) String() string {
	return fmt.Sprintf("Token{Type: %v, Literal: %q}", t.Type, t.Literal)
}
