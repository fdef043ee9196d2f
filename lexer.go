package main

import (
	"fmt"
	"math"
	"unicode"
)

// lexer.go - Tokenizer for the rue language
//
// rue is a small expression language over 64-bit signed integers:
//   fn factorial(n) {
//       if n <= 1 { 1 } else { n * factorial(n - 1) }
//   }

// TokenType identifies a lexical token
type TokenType int

const (
	TOKEN_EOF TokenType = iota
	TOKEN_IDENT
	TOKEN_INTEGER
	TOKEN_FN
	TOKEN_LET
	TOKEN_IF
	TOKEN_ELSE
	TOKEN_WHILE
	TOKEN_PLUS
	TOKEN_MINUS
	TOKEN_STAR
	TOKEN_SLASH
	TOKEN_PERCENT
	TOKEN_ASSIGN // =
	TOKEN_EQ     // ==
	TOKEN_NE     // !=
	TOKEN_LT     // <
	TOKEN_LE     // <=
	TOKEN_GT     // >
	TOKEN_GE     // >=
	TOKEN_LPAREN
	TOKEN_RPAREN
	TOKEN_LBRACE
	TOKEN_RBRACE
	TOKEN_COMMA
	TOKEN_SEMICOLON
)

func (t TokenType) String() string {
	switch t {
	case TOKEN_EOF:
		return "end of file"
	case TOKEN_IDENT:
		return "identifier"
	case TOKEN_INTEGER:
		return "integer"
	case TOKEN_FN:
		return "fn"
	case TOKEN_LET:
		return "let"
	case TOKEN_IF:
		return "if"
	case TOKEN_ELSE:
		return "else"
	case TOKEN_WHILE:
		return "while"
	case TOKEN_PLUS:
		return "+"
	case TOKEN_MINUS:
		return "-"
	case TOKEN_STAR:
		return "*"
	case TOKEN_SLASH:
		return "/"
	case TOKEN_PERCENT:
		return "%"
	case TOKEN_ASSIGN:
		return "="
	case TOKEN_EQ:
		return "=="
	case TOKEN_NE:
		return "!="
	case TOKEN_LT:
		return "<"
	case TOKEN_LE:
		return "<="
	case TOKEN_GT:
		return ">"
	case TOKEN_GE:
		return ">="
	case TOKEN_LPAREN:
		return "("
	case TOKEN_RPAREN:
		return ")"
	case TOKEN_LBRACE:
		return "{"
	case TOKEN_RBRACE:
		return "}"
	case TOKEN_COMMA:
		return ","
	case TOKEN_SEMICOLON:
		return ";"
	default:
		return "unknown"
	}
}

// Token is a single lexical token with its source position
type Token struct {
	Type  TokenType
	Text  string // identifier text
	Value int64  // integer value
	Line  int
	Col   int
}

var keywords = map[string]TokenType{
	"fn":    TOKEN_FN,
	"let":   TOKEN_LET,
	"if":    TOKEN_IF,
	"else":  TOKEN_ELSE,
	"while": TOKEN_WHILE,
}

// Lexer tokenizes rue source code
type Lexer struct {
	source []rune
	pos    int
	line   int
	col    int
}

// NewLexer creates a lexer for the given source text
func NewLexer(source string) *Lexer {
	return &Lexer{source: []rune(source), line: 1, col: 1}
}

func (l *Lexer) peek() rune {
	if l.pos >= len(l.source) {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) advance() rune {
	r := l.source[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) skipWhitespaceAndComments() {
	for l.pos < len(l.source) {
		r := l.peek()
		if unicode.IsSpace(r) {
			l.advance()
			continue
		}
		// line comments
		if r == '/' && l.pos+1 < len(l.source) && l.source[l.pos+1] == '/' {
			for l.pos < len(l.source) && l.peek() != '\n' {
				l.advance()
			}
			continue
		}
		break
	}
}

// Tokenize scans the entire source and returns its tokens, ending with EOF
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TOKEN_EOF {
			return tokens, nil
		}
	}
}

func (l *Lexer) next() (Token, error) {
	l.skipWhitespaceAndComments()

	line, col := l.line, l.col
	if l.pos >= len(l.source) {
		return Token{Type: TOKEN_EOF, Line: line, Col: col}, nil
	}

	r := l.advance()
	tok := Token{Line: line, Col: col}

	switch {
	case unicode.IsDigit(r):
		value := int64(r - '0')
		for l.pos < len(l.source) && unicode.IsDigit(l.peek()) {
			digit := int64(l.advance() - '0')
			if value > (math.MaxInt64-digit)/10 {
				return tok, fmt.Errorf("%d:%d: integer literal too large", line, col)
			}
			value = value*10 + digit
		}
		tok.Type = TOKEN_INTEGER
		tok.Value = value
		return tok, nil

	case unicode.IsLetter(r) || r == '_':
		text := string(r)
		for l.pos < len(l.source) && (unicode.IsLetter(l.peek()) || unicode.IsDigit(l.peek()) || l.peek() == '_') {
			text += string(l.advance())
		}
		if kw, ok := keywords[text]; ok {
			tok.Type = kw
		} else {
			tok.Type = TOKEN_IDENT
			tok.Text = text
		}
		return tok, nil
	}

	switch r {
	case '+':
		tok.Type = TOKEN_PLUS
	case '-':
		tok.Type = TOKEN_MINUS
	case '*':
		tok.Type = TOKEN_STAR
	case '/':
		tok.Type = TOKEN_SLASH
	case '%':
		tok.Type = TOKEN_PERCENT
	case '(':
		tok.Type = TOKEN_LPAREN
	case ')':
		tok.Type = TOKEN_RPAREN
	case '{':
		tok.Type = TOKEN_LBRACE
	case '}':
		tok.Type = TOKEN_RBRACE
	case ',':
		tok.Type = TOKEN_COMMA
	case ';':
		tok.Type = TOKEN_SEMICOLON
	case '=':
		if l.peek() == '=' {
			l.advance()
			tok.Type = TOKEN_EQ
		} else {
			tok.Type = TOKEN_ASSIGN
		}
	case '<':
		if l.peek() == '=' {
			l.advance()
			tok.Type = TOKEN_LE
		} else {
			tok.Type = TOKEN_LT
		}
	case '>':
		if l.peek() == '=' {
			l.advance()
			tok.Type = TOKEN_GE
		} else {
			tok.Type = TOKEN_GT
		}
	case '!':
		if l.peek() == '=' {
			l.advance()
			tok.Type = TOKEN_NE
		} else {
			return tok, fmt.Errorf("%d:%d: unexpected character '!'", line, col)
		}
	default:
		return tok, fmt.Errorf("%d:%d: unexpected character %q", line, col, r)
	}
	return tok, nil
}
