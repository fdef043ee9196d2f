package main

import (
	"strings"
	"testing"
)

func tokenTypes(t *testing.T, source string) []TokenType {
	t.Helper()
	tokens, err := NewLexer(source).Tokenize()
	if err != nil {
		t.Fatalf("Tokenize(%q) failed: %v", source, err)
	}
	types := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	return types
}

func TestTokenizeBasics(t *testing.T) {
	tests := []struct {
		name   string
		source string
		types  []TokenType
	}{
		{
			name:   "empty",
			source: "",
			types:  []TokenType{TOKEN_EOF},
		},
		{
			name:   "keywords_and_idents",
			source: "fn let if else while foo",
			types:  []TokenType{TOKEN_FN, TOKEN_LET, TOKEN_IF, TOKEN_ELSE, TOKEN_WHILE, TOKEN_IDENT, TOKEN_EOF},
		},
		{
			name:   "keyword_prefix_is_ident",
			source: "iffy letter whiles",
			types:  []TokenType{TOKEN_IDENT, TOKEN_IDENT, TOKEN_IDENT, TOKEN_EOF},
		},
		{
			name:   "punctuation",
			source: "( ) { } , ;",
			types:  []TokenType{TOKEN_LPAREN, TOKEN_RPAREN, TOKEN_LBRACE, TOKEN_RBRACE, TOKEN_COMMA, TOKEN_SEMICOLON, TOKEN_EOF},
		},
		{
			name:   "arithmetic_operators",
			source: "+ - * / %",
			types:  []TokenType{TOKEN_PLUS, TOKEN_MINUS, TOKEN_STAR, TOKEN_SLASH, TOKEN_PERCENT, TOKEN_EOF},
		},
		{
			name:   "comparison_operators",
			source: "= == != < <= > >=",
			types:  []TokenType{TOKEN_ASSIGN, TOKEN_EQ, TOKEN_NE, TOKEN_LT, TOKEN_LE, TOKEN_GT, TOKEN_GE, TOKEN_EOF},
		},
		{
			name:   "adjacent_two_char_operators",
			source: "a<=b",
			types:  []TokenType{TOKEN_IDENT, TOKEN_LE, TOKEN_IDENT, TOKEN_EOF},
		},
		{
			name:   "comment_only",
			source: "// nothing here\n",
			types:  []TokenType{TOKEN_EOF},
		},
		{
			name:   "comment_between_tokens",
			source: "1 // ignored\n2",
			types:  []TokenType{TOKEN_INTEGER, TOKEN_INTEGER, TOKEN_EOF},
		},
		{
			name:   "slash_is_not_comment",
			source: "6 / 2",
			types:  []TokenType{TOKEN_INTEGER, TOKEN_SLASH, TOKEN_INTEGER, TOKEN_EOF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenTypes(t, tt.source)
			if len(got) != len(tt.types) {
				t.Fatalf("got %d tokens, want %d (%v)", len(got), len(tt.types), got)
			}
			for i := range got {
				if got[i] != tt.types[i] {
					t.Errorf("token %d = %s, want %s", i, got[i], tt.types[i])
				}
			}
		})
	}
}

func TestIntegerValues(t *testing.T) {
	tokens, err := NewLexer("0 7 1234567890123").Tokenize()
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	want := []int64{0, 7, 1234567890123}
	for i, w := range want {
		if tokens[i].Type != TOKEN_INTEGER {
			t.Fatalf("token %d is %s, want integer", i, tokens[i].Type)
		}
		if tokens[i].Value != w {
			t.Errorf("token %d value = %d, want %d", i, tokens[i].Value, w)
		}
	}
}

func TestIntegerOverflowRejected(t *testing.T) {
	tests := []struct {
		name   string
		source string
		ok     bool
	}{
		{"max_int64", "9223372036854775807", true},
		{"max_int64_plus_one", "9223372036854775808", false},
		{"way_too_large", "99999999999999999999", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := NewLexer(tt.source).Tokenize()
			if tt.ok {
				if err != nil {
					t.Fatalf("Tokenize failed: %v", err)
				}
				if tokens[0].Value != 9223372036854775807 {
					t.Errorf("value = %d, want max int64", tokens[0].Value)
				}
				return
			}
			if err == nil {
				t.Fatal("expected an error for an overflowing literal")
			}
			if !strings.Contains(err.Error(), "integer literal too large") {
				t.Errorf("error = %q, want it to mention the oversized literal", err)
			}
		})
	}
}

func TestIdentifierText(t *testing.T) {
	tokens, err := NewLexer("foo _bar baz_2").Tokenize()
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	want := []string{"foo", "_bar", "baz_2"}
	for i, w := range want {
		if tokens[i].Text != w {
			t.Errorf("token %d text = %q, want %q", i, tokens[i].Text, w)
		}
	}
}

func TestTokenPositions(t *testing.T) {
	tokens, err := NewLexer("fn main\n  42").Tokenize()
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	positions := []struct{ line, col int }{
		{1, 1}, // fn
		{1, 4}, // main
		{2, 3}, // 42
	}
	for i, p := range positions {
		if tokens[i].Line != p.line || tokens[i].Col != p.col {
			t.Errorf("token %d at %d:%d, want %d:%d", i, tokens[i].Line, tokens[i].Col, p.line, p.col)
		}
	}
}

func TestUnexpectedCharacters(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"dollar", "let x $ 1"},
		{"bare_bang", "1 ! 2"},
		{"hash", "# comment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLexer(tt.source).Tokenize()
			if err == nil {
				t.Fatal("expected a lex error")
			}
			if !strings.Contains(err.Error(), "unexpected character") {
				t.Errorf("error = %q, want it to mention the unexpected character", err)
			}
		})
	}
}
