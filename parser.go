package main

import "fmt"

// parser.go - Recursive descent parser for rue
//
// Grammar:
//   program    = function*
//   function   = "fn" ident "(" params? ")" block
//   block      = "{" statement* expression? "}"
//   statement  = "let" ident "=" expression ";"
//              | ident "=" expression ";"
//              | expression ";"
//              | if-expression | while-expression   (";" optional)
//   expression = comparison
//   comparison = additive (("<"|"<="|">"|">="|"=="|"!=") additive)*
//   additive   = term (("+"|"-") term)*
//   term       = primary (("*"|"/"|"%") primary)*
//   primary    = integer | ident | ident "(" args? ")" | "(" expression ")"
//              | "if" expression block ("else" (block | if))? | "while" expression block

// Parser consumes a token stream and produces a Program
type Parser struct {
	tokens []Token
	pos    int
}

// NewParser creates a parser over the given tokens
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse parses a whole program
func Parse(tokens []Token) (*Program, error) {
	return NewParser(tokens).ParseProgram()
}

func (p *Parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *Parser) check(t TokenType) bool {
	return p.peek().Type == t
}

func (p *Parser) advance() Token {
	tok := p.tokens[p.pos]
	if tok.Type != TOKEN_EOF {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(t TokenType) (Token, error) {
	tok := p.peek()
	if tok.Type != t {
		return tok, fmt.Errorf("%d:%d: expected %s, found %s", tok.Line, tok.Col, t, tok.Type)
	}
	return p.advance(), nil
}

// ParseProgram parses all function definitions until EOF
func (p *Parser) ParseProgram() (*Program, error) {
	prog := &Program{}
	for !p.check(TOKEN_EOF) {
		fn, err := p.parseFunction()
		if err != nil {
			return nil, err
		}
		prog.Functions = append(prog.Functions, fn)
	}
	return prog, nil
}

func (p *Parser) parseFunction() (*Function, error) {
	fnTok, err := p.expect(TOKEN_FN)
	if err != nil {
		return nil, err
	}
	name, err := p.expect(TOKEN_IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TOKEN_LPAREN); err != nil {
		return nil, err
	}

	var params []string
	for !p.check(TOKEN_RPAREN) {
		if len(params) > 0 {
			if _, err := p.expect(TOKEN_COMMA); err != nil {
				return nil, err
			}
		}
		param, err := p.expect(TOKEN_IDENT)
		if err != nil {
			return nil, err
		}
		params = append(params, param.Text)
	}
	if _, err := p.expect(TOKEN_RPAREN); err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &Function{
		Name:   name.Text,
		Params: params,
		Body:   body,
		Line:   fnTok.Line,
		Col:    fnTok.Col,
	}, nil
}

// parseBlock parses "{ statements... trailing-expression? }". An expression
// followed by a semicolon is a statement; without one it must be the last
// thing in the block and becomes the block's value.
func (p *Parser) parseBlock() (*Block, error) {
	if _, err := p.expect(TOKEN_LBRACE); err != nil {
		return nil, err
	}

	block := &Block{}
	for !p.check(TOKEN_RBRACE) {
		switch {
		case p.check(TOKEN_LET):
			letTok := p.advance()
			name, err := p.expect(TOKEN_IDENT)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TOKEN_ASSIGN); err != nil {
				return nil, err
			}
			value, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TOKEN_SEMICOLON); err != nil {
				return nil, err
			}
			block.Stmts = append(block.Stmts, &LetStmt{
				Name:  name.Text,
				Value: value,
				Line:  letTok.Line,
				Col:   letTok.Col,
			})

		case p.check(TOKEN_IDENT) && p.tokens[p.pos+1].Type == TOKEN_ASSIGN:
			name := p.advance()
			p.advance() // '='
			value, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TOKEN_SEMICOLON); err != nil {
				return nil, err
			}
			block.Stmts = append(block.Stmts, &AssignStmt{
				Name:  name.Text,
				Value: value,
				Line:  name.Line,
				Col:   name.Col,
			})

		default:
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			switch {
			case p.check(TOKEN_SEMICOLON):
				p.advance()
				block.Stmts = append(block.Stmts, &ExprStmt{Value: expr})
			case p.check(TOKEN_RBRACE):
				block.Tail = expr
			case isBlockTerminated(expr):
				// if and while end in their own closing brace and stand
				// as statements without a semicolon
				block.Stmts = append(block.Stmts, &ExprStmt{Value: expr})
			default:
				if _, err := p.expect(TOKEN_RBRACE); err != nil {
					return nil, err
				}
			}
		}
	}
	p.advance() // '}'
	return block, nil
}

// isBlockTerminated reports whether expr syntactically ends in a block
func isBlockTerminated(expr Expr) bool {
	switch expr.(type) {
	case *IfExpr, *WhileExpr:
		return true
	}
	return false
}

func (p *Parser) parseExpression() (Expr, error) {
	return p.parseComparison()
}

var comparisonOps = map[TokenType]BinOp{
	TOKEN_LT: OpLt,
	TOKEN_LE: OpLe,
	TOKEN_GT: OpGt,
	TOKEN_GE: OpGe,
	TOKEN_EQ: OpEq,
	TOKEN_NE: OpNe,
}

func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := comparisonOps[p.peek().Type]
		if !ok {
			return left, nil
		}
		tok := p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right, Line: tok.Line, Col: tok.Col}
	}
}

func (p *Parser) parseAdditive() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.check(TOKEN_PLUS) || p.check(TOKEN_MINUS) {
		tok := p.advance()
		op := OpAdd
		if tok.Type == TOKEN_MINUS {
			op = OpSub
		}
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right, Line: tok.Line, Col: tok.Col}
	}
	return left, nil
}

func (p *Parser) parseTerm() (Expr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.check(TOKEN_STAR) || p.check(TOKEN_SLASH) || p.check(TOKEN_PERCENT) {
		tok := p.advance()
		var op BinOp
		switch tok.Type {
		case TOKEN_STAR:
			op = OpMul
		case TOKEN_SLASH:
			op = OpDiv
		default:
			op = OpMod
		}
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right, Line: tok.Line, Col: tok.Col}
	}
	return left, nil
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case TOKEN_INTEGER:
		p.advance()
		return &IntLit{Value: tok.Value}, nil

	case TOKEN_MINUS:
		// negative literal
		p.advance()
		lit, err := p.expect(TOKEN_INTEGER)
		if err != nil {
			return nil, err
		}
		return &IntLit{Value: -lit.Value}, nil

	case TOKEN_IDENT:
		p.advance()
		if p.check(TOKEN_LPAREN) {
			p.advance()
			var args []Expr
			for !p.check(TOKEN_RPAREN) {
				if len(args) > 0 {
					if _, err := p.expect(TOKEN_COMMA); err != nil {
						return nil, err
					}
				}
				arg, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
			}
			p.advance() // ')'
			return &CallExpr{Name: tok.Text, Args: args, Line: tok.Line, Col: tok.Col}, nil
		}
		return &VarRef{Name: tok.Text, Line: tok.Line, Col: tok.Col}, nil

	case TOKEN_LPAREN:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TOKEN_RPAREN); err != nil {
			return nil, err
		}
		return expr, nil

	case TOKEN_IF:
		return p.parseIf()

	case TOKEN_WHILE:
		p.advance()
		cond, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &WhileExpr{Cond: cond, Body: body}, nil

	default:
		return nil, fmt.Errorf("%d:%d: unexpected %s in expression", tok.Line, tok.Col, tok.Type)
	}
}

func (p *Parser) parseIf() (Expr, error) {
	p.advance() // 'if'
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	ifExpr := &IfExpr{Cond: cond, Then: then}
	if p.check(TOKEN_ELSE) {
		p.advance()
		if p.check(TOKEN_IF) {
			// else-if: wrap the nested if in a single-expression block
			nested, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			ifExpr.Else = &Block{Tail: nested}
		} else {
			elseBlock, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			ifExpr.Else = elseBlock
		}
	}
	return ifExpr, nil
}
