package main

// ast.go - Syntax tree for the rue language
//
// The tree produced by the parser and checked by the validator is the
// "validated program" contract the back end trusts: every name resolved,
// every call arity-checked. Everything is an expression over i64; the only
// statements are let bindings, assignments and expression statements.

// Program is an ordered list of function definitions
type Program struct {
	Functions []*Function
}

// Function is a named function with positional parameters
type Function struct {
	Name   string
	Params []string
	Body   *Block
	Line   int
	Col    int
}

// Block is a brace-delimited statement list with an optional trailing
// expression; the trailing expression is the block's value
type Block struct {
	Stmts []Stmt
	Tail  Expr // nil if the block ends with a statement
}

// Stmt is one of *LetStmt, *AssignStmt, *ExprStmt
type Stmt interface{ stmtNode() }

// LetStmt introduces a new variable: let x = expr;
type LetStmt struct {
	Name  string
	Value Expr
	Line  int
	Col   int
}

// AssignStmt stores into an existing variable: x = expr;
type AssignStmt struct {
	Name  string
	Value Expr
	Line  int
	Col   int
}

// ExprStmt evaluates an expression for effect: expr;
type ExprStmt struct {
	Value Expr
}

func (*LetStmt) stmtNode()    {}
func (*AssignStmt) stmtNode() {}
func (*ExprStmt) stmtNode()   {}

// Expr is one of *IntLit, *VarRef, *BinaryExpr, *CallExpr, *IfExpr, *WhileExpr
type Expr interface{ exprNode() }

// IntLit is an integer literal
type IntLit struct {
	Value int64
}

// VarRef reads a variable
type VarRef struct {
	Name string
	Line int
	Col  int
}

// BinOp is a binary operator
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
)

func (op BinOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	default:
		return "?"
	}
}

// BinaryExpr applies a binary operator; comparisons yield 1 or 0
type BinaryExpr struct {
	Op    BinOp
	Left  Expr
	Right Expr
	Line  int
	Col   int
}

// CallExpr calls a named function with positional arguments
type CallExpr struct {
	Name string
	Args []Expr
	Line int
	Col  int
}

// IfExpr is a conditional expression; a missing else arm yields 0
type IfExpr struct {
	Cond Expr
	Then *Block
	Else *Block // nil if absent; else-if chains desugar to a nested block
}

// WhileExpr is a loop expression; its value is always 0
type WhileExpr struct {
	Cond Expr
	Body *Block
}

func (*IntLit) exprNode()     {}
func (*VarRef) exprNode()     {}
func (*BinaryExpr) exprNode() {}
func (*CallExpr) exprNode()   {}
func (*IfExpr) exprNode()     {}
func (*WhileExpr) exprNode()  {}

// containsCall reports whether evaluating e can execute a function call.
// The lowering engine uses this to decide when a value must be preserved
// on the stack across the evaluation of a sibling subtree.
func containsCall(e Expr) bool {
	switch e := e.(type) {
	case *IntLit, *VarRef:
		return false
	case *BinaryExpr:
		return containsCall(e.Left) || containsCall(e.Right)
	case *CallExpr:
		return true
	case *IfExpr:
		if containsCall(e.Cond) || blockContainsCall(e.Then) {
			return true
		}
		return e.Else != nil && blockContainsCall(e.Else)
	case *WhileExpr:
		return containsCall(e.Cond) || blockContainsCall(e.Body)
	default:
		return true
	}
}

func blockContainsCall(b *Block) bool {
	for _, stmt := range b.Stmts {
		switch s := stmt.(type) {
		case *LetStmt:
			if containsCall(s.Value) {
				return true
			}
		case *AssignStmt:
			if containsCall(s.Value) {
				return true
			}
		case *ExprStmt:
			if containsCall(s.Value) {
				return true
			}
		}
	}
	return b.Tail != nil && containsCall(b.Tail)
}
