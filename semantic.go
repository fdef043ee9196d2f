package main

import "fmt"

// semantic.go - Validation pass over the parsed program
//
// The validator is the boundary contract for the back end: after Analyze
// succeeds, every variable read refers to a binding in scope, every call
// names a defined function with the right arity, and the back end may treat
// any remaining inconsistency as an internal logic error rather than a user
// mistake.

// FunctionSignature records what callers may rely on
type FunctionSignature struct {
	ParamCount int
}

// Scope is the result of validation: the program's function table
type Scope struct {
	Functions map[string]FunctionSignature
}

// Analyze validates a parsed program and returns its scope.
// Functions are registered before any body is checked, so definition order
// does not matter and mutual recursion is allowed.
func Analyze(prog *Program) (*Scope, error) {
	scope := &Scope{Functions: make(map[string]FunctionSignature)}

	for _, fn := range prog.Functions {
		if _, exists := scope.Functions[fn.Name]; exists {
			return nil, fmt.Errorf("%d:%d: Function '%s' is already defined", fn.Line, fn.Col, fn.Name)
		}
		scope.Functions[fn.Name] = FunctionSignature{ParamCount: len(fn.Params)}
	}

	for _, fn := range prog.Functions {
		if err := analyzeFunction(scope, fn); err != nil {
			return nil, err
		}
	}
	return scope, nil
}

func analyzeFunction(scope *Scope, fn *Function) error {
	// Variables are function-scoped; a let inside a nested block stays
	// visible for the rest of the function, matching storage assignment
	// which never reuses slots at block granularity.
	vars := make(map[string]bool)
	for _, param := range fn.Params {
		vars[param] = true
	}
	return analyzeBlock(scope, vars, fn.Body)
}

func analyzeBlock(scope *Scope, vars map[string]bool, block *Block) error {
	for _, stmt := range block.Stmts {
		switch s := stmt.(type) {
		case *LetStmt:
			if err := analyzeExpr(scope, vars, s.Value); err != nil {
				return err
			}
			vars[s.Name] = true
		case *AssignStmt:
			if !vars[s.Name] {
				return fmt.Errorf("%d:%d: Undefined variable: %s", s.Line, s.Col, s.Name)
			}
			if err := analyzeExpr(scope, vars, s.Value); err != nil {
				return err
			}
		case *ExprStmt:
			if err := analyzeExpr(scope, vars, s.Value); err != nil {
				return err
			}
		}
	}
	if block.Tail != nil {
		return analyzeExpr(scope, vars, block.Tail)
	}
	return nil
}

func analyzeExpr(scope *Scope, vars map[string]bool, expr Expr) error {
	switch e := expr.(type) {
	case *IntLit:
		return nil
	case *VarRef:
		if !vars[e.Name] {
			return fmt.Errorf("%d:%d: Undefined variable: %s", e.Line, e.Col, e.Name)
		}
		return nil
	case *BinaryExpr:
		if err := analyzeExpr(scope, vars, e.Left); err != nil {
			return err
		}
		return analyzeExpr(scope, vars, e.Right)
	case *CallExpr:
		sig, ok := scope.Functions[e.Name]
		if !ok {
			return fmt.Errorf("%d:%d: Undefined function: %s", e.Line, e.Col, e.Name)
		}
		if len(e.Args) != sig.ParamCount {
			return fmt.Errorf("%d:%d: Function '%s' expects %d arguments, got %d",
				e.Line, e.Col, e.Name, sig.ParamCount, len(e.Args))
		}
		for _, arg := range e.Args {
			if err := analyzeExpr(scope, vars, arg); err != nil {
				return err
			}
		}
		return nil
	case *IfExpr:
		if err := analyzeExpr(scope, vars, e.Cond); err != nil {
			return err
		}
		if err := analyzeBlock(scope, vars, e.Then); err != nil {
			return err
		}
		if e.Else != nil {
			return analyzeBlock(scope, vars, e.Else)
		}
		return nil
	case *WhileExpr:
		if err := analyzeExpr(scope, vars, e.Cond); err != nil {
			return err
		}
		return analyzeBlock(scope, vars, e.Body)
	default:
		return fmt.Errorf("internal: unknown expression node %T", expr)
	}
}
