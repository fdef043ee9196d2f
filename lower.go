package main

import (
	"fmt"
	"os"
)

// lower.go - Lowering from the validated syntax tree to IR
//
// One Lowerer is built per function and owns that function's VReg and label
// counters, so lowering independent functions shares no state. Expressions
// are lowered left-to-right. Because storage assignment is call-clobbering,
// any value that has to survive a function call is explicitly preserved on
// the run-time stack with Push/Pop around the call-containing subtree; this
// is the only cross-call durability mechanism in the compiler.

// Lowerer lowers a single function to IR
type Lowerer struct {
	fn        *Function
	vars      map[string]VReg
	nextVReg  VReg
	nextLabel Label
	out       []Instr

	varVRegs   []VReg
	paramVRegs []VReg
}

// NewLowerer creates a lowerer for one function
func NewLowerer(fn *Function) *Lowerer {
	return &Lowerer{fn: fn, vars: make(map[string]VReg)}
}

// LowerFunction lowers one validated function to an IRFunction
func LowerFunction(fn *Function) (*IRFunction, error) {
	return NewLowerer(fn).Lower()
}

func (lo *Lowerer) newVReg() VReg {
	r := lo.nextVReg
	lo.nextVReg++
	return r
}

func (lo *Lowerer) newLabel() Label {
	l := lo.nextLabel
	lo.nextLabel++
	return l
}

func (lo *Lowerer) emit(in Instr) {
	lo.out = append(lo.out, in)
}

// declareVar binds a name to a fresh variable VReg. A let that shadows an
// existing name gets a new VReg (and therefore a new frame slot); the old
// binding simply becomes unreachable.
func (lo *Lowerer) declareVar(name string) VReg {
	r := lo.newVReg()
	lo.vars[name] = r
	lo.varVRegs = append(lo.varVRegs, r)
	return r
}

// Lower produces the function's full instruction sequence, ending in Return
func (lo *Lowerer) Lower() (*IRFunction, error) {
	for _, param := range lo.fn.Params {
		r := lo.declareVar(param)
		lo.paramVRegs = append(lo.paramVRegs, r)
	}

	result, err := lo.lowerBlock(lo.fn.Body)
	if err != nil {
		return nil, err
	}
	lo.emit(Instr{Op: IRReturn, Src: result})

	irfn := &IRFunction{
		Name:       lo.fn.Name,
		NumParams:  len(lo.fn.Params),
		Instrs:     lo.out,
		VarVRegs:   lo.varVRegs,
		ParamVRegs: lo.paramVRegs,
	}
	if VerboseMode {
		fmt.Fprint(os.Stderr, irfn.String())
	}
	return irfn, nil
}

// lowerBlock lowers a block's statements and returns the block's value:
// its trailing expression, or 0 if there is none.
func (lo *Lowerer) lowerBlock(block *Block) (Value, error) {
	for _, stmt := range block.Stmts {
		if err := lo.lowerStmt(stmt); err != nil {
			return Value{}, err
		}
	}
	if block.Tail != nil {
		return lo.lowerExpr(block.Tail)
	}
	return ImmValue(0), nil
}

func (lo *Lowerer) lowerStmt(stmt Stmt) error {
	switch s := stmt.(type) {
	case *LetStmt:
		value, err := lo.lowerExpr(s.Value)
		if err != nil {
			return err
		}
		dest := lo.declareVar(s.Name)
		lo.emit(Instr{Op: IRCopy, Dest: dest, Src: value})
		return nil

	case *AssignStmt:
		// The variable's storage is stable: re-resolve its existing VReg
		// and copy into it, never mint a new identity.
		dest, ok := lo.vars[s.Name]
		if !ok {
			return fmt.Errorf("internal: assignment to undefined variable %q reached lowering", s.Name)
		}
		value, err := lo.lowerExpr(s.Value)
		if err != nil {
			return err
		}
		lo.emit(Instr{Op: IRCopy, Dest: dest, Src: value})
		return nil

	case *ExprStmt:
		_, err := lo.lowerExpr(s.Value)
		return err

	default:
		return fmt.Errorf("internal: unknown statement node %T", stmt)
	}
}

func (lo *Lowerer) lowerExpr(expr Expr) (Value, error) {
	switch e := expr.(type) {
	case *IntLit:
		dest := lo.newVReg()
		lo.emit(Instr{Op: IRCopy, Dest: dest, Src: ImmValue(e.Value)})
		return RegValue(dest), nil

	case *VarRef:
		r, ok := lo.vars[e.Name]
		if !ok {
			return Value{}, fmt.Errorf("internal: undefined variable %q reached lowering", e.Name)
		}
		return RegValue(r), nil

	case *BinaryExpr:
		lhs, err := lo.lowerExpr(e.Left)
		if err != nil {
			return Value{}, err
		}
		// Call-safety rule: a call in the right subtree clobbers the
		// registers the left value may be living in. Park it on the stack
		// and continue with the restored copy.
		lhs, restore := lo.preserveAcross(lhs, containsCall(e.Right))
		rhs, err := lo.lowerExpr(e.Right)
		if err != nil {
			return Value{}, err
		}
		lhs = restore(lhs)

		dest := lo.newVReg()
		lo.emit(Instr{Op: IRBinaryOp, Dest: dest, BinOp: e.Op, Lhs: lhs, Rhs: rhs})
		return RegValue(dest), nil

	case *CallExpr:
		args := make([]Value, len(e.Args))
		restores := make([]func(Value) Value, len(e.Args))
		for i, argExpr := range e.Args {
			arg, err := lo.lowerExpr(argExpr)
			if err != nil {
				return Value{}, err
			}
			// An argument already evaluated must survive calls inside the
			// arguments still to come.
			laterCall := false
			for _, later := range e.Args[i+1:] {
				if containsCall(later) {
					laterCall = true
					break
				}
			}
			args[i], restores[i] = lo.preserveAcross(arg, laterCall)
		}
		// Pops run in reverse push order.
		for i := len(args) - 1; i >= 0; i-- {
			args[i] = restores[i](args[i])
		}

		dest := lo.newVReg()
		lo.emit(Instr{Op: IRCall, Dest: dest, Name: e.Name, Args: args})
		return RegValue(dest), nil

	case *IfExpr:
		cond, err := lo.lowerExpr(e.Cond)
		if err != nil {
			return Value{}, err
		}
		elseLabel := lo.newLabel()
		endLabel := lo.newLabel()
		dest := lo.newVReg()

		lo.emit(Instr{Op: IRJumpIfZero, Cond: cond, Label: elseLabel})
		thenValue, err := lo.lowerBlock(e.Then)
		if err != nil {
			return Value{}, err
		}
		lo.emit(Instr{Op: IRCopy, Dest: dest, Src: thenValue})
		lo.emit(Instr{Op: IRJump, Label: endLabel})

		lo.emit(Instr{Op: IRLabel, Label: elseLabel})
		if e.Else != nil {
			elseValue, err := lo.lowerBlock(e.Else)
			if err != nil {
				return Value{}, err
			}
			lo.emit(Instr{Op: IRCopy, Dest: dest, Src: elseValue})
		} else {
			lo.emit(Instr{Op: IRCopy, Dest: dest, Src: ImmValue(0)})
		}
		lo.emit(Instr{Op: IRLabel, Label: endLabel})
		return RegValue(dest), nil

	case *WhileExpr:
		startLabel := lo.newLabel()
		endLabel := lo.newLabel()

		lo.emit(Instr{Op: IRLabel, Label: startLabel})
		cond, err := lo.lowerExpr(e.Cond)
		if err != nil {
			return Value{}, err
		}
		lo.emit(Instr{Op: IRJumpIfZero, Cond: cond, Label: endLabel})
		if _, err := lo.lowerBlock(e.Body); err != nil {
			return Value{}, err
		}
		lo.emit(Instr{Op: IRJump, Label: startLabel})
		lo.emit(Instr{Op: IRLabel, Label: endLabel})
		return ImmValue(0), nil

	default:
		return Value{}, fmt.Errorf("internal: unknown expression node %T", expr)
	}
}

// preserveAcross pushes value onto the run-time stack when needed is true
// and value lives in a virtual register. The returned restore function pops
// it back into a fresh VReg; callers must invoke restores in reverse push
// order. Immediates survive anything and are returned untouched.
func (lo *Lowerer) preserveAcross(value Value, needed bool) (Value, func(Value) Value) {
	if !needed || value.Kind != ValueVReg {
		return value, func(v Value) Value { return v }
	}
	lo.emit(Instr{Op: IRPush, Src: value})
	return value, func(v Value) Value {
		restored := lo.newVReg()
		lo.emit(Instr{Op: IRPop, Dest: restored})
		return RegValue(restored)
	}
}
