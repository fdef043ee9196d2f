package main

import (
	"fmt"
	"strings"
)

// ir.go - Machine-independent intermediate representation
//
// The IR sits between the syntax tree and x86-64 machine code. Values live
// in virtual registers: an infinite supply of identifiers handed out once
// per definition within a function and never reused, so a VReg's definition
// site is unique and its lifetime only extends forward. Storage assignment
// later pins each VReg to a physical register or a frame slot.

// VReg is a virtual register identifier, unique within one function
type VReg uint32

// ValueKind discriminates the operand union
type ValueKind int

const (
	ValueVReg ValueKind = iota
	ValueImm
)

// Value is an instruction operand: a virtual register or a 64-bit immediate
type Value struct {
	Kind ValueKind
	Reg  VReg
	Imm  int64
}

// RegValue makes a virtual register operand
func RegValue(r VReg) Value {
	return Value{Kind: ValueVReg, Reg: r}
}

// ImmValue makes an immediate operand
func ImmValue(v int64) Value {
	return Value{Kind: ValueImm, Imm: v}
}

func (v Value) String() string {
	if v.Kind == ValueImm {
		return fmt.Sprintf("%d", v.Imm)
	}
	return fmt.Sprintf("v%d", v.Reg)
}

// Label identifies a jump target, unique within one function
type Label int

// InstrOp is the IR instruction kind
type InstrOp int

const (
	IRCopy InstrOp = iota
	IRBinaryOp
	IRCall
	IRPush
	IRPop
	IRJump
	IRJumpIfZero
	IRLabel
	IRReturn
	IRSyscall
)

// Instr is one IR instruction. It is a tagged sum: Op selects the variant
// and the payload fields that are meaningful for it.
type Instr struct {
	Op InstrOp

	Dest  VReg   // Copy, BinaryOp, Call, Pop
	Src   Value  // Copy, Push, Return
	BinOp BinOp  // BinaryOp
	Lhs   Value  // BinaryOp
	Rhs   Value  // BinaryOp
	Name  string // Call target
	Args  []Value
	Label Label // Jump, JumpIfZero, Label
	Cond  Value // JumpIfZero
}

func (in Instr) String() string {
	switch in.Op {
	case IRCopy:
		return fmt.Sprintf("v%d = copy %s", in.Dest, in.Src)
	case IRBinaryOp:
		return fmt.Sprintf("v%d = %s %s %s", in.Dest, in.Lhs, in.BinOp, in.Rhs)
	case IRCall:
		args := make([]string, len(in.Args))
		for i, a := range in.Args {
			args[i] = a.String()
		}
		return fmt.Sprintf("v%d = call %s(%s)", in.Dest, in.Name, strings.Join(args, ", "))
	case IRPush:
		return fmt.Sprintf("push %s", in.Src)
	case IRPop:
		return fmt.Sprintf("v%d = pop", in.Dest)
	case IRJump:
		return fmt.Sprintf("jump L%d", in.Label)
	case IRJumpIfZero:
		return fmt.Sprintf("jz %s, L%d", in.Cond, in.Label)
	case IRLabel:
		return fmt.Sprintf("L%d:", in.Label)
	case IRReturn:
		return fmt.Sprintf("return %s", in.Src)
	case IRSyscall:
		return "syscall"
	default:
		return "???"
	}
}

// IRFunction is a lowered function: an instruction sequence that starts at
// its entry and terminates in a Return
type IRFunction struct {
	Name      string
	NumParams int
	Instrs    []Instr

	// VarVRegs lists, in declaration order, the virtual registers that hold
	// variables (parameters first, then let bindings). Storage assignment
	// pins these to dedicated frame slots; everything else is a temporary.
	VarVRegs []VReg
	// ParamVRegs maps parameter position to its virtual register.
	ParamVRegs []VReg
}

func (f *IRFunction) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "fn %s(%d params):\n", f.Name, f.NumParams)
	for _, in := range f.Instrs {
		if in.Op == IRLabel {
			fmt.Fprintf(&sb, "  %s\n", in)
		} else {
			fmt.Fprintf(&sb, "    %s\n", in)
		}
	}
	return sb.String()
}
