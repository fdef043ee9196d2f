package main

import (
	"fmt"
	"os"
)

// regalloc.go - Storage assignment: virtual registers to machine locations
//
// Variables (parameters and let bindings) get dedicated rbp-relative frame
// slots that stay stable for the whole function. Temporaries are handed
// physical registers from a small fixed pool in the order they first appear
// in the instruction stream; when the pool runs out, each further temporary
// gets its own spill slot in the frame instead of recycling a register.
// Recycling without liveness information could silently clobber a value
// that a deep expression still needs, so exhaustion spills; cross-call
// durability is the lowering engine's Push/Pop responsibility either way.
//
// The pool holds rbx, rcx and rsi. rax is the return/scratch register, rdi
// carries the first call argument, rdx is clobbered by cqo/idiv, and
// rsp/rbp are the stack and frame pointers.

// LocKind discriminates machine locations
type LocKind int

const (
	LocReg LocKind = iota
	LocFrame
)

// Location is where a VReg lives at run time
type Location struct {
	Kind   LocKind
	Reg    X86Reg // LocReg
	Offset int32  // LocFrame: rbp-relative
}

func (l Location) String() string {
	if l.Kind == LocReg {
		return l.Reg.String()
	}
	return fmt.Sprintf("[rbp%+d]", l.Offset)
}

// registerPool is the fixed set of registers handed to temporaries
var registerPool = []X86Reg{RBX, RCX, RSI}

// AllocatedFunction is an IRFunction with every VReg mapped to a Location
// and the resulting frame size
type AllocatedFunction struct {
	IR        *IRFunction
	Loc       map[VReg]Location
	FrameSize int32
}

// Allocate assigns a machine location to every VReg in fn
func Allocate(fn *IRFunction) (*AllocatedFunction, error) {
	af := &AllocatedFunction{IR: fn, Loc: make(map[VReg]Location)}

	// frame slots grow downward from rbp: slot i is [rbp-8(i+1)]
	numSlots := int32(0)
	frameSlot := func() int32 {
		numSlots++
		return -8 * numSlots
	}

	// Parameters and let bindings first, in declaration order. Parameter 0
	// arrives in rdi and is parked in the frame by the prologue; parameters
	// 1+ were pushed by the caller and sit above the saved frame pointer
	// and return address.
	paramIndex := make(map[VReg]int, len(fn.ParamVRegs))
	for i, vr := range fn.ParamVRegs {
		paramIndex[vr] = i
	}
	for _, vr := range fn.VarVRegs {
		if i, isParam := paramIndex[vr]; isParam && i >= 1 {
			af.Loc[vr] = Location{Kind: LocFrame, Offset: 16 + 8*int32(i-1)}
			continue
		}
		af.Loc[vr] = Location{Kind: LocFrame, Offset: frameSlot()}
	}

	// Temporaries in first-encounter order over the instruction stream.
	poolNext := 0
	place := func(vr VReg) {
		if _, done := af.Loc[vr]; done {
			return
		}
		if poolNext < len(registerPool) {
			af.Loc[vr] = Location{Kind: LocReg, Reg: registerPool[poolNext]}
			poolNext++
			return
		}
		af.Loc[vr] = Location{Kind: LocFrame, Offset: frameSlot()}
	}
	placeValue := func(v Value) {
		if v.Kind == ValueVReg {
			place(v.Reg)
		}
	}

	for _, in := range fn.Instrs {
		switch in.Op {
		case IRCopy:
			placeValue(in.Src)
			place(in.Dest)
		case IRBinaryOp:
			placeValue(in.Lhs)
			placeValue(in.Rhs)
			place(in.Dest)
		case IRCall:
			for _, arg := range in.Args {
				placeValue(arg)
			}
			place(in.Dest)
		case IRPush:
			placeValue(in.Src)
		case IRPop:
			place(in.Dest)
		case IRJumpIfZero:
			placeValue(in.Cond)
		case IRReturn:
			placeValue(in.Src)
		case IRJump, IRLabel, IRSyscall:
			// no VReg operands
		default:
			return nil, fmt.Errorf("internal: unknown IR op %d in %s", in.Op, fn.Name)
		}
	}

	// Keep rsp 16-byte aligned between instructions for conventional frame
	// layout; the generated code itself only requires 8.
	af.FrameSize = (numSlots*8 + 15) &^ 15

	if VerboseMode {
		fmt.Fprintf(os.Stderr, "%s: %d frame bytes, %d of %d pool registers\n",
			fn.Name, af.FrameSize, min(poolNext, len(registerPool)), len(registerPool))
	}
	return af, nil
}
