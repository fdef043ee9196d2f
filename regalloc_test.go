package main

import (
	"testing"
)

func allocateNamed(t *testing.T, source, name string) *AllocatedFunction {
	t.Helper()
	af, err := Allocate(lowerNamed(t, source, name))
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	return af
}

func TestVariablesGetFrameSlots(t *testing.T) {
	af := allocateNamed(t, `fn main() { let x = 1; let y = 2; x + y }`, "main")

	x := af.IR.VarVRegs[0]
	y := af.IR.VarVRegs[1]
	if loc := af.Loc[x]; loc.Kind != LocFrame || loc.Offset != -8 {
		t.Errorf("x at %s, want [rbp-8]", loc)
	}
	if loc := af.Loc[y]; loc.Kind != LocFrame || loc.Offset != -16 {
		t.Errorf("y at %s, want [rbp-16]", loc)
	}
}

func TestParameterLocations(t *testing.T) {
	af := allocateNamed(t, `
		fn f(a, b, c) { a + b + c }
		fn main() { f(1, 2, 3) }`, "f")

	// Parameter 0 arrives in rdi and is parked in a local slot by the
	// prologue; parameters 1+ sit where the caller pushed them, above the
	// saved rbp and return address.
	wantOffsets := []int32{-8, 16, 24}
	for i, vr := range af.IR.ParamVRegs {
		loc := af.Loc[vr]
		if loc.Kind != LocFrame {
			t.Errorf("param %d in %s, want a frame slot", i, loc)
			continue
		}
		if loc.Offset != wantOffsets[i] {
			t.Errorf("param %d at [rbp%+d], want [rbp%+d]", i, loc.Offset, wantOffsets[i])
		}
	}
}

func TestTemporariesUsePoolThenSpill(t *testing.T) {
	// Five temporaries in first-encounter order: three pool registers,
	// then unique spill slots.
	fn := &IRFunction{
		Name: "t",
		Instrs: []Instr{
			{Op: IRCopy, Dest: 0, Src: ImmValue(1)},
			{Op: IRCopy, Dest: 1, Src: ImmValue(2)},
			{Op: IRCopy, Dest: 2, Src: ImmValue(3)},
			{Op: IRCopy, Dest: 3, Src: ImmValue(4)},
			{Op: IRCopy, Dest: 4, Src: ImmValue(5)},
			{Op: IRReturn, Src: RegValue(4)},
		},
	}
	af, err := Allocate(fn)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	wantRegs := []X86Reg{RBX, RCX, RSI}
	for i, reg := range wantRegs {
		loc := af.Loc[VReg(i)]
		if loc.Kind != LocReg || loc.Reg != reg {
			t.Errorf("v%d at %s, want %s", i, loc, reg)
		}
	}
	for i, offset := range []int32{-8, -16} {
		loc := af.Loc[VReg(3 + i)]
		if loc.Kind != LocFrame || loc.Offset != offset {
			t.Errorf("v%d at %s, want [rbp%+d]", 3+i, loc, offset)
		}
	}
}

func TestSpillSlotsNeverCollideWithVariables(t *testing.T) {
	af := allocateNamed(t, `
		fn main() {
			let a = 1;
			let b = 2;
			a + (b + (a + (b + (a + (b + a)))))
		}`, "main")

	seen := make(map[int32]VReg)
	for vr, loc := range af.Loc {
		if loc.Kind != LocFrame {
			continue
		}
		if other, dup := seen[loc.Offset]; dup {
			t.Errorf("v%d and v%d share frame slot [rbp%+d]", vr, other, loc.Offset)
		}
		seen[loc.Offset] = vr
	}
}

func TestEveryOperandHasALocation(t *testing.T) {
	af := allocateNamed(t, `
		fn fib(n) { if n < 2 { n } else { fib(n - 1) + fib(n - 2) } }
		fn main() { fib(10) }`, "fib")

	check := func(v Value, what string, i int) {
		if v.Kind != ValueVReg {
			return
		}
		if _, ok := af.Loc[v.Reg]; !ok {
			t.Errorf("instruction %d: %s v%d has no location", i, what, v.Reg)
		}
	}
	for i, in := range af.IR.Instrs {
		switch in.Op {
		case IRCopy:
			check(in.Src, "src", i)
			check(RegValue(in.Dest), "dest", i)
		case IRBinaryOp:
			check(in.Lhs, "lhs", i)
			check(in.Rhs, "rhs", i)
			check(RegValue(in.Dest), "dest", i)
		case IRCall:
			for _, a := range in.Args {
				check(a, "arg", i)
			}
			check(RegValue(in.Dest), "dest", i)
		case IRPush:
			check(in.Src, "src", i)
		case IRPop:
			check(RegValue(in.Dest), "dest", i)
		case IRJumpIfZero:
			check(in.Cond, "cond", i)
		case IRReturn:
			check(in.Src, "src", i)
		}
	}
}

func TestFrameSizeAlignment(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"no_locals", `fn main() { 0 }`},
		{"one_local", `fn main() { let x = 1; x }`},
		{"many_locals", `fn main() { let a = 1; let b = 2; let c = 3; a + b + c }`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			af := allocateNamed(t, tt.source, "main")
			if af.FrameSize%16 != 0 {
				t.Errorf("frame size %d is not 16-byte aligned", af.FrameSize)
			}
			// The frame must cover the lowest slot handed out.
			for vr, loc := range af.Loc {
				if loc.Kind == LocFrame && loc.Offset < 0 && -loc.Offset > af.FrameSize {
					t.Errorf("v%d slot [rbp%+d] is outside the %d-byte frame", vr, loc.Offset, af.FrameSize)
				}
			}
		})
	}
}

func TestPoolExcludesScratchRegisters(t *testing.T) {
	for _, r := range registerPool {
		switch r {
		case RAX, RDI, RDX, RSP, RBP:
			t.Errorf("%s must not be in the temporary pool", r)
		}
	}
}
