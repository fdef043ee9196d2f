package main

import (
	"fmt"
	"os"
)

// asm.go - Single-pass assembler with deferred relocation patching
//
// Each function's IR is walked exactly once. Every instruction is encoded
// to its final bytes immediately; the byte offset of a label is whatever
// len(code) happened to be when the Label instruction was reached. Jumps
// and conditional jumps emit a 4-byte placeholder displacement and record
// a relocation; after the pass, each relocation is patched with
// target - (patch + 4), the displacement relative to the byte after the
// 32-bit field. Call sites are recorded the same way but against function
// names, and are patched by the linker once the whole image is laid out.
//
// There is intentionally no size-estimation pre-pass: the encoded length of
// an instruction is only ever observed as buffer growth, so bookkeeping and
// emission cannot disagree.

const relocWidth = 4

// Reloc is a deferred intra-function jump displacement patch
type Reloc struct {
	PatchOffset int   // where the 4 displacement bytes live
	Target      Label // label whose offset gets written there
}

// CallSite is a deferred inter-function call displacement patch,
// resolved by the linker against the whole-image symbol table
type CallSite struct {
	PatchOffset int
	Target      string
}

// AsmFunc is one function's finished machine code. All internal jumps are
// already patched; CallSites remain for the link step.
type AsmFunc struct {
	Name      string
	Code      []byte
	CallSites []CallSite
}

// Assembler encodes one allocated function. Its symbol table and
// relocation list live only for the duration of that one function.
type Assembler struct {
	fn        *AllocatedFunction
	code      []byte
	symbols   map[Label]int
	relocs    []Reloc
	callSites []CallSite
}

// NewAssembler creates an assembler for one allocated function
func NewAssembler(fn *AllocatedFunction) *Assembler {
	return &Assembler{fn: fn, symbols: make(map[Label]int)}
}

// Assemble encodes fn into machine bytes with all labels resolved
func Assemble(fn *AllocatedFunction) (*AsmFunc, error) {
	return NewAssembler(fn).Assemble()
}

// Assemble runs the single forward pass and the relocation patch pass
func (a *Assembler) Assemble() (*AsmFunc, error) {
	a.prologue()

	for _, in := range a.fn.IR.Instrs {
		if VerboseMode {
			fmt.Fprintf(os.Stderr, "%s+%04x  %s\n", a.fn.IR.Name, len(a.code), in)
		}
		if err := a.encode(in); err != nil {
			return nil, err
		}
	}

	if err := a.patchRelocs(); err != nil {
		return nil, err
	}
	return &AsmFunc{Name: a.fn.IR.Name, Code: a.code, CallSites: a.callSites}, nil
}

// prologue establishes the frame: save the caller's rbp, set up our own,
// reserve the frame, and park the register-passed first parameter in its
// slot. Parameters 1+ already sit above rbp where the caller pushed them.
func (a *Assembler) prologue() {
	a.pushReg(RBP)
	a.movRegReg(RBP, RSP)
	if a.fn.FrameSize > 0 {
		a.subRspImm32(a.fn.FrameSize)
	}
	if len(a.fn.IR.ParamVRegs) > 0 {
		loc := a.fn.Loc[a.fn.IR.ParamVRegs[0]]
		a.movFrameReg(loc.Offset, RDI)
	}
}

// loadValue materializes v into the given scratch register
func (a *Assembler) loadValue(dst X86Reg, v Value) error {
	if v.Kind == ValueImm {
		a.movRegImm64(dst, v.Imm)
		return nil
	}
	loc, ok := a.fn.Loc[v.Reg]
	if !ok {
		return fmt.Errorf("internal: v%d has no storage location in %s", v.Reg, a.fn.IR.Name)
	}
	if loc.Kind == LocReg {
		a.movRegReg(dst, loc.Reg)
	} else {
		a.movRegFrame(dst, loc.Offset)
	}
	return nil
}

// storeVReg writes the scratch register src into vr's assigned location
func (a *Assembler) storeVReg(vr VReg, src X86Reg) error {
	loc, ok := a.fn.Loc[vr]
	if !ok {
		return fmt.Errorf("internal: v%d has no storage location in %s", vr, a.fn.IR.Name)
	}
	if loc.Kind == LocReg {
		a.movRegReg(loc.Reg, src)
	} else {
		a.movFrameReg(loc.Offset, src)
	}
	return nil
}

func (a *Assembler) encode(in Instr) error {
	switch in.Op {
	case IRCopy:
		if err := a.loadValue(RAX, in.Src); err != nil {
			return err
		}
		return a.storeVReg(in.Dest, RAX)

	case IRBinaryOp:
		return a.encodeBinaryOp(in)

	case IRCall:
		return a.encodeCall(in)

	case IRPush:
		if err := a.loadValue(RAX, in.Src); err != nil {
			return err
		}
		a.pushReg(RAX)
		return nil

	case IRPop:
		a.popReg(RAX)
		return a.storeVReg(in.Dest, RAX)

	case IRJump:
		a.emit(0xe9)
		a.relocs = append(a.relocs, Reloc{PatchOffset: len(a.code), Target: in.Label})
		a.emitU32(0) // placeholder displacement
		return nil

	case IRJumpIfZero:
		if err := a.loadValue(RAX, in.Cond); err != nil {
			return err
		}
		a.testRegReg(RAX, RAX)
		a.emit(0x0f, 0x84) // je rel32
		a.relocs = append(a.relocs, Reloc{PatchOffset: len(a.code), Target: in.Label})
		a.emitU32(0)
		return nil

	case IRLabel:
		if _, dup := a.symbols[in.Label]; dup {
			return fmt.Errorf("internal: label L%d defined twice in %s", in.Label, a.fn.IR.Name)
		}
		a.symbols[in.Label] = len(a.code)
		return nil

	case IRReturn:
		if err := a.loadValue(RAX, in.Src); err != nil {
			return err
		}
		a.movRegReg(RSP, RBP)
		a.popReg(RBP)
		a.ret()
		return nil

	case IRSyscall:
		a.syscall()
		return nil

	default:
		return fmt.Errorf("internal: unknown IR op %d in %s", in.Op, a.fn.IR.Name)
	}
}

// encodeBinaryOp evaluates lhs into rax and rhs into rdi, combines them
// into rax, and stores rax to the destination. Comparisons materialize
// their 1/0 through setcc+movzx.
func (a *Assembler) encodeBinaryOp(in Instr) error {
	if err := a.loadValue(RAX, in.Lhs); err != nil {
		return err
	}
	if err := a.loadValue(RDI, in.Rhs); err != nil {
		return err
	}

	switch in.BinOp {
	case OpAdd:
		a.addRegReg(RAX, RDI)
	case OpSub:
		a.subRegReg(RAX, RDI)
	case OpMul:
		a.imulRegReg(RAX, RDI)
	case OpDiv:
		a.cqo()
		a.idivReg(RDI)
	case OpMod:
		a.cqo()
		a.idivReg(RDI)
		a.movRegReg(RAX, RDX)
	case OpLt, OpLe, OpGt, OpGe, OpEq, OpNe:
		a.cmpRegReg(RAX, RDI)
		a.setccAl(conditionCode(in.BinOp))
		a.movzxRaxAl()
	default:
		return fmt.Errorf("internal: unknown binary operator %s", in.BinOp)
	}
	return a.storeVReg(in.Dest, RAX)
}

func conditionCode(op BinOp) byte {
	switch op {
	case OpLt:
		return ccL
	case OpLe:
		return ccLE
	case OpGt:
		return ccG
	case OpGe:
		return ccGE
	case OpEq:
		return ccE
	default:
		return ccNE
	}
}

// encodeCall passes argument 0 in rdi and pushes arguments 1+ right to
// left, cleaning them up after the call returns with the result in rax
func (a *Assembler) encodeCall(in Instr) error {
	for i := len(in.Args) - 1; i >= 1; i-- {
		if err := a.loadValue(RAX, in.Args[i]); err != nil {
			return err
		}
		a.pushReg(RAX)
	}
	if len(in.Args) > 0 {
		if err := a.loadValue(RDI, in.Args[0]); err != nil {
			return err
		}
	}

	a.emit(0xe8)
	a.callSites = append(a.callSites, CallSite{PatchOffset: len(a.code), Target: in.Name})
	a.emitU32(0)

	if extra := len(in.Args) - 1; extra > 0 {
		a.addRspImm32(int32(8 * extra))
	}
	return a.storeVReg(in.Dest, RAX)
}

// patchRelocs writes every deferred jump displacement. A relocation whose
// label never got defined means lowering emitted a dangling jump; that is
// a compiler bug and aborts the compilation.
func (a *Assembler) patchRelocs() error {
	for _, rel := range a.relocs {
		target, ok := a.symbols[rel.Target]
		if !ok {
			return fmt.Errorf("internal: relocation targets undefined label L%d in %s", rel.Target, a.fn.IR.Name)
		}
		disp := int32(target - (rel.PatchOffset + relocWidth))
		patchU32(a.code, rel.PatchOffset, uint32(disp))
	}
	return nil
}

// patchU32 overwrites 4 little-endian bytes at offset
func patchU32(code []byte, offset int, v uint32) {
	code[offset] = byte(v)
	code[offset+1] = byte(v >> 8)
	code[offset+2] = byte(v >> 16)
	code[offset+3] = byte(v >> 24)
}
