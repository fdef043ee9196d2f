package main

// x64.go - x86-64 register set and instruction byte sequences
//
// Every encoder appends its exact machine bytes to the assembler's code
// buffer. There is deliberately no table of predicted instruction sizes
// anywhere in the compiler: the only notion of "how long was that
// instruction" is how far the buffer grew, so offset bookkeeping can never
// drift from what was actually emitted.
//
// All integer operations are 64-bit, so every ALU encoding carries the
// REX.W prefix. Only the eight classic registers are used, which keeps the
// REX byte constant at 0x48.

// X86Reg is a classic x86-64 register number (the 3-bit encoding)
type X86Reg uint8

const (
	RAX X86Reg = 0 // return value, primary scratch
	RCX X86Reg = 1 // allocator pool
	RDX X86Reg = 2 // clobbered by cqo/idiv, kept out of the pool
	RBX X86Reg = 3 // allocator pool
	RSP X86Reg = 4 // stack pointer
	RBP X86Reg = 5 // frame pointer
	RSI X86Reg = 6 // allocator pool
	RDI X86Reg = 7 // first argument, secondary scratch
)

func (r X86Reg) String() string {
	switch r {
	case RAX:
		return "rax"
	case RCX:
		return "rcx"
	case RDX:
		return "rdx"
	case RBX:
		return "rbx"
	case RSP:
		return "rsp"
	case RBP:
		return "rbp"
	case RSI:
		return "rsi"
	case RDI:
		return "rdi"
	default:
		return "r?"
	}
}

const rexW = 0x48

// modRM builds a ModR/M byte
func modRM(mod, reg, rm uint8) byte {
	return byte(mod<<6 | reg<<3 | rm)
}

func (a *Assembler) emit(bs ...byte) {
	a.code = append(a.code, bs...)
}

func (a *Assembler) emitU32(v uint32) {
	a.emit(byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (a *Assembler) emitU64(v uint64) {
	a.emitU32(uint32(v))
	a.emitU32(uint32(v >> 32))
}

// movRegImm64 encodes mov reg, imm64 (48 B8+r imm64)
func (a *Assembler) movRegImm64(dst X86Reg, imm int64) {
	a.emit(rexW, 0xb8+byte(dst))
	a.emitU64(uint64(imm))
}

// movRegReg encodes mov dst, src (48 89 /r)
func (a *Assembler) movRegReg(dst, src X86Reg) {
	a.emit(rexW, 0x89, modRM(3, uint8(src), uint8(dst)))
}

// movRegFrame encodes mov reg, [rbp+disp32] (48 8B /r disp32).
// disp32 is used unconditionally so the encoding does not depend on the
// magnitude of the offset.
func (a *Assembler) movRegFrame(dst X86Reg, offset int32) {
	a.emit(rexW, 0x8b, modRM(2, uint8(dst), uint8(RBP)))
	a.emitU32(uint32(offset))
}

// movFrameReg encodes mov [rbp+disp32], reg (48 89 /r disp32)
func (a *Assembler) movFrameReg(offset int32, src X86Reg) {
	a.emit(rexW, 0x89, modRM(2, uint8(src), uint8(RBP)))
	a.emitU32(uint32(offset))
}

// addRegReg encodes add dst, src (48 01 /r)
func (a *Assembler) addRegReg(dst, src X86Reg) {
	a.emit(rexW, 0x01, modRM(3, uint8(src), uint8(dst)))
}

// subRegReg encodes sub dst, src (48 29 /r)
func (a *Assembler) subRegReg(dst, src X86Reg) {
	a.emit(rexW, 0x29, modRM(3, uint8(src), uint8(dst)))
}

// imulRegReg encodes imul dst, src (48 0F AF /r)
func (a *Assembler) imulRegReg(dst, src X86Reg) {
	a.emit(rexW, 0x0f, 0xaf, modRM(3, uint8(dst), uint8(src)))
}

// cqo sign-extends rax into rdx:rax (48 99)
func (a *Assembler) cqo() {
	a.emit(rexW, 0x99)
}

// idivReg encodes idiv reg (48 F7 /7): rdx:rax / reg -> rax, remainder rdx.
// A zero divisor raises #DE at run time; the generated program dies with
// SIGFPE, which is the specified behavior for division by zero.
func (a *Assembler) idivReg(r X86Reg) {
	a.emit(rexW, 0xf7, modRM(3, 7, uint8(r)))
}

// cmpRegReg encodes cmp a, b (48 39 /r)
func (a *Assembler) cmpRegReg(x, y X86Reg) {
	a.emit(rexW, 0x39, modRM(3, uint8(y), uint8(x)))
}

// testRegReg encodes test a, b (48 85 /r)
func (a *Assembler) testRegReg(x, y X86Reg) {
	a.emit(rexW, 0x85, modRM(3, uint8(y), uint8(x)))
}

// setcc condition codes (low nibble of the 0F 9x opcode)
const (
	ccE  = 0x4 // equal
	ccNE = 0x5 // not equal
	ccL  = 0xc // less (signed)
	ccGE = 0xd // greater or equal (signed)
	ccLE = 0xe // less or equal (signed)
	ccG  = 0xf // greater (signed)
)

// setccAl encodes setcc al (0F 9x C0)
func (a *Assembler) setccAl(cc byte) {
	a.emit(0x0f, 0x90+cc, 0xc0)
}

// movzxRaxAl encodes movzx rax, al (48 0F B6 C0), widening a setcc result
// to the full 64-bit 1/0 the IR comparison contract requires
func (a *Assembler) movzxRaxAl() {
	a.emit(rexW, 0x0f, 0xb6, 0xc0)
}

// pushReg encodes push reg (50+r)
func (a *Assembler) pushReg(r X86Reg) {
	a.emit(0x50 + byte(r))
}

// popReg encodes pop reg (58+r)
func (a *Assembler) popReg(r X86Reg) {
	a.emit(0x58 + byte(r))
}

// subRspImm32 encodes sub rsp, imm32 (48 81 EC imm32)
func (a *Assembler) subRspImm32(n int32) {
	a.emit(rexW, 0x81, 0xec)
	a.emitU32(uint32(n))
}

// addRspImm32 encodes add rsp, imm32 (48 81 C4 imm32)
func (a *Assembler) addRspImm32(n int32) {
	a.emit(rexW, 0x81, 0xc4)
	a.emitU32(uint32(n))
}

// ret encodes ret (C3)
func (a *Assembler) ret() {
	a.emit(0xc3)
}

// syscall encodes syscall (0F 05)
func (a *Assembler) syscall() {
	a.emit(0x0f, 0x05)
}
