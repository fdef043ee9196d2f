package main

import (
	"bytes"
	"debug/elf"
	"testing"
)

func parseImage(t *testing.T, source string) (*elf.File, []byte) {
	t.Helper()
	image, err := CompileSource(source)
	if err != nil {
		t.Fatalf("Compilation failed: %v", err)
	}
	f, err := elf.NewFile(bytes.NewReader(image))
	if err != nil {
		t.Fatalf("produced image is not a valid ELF file: %v", err)
	}
	return f, image
}

func TestELFHeaderFields(t *testing.T) {
	f, _ := parseImage(t, `fn main() { 42 }`)
	defer f.Close()

	if f.Class != elf.ELFCLASS64 {
		t.Errorf("class = %v, want ELFCLASS64", f.Class)
	}
	if f.Data != elf.ELFDATA2LSB {
		t.Errorf("byte order = %v, want little-endian", f.Data)
	}
	if f.Type != elf.ET_EXEC {
		t.Errorf("type = %v, want ET_EXEC", f.Type)
	}
	if f.Machine != elf.EM_X86_64 {
		t.Errorf("machine = %v, want EM_X86_64", f.Machine)
	}
	if f.Entry != elfEntryPoint {
		t.Errorf("entry = %#x, want %#x", f.Entry, uint64(elfEntryPoint))
	}
}

func TestSingleLoadSegment(t *testing.T) {
	f, image := parseImage(t, `fn main() { 42 }`)
	defer f.Close()

	if len(f.Progs) != 1 {
		t.Fatalf("got %d program headers, want 1", len(f.Progs))
	}
	seg := f.Progs[0]
	if seg.Type != elf.PT_LOAD {
		t.Errorf("segment type = %v, want PT_LOAD", seg.Type)
	}
	if seg.Flags != elf.PF_R|elf.PF_X {
		t.Errorf("segment flags = %v, want R+X", seg.Flags)
	}
	if seg.Vaddr != elfBaseAddr {
		t.Errorf("segment vaddr = %#x, want %#x", seg.Vaddr, uint64(elfBaseAddr))
	}
	if seg.Off != 0 {
		t.Errorf("segment offset = %d, want 0 (maps the whole file)", seg.Off)
	}
	if seg.Filesz != uint64(len(image)) || seg.Memsz != uint64(len(image)) {
		t.Errorf("segment sizes %d/%d, want both %d", seg.Filesz, seg.Memsz, len(image))
	}
}

func TestEntryPointIsIndependentOfProgramSize(t *testing.T) {
	small, _ := parseImage(t, `fn main() { 1 }`)
	defer small.Close()
	large, _ := parseImage(t, `
		fn a(x) { x + 1 }
		fn b(x) { a(x) * 2 }
		fn c(x) { b(x) - 3 }
		fn main() { let n = 0; while n < 10 { n = n + 1; } c(n) }`)
	defer large.Close()

	if small.Entry != large.Entry {
		t.Errorf("entry moved from %#x to %#x as the program grew", small.Entry, large.Entry)
	}
}

func TestEntryPointLandsOnTheStub(t *testing.T) {
	// The first machine-code byte in the file is the entry stub's call, and
	// it sits exactly where the entry point says.
	_, image := parseImage(t, `
		fn helper() { 2 }
		fn main() { helper() + 40 }`)

	codeStart := elfEntryPoint - elfBaseAddr
	if image[codeStart] != 0xe8 {
		t.Errorf("byte at the entry point = %#x, want the stub's call opcode", image[codeStart])
	}
}

func TestHeaderRegionSize(t *testing.T) {
	_, image := parseImage(t, `fn main() { 0 }`)
	if len(image) <= headerRegion {
		t.Fatalf("image is %d bytes, must exceed the %d-byte header region", len(image), headerRegion)
	}
	if headerRegion != 0x78 {
		t.Errorf("header region = %#x, want 0x78 (ELF header plus one program header)", headerRegion)
	}
}
