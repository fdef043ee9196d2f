package main

// elf.go - Minimal static ELF64 executable writer
//
// The produced image is as small as a loadable ELF gets: the 64-byte ELF
// header, one 56-byte program header, and the machine code immediately
// after. The single PT_LOAD segment maps the whole file readable and
// executable; the language has no static mutable data, so there is no
// writable segment. Code therefore always starts at file offset 0x78 and
// the entry point is pinned at baseAddr+0x78 regardless of program size.

const (
	elfBaseAddr    = 0x400000
	elfHeaderSize  = 64
	progHeaderSize = 56
	headerRegion   = elfHeaderSize + progHeaderSize // 0x78
	elfEntryPoint  = elfBaseAddr + headerRegion
	elfPageSize    = 0x1000
)

type elfBuffer struct {
	buf []byte
}

func (b *elfBuffer) bytes(bs ...byte) { b.buf = append(b.buf, bs...) }

func (b *elfBuffer) u16(v uint16) {
	b.bytes(byte(v), byte(v>>8))
}

func (b *elfBuffer) u32(v uint32) {
	b.bytes(byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (b *elfBuffer) u64(v uint64) {
	b.u32(uint32(v))
	b.u32(uint32(v >> 32))
}

// WriteELF wraps fully-linked machine code in an executable ELF image for
// linux/amd64
func WriteELF(code []byte) []byte {
	e := &elfBuffer{buf: make([]byte, 0, headerRegion+len(code))}

	// ELF identification
	e.bytes(0x7f, 'E', 'L', 'F')
	e.bytes(2)                      // ELFCLASS64
	e.bytes(1)                      // little-endian
	e.bytes(1)                      // EV_CURRENT
	e.bytes(0)                      // System V ABI
	e.bytes(0, 0, 0, 0, 0, 0, 0, 0) // padding

	// ELF header
	e.u16(2)              // ET_EXEC
	e.u16(0x3e)           // EM_X86_64
	e.u32(1)              // version
	e.u64(elfEntryPoint)  // entry point
	e.u64(elfHeaderSize)  // program header table offset
	e.u64(0)              // no section headers
	e.u32(0)              // flags
	e.u16(elfHeaderSize)  // this header's size
	e.u16(progHeaderSize) // program header entry size
	e.u16(1)              // exactly one program header
	e.u16(0)              // section header entry size
	e.u16(0)              // section header count
	e.u16(0)              // section name string table index

	// Program header: the single R+X PT_LOAD segment covering the file
	imageSize := uint64(headerRegion + len(code))
	e.u32(1)           // PT_LOAD
	e.u32(5)           // PF_R | PF_X
	e.u64(0)           // file offset
	e.u64(elfBaseAddr) // virtual address
	e.u64(elfBaseAddr) // physical address
	e.u64(imageSize)   // size in file
	e.u64(imageSize)   // size in memory
	e.u64(elfPageSize) // alignment

	e.buf = append(e.buf, code...)
	return e.buf
}
