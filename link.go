package main

import (
	"fmt"
	"os"
)

// link.go - Whole-program layout and call resolution
//
// After every function has been assembled independently, the linker lays
// the image out: the entry stub first (so the ELF entry point is always
// the first code byte), then each function in source order. Only then does
// it know every function's offset, so patching the rel32 call sites is a
// strictly sequential final step behind that barrier.

// entryFunctionName is the function the entry stub invokes; its return
// value becomes the process exit status
const entryFunctionName = "main"

// entryStub builds the process entry sequence:
//
//	call main
//	mov rdi, rax
//	mov rax, 60          ; sys_exit
//	syscall
//
// The exit syscall is the produced program's only interaction with the
// operating system.
func entryStub() *AsmFunc {
	code := []byte{
		0xe8, 0, 0, 0, 0, // call rel32 (patched by Link)
		0x48, 0x89, 0xc7, // mov rdi, rax
		0x48, 0xc7, 0xc0, 0x3c, 0x00, 0x00, 0x00, // mov rax, 60
		0x0f, 0x05, // syscall
	}
	return &AsmFunc{
		Name:      "_start",
		Code:      code,
		CallSites: []CallSite{{PatchOffset: 1, Target: entryFunctionName}},
	}
}

// Link concatenates the entry stub and all functions into one code region
// and patches every call site. Calls are rel32 within the region, so the
// result is independent of the load address.
func Link(fns []*AsmFunc) ([]byte, error) {
	layout := append([]*AsmFunc{entryStub()}, fns...)

	offsets := make(map[string]int, len(layout))
	size := 0
	for _, fn := range layout {
		if _, dup := offsets[fn.Name]; dup {
			return nil, fmt.Errorf("internal: duplicate function symbol '%s'", fn.Name)
		}
		offsets[fn.Name] = size
		size += len(fn.Code)
	}

	code := make([]byte, 0, size)
	for _, fn := range layout {
		if VerboseMode {
			fmt.Fprintf(os.Stderr, "layout %s at +%04x (%d bytes)\n", fn.Name, offsets[fn.Name], len(fn.Code))
		}
		code = append(code, fn.Code...)
	}

	for _, fn := range layout {
		base := offsets[fn.Name]
		for _, site := range fn.CallSites {
			target, ok := offsets[site.Target]
			if !ok {
				return nil, fmt.Errorf("internal: call to undefined function '%s'", site.Target)
			}
			patch := base + site.PatchOffset
			disp := int32(target - (patch + relocWidth))
			patchU32(code, patch, uint32(disp))
		}
	}
	return code, nil
}
