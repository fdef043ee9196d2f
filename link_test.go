package main

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
)

func TestEntryStubShape(t *testing.T) {
	stub := entryStub()

	if stub.Name != "_start" {
		t.Errorf("stub name = %q, want _start", stub.Name)
	}
	if len(stub.Code) != 17 {
		t.Errorf("stub is %d bytes, want 17", len(stub.Code))
	}
	if stub.Code[0] != 0xe8 {
		t.Error("stub must start with a call")
	}
	// mov rdi, rax / mov rax, 60 / syscall
	tail := []byte{0x48, 0x89, 0xc7, 0x48, 0xc7, 0xc0, 0x3c, 0x00, 0x00, 0x00, 0x0f, 0x05}
	if !bytes.HasSuffix(stub.Code, tail) {
		t.Errorf("stub tail = % x, want exit sequence", stub.Code[5:])
	}
	if len(stub.CallSites) != 1 || stub.CallSites[0].Target != entryFunctionName {
		t.Errorf("stub call sites = %v, want one call to main", stub.CallSites)
	}
}

func TestLinkPlacesEntryStubFirst(t *testing.T) {
	main := &AsmFunc{Name: "main", Code: []byte{0xc3}}
	code, err := Link([]*AsmFunc{main})
	if err != nil {
		t.Fatalf("Link failed: %v", err)
	}

	if len(code) != 17+1 {
		t.Fatalf("image is %d bytes, want 18", len(code))
	}
	if code[0] != 0xe8 {
		t.Error("image must start with the entry stub's call")
	}
	// main sits right after the 17-byte stub; the call at offset 0 patches
	// to 17 - (1 + 4) = 12.
	disp := int32(binary.LittleEndian.Uint32(code[1:]))
	if disp != 12 {
		t.Errorf("entry call displacement = %d, want 12", disp)
	}
}

func TestLinkPatchesCrossFunctionCalls(t *testing.T) {
	// main calls helper, which follows it in the layout.
	main := &AsmFunc{
		Name:      "main",
		Code:      []byte{0xe8, 0, 0, 0, 0, 0xc3},
		CallSites: []CallSite{{PatchOffset: 1, Target: "helper"}},
	}
	helper := &AsmFunc{Name: "helper", Code: []byte{0xc3}}

	code, err := Link([]*AsmFunc{main, helper})
	if err != nil {
		t.Fatalf("Link failed: %v", err)
	}

	// Layout: stub at 0 (17 bytes), main at 17 (6 bytes), helper at 23.
	// main's call patch lives at 17+1; it must reach helper at 23:
	// 23 - (18 + 4) = 1.
	disp := int32(binary.LittleEndian.Uint32(code[18:]))
	if disp != 1 {
		t.Errorf("cross-function call displacement = %d, want 1", disp)
	}
}

func TestLinkRejectsUndefinedCalls(t *testing.T) {
	main := &AsmFunc{
		Name:      "main",
		Code:      []byte{0xe8, 0, 0, 0, 0, 0xc3},
		CallSites: []CallSite{{PatchOffset: 1, Target: "missing"}},
	}
	_, err := Link([]*AsmFunc{main})
	if err == nil {
		t.Fatal("expected an error for a call to an unknown function")
	}
	if !strings.Contains(err.Error(), "undefined function 'missing'") {
		t.Errorf("error = %q, want it to name the missing function", err)
	}
}

func TestLinkRejectsDuplicateSymbols(t *testing.T) {
	a := &AsmFunc{Name: "main", Code: []byte{0xc3}}
	b := &AsmFunc{Name: "main", Code: []byte{0xc3}}
	_, err := Link([]*AsmFunc{a, b})
	if err == nil {
		t.Fatal("expected an error for duplicate symbols")
	}
	if !strings.Contains(err.Error(), "duplicate function symbol") {
		t.Errorf("error = %q, want it to mention the duplicate symbol", err)
	}
}
