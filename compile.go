package main

import (
	"fmt"
	"os"
)

// compile.go - The compilation pipeline
//
// source text -> tokens -> syntax tree -> validated program -> per-function
// IR -> storage assignment -> machine code -> linked image -> ELF file.
// Each function runs the lowering/assignment/assembly stages to completion
// on its own private state; the link step is the only whole-program phase
// and runs strictly after every function has finished.

// VerboseMode enables stage-by-stage diagnostics on stderr
var VerboseMode bool

// CompileSource compiles rue source text into a complete ELF image
func CompileSource(source string) ([]byte, error) {
	prog, _, err := ParseAndValidate(source)
	if err != nil {
		return nil, err
	}
	return CompileProgram(prog)
}

// ParseAndValidate runs the front half of the pipeline: tokens, tree,
// validation. Errors from here are user diagnostics.
func ParseAndValidate(source string) (*Program, *Scope, error) {
	tokens, err := NewLexer(source).Tokenize()
	if err != nil {
		return nil, nil, err
	}
	prog, err := Parse(tokens)
	if err != nil {
		return nil, nil, err
	}
	scope, err := Analyze(prog)
	if err != nil {
		return nil, nil, err
	}
	return prog, scope, nil
}

// CompileProgram compiles an already-validated program into an ELF image
func CompileProgram(prog *Program) ([]byte, error) {
	hasMain := false
	for _, fn := range prog.Functions {
		if fn.Name == entryFunctionName {
			hasMain = true
			break
		}
	}
	if !hasMain {
		return nil, fmt.Errorf("No main function found")
	}

	fns := make([]*AsmFunc, 0, len(prog.Functions))
	for _, fn := range prog.Functions {
		asmFn, err := compileFunction(fn)
		if err != nil {
			return nil, err
		}
		fns = append(fns, asmFn)
	}

	code, err := Link(fns)
	if err != nil {
		return nil, err
	}
	return WriteELF(code), nil
}

// compileFunction runs one function through lowering, storage assignment
// and assembly; all per-function state is discarded when it returns
func compileFunction(fn *Function) (*AsmFunc, error) {
	irfn, err := LowerFunction(fn)
	if err != nil {
		return nil, err
	}
	alloc, err := Allocate(irfn)
	if err != nil {
		return nil, err
	}
	return Assemble(alloc)
}

// CompileFile compiles inputPath and writes an executable to outputPath
func CompileFile(inputPath, outputPath string) error {
	source, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading '%s': %w", inputPath, err)
	}
	image, err := CompileSource(string(source))
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, image, 0o755); err != nil {
		return fmt.Errorf("writing '%s': %w", outputPath, err)
	}
	return nil
}
