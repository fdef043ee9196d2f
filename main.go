package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/xyproto/env/v2"
)

// A small compiler for the rue language, producing standalone x86-64 Linux
// executables with no external assembler or linker.

const versionString = "rue 0.3.0"

func usage() {
	fmt.Fprintf(os.Stderr, `%s - compiler for the rue language

Usage:
  rue build <file.rue> [options]   compile to an executable
  rue run <file.rue> [options]     compile and run immediately
  rue <file.rue>                   shorthand for build
  rue version                      print version

Options:
  -o <path>     output path (default: source path without extension)
  -verbose      stage-by-stage diagnostics on stderr (also RUE_VERBOSE=1)
  -dump-ast     print the parsed syntax tree and exit
  -dump-ir      print the per-function IR and exit
  -watch        stay running and rebuild whenever the source changes (Linux)
`, versionString)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	command := "build"
	switch args[0] {
	case "build", "run":
		command = args[0]
		args = args[1:]
	case "version", "-V", "--version":
		fmt.Println(versionString)
		return
	case "help", "-h", "--help":
		usage()
		return
	}

	fs := flag.NewFlagSet("rue", flag.ExitOnError)
	output := fs.String("o", "", "output path")
	verbose := fs.Bool("verbose", env.Bool("RUE_VERBOSE"), "verbose diagnostics")
	dumpAST := fs.Bool("dump-ast", false, "print the syntax tree and exit")
	dumpIR := fs.Bool("dump-ir", false, "print the per-function IR and exit")
	watch := fs.Bool("watch", false, "rebuild on source changes")
	fs.Usage = usage

	// Accept both "rue build -o out file.rue" and "rue build file.rue -o out"
	var inputPath string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		inputPath = args[0]
		args = args[1:]
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if inputPath == "" && fs.NArg() > 0 {
		inputPath = fs.Arg(0)
	}
	if inputPath == "" {
		usage()
		os.Exit(1)
	}
	VerboseMode = *verbose

	outputPath := *output
	if outputPath == "" {
		outputPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
		if outputPath == inputPath {
			outputPath = inputPath + ".out"
		}
	}

	if *dumpAST || *dumpIR {
		if err := dumpDiagnostics(inputPath, *dumpAST, *dumpIR); err != nil {
			fmt.Fprintf(os.Stderr, "Compilation failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	build := func() error {
		if err := CompileFile(inputPath, outputPath); err != nil {
			return err
		}
		if VerboseMode {
			fmt.Fprintf(os.Stderr, "Successfully compiled to '%s'\n", outputPath)
		}
		return nil
	}

	if err := build(); err != nil {
		fmt.Fprintf(os.Stderr, "Compilation failed: %v\n", err)
		os.Exit(1)
	}

	if *watch {
		if err := watchAndRebuild(inputPath, build); err != nil {
			fmt.Fprintf(os.Stderr, "watch: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if command == "run" {
		runExecutable(outputPath, fs.Args())
	}
}

// dumpDiagnostics prints the requested intermediate representations
// without producing a binary
func dumpDiagnostics(inputPath string, ast, ir bool) error {
	source, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}
	prog, _, err := ParseAndValidate(string(source))
	if err != nil {
		return err
	}
	if ast {
		spew.Fdump(os.Stdout, prog)
	}
	if ir {
		for _, fn := range prog.Functions {
			irfn, err := LowerFunction(fn)
			if err != nil {
				return err
			}
			fmt.Print(irfn.String())
		}
	}
	return nil
}

// runExecutable executes the compiled program and exits with its status
func runExecutable(path string, extraArgs []string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run: %v\n", err)
		os.Exit(1)
	}
	cmd := exec.Command(abs, extraArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "run: %v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}

// watchAndRebuild recompiles whenever the source file changes; it returns
// only on watcher setup failure
func watchAndRebuild(inputPath string, build func() error) error {
	fw, err := NewFileWatcher(func(path string) {
		if err := build(); err != nil {
			fmt.Fprintf(os.Stderr, "Compilation failed: %v\n", err)
			return
		}
		fmt.Fprintf(os.Stderr, "rebuilt %s\n", path)
	})
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.AddFile(inputPath); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "watching %s\n", inputPath)
	fw.Watch()
	return nil
}
