//go:build unix

package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"syscall"
	"testing"

	"golang.org/x/sys/unix"
)

// run_test.go - helpers that compile rue source and execute the produced
// binary. Only the exit status (or terminating signal) is observable, since
// exit is the only syscall the generated programs make.

// compileAndWait compiles source, runs the executable and returns the raw
// wait status so callers can check signals as well as exit codes
func compileAndWait(t *testing.T, source string) unix.WaitStatus {
	t.Helper()

	if runtime.GOOS != "linux" || runtime.GOARCH != "amd64" {
		t.Skip("produced executables only run on linux/amd64")
	}

	image, err := CompileSource(source)
	if err != nil {
		t.Fatalf("Compilation failed: %v", err)
	}

	exePath := filepath.Join(t.TempDir(), "prog")
	if err := os.WriteFile(exePath, image, 0o755); err != nil {
		t.Fatalf("Failed to write executable: %v", err)
	}

	cmd := exec.Command(exePath)
	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			t.Fatalf("Failed to run executable: %v", err)
		}
	}
	return unix.WaitStatus(cmd.ProcessState.Sys().(syscall.WaitStatus))
}

// compileAndRun compiles source, runs the executable and returns its exit
// code, failing the test if the program was killed by a signal
func compileAndRun(t *testing.T, source string) int {
	t.Helper()

	status := compileAndWait(t, source)
	if status.Signaled() {
		t.Fatalf("Program killed by signal %v, expected normal exit", status.Signal())
	}
	return status.ExitStatus()
}
