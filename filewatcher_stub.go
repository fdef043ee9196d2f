//go:build !linux

package main

import "errors"

// filewatcher_stub.go - -watch is only wired up for Linux, which is also
// the only platform the produced binaries run on

// FileWatcher is unavailable on this platform
type FileWatcher struct{}

// NewFileWatcher always fails on non-Linux hosts
func NewFileWatcher(onChange func(string)) (*FileWatcher, error) {
	return nil, errors.New("watch mode is only supported on Linux")
}

// AddFile is unreachable on this platform
func (fw *FileWatcher) AddFile(path string) error { return nil }

// Watch is unreachable on this platform
func (fw *FileWatcher) Watch() {}

// Close is unreachable on this platform
func (fw *FileWatcher) Close() error { return nil }
