// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logsink provides the append-only transcript of a lab run.
//
// All output of all tests of a run is appended to the same file in execution
// order. Callers capture an [Offset] with [Sink.Mark] before a test is
// dispatched and read the test's window with [Sink.Window] once the test is
// done.
package logsink

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// ErrInvalidOffset is returned if a window is requested for an offset that
// is not within the sink.
var ErrInvalidOffset = errors.New("invalid offset")

// Offset is a position in the [Sink].
type Offset int64

// Sink is an append-only, seekable record.
type Sink struct {
	mu   sync.Mutex
	file *os.File
	size int64
}

// Create creates the sink file at the given path. An existing file is
// truncated.
func Create(path string) (*Sink, error) {
	//nolint:gosec
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create sink: %w", err)
	}

	return &Sink{file: file}, nil
}

// Name returns the path of the underlying file.
func (s *Sink) Name() string {
	return s.file.Name()
}

// Write appends p to the sink. It implements [io.Writer].
func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.file.WriteAt(p, s.size)
	s.size += int64(n)

	if err != nil {
		return n, fmt.Errorf("append: %w", err)
	}

	return n, nil
}

// Printf appends a formatted line to the sink.
func (s *Sink) Printf(format string, args ...any) error {
	_, err := fmt.Fprintf(s, format+"\n", args...)
	return err
}

// Mark returns the current end of the sink.
func (s *Sink) Mark() Offset {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Offset(s.size)
}

// Window returns all bytes appended since the given offset.
func (s *Sink) Window(offset Offset) ([]byte, error) {
	s.mu.Lock()
	size := s.size
	s.mu.Unlock()

	if offset < 0 || int64(offset) > size {
		return nil, fmt.Errorf("%w: %d not in [0, %d]",
			ErrInvalidOffset, offset, size)
	}

	section := io.NewSectionReader(s.file, int64(offset), size-int64(offset))

	data, err := io.ReadAll(section)
	if err != nil {
		return nil, fmt.Errorf("read window: %w", err)
	}

	return data, nil
}

// Sync commits the content to stable storage.
func (s *Sink) Sync() error {
	return s.file.Sync() //nolint:wrapcheck
}

// Close closes the underlying file.
func (s *Sink) Close() error {
	return s.file.Close() //nolint:wrapcheck
}
