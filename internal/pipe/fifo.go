// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pipe

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// DefaultPath is the base path of the channel's named pipes.
const DefaultPath = "/tmp/osv-test"

const (
	inSuffix  = ".in"
	outSuffix = ".out"

	fifoMode = 0o600
)

// InPath returns the path of the command pipe for the given base path.
func InPath(base string) string {
	return base + inSuffix
}

// OutPath returns the path of the console output pipe for the given base
// path.
func OutPath(base string) string {
	return base + outSuffix
}

// Ensure creates both named pipes for the given base path, if they do not
// exist yet.
func Ensure(base string) error {
	for _, path := range []string{InPath(base), OutPath(base)} {
		err := ensureFIFO(path)
		if err != nil {
			return &Error{Name: path, Err: err}
		}
	}

	return nil
}

func ensureFIFO(path string) error {
	err := unix.Mkfifo(path, fifoMode)
	if err == nil {
		return nil
	}

	if !errors.Is(err, unix.EEXIST) {
		return fmt.Errorf("mkfifo: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}

	if info.Mode().Type() != fs.ModeNamedPipe {
		return ErrNotFIFO
	}

	return nil
}

// Remove removes both named pipes of the given base path. Missing pipes are
// ignored.
func Remove(base string) error {
	var errs []error

	for _, path := range []string{InPath(base), OutPath(base)} {
		err := os.Remove(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, &Error{Name: path, Err: err})
		}
	}

	return errors.Join(errs...)
}
