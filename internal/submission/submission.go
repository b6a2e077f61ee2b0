// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package submission validates the layout of a submitted kernel source tree.
package submission

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// DefaultDirs are the directories a kernel source tree must contain.
var DefaultDirs = []string{
	"arch",
	"include",
	"kernel",
	"lib",
	"tools",
	"user",
}

// ErrMissing is matched by [MissingError].
var ErrMissing = errors.New("submission incomplete")

// MissingError lists the required directories absent from a submission.
type MissingError struct {
	Dirs []string
}

// Error implements the [error] interface.
func (e *MissingError) Error() string {
	return "missing directories: " + strings.Join(e.Dirs, ", ")
}

// Is implements the [errors.Is] interface.
func (*MissingError) Is(other error) bool {
	if other == ErrMissing {
		return true
	}

	_, ok := other.(*MissingError)

	return ok
}

// Validate checks that every one of dirs exists as a directory in fsys.
// All missing directories are reported at once.
func Validate(fsys fs.FS, dirs []string) error {
	var missing []string

	for _, dir := range dirs {
		info, err := fs.Stat(fsys, dir)

		switch {
		case err == nil && info.IsDir():
			continue
		case err == nil, errors.Is(err, fs.ErrNotExist):
			missing = append(missing, dir)
		default:
			return fmt.Errorf("check %s: %w", dir, err)
		}
	}

	if len(missing) > 0 {
		return &MissingError{Dirs: missing}
	}

	return nil
}
