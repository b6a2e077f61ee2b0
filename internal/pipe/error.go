// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pipe

import (
	"errors"
	"fmt"
)

var (
	// ErrBrokenPipe is returned if a command can not be delivered because
	// the guest is gone. It is expected in case the kernel halted before all
	// commands have been sent.
	ErrBrokenPipe = errors.New("broken pipe")

	// ErrNotFIFO is returned if a channel path exists but is not a named
	// pipe.
	ErrNotFIFO = errors.New("not a named pipe")
)

// Error wraps any error occurring during pipe processing.
type Error struct {
	Name string
	Err  error
}

// Error implements the [error] interface.
func (e *Error) Error() string {
	return fmt.Sprintf("pipe %s: %v", e.Name, e.Err.Error())
}

// Is implements the [errors.Is] interface.
func (*Error) Is(other error) bool {
	_, ok := other.(*Error)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *Error) Unwrap() error {
	return e.Err
}
