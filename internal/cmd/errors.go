// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"errors"
	"fmt"
)

// Exit codes of the command.
const (
	exitOK         = 0
	exitFailure    = 1
	exitUsage      = 2
	exitSubmission = 3
	exitBuild      = 4
	exitConfig     = 5
)

var errLabArgument = errors.New("exactly one lab number required")

// UsageError wraps errors that occur during argument parsing.
type UsageError struct {
	err error
	msg string
}

// Error implements the [error] interface.
func (e *UsageError) Error() string {
	if e.err == nil {
		return e.msg
	}

	return fmt.Sprintf("%s: %v", e.msg, e.err)
}

// Is implements the [errors.Is] interface.
func (e *UsageError) Is(other error) bool {
	_, ok := other.(*UsageError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *UsageError) Unwrap() error {
	return e.err
}
