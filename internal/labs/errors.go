// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package labs

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrRedoCycle is returned if the redo edges of a lab lead back to a lab
	// that is already part of the current redo chain.
	ErrRedoCycle = errors.New("redo dependency cycle")

	// ErrUnknownLab is returned if a lab is requested that is not present in
	// the [Table].
	ErrUnknownLab = errors.New("unknown lab")

	// ErrNegativeWeight is returned if a weight in the table is below zero.
	ErrNegativeWeight = errors.New("negative weight")

	// ErrInvalidID is returned if a lab has an id below 1.
	ErrInvalidID = errors.New("invalid lab id")
)

// RedoCycleError describes a detected redo cycle.
type RedoCycleError struct {
	// Path is the chain of lab ids that forms the cycle. The first and the
	// last element are the same lab.
	Path []int
}

// Error implements the [error] interface.
func (e *RedoCycleError) Error() string {
	ids := make([]string, 0, len(e.Path))
	for _, id := range e.Path {
		ids = append(ids, "lab"+strconv.Itoa(id))
	}

	return ErrRedoCycle.Error() + ": " + strings.Join(ids, " -> ")
}

// Is implements the [errors.Is] interface.
func (*RedoCycleError) Is(other error) bool {
	_, ok := other.(*RedoCycleError)
	return ok || other == ErrRedoCycle //nolint:errorlint,err113
}
