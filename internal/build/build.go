// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package build compiles the kernel and its disk image before tests run.
package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// DefaultCommand builds the kernel and the disk image.
var DefaultCommand = []string{"make"}

// ErrNoCommand is returned if the build command is empty.
var ErrNoCommand = errors.New("no build command")

// Error is returned if the build failed. It carries the combined output of
// the build command.
type Error struct {
	Output string
	Err    error
}

// Error implements the [error] interface.
func (e *Error) Error() string {
	return "build failed: " + e.Err.Error()
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

// Builder runs the build command in the kernel source directory.
type Builder struct {
	Command []string
	Dir     string
}

// Run runs the build and returns its combined output. On failure, the
// returned error is an [Error].
func (b *Builder) Run(ctx context.Context) (string, error) {
	command := b.Command
	if len(command) == 0 {
		command = DefaultCommand
	}

	if command[0] == "" {
		return "", &Error{Err: ErrNoCommand}
	}

	var output bytes.Buffer

	//nolint:gosec
	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Dir = b.Dir
	cmd.Stdout = &output
	cmd.Stderr = &output

	slog.Debug("Build kernel",
		slog.String("command", strings.Join(command, " ")),
		slog.String("dir", b.Dir),
	)

	err := cmd.Run()
	if err != nil {
		return output.String(), &Error{
			Output: output.String(),
			Err:    fmt.Errorf("%s: %w", command[0], err),
		}
	}

	return output.String(), nil
}
