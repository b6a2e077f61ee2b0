// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// ErrExited is returned by [Process.AwaitReady] if the process exits before
// it is ready.
var ErrExited = errors.New("process exited")

// ExitStatus is the status of a finished QEMU process.
type ExitStatus struct {
	// Code is the exit code or -1 if the process was terminated by a
	// signal.
	Code int

	// Signal that terminated the process, if any.
	Signal syscall.Signal
}

// String implements [fmt.Stringer].
func (s ExitStatus) String() string {
	if s.Signal != 0 {
		return "signal: " + unix.SignalName(s.Signal)
	}

	return "exit code " + strconv.Itoa(s.Code)
}

// Process is a single running QEMU instance.
type Process struct {
	ctx       context.Context //nolint:containedctx
	cmd       *exec.Cmd
	killGrace time.Duration
	output    bytes.Buffer
	done      chan struct{}
	waitErr   error
}

// Boot starts QEMU as described by spec. If lowMem is true, the low-memory
// size is used. The process runs in its own process group, which receives
// SIGTERM if ctx is canceled.
//
// The returned [Process] must be waited for with [Process.WaitOrKill].
func Boot(ctx context.Context, spec CommandSpec, lowMem bool) (*Process, error) {
	err := spec.Validate()
	if err != nil {
		return nil, err
	}

	args, err := BuildArgumentStrings(spec.Arguments(lowMem))
	if err != nil {
		return nil, fmt.Errorf("build arguments: %w", err)
	}

	proc := &Process{
		ctx:       ctx,
		killGrace: spec.killGrace(),
		done:      make(chan struct{}),
	}

	cmd := exec.CommandContext(ctx, spec.Executable, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stdout = &proc.output
	cmd.Stderr = &proc.output
	cmd.Cancel = func() error {
		return signalGroup(cmd.Process.Pid, unix.SIGTERM)
	}
	cmd.WaitDelay = proc.killGrace

	slog.Debug("Boot QEMU", slog.String("command", cmd.String()))

	err = cmd.Start()
	if err != nil {
		return nil, &CommandError{Err: err}
	}

	proc.cmd = cmd

	go func() {
		proc.waitErr = cmd.Wait()
		close(proc.done)
	}()

	return proc, nil
}

// Done returns a channel that is closed once the process exited.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Pid returns the process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// AwaitReady blocks until ready is closed and then waits for the grace
// window. It returns [ErrExited] if the process exits before and the
// context's error if ctx is done before.
func (p *Process) AwaitReady(
	ctx context.Context,
	ready <-chan struct{},
	grace time.Duration,
) error {
	select {
	case <-ready:
	case <-p.done:
		return ErrExited
	case <-ctx.Done():
		return ctx.Err()
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-p.done:
		return ErrExited
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitOrKill waits for the process to exit until the deadline. If the
// deadline passes, the process group receives SIGTERM and, after the kill
// grace, SIGKILL. timedOut reports if the deadline passed.
//
// A non-zero exit of QEMU is not an error. Errors are returned if waiting
// failed or the boot context was canceled.
func (p *Process) WaitOrKill(deadline time.Time) (ExitStatus, bool, error) {
	if p == nil || p.cmd == nil {
		return ExitStatus{}, false, ErrNotStarted
	}

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	var timedOut bool

	select {
	case <-p.done:
	case <-timer.C:
		timedOut = true

		slog.Debug("QEMU deadline exceeded, terminate",
			slog.Int("pid", p.Pid()))
		p.terminate()
	}

	status := exitStatus(p.cmd.ProcessState)

	if err := p.ctx.Err(); err != nil {
		return status, timedOut, &CommandError{Err: err, ExitCode: status.Code}
	}

	var exitErr *exec.ExitError
	if p.waitErr != nil && !errors.As(p.waitErr, &exitErr) {
		return status, timedOut, &CommandError{Err: p.waitErr, ExitCode: status.Code}
	}

	return status, timedOut, nil
}

// Output returns what QEMU itself wrote to stdout and stderr. It is only
// complete after the process exited.
func (p *Process) Output() string {
	select {
	case <-p.done:
		return p.output.String()
	default:
		return ""
	}
}

func (p *Process) terminate() {
	pid := p.Pid()

	err := signalGroup(pid, unix.SIGTERM)
	if err != nil {
		slog.Debug("SIGTERM failed", slog.Any("error", err))
	}

	timer := time.NewTimer(p.killGrace)
	defer timer.Stop()

	select {
	case <-p.done:
		return
	case <-timer.C:
	}

	err = signalGroup(pid, unix.SIGKILL)
	if err != nil {
		slog.Debug("SIGKILL failed", slog.Any("error", err))
	}

	<-p.done
}

func signalGroup(pid int, sig syscall.Signal) error {
	err := unix.Kill(-pid, sig)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}

	return err
}

func exitStatus(state *os.ProcessState) ExitStatus {
	if state == nil {
		return ExitStatus{Code: -1}
	}

	status := ExitStatus{Code: state.ExitCode()}

	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		status.Signal = ws.Signal()
	}

	return status
}
