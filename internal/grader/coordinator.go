// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package grader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/aibor/osvgrade/internal/classify"
	"github.com/aibor/osvgrade/internal/labs"
	"github.com/aibor/osvgrade/internal/logsink"
	"github.com/aibor/osvgrade/internal/pipe"
	"github.com/aibor/osvgrade/internal/qemu"
)

// ErrChannelSetup is returned if the console channel could not be set up for
// any test of a run.
var ErrChannelSetup = errors.New("console channel setup failed")

// DefaultLinger is the time console output is still read after QEMU exited.
const DefaultLinger = 100 * time.Millisecond

const quitCommand = "quit"

// Config for a [Coordinator].
type Config struct {
	// Emulator describes the QEMU command. Its ConsolePath is set to the
	// console channel of each test.
	Emulator qemu.CommandSpec

	// ConsolePath is the base path of the console FIFO pair.
	ConsolePath string

	// GraceWindow is waited after the first console output before the
	// test is sent. Defaults to [qemu.DefaultGraceWindow].
	GraceWindow time.Duration

	// QuitDelay is waited between sending the test name and "quit".
	QuitDelay time.Duration

	// Linger is the time console output is still read after QEMU exited.
	// Defaults to [DefaultLinger].
	Linger time.Duration

	// SourceRoot is the kernel source directory that contains the test
	// programs. Its path is written into transcripts.
	SourceRoot string

	// SourceFS is the file system the test programs are discovered in.
	// Defaults to [os.DirFS] of SourceRoot.
	SourceFS fs.FS

	// TranscriptDir is the directory "lab<N>output" files are written to.
	TranscriptDir string
}

// TranscriptPath returns the path of the transcript of the given lab.
func (c *Config) TranscriptPath(lab int) string {
	return filepath.Join(c.TranscriptDir, "lab"+strconv.Itoa(lab)+"output")
}

// Coordinator runs labs.
type Coordinator struct {
	cfg Config
	out *printer
}

// New creates a new [Coordinator]. Progress lines are written to out.
func New(cfg Config, out io.Writer) *Coordinator {
	if cfg.GraceWindow <= 0 {
		cfg.GraceWindow = qemu.DefaultGraceWindow
	}

	if cfg.Linger <= 0 {
		cfg.Linger = DefaultLinger
	}

	if cfg.SourceFS == nil {
		cfg.SourceFS = osDirFS(cfg.SourceRoot)
	}

	return &Coordinator{
		cfg: cfg,
		out: newPrinter(out),
	}
}

func osDirFS(dir string) fs.FS {
	if dir == "" {
		dir = "."
	}

	return os.DirFS(dir)
}

// TestCases discovers the tests of the given lab.
func (c *Coordinator) TestCases(lab *labs.Lab) ([]TestCase, error) {
	names, err := lab.Discover(c.cfg.SourceFS)
	if err != nil {
		return nil, fmt.Errorf("lab%d: %w", lab.ID, err)
	}

	tests := make([]TestCase, 0, len(names))
	for _, name := range names {
		tests = append(tests, NewTestCase(lab, name))
	}

	return tests, nil
}

// RunLab discovers and runs all tests of the given lab. The transcript is
// written to [Config.TranscriptPath].
func (c *Coordinator) RunLab(ctx context.Context, lab *labs.Lab) (RunResult, error) {
	tests, err := c.TestCases(lab)
	if err != nil {
		return RunResult{}, err
	}

	sink, err := logsink.Create(c.cfg.TranscriptPath(lab.ID))
	if err != nil {
		return RunResult{}, err
	}

	defer func() {
		err := sink.Close()
		if err != nil {
			slog.Warn("Failed to close transcript", slog.Any("error", err))
		}
	}()

	return c.Run(ctx, lab, tests, sink)
}

// Run runs the given tests strictly one after another and appends headers
// and console output to sink.
//
// Failing tests do not abort the run. Only cancellation of ctx, transcript
// write errors and a console channel that could not be set up for any test
// do.
func (c *Coordinator) Run(
	ctx context.Context,
	lab *labs.Lab,
	tests []TestCase,
	sink *logsink.Sink,
) (RunResult, error) {
	result := NewRunResult(lab.ID, uuid.New())

	slog.Debug("Run lab",
		slog.Int("lab", lab.ID),
		slog.String("run_id", result.RunID.String()),
		slog.Int("tests", len(tests)),
	)

	err := sink.Printf("test dir: %s", filepath.Join(c.cfg.SourceRoot, lab.TestDir()))
	if err != nil {
		return result, err
	}

	err = sink.Printf("run id: %s", result.RunID)
	if err != nil {
		return result, err
	}

	var (
		setupFailures int
		setupErr      error
	)

	for _, test := range tests {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		testResult, err := c.runTest(ctx, lab, test, sink)
		if err != nil {
			return result, err
		}

		if testResult.Outcome == LaunchFailed && errors.Is(testResult.Err, &pipe.Error{}) {
			setupFailures++
			setupErr = testResult.Err
		}

		err = result.Add(testResult)
		if err != nil {
			return result, err
		}
	}

	if len(tests) > 0 && setupFailures == len(tests) {
		return result, fmt.Errorf("%w: %w", ErrChannelSetup, setupErr)
	}

	return result, sink.Sync()
}

//nolint:funlen,cyclop
func (c *Coordinator) runTest(
	ctx context.Context,
	lab *labs.Lab,
	test TestCase,
	sink *logsink.Sink,
) (TestResult, error) {
	result := TestResult{Name: test.Name}
	fsm := &machine{test: test.Name}
	deadline := time.Now().Add(lab.RunTimeout())

	c.out.running(test.Name)

	err := sink.Printf("running test: %s", test.Name)
	if err != nil {
		return result, err
	}

	offset := sink.Mark()

	channel, err := pipe.Open(c.cfg.ConsolePath)
	if err != nil {
		slog.Warn("Console channel setup failed",
			slog.String("test", test.Name),
			slog.Any("error", err),
		)
		fsm.transition(stateClassified, slog.String("outcome", LaunchFailed.String()))

		result.Outcome = LaunchFailed
		result.Err = err
		c.out.verdict(test.Name, result.Outcome)

		return result, nil
	}

	defer func() {
		err := channel.Close()
		if err != nil {
			slog.Debug("Close console channel", slog.Any("error", err))
		}
	}()

	spec := c.cfg.Emulator
	spec.ConsolePath = channel.Path()

	fsm.transition(stateBooting, slog.Bool("low_memory", test.LowMemory))
	c.out.line("booting osv")

	proc, err := qemu.Boot(ctx, spec, test.LowMemory)
	if err != nil {
		slog.Warn("QEMU launch failed",
			slog.String("test", test.Name),
			slog.Any("error", err),
		)
		fsm.transition(stateClassified, slog.String("outcome", LaunchFailed.String()))
		c.out.line("fails to start qemu")

		result.Outcome = LaunchFailed
		result.Err = err
		c.out.verdict(test.Name, result.Outcome)

		return result, nil
	}

	var (
		console bytes.Buffer
		group   errgroup.Group
		ready   = make(chan struct{})
	)

	group.Go(func() error {
		_, err := channel.Copy(&console, func() { close(ready) })
		return err
	})

	fsm.transition(stateAwaitingReady)

	readyCtx, cancel := context.WithDeadline(ctx, deadline)
	err = proc.AwaitReady(readyCtx, ready, c.cfg.GraceWindow)

	cancel()

	switch {
	case err == nil:
		fsm.transition(stateDispatching)
		c.dispatch(ctx, channel, test.Name)
	case errors.Is(err, qemu.ErrExited):
		slog.Debug("QEMU exited before ready", slog.String("test", test.Name))
	default:
		slog.Debug("QEMU not ready", slog.String("test", test.Name), slog.Any("error", err))
	}

	fsm.transition(stateAwaitingExit)
	c.out.line("waiting for osv")

	status, timedOut, waitErr := proc.WaitOrKill(deadline)

	err = channel.Stop(c.cfg.Linger)
	if err != nil {
		slog.Debug("Stop console channel", slog.Any("error", err))
	}

	pumpErr := group.Wait()
	if pumpErr != nil {
		slog.Warn("Console output incomplete",
			slog.String("test", test.Name),
			slog.Any("error", pumpErr),
		)
	}

	if waitErr != nil {
		return result, fmt.Errorf("test %s: %w", test.Name, waitErr)
	}

	if qemuOutput := proc.Output(); qemuOutput != "" {
		slog.Debug("QEMU output",
			slog.String("test", test.Name),
			slog.String("output", qemuOutput),
		)
	}

	c.out.line("reading output")

	_, err = sink.Write(console.Bytes())
	if err != nil {
		return result, err
	}

	window, err := sink.Window(offset)
	if err != nil {
		return result, err
	}

	classification := classify.Classify(window, test.Name)

	result.Output = string(window)
	result.Matches = classification.Matches
	result.Exit = status

	switch {
	case timedOut:
		result.Outcome = TimedOut

		c.out.timeout(lab.ID, lab.RunTimeout())
	case classification.Verdict == classify.Passed:
		result.Outcome = Passed
	default:
		result.Outcome = Failed
	}

	fsm.transition(stateClassified,
		slog.String("outcome", result.Outcome.String()),
		slog.String("exit", status.String()),
		slog.Bool("ambiguous", classification.Ambiguous()),
	)
	c.out.verdict(test.Name, result.Outcome)

	return result, nil
}

// dispatch sends the test name and the quit command. A guest that is gone
// already is not an error.
func (c *Coordinator) dispatch(ctx context.Context, channel *pipe.Channel, test string) {
	commands := []string{test, quitCommand}
	c.out.sending(commands...)

	if c.cfg.QuitDelay <= 0 {
		logSendError(test, channel.Send(commands...))
		return
	}

	logSendError(test, channel.Send(test))

	timer := time.NewTimer(c.cfg.QuitDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		return
	}

	logSendError(test, channel.Send(quitCommand))
}

func logSendError(test string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, pipe.ErrBrokenPipe):
		slog.Debug("Guest gone before command was sent",
			slog.String("test", test),
			slog.Any("error", err),
		)
	default:
		slog.Warn("Failed to send command",
			slog.String("test", test),
			slog.Any("error", err),
		)
	}
}
