// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package grader

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/aibor/osvgrade/internal/classify"
	"github.com/aibor/osvgrade/internal/labs"
	"github.com/aibor/osvgrade/internal/qemu"
)

// ErrDuplicateTest is returned if a result is added for a test that already
// has one.
var ErrDuplicateTest = errors.New("duplicate test result")

// lowMemoryMarker in a test name selects the low-memory boot variant.
const lowMemoryMarker = "low-mem"

// Outcome of a single test run.
type Outcome int

const (
	// Failed is the outcome of a test that ran but was not classified as
	// passed.
	Failed Outcome = iota

	// Passed is the outcome of a test classified as passed.
	Passed

	// TimedOut is the outcome of a test whose QEMU instance did not halt
	// before the lab's deadline.
	TimedOut

	// LaunchFailed is the outcome of a test whose QEMU instance could not
	// be started.
	LaunchFailed
)

// String implements [fmt.Stringer].
func (o Outcome) String() string {
	switch o {
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed out"
	case LaunchFailed:
		return "launch failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// TestCase is a single test program of a lab.
type TestCase struct {
	Name string

	// Weight is only meaningful if Weighted is true.
	Weight   int
	Weighted bool

	// LowMemory selects the low-memory boot variant.
	LowMemory bool
}

// NewTestCase returns the [TestCase] for the named test of the given lab.
func NewTestCase(lab *labs.Lab, name string) TestCase {
	weight, weighted := lab.Weight(name)

	return TestCase{
		Name:      name,
		Weight:    weight,
		Weighted:  weighted,
		LowMemory: strings.Contains(name, lowMemoryMarker),
	}
}

// TestResult is the result of a single test run.
type TestResult struct {
	Name    string
	Outcome Outcome

	// Output is the console output of the test.
	Output string

	// Matches found by the classifier. They are also recorded for timed
	// out tests.
	Matches []classify.Match

	// Exit is the exit status of QEMU, if it was started.
	Exit qemu.ExitStatus

	// Err holds the launch error of a [LaunchFailed] test.
	Err error
}

// RunResult holds the results of a lab run in execution order.
type RunResult struct {
	Lab   int
	RunID uuid.UUID

	results []TestResult
}

// NewRunResult creates an empty [RunResult] for the given lab.
func NewRunResult(lab int, runID uuid.UUID) RunResult {
	return RunResult{
		Lab:   lab,
		RunID: runID,
	}
}

// Add appends the result. It fails if there is a result for the same test
// already.
func (r *RunResult) Add(result TestResult) error {
	if _, exists := r.Get(result.Name); exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTest, result.Name)
	}

	r.results = append(r.results, result)

	return nil
}

// Get returns the result of the named test.
func (r RunResult) Get(name string) (TestResult, bool) {
	idx := slices.IndexFunc(r.results, func(res TestResult) bool {
		return res.Name == name
	})
	if idx < 0 {
		return TestResult{}, false
	}

	return r.results[idx], true
}

// Results returns a copy of all results in execution order.
func (r RunResult) Results() []TestResult {
	return slices.Clone(r.results)
}

// Len returns the number of results.
func (r RunResult) Len() int {
	return len(r.results)
}

// Count returns the number of results with the given outcome.
func (r RunResult) Count(outcome Outcome) int {
	var count int

	for _, res := range r.results {
		if res.Outcome == outcome {
			count++
		}
	}

	return count
}
