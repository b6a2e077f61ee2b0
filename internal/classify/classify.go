// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package classify turns the console trace of a single kernel test into a
// verdict.
package classify

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Verdict of a classified test.
type Verdict int

const (
	// Failed is the verdict if a pass marker is missing or any error
	// marker is present.
	Failed Verdict = iota

	// Passed is the verdict if the pass marker for the test is present and
	// no error marker is.
	Passed
)

// String implements [fmt.Stringer].
func (v Verdict) String() string {
	if v == Passed {
		return "passed"
	}

	return "failed"
}

// Kind of a matched marker.
type Kind int

const (
	// KindPass marks the pass marker line of the test.
	KindPass Kind = iota

	// KindError marks a line containing an error marker.
	KindError
)

// String implements [fmt.Stringer].
func (k Kind) String() string {
	if k == KindPass {
		return "pass"
	}

	return "error"
}

// ErrorMarkers are substrings that fail a test wherever they appear.
var ErrorMarkers = []string{
	"ERROR",
	"Assertion failed",
	"PANIC",
}

// Match is a single line that contained a marker.
type Match struct {
	// Line is the 1-based line number within the window.
	Line int
	Kind Kind
	// Text is the line with escape sequences removed.
	Text string
}

// Result of a classification.
type Result struct {
	Verdict Verdict
	Matches []Match
}

// Ambiguous reports whether no marker was found at all. The verdict is
// [Failed] then.
func (r Result) Ambiguous() bool {
	return len(r.Matches) == 0
}

// Errors returns the error marker matches.
func (r Result) Errors() []Match {
	var matches []Match

	for _, m := range r.Matches {
		if m.Kind == KindError {
			matches = append(matches, m)
		}
	}

	return matches
}

// PassMarker returns the pass marker line for the given test as printed by
// the kernel's test library, without color.
func PassMarker(test string) string {
	return "passed " + test
}

// Classify scans every line of the window once and records every marker.
// The test passed iff its pass marker was seen and no error marker was.
func Classify(window []byte, test string) Result {
	var (
		result   Result
		sawPass  bool
		sawError bool
		marker   = PassMarker(test)
		scanner  = bufio.NewScanner(bytes.NewReader(window))
		lineNo   int
	)

	scanner.Buffer(make([]byte, 0, 4096), len(window)+1)

	for scanner.Scan() {
		lineNo++

		line := strings.TrimRight(ansi.Strip(scanner.Text()), "\r")

		if strings.Contains(line, marker) {
			sawPass = true

			result.Matches = append(result.Matches, Match{
				Line: lineNo,
				Kind: KindPass,
				Text: line,
			})
		}

		if containsErrorMarker(line) {
			sawError = true

			result.Matches = append(result.Matches, Match{
				Line: lineNo,
				Kind: KindError,
				Text: line,
			})
		}
	}

	if sawPass && !sawError {
		result.Verdict = Passed
	}

	return result
}

func containsErrorMarker(line string) bool {
	for _, m := range ErrorMarkers {
		if strings.Contains(line, m) {
			return true
		}
	}

	return false
}
