// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package score

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// DefaultReportPath is where the grading platform expects the report.
const DefaultReportPath = "/autograder/results/results.json"

const (
	buildEntryName  = "build"
	notRunEntryName = "tests not run"
	missingTestNote = "test program not found"
	redoEntryPrefix = "redo lab"
	reportFileMode  = 0o644
	reportDirMode   = 0o755
)

// Test is a single entry of a [Report].
type Test struct {
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	MaxScore float64 `json:"max_score"`
	Output   string  `json:"output,omitempty"`
}

// Report is the score report of a lab in the format of the grading platform.
type Report struct {
	Lab int `json:"-"`

	Score    float64 `json:"score"`
	MaxScore float64 `json:"-"`

	// Output is only set for reports of runs that failed before any test
	// ran.
	Output string `json:"output,omitempty"`

	Tests []Test `json:"tests,omitempty"`
}

// Failure returns the report for a run that failed before any test ran.
func Failure(lab int, output string) Report {
	return Report{
		Lab:    lab,
		Output: output,
	}
}

// BuildFailure returns the report for a run whose kernel build failed. The
// build output is recorded in a zero weight entry and the lab's whole score
// is lost in a "tests not run" entry.
func BuildFailure(lab int, maxScore int, output string) Report {
	return Report{
		Lab:      lab,
		MaxScore: float64(maxScore),
		Tests: []Test{
			{Name: buildEntryName, Output: output},
			{Name: notRunEntryName, MaxScore: float64(maxScore)},
		},
	}
}

// AddBuildOutput prepends a zero weight entry with the output of the kernel
// build.
func (r *Report) AddBuildOutput(output string) {
	r.Tests = append([]Test{{Name: buildEntryName, Output: output}}, r.Tests...)
}

// Summary returns the final score line.
func (r *Report) Summary() string {
	return fmt.Sprintf("lab%dtest score: %s/%s",
		r.Lab, formatScore(r.Score), formatScore(r.MaxScore))
}

// Write writes the report as JSON to the given path. Missing parent
// directories are created.
func (r *Report) Write(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	err = os.MkdirAll(filepath.Dir(path), reportDirMode)
	if err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	//nolint:gosec
	err = os.WriteFile(path, append(data, '\n'), reportFileMode)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}

func formatScore(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
