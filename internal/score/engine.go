// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package score turns the results of a lab run into a weighted [Report].
package score

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aibor/osvgrade/internal/grader"
	"github.com/aibor/osvgrade/internal/labs"
)

// Runner runs all tests of a lab.
type Runner interface {
	RunLab(ctx context.Context, lab *labs.Lab) (grader.RunResult, error)
}

// Engine scores lab runs. Redo edges are resolved by running the referenced
// lab with the [Runner].
type Engine struct {
	table  *labs.Table
	runner Runner
}

// NewEngine creates a new [Engine].
func NewEngine(table *labs.Table, runner Runner) *Engine {
	return &Engine{
		table:  table,
		runner: runner,
	}
}

// Score computes the report for the given run of lab.
//
// A test adds its weight to the score only if it passed. Every declared
// weight adds to the maximum score, also those of tests that were not found.
// Tests without weight are not part of the report. For each redo edge the
// referenced lab is run and scored again, its normalized score is added as a
// single entry.
func (e *Engine) Score(
	ctx context.Context,
	lab *labs.Lab,
	run grader.RunResult,
) (Report, error) {
	if len(lab.Redo) > 0 {
		err := e.table.CheckRedo(lab.ID)
		if err != nil {
			return Report{}, err
		}
	}

	return e.score(ctx, lab, run)
}

func (e *Engine) score(
	ctx context.Context,
	lab *labs.Lab,
	run grader.RunResult,
) (Report, error) {
	report := Report{Lab: lab.ID}

	for _, result := range run.Results() {
		weight, weighted := lab.Weight(result.Name)
		if !weighted {
			continue
		}

		report.add(testEntry(result, weight))
	}

	for _, name := range lab.WeightedTests() {
		if _, ran := run.Get(name); ran {
			continue
		}

		weight, _ := lab.Weight(name)
		report.add(Test{
			Name:     name,
			MaxScore: float64(weight),
			Output:   missingTestNote,
		})
	}

	for _, redo := range lab.Redo {
		entry, err := e.redo(ctx, redo)
		if err != nil {
			return report, fmt.Errorf("lab%d: %w", lab.ID, err)
		}

		report.add(entry)
	}

	return report, nil
}

func (e *Engine) redo(ctx context.Context, redo labs.Redo) (Test, error) {
	lab, err := e.table.Lab(redo.Lab)
	if err != nil {
		return Test{}, err
	}

	slog.Debug("Rerun lab for redo", slog.Int("lab", lab.ID))

	run, err := e.runner.RunLab(ctx, lab)
	if err != nil {
		return Test{}, fmt.Errorf("redo lab%d: %w", lab.ID, err)
	}

	sub, err := e.score(ctx, lab, run)
	if err != nil {
		return Test{}, err
	}

	return Test{
		Name:     redoEntryPrefix + strconv.Itoa(lab.ID),
		Score:    normalize(sub.Score, lab.ScoreDenominator(), redo.Weight),
		MaxScore: float64(redo.Weight),
		Output:   sub.Summary(),
	}, nil
}

func (r *Report) add(test Test) {
	r.Tests = append(r.Tests, test)
	r.Score += test.Score
	r.MaxScore += test.MaxScore
}

func testEntry(result grader.TestResult, weight int) Test {
	entry := Test{
		Name:     result.Name,
		MaxScore: float64(weight),
		Output:   result.Output,
	}

	switch result.Outcome {
	case grader.Passed:
		entry.Score = float64(weight)
	case grader.TimedOut:
		entry.Output += "\n" + result.Outcome.String()
	case grader.LaunchFailed:
		if result.Err != nil {
			entry.Output = result.Err.Error()
		}
	case grader.Failed:
	}

	return entry
}

// normalize scales total of denominator to weight, clamped to [0, weight].
func normalize(total float64, denominator int, weight int) float64 {
	if denominator <= 0 || total <= 0 {
		return 0
	}

	return min(float64(weight)*total/float64(denominator), float64(weight))
}
