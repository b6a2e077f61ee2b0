// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package score_test

import (
	"context"
	"errors"
	"maps"
	"slices"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibor/osvgrade/internal/grader"
	"github.com/aibor/osvgrade/internal/labs"
	"github.com/aibor/osvgrade/internal/score"
)

type fakeRunner struct {
	results map[int]map[string]grader.Outcome
	err     error
	calls   []int
}

func (r *fakeRunner) RunLab(_ context.Context, lab *labs.Lab) (grader.RunResult, error) {
	r.calls = append(r.calls, lab.ID)

	if r.err != nil {
		return grader.RunResult{}, r.err
	}

	return runResult(lab.ID, r.results[lab.ID]), nil
}

func runResult(lab int, outcomes map[string]grader.Outcome) grader.RunResult {
	result := grader.NewRunResult(lab, uuid.New())

	for _, name := range slices.Sorted(maps.Keys(outcomes)) {
		_ = result.Add(grader.TestResult{
			Name:    name,
			Outcome: outcomes[name],
			Output:  "output of " + name,
		})
	}

	return result
}

func table(t *testing.T, labList ...labs.Lab) *labs.Table {
	t.Helper()

	tbl, err := labs.Parse(nil)
	require.NoError(t, err)
	require.NoError(t, tbl.Merge(labList...))

	return tbl
}

func TestEngine_Score(t *testing.T) {
	lab2 := labs.Lab{
		ID: 2,
		Weights: map[string]int{
			"open-twice": 12,
			"read-small": 18,
		},
	}

	tests := []struct {
		name            string
		outcomes        map[string]grader.Outcome
		expectedScore   float64
		expectedMax     float64
		expectedEntries []string
		expectedSummary string
	}{
		{
			name: "pass and timeout",
			outcomes: map[string]grader.Outcome{
				"open-twice": grader.Passed,
				"read-small": grader.TimedOut,
			},
			expectedScore:   12,
			expectedMax:     30,
			expectedEntries: []string{"open-twice", "read-small"},
			expectedSummary: "lab2test score: 12/30",
		},
		{
			name: "unweighted tests are not reported",
			outcomes: map[string]grader.Outcome{
				"debug":      grader.Passed,
				"open-twice": grader.Passed,
				"read-small": grader.Passed,
			},
			expectedScore:   30,
			expectedMax:     30,
			expectedEntries: []string{"open-twice", "read-small"},
			expectedSummary: "lab2test score: 30/30",
		},
		{
			name: "missing test program",
			outcomes: map[string]grader.Outcome{
				"open-twice": grader.Passed,
			},
			expectedScore:   12,
			expectedMax:     30,
			expectedEntries: []string{"open-twice", "read-small"},
			expectedSummary: "lab2test score: 12/30",
		},
		{
			name: "launch failed",
			outcomes: map[string]grader.Outcome{
				"open-twice": grader.LaunchFailed,
				"read-small": grader.Failed,
			},
			expectedScore:   0,
			expectedMax:     30,
			expectedEntries: []string{"open-twice", "read-small"},
			expectedSummary: "lab2test score: 0/30",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := score.NewEngine(table(t, lab2), &fakeRunner{})

			report, err := engine.Score(t.Context(), &lab2, runResult(2, tt.outcomes))
			require.NoError(t, err)

			assert.InDelta(t, tt.expectedScore, report.Score, 0.001)
			assert.InDelta(t, tt.expectedMax, report.MaxScore, 0.001)
			assert.LessOrEqual(t, report.Score, report.MaxScore)
			assert.Equal(t, tt.expectedSummary, report.Summary())

			names := []string{}
			for _, entry := range report.Tests {
				names = append(names, entry.Name)
				assert.LessOrEqual(t, entry.Score, entry.MaxScore)
			}

			assert.Equal(t, tt.expectedEntries, names)
		})
	}
}

func TestEngine_Score_Unweighted(t *testing.T) {
	lab := labs.Lab{ID: 7}
	engine := score.NewEngine(table(t, lab), &fakeRunner{})

	report, err := engine.Score(t.Context(), &lab, runResult(7, map[string]grader.Outcome{
		"hello": grader.Passed,
		"world": grader.Failed,
	}))
	require.NoError(t, err)

	assert.Zero(t, report.Score)
	assert.Zero(t, report.MaxScore)
	assert.Empty(t, report.Tests)
	assert.Equal(t, "lab7test score: 0/0", report.Summary())
}

func TestEngine_Score_Redo(t *testing.T) {
	lab4 := labs.Lab{
		ID:          4,
		Denominator: 100,
		Weights: map[string]int{
			"grow-stack": 25,
			"sbrk-large": 75,
		},
	}
	lab5 := labs.Lab{
		ID:      5,
		Weights: map[string]int{"cow-small": 20},
		Redo:    []labs.Redo{{Lab: 4, Weight: 20}},
	}

	runner := &fakeRunner{
		results: map[int]map[string]grader.Outcome{
			4: {
				"grow-stack": grader.Passed,
				"sbrk-large": grader.Failed,
			},
		},
	}
	engine := score.NewEngine(table(t, lab4, lab5), runner)

	report, err := engine.Score(t.Context(), &lab5, runResult(5, map[string]grader.Outcome{
		"cow-small": grader.Passed,
	}))
	require.NoError(t, err)

	assert.Equal(t, []int{4}, runner.calls)
	assert.InDelta(t, 25.0, report.Score, 0.001)
	assert.InDelta(t, 40.0, report.MaxScore, 0.001)
	require.Len(t, report.Tests, 2)

	redo := report.Tests[1]
	assert.Equal(t, "redo lab4", redo.Name)
	assert.InDelta(t, 5.0, redo.Score, 0.001)
	assert.InDelta(t, 20.0, redo.MaxScore, 0.001)
	assert.Equal(t, "lab4test score: 25/100", redo.Output)
}

func TestEngine_Score_RedoClamped(t *testing.T) {
	lab4 := labs.Lab{
		ID:          4,
		Denominator: 10,
		Weights:     map[string]int{"grow-stack": 25},
	}
	lab5 := labs.Lab{
		ID:   5,
		Redo: []labs.Redo{{Lab: 4, Weight: 20}},
	}

	runner := &fakeRunner{
		results: map[int]map[string]grader.Outcome{
			4: {"grow-stack": grader.Passed},
		},
	}
	engine := score.NewEngine(table(t, lab4, lab5), runner)

	report, err := engine.Score(t.Context(), &lab5, runResult(5, nil))
	require.NoError(t, err)
	assert.InDelta(t, 20.0, report.Score, 0.001)
	assert.LessOrEqual(t, report.Score, report.MaxScore)
}

func TestEngine_Score_RedoCycle(t *testing.T) {
	lab4 := labs.Lab{ID: 4, Redo: []labs.Redo{{Lab: 5, Weight: 10}}}
	lab5 := labs.Lab{ID: 5, Redo: []labs.Redo{{Lab: 4, Weight: 20}}}

	runner := &fakeRunner{}
	engine := score.NewEngine(table(t, lab4, lab5), runner)

	_, err := engine.Score(t.Context(), &lab5, runResult(5, nil))
	require.ErrorIs(t, err, labs.ErrRedoCycle)

	var cycleErr *labs.RedoCycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Empty(t, runner.calls)
}

func TestEngine_Score_RedoRunFails(t *testing.T) {
	lab4 := labs.Lab{ID: 4}
	lab5 := labs.Lab{ID: 5, Redo: []labs.Redo{{Lab: 4, Weight: 20}}}

	errRun := errors.New("boom")
	engine := score.NewEngine(table(t, lab4, lab5), &fakeRunner{err: errRun})

	_, err := engine.Score(t.Context(), &lab5, runResult(5, nil))
	require.ErrorIs(t, err, errRun)
}
