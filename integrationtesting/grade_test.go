// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build integration

package integrationtesting_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibor/osvgrade/integrationtesting"
	"github.com/aibor/osvgrade/internal/cmd"
	"github.com/aibor/osvgrade/internal/labs"
	"github.com/aibor/osvgrade/internal/qemu"
)

func TestBuild(t *testing.T) {
	if NoBuild {
		t.Skip("build disabled")
	}

	source := integrationtesting.Source{Root: SourceRoot}
	require.NoError(t, source.Build(t.Context()))
}

func TestGradeLabs(t *testing.T) {
	table, err := labs.Default()
	require.NoError(t, err)

	for _, id := range strings.Split(Labs, ",") {
		t.Run("lab"+id, func(t *testing.T) {
			results := filepath.Join(t.TempDir(), "results.json")

			args := []string{
				"osvgrade", "run",
				"--autograder",
				"--no-build",
				"--source", SourceRoot,
				"--results", results,
				id,
			}
			if !qemu.KVMAvailable() {
				args = append(args, "--no-kvm")
			}

			var stdout, stderr bytes.Buffer

			exitCode := cmd.Run(t.Context(), args, cmd.IO{
				Stdout: &stdout,
				Stderr: &stderr,
			})
			require.Equal(t, 0, exitCode, stderr.String())

			data, err := os.ReadFile(results)
			require.NoError(t, err)

			var report struct {
				Score float64 `json:"score"`
				Tests []struct {
					Name   string `json:"name"`
					Output string `json:"output"`
				} `json:"tests"`
			}
			require.NoError(t, json.Unmarshal(data, &report))

			names := make([]string, 0, len(report.Tests))
			for _, test := range report.Tests {
				names = append(names, test.Name)
			}

			labID, err := strconv.Atoi(id)
			require.NoError(t, err)

			lab, err := table.Lab(labID)
			require.NoError(t, err)

			for _, test := range lab.WeightedTests() {
				assert.Contains(t, names, test)
			}

			discoveredWeighted := 0
			for _, test := range report.Tests {
				_, weighted := lab.Weight(test.Name)
				if weighted && !strings.Contains(test.Output, "test program not found") {
					discoveredWeighted++
				}
			}

			assert.Positive(t, discoveredWeighted, "no weighted test discovered")

			assert.GreaterOrEqual(t, report.Score, 0.0)
			assert.LessOrEqual(t, report.Score, float64(lab.MaxScore()))
		})
	}
}
