// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package labs

import (
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTimeout is the wall-clock limit for a single test run if the
	// lab does not declare one.
	DefaultTimeout = 60 * time.Second

	testFileSuffix = ".c"
)

// Duration is a [time.Duration] that can be read from text, like "60s".
type Duration struct {
	time.Duration
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	value, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}

	d.Duration = value

	return nil
}

// Redo declares that a fraction of the full rerun score of another lab is
// part of the score of the declaring lab.
type Redo struct {
	// Lab is the id of the lab to rerun.
	Lab int `toml:"lab"`

	// Weight is the maximum contribution of the rerun to the score.
	Weight int `toml:"weight"`
}

// Lab is a single gradable unit.
type Lab struct {
	// ID is the ordinal number of the lab.
	ID int `toml:"id"`

	// Dir is the directory the test programs are discovered in, relative to
	// the kernel source root. Defaults to "user/lab<ID>".
	Dir string `toml:"dir,omitempty"`

	// Timeout is the wall-clock limit for each test run of this lab.
	Timeout Duration `toml:"timeout"`

	// Denominator is the maximum raw score used when a rerun of this lab is
	// normalized for a [Redo] edge. Defaults to [Lab.MaxScore].
	Denominator int `toml:"denominator,omitempty"`

	// Weights maps test names to their weight. Tests without an entry are
	// run but not scored.
	Weights map[string]int `toml:"weights"`

	// Redo edges to earlier labs.
	Redo []Redo `toml:"redo,omitempty"`
}

// TestDir returns the directory the test programs of the lab live in.
func (l *Lab) TestDir() string {
	if l.Dir != "" {
		return l.Dir
	}

	return path.Join("user", "lab"+strconv.Itoa(l.ID))
}

// Weight returns the weight of the given test and if it is declared at all.
func (l *Lab) Weight(test string) (int, bool) {
	weight, exists := l.Weights[test]
	return weight, exists
}

// WeightedTests returns the names of all tests with a declared weight in
// lexical order.
func (l *Lab) WeightedTests() []string {
	names := make([]string, 0, len(l.Weights))
	for name := range l.Weights {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// MaxScore returns the sum of all declared test and redo weights.
func (l *Lab) MaxScore() int {
	var sum int

	for _, weight := range l.Weights {
		sum += weight
	}

	for _, redo := range l.Redo {
		sum += redo.Weight
	}

	return sum
}

// ScoreDenominator returns the denominator used for normalizing the score of
// a rerun of this lab.
func (l *Lab) ScoreDenominator() int {
	if l.Denominator > 0 {
		return l.Denominator
	}

	return l.MaxScore()
}

// RunTimeout returns the declared timeout or [DefaultTimeout].
func (l *Lab) RunTimeout() time.Duration {
	if l.Timeout.Duration > 0 {
		return l.Timeout.Duration
	}

	return DefaultTimeout
}

// Discover returns the names of the test programs of the lab found in fsys.
//
// The fsys is supposed to be rooted at the kernel source root. Test programs
// are C source files in [Lab.TestDir]. The names are returned without file
// suffix in lexical order.
func (l *Lab) Discover(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, l.TestDir())
	if err != nil {
		return nil, fmt.Errorf("read test dir: %w", err)
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name, found := strings.CutSuffix(entry.Name(), testFileSuffix)
		if !found || name == "" {
			continue
		}

		names = append(names, name)
	}

	// fs.ReadDir already sorts by file name, but be explicit about the
	// order the tests run in.
	slices.Sort(names)

	return names, nil
}

func (l *Lab) validate() error {
	if l.ID < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidID, l.ID)
	}

	for name, weight := range l.Weights {
		if weight < 0 {
			return fmt.Errorf("lab%d %s: %w", l.ID, name, ErrNegativeWeight)
		}
	}

	for _, redo := range l.Redo {
		if redo.Weight < 0 {
			return fmt.Errorf("lab%d redo lab%d: %w",
				l.ID, redo.Lab, ErrNegativeWeight)
		}
	}

	return nil
}
