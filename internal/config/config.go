// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/aibor/osvgrade/internal/build"
	"github.com/aibor/osvgrade/internal/grader"
	"github.com/aibor/osvgrade/internal/labs"
	"github.com/aibor/osvgrade/internal/pipe"
	"github.com/aibor/osvgrade/internal/qemu"
	"github.com/aibor/osvgrade/internal/score"
	"github.com/aibor/osvgrade/internal/submission"
)

// DefaultFile is the name of the config file looked up in the working
// directory.
const DefaultFile = "osvgrade.toml"

// ErrInvalid is returned for invalid configuration.
var ErrInvalid = errors.New("invalid configuration")

const (
	minMemory = 1
	maxMemory = 1 << 20
	maxSMP    = 64
)

// Qemu configures the emulator.
type Qemu struct {
	Executable string        `toml:"executable"`
	Images     []string      `toml:"images"`
	Machine    string        `toml:"machine"`
	CPU        string        `toml:"cpu"`
	SMP        uint          `toml:"smp"`
	Memory     uint          `toml:"memory"`
	LowMemory  uint          `toml:"low_memory"`
	NoKVM      bool          `toml:"no_kvm"`
	KillGrace  labs.Duration `toml:"kill_grace"`
	ExtraArgs  []string      `toml:"extra_args"`
}

// Run configures the test runs.
type Run struct {
	// Console is the base path of the console pipes.
	Console string `toml:"console"`

	// Grace is waited after the first console output.
	Grace labs.Duration `toml:"grace"`

	// QuitDelay is waited between the test name and "quit".
	QuitDelay labs.Duration `toml:"quit_delay"`

	// Timeout overrides the timeout of all labs if set.
	Timeout labs.Duration `toml:"timeout"`

	// TranscriptDir is where "lab<N>output" files are written.
	TranscriptDir string `toml:"transcript_dir"`
}

// Build configures the kernel build.
type Build struct {
	Command []string `toml:"command"`
	Skip    bool     `toml:"skip"`
}

// Report configures the autograder report.
type Report struct {
	Path string `toml:"path"`

	// Archive enables writing a compressed copy of the transcript next to
	// the report.
	Archive bool `toml:"archive"`
}

// Submission configures the submission validation.
type Submission struct {
	Dirs []string `toml:"dirs"`
}

// Config is the complete grader configuration.
type Config struct {
	// SourceRoot is the kernel source directory. Relative paths are
	// resolved against it.
	SourceRoot string     `toml:"source_root"`
	Qemu       Qemu       `toml:"qemu"`
	Run        Run        `toml:"run"`
	Build      Build      `toml:"build"`
	Report     Report     `toml:"report"`
	Submission Submission `toml:"submission"`

	// Labs replace the built-in labs with the same id or add new ones.
	Labs []labs.Lab `toml:"lab"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		SourceRoot: ".",
		Qemu: Qemu{
			Executable: qemu.DefaultExecutable,
			Images:     []string{"build/osv.img", "build/fs.img"},
			Machine:    qemu.DefaultMachine,
			Memory:     qemu.DefaultMemory,
			LowMemory:  qemu.DefaultLowMemory,
			KillGrace:  labs.Duration{Duration: qemu.DefaultKillGrace},
		},
		Run: Run{
			Console:       pipe.DefaultPath,
			Grace:         labs.Duration{Duration: qemu.DefaultGraceWindow},
			TranscriptDir: ".",
		},
		Build: Build{
			Command: slices.Clone(build.DefaultCommand),
		},
		Report: Report{
			Path: score.DefaultReportPath,
		},
		Submission: Submission{
			Dirs: slices.Clone(submission.DefaultDirs),
		},
	}
}

// Load returns the defaults overlaid with the config file name read from
// fsys. A missing file is not an error.
func Load(fsys fs.FS, name string) (Config, error) {
	cfg := Default()

	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}

		return cfg, fmt.Errorf("read config: %w", err)
	}

	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	err = decoder.Decode(&cfg)
	if err != nil {
		return cfg, fmt.Errorf("%w: %s: %w", ErrInvalid, name, err)
	}

	return cfg, nil
}

// Validate checks value bounds.
func (c *Config) Validate() error {
	memory := LimitedUintValue{Min: minMemory, Max: maxMemory}
	smp := LimitedUintValue{Max: maxSMP}

	checks := []struct {
		name  string
		limit *LimitedUintValue
		value uint
	}{
		{"qemu.memory", &memory, c.Qemu.Memory},
		{"qemu.low_memory", &memory, c.Qemu.LowMemory},
		{"qemu.smp", &smp, c.Qemu.SMP},
	}

	for _, check := range checks {
		err := check.limit.Check(check.value)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalid, check.name, err)
		}
	}

	if len(c.Qemu.Images) == 0 {
		return fmt.Errorf("%w: qemu.images: %w", ErrInvalid, ErrEmptyFilePath)
	}

	if c.Run.Console == "" {
		return fmt.Errorf("%w: run.console: %w", ErrInvalid, ErrEmptyFilePath)
	}

	return nil
}

// Table returns the built-in lab table with the configured labs merged in.
// If a run timeout is configured, it applies to all labs.
func (c *Config) Table() (*labs.Table, error) {
	table, err := labs.Default()
	if err != nil {
		return nil, err
	}

	err = table.Merge(c.Labs...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if c.Run.Timeout.Duration > 0 {
		overrides := make([]labs.Lab, 0, len(table.IDs()))

		for _, id := range table.IDs() {
			lab, _ := table.Lab(id)
			override := *lab
			override.Timeout = c.Run.Timeout
			overrides = append(overrides, override)
		}

		err = table.Merge(overrides...)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}

	return table, nil
}

// kvmAvailable is replaced in tests.
var kvmAvailable = qemu.KVMAvailable

// CommandSpec returns the emulator command spec. Paths are resolved against
// the source root. KVM is disabled if it is not available.
func (c *Config) CommandSpec() (qemu.CommandSpec, error) {
	images := make([]string, 0, len(c.Qemu.Images))

	for _, image := range c.Qemu.Images {
		path, err := AbsoluteFilePath(c.SourceRoot, image)
		if err != nil {
			return qemu.CommandSpec{}, fmt.Errorf("%w: qemu.images: %w", ErrInvalid, err)
		}

		images = append(images, path)
	}

	extraArgs := make([]qemu.Argument, 0, len(c.Qemu.ExtraArgs))

	for _, raw := range c.Qemu.ExtraArgs {
		arg, err := qemu.ParseArgument(raw)
		if err != nil {
			return qemu.CommandSpec{}, fmt.Errorf("%w: qemu.extra_args: %w", ErrInvalid, err)
		}

		extraArgs = append(extraArgs, arg)
	}

	return qemu.CommandSpec{
		Executable:  c.Qemu.Executable,
		Images:      images,
		Machine:     c.Qemu.Machine,
		CPU:         c.Qemu.CPU,
		SMP:         c.Qemu.SMP,
		Memory:      c.Qemu.Memory,
		LowMemory:   c.Qemu.LowMemory,
		NoKVM:       c.Qemu.NoKVM || !kvmAvailable(),
		ConsolePath: c.Run.Console,
		ExtraArgs:   extraArgs,
		KillGrace:   c.Qemu.KillGrace.Duration,
	}, nil
}

// Grader returns the configuration for the run coordinator.
func (c *Config) Grader() (grader.Config, error) {
	spec, err := c.CommandSpec()
	if err != nil {
		return grader.Config{}, err
	}

	sourceRoot, err := AbsoluteFilePath("", c.SourceRoot)
	if err != nil {
		return grader.Config{}, fmt.Errorf("%w: source_root: %w", ErrInvalid, err)
	}

	transcriptDir, err := AbsoluteFilePath("", c.Run.TranscriptDir)
	if err != nil {
		return grader.Config{}, fmt.Errorf("%w: run.transcript_dir: %w", ErrInvalid, err)
	}

	return grader.Config{
		Emulator:      spec,
		ConsolePath:   c.Run.Console,
		GraceWindow:   c.Run.Grace.Duration,
		QuitDelay:     c.Run.QuitDelay.Duration,
		SourceRoot:    sourceRoot,
		TranscriptDir: transcriptDir,
	}, nil
}

// Builder returns the kernel builder.
func (c *Config) Builder() *build.Builder {
	return &build.Builder{
		Command: c.Build.Command,
		Dir:     c.SourceRoot,
	}
}

// SetGrace sets the grace window, as for command line flags.
func (c *Config) SetGrace(grace time.Duration) {
	c.Run.Grace = labs.Duration{Duration: grace}
}

// SetTimeout sets the run timeout of all labs, as for command line flags.
func (c *Config) SetTimeout(timeout time.Duration) {
	c.Run.Timeout = labs.Duration{Duration: timeout}
}
