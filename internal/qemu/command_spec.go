// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"strconv"
	"time"
)

const (
	// DefaultExecutable is the QEMU binary used if none is configured.
	DefaultExecutable = "qemu-system-x86_64"

	// DefaultMachine supports the ACPI shutdown port the kernel writes to
	// on "quit".
	DefaultMachine = "q35"

	// DefaultMemory in MiB.
	DefaultMemory = 512

	// DefaultLowMemory in MiB used for low-memory test variants.
	DefaultLowMemory = 4

	// DefaultGraceWindow is the time waited after the first console byte
	// before the test name is sent.
	DefaultGraceWindow = 500 * time.Millisecond

	// DefaultKillGrace is the time waited between SIGTERM and SIGKILL.
	DefaultKillGrace = 2 * time.Second
)

// CommandSpec describes the QEMU command for booting the kernel.
type CommandSpec struct {
	// Executable is the QEMU binary to run.
	Executable string

	// Images are attached as raw IDE drives in the given order.
	Images []string

	// Machine type passed as "-machine".
	Machine string

	// CPU type passed as "-cpu". Empty uses the QEMU default.
	CPU string

	// SMP is the number of CPUs. 0 uses the QEMU default.
	SMP uint

	// Memory in MiB.
	Memory uint

	// LowMemory in MiB used instead of Memory for low-memory variants.
	LowMemory uint

	// NoKVM disables hardware acceleration.
	NoKVM bool

	// ConsolePath is the base path of the console FIFO pair. QEMU appends
	// ".in" and ".out" itself.
	ConsolePath string

	// ExtraArgs are appended after the generated arguments.
	ExtraArgs []Argument

	// KillGrace is the time between SIGTERM and SIGKILL if the process
	// does not exit in time.
	KillGrace time.Duration
}

// Validate checks that the command spec can be turned into a command.
func (s *CommandSpec) Validate() error {
	switch {
	case s.Executable == "":
		return &ArgumentError{"no executable given"}
	case len(s.Images) == 0:
		return &ArgumentError{"no disk image given"}
	case s.ConsolePath == "":
		return &ArgumentError{"no console path given"}
	case s.Memory == 0:
		return &ArgumentError{"memory must not be 0"}
	}

	return nil
}

func (s *CommandSpec) memory(lowMem bool) uint {
	if lowMem && s.LowMemory > 0 {
		return s.LowMemory
	}

	return s.Memory
}

func (s *CommandSpec) killGrace() time.Duration {
	if s.KillGrace > 0 {
		return s.KillGrace
	}

	return DefaultKillGrace
}

// Arguments returns the QEMU arguments for a single boot.
func (s *CommandSpec) Arguments(lowMem bool) []Argument {
	machine := s.Machine
	if machine == "" {
		machine = DefaultMachine
	}

	args := []Argument{
		UniqueArg("machine", machine),
		UniqueArg("m", strconv.FormatUint(uint64(s.memory(lowMem)), 10)),
		UniqueArg("display", "none"),
		UniqueArg("monitor", "none"),
		UniqueArg("no-reboot"),
		UniqueArg("nodefaults"),
		UniqueArg("no-user-config"),
	}

	if s.CPU != "" {
		args = append(args, UniqueArg("cpu", s.CPU))
	}

	if s.SMP > 0 {
		args = append(args, UniqueArg("smp", strconv.FormatUint(uint64(s.SMP), 10)))
	}

	if !s.NoKVM {
		args = append(args, UniqueArg("enable-kvm"))
	}

	for idx, image := range s.Images {
		args = append(args, RepeatableArg("drive",
			"format=raw",
			"if=ide",
			"index="+strconv.Itoa(idx),
			"file="+image,
		))
	}

	args = append(args,
		RepeatableArg("chardev", "pipe", "id=con0", "path="+s.ConsolePath),
		RepeatableArg("serial", "chardev:con0"),
	)

	return append(args, s.ExtraArgs...)
}
