// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibor/osvgrade/internal/qemu"
)

func validSpec() qemu.CommandSpec {
	return qemu.CommandSpec{
		Executable:  qemu.DefaultExecutable,
		Images:      []string{"build/osv.img", "build/fs.img"},
		Memory:      qemu.DefaultMemory,
		LowMemory:   qemu.DefaultLowMemory,
		ConsolePath: "/tmp/osv-test",
	}
}

func TestCommandSpec_Arguments(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*qemu.CommandSpec)
		lowMem    bool
		argName   string
		assertion assert.ComparisonAssertionFunc
		expected  any
	}{
		{
			name:      "default machine",
			argName:   "machine",
			assertion: assert.Equal,
			expected:  "q35",
		},
		{
			name: "custom machine",
			modify: func(s *qemu.CommandSpec) {
				s.Machine = "pc"
			},
			argName:   "machine",
			assertion: assert.Equal,
			expected:  "pc",
		},
		{
			name:      "memory",
			argName:   "m",
			assertion: assert.Equal,
			expected:  "512",
		},
		{
			name:      "low memory",
			lowMem:    true,
			argName:   "m",
			assertion: assert.Equal,
			expected:  "4",
		},
		{
			name: "low memory unset",
			modify: func(s *qemu.CommandSpec) {
				s.LowMemory = 0
			},
			lowMem:    true,
			argName:   "m",
			assertion: assert.Equal,
			expected:  "512",
		},
		{
			name:      "first drive",
			argName:   "drive",
			assertion: assert.Equal,
			expected:  "format=raw,if=ide,index=0,file=build/osv.img",
		},
		{
			name:      "console chardev",
			argName:   "chardev",
			assertion: assert.Equal,
			expected:  "pipe,id=con0,path=/tmp/osv-test",
		},
		{
			name:      "serial",
			argName:   "serial",
			assertion: assert.Equal,
			expected:  "chardev:con0",
		},
		{
			name: "smp",
			modify: func(s *qemu.CommandSpec) {
				s.SMP = 2
			},
			argName:   "smp",
			assertion: assert.Equal,
			expected:  "2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			if tt.modify != nil {
				tt.modify(&spec)
			}

			args := spec.Arguments(tt.lowMem)
			assertion := qemu.ArgumentValueAssertionFunc(tt.argName, tt.assertion)
			assertion(t, args, tt.expected)

			_, err := qemu.BuildArgumentStrings(args)
			require.NoError(t, err)
		})
	}
}

func TestCommandSpec_Arguments_KVM(t *testing.T) {
	spec := validSpec()
	assert.Contains(t, spec.Arguments(false), qemu.UniqueArg("enable-kvm"))

	spec.NoKVM = true
	assert.NotContains(t, spec.Arguments(false), qemu.UniqueArg("enable-kvm"))
}

func TestCommandSpec_Arguments_ExtraCollision(t *testing.T) {
	spec := validSpec()
	spec.ExtraArgs = []qemu.Argument{qemu.UniqueArg("m", "1024")}

	_, err := qemu.BuildArgumentStrings(spec.Arguments(false))
	require.ErrorIs(t, err, qemu.ErrArgumentCollision)
}

func TestCommandSpec_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*qemu.CommandSpec)
	}{
		{
			name: "no executable",
			modify: func(s *qemu.CommandSpec) {
				s.Executable = ""
			},
		},
		{
			name: "no images",
			modify: func(s *qemu.CommandSpec) {
				s.Images = nil
			},
		},
		{
			name: "no console",
			modify: func(s *qemu.CommandSpec) {
				s.ConsolePath = ""
			},
		},
		{
			name: "no memory",
			modify: func(s *qemu.CommandSpec) {
				s.Memory = 0
			},
		},
	}

	spec := validSpec()
	require.NoError(t, spec.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			tt.modify(&spec)
			assert.ErrorIs(t, spec.Validate(), &qemu.ArgumentError{})
		})
	}
}
