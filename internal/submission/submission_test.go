// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package submission_test

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibor/osvgrade/internal/submission"
)

func TestValidate(t *testing.T) {
	fsys := fstest.MapFS{
		"kernel/proc.c":      {},
		"user/lab2/dup.c":    {},
		"include/lib/list.h": {},
		"lib":                {Data: []byte("not a dir")},
	}

	tests := []struct {
		name        string
		dirs        []string
		expectedErr error
		missing     []string
	}{
		{
			name: "complete",
			dirs: []string{"kernel", "user", "user/lab2", "include"},
		},
		{
			name:        "missing",
			dirs:        []string{"kernel", "arch", "user", "tools"},
			expectedErr: submission.ErrMissing,
			missing:     []string{"arch", "tools"},
		},
		{
			name:        "file instead of dir",
			dirs:        []string{"lib"},
			expectedErr: &submission.MissingError{},
			missing:     []string{"lib"},
		},
		{
			name: "none required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := submission.Validate(fsys, tt.dirs)
			require.ErrorIs(t, err, tt.expectedErr)

			if tt.missing == nil {
				return
			}

			var missingErr *submission.MissingError
			require.ErrorAs(t, err, &missingErr)
			assert.Equal(t, tt.missing, missingErr.Dirs)
		})
	}
}

func TestMissingError(t *testing.T) {
	err := &submission.MissingError{Dirs: []string{"kernel", "user"}}
	assert.EqualError(t, err, "missing directories: kernel, user")
}
