// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const archiveSuffix = ".zst"

// archiveTranscript writes a zstd compressed copy of the transcript at src
// into dir and returns its path.
func archiveTranscript(src, dir string) (string, error) {
	//nolint:gosec
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open transcript: %w", err)
	}
	defer in.Close()

	dst := filepath.Join(dir, filepath.Base(src)+archiveSuffix)

	//nolint:gosec
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}

	encoder, err := zstd.NewWriter(out)
	if err != nil {
		_ = out.Close()
		return "", fmt.Errorf("zstd writer: %w", err)
	}

	_, err = io.Copy(encoder, in)

	err = errors.Join(err, encoder.Close(), out.Close())
	if err != nil {
		return "", fmt.Errorf("write archive: %w", err)
	}

	return dst, nil
}
