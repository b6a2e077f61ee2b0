// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrEmptyFilePath is returned if a path is required but empty.
var ErrEmptyFilePath = errors.New("file path must not be empty")

// AbsoluteFilePath returns the absolute representation of path, resolved
// relative to base if it is relative.
func AbsoluteFilePath(base, path string) (string, error) {
	if path == "" {
		return "", ErrEmptyFilePath
	}

	if !filepath.IsAbs(path) && base != "" {
		path = filepath.Join(base, path)
	}

	path, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}

	return path, nil
}

// splitList splits a comma separated list and drops empty elements.
func splitList(s string) []string {
	var list []string

	for elem := range strings.SplitSeq(s, ",") {
		elem = strings.TrimSpace(elem)
		if elem != "" {
			list = append(list, elem)
		}
	}

	return list
}
