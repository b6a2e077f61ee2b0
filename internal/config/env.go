// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is the dotenv file loaded from the working directory.
const DefaultEnvFile = ".env"

// Environment variables that override config file values.
const (
	EnvQemu    = "OSVGRADE_QEMU"
	EnvImage   = "OSVGRADE_IMAGE"
	EnvResults = "OSVGRADE_RESULTS"
	EnvMemory  = "OSVGRADE_MEMORY"
	EnvSMP     = "OSVGRADE_SMP"
)

// LookupFunc looks up an environment variable, like [os.LookupEnv].
type LookupFunc func(key string) (string, bool)

// LoadDotEnv loads the given dotenv files into the process environment.
// Variables already set are not overridden. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	for _, file := range files {
		err := godotenv.Load(file)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}

	return nil
}

// ApplyEnv overrides config values with the environment variables found by
// lookup. If lookup is nil, [os.LookupEnv] is used.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	if value, ok := lookup(EnvQemu); ok && value != "" {
		c.Qemu.Executable = value
	}

	if value, ok := lookup(EnvImage); ok && value != "" {
		c.Qemu.Images = splitList(value)
	}

	if value, ok := lookup(EnvResults); ok && value != "" {
		c.Report.Path = value
	}

	limits := []struct {
		key   string
		value LimitedUintValue
	}{
		{EnvMemory, LimitedUintValue{Value: &c.Qemu.Memory, Min: minMemory, Max: maxMemory}},
		{EnvSMP, LimitedUintValue{Value: &c.Qemu.SMP, Max: maxSMP}},
	}

	for _, limit := range limits {
		value, ok := lookup(limit.key)
		if !ok || value == "" {
			continue
		}

		err := limit.value.Set(value)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalid, limit.key, err)
		}
	}

	return nil
}
