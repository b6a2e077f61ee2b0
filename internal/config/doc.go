// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config provides the grader configuration.
//
// Values are layered: built-in defaults, the TOML config file, a ".env"
// file, the process environment and finally command line flags, which are
// applied by the caller.
package config
