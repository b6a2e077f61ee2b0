// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package labs provides the static weight table of the graded labs.
//
// Each [Lab] declares the weights of its test programs, a wall-clock timeout
// for each test run and optional [Redo] edges to earlier labs whose full rerun
// score is folded into the lab's score. The default table is embedded and can
// be overridden per lab by the user configuration.
package labs
