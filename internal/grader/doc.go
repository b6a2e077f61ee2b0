// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package grader runs the tests of a lab one after another, each in a fresh
// QEMU instance, and collects their outcomes.
//
// For every test the kernel is booted with its console attached to the
// console pipes. Once the first console output arrives and the grace window
// passed, the test name and "quit" are sent to the kernel's shell. The
// console output is appended to the lab's transcript and classified once
// QEMU exited or was killed at the lab's deadline.
package grader
