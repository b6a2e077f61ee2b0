// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package qemu provides utilities for composing and supervising the QEMU
// system emulator that boots the graded kernel. It expects the required QEMU
// binary to be present on the system.
//
// The guest's serial console is attached to a pair of named pipes, see the
// pipe package. Each [Process] boots the kernel once and is terminated
// forcefully if it does not halt within its deadline.
package qemu
