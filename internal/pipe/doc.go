// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package pipe provides the console channel between the host and the kernel
// running in QEMU.
//
// The channel is a pair of named pipes: commands are written into "<path>.in"
// and the serial console output of the guest is read from "<path>.out". This
// is the layout QEMU's "pipe" character device backend expects.
//
// There is no handshake on the channel. The first byte of console output is
// the only hint that the guest is up, see [Channel.Copy].
package pipe
