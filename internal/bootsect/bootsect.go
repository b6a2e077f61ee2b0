// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package bootsect finalizes the boot sector image of the kernel.
package bootsect

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

const (
	// SectorSize is the size of a signed boot sector.
	SectorSize = 512

	// MaxCodeSize is the maximum size of the boot code.
	MaxCodeSize = SectorSize - len(signature)
)

var signature = [2]byte{0x55, 0xAA}

// ErrTooLarge is returned if the boot code does not fit into a sector.
var ErrTooLarge = errors.New("boot block too large")

// TooLargeError reports the size of boot code that does not fit.
type TooLargeError struct {
	Size int
}

// Error implements the [error] interface.
func (e *TooLargeError) Error() string {
	return ErrTooLarge.Error() + ": " + strconv.Itoa(e.Size) +
		" (max " + strconv.Itoa(MaxCodeSize) + ")"
}

// Is implements the [errors.Is] interface.
func (*TooLargeError) Is(other error) bool {
	if other == ErrTooLarge {
		return true
	}

	_, ok := other.(*TooLargeError)

	return ok
}

// Signed returns the sector for the given boot code: the code padded with
// zeros to [MaxCodeSize] followed by the boot signature 0x55 0xAA.
func Signed(code []byte) ([]byte, error) {
	if len(code) > MaxCodeSize {
		return nil, &TooLargeError{Size: len(code)}
	}

	sector := make([]byte, SectorSize)
	copy(sector, code)
	copy(sector[MaxCodeSize:], signature[:])

	return sector, nil
}

// Sign replaces the boot code in the file at path with the signed sector. The
// file is left untouched if the code is too large.
func Sign(path string) error {
	//nolint:gosec
	code, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read boot block: %w", err)
	}

	sector, err := Signed(code)
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat boot block: %w", err)
	}

	err = os.WriteFile(path, sector, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("write boot block: %w", err)
	}

	return nil
}
