// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrValueOutOfRange is returned if a [LimitedUintValue] is set outside its
// bounds.
var ErrValueOutOfRange = errors.New("value is outside of range")

// LimitedUintValue is a [flag.Value] for unsigned integers within bounds. A
// zero bound is not checked.
type LimitedUintValue struct {
	Value    *uint
	Min, Max uint
}

// String implements [flag.Value].
func (u *LimitedUintValue) String() string {
	if u.Value == nil {
		return "0"
	}

	return strconv.FormatUint(uint64(*u.Value), 10)
}

// Set implements [flag.Value].
func (u *LimitedUintValue) Set(s string) error {
	value, err := strconv.ParseUint(s, 10, 0)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	err = u.Check(uint(value))
	if err != nil {
		return err
	}

	*u.Value = uint(value)

	return nil
}

// Check returns an error if value is outside of the bounds.
func (u *LimitedUintValue) Check(value uint) error {
	if u.Min > 0 && value < u.Min {
		return fmt.Errorf("%d < %d: %w", value, u.Min, ErrValueOutOfRange)
	}

	if u.Max > 0 && value > u.Max {
		return fmt.Errorf("%d > %d: %w", value, u.Max, ErrValueOutOfRange)
	}

	return nil
}
