// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package grader

import (
	"log/slog"
)

type state int

const (
	stateIdle state = iota
	stateBooting
	stateAwaitingReady
	stateDispatching
	stateAwaitingExit
	stateClassified
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateBooting:
		return "booting"
	case stateAwaitingReady:
		return "awaiting ready"
	case stateDispatching:
		return "dispatching"
	case stateAwaitingExit:
		return "awaiting exit"
	case stateClassified:
		return "classified"
	default:
		return "unknown"
	}
}

// machine tracks the state of a single test run.
type machine struct {
	test    string
	current state
}

func (m *machine) transition(next state, attrs ...slog.Attr) {
	args := []any{
		slog.String("test", m.test),
		slog.String("from", m.current.String()),
		slog.String("to", next.String()),
	}
	for _, attr := range attrs {
		args = append(args, attr)
	}

	slog.Debug("Test state transition", args...)

	m.current = next
}
