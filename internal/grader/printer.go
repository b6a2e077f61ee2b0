// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package grader

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
)

const separatorLine = "-------------------------------"

// printer writes the progress lines the user follows while a lab runs.
type printer struct {
	w    io.Writer
	pass *color.Color
	fail *color.Color
	warn *color.Color
}

func newPrinter(w io.Writer) *printer {
	if w == nil {
		w = io.Discard
	}

	return &printer{
		w:    w,
		pass: color.New(color.FgGreen),
		fail: color.New(color.FgRed),
		warn: color.New(color.FgYellow),
	}
}

func (p *printer) line(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) running(test string) {
	p.line("running test: %s", test)
}

func (p *printer) sending(lines ...string) {
	p.line("sending %s", strings.Join(lines, " "))
}

func (p *printer) timeout(lab int, timeout time.Duration) {
	_, _ = p.warn.Fprintf(p.w, "Exceeded Timeout %d seconds\n", int(timeout.Seconds()))
	p.line("possibly due to kernel panic, check lab%doutput", lab)
}

func (p *printer) verdict(test string, outcome Outcome) {
	if outcome == Passed {
		_, _ = p.pass.Fprint(p.w, "passed ")
	} else {
		_, _ = p.fail.Fprint(p.w, "failed ")
	}

	p.line("%s", test)
	p.line(separatorLine)
}
