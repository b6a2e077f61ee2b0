// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build integration

package integrationtesting_test

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/aibor/osvgrade/integrationtesting"
)

var (
	SourceRoot = "/osv"
	Labs       = "2"
	NoBuild    bool
)

func TestMain(m *testing.M) {
	flag.StringVar(
		&SourceRoot,
		"osv.source",
		SourceRoot,
		"absolute path of the kernel source tree",
	)
	flag.StringVar(
		&Labs,
		"osv.labs",
		Labs,
		"comma separated labs to grade",
	)
	flag.BoolVar(
		&NoBuild,
		"osv.no-build",
		NoBuild,
		"use the present disk images",
	)
	flag.Parse()

	if !filepath.IsAbs(SourceRoot) {
		fmt.Fprintf(os.Stderr, "SourceRoot must be absolute: %v\n", SourceRoot)
		os.Exit(1)
	}

	if !(integrationtesting.Source{Root: SourceRoot}).Present() {
		fmt.Fprintf(os.Stderr, "no kernel source tree at %v\n", SourceRoot)
		os.Exit(1)
	}

	os.Exit(m.Run())
}
