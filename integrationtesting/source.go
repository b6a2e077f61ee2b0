// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package integrationtesting runs the grader against a real kernel source
// tree and a real QEMU.
package integrationtesting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/aibor/osvgrade/internal/build"
	"github.com/aibor/osvgrade/internal/config"
)

// Source is a kernel source tree.
type Source struct {
	Root string
}

// Images returns the absolute paths of the default disk images.
func (s Source) Images() []string {
	defaults := config.Default().Qemu.Images

	images := make([]string, 0, len(defaults))
	for _, image := range defaults {
		images = append(images, filepath.Join(s.Root, image))
	}

	return images
}

// Present reports whether the source tree has a Makefile.
func (s Source) Present() bool {
	_, err := os.Stat(filepath.Join(s.Root, "Makefile"))
	return err == nil
}

// Build runs the default build command in the source tree and checks that
// all disk images exist afterwards.
func (s Source) Build(ctx context.Context) error {
	builder := build.Builder{Dir: s.Root}

	output, err := builder.Run(ctx)
	if err != nil {
		return fmt.Errorf("%w\n%s", err, output)
	}

	eg, _ := errgroup.WithContext(ctx)
	for _, image := range s.Images() {
		eg.Go(func() error {
			_, err := os.Stat(image)
			if err != nil {
				return fmt.Errorf("image: %w", err)
			}

			return nil
		})
	}

	return eg.Wait()
}
