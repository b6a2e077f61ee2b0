// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pipe_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aibor/osvgrade/internal/pipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestEnsure(t *testing.T) {
	base := filepath.Join(t.TempDir(), "osv-test")

	require.NoError(t, pipe.Ensure(base))
	require.NoError(t, pipe.Ensure(base), "must be idempotent")

	for _, path := range []string{pipe.InPath(base), pipe.OutPath(base)} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.ModeNamedPipe, info.Mode().Type(), path)
	}

	require.NoError(t, pipe.Remove(base))
	require.NoError(t, pipe.Remove(base), "missing pipes are ignored")

	_, err := os.Stat(pipe.InPath(base))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnsure_NotFIFO(t *testing.T) {
	base := filepath.Join(t.TempDir(), "osv-test")
	require.NoError(t, os.WriteFile(pipe.InPath(base), nil, 0o600))

	err := pipe.Ensure(base)
	require.ErrorIs(t, err, pipe.ErrNotFIFO)
	require.ErrorIs(t, err, &pipe.Error{})
}

func TestEnsure_MissingDir(t *testing.T) {
	base := filepath.Join(t.TempDir(), "missing", "osv-test")

	_, err := pipe.Open(base)
	require.ErrorIs(t, err, &pipe.Error{})
}

// guestEnds opens the pipe ends the way QEMU does.
func guestEnds(t *testing.T, base string) (io.Reader, io.Writer) {
	t.Helper()

	in, err := os.OpenFile(pipe.InPath(base), os.O_RDONLY, 0)
	require.NoError(t, err)

	out, err := os.OpenFile(pipe.OutPath(base), os.O_WRONLY, 0)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = in.Close()
		_ = out.Close()
	})

	return in, out
}

func TestChannel(t *testing.T) {
	base := filepath.Join(t.TempDir(), "osv-test")

	channel, err := pipe.Open(base)
	require.NoError(t, err)

	t.Cleanup(func() { _ = channel.Close() })

	assert.Equal(t, base, channel.Path())

	guestIn, guestOut := guestEnds(t, base)

	var (
		console bytes.Buffer
		group   errgroup.Group
	)

	ready := make(chan struct{})

	group.Go(func() error {
		_, err := channel.Copy(&console, func() { close(ready) })
		return err
	})

	_, err = io.WriteString(guestOut, "$ ")
	require.NoError(t, err)

	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "ready not signaled")
	}

	require.NoError(t, channel.Send("open-twice", "quit"))

	received := make([]byte, len("open-twice\nquit\n"))
	_, err = io.ReadFull(guestIn, received)
	require.NoError(t, err)
	assert.Equal(t, "open-twice\nquit\n", string(received))

	_, err = io.WriteString(guestOut, "passed open-twice\n")
	require.NoError(t, err)

	require.NoError(t, channel.Stop(100*time.Millisecond))
	require.NoError(t, group.Wait())

	assert.Equal(t, "$ passed open-twice\n", console.String())
}

func TestChannel_CloseStopsCopy(t *testing.T) {
	base := filepath.Join(t.TempDir(), "osv-test")

	channel, err := pipe.Open(base)
	require.NoError(t, err)

	var group errgroup.Group

	group.Go(func() error {
		_, err := channel.Copy(io.Discard, nil)
		return err
	})

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, channel.Stop(0))
	require.NoError(t, group.Wait())
	require.NoError(t, channel.Close())

	err = channel.Send("quit")
	require.ErrorIs(t, err, pipe.ErrBrokenPipe)
}

type errWriter struct{}

func (errWriter) Write(_ []byte) (int, error) {
	return 0, assert.AnError
}

func TestChannel_CopyWriteError(t *testing.T) {
	base := filepath.Join(t.TempDir(), "osv-test")

	channel, err := pipe.Open(base)
	require.NoError(t, err)

	t.Cleanup(func() { _ = channel.Close() })

	_, guestOut := guestEnds(t, base)

	_, err = io.WriteString(guestOut, "data")
	require.NoError(t, err)

	_, err = channel.Copy(errWriter{}, func() {
		assert.Fail(t, "ready must not be called on write errors")
	})
	require.ErrorIs(t, err, assert.AnError)
	require.ErrorIs(t, err, &pipe.Error{})
}
