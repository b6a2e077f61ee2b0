// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package pipe

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

const (
	readBufferSize = 4096

	// Upper bound for delivering a single command into the pipe buffer.
	writeTimeout = time.Second
)

// Channel is an open console channel.
//
// Both pipes are opened read-write. On Linux this never blocks, regardless
// if QEMU has opened its ends already. It also means the console output never
// reaches EOF while the channel is open, so readers are stopped with
// [Channel.Stop]. Data still buffered in the pipes is discarded once the
// channel and the QEMU process have closed their ends.
type Channel struct {
	path string
	in   *os.File
	out  *os.File
}

// Open creates the named pipes if necessary and opens them.
func Open(base string) (*Channel, error) {
	err := Ensure(base)
	if err != nil {
		return nil, err
	}

	in, err := openFIFO(InPath(base))
	if err != nil {
		return nil, err
	}

	out, err := openFIFO(OutPath(base))
	if err != nil {
		_ = in.Close()
		return nil, err
	}

	return &Channel{
		path: base,
		in:   in,
		out:  out,
	}, nil
}

func openFIFO(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, &Error{Name: path, Err: err}
	}

	return file, nil
}

// Path returns the base path of the channel.
func (c *Channel) Path() string {
	return c.path
}

// Copy copies the console output into dst until the channel is stopped or
// closed.
//
// The ready function, if not nil, is called once right after the first chunk
// of output has been written to dst.
func (c *Channel) Copy(dst io.Writer, ready func()) (int64, error) {
	var written int64

	buf := make([]byte, readBufferSize)

	for {
		n, readErr := c.out.Read(buf)
		if n > 0 {
			first := written == 0

			wn, err := dst.Write(buf[:n])
			written += int64(wn)

			if err != nil {
				return written, &Error{Name: OutPath(c.path), Err: err}
			}

			if first && ready != nil {
				ready()
			}
		}

		if readErr != nil {
			if isStopped(readErr) {
				return written, nil
			}

			return written, &Error{Name: OutPath(c.path), Err: readErr}
		}
	}
}

func isStopped(err error) bool {
	return errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, fs.ErrClosed) ||
		errors.Is(err, io.EOF)
}

// Send writes each line terminated by a newline into the command pipe.
//
// If the guest is gone, an [Error] wrapping [ErrBrokenPipe] is returned.
func (c *Channel) Send(lines ...string) error {
	err := c.in.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err != nil {
		return c.sendError(err)
	}

	for _, line := range lines {
		_, err := io.WriteString(c.in, line+"\n")
		if err != nil {
			return c.sendError(err)
		}
	}

	return nil
}

func (c *Channel) sendError(err error) error {
	if errors.Is(err, unix.EPIPE) ||
		errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, fs.ErrClosed) {
		err = ErrBrokenPipe
	}

	return &Error{Name: InPath(c.path), Err: err}
}

// Stop makes running [Channel.Copy] calls return after they have read what
// arrives within the given linger duration.
func (c *Channel) Stop(linger time.Duration) error {
	err := c.out.SetReadDeadline(time.Now().Add(linger))
	if err != nil {
		return &Error{Name: OutPath(c.path), Err: err}
	}

	return nil
}

// Close closes both pipes. The named pipes are left in place so they can be
// reused for the next run.
func (c *Channel) Close() error {
	return errors.Join(c.in.Close(), c.out.Close())
}
