//go:build !windows

package main

import (
	"errors"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// The master fd is non-blocking once the child is launched (it is meant for
// an event loop), so plain io.Copy would surface EAGAIN. These pumps poll
// the fd and retry instead.

func waitReadable(fd int) error {
	for {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		_, err := unix.Poll(fds, -1)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

func waitWritable(fd int) error {
	for {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
		_, err := unix.Poll(fds, -1)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

// pumpFromMaster copies terminal output to out until the child side closes
// (read returns EIO on a PTY master once the last slave fd is gone).
func pumpFromMaster(out io.Writer, master *os.File) {
	fd := int(master.Fd())
	buf := make([]byte, 32*1024)
	for {
		n, err := unix.Read(fd, buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return
			}
		}
		switch {
		case err == nil && n == 0:
			return
		case errors.Is(err, unix.EAGAIN):
			if waitReadable(fd) != nil {
				return
			}
		case errors.Is(err, unix.EINTR):
			// retry
		case err != nil:
			return
		}
	}
}

// pumpToMaster feeds terminal input to the child.
func pumpToMaster(master *os.File, in io.Reader) {
	fd := int(master.Fd())
	buf := make([]byte, 4096)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			if writeAll(fd, buf[:n]) != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func writeAll(fd int, b []byte) error {
	for len(b) > 0 {
		n, err := unix.Write(fd, b)
		if n > 0 {
			b = b[n:]
			continue
		}
		switch {
		case errors.Is(err, unix.EAGAIN):
			if perr := waitWritable(fd); perr != nil {
				return perr
			}
		case errors.Is(err, unix.EINTR):
			// retry
		default:
			return err
		}
	}
	return nil
}
