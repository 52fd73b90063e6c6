// Package ptyalloc opens pseudo-terminal pairs configured for child spawns:
// the slave end is inheritable across exec, the master end is not, and the
// master is switched to per-byte UTF-8 aware input processing.
package ptyalloc

import (
	"fmt"
	"os"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// Open allocates a master/slave PTY pair. Both ends are in blocking mode;
// the spawn orchestrator flips the master to non-blocking only after the
// child is launched so allocation itself cannot leave half-configured state.
func Open() (master, slave *os.File, err error) {
	master, slave, err = pty.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("open pty: %w", err)
	}
	if err = SetInheritable(slave, true); err != nil {
		closeBoth(master, slave)
		return nil, nil, fmt.Errorf("mark slave inheritable: %w", err)
	}
	if err = SetInheritable(master, false); err != nil {
		closeBoth(master, slave)
		return nil, nil, fmt.Errorf("mark master close-on-exec: %w", err)
	}
	if err = setIUTF8(master); err != nil {
		closeBoth(master, slave)
		return nil, nil, fmt.Errorf("set IUTF8 on master: %w", err)
	}
	return master, slave, nil
}

// SetInheritable toggles the close-on-exec flag. inheritable=true clears it
// so the fd survives exec in the child.
func SetInheritable(f *os.File, inheritable bool) error {
	flag := unix.FD_CLOEXEC
	if inheritable {
		flag = 0
	}
	_, err := unix.FcntlInt(f.Fd(), unix.F_SETFD, flag)
	return err
}

// SetNonblock switches fd blocking behavior at the OS level. Used on the
// master once the child is running, so an external readiness loop can
// multiplex it.
func SetNonblock(f *os.File, nonblocking bool) error {
	return unix.SetNonblock(int(f.Fd()), nonblocking)
}

func closeBoth(a, b *os.File) {
	_ = a.Close()
	_ = b.Close()
}

// Termios reads the current terminal attributes of f.
func Termios(f *os.File) (*unix.Termios, error) {
	return unix.IoctlGetTermios(int(f.Fd()), ioctlReadTermios)
}

// SetTermios applies terminal attributes to f.
func SetTermios(f *os.File, t *unix.Termios) error {
	return unix.IoctlSetTermios(int(f.Fd()), ioctlWriteTermios, t)
}

func setIUTF8(f *os.File) error {
	if iutf8Bit == 0 {
		return nil
	}
	t, err := Termios(f)
	if err != nil {
		return err
	}
	t.Iflag |= iutf8Bit
	return SetTermios(f, t)
}
