//go:build !windows

package child

import (
	"os"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/loykin/ptysup/internal/metrics"
	"github.com/loykin/ptysup/internal/ptyalloc"
)

func tcgetpgrp(f *os.File) (int, error) {
	return unix.IoctlGetInt(int(f.Fd()), unix.TIOCGPGRP)
}

// termiosForSignals resolves the terminal attributes governing signal
// generation: normally from the PTY master, but when the foreground
// environment advertises a real tty path (prewarm indirection), from that
// device instead.
func (c *Child) termiosForSignals() (*unix.Termios, error) {
	if ttyName := c.ForegroundEnviron()[EnvRealTTY]; strings.HasPrefix(ttyName, "/") {
		f, err := os.OpenFile(ttyName, os.O_RDWR|unix.O_CLOEXEC|unix.O_NOCTTY, 0)
		if err == nil {
			defer func() { _ = f.Close() }()
			return ptyalloc.Termios(f)
		}
		c.rt.log().Debug("failed to open real tty, using master", "tty", ttyName, "error", err)
	}
	return ptyalloc.Termios(c.master)
}

// SendSignalForKey translates a raw terminal control byte into a POSIX
// signal per the terminal's configured control characters and delivers it to
// the whole foreground process group. It reports whether the key was
// handled; an off ISIG mode bit or a non-matching code is a normal negative
// result, never an error.
func (c *Child) SendSignalForKey(code byte) bool {
	if c.master == nil {
		return false
	}
	t, err := c.termiosForSignals()
	if err != nil {
		return false
	}
	if t.Lflag&unix.ISIG == 0 {
		return false
	}
	var sig syscall.Signal
	switch code {
	case t.Cc[unix.VINTR]:
		sig = unix.SIGINT
	case t.Cc[unix.VSUSP]:
		sig = unix.SIGTSTP
	case t.Cc[unix.VQUIT]:
		sig = unix.SIGQUIT
	default:
		return false
	}
	pgid, err := tcgetpgrp(c.master)
	if err != nil || pgid <= 0 {
		return false
	}
	// the whole foreground group gets the signal, not just one pid
	_ = unix.Kill(-pgid, sig)
	metrics.SignalSent(unix.SignalName(sig))
	return true
}
