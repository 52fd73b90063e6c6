//go:build !linux && !darwin && !windows

package ptyalloc

import "golang.org/x/sys/unix"

// The remaining BSDs have no IUTF8 input flag; per-byte input processing is
// the default there.
const (
	ioctlReadTermios  = unix.TIOCGETA
	ioctlWriteTermios = unix.TIOCSETA
	iutf8Bit          = 0
)
