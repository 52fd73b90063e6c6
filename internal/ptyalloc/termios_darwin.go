//go:build darwin

package ptyalloc

import "golang.org/x/sys/unix"

const (
	ioctlReadTermios  = unix.TIOCGETA
	ioctlWriteTermios = unix.TIOCSETA
	iutf8Bit          = unix.IUTF8
)
