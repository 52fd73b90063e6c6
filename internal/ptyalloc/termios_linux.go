//go:build linux

package ptyalloc

import "golang.org/x/sys/unix"

const (
	ioctlReadTermios  = unix.TCGETS
	ioctlWriteTermios = unix.TCSETS
	iutf8Bit          = unix.IUTF8
)
