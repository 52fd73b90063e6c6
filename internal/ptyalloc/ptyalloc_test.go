//go:build !windows

package ptyalloc

import (
	"os"
	"testing"

	"golang.org/x/sys/unix"
)

func cloexec(t *testing.T, f *os.File) bool {
	t.Helper()
	flags, err := unix.FcntlInt(f.Fd(), unix.F_GETFD, 0)
	if err != nil {
		t.Fatalf("F_GETFD: %v", err)
	}
	return flags&unix.FD_CLOEXEC != 0
}

func TestOpenPostconditions(t *testing.T) {
	master, slave, err := Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() {
		_ = master.Close()
		_ = slave.Close()
	}()

	if cloexec(t, slave) {
		t.Fatal("slave must be inheritable across exec")
	}
	if !cloexec(t, master) {
		t.Fatal("master must never leak to the child")
	}

	tio, err := Termios(master)
	if err != nil {
		t.Fatalf("Termios: %v", err)
	}
	if iutf8Bit != 0 && tio.Iflag&iutf8Bit == 0 {
		t.Fatal("IUTF8 not set on the master")
	}
}

func TestSetInheritableToggles(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer func() {
		_ = r.Close()
		_ = w.Close()
	}()
	if err := SetInheritable(r, true); err != nil {
		t.Fatalf("SetInheritable(true): %v", err)
	}
	if cloexec(t, r) {
		t.Fatal("expected close-on-exec cleared")
	}
	if err := SetInheritable(r, false); err != nil {
		t.Fatalf("SetInheritable(false): %v", err)
	}
	if !cloexec(t, r) {
		t.Fatal("expected close-on-exec set")
	}
}

func TestSetNonblock(t *testing.T) {
	master, slave, err := Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() {
		_ = master.Close()
		_ = slave.Close()
	}()
	if err := SetNonblock(master, true); err != nil {
		t.Fatalf("SetNonblock: %v", err)
	}
	flags, err := unix.FcntlInt(master.Fd(), unix.F_GETFL, 0)
	if err != nil {
		t.Fatalf("F_GETFL: %v", err)
	}
	if flags&unix.O_NONBLOCK == 0 {
		t.Fatal("master not in non-blocking mode")
	}
}

func TestTermiosRoundTrip(t *testing.T) {
	master, slave, err := Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() {
		_ = master.Close()
		_ = slave.Close()
	}()
	tio, err := Termios(master)
	if err != nil {
		t.Fatalf("Termios: %v", err)
	}
	tio.Lflag &^= unix.ISIG
	if err := SetTermios(master, tio); err != nil {
		t.Fatalf("SetTermios: %v", err)
	}
	again, err := Termios(master)
	if err != nil {
		t.Fatalf("Termios: %v", err)
	}
	if again.Lflag&unix.ISIG != 0 {
		t.Fatal("ISIG still set after clearing it")
	}
}
