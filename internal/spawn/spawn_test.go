//go:build !windows

package spawn

import (
	"bytes"
	"io"
	"os"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/loykin/ptysup/internal/ptyalloc"
)

func reap(t *testing.T, pid int) syscall.WaitStatus {
	t.Helper()
	var ws syscall.WaitStatus
	for {
		wpid, err := syscall.Wait4(pid, &ws, 0, nil)
		if err == syscall.EINTR {
			continue
		}
		if err != nil {
			t.Fatalf("wait4: %v", err)
		}
		if wpid == pid {
			return ws
		}
	}
}

// readUntil reads the master until want appears or the deadline passes. The
// master is blocking here, so reads are raced against a timer goroutine that
// closes the fd.
func readUntil(t *testing.T, master *os.File, want []byte) []byte {
	t.Helper()
	timer := time.AfterFunc(5*time.Second, func() { _ = master.Close() })
	defer timer.Stop()
	var got bytes.Buffer
	buf := make([]byte, 4096)
	for {
		n, err := master.Read(buf)
		if n > 0 {
			got.Write(buf[:n])
			if bytes.Contains(got.Bytes(), want) {
				return got.Bytes()
			}
		}
		if err != nil {
			// EIO means the child closed its side; return whatever arrived
			return got.Bytes()
		}
	}
}

func TestRunOnPty(t *testing.T) {
	master, slave, err := ptyalloc.Open()
	if err != nil {
		t.Fatalf("pty: %v", err)
	}
	defer func() { _ = master.Close() }()

	pid, err := Run(Request{
		Exe:   "/bin/sh",
		Cwd:   "/",
		Argv:  []string{"sh", "-c", "echo hello-from-child"},
		Env:   []string{"PATH=/usr/bin:/bin"},
		Slave: slave,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	_ = slave.Close()

	out := readUntil(t, master, []byte("hello-from-child"))
	if !bytes.Contains(out, []byte("hello-from-child")) {
		t.Fatalf("child output not seen: %q", out)
	}
	ws := reap(t, pid)
	if !ws.Exited() || ws.ExitStatus() != 0 {
		t.Fatalf("unexpected wait status: %v", ws)
	}
}

func TestRunChildOwnsSession(t *testing.T) {
	master, slave, err := ptyalloc.Open()
	if err != nil {
		t.Fatalf("pty: %v", err)
	}
	defer func() { _ = master.Close() }()

	exe, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep not available")
	}
	pid, err := Run(Request{
		Exe:   exe,
		Cwd:   "/",
		Argv:  []string{"sleep", "5"},
		Slave: slave,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	_ = slave.Close()
	defer reap(t, pid)
	defer func() { _ = syscall.Kill(pid, syscall.SIGKILL) }()

	// a fresh session leader is its own process group leader
	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		t.Fatalf("Getpgid: %v", err)
	}
	if pgid != pid {
		t.Fatalf("child not a session/group leader: pid=%d pgid=%d", pid, pgid)
	}
}

func TestRunIncompleteRequest(t *testing.T) {
	if _, err := Run(Request{}); err == nil {
		t.Fatal("expected error for empty request")
	}
}

func TestRunExtraFilesReachChild(t *testing.T) {
	master, slave, err := ptyalloc.Open()
	if err != nil {
		t.Fatalf("pty: %v", err)
	}
	defer func() { _ = master.Close() }()

	stdinRead, stdinWrite, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	if err := ptyalloc.SetInheritable(stdinRead, true); err != nil {
		t.Fatalf("SetInheritable: %v", err)
	}

	// fd 3 in the child is the first extra file
	pid, err := Run(Request{
		Exe:       "/bin/sh",
		Cwd:       "/",
		Argv:      []string{"sh", "-c", "cat <&3"},
		Env:       []string{"PATH=/usr/bin:/bin"},
		Slave:     slave,
		StdinRead: stdinRead,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	_ = slave.Close()
	_ = stdinRead.Close()
	WriteAndClose(stdinWrite, []byte("payload-via-pipe\n"))

	out := readUntil(t, master, []byte("payload-via-pipe"))
	if !bytes.Contains(out, []byte("payload-via-pipe")) {
		t.Fatalf("stdin payload not seen on terminal: %q", out)
	}
	reap(t, pid)
}

func TestWriteAndCloseFlushesAndCloses(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer func() { _ = r.Close() }()

	payload := bytes.Repeat([]byte("0123456789abcdef"), 64*1024) // > pipe buffer
	WriteAndClose(w, payload)

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mangled: %d bytes vs %d", len(got), len(payload))
	}
}
