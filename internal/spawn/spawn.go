//go:build !windows

// Package spawn wraps the OS-level fork/exec primitive used to launch a
// child on a pseudo-terminal. It owns exactly one concern: turning an
// already-resolved executable, environment and fd set into a running pid.
package spawn

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// Request carries everything the primitive needs. All fds are owned by the
// caller; Run never closes them.
type Request struct {
	Exe  string   // resolved executable path
	Cwd  string   // absolute working directory
	Argv []string // argv for the child; Argv[0] may differ from Exe (login shells)
	Env  []string // serialized KEY=VALUE entries

	Slave *os.File // PTY slave, becomes the child's stdio and controlling terminal

	// Inheritable pipe ends, passed to the child after the stdio fds.
	// Either may be nil.
	StdinRead *os.File // read end of the stdin-payload pipe
	ReadyRead *os.File // read end of the readiness pipe
}

// Run forks and execs the child in a fresh session with the PTY slave as its
// controlling terminal. The exec boundary resets all signal dispositions to
// their defaults, so handler state of the supervising process never leaks
// into the child.
func Run(req Request) (int, error) {
	if req.Exe == "" || req.Slave == nil {
		return 0, fmt.Errorf("spawn: incomplete request")
	}
	cmd := &exec.Cmd{
		Path:   req.Exe,
		Args:   req.Argv,
		Dir:    req.Cwd,
		Env:    req.Env,
		Stdin:  req.Slave,
		Stdout: req.Slave,
		Stderr: req.Slave,
		SysProcAttr: &syscall.SysProcAttr{
			Setsid:  true, // fresh session, child becomes session leader
			Setctty: true, // slave (fd 0 in the child) is the controlling tty
			Ctty:    0,
		},
	}
	// Extra fds appear in the child starting at fd 3, in order.
	if req.StdinRead != nil {
		cmd.ExtraFiles = append(cmd.ExtraFiles, req.StdinRead)
	}
	if req.ReadyRead != nil {
		cmd.ExtraFiles = append(cmd.ExtraFiles, req.ReadyRead)
	}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("spawn %s: %w", req.Exe, err)
	}
	pid := cmd.Process.Pid
	// The child now runs detached on its own session; release the handle so
	// os/exec never tries to reap it behind the supervisor's back.
	_ = cmd.Process.Release()
	return pid, nil
}

// WriteAndClose flushes payload into w from its own goroutine and closes w
// once fully written (or on first write error). The orchestrator must never
// block on a child that consumes stdin slowly.
func WriteAndClose(w *os.File, payload []byte) {
	go func() {
		defer func() { _ = w.Close() }()
		for len(payload) > 0 {
			n, err := w.Write(payload)
			if err != nil {
				return
			}
			payload = payload[n:]
		}
	}()
}
