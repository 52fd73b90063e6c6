// Package procinfo answers four questions about live processes: command
// line, working directory, raw environ block and the system-wide pid->pgid
// map. The concrete strategy is fixed per OS family at build time (see the
// backend_* files); callers are strategy-agnostic.
package procinfo

import (
	"errors"
	"path/filepath"
)

// ErrNotFound is returned by every query when the target process is gone or
// unreadable. Callers are expected to treat it as a normal race with process
// exit, not a failure.
var ErrNotFound = errors.New("procinfo: process not found or unreadable")

// Backend is the per-platform introspection strategy. All implementations
// must produce identical shapes so callers never branch on platform.
type Backend interface {
	// CmdlineOf returns the argv of pid.
	CmdlineOf(pid int) ([]string, error)
	// CwdOf returns the absolute, symlink-resolved working directory of pid.
	CwdOf(pid int) (string, error)
	// EnvironOf returns the raw NUL-delimited environ block of pid.
	EnvironOf(pid int) ([]byte, error)
	// GroupMap enumerates all visible processes and groups them by pgid.
	// Individual processes that vanish mid-scan are skipped.
	GroupMap() (map[int][]int, error)
}

// Default is the strategy for this OS, selected once at startup.
var Default Backend = newBackend()

func CmdlineOf(pid int) ([]string, error) { return Default.CmdlineOf(pid) }
func CwdOf(pid int) (string, error)       { return Default.CwdOf(pid) }
func EnvironOf(pid int) ([]byte, error)   { return Default.EnvironOf(pid) }
func GroupMap() (map[int][]int, error)    { return Default.GroupMap() }

// realpath resolves symlinks and returns an absolute path.
func realpath(p string) (string, error) {
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		return "", err
	}
	return filepath.Abs(resolved)
}
