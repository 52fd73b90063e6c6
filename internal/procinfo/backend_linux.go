//go:build linux

package procinfo

import (
	"bytes"
	"os"
	"strconv"
	"strings"
)

// procBackend reads the /proc virtual filesystem directly.
type procBackend struct{}

func newBackend() Backend { return procBackend{} }

func procPath(pid int, file string) string {
	return "/proc/" + strconv.Itoa(pid) + "/" + file
}

func (procBackend) CmdlineOf(pid int) ([]string, error) {
	b, err := os.ReadFile(procPath(pid, "cmdline"))
	if err != nil {
		return nil, ErrNotFound
	}
	var out []string
	for _, part := range bytes.Split(b, []byte{0}) {
		if len(part) > 0 {
			out = append(out, string(part))
		}
	}
	return out, nil
}

func (procBackend) CwdOf(pid int) (string, error) {
	ans, err := realpath(procPath(pid, "cwd"))
	if err != nil {
		return "", ErrNotFound
	}
	return ans, nil
}

func (procBackend) EnvironOf(pid int) ([]byte, error) {
	b, err := os.ReadFile(procPath(pid, "environ"))
	if err != nil {
		return nil, ErrNotFound
	}
	return b, nil
}

func (procBackend) GroupMap() (map[int][]int, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, err
	}
	ans := make(map[int][]int)
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid <= 0 {
			continue // not a PID dir
		}
		b, err := os.ReadFile(procPath(pid, "stat"))
		if err != nil {
			continue // vanished mid-scan
		}
		pgid, ok := pgidFromStat(string(b))
		if !ok {
			continue
		}
		ans[pgid] = append(ans[pgid], pid)
	}
	return ans, nil
}

// pgidFromStat extracts the pgrp field (5th overall) from /proc/<pid>/stat.
// The comm field can contain spaces, so scanning starts after the ") " that
// terminates it.
func pgidFromStat(line string) (int, bool) {
	end := strings.LastIndex(line, ") ")
	if end == -1 {
		return 0, false
	}
	fields := strings.Fields(line[end+2:])
	// fields[0] is state, fields[1] ppid, fields[2] pgrp
	if len(fields) < 3 {
		return 0, false
	}
	pgid, err := strconv.Atoi(fields[2])
	if err != nil {
		return 0, false
	}
	return pgid, true
}
