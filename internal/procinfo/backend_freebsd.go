//go:build freebsd

package procinfo

import (
	"os/exec"
	"strconv"
	"strings"

	gopsproc "github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sys/unix"
)

// bsdBackend combines the native process table with a pwdx shell-out for the
// working directory, which has no stable syscall surface on FreeBSD.
type bsdBackend struct{}

func newBackend() Backend { return bsdBackend{} }

func (bsdBackend) CmdlineOf(pid int) ([]string, error) {
	p, err := gopsproc.NewProcess(int32(pid))
	if err != nil {
		return nil, ErrNotFound
	}
	argv, err := p.CmdlineSlice()
	if err != nil {
		return nil, ErrNotFound
	}
	return argv, nil
}

func (bsdBackend) CwdOf(pid int) (string, error) {
	// #nosec G204 -- pid is numeric
	out, err := exec.Command("pwdx", strconv.Itoa(pid)).Output()
	if err != nil {
		return "", ErrNotFound
	}
	// pwdx output: "<pid>: <path>"
	fields := strings.Fields(string(out))
	if len(fields) < 2 {
		return "", ErrNotFound
	}
	ans, err := realpath(fields[1])
	if err != nil {
		return "", ErrNotFound
	}
	return ans, nil
}

func (bsdBackend) EnvironOf(pid int) ([]byte, error) {
	p, err := gopsproc.NewProcess(int32(pid))
	if err != nil {
		return nil, ErrNotFound
	}
	vars, err := p.Environ()
	if err != nil {
		return nil, ErrNotFound
	}
	var b []byte
	for _, kv := range vars {
		b = append(b, kv...)
		b = append(b, 0)
	}
	return b, nil
}

func (bsdBackend) GroupMap() (map[int][]int, error) {
	pids, err := gopsproc.Pids()
	if err != nil {
		return nil, err
	}
	ans := make(map[int][]int)
	for _, pid := range pids {
		pgid, err := unix.Getpgid(int(pid))
		if err != nil {
			continue // vanished mid-scan
		}
		ans[pgid] = append(ans[pgid], int(pid))
	}
	return ans, nil
}
