//go:build darwin

package procinfo

import (
	"bytes"
	"encoding/binary"

	gopsproc "github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sys/unix"
)

// nativeBackend uses the native process-table APIs: KERN_PROCARGS2 for argv
// and environ (the kernel stores both in one buffer) and proc_pidinfo via
// gopsutil for the working directory.
type nativeBackend struct{}

func newBackend() Backend { return nativeBackend{} }

func (nativeBackend) CmdlineOf(pid int) ([]string, error) {
	argv, _, err := procArgs(pid)
	if err != nil {
		return nil, ErrNotFound
	}
	return argv, nil
}

func (nativeBackend) CwdOf(pid int) (string, error) {
	p, err := gopsproc.NewProcess(int32(pid))
	if err != nil {
		return "", ErrNotFound
	}
	cwd, err := p.Cwd()
	if err != nil || cwd == "" {
		return "", ErrNotFound
	}
	ans, err := realpath(cwd)
	if err != nil {
		return "", ErrNotFound
	}
	return ans, nil
}

func (nativeBackend) EnvironOf(pid int) ([]byte, error) {
	_, env, err := procArgs(pid)
	if err != nil {
		return nil, ErrNotFound
	}
	return env, nil
}

func (nativeBackend) GroupMap() (map[int][]int, error) {
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

// procArgs reads and splits the KERN_PROCARGS2 buffer for pid. The layout is
// argc (int32), the exec path, NUL padding, argc argv strings, then the
// environ strings.
func procArgs(pid int) (argv []string, environ []byte, err error) {
	buf, err := unix.SysctlRaw("kern.procargs2", pid)
	if err != nil {
		return nil, nil, err
	}
	if len(buf) < 4 {
		return nil, nil, unix.EINVAL
	}
	argc := int(binary.LittleEndian.Uint32(buf[:4]))
	rest := buf[4:]
	// skip the exec path and its NUL padding
	i := bytes.IndexByte(rest, 0)
	if i < 0 {
		return nil, nil, unix.EINVAL
	}
	rest = rest[i:]
	for len(rest) > 0 && rest[0] == 0 {
		rest = rest[1:]
	}
	for n := 0; n < argc && len(rest) > 0; n++ {
		j := bytes.IndexByte(rest, 0)
		if j < 0 {
			argv = append(argv, string(rest))
			rest = nil
			break
		}
		argv = append(argv, string(rest[:j]))
		rest = rest[j+1:]
	}
	return argv, rest, nil
}
