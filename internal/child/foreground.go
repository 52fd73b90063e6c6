package child

import (
	"github.com/loykin/ptysup/internal/environ"
	"github.com/loykin/ptysup/internal/metrics"
	"github.com/loykin/ptysup/internal/procgroup"
	"github.com/loykin/ptysup/internal/procinfo"
)

// ProcessDesc is a read-only snapshot of one process behind the terminal.
// Cmdline is nil and Cwd empty when the process was unreadable at query
// time; snapshots are produced on demand and never cached.
type ProcessDesc struct {
	Pid     int
	Cmdline []string
	Cwd     string
}

// CmdlineOfPid is the introspection read with the Child's own fallbacks: an
// unreadable process yields nil, and for the child pid itself an empty or
// still-prewarm-worker cmdline is replaced by the launch argv.
func (c *Child) CmdlineOfPid(pid int) []string {
	ans, err := procinfo.CmdlineOf(pid)
	if err != nil {
		metrics.IntrospectionFallback("cmdline")
		ans = nil
	}
	if pid == c.pid && (len(ans) == 0 || (c.isPrewarmed && equalArgv(ans, c.rt.cmdlineOfPrewarmer()))) {
		ans = append([]string(nil), c.argv...)
	}
	return ans
}

// Cmdline is the child's current command line, falling back to the launch
// argv whenever the process is unreadable.
func (c *Child) Cmdline() []string {
	if c.pid == 0 {
		return append([]string(nil), c.argv...)
	}
	if ans := c.CmdlineOfPid(c.pid); len(ans) > 0 {
		return ans
	}
	return append([]string(nil), c.argv...)
}

// ForegroundCmdline is the command line of the foreground process, falling
// back to Cmdline.
func (c *Child) ForegroundCmdline(pg *procgroup.Cache) []string {
	if pid := c.GetPidForCwd(false, pg); pid > 0 {
		if ans := c.CmdlineOfPid(pid); len(ans) > 0 {
			return ans
		}
	}
	return c.Cmdline()
}

// Environ is the child's current environment; empty when unreadable.
func (c *Child) Environ() environ.Var {
	if c.pid == 0 {
		return environ.Var{}
	}
	raw, err := procinfo.EnvironOf(c.pid)
	if err != nil {
		metrics.IntrospectionFallback("environ")
		return environ.Var{}
	}
	return environ.ParseBlock(raw)
}

// CurrentCwd is the child's current working directory; empty when
// unreadable.
func (c *Child) CurrentCwd() string {
	if c.pid == 0 {
		return ""
	}
	cwd, err := procinfo.CwdOf(c.pid)
	if err != nil {
		metrics.IntrospectionFallback("cwd")
		return ""
	}
	return cwd
}

// foregroundGroup returns the terminal's foreground process-group id, or -1
// when there is none or the query fails.
func (c *Child) foregroundGroup() int {
	if c.master == nil {
		return -1
	}
	pgid, err := tcgetpgrp(c.master)
	if err != nil {
		return -1
	}
	return pgid
}

// ForegroundProcesses describes every process in the terminal's foreground
// group. pg may be nil; pass a procgroup.Cache when calling repeatedly
// within one logical operation.
func (c *Child) ForegroundProcesses(pg *procgroup.Cache) []ProcessDesc {
	pgid := c.foregroundGroup()
	if pgid < 0 {
		return nil
	}
	pids := pg.PidsInGroup(pgid)
	out := make([]ProcessDesc, 0, len(pids))
	for _, pid := range pids {
		d := ProcessDesc{Pid: pid, Cmdline: c.CmdlineOfPid(pid)}
		if cwd, err := procinfo.CwdOf(pid); err == nil {
			d.Cwd = cwd
		} else {
			metrics.IntrospectionFallback("cwd")
		}
		out = append(out, d)
	}
	return out
}

// GetPidForCwd picks the pid whose cwd should represent the terminal's
// foreground. There is no easy way to know which process in the group is the
// foreground one from the user's perspective, so we assume the one with the
// highest pid is, as that is most likely to be the newest process (a shell
// script's interpreter plus the program it runs share the group). oldest
// flips the choice to the lowest pid. Falls back to the child pid.
func (c *Child) GetPidForCwd(oldest bool, pg *procgroup.Cache) int {
	if pgid := c.foregroundGroup(); pgid >= 0 {
		if pids := pg.PidsInGroup(pgid); len(pids) > 0 {
			return pickForegroundPid(pids, oldest)
		}
	}
	return c.pid
}

func pickForegroundPid(pids []int, oldest bool) int {
	best := pids[0]
	for _, p := range pids[1:] {
		if (oldest && p < best) || (!oldest && p > best) {
			best = p
		}
	}
	return best
}

// PidForCwd is GetPidForCwd with the default newest-pid policy and no cache.
func (c *Child) PidForCwd() int { return c.GetPidForCwd(false, nil) }

// GetForegroundCwd is the cwd of the pid chosen by GetPidForCwd; empty when
// unreadable.
func (c *Child) GetForegroundCwd(oldest bool, pg *procgroup.Cache) string {
	if pid := c.GetPidForCwd(oldest, pg); pid > 0 {
		if cwd, err := procinfo.CwdOf(pid); err == nil {
			return cwd
		}
		metrics.IntrospectionFallback("cwd")
	}
	return ""
}

// ForegroundCwd is GetForegroundCwd with the default policy and no cache.
func (c *Child) ForegroundCwd() string { return c.GetForegroundCwd(false, nil) }

// ForegroundEnviron is the environment of the foreground process, falling
// back to the child's own environment and then to empty.
func (c *Child) ForegroundEnviron() environ.Var {
	if pid := c.PidForCwd(); pid > 0 {
		if raw, err := procinfo.EnvironOf(pid); err == nil {
			return environ.ParseBlock(raw)
		}
		metrics.IntrospectionFallback("environ")
	}
	if c.pid > 0 {
		if raw, err := procinfo.EnvironOf(c.pid); err == nil {
			return environ.ParseBlock(raw)
		}
		metrics.IntrospectionFallback("environ")
	}
	return environ.Var{}
}

func equalArgv(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
