package child

import (
	"log/slog"
	"os"
	"sync"

	"github.com/loykin/ptysup/internal/environ"
	"github.com/loykin/ptysup/internal/procinfo"
)

// ProgramName is the executable basename used to classify prewarmable argvs.
const ProgramName = "ptysup"

// Environment variables owned by the supervisor.
const (
	EnvPid             = "PTYSUP_PID"
	EnvRealTTY         = "PTYSUP_PREWARM_SOCKET_REAL_TTY"
	EnvInstallationDir = "PTYSUP_INSTALLATION_DIR"
	EnvCloneLaunch     = "PTYSUP_IS_CLONE_LAUNCH"
)

// OptionsProvider exposes the current terminal options the environment
// builder and shell integration need.
type OptionsProvider interface {
	TermName() string
	ShellIntegrationModes() []string // contains "disabled" to turn integration off
}

// AttachResult is the handle returned by a prewarm attach.
type AttachResult struct {
	ChildID string
	Pid     int
}

// Prewarmer hands a new workload to an already-running idle worker instead
// of paying fork/exec cost.
type Prewarmer interface {
	// Attach gives slave and the workload to the warm worker and returns the
	// pid that now owns the terminal. stdin may be nil.
	Attach(slave *os.File, argv []string, cwd string, env environ.Var, stdin []byte) (AttachResult, error)
	// SocketEnvVar is the coordination socket path exported to non-prewarmed
	// children.
	SocketEnvVar() string
	// MarkReady tells the worker the terminal side is fully set up.
	MarkReady(childID string)
	// WorkerPid is the pid of the warm worker process.
	WorkerPid() int
}

// ShellIntegrationFunc may add entries to env, or mark inherited ones for
// deletion with environ.DeleteVar, and may rewrite argv in place.
type ShellIntegrationFunc func(opts OptionsProvider, env environ.Var, argv []string)

// CwdRequester derives a working directory for a launch, possibly rewriting
// argv in place. An error means the caller logs and keeps its original cwd.
type CwdRequester interface {
	ModifyArgvForLaunchWithCwd(argv []string) (string, error)
}

// Runtime bundles the collaborators shared by every Child of one supervisor
// instance.
type Runtime struct {
	Opts             OptionsProvider
	Prewarm          Prewarmer // nil disables the prewarm fast path
	ShellIntegration ShellIntegrationFunc
	InstallationDir  string
	TerminfoDir      string
	ShellPath        string // the user's login shell, for argv0 mangling
	Logger           *slog.Logger

	terminfoOnce    sync.Once
	checkedTerminfo string

	prewarmCmdOnce sync.Once
	prewarmCmdline []string
}

func (rt *Runtime) log() *slog.Logger {
	if rt.Logger != nil {
		return rt.Logger
	}
	return slog.Default()
}

// checkedTerminfoDir returns TerminfoDir only when the directory actually
// exists on disk, checked once per Runtime.
func (rt *Runtime) checkedTerminfoDir() string {
	rt.terminfoOnce.Do(func() {
		if rt.TerminfoDir == "" {
			return
		}
		if st, err := os.Stat(rt.TerminfoDir); err == nil && st.IsDir() {
			rt.checkedTerminfo = rt.TerminfoDir
		}
	})
	return rt.checkedTerminfo
}

// cmdlineOfPrewarmer caches the warm worker's cmdline. The check exists for
// the case where the prewarmed process has already done an exec and changed
// its cmdline.
func (rt *Runtime) cmdlineOfPrewarmer() []string {
	rt.prewarmCmdOnce.Do(func() {
		rt.prewarmCmdline = []string{""}
		if rt.Prewarm == nil {
			return
		}
		if ans, err := procinfo.CmdlineOf(rt.Prewarm.WorkerPid()); err == nil && len(ans) > 0 {
			rt.prewarmCmdline = ans
		}
	})
	return rt.prewarmCmdline
}
