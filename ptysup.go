// Package ptysup supervises child processes running on pseudo-terminals:
// PTY allocation, layered environment construction, launch (fork/exec or
// prewarm attach), live introspection of the process tree behind the
// terminal, and translation of terminal control keys into signals.
package ptysup

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/ptysup/internal/child"
	cfg "github.com/loykin/ptysup/internal/config"
	"github.com/loykin/ptysup/internal/environ"
	"github.com/loykin/ptysup/internal/metrics"
	"github.com/loykin/ptysup/internal/prewarm"
	"github.com/loykin/ptysup/internal/procgroup"
	"github.com/loykin/ptysup/internal/procinfo"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Child = child.Child

type Params = child.Params

type Runtime = child.Runtime

type ProcessDesc = child.ProcessDesc

type OptionsProvider = child.OptionsProvider

type Prewarmer = child.Prewarmer

type CwdRequester = child.CwdRequester

type Options = cfg.Options

type Var = environ.Var

type GroupCache = procgroup.Cache

type PrewarmRegistry = prewarm.Registry

// DeleteVar marks an environment variable for removal in per-child override
// maps and shell-integration mutations.
const DeleteVar = environ.DeleteVar

// ErrProcessNotFound is returned by introspection queries racing with
// process exit.
var ErrProcessNotFound = procinfo.ErrNotFound

// DefaultOptions returns the built-in option set.
func DefaultOptions() Options { return cfg.Default() }

// LoadOptions reads a TOML options file on top of the defaults.
func LoadOptions(path string) (Options, error) { return cfg.Load(path) }

// NewRuntime wires an option set into the collaborator bundle shared by
// children of one supervisor.
func NewRuntime(opts Options, logger *slog.Logger) *Runtime {
	return &child.Runtime{
		Opts:            opts,
		InstallationDir: opts.InstallationDir,
		TerminfoDir:     opts.TerminfoDir,
		ShellPath:       opts.Shell,
		Logger:          logger,
	}
}

// NewChild records launch parameters for one process; nothing runs until
// Launch.
func NewChild(rt *Runtime, argv []string, cwd string, p Params) *Child {
	return child.New(rt, argv, cwd, p)
}

// NewPrewarmRegistry builds the default Prewarmer implementation.
func NewPrewarmRegistry(socketPath string, workerPid int, attach prewarm.AttachFunc, logger *slog.Logger) *PrewarmRegistry {
	return prewarm.NewRegistry(socketPath, workerPid, attach, logger)
}

// SetDefaultEnv replaces the process-wide default child environment; call
// before the first launch or from privileged configuration code only.
func SetDefaultEnv(v Var) { environ.SetDefault(v) }

// ParseEnvironBlock parses a raw NUL-delimited environ block.
func ParseEnvironBlock(data []byte) Var { return environ.ParseBlock(data) }

// AcquireGroupCache snapshots the system pid->pgid map for the duration of
// one logical operation. Release it with the scope.
func AcquireGroupCache() *GroupCache { return procgroup.Acquire() }

// RegisterMetrics registers the supervisor's prometheus collectors.
func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }

// MetricsHandler exposes the prometheus handler for embedding in a mux.
func MetricsHandler() http.Handler { return metrics.Handler() }
