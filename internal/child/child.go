// Package child supervises one process attached to a pseudo-terminal: it
// builds the child's environment from layered sources, launches it (fork or
// prewarm attach), and afterwards answers live questions about the process
// tree behind the terminal.
//
// A Child is driven by a single supervising goroutine; it is not safe for
// concurrent mutation and needs no internal locking.
package child

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	homedir "github.com/mitchellh/go-homedir"

	"github.com/loykin/ptysup/internal/environ"
	"github.com/loykin/ptysup/internal/metrics"
	"github.com/loykin/ptysup/internal/ptyalloc"
	"github.com/loykin/ptysup/internal/spawn"
)

// Params carries the optional launch parameters of New.
type Params struct {
	Stdin              []byte       // payload written to the child's stdin pipe, consumed once
	Env                environ.Var  // per-child overrides on top of the default environment
	CwdFrom            CwdRequester // overrides cwd by rewriting argv; nil uses cwd as given
	AllowRemoteControl bool
	IsCloneLaunch      string // opaque session-state token for clone launches
}

// Child is one supervised process. Exactly one launch happens per Child.
type Child struct {
	rt *Runtime

	argv           []string
	unmodifiedArgv []string
	cwd            string
	stdin          []byte
	env            environ.Var
	isCloneLaunch  string

	allowRemoteControl bool

	forked         bool
	isPrewarmed    bool
	pid            int
	master         *os.File // the PTY master, owned exclusively by this Child
	readyWrite     *os.File // readiness pipe write end; closed exactly once
	prewarmChildID string

	finalExe   string
	finalArgv0 string
}

// New resolves cwd and records launch parameters. Nothing is spawned until
// Launch.
func New(rt *Runtime, argv []string, cwd string, p Params) *Child {
	c := &Child{
		rt:                 rt,
		argv:               append([]string(nil), argv...),
		stdin:              p.Stdin,
		env:                p.Env,
		isCloneLaunch:      p.IsCloneLaunch,
		allowRemoteControl: p.AllowRemoteControl,
	}
	if c.env == nil {
		c.env = environ.Var{}
	}
	if p.CwdFrom != nil {
		if ans, err := p.CwdFrom.ModifyArgvForLaunchWithCwd(c.argv); err != nil {
			rt.log().Warn("failed to read cwd for launch, using requested cwd", "error", err)
		} else if ans != "" {
			cwd = ans
		}
	} else {
		cwd = expandPath(cwd)
	}
	if abs, err := filepath.Abs(cwd); err == nil {
		cwd = abs
	}
	c.cwd = cwd
	return c
}

// expandPath expands ~ and $VARS, falling back to the current directory.
func expandPath(p string) string {
	if p == "" {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
		return "/"
	}
	if expanded, err := homedir.Expand(p); err == nil {
		p = expanded
	}
	return os.ExpandEnv(p)
}

// IsPrewarmable classifies argv for the prewarm fast path: at least three
// elements, argv[0] naming this program, and a remote-control or kitten
// style argv[1] ('@' or '+') -- except the open-by-path subcommand, which
// always needs a fresh process.
func IsPrewarmable(argv []string) bool {
	if len(argv) < 3 || filepath.Base(argv[0]) != ProgramName {
		return false
	}
	a1 := argv[1]
	if a1 == "" || (a1[0] != '@' && a1[0] != '+') {
		return false
	}
	if a1[0] == '@' {
		return true
	}
	if a1 == "+" {
		return argv[2] != "open"
	}
	return a1 != "+open"
}

// finalEnv composes the child environment. Later layers override earlier
// ones; see the package documentation for the full order.
func (c *Child) finalEnv() environ.Var {
	env := environ.Default()
	if runtime.GOOS == "darwin" && env["LC_CTYPE"] == "UTF-8" &&
		!environ.LCCtypeAtStartup() && !environ.LCCtypeSetByUser() {
		// the platform default would leak into this shell but not into
		// shells started by other terminals
		delete(env, "LC_CTYPE")
	}
	env.Update(c.env)
	env["TERM"] = c.rt.Opts.TermName()
	env["COLORTERM"] = "truecolor"
	env[EnvPid] = strconv.Itoa(os.Getpid())
	if !c.isPrewarmed && c.rt.Prewarm != nil {
		env[environ.PrewarmSocketVar] = c.rt.Prewarm.SocketEnvVar()
		env[EnvRealTTY] = strings.Repeat(" ", 32)
	}
	if c.cwd != "" {
		// needed in case cwd is a symlink, in which case shells can use it
		// to display the current directory name rather than the resolved path
		env["PWD"] = c.cwd
	}
	if tdir := c.rt.checkedTerminfoDir(); tdir != "" {
		env["TERMINFO"] = tdir
	}
	env[EnvInstallationDir] = c.rt.InstallationDir
	c.unmodifiedArgv = append([]string(nil), c.argv...)
	if c.rt.ShellIntegration != nil && !shellIntegrationDisabled(c.rt.Opts.ShellIntegrationModes()) {
		c.rt.ShellIntegration(c.rt.Opts, env, c.argv)
	}
	env = env.Filter()
	if c.isCloneLaunch != "" {
		env[EnvCloneLaunch] = c.isCloneLaunch
		c.isCloneLaunch = "1" // never retain or expose the token twice
	} else {
		delete(env, EnvCloneLaunch)
	}
	return env
}

func shellIntegrationDisabled(modes []string) bool {
	for _, m := range modes {
		if m == "disabled" {
			return true
		}
	}
	return false
}

// Launch spawns the child exactly once. A second call is a no-op returning
// (0, nil) with pid and master fd unchanged. Fatal OS failures during
// allocation or spawn are returned; there is no partial-success state.
func (c *Child) Launch() (int, error) {
	if c.forked {
		return 0, nil
	}
	c.forked = true

	master, slave, err := ptyalloc.Open()
	if err != nil {
		metrics.ChildSpawnFailed()
		return 0, err
	}
	stdin := c.stdin
	c.stdin = nil
	c.isPrewarmed = c.rt.Prewarm != nil && IsPrewarmable(c.argv)

	var readyRead, readyWrite, stdinRead, stdinWrite *os.File
	var env []string
	fail := func(err error) (int, error) {
		for _, f := range []*os.File{master, slave, readyRead, readyWrite, stdinRead, stdinWrite} {
			if f != nil {
				_ = f.Close()
			}
		}
		metrics.ChildSpawnFailed()
		return 0, err
	}

	if !c.isPrewarmed {
		readyRead, readyWrite, err = os.Pipe()
		if err != nil {
			return fail(fmt.Errorf("readiness pipe: %w", err))
		}
		// the child inherits the read end and learns readiness when the
		// write end held here is closed; no data ever flows
		if err = ptyalloc.SetInheritable(readyRead, true); err != nil {
			return fail(fmt.Errorf("readiness pipe: %w", err))
		}
		if stdin != nil {
			stdinRead, stdinWrite, err = os.Pipe()
			if err != nil {
				return fail(fmt.Errorf("stdin pipe: %w", err))
			}
			if err = ptyalloc.SetInheritable(stdinRead, true); err != nil {
				return fail(fmt.Errorf("stdin pipe: %w", err))
			}
		}
		env = c.finalEnv().Serialize()
	}

	argv := append([]string(nil), c.argv...)
	exe := argv[0]
	if runtime.GOOS == "darwin" && exe == c.rt.ShellPath {
		// bash only sources ~/.bash_profile when it thinks it is a login
		// shell, which it does when argv[0] starts with a hyphen; macOS
		// users commonly put their environment there
		argv[0] = loginArgv0(exe)
	}
	c.finalExe = exe
	if p, lookErr := exec.LookPath(exe); lookErr == nil {
		c.finalExe = p
	}
	c.finalArgv0 = argv[0]

	var pid int
	if c.isPrewarmed {
		res, attachErr := c.rt.Prewarm.Attach(slave, c.argv, c.cwd, c.finalEnv(), stdin)
		if attachErr != nil {
			return fail(fmt.Errorf("prewarm attach: %w", attachErr))
		}
		pid = res.Pid
		c.prewarmChildID = res.ChildID
	} else {
		pid, err = spawn.Run(spawn.Request{
			Exe:       c.finalExe,
			Cwd:       c.cwd,
			Argv:      argv,
			Env:       env,
			Slave:     slave,
			StdinRead: stdinRead,
			ReadyRead: readyRead,
		})
		if err != nil {
			return fail(err)
		}
	}
	// the child now owns the only live reference to the slave
	_ = slave.Close()
	c.pid = pid
	c.master = master
	if !c.isPrewarmed {
		if stdin != nil {
			_ = stdinRead.Close()
			spawn.WriteAndClose(stdinWrite, stdin)
		}
		_ = readyRead.Close()
		c.readyWrite = readyWrite
	}
	_ = ptyalloc.SetNonblock(master, true)
	metrics.ChildSpawned(c.isPrewarmed)
	c.rt.log().Debug("child launched", "pid", pid, "exe", c.finalExe, "prewarmed", c.isPrewarmed)
	return pid, nil
}

// MarkTerminalReady signals the child that the terminal side is fully set
// up: for prewarmed children via the prewarm subsystem, otherwise by closing
// the readiness write end.
func (c *Child) MarkTerminalReady() {
	if c.isPrewarmed {
		if c.rt.Prewarm != nil {
			c.rt.Prewarm.MarkReady(c.prewarmChildID)
		}
		return
	}
	c.closeReadyFd()
}

func (c *Child) closeReadyFd() {
	if c.readyWrite != nil {
		_ = c.readyWrite.Close()
		c.readyWrite = nil
	}
}

// Close releases the fds owned by this Child: the readiness write end (when
// not already closed by MarkTerminalReady) and the PTY master. Safe to call
// more than once; every fd is closed exactly once.
func (c *Child) Close() error {
	c.closeReadyFd()
	if c.master == nil {
		return nil
	}
	err := c.master.Close()
	c.master = nil
	return err
}

func loginArgv0(exe string) string { return "-" + filepath.Base(exe) }

// Pid is 0 until Launch succeeds.
func (c *Child) Pid() int { return c.pid }

// Master is the PTY master fd, nil until Launch succeeds and after Close.
// It is non-blocking and intended to be multiplexed by an external event
// loop.
func (c *Child) Master() *os.File { return c.master }

// IsPrewarmed reports whether Launch took the prewarm fast path.
func (c *Child) IsPrewarmed() bool { return c.isPrewarmed }

// Argv returns a copy of the current (possibly shell-integration mutated)
// argv.
func (c *Child) Argv() []string { return append([]string(nil), c.argv...) }

// UnmodifiedArgv returns the argv snapshot taken before shell integration
// mutated it, for display purposes. Empty before the first launch.
func (c *Child) UnmodifiedArgv() []string {
	return append([]string(nil), c.unmodifiedArgv...)
}

// Cwd is the absolute working directory resolved at construction time.
func (c *Child) Cwd() string { return c.cwd }

// AllowRemoteControl reports whether the launch requested remote control.
func (c *Child) AllowRemoteControl() bool { return c.allowRemoteControl }

// FinalExe is the resolved executable path, set by Launch.
func (c *Child) FinalExe() string { return c.finalExe }

// FinalArgv0 is the argv[0] actually passed to the child, set by Launch.
func (c *Child) FinalArgv0() string { return c.finalArgv0 }
