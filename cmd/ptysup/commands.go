package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/loykin/ptysup"
	"github.com/loykin/ptysup/internal/config"
	"github.com/loykin/ptysup/internal/environ"
	"github.com/loykin/ptysup/internal/logger"
)

func buildRunCmd(g *GlobalFlags) *cobra.Command {
	var f RunFlags
	cmd := &cobra.Command{
		Use:   "run [flags] -- command [args...]",
		Short: "launch a command on a fresh PTY and stream its terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChild(g, &f, args)
		},
	}
	cmd.Flags().StringVar(&f.Cwd, "cwd", "", "working directory for the child (~ and $VARS expanded)")
	cmd.Flags().StringArrayVar(&f.EnvKVs, "env", nil, "extra KEY=VALUE for the child, repeatable; KEY= unsets")
	cmd.Flags().StringVar(&f.StdinFile, "stdin-file", "", "file whose contents are piped to the child once")
	cmd.Flags().StringVar(&f.Term, "term", "", "override the TERM name from the options file")
	cmd.Flags().StringVar(&f.MetricsListen, "metrics-listen", "", "expose prometheus metrics on this address")
	cmd.Flags().BoolVar(&f.WatchForeground, "watch-foreground", false, "periodically log the foreground process")
	cmd.Flags().BoolVar(&f.Oldest, "oldest", false, "pick the oldest group member when watching the foreground")
	return cmd
}

func loadOptions(g *GlobalFlags, f *RunFlags) (config.Options, error) {
	opts := config.Default()
	if g.ConfigPath != "" {
		var err error
		if opts, err = config.Load(g.ConfigPath); err != nil {
			return opts, err
		}
	}
	if f.Term != "" {
		opts.Term = f.Term
	}
	if f.MetricsListen != "" {
		opts.MetricsListen = f.MetricsListen
	}
	return opts, nil
}

func parseEnvFlags(kvs []string) environ.Var {
	env := environ.Var{}
	for _, kv := range kvs {
		i := strings.IndexByte(kv, '=')
		if i <= 0 {
			continue
		}
		k, v := kv[:i], kv[i+1:]
		if v == "" {
			env[k] = environ.DeleteVar
			continue
		}
		env[k] = v
	}
	return env
}

func runChild(g *GlobalFlags, f *RunFlags, argv []string) error {
	opts, err := loadOptions(g, f)
	if err != nil {
		return err
	}
	log := logger.New(os.Stderr, g.LogLevel)

	if opts.MetricsListen != "" {
		if err := ptysup.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", ptysup.MetricsHandler())
		go func() {
			if err := http.ListenAndServe(opts.MetricsListen, mux); err != nil {
				log.Error("metrics listener failed", "error", err)
			}
		}()
	}

	var stdin []byte
	if f.StdinFile != "" {
		if stdin, err = os.ReadFile(f.StdinFile); err != nil {
			return fmt.Errorf("read stdin file: %w", err)
		}
	}

	ptysup.SetDefaultEnv(nil)
	rt := ptysup.NewRuntime(opts, log)
	c := ptysup.NewChild(rt, argv, f.Cwd, ptysup.Params{
		Stdin: stdin,
		Env:   parseEnvFlags(f.EnvKVs),
	})
	pid, err := c.Launch()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()
	c.MarkTerminalReady()
	log.Debug("child running", "pid", pid, "cwd", c.Cwd())

	master := c.Master()
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		oldState, rawErr := term.MakeRaw(int(os.Stdin.Fd()))
		if rawErr == nil {
			defer func() { _ = term.Restore(int(os.Stdin.Fd()), oldState) }()
		}
		resizeOnSigwinch(master)
	}

	var transcript io.WriteCloser
	out := io.Writer(os.Stdout)
	if transcript = opts.Log.TranscriptWriter(filepath.Base(argv[0])); transcript != nil {
		out = io.MultiWriter(os.Stdout, transcript)
		defer func() { _ = transcript.Close() }()
	}

	if f.WatchForeground {
		go watchForeground(c, f.Oldest, log)
	}

	go func() { pumpToMaster(master, os.Stdin) }()
	pumpFromMaster(out, master)

	status := reap(pid)
	log.Debug("child exited", "pid", pid, "status", status)
	if status != 0 {
		os.Exit(status)
	}
	return nil
}

// resizeOnSigwinch keeps the PTY size in sync with the controlling
// terminal.
func resizeOnSigwinch(master *os.File) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGWINCH)
	go func() {
		for range ch {
			_ = pty.InheritSize(os.Stdin, master)
		}
	}()
	ch <- syscall.SIGWINCH // set the initial size
}

// watchForeground logs the terminal's foreground process once a second,
// batching group lookups behind one snapshot per tick.
func watchForeground(c *ptysup.Child, oldest bool, log *slog.Logger) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for range t.C {
		pg := ptysup.AcquireGroupCache()
		pid := c.GetPidForCwd(oldest, pg)
		cmdline := c.ForegroundCmdline(pg)
		cwd := c.GetForegroundCwd(oldest, pg)
		pg.Release()
		log.Info("foreground", "pid", pid, "cmdline", strings.Join(cmdline, " "), "cwd", cwd)
	}
}

// reap waits for the child and folds its wait status into an exit code.
func reap(pid int) int {
	var ws syscall.WaitStatus
	for {
		wpid, err := syscall.Wait4(pid, &ws, 0, nil)
		if err == syscall.EINTR {
			continue
		}
		if err != nil || wpid != pid {
			return 0
		}
		break
	}
	switch {
	case ws.Exited():
		return ws.ExitStatus()
	case ws.Signaled():
		return 128 + int(ws.Signal())
	default:
		return 0
	}
}
