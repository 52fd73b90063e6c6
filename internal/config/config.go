package config

import (
	"fmt"
	"os"

	"github.com/loykin/ptysup/internal/logger"
	"github.com/spf13/viper"
)

// Options is the top-level TOML structure.
//
//	term = "xterm-ptysup"
//	shell_integration = ["enabled"]
//	terminfo_dir = "/usr/local/share/terminfo"
//	installation_dir = "/usr/local/lib/ptysup"
//	shell = "/bin/zsh"
//	metrics_listen = "127.0.0.1:9310"
//	[log]
//	dir = "/var/log/ptysup"
type Options struct {
	Term             string        `mapstructure:"term"`
	ShellIntegration []string      `mapstructure:"shell_integration"`
	TerminfoDir      string        `mapstructure:"terminfo_dir"`
	InstallationDir  string        `mapstructure:"installation_dir"`
	Shell            string        `mapstructure:"shell"`
	MetricsListen    string        `mapstructure:"metrics_listen"`
	Log              logger.Config `mapstructure:"log"`
}

// Default returns the options used when no config file is given.
func Default() Options {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return Options{
		Term:             "xterm-ptysup",
		ShellIntegration: []string{"enabled"},
		Shell:            shell,
	}
}

// Load reads a TOML options file on top of the defaults.
func Load(path string) (Options, error) {
	opts := Default()
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return opts, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(&opts); err != nil {
		return opts, fmt.Errorf("parse config %s: %w", path, err)
	}
	return opts, nil
}

// TermName implements the child options provider.
func (o Options) TermName() string { return o.Term }

// ShellIntegrationModes implements the child options provider.
func (o Options) ShellIntegrationModes() []string { return o.ShellIntegration }
