package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRoot() *cobra.Command {
	var g GlobalFlags
	root := &cobra.Command{
		Use:           "ptysup",
		Short:         "run and introspect a child process on a pseudo-terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.ConfigPath, "config", "c", "", "path to TOML options file")
	root.PersistentFlags().StringVar(&g.LogLevel, "log-level", "info", "log level (debug|info|warn|error)")
	root.AddCommand(buildRunCmd(&g))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(version)
		},
	})
	return root
}
