package main

// GlobalFlags holds persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
	LogLevel   string
}

// RunFlags holds flags for the run command.
type RunFlags struct {
	Cwd             string
	EnvKVs          []string
	StdinFile       string
	Term            string
	MetricsListen   string
	WatchForeground bool
	Oldest          bool
}
