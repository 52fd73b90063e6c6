package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation parameters for session transcript logs.
const (
	DefaultMaxSizeMB  = 10 // MB
	DefaultMaxBackups = 3  // number of backup files
	DefaultMaxAgeDays = 7  // days
)

// Config describes logging destinations for a supervised child session.
// If TranscriptPath is empty and Dir is set, the transcript goes to
// Dir/<name>.session.log. Rotation parameters follow lumberjack semantics.
type Config struct {
	Dir            string `mapstructure:"dir"`             // base directory for logs
	TranscriptPath string `mapstructure:"transcript"`      // explicit transcript path overrides Dir
	MaxSizeMB      int    `mapstructure:"max_size_mb"`     // megabytes before rotation (default 10)
	MaxBackups     int    `mapstructure:"max_backups"`     // number of backups to keep (default 3)
	MaxAgeDays     int    `mapstructure:"max_age_days"`    // days to keep (default 7)
	Compress       bool   `mapstructure:"compress"`        // gzip rotated files
	Level          string `mapstructure:"level"`           // debug|info|warn|error
}

// TranscriptWriter returns a rotating writer capturing everything the child
// writes to its terminal, or nil when transcripts are not configured.
func (c Config) TranscriptWriter(name string) io.WriteCloser {
	path := c.TranscriptPath
	if path == "" && c.Dir != "" {
		path = filepath.Join(c.Dir, fmt.Sprintf("%s.session.log", name))
	}
	if path == "" {
		return nil
	}
	return &lj.Logger{
		Filename:   path,
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}
}

// New builds the process-wide slog logger writing to w with colored levels.
func New(w io.Writer, level string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	return slog.New(NewColorTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
