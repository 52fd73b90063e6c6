package logger

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

func TestTranscriptWriterPath(t *testing.T) {
	dir := t.TempDir()

	c := Config{Dir: dir}
	w := c.TranscriptWriter("main")
	if w == nil {
		t.Fatal("expected a writer when Dir is set")
	}
	l, ok := w.(*lj.Logger)
	if !ok {
		t.Fatalf("unexpected writer type %T", w)
	}
	if l.Filename != filepath.Join(dir, "main.session.log") {
		t.Fatalf("filename: %q", l.Filename)
	}
	if l.MaxSize != DefaultMaxSizeMB || l.MaxBackups != DefaultMaxBackups || l.MaxAge != DefaultMaxAgeDays {
		t.Fatalf("rotation defaults not applied: %+v", l)
	}

	explicit := filepath.Join(dir, "explicit.log")
	c = Config{Dir: dir, TranscriptPath: explicit, MaxSizeMB: 1}
	l = c.TranscriptWriter("ignored").(*lj.Logger)
	if l.Filename != explicit {
		t.Fatalf("explicit path not honored: %q", l.Filename)
	}
	if l.MaxSize != 1 {
		t.Fatalf("explicit max size lost: %d", l.MaxSize)
	}

	if w := (Config{}).TranscriptWriter("main"); w != nil {
		t.Fatal("expected nil writer for empty config")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"  WARN ": slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn")
	log.Info("quiet")
	log.Warn("loud", "key", "value")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Fatalf("info leaked through warn level: %q", out)
	}
	if !strings.Contains(out, "loud") || !strings.Contains(out, "key=value") {
		t.Fatalf("warn record missing: %q", out)
	}
}

func TestValOr(t *testing.T) {
	if valOr(0, 7) != 7 || valOr(-1, 7) != 7 || valOr(3, 7) != 3 {
		t.Fatal("valOr")
	}
}
