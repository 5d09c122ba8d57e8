package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitWritesToFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "run.log")

	err := InitWithFileConfig("debug", DefaultFileConfig(logPath), false)
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}

	Log.Info("extraction started", zap.Int("entries", 3))
	Sync()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "extraction started") {
		t.Errorf("log file missing message: %s", data)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"info":  zapcore.InfoLevel,
		"bogus": zapcore.InfoLevel,
		"":      zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "run.log")

	if err := InitWithFileConfig("warn", DefaultFileConfig(logPath), false); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	Log.Info("below threshold")
	Log.Warn("at threshold")
	Sync()

	data, _ := os.ReadFile(logPath)
	if strings.Contains(string(data), "below threshold") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(string(data), "at threshold") {
		t.Error("warn message should pass the filter")
	}
}
