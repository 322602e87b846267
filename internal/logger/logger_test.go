package logger

import (
	"os"
	"strings"
	"testing"
)

func TestHelpersNoopBeforeInit(t *testing.T) {
	Logger = nil
	// Must not panic.
	Debug("debug")
	Info("info")
	Warn("warn")
	Error("error", "k", "v")
}

func TestInitWritesWarningsToFile(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(func() { Logger = nil })

	if err := Init(Config{ConfigDir: dir}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	Info("hidden message")
	Warn("visible message", "key", "value")

	data, err := os.ReadFile(LogPath(dir))
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "hidden message") {
		t.Errorf("info logged at default level:\n%s", out)
	}
	if !strings.Contains(out, "visible message") {
		t.Errorf("warning missing from log:\n%s", out)
	}
	if !strings.Contains(out, "key=value") {
		t.Errorf("key/value pair missing from log:\n%s", out)
	}
}
