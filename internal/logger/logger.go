// Package logger wraps a rotating charmbracelet/log logger. Until Init is
// called every helper is a no-op, so library code can log unconditionally.
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide logger. Nil until Init.
var Logger *log.Logger

// Config controls where and how verbosely the logger writes.
type Config struct {
	Debug     bool
	ConfigDir string
}

// LogPath returns the log file location under dir.
func LogPath(dir string) string {
	return filepath.Join(dir, "logs", "hydrate.log")
}

// Init sets up the global logger. Normal runs only write warnings and above
// to the rotating file; debug runs log everything and mirror to stderr.
func Init(cfg Config) error {
	logFile := LogPath(cfg.ConfigDir)
	if err := os.MkdirAll(filepath.Dir(logFile), 0o750); err != nil {
		return err
	}

	fileWriter := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10, // MB
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	level := log.WarnLevel
	var w io.Writer = fileWriter
	if cfg.Debug {
		level = log.DebugLevel
		w = io.MultiWriter(os.Stderr, fileWriter)
	}

	Logger = log.NewWithOptions(w, log.Options{
		ReportCaller:    cfg.Debug,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          "hydrate",
	})
	return nil
}

// Debug logs at debug level.
func Debug(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Debug(msg, keyvals...)
	}
}

// Info logs at info level.
func Info(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Info(msg, keyvals...)
	}
}

// Warn logs at warn level.
func Warn(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Warn(msg, keyvals...)
	}
}

// Error logs at error level.
func Error(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Error(msg, keyvals...)
	}
}
