// Package logger provides the structured logger shared by services.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// LoggingConfig controls how a Logger formats and where it writes.
type LoggingConfig struct {
	Level      string
	Format     string // json | text
	Output     string // stdout | stderr | file
	FilePrefix string
}

// Logger wraps a logrus logger with a component name.
type Logger struct {
	*logrus.Logger
	name string
}

// New builds a Logger from cfg. Unknown levels fall back to info.
func New(cfg LoggingConfig) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	}

	l.SetOutput(openOutput(cfg))
	return &Logger{Logger: l, name: cfg.FilePrefix}
}

// NewDefault returns an info-level text logger tagged with name.
func NewDefault(name string) *Logger {
	l := New(LoggingConfig{Level: "info", Format: "text", Output: "stdout"})
	l.name = name
	return l
}

// Name returns the component name the logger was created for.
func (l *Logger) Name() string {
	return l.name
}

// WithComponent returns an entry tagged with the component name.
func (l *Logger) WithComponent() *logrus.Entry {
	return l.WithField("component", l.name)
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Logger{Logger: l, name: "discard"}
}

func openOutput(cfg LoggingConfig) io.Writer {
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		return os.Stderr
	case "file":
		prefix := cfg.FilePrefix
		if prefix == "" {
			prefix = "sira"
		}
		name := filepath.Join("logs", fmt.Sprintf("%s-%s.log", prefix, time.Now().Format("20060102")))
		if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
			return os.Stdout
		}
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return os.Stdout
		}
		return f
	default:
		return os.Stdout
	}
}
