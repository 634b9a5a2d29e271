// Package logger is the logging interface shared by the command and the
// HTTP server.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

type Logger interface {
	Infof(format string, v ...any)
	Errorf(format string, v ...any)
}

type slogLogger struct {
	l *slog.Logger
}

// New returns a Logger writing text records to stderr.
func New() Logger { return NewWriter(os.Stderr) }

// NewWriter returns a Logger writing text records to w.
func NewWriter(w io.Writer) Logger {
	return &slogLogger{l: slog.New(slog.NewTextHandler(w, nil))}
}

// Discard returns a Logger that drops everything.
func Discard() Logger { return NewWriter(io.Discard) }

func (s *slogLogger) Infof(format string, v ...any) {
	s.l.Log(context.Background(), slog.LevelInfo, fmt.Sprintf(format, v...))
}

func (s *slogLogger) Errorf(format string, v ...any) {
	s.l.Log(context.Background(), slog.LevelError, fmt.Sprintf(format, v...))
}
