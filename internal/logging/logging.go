// Package logging wraps the standard library's *log.Logger with a few
// leveled helpers, matching the thin-wrapper style the teacher applies
// to its control-plane facilities rather than pulling in a structured
// logging framework.
package logging

import (
	"log"
	"os"
)

// Logger is a small leveled facade over *log.Logger.
type Logger struct {
	std *log.Logger
}

// New creates a Logger writing to stderr with the given component
// prefix, e.g. New("service[tcp:9000]").
func New(prefix string) *Logger {
	return &Logger{std: log.New(os.Stderr, prefix+" ", log.LstdFlags)}
}

func (l *Logger) Infof(format string, args ...any) {
	l.std.Printf("INFO "+format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.std.Printf("WARN "+format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.std.Printf("ERROR "+format, args...)
}
