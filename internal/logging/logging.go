// Package logging builds the leveled loggers shared by kelas components.
// The dashboard owns the terminal, so logs go to a file or nowhere.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/gommon/log"
)

// header is the per-line prefix: timestamp, level, component.
const header = "${time_rfc3339} ${level} ${prefix}"

// New returns a logger for component that writes to w at the given level.
func New(component string, w io.Writer, level log.Lvl) *log.Logger {
	l := log.New(component)
	l.SetHeader(header)
	l.SetOutput(w)
	l.SetLevel(level)
	return l
}

// Discard returns a logger for component that drops everything.
func Discard(component string) *log.Logger {
	return New(component, io.Discard, log.OFF)
}

// ParseLevel maps a config level name to a gommon level.
// Accepted names: debug, info, warn, error, off.
func ParseLevel(name string) (log.Lvl, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return log.DEBUG, nil
	case "info":
		return log.INFO, nil
	case "", "warn", "warning":
		return log.WARN, nil
	case "error":
		return log.ERROR, nil
	case "off", "none":
		return log.OFF, nil
	default:
		return log.OFF, fmt.Errorf("logging: unknown level %q", name)
	}
}

// Open opens path for appending, creating parent directories.
// An empty path yields io.Discard and a no-op closer.
func Open(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{io.Discard}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logging: creating directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: opening %s: %w", path, err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
