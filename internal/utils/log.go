// Package utils
package utils

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	logger zerolog.Logger
	once   sync.Once
	mu     sync.Mutex
)

// NewLogger builds a timestamped logger writing to w. Unknown levels fall back to info.
func NewLogger(level string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}

// Configure replaces the process-wide logger. An empty file logs to stderr.
func Configure(level, file string) error {
	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	if file != "" {
		f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		w = f
	}
	l := NewLogger(level, w)
	once.Do(func() {})
	mu.Lock()
	logger = l
	mu.Unlock()
	return nil
}

// SetLogger installs l as the process-wide logger. Tests use it to capture output.
func SetLogger(l zerolog.Logger) {
	once.Do(func() {})
	mu.Lock()
	logger = l
	mu.Unlock()
}

func GetLogger() zerolog.Logger {
	once.Do(func() {
		logger = NewLogger("info", zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	})
	mu.Lock()
	defer mu.Unlock()
	return logger
}
