// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package logging provides the process logger. The registry builds it before
// any other subsystem, so its settings come from the environment only.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/caarlos0/env/v11"
	clog "github.com/charmbracelet/log"
)

// current is the package-level logger. A live Logger subsystem replaces it
// for its lifetime.
var current atomic.Pointer[clog.Logger]

// mu orders New and Close so the previous logger chain stays consistent.
var mu sync.Mutex

func init() { current.Store(clog.New(os.Stderr)) }

// Default returns the package-level logger.
func Default() *clog.Logger { return current.Load() }

// SetDefault installs l as the package-level logger and returns the one it
// replaced.
func SetDefault(l *clog.Logger) *clog.Logger { return current.Swap(l) }

// Settings configures the logger subsystem.
type Settings struct {
	Level  string `env:"KMREMOTE_LOG_LEVEL" envDefault:"info"`
	File   string `env:"KMREMOTE_LOG_FILE"`
	Format string `env:"KMREMOTE_LOG_FORMAT" envDefault:"text"`
}

// SettingsFromEnv parses Settings from environ, or from the process
// environment when environ is nil.
func SettingsFromEnv(environ map[string]string) (Settings, error) {
	var s Settings
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&s, opts); err != nil {
		return s, fmt.Errorf("parse log settings: %w", err)
	}
	return s, nil
}

// Logger is the logger subsystem owned by the core registry.
type Logger struct {
	*clog.Logger
	file io.Closer
	prev *clog.Logger
}

// New builds a logger for component and installs it as the package logger.
func New(component string, s Settings) (*Logger, error) {
	level, err := clog.ParseLevel(s.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", s.Level, err)
	}

	var w io.Writer = os.Stderr
	var file io.Closer
	if s.File != "" {
		f, err := os.OpenFile(s.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		w, file = f, f
	}

	l := clog.NewWithOptions(w, clog.Options{
		Prefix:          component,
		ReportTimestamp: true,
		Level:           level,
	})
	switch strings.ToLower(s.Format) {
	case "", "text":
	case "json":
		l.SetFormatter(clog.JSONFormatter)
	case "logfmt":
		l.SetFormatter(clog.LogfmtFormatter)
	default:
		if file != nil {
			_ = file.Close()
		}
		return nil, fmt.Errorf("invalid log format %q", s.Format)
	}

	mu.Lock()
	defer mu.Unlock()
	return &Logger{Logger: l, file: file, prev: current.Swap(l)}, nil
}

// Close restores the previous package logger and closes the file sink.
func (l *Logger) Close() error {
	mu.Lock()
	current.CompareAndSwap(l.Logger, l.prev)
	mu.Unlock()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// SetDebug switches the package logger between debug and info level.
func SetDebug(enabled bool) {
	if enabled {
		Default().SetLevel(clog.DebugLevel)
		return
	}
	Default().SetLevel(clog.InfoLevel)
}

// Debugf logs a debug-level formatted message.
func Debugf(format string, v ...any) {
	Default().Debug(fmt.Sprintf(format, v...))
}

// Infof logs an info-level formatted message.
func Infof(format string, v ...any) {
	Default().Info(fmt.Sprintf(format, v...))
}

// Warnf logs a warning-level formatted message.
func Warnf(format string, v ...any) {
	Default().Warn(fmt.Sprintf(format, v...))
}

// Errorf logs an error-level formatted message.
func Errorf(format string, v ...any) {
	Default().Error(fmt.Sprintf(format, v...))
}
