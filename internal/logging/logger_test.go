// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package logging

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	clog "github.com/charmbracelet/log"
)

// TestLoggingHelpers_WriteToBuffer swaps in a buffer-backed logger and
// checks every helper reaches it.
func TestLoggingHelpers_WriteToBuffer(t *testing.T) {
	var buf bytes.Buffer
	l := clog.New(&buf)
	l.SetLevel(clog.DebugLevel)
	prev := SetDefault(l)
	defer SetDefault(prev)

	Debugf("hello %s", "dbg")
	Infof("info %d", 1)
	Warnf("warn")
	Errorf("err %v", "E")

	out := buf.String()
	for _, want := range []string{"hello dbg", "info 1", "warn", "err E"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output; got: %s", want, out)
		}
	}
}

func TestSettingsFromEnv_Defaults(t *testing.T) {
	s, err := SettingsFromEnv(map[string]string{})
	if err != nil {
		t.Fatalf("SettingsFromEnv: %v", err)
	}
	if s.Level != "info" || s.Format != "text" || s.File != "" {
		t.Fatalf("unexpected defaults: %+v", s)
	}
}

func TestNew_FileSinkAndRestore(t *testing.T) {
	prev := Default()
	path := filepath.Join(t.TempDir(), "core.log")

	lg, err := New("test", Settings{Level: "debug", File: path, Format: "logfmt"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if Default() != lg.Logger {
		t.Fatalf("New should install the package logger")
	}
	Debugf("subsystem %s ready", "filesystem")
	if err := lg.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if Default() != prev {
		t.Fatalf("Close should restore the previous logger")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "subsystem filesystem ready") {
		t.Fatalf("log file missing message: %s", data)
	}
}

func TestNew_RejectsBadSettings(t *testing.T) {
	if _, err := New("test", Settings{Level: "loud"}); err == nil {
		t.Fatalf("expected error for invalid level")
	}
	if _, err := New("test", Settings{Level: "info", Format: "xml"}); err == nil {
		t.Fatalf("expected error for invalid format")
	}
}

func TestHelpersDuringReplacement(t *testing.T) {
	prev := SetDefault(clog.New(io.Discard))
	defer SetDefault(prev)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			Infof("message %d", i)
			SetDebug(i%2 == 0)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			lg, err := New("race", Settings{Level: "info", Format: "text"})
			if err != nil {
				t.Errorf("New: %v", err)
				return
			}
			lg.SetOutput(io.Discard)
			if err := lg.Close(); err != nil {
				t.Errorf("Close: %v", err)
				return
			}
		}
	}()
	wg.Wait()
}
