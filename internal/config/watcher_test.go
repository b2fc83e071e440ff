package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestWatcher_InitialLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "server:\n  listen_addr: \":7000\"\n")

	w, err := NewWatcher(path, nil, WithInterval(time.Hour))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	if got := w.Current().Server.ListenAddr; got != ":7000" {
		t.Fatalf("ListenAddr = %q", got)
	}
}

func TestWatcher_InitialLoadFailsOnInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "server:\n  log_level: loud\n")

	if _, err := NewWatcher(path, nil); err == nil {
		t.Fatal("expected error for invalid initial config")
	}
}

func TestWatcher_ReloadOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "answer:\n  default_length: short\n")

	var (
		mu       sync.Mutex
		reloaded *Config
	)
	w, err := NewWatcher(path, func(_, new *Config) {
		mu.Lock()
		reloaded = new
		mu.Unlock()
	}, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	// Ensure the mtime moves even on coarse-grained filesystems.
	time.Sleep(20 * time.Millisecond)
	writeConfig(t, path, "answer:\n  default_length: long\n")
	now := time.Now()
	_ = os.Chtimes(path, now, now)

	deadline := time.After(3 * time.Second)
	for {
		mu.Lock()
		got := reloaded
		mu.Unlock()
		if got != nil {
			if got.Answer.DefaultLength != AnswerLong {
				t.Fatalf("reloaded DefaultLength = %q", got.Answer.DefaultLength)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for reload callback")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestWatcher_KeepsOldConfigOnInvalidEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "server:\n  log_level: info\n")

	w, err := NewWatcher(path, nil, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	time.Sleep(20 * time.Millisecond)
	writeConfig(t, path, "server:\n  log_level: loud\n")
	now := time.Now()
	_ = os.Chtimes(path, now, now)

	time.Sleep(100 * time.Millisecond)
	if got := w.Current().Server.LogLevel; got != LogInfo {
		t.Fatalf("LogLevel = %q, want info after invalid edit", got)
	}
}
