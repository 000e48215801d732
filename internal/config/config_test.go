package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flashtoggle/flashtoggle/internal/hotkeys"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.ScanPeriod() != 2*time.Second {
		t.Fatalf("expected 2s scan period, got %s", cfg.ScanPeriod())
	}
	if cfg.SearchDebounce() != 100*time.Millisecond {
		t.Fatalf("expected 100ms search delay, got %s", cfg.SearchDebounce())
	}
	if cfg.MaxHistory != 50 {
		t.Fatalf("expected max_history 50, got %d", cfg.MaxHistory)
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.ScanInterval != 2.0 {
		t.Fatalf("expected default scan_interval, got %v", res.Config.ScanInterval)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(writeConfig(t, "# empty\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !res.Config.Display.ShowProcess {
		t.Fatalf("expected show_process default true")
	}
}

func TestLoadFromPath_PartialOverridesKeepDefaults(t *testing.T) {
	path := writeConfig(t, strings.Join([]string{
		"scan_interval: 0.5",
		"hotkeys:",
		"  jump_previous: win+alt+left",
		"display:",
		"  show_icon: false",
		"",
	}, "\n"))

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.ScanPeriod() != 500*time.Millisecond {
		t.Fatalf("expected 500ms, got %s", cfg.ScanPeriod())
	}
	if cfg.Hotkeys[hotkeys.ActionJumpPrevious] != "win+alt+left" {
		t.Fatalf("override lost: %q", cfg.Hotkeys[hotkeys.ActionJumpPrevious])
	}
	if cfg.Hotkeys[hotkeys.ActionJumpNext] != "ctrl+alt+right" {
		t.Fatalf("default hotkey lost: %q", cfg.Hotkeys[hotkeys.ActionJumpNext])
	}
	if cfg.Display.ShowIcon || !cfg.Display.ShowDesktop {
		t.Fatalf("unexpected display config %+v", cfg.Display)
	}
}

func TestLoadFromPath_StrictUnknownKeyErrors(t *testing.T) {
	path := writeConfig(t, "unknown_key: 1\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), path) {
		t.Fatalf("expected error to include file path, got %v", err)
	}
}

func TestLoadFromPath_ValidationErrorHasSourceLine(t *testing.T) {
	path := writeConfig(t, "search_delay: 100\nscan_interval: -1\n")

	_, err := LoadFromPath(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Path != "scan_interval" || verr.Source.Line != 2 {
		t.Fatalf("unexpected error context: %+v", verr)
	}
	if !strings.Contains(err.Error(), path+":2:") {
		t.Fatalf("expected file:line prefix, got %v", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"zero scan interval", func(c *Config) { c.ScanInterval = 0 }, "scan_interval"},
		{"negative search delay", func(c *Config) { c.SearchDelay = -1 }, "search_delay"},
		{"zero history", func(c *Config) { c.MaxHistory = 0 }, "max_history"},
		{"fast poll", func(c *Config) { c.ForegroundPoll = 10 }, "foreground_poll"},
		{"bad hotkey", func(c *Config) { c.Hotkeys[hotkeys.ActionJumpNext] = "ctrl+nope" }, "hotkeys.jump_next"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"untitled saved window", func(c *Config) { c.SavedWindows = []SavedWindow{{Title: " "}} }, "saved_windows[0].title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Path != tt.path {
				t.Fatalf("path = %q, want %q", verr.Path, tt.path)
			}
		})
	}
}

func TestValidate_DuplicateHotkey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SavedWindows = []SavedWindow{{Title: "Notes", Hotkey: "Ctrl+Alt+Left"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected duplicate binding error")
	}
}

func TestSaveToPath_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.SavedWindows = []SavedWindow{{Title: "记事本", Process: "notepad.exe", Hotkey: "ctrl+alt+n"}}

	if err := cfg.SaveToPath(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(res.Config.SavedWindows) != 1 || res.Config.SavedWindows[0].Title != "记事本" {
		t.Fatalf("saved windows lost: %+v", res.Config.SavedWindows)
	}
}

func TestExplain(t *testing.T) {
	path := writeConfig(t, "max_history: 20\n")
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	val, src, err := Explain(res, "max_history")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != 20 || src.Kind != SourceFile || src.Line != 1 {
		t.Fatalf("unexpected explain result %v %+v", val, src)
	}

	val, src, err = Explain(res, "hotkeys.jump_next")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != "ctrl+alt+right" || src.Kind != SourceDefault {
		t.Fatalf("unexpected explain result %v %+v", val, src)
	}

	if _, _, err := Explain(res, "max_history.child"); err == nil {
		t.Fatal("expected error for child of scalar")
	}
}

func TestLive_UpdateSavesAndNotifies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	live := NewLive(path, DefaultConfig(), nil)

	var notified atomic.Int32
	live.Subscribe(func(cfg *Config) {
		if cfg.MaxHistory == 10 {
			notified.Add(1)
		}
	})

	if err := live.Update(func(c *Config) { c.MaxHistory = 10 }); err != nil {
		t.Fatalf("update: %v", err)
	}
	if live.Get().MaxHistory != 10 || notified.Load() != 1 {
		t.Fatalf("update not published")
	}

	if err := live.Update(func(c *Config) { c.MaxHistory = -1 }); err == nil {
		t.Fatal("expected invalid update to fail")
	}
	if live.Get().MaxHistory != 10 {
		t.Fatal("invalid update replaced snapshot")
	}

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.MaxHistory != 10 {
		t.Fatalf("update not saved")
	}
}

func TestLive_ReloadKeepsPreviousOnError(t *testing.T) {
	path := writeConfig(t, "max_history: 5\n")
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	live := NewLive(path, res.Config, nil)

	if err := os.WriteFile(path, []byte("max_history: nope\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := live.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if live.Get().MaxHistory != 5 {
		t.Fatal("previous snapshot not kept")
	}

	if err := os.WriteFile(path, []byte("max_history: 7\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := live.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if live.Get().MaxHistory != 7 {
		t.Fatal("reload not applied")
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "max_history: 5\n")
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	live := NewLive(path, res.Config, nil)

	w, err := NewWatcher(live, nil)
	if err != nil {
		t.Fatalf("watcher: %v", err)
	}
	w.debounce = 10 * time.Millisecond
	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("max_history: 9\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if live.Get().MaxHistory == 9 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("config not reloaded, max_history=%d", live.Get().MaxHistory)
}
