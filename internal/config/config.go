package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flashtoggle/flashtoggle/internal/hotkeys"
)

// DisplayConfig controls which columns the search picker shows.
type DisplayConfig struct {
	ShowProcess bool `yaml:"show_process"`
	ShowDesktop bool `yaml:"show_desktop"`
	ShowIcon    bool `yaml:"show_icon"`
}

// LoggingConfig configures the daemon logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warning, error
	Format string `yaml:"format"` // text or json
	// File receives log output in addition to stderr when set.
	File      string `yaml:"file,omitempty"`
	MaxSizeMB int    `yaml:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files"`
}

// SavedWindow is a pinned window that is re-pinned by title on startup.
type SavedWindow struct {
	Title   string `yaml:"title"`
	Process string `yaml:"process,omitempty"`
	Hotkey  string `yaml:"hotkey,omitempty"`
	Topmost bool   `yaml:"topmost,omitempty"`
}

// Config represents the daemon configuration.
type Config struct {
	// ScanInterval is the window index refresh period in seconds.
	ScanInterval float64 `yaml:"scan_interval"`
	// SearchDelay debounces search-as-you-type, in milliseconds.
	SearchDelay int `yaml:"search_delay"`
	MaxHistory  int `yaml:"max_history"`
	// ForegroundPoll is the foreground watcher period in milliseconds.
	ForegroundPoll int `yaml:"foreground_poll"`
	MaxResults     int `yaml:"max_results"`

	// ExcludeClasses extends the built-in list of ignored window classes.
	ExcludeClasses []string `yaml:"exclude_classes,omitempty"`

	// Hotkeys maps action names to key sequences. An empty sequence
	// disables the action.
	Hotkeys map[string]string `yaml:"hotkeys"`

	Display DisplayConfig `yaml:"display"`
	Logging LoggingConfig `yaml:"logging"`

	// TagDB is the tag database path; empty selects the default location.
	TagDB string `yaml:"tag_db,omitempty"`

	SavedWindows []SavedWindow `yaml:"saved_windows,omitempty"`
}

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() *Config {
	return &Config{
		ScanInterval:   2.0,
		SearchDelay:    100,
		MaxHistory:     50,
		ForegroundPoll: 250,
		MaxResults:     50,
		Hotkeys: map[string]string{
			hotkeys.ActionToggleSearch:  "ctrl+shift+space",
			hotkeys.ActionJumpPrevious:  "ctrl+alt+left",
			hotkeys.ActionJumpNext:      "ctrl+alt+right",
			hotkeys.ActionCaptureWindow: "ctrl+shift+c",
			hotkeys.ActionToggleTopmost: "ctrl+shift+t",
			hotkeys.ActionClearPinned:   "",
		},
		Display: DisplayConfig{
			ShowProcess: true,
			ShowDesktop: true,
			ShowIcon:    true,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			MaxSizeMB: 10,
			MaxFiles:  3,
		},
	}
}

// ScanPeriod returns ScanInterval as a duration.
func (c *Config) ScanPeriod() time.Duration {
	return time.Duration(c.ScanInterval * float64(time.Second))
}

// SearchDebounce returns SearchDelay as a duration.
func (c *Config) SearchDebounce() time.Duration {
	return time.Duration(c.SearchDelay) * time.Millisecond
}

// ForegroundPeriod returns ForegroundPoll as a duration.
func (c *Config) ForegroundPeriod() time.Duration {
	return time.Duration(c.ForegroundPoll) * time.Millisecond
}

// TagDBPath resolves the tag database location.
func (c *Config) TagDBPath() (string, error) {
	if c.TagDB != "" {
		return c.TagDB, nil
	}
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "tags.db"), nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.ExcludeClasses = append([]string(nil), c.ExcludeClasses...)
	out.SavedWindows = append([]SavedWindow(nil), c.SavedWindows...)
	out.Hotkeys = make(map[string]string, len(c.Hotkeys))
	for k, v := range c.Hotkeys {
		out.Hotkeys[k] = v
	}
	return &out
}

// SaveToPath validates and writes the configuration to path.
func (c *Config) SaveToPath(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.ScanInterval <= 0 || c.ScanInterval > 60 {
		return &ValidationError{Path: "scan_interval", Err: fmt.Errorf("scan_interval must be in (0, 60] seconds")}
	}
	if c.SearchDelay < 0 || c.SearchDelay > 1000 {
		return &ValidationError{Path: "search_delay", Err: fmt.Errorf("search_delay must be between 0 and 1000 ms")}
	}
	if c.MaxHistory <= 0 {
		return &ValidationError{Path: "max_history", Err: fmt.Errorf("max_history must be > 0")}
	}
	if c.ForegroundPoll < 50 {
		return &ValidationError{Path: "foreground_poll", Err: fmt.Errorf("foreground_poll must be >= 50 ms")}
	}
	if c.MaxResults <= 0 {
		return &ValidationError{Path: "max_results", Err: fmt.Errorf("max_results must be > 0")}
	}

	seen := make(map[string]string)
	for action, seq := range c.Hotkeys {
		if strings.TrimSpace(seq) == "" {
			continue
		}
		hk, err := hotkeys.Parse(seq)
		if err != nil {
			return &ValidationError{Path: "hotkeys." + action, Err: err}
		}
		if other, ok := seen[hk.String()]; ok {
			return &ValidationError{Path: "hotkeys." + action, Err: fmt.Errorf("%s is already bound to %s", hk, other)}
		}
		seen[hk.String()] = action
	}
	for i, w := range c.SavedWindows {
		path := fmt.Sprintf("saved_windows[%d]", i)
		if strings.TrimSpace(w.Title) == "" {
			return &ValidationError{Path: path + ".title", Err: fmt.Errorf("title must not be empty")}
		}
		if w.Hotkey == "" {
			continue
		}
		hk, err := hotkeys.Parse(w.Hotkey)
		if err != nil {
			return &ValidationError{Path: path + ".hotkey", Err: err}
		}
		if other, ok := seen[hk.String()]; ok {
			return &ValidationError{Path: path + ".hotkey", Err: fmt.Errorf("%s is already bound to %s", hk, other)}
		}
		seen[hk.String()] = w.Title
	}

	switch c.Logging.Level {
	case "debug", "info", "warning", "error":
	default:
		return &ValidationError{Path: "logging.level", Err: fmt.Errorf("level must be one of: debug, info, warning, error")}
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return &ValidationError{Path: "logging.format", Err: fmt.Errorf("format must be one of: text, json")}
	}
	if c.Logging.MaxSizeMB <= 0 {
		return &ValidationError{Path: "logging.max_size_mb", Err: fmt.Errorf("max_size_mb must be > 0")}
	}
	if c.Logging.MaxFiles < 0 {
		return &ValidationError{Path: "logging.max_files", Err: fmt.Errorf("max_files must be >= 0")}
	}
	return nil
}
