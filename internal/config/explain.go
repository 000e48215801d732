package config

import (
	"fmt"
	"strings"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths include:
//
//	scan_interval
//	search_delay
//	max_history
//	foreground_poll
//	max_results
//	exclude_classes
//	hotkeys
//	hotkeys.<action>
//	display.show_process
//	logging.level
//	tag_db
//	saved_windows
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}
	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	parts := strings.Split(path, ".")
	leaf := func() error {
		if len(parts) != 1 {
			return fmt.Errorf("%s has no children", parts[0])
		}
		return nil
	}

	switch parts[0] {
	case "scan_interval":
		return cfg.ScanInterval, leaf()
	case "search_delay":
		return cfg.SearchDelay, leaf()
	case "max_history":
		return cfg.MaxHistory, leaf()
	case "foreground_poll":
		return cfg.ForegroundPoll, leaf()
	case "max_results":
		return cfg.MaxResults, leaf()
	case "exclude_classes":
		return cfg.ExcludeClasses, leaf()
	case "tag_db":
		return cfg.TagDB, leaf()
	case "saved_windows":
		return cfg.SavedWindows, leaf()
	case "hotkeys":
		if len(parts) == 1 {
			return cfg.Hotkeys, nil
		}
		if len(parts) != 2 {
			return nil, fmt.Errorf("unsupported path %q", path)
		}
		seq, ok := cfg.Hotkeys[parts[1]]
		if !ok {
			return nil, fmt.Errorf("unknown hotkey action %q", parts[1])
		}
		return seq, nil
	case "display":
		if len(parts) != 2 {
			return cfg.Display, nil
		}
		switch parts[1] {
		case "show_process":
			return cfg.Display.ShowProcess, nil
		case "show_desktop":
			return cfg.Display.ShowDesktop, nil
		case "show_icon":
			return cfg.Display.ShowIcon, nil
		}
	case "logging":
		if len(parts) != 2 {
			return cfg.Logging, nil
		}
		switch parts[1] {
		case "level":
			return cfg.Logging.Level, nil
		case "format":
			return cfg.Logging.Format, nil
		case "file":
			return cfg.Logging.File, nil
		}
	}
	return nil, fmt.Errorf("unsupported path %q", path)
}
