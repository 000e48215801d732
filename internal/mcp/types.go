package mcp

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct {
	Process string `json:"process,omitempty" jsonschema:"Only return windows whose process name contains this text (case-insensitive)"`
}

// WindowInfo describes one indexed window.
type WindowInfo struct {
	Handle      uint64 `json:"handle"`
	Title       string `json:"title"`
	ProcessName string `json:"process_name"`
	DesktopID   string `json:"desktop_id,omitempty"`
	Minimized   bool   `json:"minimized"`
	Tags        string `json:"tags,omitempty"`
	// LastActive is RFC 3339; empty when the window was never active.
	LastActive string `json:"last_active,omitempty"`
	MatchCount int    `json:"match_count,omitempty"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []WindowInfo `json:"windows"`
}

// SearchWindowsInput is the input for the search_windows tool.
type SearchWindowsInput struct {
	Query string `json:"query" jsonschema:"Space-separated keywords. Each keyword matches titles and tags literally or by pinyin."`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default: max_results from config)"`
}

// SearchWindowsOutput is the output for the search_windows tool.
type SearchWindowsOutput struct {
	Query   string       `json:"query"`
	Results []WindowInfo `json:"results"`
}

// HandleInput selects a window by handle.
type HandleInput struct {
	Handle uint64 `json:"handle" jsonschema:"Window handle as returned by list_windows or search_windows"`
}

// ActivateOutput reports whether a window reached the foreground.
type ActivateOutput struct {
	Handle    uint64 `json:"handle"`
	Activated bool   `json:"activated"`
}

// SetTagsInput is the input for the set_window_tags tool.
type SetTagsInput struct {
	Handle uint64 `json:"handle" jsonschema:"Window handle"`
	Tags   string `json:"tags" jsonschema:"Space-separated tags. An empty string removes all tags."`
}

// SetTagsOutput is the output for the set_window_tags tool.
type SetTagsOutput struct {
	Handle uint64 `json:"handle"`
	Tags   string `json:"tags"`
}

// HistoryInput is the input for the get_history tool.
type HistoryInput struct{}

// HistoryItem is one activation history entry.
type HistoryItem struct {
	Index       int    `json:"index"`
	Handle      uint64 `json:"handle"`
	Title       string `json:"title,omitempty"`
	ProcessName string `json:"process_name,omitempty"`
	Current     bool   `json:"current"`
	Alive       bool   `json:"alive"`
}

// HistoryOutput is the output for the get_history tool.
type HistoryOutput struct {
	Cursor  int           `json:"cursor"`
	Entries []HistoryItem `json:"entries"`
}

// JumpInput is the input for the history_back and history_forward tools.
type JumpInput struct{}

// JumpOutput reports the outcome of a history jump.
type JumpOutput struct {
	Moved  bool `json:"moved"`
	Cursor int  `json:"cursor"`
}

// PinnedInput is the input for the list_pinned tool.
type PinnedInput struct{}

// PinnedInfo describes one pinned window.
type PinnedInfo struct {
	Handle  uint64 `json:"handle"`
	Title   string `json:"title"`
	Process string `json:"process,omitempty"`
	Hotkey  string `json:"hotkey,omitempty"`
	Hidden  bool   `json:"hidden"`
	Topmost bool   `json:"topmost"`
}

// PinnedOutput is the output for the list_pinned tool.
type PinnedOutput struct {
	Windows []PinnedInfo `json:"windows"`
}

// TogglePinnedOutput is the output for the toggle_pinned tool.
type TogglePinnedOutput struct {
	Handle uint64 `json:"handle"`
	Hidden bool   `json:"hidden"`
}
