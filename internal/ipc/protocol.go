package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/flashtoggle/flashtoggle/internal/pinned"
	"github.com/flashtoggle/flashtoggle/internal/platform"
	"github.com/flashtoggle/flashtoggle/internal/search"
	"github.com/flashtoggle/flashtoggle/internal/window"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandPing           CommandType = "PING"
	CommandGetStatus      CommandType = "GET_STATUS"
	CommandReload         CommandType = "RELOAD"
	CommandList           CommandType = "LIST"
	CommandSearch         CommandType = "SEARCH"
	CommandActivate       CommandType = "ACTIVATE"
	CommandSetTags        CommandType = "SET_TAGS"
	CommandHistory        CommandType = "HISTORY"
	CommandHistoryBack    CommandType = "HISTORY_BACK"
	CommandHistoryForward CommandType = "HISTORY_FORWARD"
	CommandHistoryClear   CommandType = "HISTORY_CLEAR"
	CommandHistoryRemove  CommandType = "HISTORY_REMOVE"
	CommandHistoryJump    CommandType = "HISTORY_JUMP"
	CommandPinList        CommandType = "PIN_LIST"
	CommandPinCapture     CommandType = "PIN_CAPTURE"
	CommandPinToggle      CommandType = "PIN_TOGGLE"
	CommandPinTopmost     CommandType = "PIN_TOPMOST"
	CommandPinHotkey      CommandType = "PIN_HOTKEY"
	CommandPinRelease     CommandType = "PIN_RELEASE"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	InstanceID    string   `json:"instance_id"`
	WindowCount   int      `json:"window_count"`
	HistoryLength int      `json:"history_length"`
	HistoryCursor int      `json:"history_cursor"`
	PinnedCount   int      `json:"pinned_count"`
	Hotkeys       []string `json:"hotkeys"`
	DesktopBridge bool     `json:"desktop_bridge"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	DaemonRunning bool     `json:"daemon_running"`
}

// WindowsData is returned by LIST.
type WindowsData struct {
	Windows []window.Record `json:"windows"`
}

// SearchData is returned by SEARCH, ranked.
type SearchData struct {
	Query   string          `json:"query"`
	Results []search.Result `json:"results"`
}

// HistoryEntry is one history slot as shown to clients.
type HistoryEntry struct {
	Index       int             `json:"index"`
	Handle      platform.Handle `json:"handle"`
	Title       string          `json:"title"`
	ProcessName string          `json:"process_name"`
	Current     bool            `json:"current"`
	Alive       bool            `json:"alive"`
}

// HistoryData is returned by HISTORY.
type HistoryData struct {
	Entries []HistoryEntry `json:"entries"`
	Cursor  int            `json:"cursor"`
}

// ResultData reports the outcome of an action that can fail without error.
type ResultData struct {
	OK     bool            `json:"ok"`
	Handle platform.Handle `json:"handle,omitempty"`
}

// PinnedData is returned by PIN_LIST.
type PinnedData struct {
	Windows []pinned.Window `json:"windows"`
}

// ToggleData reports the new state of a toggled window.
type ToggleData struct {
	Handle platform.Handle `json:"handle"`
	State  bool            `json:"state"`
}

type SearchPayload struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type HandlePayload struct {
	Handle platform.Handle `json:"handle"`
}

type SetTagsPayload struct {
	Handle platform.Handle `json:"handle"`
	Tags   string          `json:"tags"`
}

type HistoryJumpPayload struct {
	Index int `json:"index"`
}

type PinHotkeyPayload struct {
	Handle platform.Handle `json:"handle"`
	Hotkey string          `json:"hotkey"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
