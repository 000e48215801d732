package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/flashtoggle/flashtoggle/internal/pinned"
	"github.com/flashtoggle/flashtoggle/internal/platform"
	"github.com/flashtoggle/flashtoggle/internal/runtimepath"
	"github.com/flashtoggle/flashtoggle/internal/window"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for socketPath.
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// NewDefaultClient creates a client for runtimepath.SocketPath.
func NewDefaultClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClient(socketPath)
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

// call sends command with an optional payload and decodes the response data
// into out when out is non-nil.
func (c *Client) call(command CommandType, payload interface{}, out interface{}) error {
	req := &Request{Command: command}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", command, err)
		}
		req.Payload = data
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", command, err)
	}
	return nil
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	return c.call(CommandPing, nil, nil)
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.call(CommandGetStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Reload sends a RELOAD command to the daemon
func (c *Client) Reload() error {
	return c.call(CommandReload, nil, nil)
}

// List returns every indexed window.
func (c *Client) List() ([]window.Record, error) {
	var data WindowsData
	if err := c.call(CommandList, nil, &data); err != nil {
		return nil, err
	}
	return data.Windows, nil
}

// Search returns ranked results for query. limit <= 0 uses the daemon's
// max_results.
func (c *Client) Search(query string, limit int) (*SearchData, error) {
	var data SearchData
	if err := c.call(CommandSearch, SearchPayload{Query: query, Limit: limit}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Activate brings h to the foreground.
func (c *Client) Activate(h platform.Handle) (bool, error) {
	var data ResultData
	if err := c.call(CommandActivate, HandlePayload{Handle: h}, &data); err != nil {
		return false, err
	}
	return data.OK, nil
}

// SetTags replaces the tags of h.
func (c *Client) SetTags(h platform.Handle, tags string) error {
	return c.call(CommandSetTags, SetTagsPayload{Handle: h, Tags: tags}, nil)
}

// History returns the activation history.
func (c *Client) History() (*HistoryData, error) {
	var data HistoryData
	if err := c.call(CommandHistory, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Back jumps to the previous history entry.
func (c *Client) Back() (bool, error) {
	var data ResultData
	if err := c.call(CommandHistoryBack, nil, &data); err != nil {
		return false, err
	}
	return data.OK, nil
}

// Forward jumps to the next history entry.
func (c *Client) Forward() (bool, error) {
	var data ResultData
	if err := c.call(CommandHistoryForward, nil, &data); err != nil {
		return false, err
	}
	return data.OK, nil
}

// ClearHistory empties the history.
func (c *Client) ClearHistory() error {
	return c.call(CommandHistoryClear, nil, nil)
}

// RemoveHistory drops every history entry for h.
func (c *Client) RemoveHistory(h platform.Handle) (bool, error) {
	var data ResultData
	if err := c.call(CommandHistoryRemove, HandlePayload{Handle: h}, &data); err != nil {
		return false, err
	}
	return data.OK, nil
}

// JumpToHistory activates history entry i.
func (c *Client) JumpToHistory(i int) (bool, error) {
	var data ResultData
	if err := c.call(CommandHistoryJump, HistoryJumpPayload{Index: i}, &data); err != nil {
		return false, err
	}
	return data.OK, nil
}

// PinList returns the pinned windows.
func (c *Client) PinList() ([]pinned.Window, error) {
	var data PinnedData
	if err := c.call(CommandPinList, nil, &data); err != nil {
		return nil, err
	}
	return data.Windows, nil
}

// PinCapture pins the foreground window.
func (c *Client) PinCapture() (*pinned.Window, error) {
	var w pinned.Window
	if err := c.call(CommandPinCapture, nil, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// PinToggle hides or shows a pinned window and returns whether it is now
// hidden.
func (c *Client) PinToggle(h platform.Handle) (bool, error) {
	var data ToggleData
	if err := c.call(CommandPinToggle, HandlePayload{Handle: h}, &data); err != nil {
		return false, err
	}
	return data.State, nil
}

// PinTopmost toggles always-on-top for h, or the foreground window when h
// is 0.
func (c *Client) PinTopmost(h platform.Handle) (*ToggleData, error) {
	var data ToggleData
	if err := c.call(CommandPinTopmost, HandlePayload{Handle: h}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// PinHotkey binds hotkey to a pinned window. An empty hotkey unbinds.
func (c *Client) PinHotkey(h platform.Handle, hotkey string) error {
	return c.call(CommandPinHotkey, PinHotkeyPayload{Handle: h, Hotkey: hotkey}, nil)
}

// PinRelease unpins h.
func (c *Client) PinRelease(h platform.Handle) (bool, error) {
	var data ResultData
	if err := c.call(CommandPinRelease, HandlePayload{Handle: h}, &data); err != nil {
		return false, err
	}
	return data.OK, nil
}
