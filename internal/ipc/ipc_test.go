package ipc

import (
	"bufio"
	"errors"
	"net"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashtoggle/flashtoggle/internal/pinned"
	"github.com/flashtoggle/flashtoggle/internal/platform"
	"github.com/flashtoggle/flashtoggle/internal/search"
	"github.com/flashtoggle/flashtoggle/internal/window"
)

type fakeService struct {
	mu        sync.Mutex
	activated []platform.Handle
	tags      map[platform.Handle]string
	cleared   bool
	reloadErr error
	panicList bool
}

func newFakeService() *fakeService {
	return &fakeService{tags: make(map[platform.Handle]string)}
}

func (f *fakeService) Status() StatusData {
	return StatusData{InstanceID: "test", WindowCount: 2, DaemonRunning: true}
}

func (f *fakeService) Reload() error { return f.reloadErr }

func (f *fakeService) tagsOf(h platform.Handle) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tags[h]
}

func (f *fakeService) wasCleared() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cleared
}

func (f *fakeService) List() []window.Record {
	f.mu.Lock()
	panicking := f.panicList
	f.mu.Unlock()
	if panicking {
		panic("list exploded")
	}
	return []window.Record{
		{Handle: 0x10, Title: "README - 记事本", ProcessName: "notepad.exe"},
		{Handle: 0x20, Title: "Inbox", ProcessName: "mail.exe"},
	}
}

func (f *fakeService) Search(query string, limit int) []search.Result {
	if query == "" {
		return []search.Result{}
	}
	return []search.Result{{Record: window.Record{Handle: 0x10, Title: query}, MatchCount: limit}}
}

func (f *fakeService) Activate(h platform.Handle) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activated = append(f.activated, h)
	return h == 0x10
}

func (f *fakeService) SetTags(h platform.Handle, tags string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h != 0x10 {
		return errors.New("unknown window")
	}
	f.tags[h] = tags
	return nil
}

func (f *fakeService) History() HistoryData {
	return HistoryData{Entries: []HistoryEntry{{Index: 0, Handle: 0x10, Current: true, Alive: true}}, Cursor: 0}
}

func (f *fakeService) JumpToPrevious() bool { return false }
func (f *fakeService) JumpToNext() bool     { return true }

func (f *fakeService) ClearHistory() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = true
}

func (f *fakeService) RemoveHistory(h platform.Handle) bool { return h == 0x10 }
func (f *fakeService) JumpToHistory(i int) bool             { return i == 0 }

func (f *fakeService) PinList() []pinned.Window {
	return []pinned.Window{{Handle: 0x10, Title: "Notes", Hotkey: "ctrl+alt+n"}}
}

func (f *fakeService) PinCapture() (pinned.Window, error) {
	return pinned.Window{}, pinned.ErrNoForeground
}

func (f *fakeService) PinToggle(h platform.Handle) (bool, error) {
	if h != 0x10 {
		return false, pinned.ErrNotPinned
	}
	return true, nil
}

func (f *fakeService) PinTopmost(h platform.Handle) (platform.Handle, bool, error) {
	if h == 0 {
		h = 0x30
	}
	return h, true, nil
}

func (f *fakeService) PinHotkey(h platform.Handle, hotkey string) error { return nil }
func (f *fakeService) PinRelease(h platform.Handle) bool                { return h == 0x10 }

func startServer(t *testing.T, svc Service) *Client {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ft.sock")
	srv := NewServer(path, svc, nil)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)
	return NewClient(path)
}

func TestClientServerRoundTrip(t *testing.T) {
	svc := newFakeService()
	c := startServer(t, svc)

	require.NoError(t, c.Ping())

	status, err := c.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "test", status.InstanceID)
	assert.True(t, status.DaemonRunning)

	windows, err := c.List()
	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.Equal(t, "README - 记事本", windows[0].Title)
	assert.Equal(t, platform.Handle(0x20), windows[1].Handle)

	res, err := c.Search("mail", 7)
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, 7, res.Results[0].MatchCount)

	ok, err := c.Activate(0x10)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = c.Activate(0x20)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetTags(0x10, "docs"))
	assert.Equal(t, "docs", svc.tagsOf(0x10))
	assert.ErrorContains(t, c.SetTags(0x99, "x"), "unknown window")
}

func TestClientServerHistoryAndPins(t *testing.T) {
	svc := newFakeService()
	c := startServer(t, svc)

	hist, err := c.History()
	require.NoError(t, err)
	assert.Equal(t, 0, hist.Cursor)
	require.Len(t, hist.Entries, 1)

	ok, err := c.Back()
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = c.Forward()
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.ClearHistory())
	assert.True(t, svc.wasCleared())

	ok, err = c.RemoveHistory(0x10)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = c.JumpToHistory(0)
	require.NoError(t, err)
	assert.True(t, ok)

	pins, err := c.PinList()
	require.NoError(t, err)
	assert.Equal(t, "ctrl+alt+n", pins[0].Hotkey)

	_, err = c.PinCapture()
	assert.ErrorContains(t, err, "no foreground window")

	hidden, err := c.PinToggle(0x10)
	require.NoError(t, err)
	assert.True(t, hidden)

	top, err := c.PinTopmost(0)
	require.NoError(t, err)
	assert.Equal(t, platform.Handle(0x30), top.Handle)
	assert.True(t, top.State)

	require.NoError(t, c.PinHotkey(0x10, "ctrl+alt+m"))
	ok, err = c.PinRelease(0x10)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestServerErrors(t *testing.T) {
	svc := newFakeService()
	svc.reloadErr = errors.New("bad yaml")
	c := startServer(t, svc)

	assert.ErrorContains(t, c.Reload(), "bad yaml")

	_, err := c.Activate(0)
	assert.ErrorContains(t, err, "handle is required")

	err = c.call(CommandType("NOPE"), nil, nil)
	assert.ErrorContains(t, err, "Unknown command")

	err = c.call(CommandSearch, nil, nil)
	assert.ErrorContains(t, err, "missing payload")

	svc.mu.Lock()
	svc.panicList = true
	svc.mu.Unlock()
	_, err = c.List()
	assert.ErrorContains(t, err, "internal error")
	require.NoError(t, c.Ping(), "server survives handler panics")
}

func TestServerRejectsMalformedRequest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ft.sock")
	srv := NewServer(path, newFakeService(), nil)
	require.NoError(t, srv.Start())
	defer srv.Stop()

	conn, err := net.Dial("unix", path)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("{not json\n"))
	require.NoError(t, err)
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, `"status":"ERROR"`)
}

func TestClientWithoutDaemon(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "missing.sock"))
	assert.ErrorContains(t, c.Ping(), "is the daemon running?")
}
