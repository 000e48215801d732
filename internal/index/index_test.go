package index

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashtoggle/flashtoggle/internal/desktop/desktoptest"
	"github.com/flashtoggle/flashtoggle/internal/enumerator"
	"github.com/flashtoggle/flashtoggle/internal/platform"
	"github.com/flashtoggle/flashtoggle/internal/platform/platformtest"
	"github.com/flashtoggle/flashtoggle/internal/search"
	"github.com/flashtoggle/flashtoggle/internal/window"
)

type fixture struct {
	backend *platformtest.Backend
	bridge  *desktoptest.Bridge
	clock   *clockwork.FakeClock
	index   *Index
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	b := platformtest.New()
	bridge := desktoptest.New("desk-1")
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	opts.Clock = clock
	ix := New(b, enumerator.New(b, nil, nil), bridge, search.NewEngine(), opts)
	return &fixture{backend: b, bridge: bridge, clock: clock, index: ix}
}

func handles(records []window.Record) []platform.Handle {
	out := make([]platform.Handle, 0, len(records))
	for _, r := range records {
		out = append(out, r.Handle)
	}
	return out
}

func TestScanAddsValidWindows(t *testing.T) {
	f := newFixture(t, Options{})
	f.backend.AddVisible(0x10, "README - 记事本", "notepad.exe")
	f.backend.AddVisible(0x20, "Inbox - Mail", "mail.exe")
	f.backend.Add(0x30, platformtest.Window{Title: "", Class: "X", Style: platform.StyleVisible})
	f.bridge.Place(0x20, "desk-2")

	stats := f.index.ScanNow()
	assert.Equal(t, 2, stats.Added)
	assert.Equal(t, []platform.Handle{0x10, 0x20}, handles(f.index.GetAll()))

	rec, ok := f.index.Get(0x20)
	require.True(t, ok)
	assert.Equal(t, "mail.exe", rec.ProcessName)
	assert.Equal(t, uint32(0x20+1000), rec.ProcessID)
	assert.Equal(t, "desk-2", rec.DesktopID)
	assert.True(t, rec.IsVisible)
	assert.Empty(t, rec.Tags)
	assert.False(t, rec.ActiveEver())
}

func TestScanStampsForegroundOnInsertOnly(t *testing.T) {
	f := newFixture(t, Options{})
	f.backend.AddVisible(0x10, "Editor", "code.exe")
	f.backend.Focus(0x10)

	f.index.ScanNow()
	rec, _ := f.index.Get(0x10)
	first := rec.LastActive
	assert.Equal(t, f.clock.Now(), first)

	f.clock.Advance(time.Minute)
	f.index.ScanNow()
	rec, _ = f.index.Get(0x10)
	assert.Equal(t, first, rec.LastActive, "rescans never touch last_active")
}

func TestScanPreservesTagsAndActivity(t *testing.T) {
	f := newFixture(t, Options{})
	f.backend.AddVisible(0x10, "Old title", "code.exe")
	f.index.ScanNow()

	require.True(t, f.index.UpdateTags(0x10, "work"))
	require.True(t, f.index.RecordActivity(0x10))
	activeAt := f.clock.Now()

	f.backend.SetTitle(0x10, "New title")
	f.backend.SetMinimized(0x10, true)
	f.clock.Advance(time.Second)
	stats := f.index.ScanNow()
	assert.Equal(t, 1, stats.Updated)

	rec, _ := f.index.Get(0x10)
	assert.Equal(t, "New title", rec.Title)
	assert.True(t, rec.IsMinimized)
	assert.Equal(t, "work", rec.Tags)
	assert.Equal(t, activeAt, rec.LastActive)
}

func TestScanRemovesClosedWindows(t *testing.T) {
	f := newFixture(t, Options{})
	f.backend.AddVisible(0x10, "A", "a.exe")
	f.backend.AddVisible(0x20, "B", "b.exe")
	f.index.ScanNow()

	f.backend.Remove(0x10)
	stats := f.index.ScanNow()
	assert.Equal(t, 1, stats.Removed)
	_, ok := f.index.Get(0x10)
	assert.False(t, ok)
	assert.False(t, f.index.UpdateTags(0x10, "x"))
	assert.False(t, f.index.RecordActivity(0x10))
}

func TestScanSkipsUnresolvedDesktop(t *testing.T) {
	f := newFixture(t, Options{})
	f.backend.AddVisible(0x10, "A", "a.exe")
	f.backend.AddVisible(0x20, "B", "b.exe")
	f.bridge.Fail(0x20, true)

	stats := f.index.ScanNow()
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, []platform.Handle{0x10}, handles(f.index.GetAll()))

	f.bridge.Fail(0x20, false)
	f.index.ScanNow()
	f.index.UpdateTags(0x20, "keep")

	// Known handles are kept but not refreshed while unresolved.
	f.bridge.Fail(0x20, true)
	f.backend.SetTitle(0x20, "B renamed")
	f.index.ScanNow()
	rec, ok := f.index.Get(0x20)
	require.True(t, ok)
	assert.Equal(t, "B", rec.Title)
	assert.Equal(t, "keep", rec.Tags)
}

func TestScanIsolatesPanickingWindow(t *testing.T) {
	f := newFixture(t, Options{})
	f.backend.AddVisible(0x10, "A", "a.exe")
	f.backend.Add(0x20, platformtest.Window{Title: "B", Class: "X", Style: platform.StyleVisible, PanicOnStyle: true})
	f.backend.AddVisible(0x30, "C", "c.exe")

	stats := f.index.ScanNow()
	assert.NoError(t, stats.Err)
	assert.Equal(t, []platform.Handle{0x10, 0x30}, handles(f.index.GetAll()))
}

func TestScanUnknownProcess(t *testing.T) {
	f := newFixture(t, Options{})
	f.backend.Add(0x10, platformtest.Window{
		Title: "Protected", Class: "X", Style: platform.StyleVisible, PID: 4,
		ProcessErr: errors.New("access denied"),
	})

	f.index.ScanNow()
	rec, ok := f.index.Get(0x10)
	require.True(t, ok)
	assert.Equal(t, window.UnknownProcess, rec.ProcessName)
}

func TestScanEnumerationFailureKeepsIndex(t *testing.T) {
	f := newFixture(t, Options{})
	f.backend.AddVisible(0x10, "A", "a.exe")
	f.index.ScanNow()

	f.backend.EnumErr = errors.New("boom")
	stats := f.index.ScanNow()
	assert.Error(t, stats.Err)
	assert.Equal(t, 1, f.index.Len())
}

func TestSearchUsesSnapshot(t *testing.T) {
	f := newFixture(t, Options{})
	f.backend.AddVisible(0x10, "README - 记事本", "notepad.exe")
	f.backend.AddVisible(0x20, "Inbox - Mail", "mail.exe")
	f.index.ScanNow()
	f.index.UpdateTags(0x20, "work")

	res := f.index.Search([]string{"jishiben"})
	require.Len(t, res, 1)
	assert.Equal(t, platform.Handle(0x10), res[0].Handle)

	res = f.index.Search([]string{"work", "inbox"})
	require.Len(t, res, 1)
	assert.Equal(t, 2, res[0].MatchCount)

	assert.Empty(t, f.index.Search(nil))
}

func TestLoopScansOnIntervalAndStopJoins(t *testing.T) {
	scans := make(chan ScanStats, 8)
	f := newFixture(t, Options{
		Interval: func() time.Duration { return 2 * time.Second },
		OnScan:   func(s ScanStats) { scans <- s },
	})
	f.backend.AddVisible(0x10, "A", "a.exe")

	f.index.Start(context.Background())
	waitScan(t, scans)

	f.backend.AddVisible(0x20, "B", "b.exe")
	require.NoError(t, f.clock.BlockUntilContext(context.Background(), 1))
	f.clock.Advance(2 * time.Second)
	stats := waitScan(t, scans)
	assert.Equal(t, 1, stats.Added)
	assert.Equal(t, 2, f.index.Len())

	f.index.Stop()
	f.clock.Advance(10 * time.Second)
	select {
	case <-scans:
		t.Fatal("scan ran after Stop returned")
	case <-time.After(50 * time.Millisecond):
	}

	// Stop is idempotent.
	f.index.Stop()
}

func waitScan(t *testing.T, scans <-chan ScanStats) ScanStats {
	t.Helper()
	select {
	case s := <-scans:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for scan")
		return ScanStats{}
	}
}
