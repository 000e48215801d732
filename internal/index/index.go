// Package index maintains the in-memory, periodically refreshed set of
// switchable windows.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/flashtoggle/flashtoggle/internal/desktop"
	"github.com/flashtoggle/flashtoggle/internal/platform"
	"github.com/flashtoggle/flashtoggle/internal/search"
	"github.com/flashtoggle/flashtoggle/internal/window"
)

// DefaultInterval is used when Options.Interval is nil or returns <= 0.
const DefaultInterval = 2 * time.Second

var errDesktopUnresolved = errors.New("desktop unresolved")

// Lister yields the handles to index on one scan.
type Lister interface {
	Enumerate() ([]platform.Handle, error)
}

// ScanStats summarizes one scan cycle.
type ScanStats struct {
	Enumerated int
	Added      int
	Updated    int
	Removed    int
	// Skipped counts handles whose details could not be resolved this cycle.
	Skipped  int
	Duration time.Duration
	Err      error
}

// Options configures an Index.
type Options struct {
	Clock clockwork.Clock
	// Interval is consulted before every wait so config reloads apply on the
	// next cycle.
	Interval func() time.Duration
	Logger   *slog.Logger
	// OnScan runs after every scan, outside the index lock.
	OnScan func(ScanStats)
}

// Index owns the window records. All exported methods are safe for
// concurrent use.
type Index struct {
	backend platform.Backend
	lister  Lister
	bridge  desktop.Bridge
	engine  *search.Engine
	clock   clockwork.Clock
	period  func() time.Duration
	onScan  func(ScanStats)
	logger  *slog.Logger

	mu      sync.RWMutex
	records map[platform.Handle]*window.Record
	order   []platform.Handle

	scanMu sync.Mutex
	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an empty index. Call Start to begin scanning.
func New(backend platform.Backend, lister Lister, bridge desktop.Bridge, engine *search.Engine, opts Options) *Index {
	if bridge == nil {
		bridge = desktop.Null{}
	}
	if engine == nil {
		engine = search.NewEngine()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Index{
		backend: backend,
		lister:  lister,
		bridge:  bridge,
		engine:  engine,
		clock:   opts.Clock,
		period:  opts.Interval,
		onScan:  opts.OnScan,
		logger:  opts.Logger,
		records: make(map[platform.Handle]*window.Record),
	}
}

// Start launches the scan loop. The first scan runs immediately.
// Calling Start on a running index is a no-op.
func (ix *Index) Start(ctx context.Context) {
	ix.runMu.Lock()
	defer ix.runMu.Unlock()
	if ix.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	ix.cancel = cancel
	ix.done = make(chan struct{})
	go ix.run(ctx, ix.done)
}

// Stop cancels the scan loop and waits for it to exit. No scan starts after
// Stop returns.
func (ix *Index) Stop() {
	ix.runMu.Lock()
	cancel, done := ix.cancel, ix.done
	ix.cancel, ix.done = nil, nil
	ix.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (ix *Index) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ix.logger.Info("index scanner started", "interval", ix.interval())
	for {
		if ctx.Err() != nil {
			break
		}
		ix.ScanNow()

		select {
		case <-ctx.Done():
		case <-ix.clock.After(ix.interval()):
			continue
		}
		break
	}
	ix.logger.Info("index scanner stopped")
}

func (ix *Index) interval() time.Duration {
	if ix.period == nil {
		return DefaultInterval
	}
	if d := ix.period(); d > 0 {
		return d
	}
	return DefaultInterval
}

type observation struct {
	handle  platform.Handle
	record  window.Record
	skipped bool
}

// ScanNow runs one synchronous scan cycle and returns its statistics.
// Cycle-level failures are logged and reported in ScanStats.Err.
func (ix *Index) ScanNow() (stats ScanStats) {
	ix.scanMu.Lock()
	defer ix.scanMu.Unlock()

	start := ix.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			stats.Err = fmt.Errorf("scan panic: %v", r)
			ix.logger.Error("index scan panic recovered", "error", r)
		}
		stats.Duration = ix.clock.Since(start)
		if ix.onScan != nil {
			ix.onScan(stats)
		}
	}()

	handles, err := ix.lister.Enumerate()
	if err != nil {
		ix.logger.Error("index scan failed", "error", err)
		stats.Err = err
		return stats
	}
	stats.Enumerated = len(handles)

	foreground := ix.backend.ForegroundWindow()
	observed := make([]observation, 0, len(handles))
	for _, h := range handles {
		rec, err := ix.describe(h)
		if err != nil {
			ix.logger.Debug("index skipped window", "handle", h, "error", err)
			observed = append(observed, observation{handle: h, skipped: true})
			stats.Skipped++
			continue
		}
		observed = append(observed, observation{handle: h, record: rec})
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	present := make(map[platform.Handle]bool, len(observed))
	order := make([]platform.Handle, 0, len(observed))
	for _, obs := range observed {
		present[obs.handle] = true
		existing, ok := ix.records[obs.handle]
		if obs.skipped {
			if ok {
				order = append(order, obs.handle)
			}
			continue
		}
		order = append(order, obs.handle)

		if ok {
			existing.Title = obs.record.Title
			existing.ProcessID = obs.record.ProcessID
			existing.ProcessName = obs.record.ProcessName
			existing.DesktopID = obs.record.DesktopID
			existing.IsVisible = obs.record.IsVisible
			existing.IsMinimized = obs.record.IsMinimized
			stats.Updated++
			continue
		}

		rec := obs.record
		if obs.handle == foreground {
			rec.LastActive = start
		}
		ix.records[obs.handle] = &rec
		stats.Added++
	}

	for h := range ix.records {
		if !present[h] {
			delete(ix.records, h)
			stats.Removed++
		}
	}
	ix.order = order
	return stats
}

// describe resolves the scan-owned fields of h. It never touches the index.
func (ix *Index) describe(h platform.Handle) (rec window.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	title, err := ix.backend.WindowText(h)
	if err != nil {
		return rec, fmt.Errorf("title: %w", err)
	}
	style, err := ix.backend.Style(h)
	if err != nil {
		return rec, fmt.Errorf("style: %w", err)
	}
	desktopID, ok := ix.bridge.DesktopID(h)
	if !ok {
		return rec, errDesktopUnresolved
	}

	rec = window.Record{
		Handle:      h,
		Title:       title,
		ProcessName: window.UnknownProcess,
		DesktopID:   desktopID,
		IsVisible:   style&platform.StyleVisible != 0,
		IsMinimized: style&platform.StyleMinimize != 0,
	}
	if pid, err := ix.backend.ProcessID(h); err == nil {
		rec.ProcessID = pid
		if name, err := ix.backend.ProcessName(pid); err == nil && name != "" {
			rec.ProcessName = name
		}
	}
	return rec, nil
}

// GetAll returns a copy of every record in enumeration order.
func (ix *Index) GetAll() []window.Record {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make([]window.Record, 0, len(ix.order))
	for _, h := range ix.order {
		if rec, ok := ix.records[h]; ok {
			out = append(out, *rec)
		}
	}
	return out
}

// Get returns a copy of the record for h.
func (ix *Index) Get(h platform.Handle) (window.Record, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	rec, ok := ix.records[h]
	if !ok {
		return window.Record{}, false
	}
	return *rec, true
}

// Len returns the number of indexed windows.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}

// Search matches keywords against a snapshot of the index. Results keep
// index order; use search.Rank to apply the ranking.
func (ix *Index) Search(keywords []string) []search.Result {
	return ix.engine.Search(ix.GetAll(), keywords)
}

// UpdateTags replaces the tags of h. It reports false for unknown handles.
func (ix *Index) UpdateTags(h platform.Handle, tags string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	rec, ok := ix.records[h]
	if !ok {
		return false
	}
	rec.Tags = tags
	return true
}

// RecordActivity stamps h as active now. It reports false for unknown
// handles.
func (ix *Index) RecordActivity(h platform.Handle) bool {
	now := ix.clock.Now()
	ix.mu.Lock()
	defer ix.mu.Unlock()
	rec, ok := ix.records[h]
	if !ok {
		return false
	}
	rec.LastActive = now
	return true
}
