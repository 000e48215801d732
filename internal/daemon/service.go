package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/flashtoggle/flashtoggle/internal/activator"
	"github.com/flashtoggle/flashtoggle/internal/config"
	"github.com/flashtoggle/flashtoggle/internal/desktop"
	"github.com/flashtoggle/flashtoggle/internal/enumerator"
	"github.com/flashtoggle/flashtoggle/internal/history"
	"github.com/flashtoggle/flashtoggle/internal/hotkeys"
	"github.com/flashtoggle/flashtoggle/internal/index"
	"github.com/flashtoggle/flashtoggle/internal/ipc"
	"github.com/flashtoggle/flashtoggle/internal/logging"
	"github.com/flashtoggle/flashtoggle/internal/pinned"
	"github.com/flashtoggle/flashtoggle/internal/platform"
	"github.com/flashtoggle/flashtoggle/internal/search"
	"github.com/flashtoggle/flashtoggle/internal/window"
)

// ErrUnknownWindow is returned for handles that are not indexed.
var ErrUnknownWindow = errors.New("window is not indexed")

// Deps are the collaborators a Service is composed from. Backend and Live
// are required; the rest fall back to inert defaults.
type Deps struct {
	Backend   platform.Backend
	Bridge    desktop.Bridge
	Live      *config.Live
	Tags      TagStore
	Hotkeys   *hotkeys.Handler
	Launcher  Launcher
	Activator *activator.Activator
	Clock     clockwork.Clock
	Logger    *slog.Logger
}

// Service wires the window index, search, history, activation and pinned
// windows together. Its methods are the entry points for hotkeys, IPC and
// the foreground watcher.
type Service struct {
	backend  platform.Backend
	bridge   desktop.Bridge
	live     *config.Live
	tags     TagStore
	hotkeys  *hotkeys.Handler
	launcher Launcher
	clock    clockwork.Clock
	logger   *slog.Logger

	enum      *enumerator.Enumerator
	index     *index.Index
	history   *history.History
	activator *activator.Activator
	pinned    *pinned.Manager
	tagSync   *TagSync
	watcher   *ForegroundWatcher

	instanceID string
	started    time.Time

	bindMu  sync.Mutex
	actions map[string]string
}

// NewService composes a service from deps.
func NewService(deps Deps) *Service {
	if deps.Bridge == nil {
		deps.Bridge = desktop.Null{}
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	logger := deps.Logger
	cfg := deps.Live.Get()

	s := &Service{
		backend:    deps.Backend,
		bridge:     deps.Bridge,
		live:       deps.Live,
		tags:       deps.Tags,
		hotkeys:    deps.Hotkeys,
		launcher:   deps.Launcher,
		clock:      deps.Clock,
		logger:     logging.Module(logger, "daemon"),
		instanceID: uuid.NewString(),
		started:    deps.Clock.Now(),
		actions:    make(map[string]string),
	}

	s.activator = deps.Activator
	if s.activator == nil {
		s.activator = activator.New(deps.Backend, deps.Bridge, activator.Options{
			Clock:  deps.Clock,
			Logger: logging.Module(logger, "activator"),
		})
	}

	s.enum = enumerator.New(deps.Backend, cfg.ExcludeClasses, logging.Module(logger, "enumerator"))
	s.index = index.New(deps.Backend, s.enum, deps.Bridge, search.NewEngine(), index.Options{
		Clock:    deps.Clock,
		Interval: func() time.Duration { return s.live.Get().ScanPeriod() },
		Logger:   logging.Module(logger, "index"),
		OnScan:   s.afterScan,
	})
	s.history = history.New(cfg.MaxHistory, deps.Backend, s.activateFromHistory, logging.Module(logger, "history"))

	var binder pinned.Binder
	if deps.Hotkeys != nil {
		binder = deps.Hotkeys
	}
	s.pinned = pinned.New(deps.Backend, s.activator.ActivateHandle, binder, logging.Module(logger, "pinned"))

	if deps.Tags != nil {
		s.tagSync = NewTagSync(deps.Tags, s.index, logging.Module(logger, "tags"))
	}
	s.watcher = NewForegroundWatcher(ForegroundWatcherConfig{
		Interval: func() time.Duration { return s.live.Get().ForegroundPeriod() },
		Clock:    deps.Clock,
		Logger:   logging.Module(logger, "foreground"),
	}, deps.Backend, s.onForeground)

	deps.Live.Subscribe(s.applyConfig)
	return s
}

// Index exposes the window index.
func (s *Service) Index() *index.Index { return s.index }

// Pinned exposes the pinned window manager.
func (s *Service) Pinned() *pinned.Manager { return s.pinned }

// HistoryList exposes the activation history.
func (s *Service) HistoryList() *history.History { return s.history }

// Run performs an initial scan, restores saved pinned windows, binds hotkeys
// and then runs the scan loop and foreground watcher until ctx is
// cancelled. Both loops have exited when Run returns.
func (s *Service) Run(ctx context.Context) error {
	stats := s.index.ScanNow()
	s.logger.Info("initial scan complete", "windows", s.index.Len(), "skipped", stats.Skipped)

	cfg := s.live.Get()
	if n := s.pinned.Restore(cfg.SavedWindows, s.index.GetAll()); n > 0 {
		s.logger.Info("pinned windows restored", "count", n)
	}
	s.bindActions(cfg)

	s.index.Start(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.watcher.Run(ctx)
	}()

	<-ctx.Done()
	s.index.Stop()
	wg.Wait()
	return nil
}

// Table returns the hotkey action table.
func (s *Service) Table() hotkeys.Table {
	return hotkeys.Table{
		hotkeys.ActionToggleSearch:  s.ToggleSearchVisibility,
		hotkeys.ActionJumpPrevious:  func() { s.JumpToPrevious() },
		hotkeys.ActionJumpNext:      func() { s.JumpToNext() },
		hotkeys.ActionCaptureWindow: s.captureFromHotkey,
		hotkeys.ActionToggleTopmost: s.toggleTopmostFromHotkey,
		hotkeys.ActionClearPinned:   func() { s.pinned.Clear(); s.persistPinned() },
	}
}

// bindActions registers action hotkeys whose sequence changed since the last
// call and releases the ones that were removed.
func (s *Service) bindActions(cfg *config.Config) {
	if s.hotkeys == nil {
		return
	}
	s.bindMu.Lock()
	defer s.bindMu.Unlock()

	table := s.Table()
	changed := make(map[string]string)
	for action, old := range s.actions {
		if cfg.Hotkeys[action] == old {
			continue
		}
		if err := s.hotkeys.Unregister(old); err != nil {
			s.logger.Warn("failed to release hotkey", "action", action, "hotkey", old, "error", err)
		}
		delete(s.actions, action)
	}
	for action, seq := range cfg.Hotkeys {
		if _, bound := s.actions[action]; bound || seq == "" {
			continue
		}
		changed[action] = seq
	}
	if len(changed) == 0 {
		return
	}
	s.hotkeys.Bind(changed, table)

	bound := make(map[string]bool)
	for _, seq := range s.hotkeys.Bound() {
		bound[seq] = true
	}
	for action, seq := range changed {
		if hk, err := hotkeys.Parse(seq); err == nil && bound[hk.String()] {
			s.actions[action] = seq
		}
	}
}

func (s *Service) applyConfig(cfg *config.Config) {
	s.history.SetCapacity(cfg.MaxHistory)
	s.enum.UpdateExcludedClasses(cfg.ExcludeClasses)
	s.bindActions(cfg)
	s.logger.Info("configuration applied", "scan_interval", cfg.ScanPeriod(), "max_history", cfg.MaxHistory)
}

func (s *Service) afterScan(stats index.ScanStats) {
	if stats.Err != nil || s.tagSync == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.tagSync.Sync(ctx)
}

func (s *Service) onForeground(h platform.Handle) {
	// Only switchable windows enter the history; the taskbar, desktop and
	// the picker console do not.
	if _, ok := s.index.Get(h); !ok {
		return
	}
	s.index.RecordActivity(h)
	s.history.Record(h)
}

func (s *Service) activateFromHistory(h platform.Handle) bool {
	if !s.activator.ActivateHandle(h) {
		return false
	}
	s.index.RecordActivity(h)
	return true
}

// ToggleSearchVisibility shows or hides the search picker.
func (s *Service) ToggleSearchVisibility() {
	if s.launcher == nil {
		s.logger.Warn("search picker is not available")
		return
	}
	if err := s.launcher.Toggle(); err != nil {
		s.logger.Error("failed to toggle search picker", "error", err)
	}
}

// JumpToPrevious activates the previous history entry.
func (s *Service) JumpToPrevious() bool {
	return s.history.JumpToPrevious()
}

// JumpToNext activates the next history entry.
func (s *Service) JumpToNext() bool {
	return s.history.JumpToNext()
}

// Activate brings h to the foreground and records it.
func (s *Service) Activate(h platform.Handle) bool {
	if !s.activator.ActivateHandle(h) {
		return false
	}
	s.index.RecordActivity(h)
	s.history.Record(h)
	return true
}

// List returns every indexed window.
func (s *Service) List() []window.Record {
	return s.index.GetAll()
}

// Search returns ranked matches for query, at most limit (max_results when
// limit <= 0).
func (s *Service) Search(query string, limit int) []search.Result {
	results := s.index.Search(search.ParseQuery(query))
	search.Rank(results)
	if limit <= 0 {
		limit = s.live.Get().MaxResults
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// SetTags replaces the tags of h in the index and the tag store.
func (s *Service) SetTags(h platform.Handle, tags string) error {
	rec, ok := s.index.Get(h)
	if !ok || !s.index.UpdateTags(h, tags) {
		return fmt.Errorf("%w: %s", ErrUnknownWindow, h)
	}
	if s.tags == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.tags.Put(ctx, rec.ProcessName, rec.Title, tags); err != nil {
		return fmt.Errorf("failed to persist tags: %w", err)
	}
	if s.tagSync != nil {
		s.tagSync.Forget(h)
	}
	return nil
}

// History returns the history entries with their current titles.
func (s *Service) History() ipc.HistoryData {
	entries := s.history.Entries()
	cursor := s.history.Cursor()

	out := ipc.HistoryData{Entries: make([]ipc.HistoryEntry, 0, len(entries)), Cursor: cursor}
	for i, h := range entries {
		e := ipc.HistoryEntry{
			Index:   i,
			Handle:  h,
			Current: i == cursor,
			Alive:   s.backend.IsWindow(h),
		}
		if rec, ok := s.index.Get(h); ok {
			e.Title = rec.Title
			e.ProcessName = rec.ProcessName
		}
		out.Entries = append(out.Entries, e)
	}
	return out
}

// ClearHistory empties the history.
func (s *Service) ClearHistory() {
	s.history.Clear()
}

// RemoveHistory drops every entry for h.
func (s *Service) RemoveHistory(h platform.Handle) bool {
	return s.history.Remove(h)
}

// JumpToHistory activates entry i.
func (s *Service) JumpToHistory(i int) bool {
	return s.history.JumpTo(i)
}

// PinList returns the pinned windows.
func (s *Service) PinList() []pinned.Window {
	return s.pinned.List()
}

// PinCapture pins the foreground window and saves it to config.
func (s *Service) PinCapture() (pinned.Window, error) {
	w, err := s.pinned.Capture()
	if err != nil {
		return w, err
	}
	s.persistPinned()
	return w, nil
}

// PinToggle hides or shows a pinned window.
func (s *Service) PinToggle(h platform.Handle) (bool, error) {
	return s.pinned.ToggleVisibility(h)
}

// PinTopmost toggles always-on-top for a pinned window, or for the
// foreground window when h is 0.
func (s *Service) PinTopmost(h platform.Handle) (platform.Handle, bool, error) {
	var (
		topmost bool
		err     error
	)
	if h == 0 {
		h, topmost, err = s.pinned.ToggleActiveTopmost()
	} else {
		topmost, err = s.pinned.ToggleTopmost(h)
	}
	if err != nil {
		return h, topmost, err
	}
	if _, ok := s.pinned.Get(h); ok {
		s.persistPinned()
	}
	return h, topmost, nil
}

// PinHotkey binds a hotkey to a pinned window and saves it to config.
func (s *Service) PinHotkey(h platform.Handle, hotkey string) error {
	if err := s.pinned.SetHotkey(h, hotkey); err != nil {
		return err
	}
	s.persistPinned()
	return nil
}

// PinRelease unpins h.
func (s *Service) PinRelease(h platform.Handle) bool {
	if !s.pinned.Release(h) {
		return false
	}
	s.persistPinned()
	return true
}

func (s *Service) persistPinned() {
	saved := s.pinned.Saved()
	if err := s.live.Update(func(c *config.Config) { c.SavedWindows = saved }); err != nil {
		s.logger.Warn("failed to save pinned windows", "error", err)
	}
}

func (s *Service) captureFromHotkey() {
	w, err := s.PinCapture()
	if err != nil {
		s.logger.Warn("capture failed", "error", err)
		return
	}
	s.logger.Info("window captured", "handle", w.Handle, "title", w.Title)
}

func (s *Service) toggleTopmostFromHotkey() {
	if _, _, err := s.PinTopmost(0); err != nil {
		s.logger.Warn("topmost toggle failed", "error", err)
	}
}

// Reload re-reads the configuration file.
func (s *Service) Reload() error {
	return s.live.Reload()
}

// Status reports daemon state.
func (s *Service) Status() ipc.StatusData {
	var bound []string
	if s.hotkeys != nil {
		bound = s.hotkeys.Bound()
	}
	_, isNull := s.bridge.(desktop.Null)
	return ipc.StatusData{
		InstanceID:    s.instanceID,
		WindowCount:   s.index.Len(),
		HistoryLength: s.history.Len(),
		HistoryCursor: s.history.Cursor(),
		PinnedCount:   len(s.pinned.List()),
		Hotkeys:       bound,
		DesktopBridge: !isNull,
		UptimeSeconds: int64(s.clock.Since(s.started).Seconds()),
		DaemonRunning: true,
	}
}

var _ ipc.Service = (*Service)(nil)
