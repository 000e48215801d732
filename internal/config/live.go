package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Live holds the current configuration snapshot. Readers call Get on every
// use, so a reload takes effect on their next cycle.
type Live struct {
	path   string
	cur    atomic.Pointer[Config]
	logger *slog.Logger

	mu   sync.Mutex
	subs []func(*Config)
}

// NewLive wraps cfg, which was loaded from path.
func NewLive(path string, cfg *Config, logger *slog.Logger) *Live {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Live{path: path, logger: logger}
	l.cur.Store(cfg)
	return l
}

// Get returns the current snapshot. Callers must not mutate it.
func (l *Live) Get() *Config {
	return l.cur.Load()
}

// Path returns the file backing this configuration.
func (l *Live) Path() string {
	return l.path
}

// Subscribe registers fn to run after every successful reload or update.
func (l *Live) Subscribe(fn func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs = append(l.subs, fn)
}

// Reload re-reads the file. On error the previous snapshot stays active.
func (l *Live) Reload() error {
	res, err := LoadFromPath(l.path)
	if err != nil {
		return err
	}
	l.publish(res.Config)
	return nil
}

// Update applies fn to a copy of the current snapshot, saves it and
// publishes it.
func (l *Live) Update(fn func(*Config)) error {
	l.mu.Lock()
	next := l.Get().Clone()
	fn(next)
	if err := next.SaveToPath(l.path); err != nil {
		l.mu.Unlock()
		return fmt.Errorf("failed to save config: %w", err)
	}
	l.mu.Unlock()

	l.publish(next)
	return nil
}

func (l *Live) publish(cfg *Config) {
	l.cur.Store(cfg)

	l.mu.Lock()
	subs := slices.Clone(l.subs)
	l.mu.Unlock()
	for _, fn := range subs {
		fn(cfg)
	}
}

// Watcher reloads a Live configuration when its file changes on disk.
type Watcher struct {
	live     *Live
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	timerMu sync.Mutex
	timer   *time.Timer

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWatcher creates a watcher for live's file.
func NewWatcher(live *Live, logger *slog.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		live:     live,
		watcher:  watcher,
		debounce: 200 * time.Millisecond,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start watches the directory containing the config file. Editors commonly
// replace files instead of writing in place, which a file watch would miss.
func (w *Watcher) Start() error {
	dir := filepath.Dir(w.live.Path())
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.logger.Info("watching config", "path", w.live.Path())

	w.wg.Add(1)
	go w.loop()
	return nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	target := filepath.Clean(w.live.Path())

	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) schedule() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	select {
	case <-w.stopCh:
		return
	default:
	}
	if err := w.live.Reload(); err != nil {
		w.logger.Warn("config reload failed, keeping previous config", "error", err)
		return
	}
	w.logger.Info("config reloaded", "path", w.live.Path())
}

// Stop ends the watch and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()
		w.wg.Wait()

		w.timerMu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.timerMu.Unlock()
	})
}
