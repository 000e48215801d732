package daemon

import (
	"context"
	"log/slog"
	"sync"

	"github.com/flashtoggle/flashtoggle/internal/index"
	"github.com/flashtoggle/flashtoggle/internal/platform"
	"github.com/flashtoggle/flashtoggle/internal/tagstore"
)

// TagStore persists tags by process name and title.
type TagStore interface {
	Put(ctx context.Context, processName, title, tags string) error
	Get(ctx context.Context, processName, title string) (tagstore.Entry, bool, error)
}

// TagSync copies stored tags onto freshly indexed windows.
type TagSync struct {
	store  TagStore
	index  *index.Index
	logger *slog.Logger

	mu sync.Mutex
	// seen holds the process/title key last looked up per handle, so a
	// window is only queried again when it is renamed.
	seen map[platform.Handle]string
}

// NewTagSync creates a tag synchronizer.
func NewTagSync(store TagStore, ix *index.Index, logger *slog.Logger) *TagSync {
	return &TagSync{
		store:  store,
		index:  ix,
		logger: logger,
		seen:   make(map[platform.Handle]string),
	}
}

// Sync rehydrates tags for untagged windows. It returns the number of
// windows that received stored tags.
func (s *TagSync) Sync(ctx context.Context) int {
	records := s.index.GetAll()

	s.mu.Lock()
	defer s.mu.Unlock()

	present := make(map[platform.Handle]bool, len(records))
	applied := 0
	for _, rec := range records {
		present[rec.Handle] = true
		key := rec.ProcessName + "\x00" + rec.Title
		if s.seen[rec.Handle] == key {
			continue
		}
		s.seen[rec.Handle] = key
		if rec.Tags != "" {
			continue
		}

		entry, ok, err := s.store.Get(ctx, rec.ProcessName, rec.Title)
		if err != nil {
			s.logger.Warn("tag lookup failed", "handle", rec.Handle, "error", err)
			delete(s.seen, rec.Handle)
			continue
		}
		if ok && s.index.UpdateTags(rec.Handle, entry.Tags) {
			s.logger.Debug("tags restored", "handle", rec.Handle, "tags", entry.Tags)
			applied++
		}
	}

	for h := range s.seen {
		if !present[h] {
			delete(s.seen, h)
		}
	}
	return applied
}

// Forget drops the cached lookup for h so the next Sync queries it again.
func (s *TagSync) Forget(h platform.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, h)
}
