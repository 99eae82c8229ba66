package blocking

import (
	"context"
	"sync"

	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
)

// MemoSource caches block listings per date range for the lifetime of one report run.
// Safe for concurrent use.
type MemoSource struct {
	source Source

	mu      sync.Mutex
	entries map[[2]schedule.Date]*memoEntry
}

type memoEntry struct {
	once   sync.Once
	blocks []schedule.Block
	err    error
}

func NewMemoSource(source Source) *MemoSource {
	return &MemoSource{source: source, entries: make(map[[2]schedule.Date]*memoEntry)}
}

func (m *MemoSource) ListBlocks(ctx context.Context, from, to schedule.Date) ([]schedule.Block, error) {
	key := [2]schedule.Date{from, to}
	m.mu.Lock()
	entry, ok := m.entries[key]
	if !ok {
		entry = &memoEntry{}
		m.entries[key] = entry
	}
	m.mu.Unlock()

	entry.once.Do(func() {
		entry.blocks, entry.err = m.source.ListBlocks(ctx, from, to)
	})
	if entry.err != nil {
		// Failed listings are not cached so a later call can retry.
		m.mu.Lock()
		if m.entries[key] == entry {
			delete(m.entries, key)
		}
		m.mu.Unlock()
	}
	return entry.blocks, entry.err
}
