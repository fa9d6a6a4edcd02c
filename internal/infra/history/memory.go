package history

import (
	"context"
	"sync"

	"competitor-ad-studio/internal/domain/model"
	"competitor-ad-studio/internal/domain/ports/repository"
)

var _ repository.ScrapeHistoryRepository = (*MemoryStore)(nil)

// MemoryStore keeps scrape audit records in newest-first bounded lists, one
// per bucket. It is the default when redis is not configured.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string][]*model.ScrapeRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string][]*model.ScrapeRecord)}
}

func (m *MemoryStore) Append(_ context.Context, bucket string, rec *model.ScrapeRecord, cap int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	list := append([]*model.ScrapeRecord{&cp}, m.buckets[bucket]...)
	if cap > 0 && len(list) > cap {
		list = list[:cap]
	}
	m.buckets[bucket] = list
	return nil
}

func (m *MemoryStore) List(_ context.Context, bucket string, limit int) ([]*model.ScrapeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.buckets[bucket]
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	out := make([]*model.ScrapeRecord, 0, limit)
	for _, r := range list[:limit] {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}
