package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"competitor-ad-studio/internal/domain/model"
	"competitor-ad-studio/internal/domain/ports/repository"
)

var _ repository.ScrapeHistoryRepository = (*HistoryStore)(nil)

// HistoryStore keeps scrape audit records as newest-first redis lists,
// trimmed to the bucket cap on every append.
type HistoryStore struct {
	cli RedisClient
}

func NewHistoryStore(cli RedisClient) *HistoryStore {
	return &HistoryStore{cli: cli}
}

func key(bucket string) string { return "scrape:history:" + bucket }

func (s *HistoryStore) Append(ctx context.Context, bucket string, rec *model.ScrapeRecord, cap int) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal scrape record: %w", err)
	}
	k := key(bucket)
	if err := s.cli.LPush(ctx, k, string(b)); err != nil {
		return fmt.Errorf("push scrape record: %w", err)
	}
	if cap > 0 {
		if err := s.cli.LTrim(ctx, k, 0, int64(cap-1)); err != nil {
			return fmt.Errorf("trim scrape history: %w", err)
		}
	}
	return nil
}

func (s *HistoryStore) List(ctx context.Context, bucket string, limit int) ([]*model.ScrapeRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	raw, err := s.cli.LRange(ctx, key(bucket), 0, stop)
	if err != nil {
		return nil, fmt.Errorf("read scrape history: %w", err)
	}
	out := make([]*model.ScrapeRecord, 0, len(raw))
	for _, item := range raw {
		var rec model.ScrapeRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			// Skip rather than fail the whole listing on one bad entry.
			continue
		}
		out = append(out, &rec)
	}
	return out, nil
}
