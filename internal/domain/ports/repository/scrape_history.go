package repository

import (
	"context"

	"competitor-ad-studio/internal/domain/model"
)

// History buckets. Single jobs and bulk batches are capped independently.
const (
	HistoryBucketSingle = "single"
	HistoryBucketBulk   = "bulk"
)

// ScrapeHistoryRepository stores the bounded, newest-first audit trail of
// scrape submissions. Append evicts the oldest entries beyond cap.
type ScrapeHistoryRepository interface {
	Append(ctx context.Context, bucket string, rec *model.ScrapeRecord, cap int) error
	List(ctx context.Context, bucket string, limit int) ([]*model.ScrapeRecord, error)
}
