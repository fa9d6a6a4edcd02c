package adapter

import (
	"context"

	"competitor-ad-studio/internal/domain/model"
)

// BulkSubmission mirrors the backend's bulk-start response: one job id per
// requested competitor plus a per-id started flag. Jobs that failed to start
// have no poll loop and never join an aggregator.
type BulkSubmission struct {
	JobIDs    []string
	StartedOK []bool
}

// ScrapeBackend is the port for competitor-ad scrape jobs.
type ScrapeBackend interface {
	SubmitScrape(ctx context.Context, competitorID string, cfg model.ScrapeConfig) (string, error)
	SubmitBulkScrape(ctx context.Context, competitorIDs []string, cfg model.ScrapeConfig) (*BulkSubmission, error)
	PollJobStatus(ctx context.Context, jobID string) (JobStatus, error)
}

// CompetitorNotifier receives the "reload competitor data" signal after a
// scrape completes successfully.
type CompetitorNotifier interface {
	CompetitorDataChanged(ctx context.Context, competitorID string)
}
