package model

import "time"

// ScrapeConfig is the snapshot of scrape parameters submitted with a job.
type ScrapeConfig struct {
	Region          string   `json:"region"`
	MaxAds          int      `json:"max_ads"`
	MediaTypes      []string `json:"media_types,omitempty"`
	IncludeInactive bool     `json:"include_inactive"`
}

// ScrapeRecord is a lightweight audit entry kept in a bounded local history
// list for user-facing browsing. It is never read back into orchestration
// state.
type ScrapeRecord struct {
	ID          string       `json:"id"`
	JobID       string       `json:"job_id"`
	Target      string       `json:"target"`
	SubmittedAt time.Time    `json:"submitted_at"`
	Config      ScrapeConfig `json:"config"`
}

// History caps, FIFO eviction beyond these.
const (
	SingleScrapeHistoryCap = 50
	BulkScrapeHistoryCap   = 20
)
