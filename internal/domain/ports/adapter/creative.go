package adapter

import (
	"context"

	"competitor-ad-studio/internal/domain/model"
)

// SessionRequest is the one-shot brief-generation call that builds a full
// variation/segment tree server-side.
type SessionRequest struct {
	Script            string
	StyleIDs          []string
	CharacterRef      string
	Models            model.ModelSettings
	CustomInstruction string
}

type VideoPayload struct {
	URL        string `json:"url"`
	PromptUsed string `json:"prompt_used"`
}

type SegmentPayload struct {
	ID            string         `json:"id"`
	CurrentPrompt string         `json:"current_prompt"`
	Videos        []VideoPayload `json:"videos,omitempty"`
}

type BriefPayload struct {
	StyleID  string           `json:"style_id"`
	Segments []SegmentPayload `json:"segments"`
}

type SessionPayload struct {
	ID     string         `json:"id"`
	Briefs []BriefPayload `json:"briefs"`
}

type GenerationRequest struct {
	Prompt      string
	AspectRatio string
	ModelKey    string
	Seed        int64
}

// JobStatus is a backend-reported job state collapsed onto the canonical
// model.JobState set.
type JobStatus struct {
	State     model.JobState
	ResultURL string
	Error     string
}

// SavedVideo is the best-effort persistence payload for a completed artifact.
type SavedVideo struct {
	URL               string
	PromptUsed        string
	ModelKey          string
	AspectRatio       string
	Seed              int64
	GenerationSeconds int
}

// CreativeBackend is the port for the remote generation backend. The backend
// is a black box: job submission, status polling and artifact saves only.
type CreativeBackend interface {
	CreateSession(ctx context.Context, req SessionRequest) (*SessionPayload, error)

	// SubmitGeneration starts a video-generation job and returns its id.
	SubmitGeneration(ctx context.Context, req GenerationRequest) (string, error)
	PollJobStatus(ctx context.Context, jobID string) (JobStatus, error)

	// SaveVideoToSegment persists a completed artifact against a segment's
	// server id. Failures never roll back local state.
	SaveVideoToSegment(ctx context.Context, segmentID string, video SavedVideo) error

	// UpdateSegmentPrompt returns the backend-confirmed prompt text.
	UpdateSegmentPrompt(ctx context.Context, segmentID, newText string) (string, error)

	// MergeClips is synchronous-but-slow: one request, one merged URL.
	MergeClips(ctx context.Context, urls []string, outputName string) (string, error)
}
