package model

import (
	"time"

	"competitor-ad-studio/internal/domain"
)

type JobState string

const (
	JobStatePending   JobState = "pending"
	JobStateRunning   JobState = "running"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
)

// stateRank orders states so that transitions can only move forward.
var stateRank = map[JobState]int{
	JobStatePending:   0,
	JobStateRunning:   1,
	JobStateSucceeded: 2,
	JobStateFailed:    2,
}

func (s JobState) Terminal() bool {
	return s == JobStateSucceeded || s == JobStateFailed
}

func (s JobState) Valid() bool {
	_, ok := stateRank[s]
	return ok
}

type JobKind string

const (
	JobKindVideo  JobKind = "video_generation"
	JobKindMerge  JobKind = "clip_merge"
	JobKindScrape JobKind = "ad_scrape"
)

// JobHandle is the local tracking record for one remote asynchronous job.
// Transitions are monotonic: pending -> running -> succeeded|failed. Once a
// terminal state is reached the handle is immutable.
type JobHandle struct {
	ID           string
	Kind         JobKind
	State        JobState
	ResultURL    string
	ErrorMessage string
	SubmittedAt  time.Time
	UpdatedAt    time.Time
}

func NewJobHandle(id string, kind JobKind) *JobHandle {
	now := time.Now()
	return &JobHandle{
		ID:          id,
		Kind:        kind,
		State:       JobStatePending,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
}

// Advance moves the handle to a later state. Same-state advances are no-ops so
// a poll tick that observes an unchanged backend state never errors.
func (h *JobHandle) Advance(to JobState) error {
	if !to.Valid() {
		return domain.ErrInvalidArgument
	}
	if to == h.State {
		return nil
	}
	if h.State.Terminal() {
		return domain.ErrTerminalState
	}
	if stateRank[to] < stateRank[h.State] {
		return domain.ErrStateRegression
	}
	h.State = to
	h.UpdatedAt = time.Now()
	return nil
}

func (h *JobHandle) Succeed(resultURL string) error {
	if err := h.Advance(JobStateSucceeded); err != nil {
		return err
	}
	h.ResultURL = resultURL
	return nil
}

func (h *JobHandle) Fail(message string) error {
	if err := h.Advance(JobStateFailed); err != nil {
		return err
	}
	h.ErrorMessage = message
	return nil
}
