//go:build !integration

package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"competitor-ad-studio/internal/domain/model"
	"competitor-ad-studio/internal/domain/ports/adapter"
)

// ---- fake creative backend ----

type savedVideoCall struct {
	segmentID string
	video     adapter.SavedVideo
}

// fakeCreativeBackend is a scriptable in-memory implementation used by unit
// tests. Job statuses are controlled by the test via setStatus.
type fakeCreativeBackend struct {
	mu      sync.Mutex
	nextJob int

	payload   *adapter.SessionPayload
	createErr error

	submitErr error
	statuses  map[string]adapter.JobStatus
	pollErr   map[string]error

	saveErr    error
	saved      []savedVideoCall
	promptErr  error
	mergeErr   error
	mergedURL  string
	mergeCalls [][]string
}

func newFakeCreativeBackend() *fakeCreativeBackend {
	return &fakeCreativeBackend{
		statuses: make(map[string]adapter.JobStatus),
		pollErr:  make(map[string]error),
		payload: &adapter.SessionPayload{
			ID: "sess-1",
			Briefs: []adapter.BriefPayload{
				{StyleID: "ugc", Segments: []adapter.SegmentPayload{
					{ID: "seg-ugc-1", CurrentPrompt: "Hook shot"},
					{ID: "seg-ugc-2", CurrentPrompt: "Close-up"},
				}},
				{StyleID: "cinematic", Segments: []adapter.SegmentPayload{
					{ID: "seg-cin-1", CurrentPrompt: "Wide establishing"},
				}},
			},
		},
		mergedURL: "https://cdn.example/merged.mp4",
	}
}

func (f *fakeCreativeBackend) CreateSession(_ context.Context, _ adapter.SessionRequest) (*adapter.SessionPayload, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.payload, nil
}

func (f *fakeCreativeBackend) SubmitGeneration(_ context.Context, _ adapter.GenerationRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.nextJob++
	id := fmt.Sprintf("job-%d", f.nextJob)
	f.statuses[id] = adapter.JobStatus{State: model.JobStateRunning}
	return id, nil
}

func (f *fakeCreativeBackend) PollJobStatus(_ context.Context, jobID string) (adapter.JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.pollErr[jobID]; err != nil {
		return adapter.JobStatus{}, err
	}
	st, ok := f.statuses[jobID]
	if !ok {
		return adapter.JobStatus{}, errors.New("unknown job")
	}
	return st, nil
}

func (f *fakeCreativeBackend) setStatus(jobID string, st adapter.JobStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[jobID] = st
}

func (f *fakeCreativeBackend) SaveVideoToSegment(_ context.Context, segmentID string, v adapter.SavedVideo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, savedVideoCall{segmentID: segmentID, video: v})
	return nil
}

func (f *fakeCreativeBackend) savedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

func (f *fakeCreativeBackend) UpdateSegmentPrompt(_ context.Context, _ string, newText string) (string, error) {
	if f.promptErr != nil {
		return "", f.promptErr
	}
	return newText, nil
}

func (f *fakeCreativeBackend) MergeClips(_ context.Context, urls []string, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mergeCalls = append(f.mergeCalls, append([]string(nil), urls...))
	if f.mergeErr != nil {
		return "", f.mergeErr
	}
	return f.mergedURL, nil
}

func (f *fakeCreativeBackend) mergeCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.mergeCalls)
}

// ---- fake scrape backend ----

type fakeScrapeBackend struct {
	mu      sync.Mutex
	nextJob int

	submitErr error
	bulkErr   error
	// startedOK[i] false means the i-th member of a bulk call fails to start.
	startedOK []bool
	// bulkResp, when set, is returned verbatim instead of building jobs.
	bulkResp  *adapter.BulkSubmission

	statuses map[string]adapter.JobStatus
}

func newFakeScrapeBackend() *fakeScrapeBackend {
	return &fakeScrapeBackend{statuses: make(map[string]adapter.JobStatus)}
}

func (f *fakeScrapeBackend) newJob() string {
	f.nextJob++
	id := fmt.Sprintf("scrape-%d", f.nextJob)
	f.statuses[id] = adapter.JobStatus{State: model.JobStatePending}
	return id
}

func (f *fakeScrapeBackend) SubmitScrape(_ context.Context, _ string, _ model.ScrapeConfig) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.newJob(), nil
}

func (f *fakeScrapeBackend) SubmitBulkScrape(_ context.Context, ids []string, _ model.ScrapeConfig) (*adapter.BulkSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bulkErr != nil {
		return nil, f.bulkErr
	}
	if f.bulkResp != nil {
		return f.bulkResp, nil
	}
	out := &adapter.BulkSubmission{}
	for i := range ids {
		ok := true
		if i < len(f.startedOK) {
			ok = f.startedOK[i]
		}
		if ok {
			out.JobIDs = append(out.JobIDs, f.newJob())
		} else {
			out.JobIDs = append(out.JobIDs, "")
		}
		out.StartedOK = append(out.StartedOK, ok)
	}
	return out, nil
}

func (f *fakeScrapeBackend) PollJobStatus(_ context.Context, jobID string) (adapter.JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.statuses[jobID]
	if !ok {
		return adapter.JobStatus{}, errors.New("unknown job")
	}
	return st, nil
}

func (f *fakeScrapeBackend) setStatus(jobID string, st adapter.JobStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[jobID] = st
}

// ---- fake notifier ----

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeNotifier) CompetitorDataChanged(_ context.Context, competitorID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, competitorID)
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// ---- helpers ----

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
