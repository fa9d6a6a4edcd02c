// Demo drives both orchestrators against a scripted in-memory backend:
// create a session, generate clips for two segments, edit a prompt,
// regenerate, merge, then run a single and a bulk competitor scrape.
package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"competitor-ad-studio/internal/config"
	"competitor-ad-studio/internal/domain/model"
	"competitor-ad-studio/internal/domain/ports/adapter"
	"competitor-ad-studio/internal/infra/backend"
	"competitor-ad-studio/internal/infra/history"
	"competitor-ad-studio/internal/usecase"
)

// fakeBackend resolves every job after a fixed number of polls.
type fakeBackend struct {
	mu        sync.Mutex
	nextID    int
	ticksLeft map[string]int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{ticksLeft: make(map[string]int)}
}

func (f *fakeBackend) newJob(ticks int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("job-%d", f.nextID)
	f.ticksLeft[id] = ticks
	return id
}

func (f *fakeBackend) CreateSession(_ context.Context, req adapter.SessionRequest) (*adapter.SessionPayload, error) {
	p := &adapter.SessionPayload{ID: "sess-demo"}
	for _, style := range req.StyleIDs {
		p.Briefs = append(p.Briefs, adapter.BriefPayload{
			StyleID: style,
			Segments: []adapter.SegmentPayload{
				{ID: style + "-seg-1", CurrentPrompt: "Opening hook for " + style},
				{ID: style + "-seg-2", CurrentPrompt: "Product close-up for " + style},
			},
		})
	}
	return p, nil
}

func (f *fakeBackend) SubmitGeneration(_ context.Context, _ adapter.GenerationRequest) (string, error) {
	return f.newJob(3), nil
}

func (f *fakeBackend) PollJobStatus(_ context.Context, jobID string) (adapter.JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	left := f.ticksLeft[jobID]
	if left > 1 {
		f.ticksLeft[jobID] = left - 1
		return adapter.JobStatus{State: model.JobStateRunning}, nil
	}
	return adapter.JobStatus{State: model.JobStateSucceeded, ResultURL: "https://cdn.example/" + jobID + ".mp4"}, nil
}

func (f *fakeBackend) SaveVideoToSegment(_ context.Context, _ string, _ adapter.SavedVideo) error {
	return nil
}

func (f *fakeBackend) UpdateSegmentPrompt(_ context.Context, _ string, newText string) (string, error) {
	return newText, nil
}

func (f *fakeBackend) MergeClips(_ context.Context, urls []string, outputName string) (string, error) {
	time.Sleep(50 * time.Millisecond)
	return fmt.Sprintf("https://cdn.example/%s-%d.mp4", outputName, len(urls)), nil
}

func (f *fakeBackend) SubmitScrape(_ context.Context, _ string, _ model.ScrapeConfig) (string, error) {
	return f.newJob(2), nil
}

func (f *fakeBackend) SubmitBulkScrape(_ context.Context, ids []string, _ model.ScrapeConfig) (*adapter.BulkSubmission, error) {
	out := &adapter.BulkSubmission{}
	for i := range ids {
		if i == 1 {
			// Second competitor fails to start, exercising the partial batch.
			out.JobIDs = append(out.JobIDs, "")
			out.StartedOK = append(out.StartedOK, false)
			continue
		}
		out.JobIDs = append(out.JobIDs, f.newJob(2))
		out.StartedOK = append(out.StartedOK, true)
	}
	return out, nil
}

func main() {
	ctx := context.Background()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	fake := newFakeBackend()
	genCfg := config.GenerationConfig{
		PollInterval:           50 * time.Millisecond,
		DefaultEstimateSeconds: 120,
		ModelEstimateSeconds:   map[string]int{"veo-3": 90},
	}
	scrCfg := config.ScrapeConfig{
		PollInterval:     50 * time.Millisecond,
		BulkPollInterval: 50 * time.Millisecond,
	}

	genUC := usecase.NewGenerationUseCase(fake, genCfg, &logger)
	defer genUC.Close()
	scrapeUC := usecase.NewScrapeUseCase(fake, &backend.NoopNotifier{Log: &logger}, history.NewMemoryStore(), scrCfg, &logger)
	defer scrapeUC.Close()

	sess, err := genUC.CreateSession(ctx, "30-second ad for a fitness app", []string{"ugc", "cinematic"}, "", model.ModelSettings{
		BriefModel:  "gpt-4o",
		VideoModel:  "veo-3",
		AspectRatio: "9:16",
	}, "")
	if err != nil {
		logger.Fatal().Err(err).Msg("create session")
	}
	fmt.Printf("session %s with %d variations\n", sess.ID, len(sess.Variations))

	_ = genUC.GenerateVideoForSegment(ctx, "ugc", 0, "")
	_ = genUC.GenerateVideoForSegment(ctx, "ugc", 1, "")
	_ = genUC.EditSegmentPrompt(ctx, "ugc", 0, "Energetic opening hook, handheld")
	waitFor(func() bool {
		s := genUC.Session()
		seg0, _ := s.Segment("ugc", 0)
		seg1, _ := s.Segment("ugc", 1)
		return len(seg0.Versions) == 1 && len(seg1.Versions) == 1
	})

	s := genUC.Session()
	for i := 0; i < 2; i++ {
		seg, _ := s.Segment("ugc", i)
		fmt.Printf("segment %d: prompt=%q versions=%d url=%s\n", i+1, seg.CurrentPrompt, len(seg.Versions), seg.Versions[0].URL)
		genUC.ToggleMergeSelection("ugc", seg.Versions[0].URL)
	}

	if err := genUC.MergeSelected(ctx, "ugc"); err != nil {
		logger.Fatal().Err(err).Msg("merge")
	}
	waitFor(func() bool {
		st := genUC.MergeState("ugc")
		return st.Outcome != nil && st.Outcome.State.Terminal()
	})
	fmt.Printf("merged: %s\n", genUC.MergeState("ugc").Outcome.MergedURL)

	h, err := scrapeUC.StartScrape(ctx, "competitor-a", model.ScrapeConfig{Region: "US", MaxAds: 100})
	if err != nil {
		logger.Fatal().Err(err).Msg("scrape")
	}
	waitFor(func() bool {
		snap, ok := scrapeUC.JobSnapshot(h.ID)
		return ok && snap.State.Terminal()
	})

	batchID, err := scrapeUC.StartBulkScrape(ctx, []string{"competitor-a", "competitor-b", "competitor-c"}, model.ScrapeConfig{Region: "US", MaxAds: 50})
	if err != nil {
		logger.Fatal().Err(err).Msg("bulk scrape")
	}
	waitFor(func() bool {
		sum, ok := scrapeUC.BatchSummary(batchID)
		return ok && sum.Overall != model.OverallInProgress
	})
	sum, _ := scrapeUC.BatchSummary(batchID)
	fmt.Printf("bulk batch: total=%d succeeded=%d overall=%s\n", sum.Total, sum.Succeeded, sum.Overall)
}

func waitFor(cond func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	panic("demo condition not reached in time")
}
