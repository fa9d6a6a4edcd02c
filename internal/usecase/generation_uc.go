package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"competitor-ad-studio/internal/config"
	"competitor-ad-studio/internal/domain"
	"competitor-ad-studio/internal/domain/model"
	"competitor-ad-studio/internal/domain/ports/adapter"
	"competitor-ad-studio/internal/infra/metrics"
	"competitor-ad-studio/internal/infra/poll"
)

// Compile-time check
var _ GenerationUseCase = (*generationUC)(nil)

// MergeState is the read-only per-style merge snapshot handed to the UI.
type MergeState struct {
	SelectedURLs []string
	Outcome      *model.MergeOutcome
}

// SegmentProgress is the read-only per-segment generation snapshot.
type SegmentProgress struct {
	Generating       bool
	RemainingSeconds int
	Error            string
}

// GenerationUseCase coordinates creative sessions: brief generation,
// per-segment video jobs, prompt edits, merge selections and merges. All
// operations return immediately; progress is observed through snapshots.
type GenerationUseCase interface {
	CreateSession(ctx context.Context, script string, styleIDs []string, characterRef string, models model.ModelSettings, customInstruction string) (*model.CreativeSession, error)
	LoadSession(s *model.CreativeSession)
	Session() *model.CreativeSession

	GenerateVideoForSegment(ctx context.Context, styleID string, segmentIndex int, promptOverride string) error
	EditSegmentPrompt(ctx context.Context, styleID string, segmentIndex int, newText string) error
	Progress(styleID string, segmentIndex int, now time.Time) SegmentProgress

	ToggleMergeSelection(styleID, url string) bool
	MergeSelected(ctx context.Context, styleID string) error
	MergeState(styleID string) MergeState

	Close()
}

// segmentRun tracks one in-flight generation job for a prompt key. The prompt
// text is captured as a value at submission time, so edits that land while
// the job is in flight never change what gets recorded.
type segmentRun struct {
	handle     *model.JobHandle
	countdown  model.Countdown
	promptUsed string
	segmentID  string
}

type generationUC struct {
	backend adapter.CreativeBackend
	poller  *poll.Runner
	cfg     config.GenerationConfig
	log     *zerolog.Logger
	clock   func() time.Time

	// Poll loops outlive the request that started them; they run on this
	// context and die only on Close.
	loopCtx    context.Context
	loopCancel context.CancelFunc

	mu        sync.Mutex
	session   *model.CreativeSession
	inFlight  map[string]*segmentRun           // promptKey -> latest run
	segErrors map[string]string                // promptKey -> last failure message
	merges    map[string]*model.MergeSelection // styleID -> selection
	outcomes  map[string]*model.MergeOutcome   // styleID -> last merge outcome
}

func NewGenerationUseCase(backend adapter.CreativeBackend, cfg config.GenerationConfig, log *zerolog.Logger) *generationUC {
	loopCtx, loopCancel := context.WithCancel(context.Background())
	return &generationUC{
		backend:    backend,
		poller:     poll.NewRunner(log),
		cfg:        cfg,
		log:        log,
		clock:      time.Now,
		loopCtx:    loopCtx,
		loopCancel: loopCancel,
		inFlight:   make(map[string]*segmentRun),
		segErrors:  make(map[string]string),
		merges:     make(map[string]*model.MergeSelection),
		outcomes:   make(map[string]*model.MergeOutcome),
	}
}

// CreateSession calls the brief-generation backend once and builds the full
// variation/segment tree. A backend error leaves no partial session behind.
func (g *generationUC) CreateSession(ctx context.Context, script string, styleIDs []string, characterRef string, models model.ModelSettings, customInstruction string) (*model.CreativeSession, error) {
	if script == "" || len(styleIDs) == 0 {
		return nil, domain.ErrInvalidArgument
	}
	payload, err := g.backend.CreateSession(ctx, adapter.SessionRequest{
		Script:            script,
		StyleIDs:          styleIDs,
		CharacterRef:      characterRef,
		Models:            models,
		CustomInstruction: customInstruction,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	s := BuildSession(payload, script, styleIDs, characterRef, models)
	g.LoadSession(s)
	g.log.Info().Str("session_id", s.ID).Int("styles", len(s.Variations)).Msg("creative session created")
	return s.Clone(), nil
}

// BuildSession converts a backend session payload into the in-memory tree.
func BuildSession(p *adapter.SessionPayload, script string, styleIDs []string, characterRef string, models model.ModelSettings) *model.CreativeSession {
	s := &model.CreativeSession{
		ID:           p.ID,
		Script:       script,
		StyleIDs:     append([]string(nil), styleIDs...),
		CharacterRef: characterRef,
		Models:       models,
		CreatedAt:    time.Now(),
	}
	for _, brief := range p.Briefs {
		v := model.StyleVariation{StyleID: brief.StyleID, Segments: make([]model.Segment, 0, len(brief.Segments))}
		for _, seg := range brief.Segments {
			ms := model.Segment{ID: seg.ID, CurrentPrompt: seg.CurrentPrompt}
			for _, vid := range seg.Videos {
				ms.Versions = append(ms.Versions, model.VideoVersion{
					URL:        vid.URL,
					PromptUsed: vid.PromptUsed,
					Sync:       model.SyncConfirmed,
				})
			}
			v.Segments = append(v.Segments, ms)
		}
		s.Variations = append(s.Variations, v)
	}
	return s
}

// LoadSession replaces the in-memory tree wholesale with a previously
// persisted session. Live poll loops are torn down and no generation is
// re-triggered; derived state (countdowns, errors, merge selections) resets.
func (g *generationUC) LoadSession(s *model.CreativeSession) {
	g.poller.StopAll()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.session = s
	g.inFlight = make(map[string]*segmentRun)
	g.segErrors = make(map[string]string)
	g.merges = make(map[string]*model.MergeSelection)
	g.outcomes = make(map[string]*model.MergeOutcome)
}

// Session returns a deep-copy snapshot of the current tree, or nil.
func (g *generationUC) Session() *model.CreativeSession {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session.Clone()
}

// GenerateVideoForSegment submits one video-generation job and returns once
// the job is submitted; completion is observed through Progress and the
// session snapshot. Multiple segments, and multiple jobs for the same
// segment, may generate concurrently.
func (g *generationUC) GenerateVideoForSegment(ctx context.Context, styleID string, segmentIndex int, promptOverride string) error {
	g.mu.Lock()
	if g.session == nil {
		g.mu.Unlock()
		return domain.ErrNoSessionLoaded
	}
	seg, err := g.session.Segment(styleID, segmentIndex)
	if err != nil {
		g.mu.Unlock()
		return err
	}
	prompt := promptOverride
	if prompt == "" {
		prompt = seg.CurrentPrompt
	}
	segmentID := seg.ID
	models := g.session.Models
	g.mu.Unlock()

	jobID, err := g.backend.SubmitGeneration(ctx, adapter.GenerationRequest{
		Prompt:      prompt,
		AspectRatio: models.AspectRatio,
		ModelKey:    models.VideoModel,
		Seed:        models.Seed,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSubmissionFailed, err)
	}
	metrics.IncJobSubmitted(string(model.JobKindVideo))

	key := model.PromptKey(styleID, segmentIndex)
	handle := model.NewJobHandle(jobID, model.JobKindVideo)
	run := &segmentRun{
		handle:     handle,
		countdown:  model.Countdown{StartedAt: g.clock(), Estimate: g.cfg.EstimateFor(models.VideoModel)},
		promptUsed: prompt,
		segmentID:  segmentID,
	}

	g.mu.Lock()
	g.inFlight[key] = run
	delete(g.segErrors, key)
	g.mu.Unlock()

	g.log.Info().
		Str("job_id", jobID).
		Str("prompt_key", key).
		Dur("estimate", run.countdown.Estimate).
		Msg("video generation started")

	// Poll loops are keyed by job id, not prompt key: a regeneration
	// submitted while an earlier job is still in flight gets its own loop.
	// The loop runs on the use case's own context, not the caller's: the
	// submitting request returns immediately and its cancellation must not
	// kill the tracking.
	g.poller.Start(g.loopCtx, jobID, g.cfg.PollInterval,
		poll.JobTick(handle,
			func(ctx context.Context) (adapter.JobStatus, error) {
				return g.backend.PollJobStatus(ctx, jobID)
			},
			nil,
			func(h *model.JobHandle) { g.finishVideo(key, run, h) },
			g.log,
		))
	return nil
}

// finishVideo runs exactly once per job, on the tick that observed the
// terminal state.
func (g *generationUC) finishVideo(key string, run *segmentRun, h *model.JobHandle) {
	elapsed := int(g.clock().Sub(run.countdown.StartedAt) / time.Second)
	metrics.IncJobFinished(string(model.JobKindVideo), string(h.State))
	metrics.ObserveJobDuration(string(model.JobKindVideo), float64(elapsed))

	if h.State == model.JobStateFailed {
		g.mu.Lock()
		g.segErrors[key] = h.ErrorMessage
		if g.inFlight[key] == run {
			delete(g.inFlight, key)
		}
		g.mu.Unlock()
		g.log.Error().Str("job_id", h.ID).Str("prompt_key", key).Str("error", h.ErrorMessage).Msg("video generation failed")
		return
	}

	version := model.VideoVersion{
		URL:               h.ResultURL,
		PromptUsed:        run.promptUsed,
		GenerationSeconds: elapsed,
		Sync:              model.SyncLocalOnly,
		CreatedAt:         g.clock(),
	}

	g.mu.Lock()
	seg := g.segmentByID(run.segmentID)
	if seg != nil {
		// Versions append in completion order, not submission order.
		seg.Versions = append(seg.Versions, version)
	}
	if g.inFlight[key] == run {
		delete(g.inFlight, key)
	}
	g.mu.Unlock()

	if seg == nil {
		// Session was replaced while the job was in flight; late result
		// discarded.
		g.log.Warn().Str("job_id", h.ID).Str("segment_id", run.segmentID).Msg("segment gone, dropping completed video")
		return
	}
	g.log.Info().Str("job_id", h.ID).Str("prompt_key", key).Str("url", h.ResultURL).Msg("video generation succeeded")

	// Best-effort persistence. Local state is the source of truth for the
	// UI; a failed save keeps the version local-only and is not retried.
	go g.syncVideo(run.segmentID, version)
}

func (g *generationUC) segmentByID(id string) *model.Segment {
	if g.session == nil {
		return nil
	}
	return g.session.SegmentByID(id)
}

func (g *generationUC) syncVideo(segmentID string, v model.VideoVersion) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	g.mu.Lock()
	var models model.ModelSettings
	if g.session != nil {
		models = g.session.Models
	}
	g.mu.Unlock()

	err := g.backend.SaveVideoToSegment(ctx, segmentID, adapter.SavedVideo{
		URL:               v.URL,
		PromptUsed:        v.PromptUsed,
		ModelKey:          models.VideoModel,
		AspectRatio:       models.AspectRatio,
		Seed:              models.Seed,
		GenerationSeconds: v.GenerationSeconds,
	})
	if err != nil {
		metrics.IncVideoSaveSync("failed")
		g.log.Error().Err(err).Str("segment_id", segmentID).Str("url", v.URL).Msg("video save sync failed, keeping local version")
		return
	}
	metrics.IncVideoSaveSync("confirmed")

	g.mu.Lock()
	if seg := g.segmentByID(segmentID); seg != nil {
		for i := range seg.Versions {
			if seg.Versions[i].URL == v.URL && seg.Versions[i].Sync == model.SyncLocalOnly {
				seg.Versions[i].Sync = model.SyncConfirmed
				break
			}
		}
	}
	g.mu.Unlock()
}

// EditSegmentPrompt persists a prompt edit through the backend. On rejection
// the in-memory prompt is left untouched so the caller keeps its edit buffer.
func (g *generationUC) EditSegmentPrompt(ctx context.Context, styleID string, segmentIndex int, newText string) error {
	g.mu.Lock()
	if g.session == nil {
		g.mu.Unlock()
		return domain.ErrNoSessionLoaded
	}
	seg, err := g.session.Segment(styleID, segmentIndex)
	if err != nil {
		g.mu.Unlock()
		return err
	}
	segmentID := seg.ID
	g.mu.Unlock()

	confirmed, err := g.backend.UpdateSegmentPrompt(ctx, segmentID, newText)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPromptUpdateRejected, err)
	}

	g.mu.Lock()
	if seg := g.segmentByID(segmentID); seg != nil {
		seg.CurrentPrompt = confirmed
	}
	g.mu.Unlock()
	return nil
}

// Progress reports the generation state for one segment: whether a job is in
// flight, the countdown remaining, and the last failure if any. The countdown
// is display-only; it saturates at zero while the job keeps running.
func (g *generationUC) Progress(styleID string, segmentIndex int, now time.Time) SegmentProgress {
	key := model.PromptKey(styleID, segmentIndex)
	g.mu.Lock()
	defer g.mu.Unlock()
	p := SegmentProgress{Error: g.segErrors[key]}
	if run, ok := g.inFlight[key]; ok {
		p.Generating = true
		p.RemainingSeconds = int(run.countdown.Remaining(now) / time.Second)
	}
	return p
}

// ToggleMergeSelection flips a clip URL in the per-style merge selection and
// reports whether it is now selected. Pure in-memory, no backend call.
func (g *generationUC) ToggleMergeSelection(styleID, url string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	sel := g.merges[styleID]
	if sel == nil {
		sel = &model.MergeSelection{}
		g.merges[styleID] = sel
	}
	return sel.Toggle(url)
}

// MergeSelected merges the selected clips for a style. The merge backend is
// synchronous-but-slow, so the call is made from a goroutine rather than a
// poll loop; the outcome lands in MergeState. The selection is never cleared,
// success or failure.
func (g *generationUC) MergeSelected(ctx context.Context, styleID string) error {
	g.mu.Lock()
	sel := g.merges[styleID]
	if sel == nil || sel.Count() < 2 {
		g.mu.Unlock()
		metrics.IncMergeAttempt("rejected")
		return domain.ErrInsufficientSelection
	}
	urls := sel.URLs()
	g.outcomes[styleID] = &model.MergeOutcome{State: model.JobStateRunning}
	g.mu.Unlock()

	metrics.IncJobSubmitted(string(model.JobKindMerge))
	outputName := fmt.Sprintf("merge-%s-%s", styleID, uuid.NewString()[:8])

	go func() {
		mergeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		mergedURL, err := g.backend.MergeClips(mergeCtx, urls, outputName)

		g.mu.Lock()
		defer g.mu.Unlock()
		if err != nil {
			g.outcomes[styleID] = &model.MergeOutcome{State: model.JobStateFailed, Error: err.Error()}
			metrics.IncMergeAttempt("failed")
			metrics.IncJobFinished(string(model.JobKindMerge), string(model.JobStateFailed))
			g.log.Error().Err(err).Str("style_id", styleID).Int("clips", len(urls)).Msg("clip merge failed")
			return
		}
		g.outcomes[styleID] = &model.MergeOutcome{State: model.JobStateSucceeded, MergedURL: mergedURL}
		metrics.IncMergeAttempt("succeeded")
		metrics.IncJobFinished(string(model.JobKindMerge), string(model.JobStateSucceeded))
		g.log.Info().Str("style_id", styleID).Str("merged_url", mergedURL).Msg("clip merge succeeded")
	}()
	return nil
}

func (g *generationUC) MergeState(styleID string) MergeState {
	g.mu.Lock()
	defer g.mu.Unlock()
	st := MergeState{}
	if sel := g.merges[styleID]; sel != nil {
		st.SelectedURLs = sel.URLs()
	}
	if out := g.outcomes[styleID]; out != nil {
		cp := *out
		st.Outcome = &cp
	}
	return st
}

// Close tears down all live poll loops. The backend jobs themselves are not
// cancelled; late responses are discarded.
func (g *generationUC) Close() {
	g.loopCancel()
	g.poller.StopAll()
}
