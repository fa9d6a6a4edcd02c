package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"competitor-ad-studio/internal/config"
	"competitor-ad-studio/internal/domain"
	"competitor-ad-studio/internal/domain/model"
	"competitor-ad-studio/internal/domain/ports/adapter"
	"competitor-ad-studio/internal/domain/ports/repository"
	"competitor-ad-studio/internal/infra/metrics"
	"competitor-ad-studio/internal/infra/poll"
)

// Compile-time check
var _ ScrapeUseCase = (*scrapeUC)(nil)

// ScrapeUseCase coordinates competitor-ad scrape jobs: single jobs with their
// own poll loop, and bulk batches rolled up by a TaskAggregator driven by one
// aggregate loop.
type ScrapeUseCase interface {
	StartScrape(ctx context.Context, competitorID string, cfg model.ScrapeConfig) (*model.JobHandle, error)
	StartBulkScrape(ctx context.Context, competitorIDs []string, cfg model.ScrapeConfig) (string, error)

	JobSnapshot(jobID string) (model.JobHandle, bool)
	BatchSummary(batchID string) (model.BatchSummary, bool)
	History(ctx context.Context, bucket string, limit int) ([]*model.ScrapeRecord, error)

	Close()
}

type scrapeUC struct {
	backend  adapter.ScrapeBackend
	notifier adapter.CompetitorNotifier
	history  repository.ScrapeHistoryRepository
	poller   *poll.Runner
	cfg      config.ScrapeConfig
	log      *zerolog.Logger

	// Poll loops outlive the request that started them; they run on this
	// context and die only on Close.
	loopCtx    context.Context
	loopCancel context.CancelFunc

	// Live JobHandles are owned by their poll-loop goroutines; only value
	// snapshots cross this mutex.
	mu        sync.Mutex
	jobs      map[string]model.JobHandle    // single-job snapshots by job id
	summaries map[string]model.BatchSummary // bulk rollup snapshots by batch id
}

func NewScrapeUseCase(
	backend adapter.ScrapeBackend,
	notifier adapter.CompetitorNotifier,
	history repository.ScrapeHistoryRepository,
	cfg config.ScrapeConfig,
	log *zerolog.Logger,
) *scrapeUC {
	loopCtx, loopCancel := context.WithCancel(context.Background())
	return &scrapeUC{
		backend:    backend,
		notifier:   notifier,
		history:    history,
		poller:     poll.NewRunner(log),
		cfg:        cfg,
		log:        log,
		loopCtx:    loopCtx,
		loopCancel: loopCancel,
		jobs:       make(map[string]model.JobHandle),
		summaries:  make(map[string]model.BatchSummary),
	}
}

// StartScrape submits one scrape job and begins polling it. On success the
// competitor-data-changed signal fires so the caller can reload.
func (s *scrapeUC) StartScrape(ctx context.Context, competitorID string, cfg model.ScrapeConfig) (*model.JobHandle, error) {
	if competitorID == "" {
		return nil, domain.ErrInvalidArgument
	}
	jobID, err := s.backend.SubmitScrape(ctx, competitorID, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSubmissionFailed, err)
	}
	metrics.IncJobSubmitted(string(model.JobKindScrape))

	handle := model.NewJobHandle(jobID, model.JobKindScrape)
	s.mu.Lock()
	s.jobs[jobID] = *handle
	s.mu.Unlock()

	s.audit(ctx, repository.HistoryBucketSingle, jobID, competitorID, cfg, model.SingleScrapeHistoryCap)
	s.log.Info().Str("job_id", jobID).Str("competitor_id", competitorID).Msg("scrape started")

	// The loop runs on the use case's own context: the submitting request
	// returns immediately and its cancellation must not kill the tracking.
	s.poller.Start(s.loopCtx, jobID, s.cfg.PollInterval,
		poll.JobTick(handle,
			func(ctx context.Context) (adapter.JobStatus, error) {
				return s.backend.PollJobStatus(ctx, jobID)
			},
			func(h *model.JobHandle) {
				s.mu.Lock()
				s.jobs[h.ID] = *h
				s.mu.Unlock()
			},
			func(h *model.JobHandle) {
				metrics.IncJobFinished(string(model.JobKindScrape), string(h.State))
				if h.State == model.JobStateSucceeded {
					s.notifier.CompetitorDataChanged(context.Background(), competitorID)
					s.log.Info().Str("job_id", h.ID).Str("competitor_id", competitorID).Msg("scrape succeeded")
					return
				}
				s.log.Error().Str("job_id", h.ID).Str("competitor_id", competitorID).Str("error", h.ErrorMessage).Msg("scrape failed")
			},
			s.log,
		))

	cp := *handle
	return &cp, nil
}

// StartBulkScrape submits one backend call for N competitors and builds an
// aggregator over the jobs that actually started. One poll loop drives the
// whole batch and stops once every member is terminal, including mixed
// outcomes. Returns the batch id.
func (s *scrapeUC) StartBulkScrape(ctx context.Context, competitorIDs []string, cfg model.ScrapeConfig) (string, error) {
	if len(competitorIDs) == 0 {
		return "", domain.ErrInvalidArgument
	}
	sub, err := s.backend.SubmitBulkScrape(ctx, competitorIDs, cfg)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSubmissionFailed, err)
	}
	// The port contract does not force adapters to keep the two slices
	// aligned; a mismatch here would panic the member loop below.
	if len(sub.JobIDs) != len(sub.StartedOK) {
		return "", fmt.Errorf("%w: bulk submission returned %d job ids for %d start flags",
			domain.ErrSubmissionFailed, len(sub.JobIDs), len(sub.StartedOK))
	}

	handles := make([]*model.JobHandle, 0, len(sub.JobIDs))
	for i, jobID := range sub.JobIDs {
		if !sub.StartedOK[i] {
			target := ""
			if i < len(competitorIDs) {
				target = competitorIDs[i]
			}
			s.log.Warn().Str("competitor_id", target).Msg("bulk scrape member failed to start")
			continue
		}
		metrics.IncJobSubmitted(string(model.JobKindScrape))
		handles = append(handles, model.NewJobHandle(jobID, model.JobKindScrape))
	}

	batchID := ulid.Make().String()
	agg := model.NewTaskAggregator(batchID, handles)
	s.mu.Lock()
	s.summaries[batchID] = agg.Summary()
	s.mu.Unlock()

	s.audit(ctx, repository.HistoryBucketBulk, batchID, strings.Join(competitorIDs, ","), cfg, model.BulkScrapeHistoryCap)
	s.log.Info().
		Str("batch_id", batchID).
		Int("requested", len(competitorIDs)).
		Int("started", len(handles)).
		Msg("bulk scrape started")

	if agg.Done() {
		// Nothing started; there is nothing to poll.
		return batchID, nil
	}

	s.poller.Start(s.loopCtx, batchID, s.cfg.BulkPollInterval, func(ctx context.Context) bool {
		return s.tickBatch(ctx, agg)
	})
	return batchID, nil
}

// tickBatch polls every non-terminal member once and reports whether the
// batch is finished. The summary itself is always recomputed from member
// states, never patched.
func (s *scrapeUC) tickBatch(ctx context.Context, agg *model.TaskAggregator) bool {
	for _, id := range agg.MemberIDs() {
		h := agg.Member(id)
		if h == nil || h.State.Terminal() {
			continue
		}
		st, err := s.backend.PollJobStatus(ctx, id)
		if err != nil {
			if adapter.IsDefinitive(err) {
				metrics.IncPollTransportError("definitive")
				_ = h.Fail(err.Error())
				metrics.IncJobFinished(string(model.JobKindScrape), string(model.JobStateFailed))
				continue
			}
			metrics.IncPollTransportError("transient")
			s.log.Warn().Err(err).Str("job_id", id).Msg("transient bulk poll failure, will retry")
			continue
		}
		wasTerminal := h.State.Terminal()
		if err := poll.ApplyStatus(h, st); err != nil {
			s.log.Warn().Err(err).Str("job_id", id).Msg("ignoring stale status report")
		}
		if !wasTerminal && h.State.Terminal() {
			metrics.IncJobFinished(string(model.JobKindScrape), string(h.State))
		}
	}

	sum := agg.Summary()
	s.mu.Lock()
	s.summaries[agg.BatchID] = sum
	s.mu.Unlock()

	if agg.Done() {
		s.log.Info().
			Str("batch_id", agg.BatchID).
			Str("overall", string(sum.Overall)).
			Int("succeeded", sum.Succeeded).
			Int("failed", sum.Failed).
			Msg("bulk scrape finished")
		return true
	}
	return false
}

func (s *scrapeUC) audit(ctx context.Context, bucket, jobID, target string, cfg model.ScrapeConfig, cap int) {
	rec := &model.ScrapeRecord{
		ID:          ulid.Make().String(),
		JobID:       jobID,
		Target:      target,
		SubmittedAt: time.Now(),
		Config:      cfg,
	}
	// History is browse-only and never read back into orchestration state;
	// a write failure is logged and forgotten.
	if err := s.history.Append(ctx, bucket, rec, cap); err != nil {
		s.log.Warn().Err(err).Str("bucket", bucket).Msg("scrape history append failed")
	}
}

func (s *scrapeUC) JobSnapshot(jobID string) (model.JobHandle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.jobs[jobID]
	return h, ok
}

func (s *scrapeUC) BatchSummary(batchID string) (model.BatchSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.summaries[batchID]
	return sum, ok
}

func (s *scrapeUC) History(ctx context.Context, bucket string, limit int) ([]*model.ScrapeRecord, error) {
	if bucket != repository.HistoryBucketSingle && bucket != repository.HistoryBucketBulk {
		return nil, domain.ErrInvalidArgument
	}
	return s.history.List(ctx, bucket, limit)
}

// Close tears down all live poll loops. Backend jobs keep running; their late
// results are discarded.
func (s *scrapeUC) Close() {
	s.loopCancel()
	s.poller.StopAll()
}
