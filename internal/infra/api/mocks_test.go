//go:build !integration

package api

import (
	"context"
	"time"

	"competitor-ad-studio/internal/domain"
	"competitor-ad-studio/internal/domain/model"
	"competitor-ad-studio/internal/usecase"
)

// stubGenerationUC is a hand-rolled fake of the generation use case. Each
// field either scripts a return value or records the last call.
type stubGenerationUC struct {
	session    *model.CreativeSession
	createErr  error
	genErr     error
	editErr    error
	mergeErr   error
	progress   usecase.SegmentProgress
	mergeState usecase.MergeState
	toggled    bool

	lastGenerate struct {
		styleID string
		index   int
		prompt  string
	}
	loaded *model.CreativeSession
}

var _ usecase.GenerationUseCase = (*stubGenerationUC)(nil)

func (s *stubGenerationUC) CreateSession(_ context.Context, script string, styleIDs []string, characterRef string, models model.ModelSettings, _ string) (*model.CreativeSession, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.session = &model.CreativeSession{
		ID:           "sess-1",
		Script:       script,
		StyleIDs:     styleIDs,
		CharacterRef: characterRef,
		Models:       models,
		Variations: []model.StyleVariation{
			{StyleID: "ugc", Segments: []model.Segment{{ID: "seg-1", CurrentPrompt: "Hook shot"}}},
		},
	}
	return s.session, nil
}

func (s *stubGenerationUC) LoadSession(sess *model.CreativeSession) {
	s.loaded = sess
	s.session = sess
}

func (s *stubGenerationUC) Session() *model.CreativeSession { return s.session }

func (s *stubGenerationUC) GenerateVideoForSegment(_ context.Context, styleID string, index int, prompt string) error {
	s.lastGenerate.styleID = styleID
	s.lastGenerate.index = index
	s.lastGenerate.prompt = prompt
	return s.genErr
}

func (s *stubGenerationUC) EditSegmentPrompt(_ context.Context, _ string, _ int, _ string) error {
	return s.editErr
}

func (s *stubGenerationUC) Progress(_ string, _ int, _ time.Time) usecase.SegmentProgress {
	return s.progress
}

func (s *stubGenerationUC) ToggleMergeSelection(_, _ string) bool { return s.toggled }

func (s *stubGenerationUC) MergeSelected(_ context.Context, _ string) error { return s.mergeErr }

func (s *stubGenerationUC) MergeState(_ string) usecase.MergeState { return s.mergeState }

func (s *stubGenerationUC) Close() {}

// stubScrapeUC fakes the scrape use case.
type stubScrapeUC struct {
	startErr error
	bulkErr  error
	handle   *model.JobHandle
	batchID  string
	summary  model.BatchSummary
	hasBatch bool
	records  []*model.ScrapeRecord
}

var _ usecase.ScrapeUseCase = (*stubScrapeUC)(nil)

func (s *stubScrapeUC) StartScrape(_ context.Context, _ string, _ model.ScrapeConfig) (*model.JobHandle, error) {
	if s.startErr != nil {
		return nil, s.startErr
	}
	return s.handle, nil
}

func (s *stubScrapeUC) StartBulkScrape(_ context.Context, ids []string, _ model.ScrapeConfig) (string, error) {
	if s.bulkErr != nil {
		return "", s.bulkErr
	}
	if len(ids) == 0 {
		return "", domain.ErrInvalidArgument
	}
	return s.batchID, nil
}

func (s *stubScrapeUC) JobSnapshot(string) (model.JobHandle, bool) {
	if s.handle == nil {
		return model.JobHandle{}, false
	}
	return *s.handle, true
}

func (s *stubScrapeUC) BatchSummary(string) (model.BatchSummary, bool) {
	return s.summary, s.hasBatch
}

func (s *stubScrapeUC) History(_ context.Context, bucket string, _ int) ([]*model.ScrapeRecord, error) {
	if bucket != "single" && bucket != "bulk" {
		return nil, domain.ErrInvalidArgument
	}
	return s.records, nil
}

func (s *stubScrapeUC) Close() {}
