package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"competitor-ad-studio/internal/domain"
	"competitor-ad-studio/internal/domain/model"
	"competitor-ad-studio/internal/domain/ports/adapter"
	"competitor-ad-studio/internal/usecase"
)

// Server exposes the orchestrators to the UI collaborator: read-only
// snapshots plus the operation entry points. It is the only mutation surface.
type Server struct {
	genUC    usecase.GenerationUseCase
	scrapeUC usecase.ScrapeUseCase
	log      *zerolog.Logger
}

func NewServer(genUC usecase.GenerationUseCase, scrapeUC usecase.ScrapeUseCase, log *zerolog.Logger) *Server {
	return &Server{genUC: genUC, scrapeUC: scrapeUC, log: log}
}

// Router builds the chi router. /health and /metrics are open; everything
// under /api/v1 requires the bearer key.
func (s *Server) Router(apiKey string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(TraceID)
	r.Use(Recover(s.log))
	r.Use(RequestLog(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuth(apiKey, s.log))

		r.Post("/sessions", s.handleCreateSession)
		r.Get("/session", s.handleGetSession)
		r.Post("/session/load", s.handleLoadSession)

		r.Route("/styles/{styleID}", func(r chi.Router) {
			r.Post("/segments/{index}/generate", s.handleGenerate)
			r.Put("/segments/{index}/prompt", s.handleEditPrompt)
			r.Get("/segments/{index}/progress", s.handleProgress)

			r.Post("/merge/toggle", s.handleMergeToggle)
			r.Post("/merge", s.handleMerge)
			r.Get("/merge", s.handleMergeState)
		})

		r.Post("/scrapes", s.handleStartScrape)
		r.Get("/scrapes/{jobID}", s.handleScrapeJob)
		r.Post("/scrapes/bulk", s.handleStartBulkScrape)
		r.Get("/scrapes/bulk/{batchID}", s.handleBatchSummary)
		r.Get("/scrapes/history/{bucket}", s.handleScrapeHistory)
	})
	return r
}

// ---- DTOs ----

type modelSettingsDTO struct {
	BriefModel  string `json:"brief_model"`
	VideoModel  string `json:"video_model"`
	AspectRatio string `json:"aspect_ratio"`
	Seed        int64  `json:"seed"`
}

type videoVersionDTO struct {
	URL               string `json:"url"`
	PromptUsed        string `json:"prompt_used"`
	GenerationSeconds int    `json:"generation_seconds"`
	Sync              string `json:"sync"`
}

type segmentDTO struct {
	ID            string            `json:"id"`
	CurrentPrompt string            `json:"current_prompt"`
	Versions      []videoVersionDTO `json:"versions"`
	Generating    bool              `json:"generating"`
	RemainingSecs int               `json:"remaining_seconds"`
	Error         string            `json:"error,omitempty"`
}

type variationDTO struct {
	StyleID  string       `json:"style_id"`
	Segments []segmentDTO `json:"segments"`
}

type sessionDTO struct {
	ID           string           `json:"id"`
	Script       string           `json:"script"`
	StyleIDs     []string         `json:"style_ids"`
	CharacterRef string           `json:"character_ref,omitempty"`
	Models       modelSettingsDTO `json:"models"`
	Variations   []variationDTO   `json:"variations"`
}

func (s *Server) sessionToDTO(sess *model.CreativeSession) *sessionDTO {
	if sess == nil {
		return nil
	}
	now := time.Now()
	dto := &sessionDTO{
		ID:           sess.ID,
		Script:       sess.Script,
		StyleIDs:     sess.StyleIDs,
		CharacterRef: sess.CharacterRef,
		Models: modelSettingsDTO{
			BriefModel:  sess.Models.BriefModel,
			VideoModel:  sess.Models.VideoModel,
			AspectRatio: sess.Models.AspectRatio,
			Seed:        sess.Models.Seed,
		},
	}
	for _, v := range sess.Variations {
		vd := variationDTO{StyleID: v.StyleID}
		for i, seg := range v.Segments {
			prog := s.genUC.Progress(v.StyleID, i, now)
			sd := segmentDTO{
				ID:            seg.ID,
				CurrentPrompt: seg.CurrentPrompt,
				Versions:      make([]videoVersionDTO, 0, len(seg.Versions)),
				Generating:    prog.Generating,
				RemainingSecs: prog.RemainingSeconds,
				Error:         prog.Error,
			}
			for _, ver := range seg.Versions {
				sd.Versions = append(sd.Versions, videoVersionDTO{
					URL:               ver.URL,
					PromptUsed:        ver.PromptUsed,
					GenerationSeconds: ver.GenerationSeconds,
					Sync:              string(ver.Sync),
				})
			}
			vd.Segments = append(vd.Segments, sd)
		}
		dto.Variations = append(dto.Variations, vd)
	}
	return dto
}

// ---- session handlers ----

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Script            string           `json:"script"`
		StyleIDs          []string         `json:"style_ids"`
		CharacterRef      string           `json:"character_ref"`
		Models            modelSettingsDTO `json:"models"`
		CustomInstruction string           `json:"custom_instruction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sess, err := s.genUC.CreateSession(r.Context(), req.Script, req.StyleIDs, req.CharacterRef, model.ModelSettings{
		BriefModel:  req.Models.BriefModel,
		VideoModel:  req.Models.VideoModel,
		AspectRatio: req.Models.AspectRatio,
		Seed:        req.Models.Seed,
	}, req.CustomInstruction)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.sessionToDTO(sess))
}

func (s *Server) handleGetSession(w http.ResponseWriter, _ *http.Request) {
	sess := s.genUC.Session()
	if sess == nil {
		writeError(w, http.StatusNotFound, "no session loaded")
		return
	}
	writeJSON(w, http.StatusOK, s.sessionToDTO(sess))
}

func (s *Server) handleLoadSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Script       string                 `json:"script"`
		StyleIDs     []string               `json:"style_ids"`
		CharacterRef string                 `json:"character_ref"`
		Models       modelSettingsDTO       `json:"models"`
		Payload      adapter.SessionPayload `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Payload.ID == "" {
		writeError(w, http.StatusBadRequest, "payload.id is required")
		return
	}
	sess := usecase.BuildSession(&req.Payload, req.Script, req.StyleIDs, req.CharacterRef, model.ModelSettings{
		BriefModel:  req.Models.BriefModel,
		VideoModel:  req.Models.VideoModel,
		AspectRatio: req.Models.AspectRatio,
		Seed:        req.Models.Seed,
	})
	s.genUC.LoadSession(sess)
	writeJSON(w, http.StatusOK, s.sessionToDTO(s.genUC.Session()))
}

// ---- segment handlers ----

func segmentIndex(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "index"))
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	idx, err := segmentIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid segment index")
		return
	}
	var req struct {
		PromptOverride string `json:"prompt_override"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	if err := s.genUC.GenerateVideoForSegment(r.Context(), chi.URLParam(r, "styleID"), idx, req.PromptOverride); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleEditPrompt(w http.ResponseWriter, r *http.Request) {
	idx, err := segmentIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid segment index")
		return
	}
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.genUC.EditSegmentPrompt(r.Context(), chi.URLParam(r, "styleID"), idx, req.Prompt); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	idx, err := segmentIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid segment index")
		return
	}
	prog := s.genUC.Progress(chi.URLParam(r, "styleID"), idx, time.Now())
	writeJSON(w, http.StatusOK, map[string]any{
		"generating":        prog.Generating,
		"remaining_seconds": prog.RemainingSeconds,
		"error":             prog.Error,
	})
}

// ---- merge handlers ----

func (s *Server) handleMergeToggle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	selected := s.genUC.ToggleMergeSelection(chi.URLParam(r, "styleID"), req.URL)
	writeJSON(w, http.StatusOK, map[string]bool{"selected": selected})
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	if err := s.genUC.MergeSelected(r.Context(), chi.URLParam(r, "styleID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleMergeState(w http.ResponseWriter, r *http.Request) {
	st := s.genUC.MergeState(chi.URLParam(r, "styleID"))
	resp := map[string]any{"selected_urls": st.SelectedURLs}
	if st.Outcome != nil {
		resp["state"] = string(st.Outcome.State)
		resp["merged_url"] = st.Outcome.MergedURL
		resp["error"] = st.Outcome.Error
	}
	writeJSON(w, http.StatusOK, resp)
}

// ---- scrape handlers ----

func (s *Server) handleStartScrape(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CompetitorID string             `json:"competitor_id"`
		Config       model.ScrapeConfig `json:"config"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	h, err := s.scrapeUC.StartScrape(r.Context(), req.CompetitorID, req.Config)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": h.ID, "state": string(h.State)})
}

func (s *Server) handleScrapeJob(w http.ResponseWriter, r *http.Request) {
	h, ok := s.scrapeUC.JobSnapshot(chi.URLParam(r, "jobID"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown job")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id": h.ID,
		"state":  string(h.State),
		"error":  h.ErrorMessage,
	})
}

func (s *Server) handleStartBulkScrape(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CompetitorIDs []string           `json:"competitor_ids"`
		Config        model.ScrapeConfig `json:"config"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	batchID, err := s.scrapeUC.StartBulkScrape(r.Context(), req.CompetitorIDs, req.Config)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"batch_id": batchID})
}

func (s *Server) handleBatchSummary(w http.ResponseWriter, r *http.Request) {
	sum, ok := s.scrapeUC.BatchSummary(chi.URLParam(r, "batchID"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown batch")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":          sum.Total,
		"pending":        sum.Pending,
		"running":        sum.Running,
		"succeeded":      sum.Succeeded,
		"failed":         sum.Failed,
		"overall_status": string(sum.Overall),
	})
}

func (s *Server) handleScrapeHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	recs, err := s.scrapeUC.History(r.Context(), chi.URLParam(r, "bucket"), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// ---- helpers ----

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrInsufficientSelection):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNoSessionLoaded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrPromptUpdateRejected):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrSubmissionFailed),
		errors.Is(err, domain.ErrGenerationFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
