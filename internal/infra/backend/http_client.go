package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"competitor-ad-studio/internal/domain/model"
	"competitor-ad-studio/internal/domain/ports/adapter"
)

var (
	_ adapter.CreativeBackend = (*Client)(nil)
	_ adapter.ScrapeBackend   = (*Client)(nil)
)

// Client implements both backend ports over the remote REST API. The API is a
// black box: the client only submits jobs, polls status and saves artifacts.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("backend base url empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid backend base url: %w", err)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// do posts/gets JSON and decodes into out. Error classification drives the
// poll loops' retry policy: network failures and 5xx are transient, 4xx and
// undecodable payloads are definitive.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return adapter.Definitive(op, err)
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return adapter.Definitive(op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err) // transient
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%s: backend returned %d", op, resp.StatusCode) // transient
	}
	if resp.StatusCode >= 400 {
		return adapter.Definitive(op, fmt.Errorf("backend returned %d", resp.StatusCode))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return adapter.Definitive(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// ---- CreativeBackend ----

func (c *Client) CreateSession(ctx context.Context, req adapter.SessionRequest) (*adapter.SessionPayload, error) {
	payload := map[string]any{
		"script":    req.Script,
		"style_ids": req.StyleIDs,
		"models": map[string]any{
			"brief_model":  req.Models.BriefModel,
			"video_model":  req.Models.VideoModel,
			"aspect_ratio": req.Models.AspectRatio,
			"seed":         req.Models.Seed,
		},
	}
	if req.CharacterRef != "" {
		payload["character_ref"] = req.CharacterRef
	}
	if req.CustomInstruction != "" {
		payload["custom_instruction"] = req.CustomInstruction
	}
	var out adapter.SessionPayload
	if err := c.do(ctx, "create session", http.MethodPost, "/api/v1/sessions", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SubmitGeneration(ctx context.Context, req adapter.GenerationRequest) (string, error) {
	payload := map[string]any{
		"prompt":       req.Prompt,
		"aspect_ratio": req.AspectRatio,
		"model_key":    req.ModelKey,
		"seed":         req.Seed,
	}
	var out struct {
		Success bool   `json:"success"`
		JobID   string `json:"job_id"`
		Error   string `json:"error"`
	}
	if err := c.do(ctx, "submit generation", http.MethodPost, "/api/v1/generation-jobs", payload, &out); err != nil {
		return "", err
	}
	if !out.Success || out.JobID == "" {
		return "", adapter.Definitive("submit generation", fmt.Errorf("backend rejected job: %s", out.Error))
	}
	return out.JobID, nil
}

func (c *Client) PollJobStatus(ctx context.Context, jobID string) (adapter.JobStatus, error) {
	var out struct {
		State  string `json:"state"`
		Result *struct {
			URL string `json:"url"`
		} `json:"result"`
		Error string `json:"error"`
	}
	if err := c.do(ctx, "poll job status", http.MethodGet, "/api/v1/jobs/"+url.PathEscape(jobID), nil, &out); err != nil {
		return adapter.JobStatus{}, err
	}
	st := adapter.JobStatus{State: CanonicalState(out.State), Error: out.Error}
	if out.Result != nil {
		st.ResultURL = out.Result.URL
	}
	return st, nil
}

func (c *Client) SaveVideoToSegment(ctx context.Context, segmentID string, v adapter.SavedVideo) error {
	payload := map[string]any{
		"url":                v.URL,
		"prompt_used":        v.PromptUsed,
		"model_key":          v.ModelKey,
		"aspect_ratio":       v.AspectRatio,
		"seed":               v.Seed,
		"generation_seconds": v.GenerationSeconds,
	}
	return c.do(ctx, "save video", http.MethodPost, "/api/v1/segments/"+url.PathEscape(segmentID)+"/videos", payload, nil)
}

func (c *Client) UpdateSegmentPrompt(ctx context.Context, segmentID, newText string) (string, error) {
	payload := map[string]string{"prompt": newText}
	var out struct {
		CurrentPrompt string `json:"current_prompt"`
	}
	if err := c.do(ctx, "update prompt", http.MethodPut, "/api/v1/segments/"+url.PathEscape(segmentID)+"/prompt", payload, &out); err != nil {
		return "", err
	}
	return out.CurrentPrompt, nil
}

func (c *Client) MergeClips(ctx context.Context, urls []string, outputName string) (string, error) {
	payload := map[string]any{"urls": urls, "output_name": outputName}
	var out struct {
		Success   bool   `json:"success"`
		MergedURL string `json:"merged_url"`
		Error     string `json:"error"`
	}
	if err := c.do(ctx, "merge clips", http.MethodPost, "/api/v1/merges", payload, &out); err != nil {
		return "", err
	}
	if !out.Success || out.MergedURL == "" {
		return "", fmt.Errorf("merge rejected: %s", out.Error)
	}
	return out.MergedURL, nil
}

// ---- ScrapeBackend ----

func (c *Client) SubmitScrape(ctx context.Context, competitorID string, cfg model.ScrapeConfig) (string, error) {
	payload := map[string]any{"competitor_id": competitorID, "config": cfg}
	var out struct {
		JobID string `json:"job_id"`
	}
	if err := c.do(ctx, "submit scrape", http.MethodPost, "/api/v1/scrape-jobs", payload, &out); err != nil {
		return "", err
	}
	if out.JobID == "" {
		return "", adapter.Definitive("submit scrape", errors.New("backend returned no job id"))
	}
	return out.JobID, nil
}

func (c *Client) SubmitBulkScrape(ctx context.Context, competitorIDs []string, cfg model.ScrapeConfig) (*adapter.BulkSubmission, error) {
	payload := map[string]any{"competitor_ids": competitorIDs, "config": cfg}
	var out struct {
		JobIDs    []string `json:"job_ids"`
		StartedOK []bool   `json:"started_ok"`
	}
	if err := c.do(ctx, "submit bulk scrape", http.MethodPost, "/api/v1/scrape-jobs/bulk", payload, &out); err != nil {
		return nil, err
	}
	if len(out.JobIDs) != len(out.StartedOK) {
		return nil, adapter.Definitive("submit bulk scrape", errors.New("mismatched job_ids/started_ok lengths"))
	}
	return &adapter.BulkSubmission{JobIDs: out.JobIDs, StartedOK: out.StartedOK}, nil
}

// CanonicalState collapses backend-specific state spellings onto the
// canonical set.
func CanonicalState(s string) model.JobState {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending", "queued", "created":
		return model.JobStatePending
	case "running", "processing", "in_progress", "started":
		return model.JobStateRunning
	case "succeeded", "success", "completed", "done", "finished":
		return model.JobStateSucceeded
	case "failed", "error", "cancelled", "canceled":
		return model.JobStateFailed
	default:
		// Unknown spellings are treated as still running rather than
		// terminal, so a new backend state never ends a job early.
		return model.JobStateRunning
	}
}
