package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"competitor-ad-studio/internal/domain/ports/adapter"
)

var (
	_ adapter.CompetitorNotifier = (*NoopNotifier)(nil)
	_ adapter.CompetitorNotifier = (*WebhookNotifier)(nil)
)

// NoopNotifier logs the reload signal and drops it. Used when no webhook is
// configured and in tests.
type NoopNotifier struct {
	Log *zerolog.Logger
}

func (n *NoopNotifier) CompetitorDataChanged(_ context.Context, competitorID string) {
	if n.Log != nil {
		n.Log.Info().Str("competitor_id", competitorID).Msg("competitor data changed (no webhook configured)")
	}
}

// WebhookNotifier posts the reload signal to a configured URL. Delivery is
// best-effort: failures are logged, never retried.
type WebhookNotifier struct {
	url    string
	client *http.Client
	log    *zerolog.Logger
}

func NewWebhookNotifier(url string, log *zerolog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

func (n *WebhookNotifier) CompetitorDataChanged(ctx context.Context, competitorID string) {
	b, _ := json.Marshal(map[string]string{"event": "competitor_data_changed", "competitor_id": competitorID})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(b))
	if err != nil {
		n.log.Error().Err(err).Msg("build webhook request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Warn().Err(err).Str("competitor_id", competitorID).Msg("webhook delivery failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		n.log.Warn().Int("status", resp.StatusCode).Str("competitor_id", competitorID).Msg("webhook rejected")
	}
}
