package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dipwatch/internal/domain/model"
)

// Webhook POSTs the composed alert payload to the external delivery
// collaborator. The caller treats Send as fire-and-forget; a non-2xx
// response is an error for the log, nothing more.
type Webhook struct {
	url  string
	http *http.Client
}

func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Webhook{
		url:  strings.TrimSpace(url),
		http: &http.Client{Timeout: timeout},
	}
}

func (w *Webhook) Send(ctx context.Context, p model.AlertPayload) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("notify: deliver %s/%s: %w", p.Symbol, p.Level, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notify: delivery endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Noop discards payloads; used when no delivery endpoint is configured.
type Noop struct{}

func (Noop) Send(context.Context, model.AlertPayload) error { return nil }
