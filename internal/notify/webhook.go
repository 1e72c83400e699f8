// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pdiddy/html-converter/pkg/types"
)

// RunIDHeader carries the run ID on webhook requests.
const RunIDHeader = "X-Run-ID"

// Webhook posts run summaries to a configured endpoint.
type Webhook struct {
	client    *http.Client
	url       string
	userAgent string
}

// NewWebhook returns a Webhook for cfg, or nil when no endpoint is set.
func NewWebhook(cfg types.NotifyConfig) *Webhook {
	if cfg.WebhookURL == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = types.DefaultWebhookTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = types.DefaultUserAgent
	}
	return &Webhook{
		client:    &http.Client{Timeout: timeout},
		url:       cfg.WebhookURL,
		userAgent: ua,
	}
}

// URL returns the endpoint.
func (w *Webhook) URL() string { return w.url }

// Send POSTs the summary payload once. Transport errors and non-2xx
// responses are returned; the request is never retried.
func (w *Webhook) Send(ctx context.Context, s *Summary) error {
	body, err := json.Marshal(s.Payload())
	if err != nil {
		return fmt.Errorf("encoding webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", w.userAgent)
	if s.RunID != "" {
		req.Header.Set(RunIDHeader, s.RunID)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}
