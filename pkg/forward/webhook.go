package forward

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxErrorBody = 4 << 10

// Webhook POSTs actions as JSON to a bot hook URL.
type Webhook struct {
	url        string
	httpClient *http.Client
}

// NewWebhook creates a webhook forwarder. A zero timeout means 5s.
func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Webhook{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Forward treats any non-2xx response as a failure carrying the response text,
// or the status text when the body is empty.
func (w *Webhook) Forward(ctx context.Context, action Action) error {
	body, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("failed to marshal action: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call bot hook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(text))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &DownstreamError{StatusCode: resp.StatusCode, Message: msg}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Close() error {
	w.httpClient.CloseIdleConnections()
	return nil
}
