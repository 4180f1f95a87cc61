package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/acidjurassic/isla-toxica-commands/pkg/identity"
	"github.com/acidjurassic/isla-toxica-commands/pkg/response"
)

// Guard is the HTTP trigger path.
type Guard interface {
	Trigger(ctx context.Context, token, actionID string) (*response.TriggerAccepted, error)
}

// HTTPGuard calls the guard's POST /api/trigger.
type HTTPGuard struct {
	endpoint string
	client   *http.Client
}

func NewHTTPGuard(baseURL string, timeout time.Duration) *HTTPGuard {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPGuard{
		endpoint: strings.TrimRight(baseURL, "/") + "/api/trigger",
		client:   &http.Client{Timeout: timeout},
	}
}

func (g *HTTPGuard) Trigger(ctx context.Context, token, actionID string) (*response.TriggerAccepted, error) {
	body, err := json.Marshal(map[string]string{"actionId": actionID})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &GuardError{Kind: NetworkError, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", identity.AuthorizationHeader(token))

	res, err := g.client.Do(req)
	if err != nil {
		return nil, &GuardError{Kind: NetworkError, Err: err}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if err != nil {
		return nil, &GuardError{Kind: NetworkError, StatusCode: res.StatusCode, Err: err}
	}

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		var accepted response.TriggerAccepted
		if err := json.Unmarshal(data, &accepted); err != nil {
			return nil, &GuardError{Kind: NetworkError, StatusCode: res.StatusCode, Err: fmt.Errorf("malformed guard reply: %w", err)}
		}
		return &accepted, nil
	}

	ge := &GuardError{Kind: kindForStatus(res.StatusCode), StatusCode: res.StatusCode}
	var envelope response.Response
	if json.Unmarshal(data, &envelope) == nil && envelope.Error != nil {
		ge.Message = envelope.Error.Message
		ge.RetryAfter = time.Duration(envelope.Error.RetryAfterMs) * time.Millisecond
	}
	return nil, ge
}

func kindForStatus(code int) Kind {
	switch {
	case code == http.StatusUnauthorized:
		return Unauthenticated
	case code == http.StatusTooManyRequests:
		return RateLimited
	case code >= 500:
		return DownstreamFailure
	default:
		return BadRequest
	}
}
