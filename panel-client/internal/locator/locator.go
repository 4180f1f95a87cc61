// Package locator resolves where the realtime relay currently lives from a
// small externally hosted descriptor document.
package locator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/acidjurassic/isla-toxica-commands/pkg/log"
)

// ErrEmptyDescriptor is returned when the descriptor has no url.
var ErrEmptyDescriptor = errors.New("relay descriptor has no url")

type descriptor struct {
	URL string `json:"url"`
}

type Locator struct {
	descriptorURL string
	fallback      string
	client        *http.Client
	now           func() time.Time

	mu   sync.Mutex
	last string
}

type Option func(*Locator)

func WithHTTPClient(c *http.Client) Option {
	return func(l *Locator) {
		l.client = c
	}
}

func WithNow(now func() time.Time) Option {
	return func(l *Locator) {
		l.now = now
	}
}

func New(descriptorURL, fallback string, opts ...Option) *Locator {
	l := &Locator{
		descriptorURL: descriptorURL,
		fallback:      fallback,
		client:        &http.Client{Timeout: 10 * time.Second},
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Fetch reads the descriptor once and returns its trimmed url.
func (l *Locator) Fetch(ctx context.Context) (string, error) {
	u, err := url.Parse(l.descriptorURL)
	if err != nil {
		return "", fmt.Errorf("invalid descriptor url: %w", err)
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(l.now().UnixMilli(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Accept", "application/json")

	res, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("descriptor fetch failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("descriptor fetch failed: HTTP %d", res.StatusCode)
	}

	var d descriptor
	if err := json.NewDecoder(io.LimitReader(res.Body, 64<<10)).Decode(&d); err != nil {
		return "", fmt.Errorf("failed to decode descriptor: %w", err)
	}
	endpoint := strings.TrimSpace(d.URL)
	if endpoint == "" {
		return "", ErrEmptyDescriptor
	}
	return endpoint, nil
}

// Resolve fetches the descriptor and returns the normalized endpoint. A
// failed fetch or empty url keeps the last good endpoint, or the fallback
// when none has been seen.
func (l *Locator) Resolve(ctx context.Context) string {
	endpoint, err := l.Fetch(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()

	if err != nil {
		logger := log.Ctx(ctx)
		logger.Warn().Err(err).Str(log.FieldEndpoint, l.current()).Msg("relay descriptor unavailable, keeping previous endpoint")
	} else {
		l.last = endpoint
	}
	return Normalize(l.current())
}

// Last returns the normalized endpoint Resolve would fall back to.
func (l *Locator) Last() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Normalize(l.current())
}

func (l *Locator) current() string {
	if l.last != "" {
		return l.last
	}
	return l.fallback
}

// Normalize maps web schemes onto their socket equivalents.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "https://"):
		return "wss://" + raw[len("https://"):]
	case strings.HasPrefix(lower, "http://"):
		return "ws://" + raw[len("http://"):]
	default:
		return raw
	}
}
