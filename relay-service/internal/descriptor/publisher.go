// Package descriptor publishes the relay descriptor document panels poll.
package descriptor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/acidjurassic/isla-toxica-commands/pkg/log"
	"github.com/acidjurassic/isla-toxica-commands/pkg/storage"
	"github.com/acidjurassic/isla-toxica-commands/relay-service/internal/domain"
)

// ErrEmptyURL is returned when asked to publish an empty endpoint.
var ErrEmptyURL = errors.New("descriptor url is empty")

// Publisher writes the descriptor to object storage.
type Publisher struct {
	store storage.Storage
	key   string
}

func NewPublisher(store storage.Storage, key string) *Publisher {
	if key == "" {
		key = "current.json"
	}
	return &Publisher{store: store, key: key}
}

// Publish replaces the descriptor with url.
func (p *Publisher) Publish(ctx context.Context, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return ErrEmptyURL
	}

	data, err := json.Marshal(domain.Descriptor{URL: url})
	if err != nil {
		return fmt.Errorf("failed to marshal descriptor: %w", err)
	}

	if err := p.store.Write(ctx, p.key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return fmt.Errorf("failed to write descriptor: %w", err)
	}

	l := log.Ctx(ctx)
	ev := l.Info().Str(log.FieldEndpoint, url).Str("key", p.key)
	if public := p.store.PublicURL(p.key); public != "" {
		ev = ev.Str("public_url", public)
	}
	ev.Msg("relay descriptor published")
	return nil
}

// Current reads the published descriptor back.
func (p *Publisher) Current(ctx context.Context) (*domain.Descriptor, error) {
	rc, err := p.store.Read(ctx, p.key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var d domain.Descriptor
	if err := json.NewDecoder(rc).Decode(&d); err != nil {
		return nil, fmt.Errorf("failed to decode descriptor: %w", err)
	}
	return &d, nil
}
