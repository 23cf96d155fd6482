// Package lockevents fans committed note changes out to other sessions of
// the same campaign through Redis pub/sub. Each campaign also keeps a short
// capped backlog so a reconnecting client can catch up.
package lockevents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/heartmarshall/campaign-notes/internal/domain"
)

const (
	defaultPrefix  = "notes"
	defaultBacklog = 100
	backlogTTL     = 24 * time.Hour
)

// Publisher publishes note events to Redis.
type Publisher struct {
	client  redis.UniversalClient
	prefix  string
	backlog int64
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithPrefix sets the key and channel prefix.
func WithPrefix(prefix string) Option {
	return func(p *Publisher) {
		if prefix != "" {
			p.prefix = prefix
		}
	}
}

// WithBacklog sets how many recent events are kept per campaign.
func WithBacklog(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.backlog = int64(n)
		}
	}
}

// New creates a Publisher on an existing client.
func New(client redis.UniversalClient, opts ...Option) *Publisher {
	p := &Publisher{client: client, prefix: defaultPrefix, backlog: defaultBacklog}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Channel returns the pub/sub channel for a campaign.
func (p *Publisher) Channel(campaignID uuid.UUID) string {
	return p.prefix + ":campaign:" + campaignID.String()
}

func (p *Publisher) backlogKey(campaignID uuid.UUID) string {
	return p.Channel(campaignID) + ":recent"
}

// Publish sends ev to the campaign channel and appends it to the backlog.
func (p *Publisher) Publish(ctx context.Context, ev domain.NoteEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal note event: %w", err)
	}

	key := p.backlogKey(ev.CampaignID)
	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Publish(ctx, p.Channel(ev.CampaignID), payload)
		pipe.LPush(ctx, key, payload)
		pipe.LTrim(ctx, key, 0, p.backlog-1)
		pipe.Expire(ctx, key, backlogTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish note event: %w", err)
	}
	return nil
}

// Recent returns up to limit of the newest events of a campaign, newest
// first. Entries that fail to decode are skipped.
func (p *Publisher) Recent(ctx context.Context, campaignID uuid.UUID, limit int) ([]domain.NoteEvent, error) {
	if limit <= 0 || int64(limit) > p.backlog {
		limit = int(p.backlog)
	}

	raw, err := p.client.LRange(ctx, p.backlogKey(campaignID), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read note events: %w", err)
	}

	out := make([]domain.NoteEvent, 0, len(raw))
	for _, r := range raw {
		var ev domain.NoteEvent
		if err := json.Unmarshal([]byte(r), &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// Ping checks the connection.
func (p *Publisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Noop discards events. It is used when Redis is not configured.
type Noop struct{}

func (Noop) Publish(context.Context, domain.NoteEvent) error { return nil }

func (Noop) Recent(context.Context, uuid.UUID, int) ([]domain.NoteEvent, error) {
	return []domain.NoteEvent{}, nil
}
