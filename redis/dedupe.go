package redis

import (
	"context"
	"time"

	"github.com/kbukum/audiotranscriber/coordinator"
	apperrors "github.com/kbukum/audiotranscriber/errors"
)

// Mark is stored under each emitted record's fingerprint.
type Mark struct {
	MarkedAt time.Time `json:"marked_at"`
	Service  string    `json:"service,omitempty"`
}

// Deduper remembers record fingerprints in Redis for a TTL.
type Deduper struct {
	store   *TypedStore[Mark]
	ttl     time.Duration
	service string
	now     func() time.Time
}

var _ coordinator.Deduper = (*Deduper)(nil)

// NewDeduper creates a Deduper using the client's key prefix and TTL.
func NewDeduper(client *Client, service string) *Deduper {
	cfg := client.Config()
	return &Deduper{
		store:   NewTypedStore[Mark](client, cfg.KeyPrefix),
		ttl:     cfg.TTLDuration(),
		service: service,
		now:     time.Now,
	}
}

// Seen reports whether key was marked within the TTL.
func (d *Deduper) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := d.store.Exists(ctx, key)
	if err != nil {
		return false, apperrors.ServiceUnavailable("dedupe store").WithCause(err)
	}
	return ok, nil
}

// Mark records key as emitted.
func (d *Deduper) Mark(ctx context.Context, key string) error {
	m := Mark{MarkedAt: d.now().UTC(), Service: d.service}
	if err := d.store.Save(ctx, key, &m, d.ttl); err != nil {
		return apperrors.ServiceUnavailable("dedupe store").WithCause(err)
	}
	return nil
}

// Lookup returns the stored mark for key, or nil when absent.
func (d *Deduper) Lookup(ctx context.Context, key string) (*Mark, error) {
	return d.store.Load(ctx, key)
}

// Forget removes key so the record is processed again on redelivery.
func (d *Deduper) Forget(ctx context.Context, key string) error {
	return d.store.Delete(ctx, key)
}
