package calendlyrelay

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"collision-site/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultDedupTTL = 24 * time.Hour

	dedupKeyPrefix = "site:webhook:seen:"
)

// Deduper remembers which bookings have already been relayed.
type Deduper struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewDeduper(rdb redis.Cmdable, ttl time.Duration) *Deduper {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &Deduper{rdb: rdb, ttl: ttl}
}

// Claim marks key as seen and reports whether this caller was first.
func (d *Deduper) Claim(ctx context.Context, key string) (bool, error) {
	set, err := d.rdb.SetNX(ctx, dedupKeyPrefix+key, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup SETNX: %w", err)
	}
	return set, nil
}

// Release forgets key so a redelivery is relayed again.
func (d *Deduper) Release(ctx context.Context, key string) error {
	if err := d.rdb.Del(ctx, dedupKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("dedup DEL: %w", err)
	}
	return nil
}

// IdempotencyKey identifies a booking by invitee uuid, then invitee uri,
// then the hash of the raw body.
func IdempotencyKey(event models.SchedulingEvent, body []byte) string {
	if id := event.Payload.Invitee.UUID; id != "" {
		return "uuid:" + id
	}
	if uri := event.Payload.Invitee.URI; uri != "" {
		return "uri:" + uri
	}
	sum := sha256.Sum256(body)
	return "sha256:" + hex.EncodeToString(sum[:])
}
