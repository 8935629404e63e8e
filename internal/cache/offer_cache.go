// Package cache keeps recently read offers in Redis for the validity read path.
// Capacity counters are never served from here.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/bogo-voucher/internal/metrics"
	"github.com/fairyhunter13/bogo-voucher/internal/model"
)

const keyPrefix = "offer:"

// OfferCache stores offers as JSON under offer:<id>.
type OfferCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewOfferCache creates an OfferCache. A non-positive ttl falls back to one minute.
func NewOfferCache(client redis.Cmdable, ttl time.Duration) *OfferCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &OfferCache{client: client, ttl: ttl}
}

// Key returns the Redis key of an offer.
func Key(id uuid.UUID) string {
	return keyPrefix + id.String()
}

// Get returns the cached offer, or nil, nil on a miss.
func (c *OfferCache) Get(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	data, err := c.client.Get(ctx, Key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.Cache(metrics.CacheMiss)
			return nil, nil
		}
		metrics.Cache(metrics.CacheError)
		return nil, fmt.Errorf("get cached offer %s: %w", id, err)
	}

	var offer model.Offer
	if err := json.Unmarshal(data, &offer); err != nil {
		metrics.Cache(metrics.CacheError)
		return nil, fmt.Errorf("decode cached offer %s: %w", id, err)
	}
	metrics.Cache(metrics.CacheHit)
	return &offer, nil
}

// Set stores offer for the configured TTL.
func (c *OfferCache) Set(ctx context.Context, offer *model.Offer) error {
	data, err := json.Marshal(offer)
	if err != nil {
		return fmt.Errorf("encode offer %s: %w", offer.ID, err)
	}
	if err := c.client.Set(ctx, Key(offer.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache offer %s: %w", offer.ID, err)
	}
	return nil
}

// Invalidate drops the cached offer.
func (c *OfferCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	if err := c.client.Del(ctx, Key(id)).Err(); err != nil {
		return fmt.Errorf("invalidate offer %s: %w", id, err)
	}
	return nil
}

// Nop is used when Redis is disabled. Every Get is a miss.
type Nop struct{}

func (Nop) Get(context.Context, uuid.UUID) (*model.Offer, error) { return nil, nil }
func (Nop) Set(context.Context, *model.Offer) error               { return nil }
func (Nop) Invalidate(context.Context, uuid.UUID) error           { return nil }
