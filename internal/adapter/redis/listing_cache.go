package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/FayezAlshami/DTC/internal/domain/entity"
	"github.com/FayezAlshami/DTC/internal/platform/logger"
	"github.com/FayezAlshami/DTC/internal/repository"
	"github.com/redis/go-redis/v9"
)

const listingKeyPrefix = "listing:"

// ListingCache keeps serialized listings in Redis for the public browse
// surface. Entries are deleted on every committed transition, so a cache
// hit is at worst one invalidation behind the primary store.
type ListingCache struct {
	client *redis.Client
	logger logger.Logger
}

func NewListingCache(client *redis.Client, log logger.Logger) *ListingCache {
	return &ListingCache{client: client, logger: log}
}

func (c *ListingCache) Get(ctx context.Context, listingID string) (*entity.Listing, error) {
	data, err := c.client.Get(ctx, listingKeyPrefix+listingID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		c.logger.Errorf("Failed to read listing %s from cache: %v", listingID, err)
		return nil, fmt.Errorf("failed to read listing from cache: %w", err)
	}

	var listing entity.Listing
	if err := json.Unmarshal(data, &listing); err != nil {
		// Stale or corrupt entry, drop it and fall back to the store.
		_ = c.client.Del(ctx, listingKeyPrefix+listingID).Err()
		return nil, repository.ErrNotFound
	}
	return &listing, nil
}

func (c *ListingCache) Set(ctx context.Context, listing *entity.Listing, ttl time.Duration) error {
	data, err := json.Marshal(listing)
	if err != nil {
		return fmt.Errorf("failed to marshal listing for cache: %w", err)
	}
	if err := c.client.Set(ctx, listingKeyPrefix+listing.ID, data, ttl).Err(); err != nil {
		c.logger.Errorf("Failed to cache listing %s: %v", listing.ID, err)
		return fmt.Errorf("failed to cache listing: %w", err)
	}
	return nil
}

func (c *ListingCache) Delete(ctx context.Context, listingID string) error {
	if err := c.client.Del(ctx, listingKeyPrefix+listingID).Err(); err != nil {
		c.logger.Errorf("Failed to invalidate listing %s in cache: %v", listingID, err)
		return fmt.Errorf("failed to invalidate listing cache: %w", err)
	}
	return nil
}
