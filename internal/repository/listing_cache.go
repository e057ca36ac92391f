package repository

import (
	"context"
	"time"

	"github.com/FayezAlshami/DTC/internal/domain/entity"
)

// ListingCache keeps hot published-listing reads off the primary store.
// Misses return ErrNotFound; entries are invalidated on any transition.
type ListingCache interface {
	Get(ctx context.Context, listingID string) (*entity.Listing, error)
	Set(ctx context.Context, listing *entity.Listing, ttl time.Duration) error
	Delete(ctx context.Context, listingID string) error
}
