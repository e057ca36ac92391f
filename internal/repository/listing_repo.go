package repository

import (
	"context"

	"github.com/FayezAlshami/DTC/internal/domain/entity"
)

// UpdateListingStateParams carries one committed lifecycle transition.
// Version is the value read before the transition; the store must refuse
// the write when it no longer matches (optimistic concurrency).
type UpdateListingStateParams struct {
	ListingID      string
	Status         entity.ListingStatus
	ChannelPostRef string
	Version        int
}

type UpdateListingContentParams struct {
	ListingID   string
	Title       string
	Description string
	Pricing     entity.Pricing
	Media       *entity.Media
	Version     int
}

type ListListingsParams struct {
	Kind           entity.ListingKind
	OwnerID        string
	Status         entity.ListingStatus
	Specialization string
	MinPrice       float64
	MaxPrice       float64
	Page           int
	PageSize       int
}

type ListListingsResult struct {
	Listings   []entity.Listing
	TotalCount int64
}

type ListingRepository interface {
	Create(ctx context.Context, listing *entity.Listing) (string, error)
	GetByID(ctx context.Context, listingID string) (*entity.Listing, error)
	UpdateState(ctx context.Context, params UpdateListingStateParams) error
	UpdateContent(ctx context.Context, params UpdateListingContentParams) error
	List(ctx context.Context, params ListListingsParams) (*ListListingsResult, error)
	CountByStatus(ctx context.Context) (map[entity.ListingStatus]int64, error)
}
