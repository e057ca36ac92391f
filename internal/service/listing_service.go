package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/FayezAlshami/DTC/internal/app/config"
	"github.com/FayezAlshami/DTC/internal/domain/entity"
	"github.com/FayezAlshami/DTC/internal/platform/logger"
	"github.com/FayezAlshami/DTC/internal/platform/metrics"
	"github.com/FayezAlshami/DTC/internal/repository"
	"github.com/FayezAlshami/DTC/internal/service/effect"
)

// Notification kinds handed to the delivery queue.
const (
	NotifyModerationRequested  = "MODERATION_REQUESTED"
	NotifyListingPublished     = "LISTING_PUBLISHED"
	NotifyListingRejected      = "LISTING_REJECTED"
	NotifyListingPublishFailed = "LISTING_PUBLISH_FAILED"
	NotifyListingExpired       = "LISTING_EXPIRED"
	NotifyContactRequested     = "CONTACT_REQUESTED"
	NotifyContactAccepted      = "CONTACT_ACCEPTED"
	NotifyContactRejected      = "CONTACT_REJECTED"
)

// MediaStore is the attachment storage the listing service depends on.
type MediaStore interface {
	Upload(ctx context.Context, listingID string, reader io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, objectKey string) error
}

type CreateDraftInput struct {
	Kind                   entity.ListingKind
	Title                  string
	Description            string
	Pricing                entity.Pricing
	AllowedSpecializations []string
	PreferredGender        entity.Gender
}

type UpdateDraftInput struct {
	Title       string
	Description string
	Pricing     entity.Pricing
}

type BrowseParams struct {
	Kind           entity.ListingKind
	Specialization string
	MinPrice       float64
	MaxPrice       float64
	Page           int
	PageSize       int
}

type ListingService struct {
	listings    repository.ListingRepository
	users       repository.UserReader
	cache       repository.ListingCache
	media       MediaStore
	coordinator *effect.Coordinator
	metrics     *metrics.Manager
	logger      logger.Logger
	cfg         config.ListingConfig
}

func NewListingService(
	listings repository.ListingRepository,
	users repository.UserReader,
	cache repository.ListingCache,
	media MediaStore,
	coordinator *effect.Coordinator,
	m *metrics.Manager,
	log logger.Logger,
	cfg config.ListingConfig,
) *ListingService {
	return &ListingService{
		listings:    listings,
		users:       users,
		cache:       cache,
		media:       media,
		coordinator: coordinator,
		metrics:     m,
		logger:      log,
		cfg:         cfg,
	}
}

// CreateDraft creates a new listing in DRAFT for the owner. An Offer
// inherits the owner's specialization; an Ask carries the allowed set and
// an optional preferred gender.
func (s *ListingService) CreateDraft(ctx context.Context, ownerID string, input CreateDraftInput) (*entity.Listing, error) {
	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, entity.ErrUserNotFound
		}
		return nil, err
	}
	if !owner.ProfileCompleted {
		return nil, entity.NewEligibilityError(entity.ReasonProfileIncomplete)
	}
	if !owner.IsActive {
		return nil, entity.NewEligibilityError(entity.ReasonUserInactive)
	}

	listing := entity.NewListing(input.Kind, ownerID, input.Title, input.Description, input.Pricing)

	switch input.Kind {
	case entity.KindOffer:
		if !owner.IsProvider {
			return nil, entity.NewEligibilityError(entity.ReasonNotProvider)
		}
		if strings.TrimSpace(owner.Specialization) == "" {
			return nil, entity.NewEligibilityError(entity.ReasonSpecializationMissing)
		}
		listing.Specialization = owner.Specialization
	case entity.KindAsk:
		listing.AllowedSpecializations = input.AllowedSpecializations
		listing.PreferredGender = input.PreferredGender
	}

	if err := listing.ValidateContent(); err != nil {
		return nil, err
	}

	id, err := s.listings.Create(ctx, listing)
	if err != nil {
		return nil, err
	}
	listing.ID = id
	s.logger.Infof("Created %s draft %s for owner %s", listing.Kind, id, ownerID)
	return listing, nil
}

// UpdateDraft replaces the content of a DRAFT listing. Published and
// terminal listings are immutable.
func (s *ListingService) UpdateDraft(ctx context.Context, actorID, listingID string, input UpdateDraftInput) (*entity.Listing, error) {
	listing, err := s.getOwned(ctx, actorID, listingID, "edit listing")
	if err != nil {
		return nil, err
	}
	if listing.Status != entity.StatusDraft {
		return nil, entity.NewStateError(string(listing.Status), "editContent")
	}

	listing.Title = strings.TrimSpace(input.Title)
	listing.Description = strings.TrimSpace(input.Description)
	listing.Pricing = input.Pricing
	if err := listing.ValidateContent(); err != nil {
		return nil, err
	}

	err = s.listings.UpdateContent(ctx, repository.UpdateListingContentParams{
		ListingID:   listingID,
		Title:       listing.Title,
		Description: listing.Description,
		Pricing:     listing.Pricing,
		Version:     listing.Version,
	})
	if err != nil {
		return nil, err
	}
	listing.Version++
	return listing, nil
}

// AttachMedia uploads one attachment and binds it to a DRAFT listing. The
// tighter caption limit applies once media is attached, so the content is
// re-validated with the attachment in place.
func (s *ListingService) AttachMedia(ctx context.Context, actorID, listingID string, reader io.Reader, size int64, contentType string, mediaType entity.MediaType) (*entity.Listing, error) {
	listing, err := s.getOwned(ctx, actorID, listingID, "attach media")
	if err != nil {
		return nil, err
	}
	if listing.Status != entity.StatusDraft {
		return nil, entity.NewStateError(string(listing.Status), "attachMedia")
	}
	if mediaType != entity.MediaPhoto && mediaType != entity.MediaVideo {
		return nil, entity.NewValidationError("media", "media type must be photo or video")
	}

	objectKey, err := s.media.Upload(ctx, listingID, reader, size, contentType)
	if err != nil {
		return nil, err
	}

	previous := listing.Media
	listing.Media = &entity.Media{ObjectKey: objectKey, Type: mediaType}
	if err := listing.ValidateContent(); err != nil {
		// The upload is orphaned if the caption no longer fits.
		if removeErr := s.media.Remove(ctx, objectKey); removeErr != nil {
			s.logger.Warnf("Failed to remove orphaned media %s: %v", objectKey, removeErr)
		}
		return nil, err
	}

	err = s.listings.UpdateContent(ctx, repository.UpdateListingContentParams{
		ListingID:   listingID,
		Title:       listing.Title,
		Description: listing.Description,
		Pricing:     listing.Pricing,
		Media:       listing.Media,
		Version:     listing.Version,
	})
	if err != nil {
		if removeErr := s.media.Remove(ctx, objectKey); removeErr != nil {
			s.logger.Warnf("Failed to remove orphaned media %s: %v", objectKey, removeErr)
		}
		return nil, err
	}
	listing.Version++

	if previous != nil {
		if err := s.media.Remove(ctx, previous.ObjectKey); err != nil {
			s.logger.Warnf("Failed to remove replaced media %s: %v", previous.ObjectKey, err)
		}
	}
	return listing, nil
}

// Submit moves a DRAFT listing into the moderation queue. Content rules
// gate the transition: invalid content never reaches moderators.
func (s *ListingService) Submit(ctx context.Context, actorID, listingID string) (*entity.Listing, error) {
	listing, err := s.getOwned(ctx, actorID, listingID, "submit listing")
	if err != nil {
		return nil, err
	}
	if err := listing.ValidateContent(); err != nil {
		return nil, err
	}
	if err := listing.Transition(entity.EventSubmit); err != nil {
		return nil, err
	}

	err = s.listings.UpdateState(ctx, repository.UpdateListingStateParams{
		ListingID: listingID,
		Status:    listing.Status,
		Version:   listing.Version,
	})
	if err != nil {
		return nil, err
	}
	listing.Version++

	// Announce the new queue entry; delivery workers route it to the
	// moderation channel (empty UserID means broadcast).
	notifyKey := effect.Key("listing", listingID, listing.Version, "notifyModeration")
	err = s.coordinator.NotifyUser(ctx, notifyKey, effect.Notification{
		Kind: NotifyModerationRequested,
		Payload: map[string]string{
			"listing_id": listingID,
			"kind":       string(listing.Kind),
			"title":      listing.Title,
		},
	})
	if err != nil {
		s.logger.Errorf("Failed to announce moderation request for listing %s: %v", listingID, err)
	}

	s.metrics.ListingsSubmittedTotal.Inc()
	s.logger.Infof("Listing %s submitted for moderation by %s", listingID, actorID)
	return listing, nil
}

// Withdraw takes the owner's PUBLISHED listing off the marketplace and
// retracts the public post.
func (s *ListingService) Withdraw(ctx context.Context, actorID, listingID string) (*entity.Listing, error) {
	listing, err := s.getOwned(ctx, actorID, listingID, "withdraw listing")
	if err != nil {
		return nil, err
	}

	postRef := listing.ChannelPostRef
	if err := listing.Transition(entity.EventOwnerWithdraw); err != nil {
		return nil, err
	}

	err = s.listings.UpdateState(ctx, repository.UpdateListingStateParams{
		ListingID: listingID,
		Status:    listing.Status,
		Version:   listing.Version,
	})
	if err != nil {
		return nil, err
	}
	listing.Version++

	if err := s.cache.Delete(ctx, listingID); err != nil {
		s.logger.Warnf("Failed to invalidate cache for listing %s: %v", listingID, err)
	}
	if err := s.coordinator.RetractListing(ctx, listing, postRef); err != nil {
		s.logger.Errorf("Failed to retract post for withdrawn listing %s: %v", listingID, err)
	}
	s.logger.Infof("Listing %s withdrawn by owner %s", listingID, actorID)
	return listing, nil
}

// Expire times out a PUBLISHED listing that outlived its TTL. Driven by
// the external scheduler, not by user action.
func (s *ListingService) Expire(ctx context.Context, listingID string) (*entity.Listing, error) {
	listing, err := s.getListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if age := time.Since(listing.UpdatedAt); age < s.cfg.PublishedTTL {
		return nil, entity.NewStateError(string(listing.Status), string(entity.EventTimeout))
	}

	postRef := listing.ChannelPostRef
	if err := listing.Transition(entity.EventTimeout); err != nil {
		return nil, err
	}

	err = s.listings.UpdateState(ctx, repository.UpdateListingStateParams{
		ListingID: listingID,
		Status:    listing.Status,
		Version:   listing.Version,
	})
	if err != nil {
		return nil, err
	}
	listing.Version++

	if err := s.cache.Delete(ctx, listingID); err != nil {
		s.logger.Warnf("Failed to invalidate cache for listing %s: %v", listingID, err)
	}
	if err := s.coordinator.RetractListing(ctx, listing, postRef); err != nil {
		s.logger.Errorf("Failed to retract post for expired listing %s: %v", listingID, err)
	}

	notifyKey := effect.Key("listing", listingID, listing.Version, "notifyExpired")
	err = s.coordinator.NotifyUser(ctx, notifyKey, effect.Notification{
		UserID:  listing.OwnerID,
		Kind:    NotifyListingExpired,
		Payload: map[string]string{"listing_id": listingID, "title": listing.Title},
	})
	if err != nil {
		s.logger.Errorf("Failed to notify owner of expired listing %s: %v", listingID, err)
	}
	s.logger.Infof("Listing %s expired", listingID)
	return listing, nil
}

// GetListing reads one listing, serving PUBLISHED ones from the cache.
func (s *ListingService) GetListing(ctx context.Context, listingID string) (*entity.Listing, error) {
	cached, err := s.cache.Get(ctx, listingID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warnf("Cache read failed for listing %s: %v", listingID, err)
	}

	listing, err := s.getListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.Status == entity.StatusPublished {
		if err := s.cache.Set(ctx, listing, s.cfg.CacheTTL); err != nil {
			s.logger.Warnf("Cache write failed for listing %s: %v", listingID, err)
		}
	}
	return listing, nil
}

// BrowsePublished is the public browse surface: PUBLISHED listings only.
func (s *ListingService) BrowsePublished(ctx context.Context, params BrowseParams) (*repository.ListListingsResult, error) {
	return s.listings.List(ctx, repository.ListListingsParams{
		Kind:           params.Kind,
		Status:         entity.StatusPublished,
		Specialization: params.Specialization,
		MinPrice:       params.MinPrice,
		MaxPrice:       params.MaxPrice,
		Page:           params.Page,
		PageSize:       params.PageSize,
	})
}

// ListOwn returns the owner's listings in every status.
func (s *ListingService) ListOwn(ctx context.Context, ownerID string, page, pageSize int) (*repository.ListListingsResult, error) {
	return s.listings.List(ctx, repository.ListListingsParams{
		OwnerID:  ownerID,
		Page:     page,
		PageSize: pageSize,
	})
}

func (s *ListingService) getListing(ctx context.Context, listingID string) (*entity.Listing, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, entity.ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to load listing %s: %w", listingID, err)
	}
	return listing, nil
}

func (s *ListingService) getOwned(ctx context.Context, actorID, listingID, action string) (*entity.Listing, error) {
	listing, err := s.getListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID != actorID {
		return nil, entity.NewAuthError(actorID, action)
	}
	return listing, nil
}
