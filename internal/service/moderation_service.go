package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FayezAlshami/DTC/internal/domain/entity"
	"github.com/FayezAlshami/DTC/internal/platform/logger"
	"github.com/FayezAlshami/DTC/internal/platform/metrics"
	"github.com/FayezAlshami/DTC/internal/repository"
	"github.com/FayezAlshami/DTC/internal/service/effect"
)

const (
	auditActionApprove = "LISTING_APPROVE"
	auditActionReject  = "LISTING_REJECT"
	auditTargetListing = "listing"
)

type AdminStats struct {
	ListingsByStatus     map[entity.ListingStatus]int64 `json:"listings_by_status"`
	TotalUsers           int64                          `json:"total_users"`
	ActiveUsers          int64                          `json:"active_users"`
	Providers            int64                          `json:"providers"`
	AcceptedNegotiations int64                          `json:"accepted_negotiations"`
}

// ModerationService is the admin-only surface: the moderation gate over
// pending listings, platform stats and the audit log. Every decision
// writes an audit record.
type ModerationService struct {
	listings     repository.ListingRepository
	negotiations repository.NegotiationRepository
	users        repository.UserReader
	audit        repository.AuditRepository
	cache        repository.ListingCache
	coordinator  *effect.Coordinator
	metrics      *metrics.Manager
	logger       logger.Logger
}

func NewModerationService(
	listings repository.ListingRepository,
	negotiations repository.NegotiationRepository,
	users repository.UserReader,
	audit repository.AuditRepository,
	cache repository.ListingCache,
	coordinator *effect.Coordinator,
	m *metrics.Manager,
	log logger.Logger,
) *ModerationService {
	return &ModerationService{
		listings:     listings,
		negotiations: negotiations,
		users:        users,
		audit:        audit,
		cache:        cache,
		coordinator:  coordinator,
		metrics:      m,
		logger:       log,
	}
}

func (s *ModerationService) requireAdmin(ctx context.Context, adminID, action string) (*entity.User, error) {
	admin, err := s.users.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, entity.NewAuthError(adminID, action)
		}
		return nil, err
	}
	if !admin.IsAdmin {
		return nil, entity.NewAuthError(adminID, action)
	}
	return admin, nil
}

// ListPending returns the moderation queue.
func (s *ModerationService) ListPending(ctx context.Context, adminID string, page, pageSize int) (*repository.ListListingsResult, error) {
	if _, err := s.requireAdmin(ctx, adminID, "list pending listings"); err != nil {
		return nil, err
	}
	return s.listings.List(ctx, repository.ListListingsParams{
		Status:   entity.StatusPending,
		Page:     page,
		PageSize: pageSize,
	})
}

// Approve publishes a PENDING listing. The PUBLISHED transition is
// committed before the channel post goes out; if the post then fails, the
// compensating publishFailure transition returns the listing to DRAFT so
// the marketplace never advertises a listing it could not post.
func (s *ModerationService) Approve(ctx context.Context, adminID, listingID string) (*entity.Listing, error) {
	if _, err := s.requireAdmin(ctx, adminID, "approve listing"); err != nil {
		return nil, err
	}

	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, entity.ErrListingNotFound
		}
		return nil, err
	}

	if err := listing.Transition(entity.EventModeratorApprove); err != nil {
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

	s.appendAudit(ctx, adminID, auditActionApprove, listingID, map[string]string{
		"title": listing.Title,
		"kind":  string(listing.Kind),
	})

	postRef, err := s.coordinator.PublishListing(ctx, listing)
	if err != nil {
		return nil, s.compensatePublishFailure(ctx, listing, err)
	}

	err = s.listings.UpdateState(ctx, repository.UpdateListingStateParams{
		ListingID:      listingID,
		Status:         entity.StatusPublished,
		ChannelPostRef: postRef,
		Version:        listing.Version,
	})
	if err != nil {
		s.logger.Errorf("Failed to record post ref %s on listing %s: %v", postRef, listingID, err)
		return nil, err
	}
	listing.Version++
	listing.ChannelPostRef = postRef

	if err := s.cache.Delete(ctx, listingID); err != nil {
		s.logger.Warnf("Failed to invalidate cache for listing %s: %v", listingID, err)
	}

	notifyKey := effect.Key("listing", listingID, listing.Version, "notifyPublished")
	err = s.coordinator.NotifyUser(ctx, notifyKey, effect.Notification{
		UserID:  listing.OwnerID,
		Kind:    NotifyListingPublished,
		Payload: map[string]string{"listing_id": listingID, "title": listing.Title, "post_ref": postRef},
	})
	if err != nil {
		s.logger.Errorf("Failed to notify owner of published listing %s: %v", listingID, err)
	}
	s.emailOwner(ctx, listing, "Your listing is live",
		"Your listing \""+listing.Title+"\" passed moderation and is now published.")

	s.metrics.ListingsPublishedTotal.Inc()
	s.logger.Infof("Listing %s approved by admin %s, posted as %s", listingID, adminID, postRef)
	return listing, nil
}

func (s *ModerationService) compensatePublishFailure(ctx context.Context, listing *entity.Listing, cause error) error {
	s.logger.Errorf("Channel publish failed for listing %s, compensating: %v", listing.ID, cause)

	if err := listing.Transition(entity.EventPublishFailure); err != nil {
		return fmt.Errorf("publish failed and compensation is illegal from %s: %w", listing.Status, cause)
	}
	err := s.listings.UpdateState(ctx, repository.UpdateListingStateParams{
		ListingID: listing.ID,
		Status:    listing.Status,
		Version:   listing.Version,
	})
	if err != nil {
		return fmt.Errorf("publish failed and compensation did not commit: %w", errors.Join(cause, err))
	}
	listing.Version++

	notifyKey := effect.Key("listing", listing.ID, listing.Version, "notifyPublishFailed")
	notifyErr := s.coordinator.NotifyUser(ctx, notifyKey, effect.Notification{
		UserID:  listing.OwnerID,
		Kind:    NotifyListingPublishFailed,
		Payload: map[string]string{"listing_id": listing.ID, "title": listing.Title},
	})
	if notifyErr != nil {
		s.logger.Errorf("Failed to notify owner of publish failure for listing %s: %v", listing.ID, notifyErr)
	}
	return cause
}

// Reject declines a PENDING listing with a moderator-facing reason that
// lands in both the audit record and the owner's notification.
func (s *ModerationService) Reject(ctx context.Context, adminID, listingID, reason string) (*entity.Listing, error) {
	if _, err := s.requireAdmin(ctx, adminID, "reject listing"); err != nil {
		return nil, err
	}

	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, entity.ErrListingNotFound
		}
		return nil, err
	}

	if err := listing.Transition(entity.EventModeratorReject); err != nil {
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

	s.appendAudit(ctx, adminID, auditActionReject, listingID, map[string]string{
		"title":  listing.Title,
		"kind":   string(listing.Kind),
		"reason": reason,
	})

	if err := s.cache.Delete(ctx, listingID); err != nil {
		s.logger.Warnf("Failed to invalidate cache for listing %s: %v", listingID, err)
	}

	notifyKey := effect.Key("listing", listingID, listing.Version, "notifyRejected")
	err = s.coordinator.NotifyUser(ctx, notifyKey, effect.Notification{
		UserID:  listing.OwnerID,
		Kind:    NotifyListingRejected,
		Payload: map[string]string{"listing_id": listingID, "title": listing.Title, "reason": reason},
	})
	if err != nil {
		s.logger.Errorf("Failed to notify owner of rejected listing %s: %v", listingID, err)
	}
	s.emailOwner(ctx, listing, "Your listing was declined",
		"Your listing \""+listing.Title+"\" was declined by moderation: "+reason)

	s.metrics.ListingsRejectedTotal.Inc()
	s.logger.Infof("Listing %s rejected by admin %s", listingID, adminID)
	return listing, nil
}

// Stats aggregates the platform counters for the admin dashboard.
func (s *ModerationService) Stats(ctx context.Context, adminID string) (*AdminStats, error) {
	if _, err := s.requireAdmin(ctx, adminID, "read platform stats"); err != nil {
		return nil, err
	}

	byStatus, err := s.listings.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	total, active, providers, err := s.users.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	accepted, err := s.negotiations.CountAccepted(ctx)
	if err != nil {
		return nil, err
	}

	return &AdminStats{
		ListingsByStatus:     byStatus,
		TotalUsers:           total,
		ActiveUsers:          active,
		Providers:            providers,
		AcceptedNegotiations: accepted,
	}, nil
}

// AuditLog reads back moderation decisions, optionally for one admin.
func (s *ModerationService) AuditLog(ctx context.Context, adminID string, params repository.ListAuditParams) ([]entity.AuditRecord, int64, error) {
	if _, err := s.requireAdmin(ctx, adminID, "read audit log"); err != nil {
		return nil, 0, err
	}
	return s.audit.List(ctx, params)
}

// emailOwner mails the moderation verdict, best effort on top of the
// notification queue.
func (s *ModerationService) emailOwner(ctx context.Context, listing *entity.Listing, subject, body string) {
	owner, err := s.users.GetByID(ctx, listing.OwnerID)
	if err != nil {
		s.logger.Warnf("Failed to load owner %s for verdict email: %v", listing.OwnerID, err)
		return
	}
	key := effect.Key("listing", listing.ID, listing.Version, "emailVerdict")
	s.coordinator.EmailUser(ctx, key, owner.Email, subject, body)
}

func (s *ModerationService) appendAudit(ctx context.Context, adminID, action, targetID string, details map[string]string) {
	record := &entity.AuditRecord{
		AdminID:    adminID,
		ActionType: action,
		TargetType: auditTargetListing,
		TargetID:   targetID,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.audit.Append(ctx, record); err != nil {
		// The decision is already committed; a missing audit row is an
		// operational incident, not a reason to unwind the transition.
		s.logger.Errorf("Failed to append audit record for %s on %s: %v", action, targetID, err)
	}
}
