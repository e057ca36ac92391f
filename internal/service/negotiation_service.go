package service

import (
	"context"
	"errors"

	"github.com/FayezAlshami/DTC/internal/domain/entity"
	"github.com/FayezAlshami/DTC/internal/domain/match"
	"github.com/FayezAlshami/DTC/internal/platform/logger"
	"github.com/FayezAlshami/DTC/internal/platform/metrics"
	"github.com/FayezAlshami/DTC/internal/repository"
	"github.com/FayezAlshami/DTC/internal/service/effect"
)

// ErrNegotiationExists reports that the initiator already has a
// negotiation on this listing. Rejections are sticky, so this covers the
// reopen attempt too.
var ErrNegotiationExists = errors.New("a contact negotiation for this listing already exists")

// NegotiationService runs the contact-negotiation protocol: an eligible
// initiator proposes contact on a listing, the owner accepts or rejects.
// Acceptance is the event that matches the listing and exchanges contact
// details; siblings of an accepted negotiation stay pending until the
// owner resolves them.
type NegotiationService struct {
	negotiations repository.NegotiationRepository
	listings     repository.ListingRepository
	users        repository.UserReader
	cache        repository.ListingCache
	coordinator  *effect.Coordinator
	metrics      *metrics.Manager
	logger       logger.Logger
}

func NewNegotiationService(
	negotiations repository.NegotiationRepository,
	listings repository.ListingRepository,
	users repository.UserReader,
	cache repository.ListingCache,
	coordinator *effect.Coordinator,
	m *metrics.Manager,
	log logger.Logger,
) *NegotiationService {
	return &NegotiationService{
		negotiations: negotiations,
		listings:     listings,
		users:        users,
		cache:        cache,
		coordinator:  coordinator,
		metrics:      m,
		logger:       log,
	}
}

// Propose opens a PENDING negotiation for (initiator, listing). The
// eligibility matcher gates entry; the unique pair index in the store
// closes the race between concurrent proposals.
func (s *NegotiationService) Propose(ctx context.Context, initiatorID, listingID string) (*entity.ContactNegotiation, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, entity.ErrListingNotFound
		}
		return nil, err
	}

	initiator, err := s.users.GetByID(ctx, initiatorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, entity.ErrUserNotFound
		}
		return nil, err
	}

	if ok, reason := match.CanRespond(initiator, listing); !ok {
		return nil, entity.NewEligibilityError(reason)
	}

	if _, err := s.negotiations.FindByPair(ctx, initiatorID, listingID); err == nil {
		return nil, ErrNegotiationExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	negotiation := entity.NewContactNegotiation(listing, initiatorID)
	id, err := s.negotiations.Create(ctx, negotiation)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrNegotiationExists
		}
		return nil, err
	}
	negotiation.ID = id

	notifyKey := effect.Key("negotiation", id, negotiation.Version, "notifyOwner")
	err = s.coordinator.NotifyUser(ctx, notifyKey, effect.Notification{
		UserID: negotiation.OwnerID,
		Kind:   NotifyContactRequested,
		Payload: map[string]string{
			"negotiation_id": id,
			"listing_id":     listingID,
			"listing_title":  listing.Title,
			"initiator_name": initiator.FullName,
		},
	})
	if err != nil {
		s.logger.Errorf("Failed to notify owner of negotiation %s: %v", id, err)
	}

	s.metrics.NegotiationsTotal.WithLabelValues("proposed").Inc()
	s.logger.Infof("Negotiation %s opened by %s on listing %s", id, initiatorID, listingID)
	return negotiation, nil
}

// Accept resolves a pending negotiation in the initiator's favor: contact
// details are exchanged, the listing transitions to MATCHED and its
// public post is retracted.
func (s *NegotiationService) Accept(ctx context.Context, actorID, negotiationID string) (*entity.ContactNegotiation, error) {
	negotiation, err := s.resolve(ctx, actorID, negotiationID, entity.NegotiationAccepted)
	if err != nil {
		return nil, err
	}

	s.matchListing(ctx, negotiation)
	s.exchangeContacts(ctx, negotiation)

	s.metrics.NegotiationsTotal.WithLabelValues("accepted").Inc()
	s.logger.Infof("Negotiation %s accepted by owner %s", negotiationID, actorID)
	return negotiation, nil
}

// Reject resolves a pending negotiation against the initiator. The
// rejection is sticky: the pair may not reopen on this listing.
func (s *NegotiationService) Reject(ctx context.Context, actorID, negotiationID string) (*entity.ContactNegotiation, error) {
	negotiation, err := s.resolve(ctx, actorID, negotiationID, entity.NegotiationRejected)
	if err != nil {
		return nil, err
	}

	notifyKey := effect.Key("negotiation", negotiationID, negotiation.Version, "notifyRejected")
	err = s.coordinator.NotifyUser(ctx, notifyKey, effect.Notification{
		UserID: negotiation.InitiatorID,
		Kind:   NotifyContactRejected,
		Payload: map[string]string{
			"negotiation_id": negotiationID,
			"listing_id":     negotiation.ListingID,
		},
	})
	if err != nil {
		s.logger.Errorf("Failed to notify initiator of rejected negotiation %s: %v", negotiationID, err)
	}

	s.metrics.NegotiationsTotal.WithLabelValues("rejected").Inc()
	s.logger.Infof("Negotiation %s rejected by owner %s", negotiationID, actorID)
	return negotiation, nil
}

func (s *NegotiationService) resolve(ctx context.Context, actorID, negotiationID string, to entity.NegotiationStatus) (*entity.ContactNegotiation, error) {
	negotiation, err := s.negotiations.GetByID(ctx, negotiationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, entity.ErrNegotiationNotFound
		}
		return nil, err
	}
	if negotiation.OwnerID != actorID {
		return nil, entity.NewAuthError(actorID, "resolve negotiation")
	}
	if err := negotiation.Resolve(to); err != nil {
		return nil, err
	}

	err = s.negotiations.UpdateStatus(ctx, repository.UpdateNegotiationStatusParams{
		NegotiationID: negotiationID,
		Status:        negotiation.Status,
		Version:       negotiation.Version,
	})
	if err != nil {
		return nil, err
	}
	negotiation.Version++
	return negotiation, nil
}

// matchListing drives the listing side of an acceptance. The listing may
// already have left PUBLISHED through withdrawal or expiry; the
// acceptance stands either way, only the listing transition is skipped.
func (s *NegotiationService) matchListing(ctx context.Context, negotiation *entity.ContactNegotiation) {
	listing, err := s.listings.GetByID(ctx, negotiation.ListingID)
	if err != nil {
		s.logger.Errorf("Failed to load listing %s for accepted negotiation %s: %v", negotiation.ListingID, negotiation.ID, err)
		return
	}
	if !listing.CanFire(entity.EventNegotiationAccepted) {
		s.logger.Warnf("Listing %s is %s, skipping match transition for negotiation %s", listing.ID, listing.Status, negotiation.ID)
		return
	}

	postRef := listing.ChannelPostRef
	if err := listing.Transition(entity.EventNegotiationAccepted); err != nil {
		s.logger.Errorf("Match transition failed for listing %s: %v", listing.ID, err)
		return
	}
	err = s.listings.UpdateState(ctx, repository.UpdateListingStateParams{
		ListingID: listing.ID,
		Status:    listing.Status,
		Version:   listing.Version,
	})
	if err != nil {
		s.logger.Errorf("Failed to commit match transition for listing %s: %v", listing.ID, err)
		return
	}
	listing.Version++

	if err := s.cache.Delete(ctx, listing.ID); err != nil {
		s.logger.Warnf("Failed to invalidate cache for listing %s: %v", listing.ID, err)
	}
	if err := s.coordinator.RetractListing(ctx, listing, postRef); err != nil {
		s.logger.Errorf("Failed to retract post for matched listing %s: %v", listing.ID, err)
	}
	s.metrics.ListingsMatchedTotal.Inc()
}

// exchangeContacts delivers each party's contact card to the other. Both
// notifications carry their own dedup key, so a crash between the two
// never doubles the first.
func (s *NegotiationService) exchangeContacts(ctx context.Context, negotiation *entity.ContactNegotiation) {
	owner, err := s.users.GetByID(ctx, negotiation.OwnerID)
	if err != nil {
		s.logger.Errorf("Failed to load owner %s for contact exchange: %v", negotiation.OwnerID, err)
		return
	}
	initiator, err := s.users.GetByID(ctx, negotiation.InitiatorID)
	if err != nil {
		s.logger.Errorf("Failed to load initiator %s for contact exchange: %v", negotiation.InitiatorID, err)
		return
	}

	toInitiatorKey := effect.Key("negotiation", negotiation.ID, negotiation.Version, "contactsToInitiator")
	err = s.coordinator.NotifyUser(ctx, toInitiatorKey, effect.Notification{
		UserID: initiator.ID,
		Kind:   NotifyContactAccepted,
		Payload: map[string]string{
			"negotiation_id": negotiation.ID,
			"listing_id":     negotiation.ListingID,
			"contact_name":   owner.FullName,
			"contact_phone":  owner.PhoneNumber,
			"contact_email":  owner.Email,
		},
	})
	if err != nil {
		s.logger.Errorf("Failed to deliver owner contacts for negotiation %s: %v", negotiation.ID, err)
	}

	toOwnerKey := effect.Key("negotiation", negotiation.ID, negotiation.Version, "contactsToOwner")
	err = s.coordinator.NotifyUser(ctx, toOwnerKey, effect.Notification{
		UserID: owner.ID,
		Kind:   NotifyContactAccepted,
		Payload: map[string]string{
			"negotiation_id": negotiation.ID,
			"listing_id":     negotiation.ListingID,
			"contact_name":   initiator.FullName,
			"contact_phone":  initiator.PhoneNumber,
			"contact_email":  initiator.Email,
		},
	})
	if err != nil {
		s.logger.Errorf("Failed to deliver initiator contacts for negotiation %s: %v", negotiation.ID, err)
	}

	emailKey := effect.Key("negotiation", negotiation.ID, negotiation.Version, "emailInitiator")
	s.coordinator.EmailUser(ctx, emailKey, initiator.Email,
		"Contact request accepted",
		"Your contact request was accepted. Contact details: "+owner.FullName+", "+owner.PhoneNumber)
}

// ListMine returns every negotiation the user participates in, on either
// side.
func (s *NegotiationService) ListMine(ctx context.Context, userID string) ([]entity.ContactNegotiation, error) {
	return s.negotiations.ListByParty(ctx, userID)
}

// ListPendingForOwner returns the owner's inbox of unresolved proposals.
func (s *NegotiationService) ListPendingForOwner(ctx context.Context, ownerID string) ([]entity.ContactNegotiation, error) {
	return s.negotiations.ListPendingForOwner(ctx, ownerID)
}
