package repository

import (
	"context"

	"github.com/FayezAlshami/DTC/internal/domain/entity"
)

type UpdateNegotiationStatusParams struct {
	NegotiationID string
	Status        entity.NegotiationStatus
	Version       int
}

type NegotiationRepository interface {
	// Create persists a new pending negotiation. The store enforces the
	// pair invariant: it returns ErrAlreadyExists when any negotiation
	// for the same (initiator, listing) pair already exists.
	Create(ctx context.Context, negotiation *entity.ContactNegotiation) (string, error)
	GetByID(ctx context.Context, negotiationID string) (*entity.ContactNegotiation, error)
	// FindByPair returns the negotiation for (initiatorID, listingID)
	// regardless of status, or ErrNotFound.
	FindByPair(ctx context.Context, initiatorID, listingID string) (*entity.ContactNegotiation, error)
	ListByParty(ctx context.Context, userID string) ([]entity.ContactNegotiation, error)
	ListPendingForOwner(ctx context.Context, ownerID string) ([]entity.ContactNegotiation, error)
	UpdateStatus(ctx context.Context, params UpdateNegotiationStatusParams) error
	CountAccepted(ctx context.Context) (int64, error)
}
