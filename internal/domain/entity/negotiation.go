package entity

import "time"

type NegotiationStatus string

const (
	NegotiationPending  NegotiationStatus = "PENDING"
	NegotiationAccepted NegotiationStatus = "ACCEPTED"
	NegotiationRejected NegotiationStatus = "REJECTED"
)

// ContactNegotiation records one initiator's attempt to obtain contact
// details from a listing owner. Exactly two parties, exactly one listing.
// For a given (initiator, listing) pair at most one negotiation may be
// PENDING or ACCEPTED at any time, and a REJECTED negotiation is sticky:
// the pair may not reopen on that listing.
type ContactNegotiation struct {
	ID          string      `bson:"_id,omitempty"`
	ListingID   string      `bson:"listing_id"`
	ListingKind ListingKind `bson:"listing_kind"`

	// InitiatorID is the party proposing contact; OwnerID is the listing
	// owner who must accept or reject.
	InitiatorID string `bson:"initiator_id"`
	OwnerID     string `bson:"owner_id"`

	Status    NegotiationStatus `bson:"status"`
	CreatedAt time.Time         `bson:"created_at"`
	UpdatedAt time.Time         `bson:"updated_at"`
	Version   int               `bson:"version"`
}

func NewContactNegotiation(listing *Listing, initiatorID string) *ContactNegotiation {
	now := time.Now().UTC()
	return &ContactNegotiation{
		ListingID:   listing.ID,
		ListingKind: listing.Kind,
		InitiatorID: initiatorID,
		OwnerID:     listing.OwnerID,
		Status:      NegotiationPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
}

func (n *ContactNegotiation) IsTerminal() bool {
	return n.Status == NegotiationAccepted || n.Status == NegotiationRejected
}

// Resolve moves a pending negotiation to a terminal status. Terminal
// negotiations are immutable; resolving one again is a state error.
func (n *ContactNegotiation) Resolve(to NegotiationStatus) error {
	if to != NegotiationAccepted && to != NegotiationRejected {
		return NewStateError(string(n.Status), "resolve:"+string(to))
	}
	if n.Status != NegotiationPending {
		return NewStateError(string(n.Status), "resolve:"+string(to))
	}
	n.Status = to
	n.UpdatedAt = time.Now().UTC()
	return nil
}
