package entity

import (
	"strings"
	"time"
	"unicode/utf8"
)

type ListingKind string

const (
	KindOffer ListingKind = "OFFER"
	KindAsk   ListingKind = "ASK"
)

type ListingStatus string

const (
	StatusDraft     ListingStatus = "DRAFT"
	StatusPending   ListingStatus = "PENDING"
	StatusPublished ListingStatus = "PUBLISHED"
	StatusMatched   ListingStatus = "MATCHED"
	StatusRemoved   ListingStatus = "REMOVED"
	StatusExpired   ListingStatus = "EXPIRED"
	StatusRejected  ListingStatus = "REJECTED"
)

type ListingEvent string

const (
	EventSubmit              ListingEvent = "submit"
	EventModeratorApprove    ListingEvent = "moderatorApprove"
	EventModeratorReject     ListingEvent = "moderatorReject"
	EventNegotiationAccepted ListingEvent = "negotiationAccepted"
	EventOwnerWithdraw       ListingEvent = "ownerWithdraw"
	EventTimeout             ListingEvent = "timeout"
	EventPublishFailure      ListingEvent = "publishFailure"
)

type PricingMode string

const (
	PricingFixed PricingMode = "fixed"
	PricingRange PricingMode = "range"
)

// Pricing is either a fixed amount or a (min,max) range, never both.
type Pricing struct {
	Mode  PricingMode `bson:"mode"`
	Fixed float64     `bson:"fixed,omitempty"`
	Min   float64     `bson:"min,omitempty"`
	Max   float64     `bson:"max,omitempty"`
}

func (p Pricing) Validate() error {
	switch p.Mode {
	case PricingFixed:
		if p.Min != 0 || p.Max != 0 {
			return NewValidationError("pricing", "fixed pricing must not carry range bounds")
		}
		if p.Fixed <= 0 {
			return NewValidationError("pricing", "price must be a positive number")
		}
	case PricingRange:
		if p.Fixed != 0 {
			return NewValidationError("pricing", "range pricing must not carry a fixed amount")
		}
		if p.Min <= 0 || p.Max <= 0 {
			return NewValidationError("pricing", "price bounds must be positive numbers")
		}
		if p.Min >= p.Max {
			return NewValidationError("pricing", "minimum price must be less than maximum price")
		}
	default:
		return NewValidationError("pricing", "pricing mode must be fixed or range")
	}
	return nil
}

type MediaType string

const (
	MediaPhoto MediaType = "photo"
	MediaVideo MediaType = "video"
)

// Media references an attachment stored in the object store.
type Media struct {
	ObjectKey string    `bson:"object_key"`
	Type      MediaType `bson:"type"`
}

const (
	MinTitleLen          = 5
	MaxTitleLen          = 200
	MinDescriptionLen    = 20
	MaxDescriptionLen    = 3000
	MaxDescriptionLenCap = 1024 // channel caption limit when media is attached
)

// Listing is a published intent on the marketplace: an Offer (service
// supply, specialization inherited from the owner's profile) or an Ask
// (service demand, restricted to a set of allowed specializations). Both
// kinds share the same lifecycle.
type Listing struct {
	ID          string      `bson:"_id,omitempty"`
	Kind        ListingKind `bson:"kind"`
	OwnerID     string      `bson:"owner_id"`
	Title       string      `bson:"title"`
	Description string      `bson:"description"`
	Pricing     Pricing     `bson:"pricing"`

	// Offer: the provider's own specialization. Ask: the set of
	// specializations allowed to respond.
	Specialization         string   `bson:"specialization,omitempty"`
	AllowedSpecializations []string `bson:"allowed_specializations,omitempty"`
	PreferredGender        Gender   `bson:"preferred_gender,omitempty"`

	Media *Media `bson:"media,omitempty"`

	Status ListingStatus `bson:"status"`

	// ChannelPostRef is the public posting reference, set only while
	// the listing is PUBLISHED and used to retract the post afterwards.
	ChannelPostRef string `bson:"channel_post_ref,omitempty"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
	Version   int       `bson:"version"`
}

var listingTransitions = map[ListingStatus]map[ListingEvent]ListingStatus{
	StatusDraft: {
		EventSubmit: StatusPending,
	},
	StatusPending: {
		EventModeratorApprove: StatusPublished,
		EventModeratorReject:  StatusRejected,
		EventPublishFailure:   StatusDraft,
	},
	StatusPublished: {
		EventNegotiationAccepted: StatusMatched,
		EventOwnerWithdraw:       StatusRemoved,
		EventTimeout:             StatusExpired,
		EventPublishFailure:      StatusDraft,
	},
}

// Transition applies ev to the listing's lifecycle. Every (status, event)
// pair outside the transition table is an error; the machine never
// silently no-ops on an illegal event.
func (l *Listing) Transition(ev ListingEvent) error {
	next, ok := listingTransitions[l.Status][ev]
	if !ok {
		return NewStateError(string(l.Status), string(ev))
	}
	l.Status = next
	if next != StatusPublished {
		l.ChannelPostRef = ""
	}
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// CanFire reports whether ev is legal from the current status.
func (l *Listing) CanFire(ev ListingEvent) bool {
	_, ok := listingTransitions[l.Status][ev]
	return ok
}

func (l *Listing) IsTerminal() bool {
	switch l.Status {
	case StatusMatched, StatusRemoved, StatusExpired, StatusRejected:
		return true
	default:
		return false
	}
}

// ValidateContent checks the content and pricing rules that gate the
// submit transition. Length bounds count characters, not bytes, so
// multibyte (e.g. Arabic) titles are measured the same as ASCII ones.
func (l *Listing) ValidateContent() error {
	title := strings.TrimSpace(l.Title)
	if utf8.RuneCountInString(title) < MinTitleLen {
		return NewValidationError("title", "title must be at least 5 characters long")
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return NewValidationError("title", "title must be no more than 200 characters")
	}

	desc := strings.TrimSpace(l.Description)
	if utf8.RuneCountInString(desc) < MinDescriptionLen {
		return NewValidationError("description", "description must be at least 20 characters long")
	}
	maxDesc := MaxDescriptionLen
	if l.Media != nil {
		maxDesc = MaxDescriptionLenCap
	}
	if utf8.RuneCountInString(desc) > maxDesc {
		return NewValidationError("description", "description exceeds the maximum length")
	}

	if err := l.Pricing.Validate(); err != nil {
		return err
	}

	switch l.Kind {
	case KindOffer:
		if strings.TrimSpace(l.Specialization) == "" {
			return NewValidationError("specialization", "offer must carry the provider's specialization")
		}
	case KindAsk:
		if len(l.AllowedSpecializations) == 0 {
			return NewValidationError("allowed_specializations", "at least one specialization must be specified")
		}
	default:
		return NewValidationError("kind", "listing kind must be offer or ask")
	}
	return nil
}

func NewListing(kind ListingKind, ownerID, title, description string, pricing Pricing) *Listing {
	now := time.Now().UTC()
	return &Listing{
		Kind:        kind,
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Pricing:     pricing,
		Status:      StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
}
