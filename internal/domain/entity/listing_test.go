package entity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPricing() Pricing {
	return Pricing{Mode: PricingFixed, Fixed: 100}
}

func draftOffer() *Listing {
	l := NewListing(KindOffer, "owner-1", "Pipe repair and installation", strings.Repeat("detail ", 10), validPricing())
	l.ID = "listing-1"
	l.Specialization = "plumber"
	return l
}

func TestListingTransitionHappyPath(t *testing.T) {
	l := draftOffer()

	require.NoError(t, l.Transition(EventSubmit))
	assert.Equal(t, StatusPending, l.Status)

	require.NoError(t, l.Transition(EventModeratorApprove))
	assert.Equal(t, StatusPublished, l.Status)

	require.NoError(t, l.Transition(EventNegotiationAccepted))
	assert.Equal(t, StatusMatched, l.Status)
	assert.True(t, l.IsTerminal())
}

func TestListingTransitionRejectsUnlistedPairs(t *testing.T) {
	cases := []struct {
		name   string
		status ListingStatus
		event  ListingEvent
	}{
		{"approve from draft", StatusDraft, EventModeratorApprove},
		{"withdraw from draft", StatusDraft, EventOwnerWithdraw},
		{"submit from pending", StatusPending, EventSubmit},
		{"accept from pending", StatusPending, EventNegotiationAccepted},
		{"submit from published", StatusPublished, EventSubmit},
		{"approve from published", StatusPublished, EventModeratorApprove},
		{"any from matched", StatusMatched, EventSubmit},
		{"any from removed", StatusRemoved, EventOwnerWithdraw},
		{"any from expired", StatusExpired, EventTimeout},
		{"any from rejected", StatusRejected, EventModeratorApprove},
		{"publish failure from draft", StatusDraft, EventPublishFailure},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := draftOffer()
			l.Status = tc.status

			err := l.Transition(tc.event)

			var stateErr *StateError
			require.ErrorAs(t, err, &stateErr)
			assert.Equal(t, string(tc.status), stateErr.Current)
			assert.Equal(t, tc.status, l.Status, "status must not move on an illegal event")
		})
	}
}

func TestListingTerminalStatesAcceptNoEvents(t *testing.T) {
	events := []ListingEvent{
		EventSubmit, EventModeratorApprove, EventModeratorReject,
		EventNegotiationAccepted, EventOwnerWithdraw, EventTimeout, EventPublishFailure,
	}
	for _, status := range []ListingStatus{StatusMatched, StatusRemoved, StatusExpired, StatusRejected} {
		for _, ev := range events {
			l := draftOffer()
			l.Status = status
			assert.False(t, l.CanFire(ev), "%s must not accept %s", status, ev)
		}
	}
}

func TestListingTransitionClearsPostRefOutsidePublished(t *testing.T) {
	l := draftOffer()
	l.Status = StatusPublished
	l.ChannelPostRef = "post-42"

	require.NoError(t, l.Transition(EventOwnerWithdraw))

	assert.Equal(t, StatusRemoved, l.Status)
	assert.Empty(t, l.ChannelPostRef)
}

func TestListingPublishFailureCompensation(t *testing.T) {
	l := draftOffer()
	l.Status = StatusPublished
	l.ChannelPostRef = "post-42"

	require.NoError(t, l.Transition(EventPublishFailure))

	assert.Equal(t, StatusDraft, l.Status)
	assert.Empty(t, l.ChannelPostRef)
	assert.True(t, l.CanFire(EventSubmit), "compensated listing must be resubmittable")
}

func TestPricingValidate(t *testing.T) {
	cases := []struct {
		name    string
		pricing Pricing
		wantErr bool
	}{
		{"fixed ok", Pricing{Mode: PricingFixed, Fixed: 50}, false},
		{"range ok", Pricing{Mode: PricingRange, Min: 10, Max: 20}, false},
		{"fixed zero", Pricing{Mode: PricingFixed}, true},
		{"fixed negative", Pricing{Mode: PricingFixed, Fixed: -5}, true},
		{"fixed with range bounds", Pricing{Mode: PricingFixed, Fixed: 50, Min: 10}, true},
		{"range with fixed amount", Pricing{Mode: PricingRange, Min: 10, Max: 20, Fixed: 15}, true},
		{"range min equals max", Pricing{Mode: PricingRange, Min: 10, Max: 10}, true},
		{"range min above max", Pricing{Mode: PricingRange, Min: 30, Max: 20}, true},
		{"range negative bound", Pricing{Mode: PricingRange, Min: -1, Max: 20}, true},
		{"unknown mode", Pricing{Mode: "hourly", Fixed: 10}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.pricing.Validate()
			if tc.wantErr {
				var validationErr *ValidationError
				assert.ErrorAs(t, err, &validationErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateContentTitleAndDescriptionBounds(t *testing.T) {
	l := draftOffer()
	l.Title = "abcd"
	assert.Error(t, l.ValidateContent(), "title below minimum")

	l = draftOffer()
	l.Title = strings.Repeat("a", MaxTitleLen+1)
	assert.Error(t, l.ValidateContent(), "title above maximum")

	l = draftOffer()
	l.Description = "too short"
	assert.Error(t, l.ValidateContent(), "description below minimum")

	l = draftOffer()
	l.Description = strings.Repeat("a", MaxDescriptionLen+1)
	assert.Error(t, l.ValidateContent(), "description above maximum")
}

func TestValidateContentCountsCharactersNotBytes(t *testing.T) {
	l := draftOffer()
	l.Title = "ابجد"
	assert.Error(t, l.ValidateContent(), "4-character title is below the minimum whatever its byte length")

	l = draftOffer()
	l.Title = strings.Repeat("م", 150)
	assert.NoError(t, l.ValidateContent(), "150-character title fits the 200-character maximum")

	l = draftOffer()
	l.Title = strings.Repeat("م", MaxTitleLen+1)
	assert.Error(t, l.ValidateContent(), "201-character title is above the maximum")

	l = draftOffer()
	l.Description = strings.Repeat("شرح", 10) // 30 characters
	assert.NoError(t, l.ValidateContent())

	l = draftOffer()
	l.Description = strings.Repeat("م", MaxDescriptionLenCap)
	l.Media = &Media{ObjectKey: "k", Type: MediaPhoto}
	assert.NoError(t, l.ValidateContent(), "caption at the cap counts characters, not bytes")
}

func TestValidateContentCaptionLimitWithMedia(t *testing.T) {
	l := draftOffer()
	l.Description = strings.Repeat("a", MaxDescriptionLenCap+1)
	require.NoError(t, l.ValidateContent(), "long description is fine without media")

	l.Media = &Media{ObjectKey: "k", Type: MediaPhoto}
	assert.Error(t, l.ValidateContent(), "caption limit applies once media is attached")
}

func TestValidateContentKindRules(t *testing.T) {
	offer := draftOffer()
	offer.Specialization = ""
	assert.Error(t, offer.ValidateContent(), "offer needs a specialization")

	ask := NewListing(KindAsk, "owner-1", "Need a plumber today", strings.Repeat("detail ", 10), validPricing())
	assert.Error(t, ask.ValidateContent(), "ask needs allowed specializations")

	ask.AllowedSpecializations = []string{"plumber"}
	assert.NoError(t, ask.ValidateContent())
}
