package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FayezAlshami/DTC/internal/domain/entity"
	"github.com/FayezAlshami/DTC/internal/platform/logger"
	"github.com/FayezAlshami/DTC/internal/repository"
	"github.com/FayezAlshami/DTC/internal/service/effect"
)

type negotiationFixture struct {
	service      *NegotiationService
	negotiations *mockNegotiationRepo
	listings     *mockListingRepo
	users        *mockUserReader
	cache        *mockListingCache
	effects      *effectDeps
}

func newNegotiationFixture() *negotiationFixture {
	coordinator, deps, m := newTestCoordinator()
	f := &negotiationFixture{
		negotiations: new(mockNegotiationRepo),
		listings:     new(mockListingRepo),
		users:        new(mockUserReader),
		cache:        new(mockListingCache),
		effects:      deps,
	}
	f.service = NewNegotiationService(
		f.negotiations, f.listings, f.users, f.cache,
		coordinator, m, logger.NewNop(),
	)
	return f
}

func initiatorUser() *entity.User {
	return &entity.User{
		ID:               "initiator-1",
		FullName:         "Omar",
		Email:            "omar@example.com",
		PhoneNumber:      "+100200300",
		ProfileCompleted: true,
		IsActive:         true,
		IsProvider:       true,
		Specialization:   "plumber",
	}
}

func pendingNegotiationFor(listing *entity.Listing) *entity.ContactNegotiation {
	n := entity.NewContactNegotiation(listing, "initiator-1")
	n.ID = "negotiation-1"
	return n
}

func TestProposeOpensPendingNegotiation(t *testing.T) {
	f := newNegotiationFixture()
	listing := publishedListing()

	f.listings.On("GetByID", mock.Anything, "listing-1").Return(listing, nil)
	f.users.On("GetByID", mock.Anything, "initiator-1").Return(initiatorUser(), nil)
	f.negotiations.On("FindByPair", mock.Anything, "initiator-1", "listing-1").Return(nil, repository.ErrNotFound)
	f.negotiations.On("Create", mock.Anything, mock.MatchedBy(func(n *entity.ContactNegotiation) bool {
		return n.Status == entity.NegotiationPending && n.OwnerID == "owner-1" && n.ListingID == "listing-1"
	})).Return("negotiation-1", nil)
	f.effects.allowAllEffects()

	negotiation, err := f.service.Propose(context.Background(), "initiator-1", "listing-1")

	require.NoError(t, err)
	assert.Equal(t, "negotiation-1", negotiation.ID)
	assert.Equal(t, entity.NegotiationPending, negotiation.Status)
}

func TestProposeIneligibleInitiatorIsRefused(t *testing.T) {
	f := newNegotiationFixture()
	listing := publishedListing()
	owner := initiatorUser()
	owner.ID = "owner-1"

	f.listings.On("GetByID", mock.Anything, "listing-1").Return(listing, nil)
	f.users.On("GetByID", mock.Anything, "owner-1").Return(owner, nil)

	_, err := f.service.Propose(context.Background(), "owner-1", "listing-1")

	var eligibilityErr *entity.EligibilityError
	require.ErrorAs(t, err, &eligibilityErr)
	assert.Equal(t, entity.ReasonSelfMatch, eligibilityErr.Reason)
	f.negotiations.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProposeOnNonPublishedListingIsRefused(t *testing.T) {
	f := newNegotiationFixture()
	listing := publishedListing()
	listing.Status = entity.StatusMatched

	f.listings.On("GetByID", mock.Anything, "listing-1").Return(listing, nil)
	f.users.On("GetByID", mock.Anything, "initiator-1").Return(initiatorUser(), nil)

	_, err := f.service.Propose(context.Background(), "initiator-1", "listing-1")

	var eligibilityErr *entity.EligibilityError
	require.ErrorAs(t, err, &eligibilityErr)
	assert.Equal(t, entity.ReasonListingNotPublished, eligibilityErr.Reason)
}

func TestProposeStickyRejectionBlocksReopen(t *testing.T) {
	f := newNegotiationFixture()
	listing := publishedListing()
	rejected := pendingNegotiationFor(listing)
	require.NoError(t, rejected.Resolve(entity.NegotiationRejected))

	f.listings.On("GetByID", mock.Anything, "listing-1").Return(listing, nil)
	f.users.On("GetByID", mock.Anything, "initiator-1").Return(initiatorUser(), nil)
	f.negotiations.On("FindByPair", mock.Anything, "initiator-1", "listing-1").Return(rejected, nil)

	_, err := f.service.Propose(context.Background(), "initiator-1", "listing-1")

	require.ErrorIs(t, err, ErrNegotiationExists)
	f.negotiations.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProposeLosingCreateRaceIsConflict(t *testing.T) {
	f := newNegotiationFixture()
	listing := publishedListing()

	f.listings.On("GetByID", mock.Anything, "listing-1").Return(listing, nil)
	f.users.On("GetByID", mock.Anything, "initiator-1").Return(initiatorUser(), nil)
	f.negotiations.On("FindByPair", mock.Anything, "initiator-1", "listing-1").Return(nil, repository.ErrNotFound)
	f.negotiations.On("Create", mock.Anything, mock.Anything).Return("", repository.ErrAlreadyExists)

	_, err := f.service.Propose(context.Background(), "initiator-1", "listing-1")

	require.ErrorIs(t, err, ErrNegotiationExists)
}

func TestAcceptMatchesListingAndExchangesContacts(t *testing.T) {
	f := newNegotiationFixture()
	listing := publishedListing()
	negotiation := pendingNegotiationFor(listing)
	owner := initiatorUser()
	owner.ID = "owner-1"
	owner.FullName = "Sara"
	owner.PhoneNumber = "+700800900"

	f.negotiations.On("GetByID", mock.Anything, "negotiation-1").Return(negotiation, nil)
	f.negotiations.On("UpdateStatus", mock.Anything, repository.UpdateNegotiationStatusParams{
		NegotiationID: "negotiation-1",
		Status:        entity.NegotiationAccepted,
		Version:       1,
	}).Return(nil)
	f.listings.On("GetByID", mock.Anything, "listing-1").Return(listing, nil)
	f.listings.On("UpdateState", mock.Anything, repository.UpdateListingStateParams{
		ListingID: "listing-1",
		Status:    entity.StatusMatched,
		Version:   3,
	}).Return(nil)
	f.cache.On("Delete", mock.Anything, "listing-1").Return(nil)
	f.users.On("GetByID", mock.Anything, "owner-1").Return(owner, nil)
	f.users.On("GetByID", mock.Anything, "initiator-1").Return(initiatorUser(), nil)
	f.effects.allowAllEffects()
	f.effects.channel.On("RetractPost", mock.Anything, "post-42").Return(nil)

	got, err := f.service.Accept(context.Background(), "owner-1", "negotiation-1")

	require.NoError(t, err)
	assert.Equal(t, entity.NegotiationAccepted, got.Status)
	assert.Equal(t, entity.StatusMatched, listing.Status)
	f.effects.channel.AssertExpectations(t)

	// Contact cards travel both ways.
	f.effects.notifier.AssertCalled(t, "Notify", mock.Anything, mock.MatchedBy(func(n effect.Notification) bool {
		return n.UserID == "initiator-1" && n.Payload["contact_phone"] == "+700800900"
	}))
	f.effects.notifier.AssertCalled(t, "Notify", mock.Anything, mock.MatchedBy(func(n effect.Notification) bool {
		return n.UserID == "owner-1" && n.Payload["contact_phone"] == "+100200300"
	}))
}

func TestAcceptWhenListingAlreadyLeftPublishedStillStands(t *testing.T) {
	f := newNegotiationFixture()
	listing := publishedListing()
	listing.Status = entity.StatusRemoved
	listing.ChannelPostRef = ""
	negotiation := pendingNegotiationFor(listing)
	owner := initiatorUser()
	owner.ID = "owner-1"

	f.negotiations.On("GetByID", mock.Anything, "negotiation-1").Return(negotiation, nil)
	f.negotiations.On("UpdateStatus", mock.Anything, mock.Anything).Return(nil)
	f.listings.On("GetByID", mock.Anything, "listing-1").Return(listing, nil)
	f.users.On("GetByID", mock.Anything, "owner-1").Return(owner, nil)
	f.users.On("GetByID", mock.Anything, "initiator-1").Return(initiatorUser(), nil)
	f.effects.allowAllEffects()

	got, err := f.service.Accept(context.Background(), "owner-1", "negotiation-1")

	require.NoError(t, err)
	assert.Equal(t, entity.NegotiationAccepted, got.Status)
	f.listings.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything)
}

func TestResolveByNonOwnerIsForbidden(t *testing.T) {
	f := newNegotiationFixture()
	negotiation := pendingNegotiationFor(publishedListing())
	f.negotiations.On("GetByID", mock.Anything, "negotiation-1").Return(negotiation, nil)

	_, err := f.service.Accept(context.Background(), "initiator-1", "negotiation-1")

	var authErr *entity.AuthError
	require.ErrorAs(t, err, &authErr)
	f.negotiations.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
}

func TestResolveTerminalNegotiationIsConflict(t *testing.T) {
	f := newNegotiationFixture()
	negotiation := pendingNegotiationFor(publishedListing())
	require.NoError(t, negotiation.Resolve(entity.NegotiationAccepted))
	f.negotiations.On("GetByID", mock.Anything, "negotiation-1").Return(negotiation, nil)

	_, err := f.service.Reject(context.Background(), "owner-1", "negotiation-1")

	var stateErr *entity.StateError
	require.ErrorAs(t, err, &stateErr)
	f.negotiations.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
}

func TestRejectNotifiesInitiator(t *testing.T) {
	f := newNegotiationFixture()
	negotiation := pendingNegotiationFor(publishedListing())

	f.negotiations.On("GetByID", mock.Anything, "negotiation-1").Return(negotiation, nil)
	f.negotiations.On("UpdateStatus", mock.Anything, repository.UpdateNegotiationStatusParams{
		NegotiationID: "negotiation-1",
		Status:        entity.NegotiationRejected,
		Version:       1,
	}).Return(nil)
	f.effects.allowAllEffects()

	got, err := f.service.Reject(context.Background(), "owner-1", "negotiation-1")

	require.NoError(t, err)
	assert.Equal(t, entity.NegotiationRejected, got.Status)
	f.effects.notifier.AssertCalled(t, "Notify", mock.Anything, mock.MatchedBy(func(n effect.Notification) bool {
		return n.UserID == "initiator-1" && n.Kind == NotifyContactRejected
	}))
	f.listings.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything)
}

// Accepting one negotiation leaves its siblings pending: the owner keeps
// the choice to resolve them, nothing auto-rejects.
func TestAcceptDoesNotTouchSiblingNegotiations(t *testing.T) {
	f := newNegotiationFixture()
	listing := publishedListing()
	negotiation := pendingNegotiationFor(listing)
	owner := initiatorUser()
	owner.ID = "owner-1"

	f.negotiations.On("GetByID", mock.Anything, "negotiation-1").Return(negotiation, nil)
	f.negotiations.On("UpdateStatus", mock.Anything, mock.MatchedBy(func(p repository.UpdateNegotiationStatusParams) bool {
		return p.NegotiationID == "negotiation-1"
	})).Return(nil)
	f.listings.On("GetByID", mock.Anything, "listing-1").Return(listing, nil)
	f.listings.On("UpdateState", mock.Anything, mock.Anything).Return(nil)
	f.cache.On("Delete", mock.Anything, "listing-1").Return(nil)
	f.users.On("GetByID", mock.Anything, "owner-1").Return(owner, nil)
	f.users.On("GetByID", mock.Anything, "initiator-1").Return(initiatorUser(), nil)
	f.effects.allowAllEffects()
	f.effects.channel.On("RetractPost", mock.Anything, mock.Anything).Return(nil)

	_, err := f.service.Accept(context.Background(), "owner-1", "negotiation-1")

	require.NoError(t, err)
	f.negotiations.AssertNumberOfCalls(t, "UpdateStatus", 1)
	f.negotiations.AssertNotCalled(t, "ListPendingForOwner", mock.Anything, mock.Anything)
}
