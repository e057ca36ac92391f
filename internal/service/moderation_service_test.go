package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FayezAlshami/DTC/internal/domain/entity"
	"github.com/FayezAlshami/DTC/internal/platform/logger"
	"github.com/FayezAlshami/DTC/internal/repository"
)

type moderationFixture struct {
	service      *ModerationService
	listings     *mockListingRepo
	negotiations *mockNegotiationRepo
	users        *mockUserReader
	audit        *mockAuditRepo
	cache        *mockListingCache
	effects      *effectDeps
}

func newModerationFixture() *moderationFixture {
	coordinator, deps, m := newTestCoordinator()
	f := &moderationFixture{
		listings:     new(mockListingRepo),
		negotiations: new(mockNegotiationRepo),
		users:        new(mockUserReader),
		audit:        new(mockAuditRepo),
		cache:        new(mockListingCache),
		effects:      deps,
	}
	f.service = NewModerationService(
		f.listings, f.negotiations, f.users, f.audit, f.cache,
		coordinator, m, logger.NewNop(),
	)
	return f
}

func adminUser() *entity.User {
	return &entity.User{ID: "admin-1", IsAdmin: true, IsActive: true, ProfileCompleted: true}
}

func pendingListing() *entity.Listing {
	l := publishedListing()
	l.Status = entity.StatusPending
	l.ChannelPostRef = ""
	l.Version = 2
	return l
}

func TestApprovePublishesAndRecordsPostRef(t *testing.T) {
	f := newModerationFixture()
	listing := pendingListing()

	f.users.On("GetByID", mock.Anything, "admin-1").Return(adminUser(), nil)
	f.listings.On("GetByID", mock.Anything, "listing-1").Return(listing, nil)
	f.listings.On("UpdateState", mock.Anything, repository.UpdateListingStateParams{
		ListingID: "listing-1",
		Status:    entity.StatusPublished,
		Version:   2,
	}).Return(nil).Once()
	f.audit.On("Append", mock.Anything, mock.MatchedBy(func(r *entity.AuditRecord) bool {
		return r.ActionType == "LISTING_APPROVE" && r.AdminID == "admin-1" && r.TargetID == "listing-1"
	})).Return(nil)
	f.effects.store.On("Done", mock.Anything, "listing:listing-1:3:publish").Return("", false, nil)
	f.effects.channel.On("PublishListing", mock.Anything, listing).Return("post-99", nil)
	f.effects.store.On("MarkDone", mock.Anything, "listing:listing-1:3:publish", "post-99", mock.Anything).Return(nil)
	f.listings.On("UpdateState", mock.Anything, repository.UpdateListingStateParams{
		ListingID:      "listing-1",
		Status:         entity.StatusPublished,
		ChannelPostRef: "post-99",
		Version:        3,
	}).Return(nil).Once()
	f.cache.On("Delete", mock.Anything, "listing-1").Return(nil)
	f.effects.store.On("Done", mock.Anything, "listing:listing-1:4:notifyPublished").Return("", false, nil)
	f.effects.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)
	f.effects.store.On("MarkDone", mock.Anything, "listing:listing-1:4:notifyPublished", "", mock.Anything).Return(nil)
	f.users.On("GetByID", mock.Anything, "owner-1").Return(activeProvider(), nil)
	f.effects.store.On("Done", mock.Anything, "listing:listing-1:4:emailVerdict").Return("", false, nil)
	f.effects.email.On("Send", mock.Anything, "sara@example.com", mock.Anything, mock.Anything).Return(nil)
	f.effects.store.On("MarkDone", mock.Anything, "listing:listing-1:4:emailVerdict", "", mock.Anything).Return(nil)

	got, err := f.service.Approve(context.Background(), "admin-1", "listing-1")

	require.NoError(t, err)
	assert.Equal(t, entity.StatusPublished, got.Status)
	assert.Equal(t, "post-99", got.ChannelPostRef)
	f.listings.AssertExpectations(t)
	f.audit.AssertExpectations(t)
}

func TestApprovePublishFailureCompensatesToDraft(t *testing.T) {
	f := newModerationFixture()
	listing := pendingListing()

	f.users.On("GetByID", mock.Anything, "admin-1").Return(adminUser(), nil)
	f.listings.On("GetByID", mock.Anything, "listing-1").Return(listing, nil)
	f.listings.On("UpdateState", mock.Anything, repository.UpdateListingStateParams{
		ListingID: "listing-1",
		Status:    entity.StatusPublished,
		Version:   2,
	}).Return(nil).Once()
	f.audit.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.effects.store.On("Done", mock.Anything, "listing:listing-1:3:publish").Return("", false, nil)
	f.effects.channel.On("PublishListing", mock.Anything, listing).
		Return("", entity.NewPublishError(errors.New("channel down")))
	f.listings.On("UpdateState", mock.Anything, repository.UpdateListingStateParams{
		ListingID: "listing-1",
		Status:    entity.StatusDraft,
		Version:   3,
	}).Return(nil).Once()
	f.effects.store.On("Done", mock.Anything, "listing:listing-1:4:notifyPublishFailed").Return("", false, nil)
	f.effects.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n interface{}) bool { return true })).Return(nil)
	f.effects.store.On("MarkDone", mock.Anything, "listing:listing-1:4:notifyPublishFailed", "", mock.Anything).Return(nil)

	_, err := f.service.Approve(context.Background(), "admin-1", "listing-1")

	var publishErr *entity.PublishError
	require.ErrorAs(t, err, &publishErr)
	assert.Equal(t, entity.StatusDraft, listing.Status, "failed publish must return the listing to draft")
	f.listings.AssertExpectations(t)
}

func TestApproveDeduplicatedPublishReusesPostRef(t *testing.T) {
	f := newModerationFixture()
	listing := pendingListing()

	f.users.On("GetByID", mock.Anything, "admin-1").Return(adminUser(), nil)
	f.listings.On("GetByID", mock.Anything, "listing-1").Return(listing, nil)
	f.listings.On("UpdateState", mock.Anything, mock.Anything).Return(nil)
	f.audit.On("Append", mock.Anything, mock.Anything).Return(nil)
	f.effects.store.On("Done", mock.Anything, "listing:listing-1:3:publish").Return("post-77", true, nil)
	f.cache.On("Delete", mock.Anything, "listing-1").Return(nil)
	f.effects.store.On("Done", mock.Anything, "listing:listing-1:4:notifyPublished").Return("", true, nil)
	f.users.On("GetByID", mock.Anything, "owner-1").Return(activeProvider(), nil)
	f.effects.store.On("Done", mock.Anything, "listing:listing-1:4:emailVerdict").Return("", true, nil)

	got, err := f.service.Approve(context.Background(), "admin-1", "listing-1")

	require.NoError(t, err)
	assert.Equal(t, "post-77", got.ChannelPostRef)
	f.effects.channel.AssertNotCalled(t, "PublishListing", mock.Anything, mock.Anything)
}

func TestApproveByNonAdminIsForbidden(t *testing.T) {
	f := newModerationFixture()
	user := adminUser()
	user.IsAdmin = false
	f.users.On("GetByID", mock.Anything, "admin-1").Return(user, nil)

	_, err := f.service.Approve(context.Background(), "admin-1", "listing-1")

	var authErr *entity.AuthError
	require.ErrorAs(t, err, &authErr)
	f.listings.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	f.audit.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestApproveAlreadyPublishedIsConflict(t *testing.T) {
	f := newModerationFixture()
	listing := publishedListing()
	f.users.On("GetByID", mock.Anything, "admin-1").Return(adminUser(), nil)
	f.listings.On("GetByID", mock.Anything, "listing-1").Return(listing, nil)

	_, err := f.service.Approve(context.Background(), "admin-1", "listing-1")

	var stateErr *entity.StateError
	require.ErrorAs(t, err, &stateErr)
	f.listings.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything)
	f.effects.channel.AssertNotCalled(t, "PublishListing", mock.Anything, mock.Anything)
}

func TestRejectWritesAuditWithReason(t *testing.T) {
	f := newModerationFixture()
	listing := pendingListing()

	f.users.On("GetByID", mock.Anything, "admin-1").Return(adminUser(), nil)
	f.listings.On("GetByID", mock.Anything, "listing-1").Return(listing, nil)
	f.listings.On("UpdateState", mock.Anything, repository.UpdateListingStateParams{
		ListingID: "listing-1",
		Status:    entity.StatusRejected,
		Version:   2,
	}).Return(nil)
	f.audit.On("Append", mock.Anything, mock.MatchedBy(func(r *entity.AuditRecord) bool {
		return r.ActionType == "LISTING_REJECT" && r.Details["reason"] == "spam"
	})).Return(nil)
	f.cache.On("Delete", mock.Anything, "listing-1").Return(nil)
	f.users.On("GetByID", mock.Anything, "owner-1").Return(activeProvider(), nil)
	f.effects.allowAllEffects()

	got, err := f.service.Reject(context.Background(), "admin-1", "listing-1", "spam")

	require.NoError(t, err)
	assert.Equal(t, entity.StatusRejected, got.Status)
	f.audit.AssertExpectations(t)
}

func TestStatsAggregatesPlatformCounters(t *testing.T) {
	f := newModerationFixture()
	f.users.On("GetByID", mock.Anything, "admin-1").Return(adminUser(), nil)
	f.listings.On("CountByStatus", mock.Anything).Return(map[entity.ListingStatus]int64{
		entity.StatusPublished: 4,
		entity.StatusPending:   2,
	}, nil)
	f.users.On("CountUsers", mock.Anything).Return(int64(10), int64(8), int64(5), nil)
	f.negotiations.On("CountAccepted", mock.Anything).Return(int64(3), nil)

	stats, err := f.service.Stats(context.Background(), "admin-1")

	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.ListingsByStatus[entity.StatusPublished])
	assert.Equal(t, int64(10), stats.TotalUsers)
	assert.Equal(t, int64(8), stats.ActiveUsers)
	assert.Equal(t, int64(5), stats.Providers)
	assert.Equal(t, int64(3), stats.AcceptedNegotiations)
}

func TestAuditLogRequiresAdmin(t *testing.T) {
	f := newModerationFixture()
	user := adminUser()
	user.IsAdmin = false
	f.users.On("GetByID", mock.Anything, "user-1").Return(user, nil)

	_, _, err := f.service.AuditLog(context.Background(), "user-1", repository.ListAuditParams{})

	var authErr *entity.AuthError
	require.ErrorAs(t, err, &authErr)
	f.audit.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}
