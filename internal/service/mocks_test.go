package service

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/FayezAlshami/DTC/internal/domain/entity"
	"github.com/FayezAlshami/DTC/internal/platform/logger"
	"github.com/FayezAlshami/DTC/internal/platform/metrics"
	"github.com/FayezAlshami/DTC/internal/repository"
	"github.com/FayezAlshami/DTC/internal/service/effect"
)

type mockListingRepo struct{ mock.Mock }

func (m *mockListingRepo) Create(ctx context.Context, listing *entity.Listing) (string, error) {
	args := m.Called(ctx, listing)
	return args.String(0), args.Error(1)
}

func (m *mockListingRepo) GetByID(ctx context.Context, listingID string) (*entity.Listing, error) {
	args := m.Called(ctx, listingID)
	if l, ok := args.Get(0).(*entity.Listing); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockListingRepo) UpdateState(ctx context.Context, params repository.UpdateListingStateParams) error {
	return m.Called(ctx, params).Error(0)
}

func (m *mockListingRepo) UpdateContent(ctx context.Context, params repository.UpdateListingContentParams) error {
	return m.Called(ctx, params).Error(0)
}

func (m *mockListingRepo) List(ctx context.Context, params repository.ListListingsParams) (*repository.ListListingsResult, error) {
	args := m.Called(ctx, params)
	if r, ok := args.Get(0).(*repository.ListListingsResult); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockListingRepo) CountByStatus(ctx context.Context) (map[entity.ListingStatus]int64, error) {
	args := m.Called(ctx)
	if c, ok := args.Get(0).(map[entity.ListingStatus]int64); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockNegotiationRepo struct{ mock.Mock }

func (m *mockNegotiationRepo) Create(ctx context.Context, negotiation *entity.ContactNegotiation) (string, error) {
	args := m.Called(ctx, negotiation)
	return args.String(0), args.Error(1)
}

func (m *mockNegotiationRepo) GetByID(ctx context.Context, negotiationID string) (*entity.ContactNegotiation, error) {
	args := m.Called(ctx, negotiationID)
	if n, ok := args.Get(0).(*entity.ContactNegotiation); ok {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNegotiationRepo) FindByPair(ctx context.Context, initiatorID, listingID string) (*entity.ContactNegotiation, error) {
	args := m.Called(ctx, initiatorID, listingID)
	if n, ok := args.Get(0).(*entity.ContactNegotiation); ok {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNegotiationRepo) ListByParty(ctx context.Context, userID string) ([]entity.ContactNegotiation, error) {
	args := m.Called(ctx, userID)
	if n, ok := args.Get(0).([]entity.ContactNegotiation); ok {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNegotiationRepo) ListPendingForOwner(ctx context.Context, ownerID string) ([]entity.ContactNegotiation, error) {
	args := m.Called(ctx, ownerID)
	if n, ok := args.Get(0).([]entity.ContactNegotiation); ok {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNegotiationRepo) UpdateStatus(ctx context.Context, params repository.UpdateNegotiationStatusParams) error {
	return m.Called(ctx, params).Error(0)
}

func (m *mockNegotiationRepo) CountAccepted(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockUserReader struct{ mock.Mock }

func (m *mockUserReader) GetByID(ctx context.Context, userID string) (*entity.User, error) {
	args := m.Called(ctx, userID)
	if u, ok := args.Get(0).(*entity.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserReader) CountUsers(ctx context.Context) (int64, int64, int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Get(1).(int64), args.Get(2).(int64), args.Error(3)
}

type mockAuditRepo struct{ mock.Mock }

func (m *mockAuditRepo) Append(ctx context.Context, record *entity.AuditRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *mockAuditRepo) List(ctx context.Context, params repository.ListAuditParams) ([]entity.AuditRecord, int64, error) {
	args := m.Called(ctx, params)
	if r, ok := args.Get(0).([]entity.AuditRecord); ok {
		return r, args.Get(1).(int64), args.Error(2)
	}
	return nil, args.Get(1).(int64), args.Error(2)
}

type mockListingCache struct{ mock.Mock }

func (m *mockListingCache) Get(ctx context.Context, listingID string) (*entity.Listing, error) {
	args := m.Called(ctx, listingID)
	if l, ok := args.Get(0).(*entity.Listing); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockListingCache) Set(ctx context.Context, listing *entity.Listing, ttl time.Duration) error {
	return m.Called(ctx, listing, ttl).Error(0)
}

func (m *mockListingCache) Delete(ctx context.Context, listingID string) error {
	return m.Called(ctx, listingID).Error(0)
}

type mockMediaStore struct{ mock.Mock }

func (m *mockMediaStore) Upload(ctx context.Context, listingID string, reader io.Reader, size int64, contentType string) (string, error) {
	args := m.Called(ctx, listingID, reader, size, contentType)
	return args.String(0), args.Error(1)
}

func (m *mockMediaStore) Remove(ctx context.Context, objectKey string) error {
	return m.Called(ctx, objectKey).Error(0)
}

type mockEffectStore struct{ mock.Mock }

func (m *mockEffectStore) Done(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockEffectStore) MarkDone(ctx context.Context, key, result string, ttl time.Duration) error {
	return m.Called(ctx, key, result, ttl).Error(0)
}

type mockChannelGateway struct{ mock.Mock }

func (m *mockChannelGateway) PublishListing(ctx context.Context, listing *entity.Listing) (string, error) {
	args := m.Called(ctx, listing)
	return args.String(0), args.Error(1)
}

func (m *mockChannelGateway) RetractPost(ctx context.Context, postRef string) error {
	return m.Called(ctx, postRef).Error(0)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Notify(ctx context.Context, notification effect.Notification) error {
	return m.Called(ctx, notification).Error(0)
}

type mockEmailSender struct{ mock.Mock }

func (m *mockEmailSender) Send(ctx context.Context, to, subject, body string) error {
	return m.Called(ctx, to, subject, body).Error(0)
}

// effectDeps bundles the coordinator collaborators so tests can set
// expectations on each side of an effect.
type effectDeps struct {
	store    *mockEffectStore
	channel  *mockChannelGateway
	notifier *mockNotifier
	email    *mockEmailSender
}

func newTestCoordinator() (*effect.Coordinator, *effectDeps, *metrics.Manager) {
	deps := &effectDeps{
		store:    new(mockEffectStore),
		channel:  new(mockChannelGateway),
		notifier: new(mockNotifier),
		email:    new(mockEmailSender),
	}
	m := metrics.NewManager("test")
	coordinator := effect.NewCoordinator(
		deps.store, deps.channel, deps.notifier, deps.email,
		m, logger.NewNop(), time.Hour,
	)
	return coordinator, deps, m
}

// allowAllEffects lets effect dispatches pass without per-test wiring.
func (d *effectDeps) allowAllEffects() {
	d.store.On("Done", mock.Anything, mock.Anything).Return("", false, nil)
	d.store.On("MarkDone", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	d.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)
	d.email.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
}
