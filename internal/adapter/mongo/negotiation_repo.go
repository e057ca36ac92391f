package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FayezAlshami/DTC/internal/domain/entity"
	"github.com/FayezAlshami/DTC/internal/platform/logger"
	"github.com/FayezAlshami/DTC/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const negotiationCollection = "contact_negotiations"

type negotiationDocument struct {
	ID          primitive.ObjectID       `bson:"_id,omitempty"`
	ListingID   string                   `bson:"listing_id"`
	ListingKind entity.ListingKind       `bson:"listing_kind"`
	InitiatorID string                   `bson:"initiator_id"`
	OwnerID     string                   `bson:"owner_id"`
	Status      entity.NegotiationStatus `bson:"status"`
	CreatedAt   time.Time                `bson:"created_at"`
	UpdatedAt   time.Time                `bson:"updated_at"`
	Version     int                      `bson:"version"`
}

func (d *negotiationDocument) toEntity() *entity.ContactNegotiation {
	return &entity.ContactNegotiation{
		ID:          d.ID.Hex(),
		ListingID:   d.ListingID,
		ListingKind: d.ListingKind,
		InitiatorID: d.InitiatorID,
		OwnerID:     d.OwnerID,
		Status:      d.Status,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		Version:     d.Version,
	}
}

type NegotiationRepo struct {
	collection *mongo.Collection
	logger     logger.Logger
}

func NewNegotiationRepo(db *mongo.Database, log logger.Logger) *NegotiationRepo {
	return &NegotiationRepo{
		collection: db.Collection(negotiationCollection),
		logger:     log,
	}
}

// EnsureIndexes creates the unique (initiator, listing) index that makes
// the pair invariant hold under concurrent proposals. Rejections are
// sticky, so the index covers terminal negotiations too.
func (r *NegotiationRepo) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "initiator_id", Value: 1}, {Key: "listing_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "listing_id", Value: 1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create negotiation indexes: %w", err)
	}
	return nil
}

func (r *NegotiationRepo) Create(ctx context.Context, negotiation *entity.ContactNegotiation) (string, error) {
	doc := &negotiationDocument{
		ID:          primitive.NewObjectID(),
		ListingID:   negotiation.ListingID,
		ListingKind: negotiation.ListingKind,
		InitiatorID: negotiation.InitiatorID,
		OwnerID:     negotiation.OwnerID,
		Status:      negotiation.Status,
		CreatedAt:   negotiation.CreatedAt,
		UpdatedAt:   negotiation.UpdatedAt,
		Version:     negotiation.Version,
	}

	_, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", repository.ErrAlreadyExists
		}
		r.logger.Errorf("Failed to insert negotiation for listing %s: %v", negotiation.ListingID, err)
		return "", fmt.Errorf("failed to insert negotiation: %w", err)
	}
	return doc.ID.Hex(), nil
}

func (r *NegotiationRepo) GetByID(ctx context.Context, negotiationID string) (*entity.ContactNegotiation, error) {
	objID, err := primitive.ObjectIDFromHex(negotiationID)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	var doc negotiationDocument
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		r.logger.Errorf("Failed to find negotiation %s: %v", negotiationID, err)
		return nil, fmt.Errorf("failed to find negotiation: %w", err)
	}
	return doc.toEntity(), nil
}

func (r *NegotiationRepo) FindByPair(ctx context.Context, initiatorID, listingID string) (*entity.ContactNegotiation, error) {
	var doc negotiationDocument
	err := r.collection.FindOne(ctx, bson.M{
		"initiator_id": initiatorID,
		"listing_id":   listingID,
	}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		r.logger.Errorf("Failed to find negotiation pair (%s, %s): %v", initiatorID, listingID, err)
		return nil, fmt.Errorf("failed to find negotiation by pair: %w", err)
	}
	return doc.toEntity(), nil
}

func (r *NegotiationRepo) ListByParty(ctx context.Context, userID string) ([]entity.ContactNegotiation, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"initiator_id": userID},
		bson.M{"owner_id": userID},
	}}
	return r.find(ctx, filter)
}

func (r *NegotiationRepo) ListPendingForOwner(ctx context.Context, ownerID string) ([]entity.ContactNegotiation, error) {
	filter := bson.M{"owner_id": ownerID, "status": entity.NegotiationPending}
	return r.find(ctx, filter)
}

func (r *NegotiationRepo) find(ctx context.Context, filter bson.M) ([]entity.ContactNegotiation, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		r.logger.Errorf("Failed to find negotiations: %v", err)
		return nil, fmt.Errorf("failed to find negotiations: %w", err)
	}
	defer cursor.Close(ctx)

	negotiations := make([]entity.ContactNegotiation, 0)
	for cursor.Next(ctx) {
		var doc negotiationDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode negotiation: %w", err)
		}
		negotiations = append(negotiations, *doc.toEntity())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("negotiation cursor error: %w", err)
	}
	return negotiations, nil
}

func (r *NegotiationRepo) UpdateStatus(ctx context.Context, params repository.UpdateNegotiationStatusParams) error {
	objID, err := primitive.ObjectIDFromHex(params.NegotiationID)
	if err != nil {
		return repository.ErrNotFound
	}

	filter := bson.M{"_id": objID, "version": params.Version}
	update := bson.M{
		"$set": bson.M{
			"status":     params.Status,
			"updated_at": time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.Errorf("Failed to update status of negotiation %s: %v", params.NegotiationID, err)
		return fmt.Errorf("failed to update negotiation status: %w", err)
	}

	if result.MatchedCount == 0 {
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": objID})
		if countErr != nil {
			return fmt.Errorf("failed to verify negotiation existence after update miss: %w", countErr)
		}
		if count == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrOptimisticLock
	}
	return nil
}

func (r *NegotiationRepo) CountAccepted(ctx context.Context) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"status": entity.NegotiationAccepted})
	if err != nil {
		return 0, fmt.Errorf("failed to count accepted negotiations: %w", err)
	}
	return count, nil
}
