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

const listingCollection = "listings"

type listingDocument struct {
	ID                     primitive.ObjectID   `bson:"_id,omitempty"`
	Kind                   entity.ListingKind   `bson:"kind"`
	OwnerID                string               `bson:"owner_id"`
	Title                  string               `bson:"title"`
	Description            string               `bson:"description"`
	Pricing                entity.Pricing       `bson:"pricing"`
	Specialization         string               `bson:"specialization,omitempty"`
	AllowedSpecializations []string             `bson:"allowed_specializations,omitempty"`
	PreferredGender        entity.Gender        `bson:"preferred_gender,omitempty"`
	Media                  *entity.Media        `bson:"media,omitempty"`
	Status                 entity.ListingStatus `bson:"status"`
	ChannelPostRef         string               `bson:"channel_post_ref,omitempty"`
	CreatedAt              time.Time            `bson:"created_at"`
	UpdatedAt              time.Time            `bson:"updated_at"`
	Version                int                  `bson:"version"`
}

func toListingDocument(l *entity.Listing) (*listingDocument, error) {
	doc := &listingDocument{
		Kind:                   l.Kind,
		OwnerID:                l.OwnerID,
		Title:                  l.Title,
		Description:            l.Description,
		Pricing:                l.Pricing,
		Specialization:         l.Specialization,
		AllowedSpecializations: l.AllowedSpecializations,
		PreferredGender:        l.PreferredGender,
		Media:                  l.Media,
		Status:                 l.Status,
		ChannelPostRef:         l.ChannelPostRef,
		CreatedAt:              l.CreatedAt,
		UpdatedAt:              l.UpdatedAt,
		Version:                l.Version,
	}
	if l.ID != "" {
		objID, err := primitive.ObjectIDFromHex(l.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid listing id format: %w", err)
		}
		doc.ID = objID
	}
	return doc, nil
}

func (d *listingDocument) toEntity() *entity.Listing {
	return &entity.Listing{
		ID:                     d.ID.Hex(),
		Kind:                   d.Kind,
		OwnerID:                d.OwnerID,
		Title:                  d.Title,
		Description:            d.Description,
		Pricing:                d.Pricing,
		Specialization:         d.Specialization,
		AllowedSpecializations: d.AllowedSpecializations,
		PreferredGender:        d.PreferredGender,
		Media:                  d.Media,
		Status:                 d.Status,
		ChannelPostRef:         d.ChannelPostRef,
		CreatedAt:              d.CreatedAt,
		UpdatedAt:              d.UpdatedAt,
		Version:                d.Version,
	}
}

type ListingRepo struct {
	collection *mongo.Collection
	logger     logger.Logger
}

func NewListingRepo(db *mongo.Database, log logger.Logger) *ListingRepo {
	return &ListingRepo{
		collection: db.Collection(listingCollection),
		logger:     log,
	}
}

// EnsureIndexes creates the query indexes the browse and admin surfaces
// rely on. Safe to call on every start.
func (r *ListingRepo) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "kind", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create listing indexes: %w", err)
	}
	return nil
}

func (r *ListingRepo) Create(ctx context.Context, listing *entity.Listing) (string, error) {
	doc, err := toListingDocument(listing)
	if err != nil {
		return "", err
	}
	doc.ID = primitive.NewObjectID()

	_, err = r.collection.InsertOne(ctx, doc)
	if err != nil {
		r.logger.Errorf("Failed to insert listing for owner %s: %v", listing.OwnerID, err)
		return "", fmt.Errorf("failed to insert listing: %w", err)
	}
	return doc.ID.Hex(), nil
}

func (r *ListingRepo) GetByID(ctx context.Context, listingID string) (*entity.Listing, error) {
	objID, err := primitive.ObjectIDFromHex(listingID)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	var doc listingDocument
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		r.logger.Errorf("Failed to find listing %s: %v", listingID, err)
		return nil, fmt.Errorf("failed to find listing: %w", err)
	}
	return doc.toEntity(), nil
}

// UpdateState commits one lifecycle transition. The filter carries the
// version read before the transition, so a concurrent writer makes this
// match zero documents and the caller gets ErrOptimisticLock.
func (r *ListingRepo) UpdateState(ctx context.Context, params repository.UpdateListingStateParams) error {
	objID, err := primitive.ObjectIDFromHex(params.ListingID)
	if err != nil {
		return repository.ErrNotFound
	}

	filter := bson.M{"_id": objID, "version": params.Version}
	update := bson.M{
		"$set": bson.M{
			"status":           params.Status,
			"channel_post_ref": params.ChannelPostRef,
			"updated_at":       time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.Errorf("Failed to update state of listing %s: %v", params.ListingID, err)
		return fmt.Errorf("failed to update listing state: %w", err)
	}

	if result.MatchedCount == 0 {
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": objID})
		if countErr != nil {
			return fmt.Errorf("failed to verify listing existence after update miss: %w", countErr)
		}
		if count == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrOptimisticLock
	}
	if result.ModifiedCount == 0 {
		return repository.ErrUpdateFailed
	}
	return nil
}

func (r *ListingRepo) UpdateContent(ctx context.Context, params repository.UpdateListingContentParams) error {
	objID, err := primitive.ObjectIDFromHex(params.ListingID)
	if err != nil {
		return repository.ErrNotFound
	}

	set := bson.M{
		"title":       params.Title,
		"description": params.Description,
		"pricing":     params.Pricing,
		"updated_at":  time.Now().UTC(),
	}
	if params.Media != nil {
		set["media"] = params.Media
	}

	filter := bson.M{"_id": objID, "version": params.Version}
	update := bson.M{
		"$set": set,
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.Errorf("Failed to update content of listing %s: %v", params.ListingID, err)
		return fmt.Errorf("failed to update listing content: %w", err)
	}

	if result.MatchedCount == 0 {
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": objID})
		if countErr != nil {
			return fmt.Errorf("failed to verify listing existence after update miss: %w", countErr)
		}
		if count == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrOptimisticLock
	}
	return nil
}

func (r *ListingRepo) List(ctx context.Context, params repository.ListListingsParams) (*repository.ListListingsResult, error) {
	filter := bson.M{}
	if params.Kind != "" {
		filter["kind"] = params.Kind
	}
	if params.OwnerID != "" {
		filter["owner_id"] = params.OwnerID
	}
	if params.Status != "" {
		filter["status"] = params.Status
	}
	var clauses bson.A
	if params.Specialization != "" {
		clauses = append(clauses, bson.M{"$or": bson.A{
			bson.M{"specialization": params.Specialization},
			bson.M{"allowed_specializations": params.Specialization},
		}})
	}

	// Price bounds match fixed-priced listings directly and range-priced
	// listings by overlap.
	if params.MinPrice > 0 {
		clauses = append(clauses, bson.M{"$or": bson.A{
			bson.M{"pricing.fixed": bson.M{"$gte": params.MinPrice}},
			bson.M{"pricing.max": bson.M{"$gte": params.MinPrice}},
		}})
	}
	if params.MaxPrice > 0 {
		clauses = append(clauses, bson.M{"$or": bson.A{
			bson.M{"pricing.fixed": bson.M{"$gt": 0, "$lte": params.MaxPrice}},
			bson.M{"pricing.min": bson.M{"$gt": 0, "$lte": params.MaxPrice}},
		}})
	}
	if len(clauses) > 0 {
		filter["$and"] = clauses
	}

	totalCount, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Errorf("Failed to count listings: %v", err)
		return nil, fmt.Errorf("failed to count listings: %w", err)
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		r.logger.Errorf("Failed to find listings: %v", err)
		return nil, fmt.Errorf("failed to find listings: %w", err)
	}
	defer cursor.Close(ctx)

	listings := make([]entity.Listing, 0, pageSize)
	for cursor.Next(ctx) {
		var doc listingDocument
		if err := cursor.Decode(&doc); err != nil {
			r.logger.Errorf("Failed to decode listing document: %v", err)
			return nil, fmt.Errorf("failed to decode listing: %w", err)
		}
		listings = append(listings, *doc.toEntity())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("listing cursor error: %w", err)
	}

	return &repository.ListListingsResult{
		Listings:   listings,
		TotalCount: totalCount,
	}, nil
}

func (r *ListingRepo) CountByStatus(ctx context.Context) (map[entity.ListingStatus]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		r.logger.Errorf("Failed to aggregate listing counts: %v", err)
		return nil, fmt.Errorf("failed to aggregate listing counts: %w", err)
	}
	defer cursor.Close(ctx)

	counts := make(map[entity.ListingStatus]int64)
	for cursor.Next(ctx) {
		var row struct {
			Status entity.ListingStatus `bson:"_id"`
			Count  int64                `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode listing count row: %w", err)
		}
		counts[row.Status] = row.Count
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("listing count cursor error: %w", err)
	}
	return counts, nil
}
