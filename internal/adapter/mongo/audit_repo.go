package mongo

import (
	"context"
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

const auditCollection = "audit_records"

type auditDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	AdminID    string             `bson:"admin_id"`
	ActionType string             `bson:"action_type"`
	TargetType string             `bson:"target_type"`
	TargetID   string             `bson:"target_id"`
	Details    map[string]string  `bson:"details,omitempty"`
	CreatedAt  time.Time          `bson:"created_at"`
}

type AuditRepo struct {
	collection *mongo.Collection
	logger     logger.Logger
}

func NewAuditRepo(db *mongo.Database, log logger.Logger) *AuditRepo {
	return &AuditRepo{
		collection: db.Collection(auditCollection),
		logger:     log,
	}
}

func (r *AuditRepo) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "admin_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "target_id", Value: 1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create audit indexes: %w", err)
	}
	return nil
}

func (r *AuditRepo) Append(ctx context.Context, record *entity.AuditRecord) error {
	doc := &auditDocument{
		ID:         primitive.NewObjectID(),
		AdminID:    record.AdminID,
		ActionType: record.ActionType,
		TargetType: record.TargetType,
		TargetID:   record.TargetID,
		Details:    record.Details,
		CreatedAt:  record.CreatedAt,
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	_, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		r.logger.Errorf("Failed to append audit record for admin %s: %v", record.AdminID, err)
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	record.ID = doc.ID.Hex()
	return nil
}

func (r *AuditRepo) List(ctx context.Context, params repository.ListAuditParams) ([]entity.AuditRecord, int64, error) {
	filter := bson.M{}
	if params.AdminID != "" {
		filter["admin_id"] = params.AdminID
	}

	totalCount, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count audit records: %w", err)
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		r.logger.Errorf("Failed to find audit records: %v", err)
		return nil, 0, fmt.Errorf("failed to find audit records: %w", err)
	}
	defer cursor.Close(ctx)

	records := make([]entity.AuditRecord, 0, pageSize)
	for cursor.Next(ctx) {
		var doc auditDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, 0, fmt.Errorf("failed to decode audit record: %w", err)
		}
		records = append(records, entity.AuditRecord{
			ID:         doc.ID.Hex(),
			AdminID:    doc.AdminID,
			ActionType: doc.ActionType,
			TargetType: doc.TargetType,
			TargetID:   doc.TargetID,
			Details:    doc.Details,
			CreatedAt:  doc.CreatedAt,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, fmt.Errorf("audit cursor error: %w", err)
	}
	return records, totalCount, nil
}
