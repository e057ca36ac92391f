package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/FayezAlshami/DTC/internal/domain/entity"
	"github.com/FayezAlshami/DTC/internal/platform/logger"
	"github.com/FayezAlshami/DTC/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const userCollection = "users"

type userDocument struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	FullName         string             `bson:"full_name,omitempty"`
	Email            string             `bson:"email"`
	PhoneNumber      string             `bson:"phone_number,omitempty"`
	Specialization   string             `bson:"specialization,omitempty"`
	Gender           entity.Gender      `bson:"gender,omitempty"`
	IsProvider       bool               `bson:"is_provider"`
	ProfileCompleted bool               `bson:"profile_completed"`
	IsActive         bool               `bson:"is_active"`
	IsAdmin          bool               `bson:"is_admin"`
}

// UserRepo reads profiles written by the account subsystem. It satisfies
// repository.UserReader and never mutates the collection.
type UserRepo struct {
	collection *mongo.Collection
	logger     logger.Logger
}

func NewUserRepo(db *mongo.Database, log logger.Logger) *UserRepo {
	return &UserRepo{
		collection: db.Collection(userCollection),
		logger:     log,
	}
}

func (r *UserRepo) GetByID(ctx context.Context, userID string) (*entity.User, error) {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, repository.ErrNotFound
	}

	var doc userDocument
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		r.logger.Errorf("Failed to find user %s: %v", userID, err)
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return &entity.User{
		ID:               doc.ID.Hex(),
		FullName:         doc.FullName,
		Email:            doc.Email,
		PhoneNumber:      doc.PhoneNumber,
		Specialization:   doc.Specialization,
		Gender:           doc.Gender,
		IsProvider:       doc.IsProvider,
		ProfileCompleted: doc.ProfileCompleted,
		IsActive:         doc.IsActive,
		IsAdmin:          doc.IsAdmin,
	}, nil
}

func (r *UserRepo) CountUsers(ctx context.Context) (total, active, providers int64, err error) {
	total, err = r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count users: %w", err)
	}
	active, err = r.collection.CountDocuments(ctx, bson.M{"is_active": true})
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count active users: %w", err)
	}
	providers, err = r.collection.CountDocuments(ctx, bson.M{"is_provider": true})
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count providers: %w", err)
	}
	return total, active, providers, nil
}
