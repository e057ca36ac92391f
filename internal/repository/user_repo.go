package repository

import (
	"context"

	"github.com/FayezAlshami/DTC/internal/domain/entity"
)

// UserReader exposes the profile fields the core needs. Profiles are
// owned by the account subsystem; the marketplace never writes them.
type UserReader interface {
	GetByID(ctx context.Context, userID string) (*entity.User, error)
	CountUsers(ctx context.Context) (total, active, providers int64, err error)
}
