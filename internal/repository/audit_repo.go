package repository

import (
	"context"

	"github.com/FayezAlshami/DTC/internal/domain/entity"
)

type ListAuditParams struct {
	AdminID  string
	Page     int
	PageSize int
}

// AuditRepository is append-only: records are written on every moderation
// decision and read back only by admin tooling.
type AuditRepository interface {
	Append(ctx context.Context, record *entity.AuditRecord) error
	List(ctx context.Context, params ListAuditParams) ([]entity.AuditRecord, int64, error)
}
