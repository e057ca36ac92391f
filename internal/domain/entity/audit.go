package entity

import "time"

// AuditRecord is the immutable trace of one moderation decision. Every
// Moderation Gate call writes one; the core never reads them back except
// through the admin query surface.
type AuditRecord struct {
	ID         string            `bson:"_id,omitempty"`
	AdminID    string            `bson:"admin_id"`
	ActionType string            `bson:"action_type"`
	TargetType string            `bson:"target_type"`
	TargetID   string            `bson:"target_id"`
	Details    map[string]string `bson:"details,omitempty"`
	CreatedAt  time.Time         `bson:"created_at"`
}
