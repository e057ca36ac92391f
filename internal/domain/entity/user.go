package entity

import "time"

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// User is read-only reference data for the marketplace core: profiles are
// owned and mutated by the account subsystem, the core only reads them to
// decide eligibility and to render contact notifications.
type User struct {
	ID               string    `bson:"_id,omitempty"`
	FullName         string    `bson:"full_name,omitempty"`
	Email            string    `bson:"email"`
	PhoneNumber      string    `bson:"phone_number,omitempty"`
	Specialization   string    `bson:"specialization,omitempty"`
	Gender           Gender    `bson:"gender,omitempty"`
	IsProvider       bool      `bson:"is_provider"`
	ProfileCompleted bool      `bson:"profile_completed"`
	IsActive         bool      `bson:"is_active"`
	IsAdmin          bool      `bson:"is_admin"`
	CreatedAt        time.Time `bson:"created_at"`
}
