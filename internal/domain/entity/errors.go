package entity

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed listing content or pricing. Local to
// submission, surfaced verbatim to the caller, never retried.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// AuthError reports that the actor lacks the capability for the requested
// operation (not an admin, not the owner). Always fatal to the operation.
type AuthError struct {
	ActorID string
	Action  string
}

func NewAuthError(actorID, action string) *AuthError {
	return &AuthError{ActorID: actorID, Action: action}
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("actor %s is not permitted to %s", e.ActorID, e.Action)
}

// StateError reports an illegal transition from the entity's current
// state. It carries the current state so the caller can re-render; a
// retry without a state change reproduces it, so it is never retried.
type StateError struct {
	Current string
	Event   string
}

func NewStateError(current, event string) *StateError {
	return &StateError{Current: current, Event: event}
}

func (e *StateError) Error() string {
	return fmt.Sprintf("invalid transition: event %q is not allowed in state %q", e.Event, e.Current)
}

// EligibilityReason is a stable, enumerable code so the coordinating
// layer can render a localized message.
type EligibilityReason string

const (
	ReasonSelfMatch              EligibilityReason = "SELF_MATCH"
	ReasonProfileIncomplete      EligibilityReason = "PROFILE_INCOMPLETE"
	ReasonUserInactive           EligibilityReason = "USER_INACTIVE"
	ReasonNotProvider            EligibilityReason = "NOT_PROVIDER"
	ReasonSpecializationMissing  EligibilityReason = "SPECIALIZATION_MISSING"
	ReasonSpecializationMismatch EligibilityReason = "SPECIALIZATION_MISMATCH"
	ReasonGenderMismatch         EligibilityReason = "GENDER_MISMATCH"
	ReasonListingNotPublished    EligibilityReason = "LISTING_NOT_PUBLISHED"
)

// EligibilityError reports that a candidate fails the matcher's rules.
// Surfaced to the caller, not logged as an anomaly.
type EligibilityError struct {
	Reason EligibilityReason
}

func NewEligibilityError(reason EligibilityReason) *EligibilityError {
	return &EligibilityError{Reason: reason}
}

func (e *EligibilityError) Error() string {
	return fmt.Sprintf("not eligible to respond: %s", e.Reason)
}

// PublishError reports a failed channel publish. Transient and
// collaborator-side; the compensating publishFailure transition is the
// caller's recovery path.
type PublishError struct {
	Err error
}

func NewPublishError(err error) *PublishError {
	return &PublishError{Err: err}
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("channel publish failed: %v", e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

var ErrListingNotFound = errors.New("listing not found")
var ErrNegotiationNotFound = errors.New("negotiation not found")
var ErrUserNotFound = errors.New("user not found")
