// Package match holds the eligibility matcher: the pure predicate deciding
// whether a candidate may respond to a listing. It mutates nothing and
// reads only the candidate profile and the listing.
package match

import (
	"strings"

	"github.com/FayezAlshami/DTC/internal/domain/entity"
)

// CanRespond reports whether candidate may propose contact on listing.
// On refusal the second return value is a stable reason code.
//
// Rules, in order: the candidate must not be the owner, must hold a
// complete and active profile, the listing must be PUBLISHED, and for an
// Ask the candidate must be a provider whose specialization is in the
// allowed set and whose gender matches the preferred one when both are
// known. An Offer applies no constraint beyond profile completeness.
//
// Listing availability is checked before the Ask-specific rules: a
// candidate refused on an unavailable listing always gets
// LISTING_NOT_PUBLISHED, even when their profile would not fit either.
func CanRespond(candidate *entity.User, listing *entity.Listing) (bool, entity.EligibilityReason) {
	if candidate.ID == listing.OwnerID {
		return false, entity.ReasonSelfMatch
	}
	if !candidate.ProfileCompleted {
		return false, entity.ReasonProfileIncomplete
	}
	if !candidate.IsActive {
		return false, entity.ReasonUserInactive
	}
	if listing.Status != entity.StatusPublished {
		return false, entity.ReasonListingNotPublished
	}

	if listing.Kind == entity.KindAsk {
		if !candidate.IsProvider {
			return false, entity.ReasonNotProvider
		}
		if strings.TrimSpace(candidate.Specialization) == "" {
			return false, entity.ReasonSpecializationMissing
		}
		if !containsFold(listing.AllowedSpecializations, candidate.Specialization) {
			return false, entity.ReasonSpecializationMismatch
		}
		if listing.PreferredGender != "" && candidate.Gender != "" &&
			listing.PreferredGender != candidate.Gender {
			return false, entity.ReasonGenderMismatch
		}
	}

	return true, ""
}

func containsFold(set []string, want string) bool {
	for _, s := range set {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(want)) {
			return true
		}
	}
	return false
}
