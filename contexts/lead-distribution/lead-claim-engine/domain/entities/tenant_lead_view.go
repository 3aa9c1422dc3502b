package entities

import (
	"time"

	domainerrors "leadhub/contexts/lead-distribution/lead-claim-engine/domain/errors"
)

type VisibilityStatus string

const (
	VisibilityAvailable VisibilityStatus = "AVAILABLE"
	VisibilityClaimed   VisibilityStatus = "CLAIMED"
	VisibilityLocked    VisibilityStatus = "LOCKED"
)

func (s VisibilityStatus) Valid() bool {
	switch s {
	case VisibilityAvailable, VisibilityClaimed, VisibilityLocked:
		return true
	default:
		return false
	}
}

// CanTransition encodes the visibility state machine. LOCKED never moves
// straight to CLAIMED; the lock has to lift first.
func CanTransition(from VisibilityStatus, to VisibilityStatus) bool {
	switch from {
	case VisibilityAvailable:
		return to == VisibilityClaimed || to == VisibilityLocked
	case VisibilityClaimed, VisibilityLocked:
		return to == VisibilityAvailable
	default:
		return false
	}
}

// TenantLeadView is one tenant's relationship to one lead.
type TenantLeadView struct {
	TenantID          string
	LeadID            string
	VisibilityStatus  VisibilityStatus
	FitScore          int
	ClaimedByTenantID string
	ClaimedAt         *time.Time
	// ClaimID is the active claim holding (CLAIMED) or excluding (LOCKED) this view.
	ClaimID       string
	LeadCreatedAt time.Time
	UpdatedAt     time.Time
}

// Discoverable reports whether the view may surface in the tenant catalog.
func (v TenantLeadView) Discoverable(minimumScore int) bool {
	switch v.VisibilityStatus {
	case VisibilityClaimed:
		return true
	case VisibilityAvailable:
		return v.FitScore >= minimumScore
	default:
		return false
	}
}

func (v TenantLeadView) Claim(claim Claim) (TenantLeadView, error) {
	if !CanTransition(v.VisibilityStatus, VisibilityClaimed) {
		return v, domainerrors.ErrInvalidTransition
	}
	claimedAt := claim.ClaimedAt.UTC()
	v.VisibilityStatus = VisibilityClaimed
	v.ClaimedByTenantID = claim.TenantID
	v.ClaimedAt = &claimedAt
	v.ClaimID = claim.ClaimID
	v.UpdatedAt = claimedAt
	return v, nil
}

func (v TenantLeadView) LockBy(claim Claim) (TenantLeadView, error) {
	if !CanTransition(v.VisibilityStatus, VisibilityLocked) {
		return v, domainerrors.ErrInvalidTransition
	}
	claimedAt := claim.ClaimedAt.UTC()
	v.VisibilityStatus = VisibilityLocked
	v.ClaimedByTenantID = claim.TenantID
	v.ClaimedAt = &claimedAt
	v.ClaimID = claim.ClaimID
	v.UpdatedAt = claimedAt
	return v, nil
}

// Reopen moves a CLAIMED or LOCKED view back to AVAILABLE with a fresh score.
func (v TenantLeadView) Reopen(fitScore int, now time.Time) (TenantLeadView, error) {
	if !CanTransition(v.VisibilityStatus, VisibilityAvailable) {
		return v, domainerrors.ErrInvalidTransition
	}
	v.VisibilityStatus = VisibilityAvailable
	v.FitScore = ClampScore(fitScore)
	v.ClaimedByTenantID = ""
	v.ClaimedAt = nil
	v.ClaimID = ""
	v.UpdatedAt = now.UTC()
	return v, nil
}
