package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidClaimRequest    = errors.New("invalid claim request")
	ErrInvalidListFilter      = errors.New("invalid list filter")
	ErrInvalidCursor          = errors.New("invalid cursor")
	ErrInvalidSettings        = errors.New("invalid tenant settings")
	ErrInvalidLead            = errors.New("invalid lead")
	ErrForbidden              = errors.New("forbidden")
	ErrLeadNotFound           = errors.New("lead not found")
	ErrTenantSettingsNotFound = errors.New("tenant settings not found")
	ErrClaimNotFound          = errors.New("active claim not found")
	ErrNotEligible            = errors.New("lead is not eligible for claim")
	ErrClaimConflict          = errors.New("lead already claimed")
	ErrInvalidLockMode        = errors.New("lock mode incompatible with tenant claim mode")
	ErrInvalidTransition      = errors.New("invalid visibility transition")
	ErrIdempotencyKeyConflict = errors.New("idempotency key reused with different request")
	ErrRepositoryInvariant    = errors.New("repository invariant violated")

	ErrScoringPrecondition    = errors.New("fit scoring precondition failed")
	ErrScoringLeadMissing     = fmt.Errorf("lead input missing: %w", ErrScoringPrecondition)
	ErrScoringSettingsMissing = fmt.Errorf("tenant settings input missing: %w", ErrScoringPrecondition)

	// ErrClaimContended is returned when the contention key could not be
	// acquired within the bounded wait. It matches ErrClaimConflict.
	ErrClaimContended = fmt.Errorf("claim contention wait exceeded: %w", ErrClaimConflict)
)

// IsRetryable reports whether the caller may retry after refreshing its view.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrClaimConflict)
}
