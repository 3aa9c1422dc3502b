package entities

import (
	"strings"
	"time"

	domainerrors "leadhub/contexts/lead-distribution/lead-claim-engine/domain/errors"
)

// Claim is an immutable arbitration outcome. Releases are recorded
// separately; a released lead that is claimed again gets a new Claim.
type Claim struct {
	ClaimID       string
	TenantID      string
	LeadID        string
	LockMode      ClaimMode
	RegionKey     string
	ContentionKey string
	ClaimedAt     time.Time
}

func NewClaim(
	claimID string,
	tenantID string,
	leadID string,
	lockMode ClaimMode,
	regionKey string,
	contentionKey string,
	claimedAt time.Time,
) (Claim, error) {
	if strings.TrimSpace(claimID) == "" ||
		strings.TrimSpace(tenantID) == "" ||
		strings.TrimSpace(leadID) == "" ||
		strings.TrimSpace(contentionKey) == "" {
		return Claim{}, domainerrors.ErrInvalidClaimRequest
	}
	if !lockMode.Valid() {
		return Claim{}, domainerrors.ErrInvalidLockMode
	}
	return Claim{
		ClaimID:       claimID,
		TenantID:      tenantID,
		LeadID:        leadID,
		LockMode:      lockMode,
		RegionKey:     regionKey,
		ContentionKey: contentionKey,
		ClaimedAt:     claimedAt.UTC(),
	}, nil
}

func (c Claim) Exclusive() bool {
	return c.LockMode == ClaimModeFirstClaimExclusive || c.LockMode == ClaimModeRegionExclusive
}

type ClaimRelease struct {
	ClaimID    string
	LeadID     string
	TenantID   string
	ReleasedBy string
	Reason     string
	ReleasedAt time.Time
}
