package entities

import (
	"sort"
	"time"

	domainerrors "leadhub/contexts/lead-distribution/lead-claim-engine/domain/errors"
)

const MaxTargetEntries = 100

type ClaimMode string

const (
	ClaimModeMultiTenantShared   ClaimMode = "MULTI_TENANT_SHARED"
	ClaimModeFirstClaimExclusive ClaimMode = "FIRST_CLAIM_EXCLUSIVE"
	ClaimModeRegionExclusive     ClaimMode = "REGION_EXCLUSIVE"
)

func (m ClaimMode) Valid() bool {
	switch m {
	case ClaimModeMultiTenantShared, ClaimModeFirstClaimExclusive, ClaimModeRegionExclusive:
		return true
	default:
		return false
	}
}

type TenantSettings struct {
	TenantID         string
	TargetCities     []string
	TargetCategories []string
	MinimumScore     int
	ClaimMode        ClaimMode
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DefaultTenantSettings is the starting point for a tenant's first patch.
func DefaultTenantSettings(tenantID string, now time.Time) TenantSettings {
	return TenantSettings{
		TenantID:         tenantID,
		TargetCities:     []string{},
		TargetCategories: []string{},
		MinimumScore:     0,
		ClaimMode:        ClaimModeMultiTenantShared,
		CreatedAt:        now.UTC(),
		UpdatedAt:        now.UTC(),
	}
}

func (s TenantSettings) Validate() error {
	if s.TenantID == "" {
		return domainerrors.ErrInvalidSettings
	}
	if len(s.TargetCities) > MaxTargetEntries || len(s.TargetCategories) > MaxTargetEntries {
		return domainerrors.ErrInvalidSettings
	}
	if s.MinimumScore < MinScore || s.MinimumScore > MaxScore {
		return domainerrors.ErrInvalidSettings
	}
	if !s.ClaimMode.Valid() {
		return domainerrors.ErrInvalidSettings
	}
	return nil
}

// Normalized returns a copy with target sets normalized, de-duplicated and sorted.
func (s TenantSettings) Normalized() TenantSettings {
	s.TargetCities = normalizeSet(s.TargetCities)
	s.TargetCategories = normalizeSet(s.TargetCategories)
	return s
}

func (s TenantSettings) TargetsCity(key string) bool {
	return containsKey(s.TargetCities, key)
}

func (s TenantSettings) TargetsCategory(key string) bool {
	return containsKey(s.TargetCategories, key)
}

func normalizeSet(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		key := NormalizeKey(value)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func containsKey(values []string, key string) bool {
	key = NormalizeKey(key)
	for _, value := range values {
		if NormalizeKey(value) == key {
			return true
		}
	}
	return false
}
