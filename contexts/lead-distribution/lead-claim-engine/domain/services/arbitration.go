package services

import (
	"sort"
	"time"

	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/entities"
	domainerrors "leadhub/contexts/lead-distribution/lead-claim-engine/domain/errors"
)

// LeadState is the consistent snapshot of one lead read inside the lead's
// serialization point. Settings holds every configured tenant.
type LeadState struct {
	Exists       bool
	Lead         entities.Lead
	Views        map[string]entities.TenantLeadView
	Settings     map[string]entities.TenantSettings
	ActiveClaims []entities.Claim
}

type ClaimRequest struct {
	ClaimID  string
	TenantID string
	Now      time.Time
}

type ClaimDecision struct {
	Claim entities.Claim
	Views []entities.TenantLeadView
}

// ArbitrateClaim decides a claim attempt against the locked snapshot. The
// effective mode is the tenant's configured mode at this instant.
func ArbitrateClaim(state LeadState, req ClaimRequest) (ClaimDecision, error) {
	if !state.Exists {
		return ClaimDecision{}, domainerrors.ErrLeadNotFound
	}
	settings, ok := state.Settings[req.TenantID]
	if !ok {
		return ClaimDecision{}, domainerrors.ErrTenantSettingsNotFound
	}
	view, ok := state.Views[req.TenantID]
	if !ok {
		return ClaimDecision{}, domainerrors.ErrNotEligible
	}

	switch view.VisibilityStatus {
	case entities.VisibilityClaimed:
		return ClaimDecision{}, domainerrors.ErrNotEligible
	case entities.VisibilityLocked:
		if view.ClaimID != "" {
			return ClaimDecision{}, domainerrors.ErrClaimConflict
		}
		return ClaimDecision{}, domainerrors.ErrNotEligible
	}

	fit, err := ComputeFitScore(&state.Lead, &settings)
	if err != nil {
		return ClaimDecision{}, err
	}
	if fit < settings.MinimumScore {
		return ClaimDecision{}, domainerrors.ErrNotEligible
	}

	region, key := ResolveContention(state.Lead, settings)
	if ExcludingClaim(state.ActiveClaims, state.Lead, settings) != nil {
		return ClaimDecision{}, domainerrors.ErrClaimConflict
	}

	claim, err := entities.NewClaim(
		req.ClaimID,
		req.TenantID,
		state.Lead.LeadID,
		settings.ClaimMode,
		region,
		key,
		req.Now,
	)
	if err != nil {
		return ClaimDecision{}, err
	}

	view.FitScore = fit
	claimed, err := view.Claim(claim)
	if err != nil {
		return ClaimDecision{}, err
	}
	changed := []entities.TenantLeadView{claimed}

	for tenantID, other := range state.Views {
		if tenantID == req.TenantID || other.VisibilityStatus != entities.VisibilityAvailable {
			continue
		}
		otherSettings, ok := state.Settings[tenantID]
		if !ok || !Excludes(claim, state.Lead, otherSettings) {
			continue
		}
		locked, err := other.LockBy(claim)
		if err != nil {
			return ClaimDecision{}, err
		}
		changed = append(changed, locked)
	}
	sortViews(changed)

	return ClaimDecision{Claim: claim, Views: changed}, nil
}

type ReleaseRequest struct {
	TenantID   string
	ReleasedBy string
	Reason     string
	Now        time.Time
}

type ReleaseDecision struct {
	Claim   entities.Claim
	Release entities.ClaimRelease
	Views   []entities.TenantLeadView
}

// ArbitrateRelease lifts the tenant's active claim on the lead. Every view the
// claim held or locked is re-scored against current settings; a view still
// excluded by another active claim stays LOCKED under that claim.
func ArbitrateRelease(state LeadState, req ReleaseRequest) (ReleaseDecision, error) {
	if !state.Exists {
		return ReleaseDecision{}, domainerrors.ErrLeadNotFound
	}

	var released *entities.Claim
	remaining := make([]entities.Claim, 0, len(state.ActiveClaims))
	for i := range state.ActiveClaims {
		claim := state.ActiveClaims[i]
		if claim.TenantID == req.TenantID && released == nil {
			released = &claim
			continue
		}
		remaining = append(remaining, claim)
	}
	if released == nil {
		return ReleaseDecision{}, domainerrors.ErrClaimNotFound
	}

	changed := make([]entities.TenantLeadView, 0)
	for tenantID, view := range state.Views {
		if view.ClaimID != released.ClaimID {
			continue
		}
		fit := view.FitScore
		settings, hasSettings := state.Settings[tenantID]
		if hasSettings {
			score, err := ComputeFitScore(&state.Lead, &settings)
			if err != nil {
				return ReleaseDecision{}, err
			}
			fit = score
		}
		reopened, err := view.Reopen(fit, req.Now)
		if err != nil {
			return ReleaseDecision{}, err
		}
		if hasSettings {
			if excluding := ExcludingClaim(remaining, state.Lead, settings); excluding != nil {
				reopened, err = reopened.LockBy(*excluding)
				if err != nil {
					return ReleaseDecision{}, err
				}
			}
		}
		changed = append(changed, reopened)
	}
	sortViews(changed)

	return ReleaseDecision{
		Claim: *released,
		Release: entities.ClaimRelease{
			ClaimID:    released.ClaimID,
			LeadID:     released.LeadID,
			TenantID:   released.TenantID,
			ReleasedBy: req.ReleasedBy,
			Reason:     req.Reason,
			ReleasedAt: req.Now.UTC(),
		},
		Views: changed,
	}, nil
}

// RescoreAvailableViews recomputes fit for AVAILABLE views only; CLAIMED and
// LOCKED views are left exactly as they are.
func RescoreAvailableViews(state LeadState, now time.Time) ([]entities.TenantLeadView, error) {
	changed := make([]entities.TenantLeadView, 0)
	for tenantID, view := range state.Views {
		if view.VisibilityStatus != entities.VisibilityAvailable {
			continue
		}
		settings, ok := state.Settings[tenantID]
		if !ok {
			continue
		}
		fit, err := ComputeFitScore(&state.Lead, &settings)
		if err != nil {
			return nil, err
		}
		if fit == view.FitScore {
			continue
		}
		view.FitScore = fit
		view.UpdatedAt = now.UTC()
		changed = append(changed, view)
	}
	sortViews(changed)
	return changed, nil
}

// ReconcileTenantView creates or refreshes one tenant's view of a lead after
// ingestion or a settings change. CLAIMED and LOCKED views are not touched.
func ReconcileTenantView(
	lead entities.Lead,
	settings entities.TenantSettings,
	existing *entities.TenantLeadView,
	activeClaims []entities.Claim,
	now time.Time,
) (entities.TenantLeadView, bool, error) {
	fit, err := ComputeFitScore(&lead, &settings)
	if err != nil {
		return entities.TenantLeadView{}, false, err
	}

	if existing == nil {
		view := entities.TenantLeadView{
			TenantID:         settings.TenantID,
			LeadID:           lead.LeadID,
			VisibilityStatus: entities.VisibilityAvailable,
			FitScore:         fit,
			LeadCreatedAt:    lead.CreatedAt.UTC(),
			UpdatedAt:        now.UTC(),
		}
		if excluding := ExcludingClaim(activeClaims, lead, settings); excluding != nil {
			view, err = view.LockBy(*excluding)
			if err != nil {
				return entities.TenantLeadView{}, false, err
			}
			view.UpdatedAt = now.UTC()
		}
		return view, true, nil
	}

	view := *existing
	if view.VisibilityStatus != entities.VisibilityAvailable {
		return view, false, nil
	}
	if excluding := ExcludingClaim(activeClaims, lead, settings); excluding != nil {
		view.FitScore = fit
		locked, err := view.LockBy(*excluding)
		if err != nil {
			return entities.TenantLeadView{}, false, err
		}
		locked.UpdatedAt = now.UTC()
		return locked, true, nil
	}
	if view.FitScore == fit {
		return view, false, nil
	}
	view.FitScore = fit
	view.UpdatedAt = now.UTC()
	return view, true, nil
}

// MaterializeViews builds views for configured tenants that have none yet.
func MaterializeViews(state LeadState, now time.Time) ([]entities.TenantLeadView, error) {
	created := make([]entities.TenantLeadView, 0)
	for tenantID, settings := range state.Settings {
		if _, ok := state.Views[tenantID]; ok {
			continue
		}
		view, _, err := ReconcileTenantView(state.Lead, settings, nil, state.ActiveClaims, now)
		if err != nil {
			return nil, err
		}
		created = append(created, view)
	}
	sortViews(created)
	return created, nil
}

// Excludes reports whether an active claim removes a tenant's eligibility.
// Either side's exclusivity counts: an exclusive claim blocks everyone it
// covers, and an exclusive tenant is blocked by any claim it could not
// coexist with. A view is LOCKED exactly when a claim attempt would conflict.
func Excludes(claim entities.Claim, lead entities.Lead, settings entities.TenantSettings) bool {
	if claim.TenantID == settings.TenantID {
		return false
	}
	if claim.LockMode == entities.ClaimModeFirstClaimExclusive ||
		settings.ClaimMode == entities.ClaimModeFirstClaimExclusive {
		return true
	}
	if claim.LockMode == entities.ClaimModeRegionExclusive ||
		settings.ClaimMode == entities.ClaimModeRegionExclusive {
		return RegionKey(lead, settings) == claim.RegionKey
	}
	return false
}

// ExcludingClaim returns the oldest active claim excluding the tenant, if any.
func ExcludingClaim(claims []entities.Claim, lead entities.Lead, settings entities.TenantSettings) *entities.Claim {
	var found *entities.Claim
	for i := range claims {
		if !Excludes(claims[i], lead, settings) {
			continue
		}
		if found == nil || claims[i].ClaimedAt.Before(found.ClaimedAt) {
			claim := claims[i]
			found = &claim
		}
	}
	return found
}

func sortViews(views []entities.TenantLeadView) {
	sort.Slice(views, func(i, j int) bool {
		return views[i].TenantID < views[j].TenantID
	})
}
