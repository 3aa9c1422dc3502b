package services

import (
	"fmt"

	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/entities"
)

// RegionKey resolves the region a tenant competes in for a lead: the smallest
// lead locality the tenant targets, else the lead's own city.
func RegionKey(lead entities.Lead, settings entities.TenantSettings) string {
	best := ""
	for _, key := range lead.LocalityKeys() {
		if !settings.TargetsCity(key) {
			continue
		}
		if best == "" || key < best {
			best = key
		}
	}
	if best != "" {
		return best
	}
	return entities.NormalizeKey(lead.City)
}

// ContentionKey is the serialization key for a claim attempt. Every claim mode
// goes through this one function; only the key's width changes.
func ContentionKey(mode entities.ClaimMode, leadID string, tenantID string, regionKey string) string {
	switch mode {
	case entities.ClaimModeFirstClaimExclusive:
		return fmt.Sprintf("lead:%s", leadID)
	case entities.ClaimModeRegionExclusive:
		return fmt.Sprintf("lead:%s:region:%s", leadID, regionKey)
	default:
		return fmt.Sprintf("lead:%s:tenant:%s", leadID, tenantID)
	}
}

// ResolveContention returns the region and contention key a tenant would use
// to claim the lead under its configured mode.
func ResolveContention(lead entities.Lead, settings entities.TenantSettings) (string, string) {
	region := RegionKey(lead, settings)
	return region, ContentionKey(settings.ClaimMode, lead.LeadID, settings.TenantID, region)
}
