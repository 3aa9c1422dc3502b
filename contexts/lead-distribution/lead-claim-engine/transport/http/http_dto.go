package httptransport

// Identity is the caller as resolved by the upstream authorization layer.
type Identity struct {
	TenantID string
	Role     string
	UserID   string
}

type ListTenantLeadsRequest struct {
	Cursor           string `json:"cursor,omitempty"`
	Limit            int    `json:"limit,omitempty"`
	VisibilityStatus string `json:"visibility_status,omitempty"`
	MinFitScore      *int   `json:"min_fit_score,omitempty"`
}

type LeadSummaryDTO struct {
	LeadID     string   `json:"lead_id"`
	Name       string   `json:"name"`
	City       string   `json:"city"`
	Localities []string `json:"localities,omitempty"`
	Category   string   `json:"category"`
	Source     string   `json:"source,omitempty"`
	BaseScore  int      `json:"base_score"`
	CreatedAt  string   `json:"created_at"`
}

type TenantLeadDTO struct {
	Lead              LeadSummaryDTO `json:"lead"`
	VisibilityStatus  string         `json:"visibility_status"`
	FitScore          int            `json:"fit_score"`
	ClaimedByTenantID string         `json:"claimed_by_tenant_id,omitempty"`
	ClaimedAt         string         `json:"claimed_at,omitempty"`
}

type ListTenantLeadsResponse struct {
	Items      []TenantLeadDTO `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type ClaimLeadRequest struct {
	LockMode string `json:"lock_mode,omitempty"`
}

type ClaimDTO struct {
	ClaimID   string `json:"claim_id"`
	LeadID    string `json:"lead_id"`
	TenantID  string `json:"tenant_id"`
	LockMode  string `json:"lock_mode"`
	RegionKey string `json:"region_key,omitempty"`
	ClaimedAt string `json:"claimed_at"`
}

type ClaimLeadResponse struct {
	Claim    ClaimDTO `json:"claim"`
	Replayed bool     `json:"replayed"`
}

type ReleaseClaimRequest struct {
	Reason string `json:"reason,omitempty"`
}

type ReleaseClaimResponse struct {
	ClaimID         string   `json:"claim_id"`
	LeadID          string   `json:"lead_id"`
	Reason          string   `json:"reason"`
	ReleasedAt      string   `json:"released_at"`
	ReopenedTenants []string `json:"reopened_tenants"`
}

type RecalculateScoreResponse struct {
	LeadID          string   `json:"lead_id"`
	PreviousScore   int      `json:"previous_score"`
	BaseScore       int      `json:"base_score"`
	ScoredAt        string   `json:"scored_at"`
	RescoredTenants []string `json:"rescored_tenants"`
}

type PatchTenantSettingsRequest struct {
	TargetCities     *[]string `json:"target_cities,omitempty"`
	TargetCategories *[]string `json:"target_categories,omitempty"`
	MinimumScore     *int      `json:"minimum_score,omitempty"`
	ClaimMode        *string   `json:"claim_mode,omitempty"`
}

type TenantSettingsResponse struct {
	TenantID         string   `json:"tenant_id"`
	TargetCities     []string `json:"target_cities"`
	TargetCategories []string `json:"target_categories"`
	MinimumScore     int      `json:"minimum_score"`
	ClaimMode        string   `json:"claim_mode"`
	UpdatedAt        string   `json:"updated_at"`
	ViewsUpdated     int      `json:"views_updated,omitempty"`
}

type ClaimHistoryDTO struct {
	Claim      ClaimDTO `json:"claim"`
	Active     bool     `json:"active"`
	ReleasedAt string   `json:"released_at,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

type ListTenantClaimsResponse struct {
	Items []ClaimHistoryDTO `json:"items"`
}

type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}
