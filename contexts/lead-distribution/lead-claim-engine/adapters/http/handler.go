package httpadapter

import (
	"context"
	"log/slog"
	"time"

	application "leadhub/contexts/lead-distribution/lead-claim-engine/application"
	"leadhub/contexts/lead-distribution/lead-claim-engine/application/commands"
	"leadhub/contexts/lead-distribution/lead-claim-engine/application/queries"
	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/entities"
	domainerrors "leadhub/contexts/lead-distribution/lead-claim-engine/domain/errors"
	"leadhub/contexts/lead-distribution/lead-claim-engine/ports"
	httptransport "leadhub/contexts/lead-distribution/lead-claim-engine/transport/http"
)

type Handler struct {
	ListLeads     queries.ListTenantLeadsUseCase
	ClaimLead     commands.ClaimLeadUseCase
	ReleaseClaim  commands.ReleaseClaimUseCase
	Recalculate   commands.RecalculateScoreUseCase
	PatchSettings commands.PatchTenantSettingsUseCase
	GetSettings   queries.GetTenantSettingsUseCase
	ListClaims    queries.ListTenantClaimsUseCase
	Logger        *slog.Logger
}

// ListTenantLeadsHandler godoc
// @Summary List tenant leads
// @Description Returns the caller tenant's lead catalog, newest first, with keyset cursor pagination.
// @Tags lead-claim-engine
// @Produce json
// @Param X-Tenant-Id header string true "Tenant id"
// @Param X-User-Role header string true "Caller role"
// @Param cursor query string false "Cursor token"
// @Param limit query int false "Page size (1-100, default 25)"
// @Param visibility_status query string false "AVAILABLE, CLAIMED or LOCKED"
// @Param min_fit_score query int false "Minimum fit score (0-100)"
// @Success 200 {object} httptransport.ListTenantLeadsResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/tenant/leads [get]
func (h Handler) ListTenantLeadsHandler(
	ctx context.Context,
	identity httptransport.Identity,
	req httptransport.ListTenantLeadsRequest,
) (httptransport.ListTenantLeadsResponse, error) {
	if !entities.ParseRole(identity.Role).IsMember() {
		return httptransport.ListTenantLeadsResponse{}, domainerrors.ErrForbidden
	}
	result, err := h.ListLeads.Execute(ctx, queries.ListTenantLeadsQuery{
		TenantID:         identity.TenantID,
		Cursor:           req.Cursor,
		Limit:            req.Limit,
		VisibilityStatus: req.VisibilityStatus,
		MinFitScore:      req.MinFitScore,
	})
	if err != nil {
		return httptransport.ListTenantLeadsResponse{}, err
	}
	items := make([]httptransport.TenantLeadDTO, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, mapCatalogItem(item))
	}
	return httptransport.ListTenantLeadsResponse{
		Items:      items,
		NextCursor: result.NextCursor,
	}, nil
}

// ClaimLeadHandler godoc
// @Summary Claim a lead
// @Description Arbitrates a claim under the tenant's configured claim mode. A lost race returns 409 lead_already_claimed.
// @Tags lead-claim-engine
// @Accept json
// @Produce json
// @Param X-Tenant-Id header string true "Tenant id"
// @Param X-User-Role header string true "Caller role"
// @Param Idempotency-Key header string false "Idempotency key"
// @Param lead_id path string true "Lead id"
// @Param request body httptransport.ClaimLeadRequest false "Claim payload"
// @Success 200 {object} httptransport.ClaimLeadResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 422 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/tenant/leads/{lead_id}/claim [post]
func (h Handler) ClaimLeadHandler(
	ctx context.Context,
	identity httptransport.Identity,
	leadID string,
	idempotencyKey string,
	req httptransport.ClaimLeadRequest,
) (httptransport.ClaimLeadResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("claim lead request received",
		"event", "http_claim_lead_received",
		"module", application.ModuleName,
		"layer", "transport",
		"tenant_id", identity.TenantID,
		"lead_id", leadID,
	)

	result, err := h.ClaimLead.Execute(ctx, commands.ClaimLeadCommand{
		TenantID:       identity.TenantID,
		Role:           identity.Role,
		LeadID:         leadID,
		LockMode:       req.LockMode,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return httptransport.ClaimLeadResponse{}, err
	}
	return httptransport.ClaimLeadResponse{
		Claim:    mapClaim(result.Claim),
		Replayed: result.Replayed,
	}, nil
}

// ReleaseClaimHandler godoc
// @Summary Release a claim
// @Description Releases the tenant's active claim and reopens every view the claim held or locked.
// @Tags lead-claim-engine
// @Accept json
// @Produce json
// @Param X-Tenant-Id header string true "Tenant id"
// @Param X-User-Role header string true "Caller role"
// @Param X-User-Id header string false "Acting user id"
// @Param lead_id path string true "Lead id"
// @Param request body httptransport.ReleaseClaimRequest false "Release payload"
// @Success 200 {object} httptransport.ReleaseClaimResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/tenant/leads/{lead_id}/release [post]
func (h Handler) ReleaseClaimHandler(
	ctx context.Context,
	identity httptransport.Identity,
	leadID string,
	req httptransport.ReleaseClaimRequest,
) (httptransport.ReleaseClaimResponse, error) {
	result, err := h.ReleaseClaim.Execute(ctx, commands.ReleaseClaimCommand{
		TenantID: identity.TenantID,
		Role:     identity.Role,
		UserID:   identity.UserID,
		LeadID:   leadID,
		Reason:   req.Reason,
	})
	if err != nil {
		return httptransport.ReleaseClaimResponse{}, err
	}
	return httptransport.ReleaseClaimResponse{
		ClaimID:         result.Release.ClaimID,
		LeadID:          result.Release.LeadID,
		Reason:          result.Release.Reason,
		ReleasedAt:      formatTime(result.Release.ReleasedAt),
		ReopenedTenants: nonNil(result.ReopenedTenants),
	}, nil
}

// RecalculateScoreHandler godoc
// @Summary Recalculate a lead's base score
// @Description Recomputes the automation base score and re-scores AVAILABLE tenant views only.
// @Tags lead-claim-engine
// @Produce json
// @Param X-Tenant-Id header string true "Tenant id"
// @Param X-User-Role header string true "Caller role (owner)"
// @Param lead_id path string true "Lead id"
// @Success 200 {object} httptransport.RecalculateScoreResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/leads/{lead_id}/recalculate [post]
func (h Handler) RecalculateScoreHandler(
	ctx context.Context,
	identity httptransport.Identity,
	leadID string,
) (httptransport.RecalculateScoreResponse, error) {
	result, err := h.Recalculate.Execute(ctx, commands.RecalculateScoreCommand{
		TenantID: identity.TenantID,
		Role:     identity.Role,
		LeadID:   leadID,
	})
	if err != nil {
		return httptransport.RecalculateScoreResponse{}, err
	}
	return httptransport.RecalculateScoreResponse{
		LeadID:          result.Lead.LeadID,
		PreviousScore:   result.PreviousScore,
		BaseScore:       result.Lead.BaseScore,
		ScoredAt:        formatTime(result.Lead.ScoredAt),
		RescoredTenants: nonNil(result.RescoredTenants),
	}, nil
}

// GetTenantSettingsHandler godoc
// @Summary Get tenant settings
// @Tags lead-claim-engine
// @Produce json
// @Param X-Tenant-Id header string true "Tenant id"
// @Param X-User-Role header string true "Caller role"
// @Success 200 {object} httptransport.TenantSettingsResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/tenant/settings [get]
func (h Handler) GetTenantSettingsHandler(
	ctx context.Context,
	identity httptransport.Identity,
) (httptransport.TenantSettingsResponse, error) {
	if !entities.ParseRole(identity.Role).IsMember() {
		return httptransport.TenantSettingsResponse{}, domainerrors.ErrForbidden
	}
	settings, err := h.GetSettings.Execute(ctx, queries.GetTenantSettingsQuery{TenantID: identity.TenantID})
	if err != nil {
		return httptransport.TenantSettingsResponse{}, err
	}
	return mapSettings(settings, 0), nil
}

// PatchTenantSettingsHandler godoc
// @Summary Patch tenant settings
// @Description Updates targeting, threshold or claim mode and re-scores the tenant's AVAILABLE views.
// @Tags lead-claim-engine
// @Accept json
// @Produce json
// @Param X-Tenant-Id header string true "Tenant id"
// @Param X-User-Role header string true "Caller role (owner)"
// @Param request body httptransport.PatchTenantSettingsRequest true "Settings patch"
// @Success 200 {object} httptransport.TenantSettingsResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/tenant/settings [patch]
func (h Handler) PatchTenantSettingsHandler(
	ctx context.Context,
	identity httptransport.Identity,
	req httptransport.PatchTenantSettingsRequest,
) (httptransport.TenantSettingsResponse, error) {
	result, err := h.PatchSettings.Execute(ctx, commands.PatchTenantSettingsCommand{
		TenantID:         identity.TenantID,
		Role:             identity.Role,
		TargetCities:     req.TargetCities,
		TargetCategories: req.TargetCategories,
		MinimumScore:     req.MinimumScore,
		ClaimMode:        req.ClaimMode,
	})
	if err != nil {
		return httptransport.TenantSettingsResponse{}, err
	}
	return mapSettings(result.Settings, result.ViewsUpdated), nil
}

// ListTenantClaimsHandler godoc
// @Summary List tenant claims
// @Description Returns the tenant's claims newest first, with release details when released.
// @Tags lead-claim-engine
// @Produce json
// @Param X-Tenant-Id header string true "Tenant id"
// @Param X-User-Role header string true "Caller role"
// @Param limit query int false "Max items (default 25, max 100)"
// @Success 200 {object} httptransport.ListTenantClaimsResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/tenant/claims [get]
func (h Handler) ListTenantClaimsHandler(
	ctx context.Context,
	identity httptransport.Identity,
	limit int,
) (httptransport.ListTenantClaimsResponse, error) {
	if !entities.ParseRole(identity.Role).IsMember() {
		return httptransport.ListTenantClaimsResponse{}, domainerrors.ErrForbidden
	}
	result, err := h.ListClaims.Execute(ctx, queries.ListTenantClaimsQuery{
		TenantID: identity.TenantID,
		Limit:    limit,
	})
	if err != nil {
		return httptransport.ListTenantClaimsResponse{}, err
	}
	items := make([]httptransport.ClaimHistoryDTO, 0, len(result.Items))
	for _, record := range result.Items {
		item := httptransport.ClaimHistoryDTO{
			Claim:  mapClaim(record.Claim),
			Active: record.Release == nil,
		}
		if record.Release != nil {
			item.ReleasedAt = formatTime(record.Release.ReleasedAt)
			item.Reason = record.Release.Reason
		}
		items = append(items, item)
	}
	return httptransport.ListTenantClaimsResponse{Items: items}, nil
}

func mapCatalogItem(item ports.CatalogItem) httptransport.TenantLeadDTO {
	dto := httptransport.TenantLeadDTO{
		Lead: httptransport.LeadSummaryDTO{
			LeadID:     item.Lead.LeadID,
			Name:       item.Lead.Name,
			City:       item.Lead.City,
			Localities: item.Lead.Localities,
			Category:   item.Lead.Category,
			Source:     item.Lead.Source,
			BaseScore:  item.Lead.BaseScore,
			CreatedAt:  formatTime(item.Lead.CreatedAt),
		},
		VisibilityStatus:  string(item.View.VisibilityStatus),
		FitScore:          item.View.FitScore,
		ClaimedByTenantID: item.View.ClaimedByTenantID,
	}
	if item.View.ClaimedAt != nil {
		dto.ClaimedAt = formatTime(*item.View.ClaimedAt)
	}
	return dto
}

func mapClaim(claim entities.Claim) httptransport.ClaimDTO {
	return httptransport.ClaimDTO{
		ClaimID:   claim.ClaimID,
		LeadID:    claim.LeadID,
		TenantID:  claim.TenantID,
		LockMode:  string(claim.LockMode),
		RegionKey: claim.RegionKey,
		ClaimedAt: formatTime(claim.ClaimedAt),
	}
}

func mapSettings(settings entities.TenantSettings, viewsUpdated int) httptransport.TenantSettingsResponse {
	return httptransport.TenantSettingsResponse{
		TenantID:         settings.TenantID,
		TargetCities:     nonNil(settings.TargetCities),
		TargetCategories: nonNil(settings.TargetCategories),
		MinimumScore:     settings.MinimumScore,
		ClaimMode:        string(settings.ClaimMode),
		UpdatedAt:        formatTime(settings.UpdatedAt),
		ViewsUpdated:     viewsUpdated,
	}
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
