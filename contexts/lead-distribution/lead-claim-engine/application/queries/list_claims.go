package queries

import (
	"context"
	"log/slog"

	application "leadhub/contexts/lead-distribution/lead-claim-engine/application"
	domainerrors "leadhub/contexts/lead-distribution/lead-claim-engine/domain/errors"
	"leadhub/contexts/lead-distribution/lead-claim-engine/ports"
)

type ListTenantClaimsQuery struct {
	TenantID string
	Limit    int
}

type ListTenantClaimsResult struct {
	Items []ports.ClaimRecord
}

type ListTenantClaimsUseCase struct {
	Claims ports.ClaimHistoryRepository
	Logger *slog.Logger
}

func (u ListTenantClaimsUseCase) Execute(ctx context.Context, query ListTenantClaimsQuery) (ListTenantClaimsResult, error) {
	logger := application.ResolveLogger(u.Logger)
	if query.TenantID == "" {
		return ListTenantClaimsResult{}, domainerrors.ErrInvalidListFilter
	}
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultCatalogLimit
	}
	if limit > MaxCatalogLimit {
		limit = MaxCatalogLimit
	}

	items, err := u.Claims.ListClaimsByTenant(ctx, query.TenantID, limit)
	if err != nil {
		logger.Error("list tenant claims failed",
			"event", "list_tenant_claims_failed",
			"module", application.ModuleName,
			"layer", "application",
			"tenant_id", query.TenantID,
			"error", err.Error(),
		)
		return ListTenantClaimsResult{}, err
	}

	logger.Info("list tenant claims completed",
		"event", "list_tenant_claims_completed",
		"module", application.ModuleName,
		"layer", "application",
		"tenant_id", query.TenantID,
		"items_count", len(items),
	)
	return ListTenantClaimsResult{Items: items}, nil
}
