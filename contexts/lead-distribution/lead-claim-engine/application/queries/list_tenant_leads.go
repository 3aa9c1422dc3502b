package queries

import (
	"context"
	"log/slog"
	"strings"

	application "leadhub/contexts/lead-distribution/lead-claim-engine/application"
	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/entities"
	domainerrors "leadhub/contexts/lead-distribution/lead-claim-engine/domain/errors"
	"leadhub/contexts/lead-distribution/lead-claim-engine/ports"
)

const (
	DefaultCatalogLimit = 25
	MaxCatalogLimit     = 100
)

type ListTenantLeadsQuery struct {
	TenantID         string
	Cursor           string
	Limit            int
	VisibilityStatus string
	MinFitScore      *int
}

type ListTenantLeadsResult struct {
	Items      []ports.CatalogItem
	NextCursor string
}

type ListTenantLeadsUseCase struct {
	Catalog  ports.CatalogRepository
	Settings ports.TenantSettingsRepository
	Metrics  ports.ClaimMetrics
	Logger   *slog.Logger
}

func (u ListTenantLeadsUseCase) Execute(ctx context.Context, query ListTenantLeadsQuery) (ListTenantLeadsResult, error) {
	logger := application.ResolveLogger(u.Logger)
	if strings.TrimSpace(query.TenantID) == "" {
		return ListTenantLeadsResult{}, domainerrors.ErrInvalidListFilter
	}
	limit := query.Limit
	if limit == 0 {
		limit = DefaultCatalogLimit
	}
	if limit < 1 || limit > MaxCatalogLimit {
		return ListTenantLeadsResult{}, domainerrors.ErrInvalidListFilter
	}
	status := entities.VisibilityStatus(strings.ToUpper(strings.TrimSpace(query.VisibilityStatus)))
	if status != "" && !status.Valid() {
		return ListTenantLeadsResult{}, domainerrors.ErrInvalidListFilter
	}
	if query.MinFitScore != nil && (*query.MinFitScore < entities.MinScore || *query.MinFitScore > entities.MaxScore) {
		return ListTenantLeadsResult{}, domainerrors.ErrInvalidListFilter
	}
	after, err := DecodeCursor(query.Cursor)
	if err != nil {
		return ListTenantLeadsResult{}, err
	}

	settings, err := u.Settings.GetTenantSettings(ctx, query.TenantID)
	if err != nil {
		return ListTenantLeadsResult{}, err
	}

	logger.Info("list tenant leads started",
		"event", "list_tenant_leads_started",
		"module", application.ModuleName,
		"layer", "application",
		"tenant_id", query.TenantID,
		"visibility_status", status,
		"limit", limit,
		"has_cursor", after != nil,
	)

	items, err := u.Catalog.ListTenantLeadViews(ctx, ports.CatalogFilter{
		TenantID:         query.TenantID,
		VisibilityStatus: status,
		MinimumScore:     settings.MinimumScore,
		MinFitScore:      query.MinFitScore,
		After:            after,
		Limit:            limit + 1,
	})
	if err != nil {
		logger.Error("list tenant leads failed",
			"event", "list_tenant_leads_failed",
			"module", application.ModuleName,
			"layer", "application",
			"tenant_id", query.TenantID,
			"error", err.Error(),
		)
		return ListTenantLeadsResult{}, err
	}

	nextCursor := ""
	if len(items) > limit {
		items = items[:limit]
		last := items[len(items)-1]
		nextCursor = EncodeCursor(ports.CatalogCursor{
			LeadCreatedAt: last.View.LeadCreatedAt,
			LeadID:        last.View.LeadID,
		})
	}
	application.ResolveMetrics(u.Metrics).ObserveCatalogPage(len(items))

	logger.Info("list tenant leads completed",
		"event", "list_tenant_leads_completed",
		"module", application.ModuleName,
		"layer", "application",
		"tenant_id", query.TenantID,
		"items_count", len(items),
		"has_next_cursor", nextCursor != "",
	)
	return ListTenantLeadsResult{
		Items:      items,
		NextCursor: nextCursor,
	}, nil
}
