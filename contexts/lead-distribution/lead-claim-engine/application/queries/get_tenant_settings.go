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

type GetTenantSettingsQuery struct {
	TenantID string
}

type GetTenantSettingsUseCase struct {
	Settings ports.TenantSettingsRepository
	Logger   *slog.Logger
}

func (u GetTenantSettingsUseCase) Execute(ctx context.Context, query GetTenantSettingsQuery) (entities.TenantSettings, error) {
	if strings.TrimSpace(query.TenantID) == "" {
		return entities.TenantSettings{}, domainerrors.ErrInvalidSettings
	}
	settings, err := u.Settings.GetTenantSettings(ctx, query.TenantID)
	if err != nil {
		application.ResolveLogger(u.Logger).Warn("get tenant settings failed",
			"event", "get_tenant_settings_failed",
			"module", application.ModuleName,
			"layer", "application",
			"tenant_id", query.TenantID,
			"error", err.Error(),
		)
		return entities.TenantSettings{}, err
	}
	return settings, nil
}
