package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	application "leadhub/contexts/lead-distribution/lead-claim-engine/application"
	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/entities"
	domainerrors "leadhub/contexts/lead-distribution/lead-claim-engine/domain/errors"
	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/services"
	"leadhub/contexts/lead-distribution/lead-claim-engine/ports"
)

// PatchTenantSettingsCommand carries only the fields being changed; nil
// fields keep their current value.
type PatchTenantSettingsCommand struct {
	TenantID         string
	Role             string
	TargetCities     *[]string
	TargetCategories *[]string
	MinimumScore     *int
	ClaimMode        *string
}

type PatchTenantSettingsResult struct {
	Settings     entities.TenantSettings
	Created      bool
	ViewsUpdated int
}

type PatchTenantSettingsUseCase struct {
	Settings ports.TenantSettingsRepository
	Clock    ports.Clock
	Logger   *slog.Logger
}

func (u PatchTenantSettingsUseCase) Execute(ctx context.Context, cmd PatchTenantSettingsCommand) (PatchTenantSettingsResult, error) {
	logger := application.ResolveLogger(u.Logger)
	if strings.TrimSpace(cmd.TenantID) == "" {
		return PatchTenantSettingsResult{}, domainerrors.ErrInvalidSettings
	}
	if !entities.ParseRole(cmd.Role).CanAdminister() {
		return PatchTenantSettingsResult{}, domainerrors.ErrForbidden
	}
	if cmd.TargetCities != nil && len(*cmd.TargetCities) > entities.MaxTargetEntries {
		return PatchTenantSettingsResult{}, domainerrors.ErrInvalidSettings
	}
	if cmd.TargetCategories != nil && len(*cmd.TargetCategories) > entities.MaxTargetEntries {
		return PatchTenantSettingsResult{}, domainerrors.ErrInvalidSettings
	}
	if cmd.MinimumScore != nil && (*cmd.MinimumScore < entities.MinScore || *cmd.MinimumScore > entities.MaxScore) {
		return PatchTenantSettingsResult{}, domainerrors.ErrInvalidSettings
	}
	var mode entities.ClaimMode
	if cmd.ClaimMode != nil {
		mode = entities.ClaimMode(strings.ToUpper(strings.TrimSpace(*cmd.ClaimMode)))
		if !mode.Valid() {
			return PatchTenantSettingsResult{}, domainerrors.ErrInvalidSettings
		}
	}

	now := application.ResolveNow(u.Clock)
	created := false
	settings, err := u.Settings.GetTenantSettings(ctx, cmd.TenantID)
	if errors.Is(err, domainerrors.ErrTenantSettingsNotFound) {
		settings = entities.DefaultTenantSettings(cmd.TenantID, now)
		created = true
	} else if err != nil {
		return PatchTenantSettingsResult{}, err
	}

	if cmd.TargetCities != nil {
		settings.TargetCities = append([]string(nil), (*cmd.TargetCities)...)
	}
	if cmd.TargetCategories != nil {
		settings.TargetCategories = append([]string(nil), (*cmd.TargetCategories)...)
	}
	if cmd.MinimumScore != nil {
		settings.MinimumScore = *cmd.MinimumScore
	}
	if cmd.ClaimMode != nil {
		settings.ClaimMode = mode
	}
	settings = settings.Normalized()
	settings.UpdatedAt = now
	if err := settings.Validate(); err != nil {
		return PatchTenantSettingsResult{}, err
	}

	reconcile := func(
		lead entities.Lead,
		existing *entities.TenantLeadView,
		activeClaims []entities.Claim,
	) (entities.TenantLeadView, bool, error) {
		return services.ReconcileTenantView(lead, settings, existing, activeClaims, now)
	}
	updated, err := u.Settings.SaveTenantSettings(ctx, settings, reconcile)
	if err != nil {
		logger.Error("patch tenant settings failed",
			"event", "patch_tenant_settings_failed",
			"module", moduleName,
			"layer", applicationLayer,
			"tenant_id", cmd.TenantID,
			"error", err.Error(),
		)
		return PatchTenantSettingsResult{}, err
	}

	logger.Info("tenant settings updated",
		"event", "patch_tenant_settings_completed",
		"module", moduleName,
		"layer", applicationLayer,
		"tenant_id", settings.TenantID,
		"claim_mode", settings.ClaimMode,
		"minimum_score", settings.MinimumScore,
		"created", created,
		"views_updated", updated,
	)
	return PatchTenantSettingsResult{
		Settings:     settings,
		Created:      created,
		ViewsUpdated: updated,
	}, nil
}
