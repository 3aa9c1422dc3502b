package commands

import (
	"context"
	"log/slog"
	"strings"

	application "leadhub/contexts/lead-distribution/lead-claim-engine/application"
	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/entities"
	domainerrors "leadhub/contexts/lead-distribution/lead-claim-engine/domain/errors"
	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/services"
	"leadhub/contexts/lead-distribution/lead-claim-engine/ports"
)

type ReleaseClaimCommand struct {
	TenantID string
	Role     string
	UserID   string
	LeadID   string
	Reason   string
}

type ReleaseClaimResult struct {
	Release         entities.ClaimRelease
	ReopenedTenants []string
}

type ReleaseClaimUseCase struct {
	Leads       ports.LeadStateRepository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Metrics     ports.ClaimMetrics
	Logger      *slog.Logger
}

// Execute lifts the tenant's active claim on a lead. Every view the claim held
// or locked reopens in the same unit of work as the release record.
func (u ReleaseClaimUseCase) Execute(ctx context.Context, cmd ReleaseClaimCommand) (result ReleaseClaimResult, err error) {
	logger := application.ResolveLogger(u.Logger)
	metrics := application.ResolveMetrics(u.Metrics)
	defer func() {
		outcome := classifyOutcome(err)
		if err == nil {
			outcome = outcomeReleased
		}
		metrics.ObserveRelease(outcome)
	}()

	if strings.TrimSpace(cmd.TenantID) == "" || strings.TrimSpace(cmd.LeadID) == "" {
		return ReleaseClaimResult{}, domainerrors.ErrInvalidClaimRequest
	}
	if !entities.ParseRole(cmd.Role).CanRelease() {
		return ReleaseClaimResult{}, domainerrors.ErrForbidden
	}

	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		reason = defaultReleaseReason
	}
	releasedBy := strings.TrimSpace(cmd.UserID)
	if releasedBy == "" {
		releasedBy = systemActor
	}
	now := application.ResolveNow(u.Clock)

	eventID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return ReleaseClaimResult{}, err
	}

	var decision services.ReleaseDecision
	_, err = u.Leads.MutateLead(ctx, cmd.LeadID, func(state services.LeadState) (ports.LeadMutation, error) {
		decided, err := services.ArbitrateRelease(state, services.ReleaseRequest{
			TenantID:   cmd.TenantID,
			ReleasedBy: releasedBy,
			Reason:     reason,
			Now:        now,
		})
		if err != nil {
			return ports.LeadMutation{}, err
		}
		decision = decided
		release := decided.Release
		return ports.LeadMutation{
			Views:   decided.Views,
			Release: &release,
			Events: []ports.OutboxEvent{newOutboxEvent(eventID, leadReleasedEventType, release.LeadID, now, map[string]any{
				"claim_id":         release.ClaimID,
				"lead_id":          release.LeadID,
				"tenant_id":        release.TenantID,
				"released_by":      release.ReleasedBy,
				"reason":           release.Reason,
				"reopened_tenants": viewTenantIDs(decided.Views, entities.VisibilityAvailable, ""),
			})},
		}, nil
	})
	if err != nil {
		logger.Warn("release claim rejected",
			"event", "release_claim_rejected",
			"module", moduleName,
			"layer", applicationLayer,
			"tenant_id", cmd.TenantID,
			"lead_id", cmd.LeadID,
			"error", err.Error(),
		)
		return ReleaseClaimResult{}, err
	}

	reopened := viewTenantIDs(decision.Views, entities.VisibilityAvailable, "")
	logger.Info("release claim completed",
		"event", "release_claim_completed",
		"module", moduleName,
		"layer", applicationLayer,
		"claim_id", decision.Release.ClaimID,
		"tenant_id", cmd.TenantID,
		"lead_id", cmd.LeadID,
		"reason", reason,
		"reopened_count", len(reopened),
	)
	return ReleaseClaimResult{
		Release:         decision.Release,
		ReopenedTenants: reopened,
	}, nil
}
