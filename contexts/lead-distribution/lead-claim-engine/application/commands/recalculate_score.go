package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "leadhub/contexts/lead-distribution/lead-claim-engine/application"
	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/entities"
	domainerrors "leadhub/contexts/lead-distribution/lead-claim-engine/domain/errors"
	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/services"
	"leadhub/contexts/lead-distribution/lead-claim-engine/ports"
)

type RecalculateScoreCommand struct {
	TenantID string
	Role     string
	LeadID   string
}

// RecordSignalCommand applies an engagement signal before recalculating.
type RecordSignalCommand struct {
	LeadID          string
	EngagementDelta int
	OccurredAt      time.Time
}

type RecalculateScoreResult struct {
	Lead            entities.Lead
	PreviousScore   int
	RescoredTenants []string
}

type RecalculateScoreUseCase struct {
	Leads       ports.LeadStateRepository
	Strategy    ports.BaseScoreStrategy
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Metrics     ports.ClaimMetrics
	Logger      *slog.Logger
}

func (u RecalculateScoreUseCase) Execute(ctx context.Context, cmd RecalculateScoreCommand) (RecalculateScoreResult, error) {
	if strings.TrimSpace(cmd.TenantID) == "" || strings.TrimSpace(cmd.LeadID) == "" {
		return RecalculateScoreResult{}, domainerrors.ErrInvalidLead
	}
	if !entities.ParseRole(cmd.Role).CanAdminister() {
		return RecalculateScoreResult{}, domainerrors.ErrForbidden
	}
	return u.recalculate(ctx, cmd.LeadID, cmd.TenantID, nil)
}

// RecordSignal is the worker entry point. It runs as the system actor, so no
// role is checked.
func (u RecalculateScoreUseCase) RecordSignal(ctx context.Context, cmd RecordSignalCommand) (RecalculateScoreResult, error) {
	if strings.TrimSpace(cmd.LeadID) == "" || cmd.EngagementDelta < 0 {
		return RecalculateScoreResult{}, domainerrors.ErrInvalidLead
	}
	apply := func(lead *entities.Lead) {
		lead.EngagementCount += cmd.EngagementDelta
		if cmd.OccurredAt.After(lead.LastActivityAt) {
			lead.LastActivityAt = cmd.OccurredAt.UTC()
		}
	}
	return u.recalculate(ctx, cmd.LeadID, systemActor, apply)
}

func (u RecalculateScoreUseCase) recalculate(
	ctx context.Context,
	leadID string,
	actor string,
	apply func(*entities.Lead),
) (result RecalculateScoreResult, err error) {
	logger := application.ResolveLogger(u.Logger)
	metrics := application.ResolveMetrics(u.Metrics)
	defer func() {
		outcome := classifyOutcome(err)
		if err == nil {
			outcome = outcomeRecalculated
		}
		metrics.ObserveRecalculation(outcome)
	}()

	strategy := u.Strategy
	if strategy == nil {
		strategy = services.SignalDecayStrategy{}
	}
	now := application.ResolveNow(u.Clock)
	eventID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return RecalculateScoreResult{}, err
	}

	logger.Info("recalculate score started",
		"event", "recalculate_score_started",
		"module", moduleName,
		"layer", applicationLayer,
		"lead_id", leadID,
		"actor", actor,
	)

	_, err = u.Leads.MutateLead(ctx, leadID, func(state services.LeadState) (ports.LeadMutation, error) {
		if !state.Exists {
			return ports.LeadMutation{}, domainerrors.ErrLeadNotFound
		}
		lead := state.Lead
		previous := lead.BaseScore
		if apply != nil {
			apply(&lead)
		}
		lead.BaseScore = strategy.Score(lead, now)
		lead.ScoredAt = now
		lead.UpdatedAt = now

		state.Lead = lead
		views, err := services.RescoreAvailableViews(state, now)
		if err != nil {
			return ports.LeadMutation{}, err
		}

		result = RecalculateScoreResult{
			Lead:            lead,
			PreviousScore:   previous,
			RescoredTenants: viewTenantIDs(views, entities.VisibilityAvailable, ""),
		}
		return ports.LeadMutation{
			Lead:  &lead,
			Views: views,
			Events: []ports.OutboxEvent{newOutboxEvent(eventID, scoreRecalculatedEventType, lead.LeadID, now, map[string]any{
				"lead_id":          lead.LeadID,
				"previous_score":   previous,
				"base_score":       lead.BaseScore,
				"rescored_tenants": result.RescoredTenants,
				"actor":            actor,
			})},
		}, nil
	})
	if err != nil {
		logger.Error("recalculate score failed",
			"event", "recalculate_score_failed",
			"module", moduleName,
			"layer", applicationLayer,
			"lead_id", leadID,
			"error", err.Error(),
		)
		return RecalculateScoreResult{}, err
	}

	logger.Info("recalculate score completed",
		"event", "recalculate_score_completed",
		"module", moduleName,
		"layer", applicationLayer,
		"lead_id", leadID,
		"previous_score", result.PreviousScore,
		"base_score", result.Lead.BaseScore,
		"rescored_count", len(result.RescoredTenants),
	)
	return result, nil
}
