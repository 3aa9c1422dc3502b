package commands

import (
	"context"
	"log/slog"
	"strings"

	application "leadhub/contexts/lead-distribution/lead-claim-engine/application"
	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/entities"
	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/services"
	"leadhub/contexts/lead-distribution/lead-claim-engine/ports"
)

type IngestLeadCommand struct {
	Lead entities.Lead
}

type IngestLeadResult struct {
	Lead         entities.Lead
	Created      bool
	ViewsWritten int
}

// IngestLeadUseCase upserts a pool lead from the external feed and brings every
// configured tenant's view of it up to date.
type IngestLeadUseCase struct {
	Leads    ports.LeadStateRepository
	Strategy ports.BaseScoreStrategy
	Clock    ports.Clock
	Logger   *slog.Logger
}

func (u IngestLeadUseCase) Execute(ctx context.Context, cmd IngestLeadCommand) (IngestLeadResult, error) {
	logger := application.ResolveLogger(u.Logger)
	incoming := cmd.Lead
	incoming.LeadID = strings.TrimSpace(incoming.LeadID)
	incoming.City = strings.TrimSpace(incoming.City)
	incoming.Category = strings.TrimSpace(incoming.Category)
	if err := incoming.Validate(); err != nil {
		return IngestLeadResult{}, err
	}

	strategy := u.Strategy
	if strategy == nil {
		strategy = services.SignalDecayStrategy{}
	}
	now := application.ResolveNow(u.Clock)

	var result IngestLeadResult
	_, err := u.Leads.MutateLead(ctx, incoming.LeadID, func(state services.LeadState) (ports.LeadMutation, error) {
		lead := incoming
		existed := state.Exists
		if existed {
			lead.CreatedAt = state.Lead.CreatedAt
			if lead.EngagementCount < state.Lead.EngagementCount {
				lead.EngagementCount = state.Lead.EngagementCount
			}
			if state.Lead.LastActivityAt.After(lead.LastActivityAt) {
				lead.LastActivityAt = state.Lead.LastActivityAt
			}
		} else if lead.CreatedAt.IsZero() {
			lead.CreatedAt = now
		}
		lead.CreatedAt = lead.CreatedAt.UTC()
		if lead.BaseScore == 0 {
			lead.BaseScore = strategy.Score(lead, now)
			lead.ScoredAt = now
		}
		lead.UpdatedAt = now

		state.Lead = lead
		state.Exists = true
		rescored, err := services.RescoreAvailableViews(state, now)
		if err != nil {
			return ports.LeadMutation{}, err
		}
		created, err := services.MaterializeViews(state, now)
		if err != nil {
			return ports.LeadMutation{}, err
		}

		views := append(rescored, created...)
		result = IngestLeadResult{
			Lead:         lead,
			Created:      !existed,
			ViewsWritten: len(views),
		}
		return ports.LeadMutation{Lead: &lead, Views: views}, nil
	})
	if err != nil {
		logger.Error("ingest lead failed",
			"event", "ingest_lead_failed",
			"module", moduleName,
			"layer", applicationLayer,
			"lead_id", incoming.LeadID,
			"error", err.Error(),
		)
		return IngestLeadResult{}, err
	}

	logger.Info("lead ingested",
		"event", "ingest_lead_completed",
		"module", moduleName,
		"layer", applicationLayer,
		"lead_id", result.Lead.LeadID,
		"base_score", result.Lead.BaseScore,
		"created", result.Created,
		"views_written", result.ViewsWritten,
	)
	return result, nil
}
