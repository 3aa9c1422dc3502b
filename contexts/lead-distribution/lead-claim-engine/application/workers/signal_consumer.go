package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	application "leadhub/contexts/lead-distribution/lead-claim-engine/application"
	"leadhub/contexts/lead-distribution/lead-claim-engine/application/commands"
	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/entities"
	"leadhub/contexts/lead-distribution/lead-claim-engine/ports"
)

const (
	LeadSignalRecordedTopic = "lead.signal_recorded"
	LeadIngestedTopic       = "lead.ingested"
	defaultConsumerGroup    = "lead-claim-engine-signals-cg"
)

// SignalConsumer feeds the pool from the ingestion feed and recalculates base
// scores when engagement signals arrive.
type SignalConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Ingest        commands.IngestLeadUseCase
	Recalculate   commands.RecalculateScoreUseCase
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

type signalRecordedPayload struct {
	LeadID          string    `json:"lead_id"`
	EngagementDelta int       `json:"engagement_delta"`
	OccurredAt      time.Time `json:"occurred_at"`
}

type leadIngestedPayload struct {
	LeadID          string    `json:"lead_id"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email"`
	Website         string    `json:"website"`
	Address         string    `json:"address"`
	City            string    `json:"city"`
	Localities      []string  `json:"localities"`
	Category        string    `json:"category"`
	Source          string    `json:"source"`
	Rating          float64   `json:"rating"`
	ReviewCount     int       `json:"review_count"`
	EngagementCount int       `json:"engagement_count"`
	LastActivityAt  time.Time `json:"last_activity_at"`
	BaseScore       int       `json:"base_score"`
	CreatedAt       time.Time `json:"created_at"`
}

func (c SignalConsumer) Start(ctx context.Context) error {
	group := c.ConsumerGroup
	if group == "" {
		group = defaultConsumerGroup
	}
	if err := c.Subscriber.Subscribe(ctx, LeadIngestedTopic, group, c.handleIngested); err != nil {
		return err
	}
	if err := c.Subscriber.Subscribe(ctx, LeadSignalRecordedTopic, group, c.handleSignal); err != nil {
		return err
	}
	return nil
}

func (c SignalConsumer) handleIngested(ctx context.Context, event ports.EventEnvelope) error {
	replayed, err := c.reserve(ctx, event)
	if err != nil || replayed {
		return err
	}

	var payload leadIngestedPayload
	if err := event.DecodeData(&payload); err != nil {
		return c.finish(event, "", err)
	}
	_, err = c.Ingest.Execute(ctx, commands.IngestLeadCommand{Lead: entities.Lead{
		LeadID:          payload.LeadID,
		Name:            payload.Name,
		Phone:           payload.Phone,
		Email:           payload.Email,
		Website:         payload.Website,
		Address:         payload.Address,
		City:            payload.City,
		Localities:      payload.Localities,
		Category:        payload.Category,
		Source:          payload.Source,
		Rating:          payload.Rating,
		ReviewCount:     payload.ReviewCount,
		EngagementCount: payload.EngagementCount,
		LastActivityAt:  payload.LastActivityAt,
		BaseScore:       payload.BaseScore,
		CreatedAt:       payload.CreatedAt,
	}})
	return c.finish(event, payload.LeadID, err)
}

func (c SignalConsumer) handleSignal(ctx context.Context, event ports.EventEnvelope) error {
	replayed, err := c.reserve(ctx, event)
	if err != nil || replayed {
		return err
	}

	var payload signalRecordedPayload
	if err := event.DecodeData(&payload); err != nil {
		return c.finish(event, "", err)
	}
	if payload.LeadID == "" {
		return fmt.Errorf("lead signal event missing lead_id")
	}
	occurredAt := payload.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = event.OccurredAt
	}
	_, err = c.Recalculate.RecordSignal(ctx, commands.RecordSignalCommand{
		LeadID:          payload.LeadID,
		EngagementDelta: payload.EngagementDelta,
		OccurredAt:      occurredAt,
	})
	return c.finish(event, payload.LeadID, err)
}

func (c SignalConsumer) reserve(ctx context.Context, event ports.EventEnvelope) (bool, error) {
	logger := application.ResolveLogger(c.Logger)
	now := application.ResolveNow(c.Clock)
	alreadyProcessed, err := c.Dedup.ReserveEvent(ctx, event.EventID, hashPayload(event.Data), now.Add(c.dedupTTL()))
	if err != nil {
		logger.Error("lead event dedupe failed",
			"event", "lead_claim_signal_dedupe_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"event_id", event.EventID,
			"event_type", event.EventType,
			"error", err.Error(),
		)
		return false, err
	}
	if alreadyProcessed {
		logger.Debug("lead event already processed",
			"event", "lead_claim_signal_replayed",
			"module", application.ModuleName,
			"layer", "worker",
			"event_id", event.EventID,
			"event_type", event.EventType,
		)
	}
	return alreadyProcessed, nil
}

func (c SignalConsumer) finish(event ports.EventEnvelope, leadID string, err error) error {
	logger := application.ResolveLogger(c.Logger)
	if err != nil {
		logger.Error("lead event processing failed",
			"event", "lead_claim_signal_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"event_id", event.EventID,
			"event_type", event.EventType,
			"lead_id", leadID,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("lead event processed",
		"event", "lead_claim_signal_processed",
		"module", application.ModuleName,
		"layer", "worker",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"lead_id", leadID,
	)
	return nil
}

func (c SignalConsumer) dedupTTL() time.Duration {
	if c.DedupTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return c.DedupTTL
}

func hashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
