package ports

import (
	"context"
	"time"

	contractsv1 "leadhub/contracts/gen/events/v1"
	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/entities"
	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/services"
)

// LeadMutation is the write set produced from one locked LeadState.
// Adapters apply it atomically together with the outbox rows.
type LeadMutation struct {
	// Lead is upserted when non-nil.
	Lead    *entities.Lead
	Views   []entities.TenantLeadView
	Claim   *entities.Claim
	Release *entities.ClaimRelease
	Events  []OutboxEvent
}

// LeadMutator computes a mutation from the snapshot. Returning an error aborts
// the unit of work without side effects.
type LeadMutator func(state services.LeadState) (LeadMutation, error)

// LeadStateRepository is the serialization point for everything that changes
// a lead's claim or visibility state.
type LeadStateRepository interface {
	GetLead(ctx context.Context, leadID string) (entities.Lead, error)
	// MutateLead loads the lead snapshot under the lead's exclusive lock, runs
	// mutate and commits its result atomically. A missing lead is passed as
	// LeadState{Exists: false}.
	MutateLead(ctx context.Context, leadID string, mutate LeadMutator) (LeadMutation, error)
}

// ViewReconciler refreshes one tenant's view of one lead while the lead is locked.
type ViewReconciler func(
	lead entities.Lead,
	existing *entities.TenantLeadView,
	activeClaims []entities.Claim,
) (entities.TenantLeadView, bool, error)

type TenantSettingsRepository interface {
	GetTenantSettings(ctx context.Context, tenantID string) (entities.TenantSettings, error)
	// SaveTenantSettings upserts settings, then walks every lead under its lock
	// and applies reconcile to the tenant's view. Returns the number of views written.
	// Implementations may commit settings before every view is reconciled;
	// repeating the call with the same settings must be safe.
	SaveTenantSettings(ctx context.Context, settings entities.TenantSettings, reconcile ViewReconciler) (int, error)
}

// CatalogCursor is the keyset position of the last returned row.
type CatalogCursor struct {
	LeadCreatedAt time.Time `json:"c"`
	LeadID        string    `json:"l"`
}

// CatalogFilter narrows the tenant's views before pagination.
type CatalogFilter struct {
	TenantID         string
	VisibilityStatus entities.VisibilityStatus
	MinimumScore     int
	MinFitScore      *int
	After            *CatalogCursor
	Limit            int
}

type CatalogItem struct {
	View entities.TenantLeadView
	Lead entities.Lead
}

type CatalogRepository interface {
	// ListTenantLeadViews returns at most filter.Limit rows ordered by
	// LeadCreatedAt DESC, LeadID ASC, strictly after filter.After.
	ListTenantLeadViews(ctx context.Context, filter CatalogFilter) ([]CatalogItem, error)
}

type ClaimRecord struct {
	Claim   entities.Claim
	Release *entities.ClaimRelease
}

type ClaimHistoryRepository interface {
	ListClaimsByTenant(ctx context.Context, tenantID string, limit int) ([]ClaimRecord, error)
	GetClaim(ctx context.Context, claimID string) (entities.Claim, error)
}

// ContentionLocker bounds how long a claim attempt waits for its contention key.
type ContentionLocker interface {
	Acquire(ctx context.Context, key string, wait time.Duration) (release func(), err error)
}

// BaseScoreStrategy computes a lead's automation base score.
type BaseScoreStrategy interface {
	Score(lead entities.Lead, now time.Time) int
}

// IdempotencyRecord captures dedupe metadata for claim requests.
type IdempotencyRecord struct {
	Key         string
	RequestHash string
	ClaimID     string
	ExpiresAt   time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	Put(ctx context.Context, record IdempotencyRecord) error
}

// ClaimMetrics records arbitration outcomes. Implementations must be safe for
// concurrent use.
type ClaimMetrics interface {
	ObserveClaim(mode string, outcome string, elapsed time.Duration)
	ObserveRelease(outcome string)
	ObserveCatalogPage(items int)
	ObserveRecalculation(outcome string)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// OutboxEvent is an integration event persisted with the state change.
type OutboxEvent struct {
	EventID      string
	EventType    string
	PartitionKey string
	Data         map[string]any
	OccurredAt   time.Time
}

// OutboxMessage is a row ready to relay from the outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error
}

// EventDedupStore provides idempotent processing for consumed events.
type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}

type EventEnvelope = contractsv1.Envelope

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}
