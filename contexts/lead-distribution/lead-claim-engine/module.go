package leadclaimengine

import (
	"log/slog"
	"time"

	httpadapter "leadhub/contexts/lead-distribution/lead-claim-engine/adapters/http"
	"leadhub/contexts/lead-distribution/lead-claim-engine/adapters/memory"
	"leadhub/contexts/lead-distribution/lead-claim-engine/application/commands"
	"leadhub/contexts/lead-distribution/lead-claim-engine/application/queries"
	"leadhub/contexts/lead-distribution/lead-claim-engine/application/workers"
	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/services"
	"leadhub/contexts/lead-distribution/lead-claim-engine/ports"
)

// Module is the composition surface for the lead claim engine.
// Runtime wiring consumes Handler and the workers; Store is exposed for tests.
type Module struct {
	Handler     httpadapter.Handler
	Ingest      commands.IngestLeadUseCase
	OutboxRelay workers.OutboxRelay
	Signals     workers.SignalConsumer
	Store       *memory.Store
}

type Dependencies struct {
	Leads           ports.LeadStateRepository
	Settings        ports.TenantSettingsRepository
	Catalog         ports.CatalogRepository
	Claims          ports.ClaimHistoryRepository
	Idempotency     ports.IdempotencyStore
	Outbox          ports.OutboxRepository
	Dedup           ports.EventDedupStore
	Locker          ports.ContentionLocker
	Strategy        ports.BaseScoreStrategy
	Metrics         ports.ClaimMetrics
	Clock           ports.Clock
	IDGenerator     ports.IDGenerator
	Publisher       ports.EventPublisher
	Subscriber      ports.EventSubscriber
	LockWait        time.Duration
	IdempotencyTTL  time.Duration
	EventDedupTTL   time.Duration
	OutboxBatchSize int
	Logger          *slog.Logger
}

func NewModule(deps Dependencies) Module {
	strategy := deps.Strategy
	if strategy == nil {
		strategy = services.SignalDecayStrategy{}
	}

	claimLead := commands.ClaimLeadUseCase{
		Leads:          deps.Leads,
		Settings:       deps.Settings,
		Claims:         deps.Claims,
		Idempotency:    deps.Idempotency,
		Locker:         deps.Locker,
		Clock:          deps.Clock,
		IDGenerator:    deps.IDGenerator,
		Metrics:        deps.Metrics,
		LockWait:       deps.LockWait,
		IdempotencyTTL: deps.IdempotencyTTL,
		Logger:         deps.Logger,
	}
	releaseClaim := commands.ReleaseClaimUseCase{
		Leads:       deps.Leads,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Metrics:     deps.Metrics,
		Logger:      deps.Logger,
	}
	recalculate := commands.RecalculateScoreUseCase{
		Leads:       deps.Leads,
		Strategy:    strategy,
		Clock:       deps.Clock,
		IDGenerator: deps.IDGenerator,
		Metrics:     deps.Metrics,
		Logger:      deps.Logger,
	}
	patchSettings := commands.PatchTenantSettingsUseCase{
		Settings: deps.Settings,
		Clock:    deps.Clock,
		Logger:   deps.Logger,
	}
	ingest := commands.IngestLeadUseCase{
		Leads:    deps.Leads,
		Strategy: strategy,
		Clock:    deps.Clock,
		Logger:   deps.Logger,
	}

	return Module{
		Handler: httpadapter.Handler{
			ListLeads: queries.ListTenantLeadsUseCase{
				Catalog:  deps.Catalog,
				Settings: deps.Settings,
				Metrics:  deps.Metrics,
				Logger:   deps.Logger,
			},
			ClaimLead:     claimLead,
			ReleaseClaim:  releaseClaim,
			Recalculate:   recalculate,
			PatchSettings: patchSettings,
			GetSettings: queries.GetTenantSettingsUseCase{
				Settings: deps.Settings,
				Logger:   deps.Logger,
			},
			ListClaims: queries.ListTenantClaimsUseCase{
				Claims: deps.Claims,
				Logger: deps.Logger,
			},
			Logger: deps.Logger,
		},
		Ingest: ingest,
		OutboxRelay: workers.OutboxRelay{
			Outbox:    deps.Outbox,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			BatchSize: deps.OutboxBatchSize,
			Logger:    deps.Logger,
		},
		Signals: workers.SignalConsumer{
			Subscriber:  deps.Subscriber,
			Dedup:       deps.Dedup,
			Ingest:      ingest,
			Recalculate: recalculate,
			Clock:       deps.Clock,
			DedupTTL:    deps.EventDedupTTL,
			Logger:      deps.Logger,
		},
	}
}

// NewInMemoryModule wires the engine against the in-memory store and the
// in-process contention locker. Publisher and Subscriber may be nil when the
// workers are not started.
func NewInMemoryModule(
	publisher ports.EventPublisher,
	subscriber ports.EventSubscriber,
	logger *slog.Logger,
) Module {
	store := memory.NewStore(logger)
	module := NewModule(Dependencies{
		Leads:          store,
		Settings:       store,
		Catalog:        store,
		Claims:         store,
		Idempotency:    store,
		Outbox:         store,
		Dedup:          store,
		Locker:         memory.NewLocker(),
		Clock:          store,
		IDGenerator:    store,
		Publisher:      publisher,
		Subscriber:     subscriber,
		LockWait:       2 * time.Second,
		IdempotencyTTL: 7 * 24 * time.Hour,
		Logger:         logger,
	})
	module.Store = store
	return module
}
