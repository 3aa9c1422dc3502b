package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	application "leadhub/contexts/lead-distribution/lead-claim-engine/application"
	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/entities"
	domainerrors "leadhub/contexts/lead-distribution/lead-claim-engine/domain/errors"
	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/services"
	"leadhub/contexts/lead-distribution/lead-claim-engine/ports"
)

// Store is an in-memory adapter implementing the engine ports for local runtime
// and tests. State lives in one process, so it must not back more than one
// serving instance.
type Store struct {
	mu           sync.RWMutex
	leads        map[string]entities.Lead
	views        map[string]map[string]entities.TenantLeadView
	settings     map[string]entities.TenantSettings
	claims       map[string]entities.Claim
	claimOrder   []string
	claimsByLead map[string][]string
	releases     map[string]entities.ClaimRelease
	holds        map[string]string
	idempotency  map[string]ports.IdempotencyRecord
	outbox       map[string]ports.OutboxMessage
	outboxOrder  []string
	outboxSent   map[string]time.Time
	eventDedup   map[string]string
	sequence     uint64
	logger       *slog.Logger
}

func NewStore(logger *slog.Logger) *Store {
	return &Store{
		leads:        make(map[string]entities.Lead),
		views:        make(map[string]map[string]entities.TenantLeadView),
		settings:     make(map[string]entities.TenantSettings),
		claims:       make(map[string]entities.Claim),
		claimOrder:   make([]string, 0),
		claimsByLead: make(map[string][]string),
		releases:     make(map[string]entities.ClaimRelease),
		holds:        make(map[string]string),
		idempotency:  make(map[string]ports.IdempotencyRecord),
		outbox:       make(map[string]ports.OutboxMessage),
		outboxOrder:  make([]string, 0),
		outboxSent:   make(map[string]time.Time),
		eventDedup:   make(map[string]string),
		logger:       application.ResolveLogger(logger),
	}
}

func (s *Store) GetLead(_ context.Context, leadID string) (entities.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lead, ok := s.leads[leadID]
	if !ok {
		return entities.Lead{}, domainerrors.ErrLeadNotFound
	}
	return cloneLead(lead), nil
}

// MutateLead holds the store lock for the whole read-decide-write cycle, which
// gives every lead a single serialization point.
func (s *Store) MutateLead(_ context.Context, leadID string, mutate ports.LeadMutator) (ports.LeadMutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mutation, err := mutate(s.snapshotLocked(leadID))
	if err != nil {
		return ports.LeadMutation{}, err
	}
	if err := s.applyLocked(leadID, mutation); err != nil {
		return ports.LeadMutation{}, err
	}
	return mutation, nil
}

func (s *Store) snapshotLocked(leadID string) services.LeadState {
	state := services.LeadState{
		Views:        make(map[string]entities.TenantLeadView, len(s.views[leadID])),
		Settings:     make(map[string]entities.TenantSettings, len(s.settings)),
		ActiveClaims: s.activeClaimsLocked(leadID),
	}
	if lead, ok := s.leads[leadID]; ok {
		state.Exists = true
		state.Lead = cloneLead(lead)
	}
	for tenantID, view := range s.views[leadID] {
		state.Views[tenantID] = view
	}
	for tenantID, settings := range s.settings {
		state.Settings[tenantID] = settings
	}
	return state
}

func (s *Store) activeClaimsLocked(leadID string) []entities.Claim {
	active := make([]entities.Claim, 0)
	for _, claimID := range s.claimsByLead[leadID] {
		if _, released := s.releases[claimID]; released {
			continue
		}
		active = append(active, s.claims[claimID])
	}
	return active
}

// applyLocked validates the whole mutation before writing any of it so a
// rejected mutation leaves no partial state.
func (s *Store) applyLocked(leadID string, mutation ports.LeadMutation) error {
	if mutation.Lead != nil && mutation.Lead.LeadID != leadID {
		return domainerrors.ErrRepositoryInvariant
	}
	if mutation.Lead == nil {
		if _, ok := s.leads[leadID]; !ok && (len(mutation.Views) > 0 || mutation.Claim != nil) {
			return domainerrors.ErrLeadNotFound
		}
	}
	if claim := mutation.Claim; claim != nil {
		if _, exists := s.claims[claim.ClaimID]; exists {
			return domainerrors.ErrRepositoryInvariant
		}
		if holder, held := s.holds[claim.ContentionKey]; held && holder != claim.ClaimID {
			return domainerrors.ErrClaimConflict
		}
	}
	var releasedClaim entities.Claim
	if release := mutation.Release; release != nil {
		claim, ok := s.claims[release.ClaimID]
		if !ok {
			return domainerrors.ErrClaimNotFound
		}
		if _, already := s.releases[release.ClaimID]; already {
			return domainerrors.ErrClaimNotFound
		}
		releasedClaim = claim
	}
	for _, view := range mutation.Views {
		if view.LeadID != leadID || !view.VisibilityStatus.Valid() {
			return domainerrors.ErrRepositoryInvariant
		}
	}
	messages := make([]ports.OutboxMessage, 0, len(mutation.Events))
	for _, event := range mutation.Events {
		payload, err := application.MarshalOutboxEnvelope(event)
		if err != nil {
			return err
		}
		messages = append(messages, ports.OutboxMessage{
			OutboxID:     event.EventID,
			EventType:    event.EventType,
			PartitionKey: event.PartitionKey,
			Payload:      payload,
			CreatedAt:    event.OccurredAt.UTC(),
		})
	}

	if mutation.Lead != nil {
		s.leads[leadID] = cloneLead(*mutation.Lead)
	}
	if mutation.Release != nil {
		s.releases[mutation.Release.ClaimID] = *mutation.Release
		if s.holds[releasedClaim.ContentionKey] == releasedClaim.ClaimID {
			delete(s.holds, releasedClaim.ContentionKey)
		}
	}
	if claim := mutation.Claim; claim != nil {
		s.claims[claim.ClaimID] = *claim
		s.claimOrder = append(s.claimOrder, claim.ClaimID)
		s.claimsByLead[leadID] = append(s.claimsByLead[leadID], claim.ClaimID)
		s.holds[claim.ContentionKey] = claim.ClaimID
	}
	if len(mutation.Views) > 0 {
		tenantViews, ok := s.views[leadID]
		if !ok {
			tenantViews = make(map[string]entities.TenantLeadView)
			s.views[leadID] = tenantViews
		}
		for _, view := range mutation.Views {
			tenantViews[view.TenantID] = view
		}
	}
	for _, message := range messages {
		s.outbox[message.OutboxID] = message
		s.outboxOrder = append(s.outboxOrder, message.OutboxID)
	}

	s.logger.Debug("lead mutation applied in memory store",
		"event", "memory_mutate_lead",
		"module", application.ModuleName,
		"layer", "adapter",
		"lead_id", leadID,
		"views_written", len(mutation.Views),
		"claim_created", mutation.Claim != nil,
		"claim_released", mutation.Release != nil,
		"outbox_events", len(messages),
	)
	return nil
}

func (s *Store) GetTenantSettings(_ context.Context, tenantID string) (entities.TenantSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings, ok := s.settings[tenantID]
	if !ok {
		return entities.TenantSettings{}, domainerrors.ErrTenantSettingsNotFound
	}
	return settings, nil
}

// SaveTenantSettings upserts settings and reconciles the tenant's view of every
// lead inside the same critical section.
func (s *Store) SaveTenantSettings(
	_ context.Context,
	settings entities.TenantSettings,
	reconcile ports.ViewReconciler,
) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make([]entities.TenantLeadView, 0)
	for _, leadID := range s.sortedLeadIDsLocked() {
		var existing *entities.TenantLeadView
		if view, ok := s.views[leadID][settings.TenantID]; ok {
			existing = &view
		}
		view, changed, err := reconcile(cloneLead(s.leads[leadID]), existing, s.activeClaimsLocked(leadID))
		if err != nil {
			return 0, err
		}
		if changed {
			pending = append(pending, view)
		}
	}

	if current, ok := s.settings[settings.TenantID]; ok && !current.CreatedAt.IsZero() {
		settings.CreatedAt = current.CreatedAt
	}
	s.settings[settings.TenantID] = settings
	for _, view := range pending {
		tenantViews, ok := s.views[view.LeadID]
		if !ok {
			tenantViews = make(map[string]entities.TenantLeadView)
			s.views[view.LeadID] = tenantViews
		}
		tenantViews[view.TenantID] = view
	}
	return len(pending), nil
}

func (s *Store) ListTenantLeadViews(_ context.Context, filter ports.CatalogFilter) ([]ports.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]ports.CatalogItem, 0)
	for leadID, tenantViews := range s.views {
		view, ok := tenantViews[filter.TenantID]
		if !ok || !matchesCatalogFilter(view, filter) {
			continue
		}
		items = append(items, ports.CatalogItem{View: view, Lead: cloneLead(s.leads[leadID])})
	}

	sort.Slice(items, func(i, j int) bool {
		left, right := items[i].View, items[j].View
		if left.LeadCreatedAt.Equal(right.LeadCreatedAt) {
			return left.LeadID < right.LeadID
		}
		return left.LeadCreatedAt.After(right.LeadCreatedAt)
	})
	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, nil
}

func matchesCatalogFilter(view entities.TenantLeadView, filter ports.CatalogFilter) bool {
	if filter.VisibilityStatus != "" {
		if view.VisibilityStatus != filter.VisibilityStatus {
			return false
		}
	} else if view.VisibilityStatus == entities.VisibilityLocked {
		return false
	}
	if view.VisibilityStatus == entities.VisibilityAvailable && view.FitScore < filter.MinimumScore {
		return false
	}
	if filter.MinFitScore != nil && view.FitScore < *filter.MinFitScore {
		return false
	}
	if after := filter.After; after != nil {
		if view.LeadCreatedAt.After(after.LeadCreatedAt) {
			return false
		}
		if view.LeadCreatedAt.Equal(after.LeadCreatedAt) && view.LeadID <= after.LeadID {
			return false
		}
	}
	return true
}

func (s *Store) ListClaimsByTenant(_ context.Context, tenantID string, limit int) ([]ports.ClaimRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]ports.ClaimRecord, 0)
	for i := len(s.claimOrder) - 1; i >= 0; i-- {
		claim := s.claims[s.claimOrder[i]]
		if claim.TenantID != tenantID {
			continue
		}
		record := ports.ClaimRecord{Claim: claim}
		if release, ok := s.releases[claim.ClaimID]; ok {
			release := release
			record.Release = &release
		}
		records = append(records, record)
		if limit > 0 && len(records) == limit {
			break
		}
	}
	return records, nil
}

func (s *Store) GetClaim(_ context.Context, claimID string) (entities.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	claim, ok := s.claims[claimID]
	if !ok {
		return entities.Claim{}, domainerrors.ErrClaimNotFound
	}
	return claim, nil
}

func (s *Store) Get(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.idempotency[key]
	if !ok {
		return ports.IdempotencyRecord{}, false, nil
	}
	if now.UTC().After(record.ExpiresAt) {
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (s *Store) Put(_ context.Context, record ports.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.idempotency[record.Key]; ok && existing.RequestHash != record.RequestHash {
		if time.Now().UTC().Before(existing.ExpiresAt) {
			return domainerrors.ErrIdempotencyKeyConflict
		}
	}
	record.ExpiresAt = record.ExpiresAt.UTC()
	s.idempotency[record.Key] = record
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	pending := make([]ports.OutboxMessage, 0, limit)
	for _, id := range s.outboxOrder {
		if _, sent := s.outboxSent[id]; sent {
			continue
		}
		pending = append(pending, s.outbox[id])
		if len(pending) == limit {
			break
		}
	}
	return pending, nil
}

func (s *Store) MarkOutboxSent(_ context.Context, outboxID string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.outbox[outboxID]; !ok {
		return domainerrors.ErrRepositoryInvariant
	}
	s.outboxSent[outboxID] = sentAt.UTC()
	return nil
}

func (s *Store) ReserveEvent(_ context.Context, eventID string, payloadHash string, _ time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.eventDedup[eventID]; ok {
		if existing != payloadHash {
			return false, domainerrors.ErrIdempotencyKeyConflict
		}
		return true, nil
	}
	s.eventDedup[eventID] = payloadHash
	return false, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	value := atomic.AddUint64(&s.sequence, 1)
	return fmt.Sprintf("lead-claim-%d", value), nil
}

// View returns a tenant's current view of a lead.
func (s *Store) View(tenantID string, leadID string) (entities.TenantLeadView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view, ok := s.views[leadID][tenantID]
	return view, ok
}

func (s *Store) OutboxEvents() []ports.OutboxMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]ports.OutboxMessage, 0, len(s.outboxOrder))
	for _, id := range s.outboxOrder {
		if evt, ok := s.outbox[id]; ok {
			events = append(events, evt)
		}
	}
	return events
}

func (s *Store) sortedLeadIDsLocked() []string {
	ids := make([]string, 0, len(s.leads))
	for id := range s.leads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func cloneLead(lead entities.Lead) entities.Lead {
	lead.Localities = append([]string(nil), lead.Localities...)
	return lead
}
