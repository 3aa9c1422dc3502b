package postgresadapter

import (
	"time"

	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/entities"
	"leadhub/contexts/lead-distribution/lead-claim-engine/ports"
)

type leadModel struct {
	LeadID          string    `gorm:"column:lead_id;primaryKey"`
	Name            string    `gorm:"column:name"`
	Phone           string    `gorm:"column:phone"`
	Email           string    `gorm:"column:email"`
	Website         string    `gorm:"column:website"`
	Address         string    `gorm:"column:address"`
	City            string    `gorm:"column:city"`
	Localities      []string  `gorm:"column:localities;serializer:json"`
	Category        string    `gorm:"column:category"`
	Source          string    `gorm:"column:source"`
	Rating          float64   `gorm:"column:rating"`
	ReviewCount     int       `gorm:"column:review_count"`
	EngagementCount int       `gorm:"column:engagement_count"`
	LastActivityAt  time.Time `gorm:"column:last_activity_at"`
	BaseScore       int       `gorm:"column:base_score"`
	ScoredAt        time.Time `gorm:"column:scored_at"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (leadModel) TableName() string {
	return "leads"
}

func leadModelFromEntity(lead entities.Lead) leadModel {
	return leadModel{
		LeadID:          lead.LeadID,
		Name:            lead.Name,
		Phone:           lead.Phone,
		Email:           lead.Email,
		Website:         lead.Website,
		Address:         lead.Address,
		City:            lead.City,
		Localities:      append([]string{}, lead.Localities...),
		Category:        lead.Category,
		Source:          lead.Source,
		Rating:          lead.Rating,
		ReviewCount:     lead.ReviewCount,
		EngagementCount: lead.EngagementCount,
		LastActivityAt:  lead.LastActivityAt.UTC(),
		BaseScore:       lead.BaseScore,
		ScoredAt:        lead.ScoredAt.UTC(),
		CreatedAt:       lead.CreatedAt.UTC(),
		UpdatedAt:       lead.UpdatedAt.UTC(),
	}
}

func (m leadModel) toEntity() entities.Lead {
	return entities.Lead{
		LeadID:          m.LeadID,
		Name:            m.Name,
		Phone:           m.Phone,
		Email:           m.Email,
		Website:         m.Website,
		Address:         m.Address,
		City:            m.City,
		Localities:      append([]string(nil), m.Localities...),
		Category:        m.Category,
		Source:          m.Source,
		Rating:          m.Rating,
		ReviewCount:     m.ReviewCount,
		EngagementCount: m.EngagementCount,
		LastActivityAt:  m.LastActivityAt.UTC(),
		BaseScore:       m.BaseScore,
		ScoredAt:        m.ScoredAt.UTC(),
		CreatedAt:       m.CreatedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
}

type tenantSettingsModel struct {
	TenantID         string    `gorm:"column:tenant_id;primaryKey"`
	TargetCities     []string  `gorm:"column:target_cities;serializer:json"`
	TargetCategories []string  `gorm:"column:target_categories;serializer:json"`
	MinimumScore     int       `gorm:"column:minimum_score"`
	ClaimMode        string    `gorm:"column:claim_mode"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (tenantSettingsModel) TableName() string {
	return "tenant_settings"
}

func tenantSettingsModelFromEntity(settings entities.TenantSettings) tenantSettingsModel {
	return tenantSettingsModel{
		TenantID:         settings.TenantID,
		TargetCities:     append([]string{}, settings.TargetCities...),
		TargetCategories: append([]string{}, settings.TargetCategories...),
		MinimumScore:     settings.MinimumScore,
		ClaimMode:        string(settings.ClaimMode),
		CreatedAt:        settings.CreatedAt.UTC(),
		UpdatedAt:        settings.UpdatedAt.UTC(),
	}
}

func (m tenantSettingsModel) toEntity() entities.TenantSettings {
	return entities.TenantSettings{
		TenantID:         m.TenantID,
		TargetCities:     append([]string{}, m.TargetCities...),
		TargetCategories: append([]string{}, m.TargetCategories...),
		MinimumScore:     m.MinimumScore,
		ClaimMode:        entities.ClaimMode(m.ClaimMode),
		CreatedAt:        m.CreatedAt.UTC(),
		UpdatedAt:        m.UpdatedAt.UTC(),
	}
}

type tenantLeadViewModel struct {
	TenantID          string     `gorm:"column:tenant_id;primaryKey;index:idx_tenant_lead_views_catalog,priority:1"`
	LeadID            string     `gorm:"column:lead_id;primaryKey;index:idx_tenant_lead_views_catalog,priority:3"`
	VisibilityStatus  string     `gorm:"column:visibility_status"`
	FitScore          int        `gorm:"column:fit_score"`
	ClaimedByTenantID *string    `gorm:"column:claimed_by_tenant_id"`
	ClaimedAt         *time.Time `gorm:"column:claimed_at"`
	ClaimID           *string    `gorm:"column:claim_id"`
	LeadCreatedAt     time.Time  `gorm:"column:lead_created_at;index:idx_tenant_lead_views_catalog,priority:2,sort:desc"`
	UpdatedAt         time.Time  `gorm:"column:updated_at"`
}

func (tenantLeadViewModel) TableName() string {
	return "tenant_lead_views"
}

func tenantLeadViewModelFromEntity(view entities.TenantLeadView) tenantLeadViewModel {
	row := tenantLeadViewModel{
		TenantID:         view.TenantID,
		LeadID:           view.LeadID,
		VisibilityStatus: string(view.VisibilityStatus),
		FitScore:         view.FitScore,
		LeadCreatedAt:    view.LeadCreatedAt.UTC(),
		UpdatedAt:        view.UpdatedAt.UTC(),
	}
	if view.ClaimedByTenantID != "" {
		claimedBy := view.ClaimedByTenantID
		row.ClaimedByTenantID = &claimedBy
	}
	if view.ClaimedAt != nil {
		claimedAt := view.ClaimedAt.UTC()
		row.ClaimedAt = &claimedAt
	}
	if view.ClaimID != "" {
		claimID := view.ClaimID
		row.ClaimID = &claimID
	}
	return row
}

func (m tenantLeadViewModel) toEntity() entities.TenantLeadView {
	view := entities.TenantLeadView{
		TenantID:         m.TenantID,
		LeadID:           m.LeadID,
		VisibilityStatus: entities.VisibilityStatus(m.VisibilityStatus),
		FitScore:         m.FitScore,
		LeadCreatedAt:    m.LeadCreatedAt.UTC(),
		UpdatedAt:        m.UpdatedAt.UTC(),
	}
	if m.ClaimedByTenantID != nil {
		view.ClaimedByTenantID = *m.ClaimedByTenantID
	}
	if m.ClaimedAt != nil {
		claimedAt := m.ClaimedAt.UTC()
		view.ClaimedAt = &claimedAt
	}
	if m.ClaimID != nil {
		view.ClaimID = *m.ClaimID
	}
	return view
}

type claimModel struct {
	ClaimID       string    `gorm:"column:claim_id;primaryKey"`
	TenantID      string    `gorm:"column:tenant_id;index"`
	LeadID        string    `gorm:"column:lead_id;index"`
	LockMode      string    `gorm:"column:lock_mode"`
	RegionKey     string    `gorm:"column:region_key"`
	ContentionKey string    `gorm:"column:contention_key"`
	ClaimedAt     time.Time `gorm:"column:claimed_at"`
}

func (claimModel) TableName() string {
	return "lead_claims"
}

func claimModelFromEntity(claim entities.Claim) claimModel {
	return claimModel{
		ClaimID:       claim.ClaimID,
		TenantID:      claim.TenantID,
		LeadID:        claim.LeadID,
		LockMode:      string(claim.LockMode),
		RegionKey:     claim.RegionKey,
		ContentionKey: claim.ContentionKey,
		ClaimedAt:     claim.ClaimedAt.UTC(),
	}
}

func (m claimModel) toEntity() entities.Claim {
	return entities.Claim{
		ClaimID:       m.ClaimID,
		TenantID:      m.TenantID,
		LeadID:        m.LeadID,
		LockMode:      entities.ClaimMode(m.LockMode),
		RegionKey:     m.RegionKey,
		ContentionKey: m.ContentionKey,
		ClaimedAt:     m.ClaimedAt.UTC(),
	}
}

type claimReleaseModel struct {
	ClaimID    string    `gorm:"column:claim_id;primaryKey"`
	LeadID     string    `gorm:"column:lead_id;index"`
	TenantID   string    `gorm:"column:tenant_id"`
	ReleasedBy string    `gorm:"column:released_by"`
	Reason     string    `gorm:"column:reason"`
	ReleasedAt time.Time `gorm:"column:released_at"`
}

func (claimReleaseModel) TableName() string {
	return "lead_claim_releases"
}

func (m claimReleaseModel) toEntity() entities.ClaimRelease {
	return entities.ClaimRelease{
		ClaimID:    m.ClaimID,
		LeadID:     m.LeadID,
		TenantID:   m.TenantID,
		ReleasedBy: m.ReleasedBy,
		Reason:     m.Reason,
		ReleasedAt: m.ReleasedAt.UTC(),
	}
}

// claimHoldModel is the uniquely keyed contention record. Its primary key is
// what makes two grants on the same contention key impossible.
type claimHoldModel struct {
	ContentionKey string    `gorm:"column:contention_key;primaryKey"`
	ClaimID       string    `gorm:"column:claim_id;uniqueIndex"`
	LeadID        string    `gorm:"column:lead_id;index"`
	TenantID      string    `gorm:"column:tenant_id"`
	LockMode      string    `gorm:"column:lock_mode"`
	RegionKey     string    `gorm:"column:region_key"`
	ClaimedAt     time.Time `gorm:"column:claimed_at"`
}

func (claimHoldModel) TableName() string {
	return "lead_claim_holds"
}

type idempotencyModel struct {
	Key         string    `gorm:"column:key;primaryKey"`
	RequestHash string    `gorm:"column:request_hash"`
	ClaimID     string    `gorm:"column:claim_id"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "lead_claim_idempotency"
}

func (m idempotencyModel) toPort() ports.IdempotencyRecord {
	return ports.IdempotencyRecord{
		Key:         m.Key,
		RequestHash: m.RequestHash,
		ClaimID:     m.ClaimID,
		ExpiresAt:   m.ExpiresAt.UTC(),
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	SentAt       *time.Time `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string {
	return "lead_claim_outbox"
}

func (m outboxModel) toPort() ports.OutboxMessage {
	return ports.OutboxMessage{
		OutboxID:     m.OutboxID,
		EventType:    m.EventType,
		PartitionKey: m.PartitionKey,
		Payload:      append([]byte(nil), m.Payload...),
		CreatedAt:    m.CreatedAt.UTC(),
	}
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (eventDedupModel) TableName() string {
	return "lead_claim_event_dedup"
}
