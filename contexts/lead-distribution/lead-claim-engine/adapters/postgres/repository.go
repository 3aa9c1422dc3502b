package postgresadapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	application "leadhub/contexts/lead-distribution/lead-claim-engine/application"
	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/entities"
	domainerrors "leadhub/contexts/lead-distribution/lead-claim-engine/domain/errors"
	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/services"
	"leadhub/contexts/lead-distribution/lead-claim-engine/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"

	defaultLockTimeout     = 2 * time.Second
	settingsReconcileBatch = 200

	sqlStateUniqueViolation  = "23505"
	sqlStateLockNotAvailable = "55P03"
)

type Repository struct {
	db          *gorm.DB
	lockTimeout time.Duration
	logger      *slog.Logger
}

func NewRepository(db *gorm.DB, lockTimeout time.Duration, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	if lockTimeout <= 0 {
		lockTimeout = defaultLockTimeout
	}
	return &Repository{
		db:          db,
		lockTimeout: lockTimeout,
		logger:      logger,
	}
}

func (r *Repository) GetLead(ctx context.Context, leadID string) (entities.Lead, error) {
	var row leadModel
	err := r.db.WithContext(ctx).
		Where("lead_id = ?", leadID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Lead{}, domainerrors.ErrLeadNotFound
		}
		return entities.Lead{}, err
	}
	return row.toEntity(), nil
}

// MutateLead runs one read-decide-write cycle inside a transaction that holds
// the lead's transaction-scoped advisory lock. Waiting longer than the lock
// timeout surfaces as ErrClaimContended.
func (r *Repository) MutateLead(ctx context.Context, leadID string, mutate ports.LeadMutator) (ports.LeadMutation, error) {
	var applied ports.LeadMutation
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.lockLead(tx, leadID); err != nil {
			return err
		}
		state, err := loadLeadState(tx, leadID)
		if err != nil {
			return err
		}
		mutation, err := mutate(state)
		if err != nil {
			return err
		}
		if err := applyMutation(tx, leadID, state, mutation); err != nil {
			return err
		}
		applied = mutation
		return nil
	})
	if err != nil {
		return ports.LeadMutation{}, translateError(err)
	}

	r.logger.Debug("lead mutation committed",
		"event", "postgres_mutate_lead",
		"module", application.ModuleName,
		"layer", "adapter",
		"lead_id", leadID,
		"views_written", len(applied.Views),
		"claim_created", applied.Claim != nil,
		"claim_released", applied.Release != nil,
	)
	return applied, nil
}

func (r *Repository) lockLead(tx *gorm.DB, leadID string) error {
	if err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())).Error; err != nil {
		return err
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtextextended(?, 0))", leadID).Error
}

func loadLeadState(tx *gorm.DB, leadID string) (services.LeadState, error) {
	state := services.LeadState{
		Views:    make(map[string]entities.TenantLeadView),
		Settings: make(map[string]entities.TenantSettings),
	}

	var leadRow leadModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("lead_id = ?", leadID).
		First(&leadRow).
		Error
	switch {
	case err == nil:
		state.Exists = true
		state.Lead = leadRow.toEntity()
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return services.LeadState{}, err
	}

	var viewRows []tenantLeadViewModel
	if err := tx.Where("lead_id = ?", leadID).Find(&viewRows).Error; err != nil {
		return services.LeadState{}, err
	}
	for _, row := range viewRows {
		state.Views[row.TenantID] = row.toEntity()
	}

	var settingsRows []tenantSettingsModel
	if err := tx.Find(&settingsRows).Error; err != nil {
		return services.LeadState{}, err
	}
	for _, row := range settingsRows {
		state.Settings[row.TenantID] = row.toEntity()
	}

	claims, err := activeClaims(tx, leadID)
	if err != nil {
		return services.LeadState{}, err
	}
	state.ActiveClaims = claims
	return state, nil
}

func activeClaims(tx *gorm.DB, leadID string) ([]entities.Claim, error) {
	var rows []claimModel
	err := tx.Where("lead_id = ?", leadID).
		Where("claim_id NOT IN (?)", tx.Model(&claimReleaseModel{}).Select("claim_id").Where("lead_id = ?", leadID)).
		Order("claimed_at ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	claims := make([]entities.Claim, 0, len(rows))
	for _, row := range rows {
		claims = append(claims, row.toEntity())
	}
	return claims, nil
}

func applyMutation(tx *gorm.DB, leadID string, state services.LeadState, mutation ports.LeadMutation) error {
	if mutation.Lead != nil {
		if mutation.Lead.LeadID != leadID {
			return domainerrors.ErrRepositoryInvariant
		}
		row := leadModelFromEntity(*mutation.Lead)
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "lead_id"}},
			DoUpdates: clause.AssignmentColumns(leadUpdateColumns),
		}).Create(&row).Error; err != nil {
			return err
		}
	} else if !state.Exists && (len(mutation.Views) > 0 || mutation.Claim != nil) {
		return domainerrors.ErrLeadNotFound
	}

	if release := mutation.Release; release != nil {
		var released *entities.Claim
		for i := range state.ActiveClaims {
			if state.ActiveClaims[i].ClaimID == release.ClaimID {
				released = &state.ActiveClaims[i]
				break
			}
		}
		if released == nil {
			return domainerrors.ErrClaimNotFound
		}
		row := claimReleaseModel{
			ClaimID:    release.ClaimID,
			LeadID:     release.LeadID,
			TenantID:   release.TenantID,
			ReleasedBy: release.ReleasedBy,
			Reason:     release.Reason,
			ReleasedAt: release.ReleasedAt.UTC(),
		}
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrClaimNotFound
			}
			return err
		}
		if err := tx.Where("contention_key = ? AND claim_id = ?", released.ContentionKey, released.ClaimID).
			Delete(&claimHoldModel{}).
			Error; err != nil {
			return err
		}
	}

	if claim := mutation.Claim; claim != nil {
		hold := claimHoldModel{
			ContentionKey: claim.ContentionKey,
			ClaimID:       claim.ClaimID,
			LeadID:        claim.LeadID,
			TenantID:      claim.TenantID,
			LockMode:      string(claim.LockMode),
			RegionKey:     claim.RegionKey,
			ClaimedAt:     claim.ClaimedAt.UTC(),
		}
		if err := tx.Create(&hold).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrClaimConflict
			}
			return err
		}
		row := claimModelFromEntity(*claim)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrRepositoryInvariant
			}
			return err
		}
	}

	if len(mutation.Views) > 0 {
		rows := make([]tenantLeadViewModel, 0, len(mutation.Views))
		for _, view := range mutation.Views {
			if view.LeadID != leadID || !view.VisibilityStatus.Valid() {
				return domainerrors.ErrRepositoryInvariant
			}
			rows = append(rows, tenantLeadViewModelFromEntity(view))
		}
		if err := upsertViews(tx, rows); err != nil {
			return err
		}
	}

	for _, event := range mutation.Events {
		payload, err := application.MarshalOutboxEnvelope(event)
		if err != nil {
			return err
		}
		row := outboxModel{
			OutboxID:     event.EventID,
			EventType:    event.EventType,
			PartitionKey: event.PartitionKey,
			Payload:      payload,
			Status:       outboxStatusPending,
			CreatedAt:    event.OccurredAt.UTC(),
		}
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrRepositoryInvariant
			}
			return err
		}
	}
	return nil
}

var leadUpdateColumns = []string{
	"name", "phone", "email", "website", "address", "city", "localities", "category", "source",
	"rating", "review_count", "engagement_count", "last_activity_at", "base_score", "scored_at", "updated_at",
}

var viewUpdateColumns = []string{
	"visibility_status", "fit_score", "claimed_by_tenant_id", "claimed_at", "claim_id", "lead_created_at", "updated_at",
}

func upsertViews(tx *gorm.DB, rows []tenantLeadViewModel) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "lead_id"}},
		DoUpdates: clause.AssignmentColumns(viewUpdateColumns),
	}).Create(&rows).Error
}

func (r *Repository) GetTenantSettings(ctx context.Context, tenantID string) (entities.TenantSettings, error) {
	var row tenantSettingsModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.TenantSettings{}, domainerrors.ErrTenantSettingsNotFound
		}
		return entities.TenantSettings{}, err
	}
	return row.toEntity(), nil
}

// SaveTenantSettings commits the settings row first, then reconciles the
// tenant's view of each lead in its own short transaction under that lead's
// lock, so claims on other leads are never blocked by a settings change.
// If reconciliation stops partway the new settings stay committed and the
// error is returned; saving the same settings again converges the rest.
func (r *Repository) SaveTenantSettings(
	ctx context.Context,
	settings entities.TenantSettings,
	reconcile ports.ViewReconciler,
) (int, error) {
	row := tenantSettingsModelFromEntity(settings)
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"target_cities", "target_categories", "minimum_score", "claim_mode", "updated_at"}),
	}).Create(&row).Error; err != nil {
		return 0, err
	}

	updated := 0
	var batch []leadModel
	result := r.db.WithContext(ctx).
		Model(&leadModel{}).
		Select("lead_id").
		FindInBatches(&batch, settingsReconcileBatch, func(_ *gorm.DB, _ int) error {
			for _, lead := range batch {
				changed, err := r.reconcileLead(ctx, settings.TenantID, lead.LeadID, reconcile)
				if err != nil {
					return err
				}
				if changed {
					updated++
				}
			}
			return nil
		})
	if result.Error != nil {
		r.logger.Warn("tenant settings saved with partial view reconciliation",
			"event", "postgres_save_tenant_settings_partial",
			"module", application.ModuleName,
			"layer", "adapter",
			"tenant_id", settings.TenantID,
			"views_updated", updated,
			"error", result.Error.Error(),
		)
		return updated, translateError(result.Error)
	}

	r.logger.Info("tenant settings saved",
		"event", "postgres_save_tenant_settings",
		"module", application.ModuleName,
		"layer", "adapter",
		"tenant_id", settings.TenantID,
		"views_updated", updated,
	)
	return updated, nil
}

func (r *Repository) reconcileLead(
	ctx context.Context,
	tenantID string,
	leadID string,
	reconcile ports.ViewReconciler,
) (bool, error) {
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.lockLead(tx, leadID); err != nil {
			return err
		}
		var leadRow leadModel
		if err := tx.Where("lead_id = ?", leadID).First(&leadRow).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		var existing *entities.TenantLeadView
		var viewRow tenantLeadViewModel
		err := tx.Where("tenant_id = ? AND lead_id = ?", tenantID, leadID).First(&viewRow).Error
		switch {
		case err == nil:
			view := viewRow.toEntity()
			existing = &view
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		claims, err := activeClaims(tx, leadID)
		if err != nil {
			return err
		}
		view, didChange, err := reconcile(leadRow.toEntity(), existing, claims)
		if err != nil || !didChange {
			return err
		}
		changed = true
		return upsertViews(tx, []tenantLeadViewModel{tenantLeadViewModelFromEntity(view)})
	})
	return changed, err
}

func (r *Repository) ListTenantLeadViews(ctx context.Context, filter ports.CatalogFilter) ([]ports.CatalogItem, error) {
	tx := r.db.WithContext(ctx).
		Model(&tenantLeadViewModel{}).
		Where("tenant_id = ?", filter.TenantID)
	if filter.VisibilityStatus != "" {
		tx = tx.Where("visibility_status = ?", string(filter.VisibilityStatus))
	} else {
		tx = tx.Where("visibility_status <> ?", string(entities.VisibilityLocked))
	}
	tx = tx.Where("(visibility_status <> ? OR fit_score >= ?)", string(entities.VisibilityAvailable), filter.MinimumScore)
	if filter.MinFitScore != nil {
		tx = tx.Where("fit_score >= ?", *filter.MinFitScore)
	}
	if after := filter.After; after != nil {
		tx = tx.Where("(lead_created_at < ? OR (lead_created_at = ? AND lead_id > ?))",
			after.LeadCreatedAt.UTC(), after.LeadCreatedAt.UTC(), after.LeadID)
	}
	tx = tx.
		Order(clause.OrderByColumn{Column: clause.Column{Name: "lead_created_at"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "lead_id"}, Desc: false})
	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit)
	}

	var viewRows []tenantLeadViewModel
	if err := tx.Find(&viewRows).Error; err != nil {
		return nil, err
	}
	if len(viewRows) == 0 {
		return []ports.CatalogItem{}, nil
	}

	leadIDs := make([]string, 0, len(viewRows))
	for _, row := range viewRows {
		leadIDs = append(leadIDs, row.LeadID)
	}
	var leadRows []leadModel
	if err := r.db.WithContext(ctx).Where("lead_id IN ?", leadIDs).Find(&leadRows).Error; err != nil {
		return nil, err
	}
	leads := make(map[string]entities.Lead, len(leadRows))
	for _, row := range leadRows {
		leads[row.LeadID] = row.toEntity()
	}

	items := make([]ports.CatalogItem, 0, len(viewRows))
	for _, row := range viewRows {
		lead, ok := leads[row.LeadID]
		if !ok {
			return nil, domainerrors.ErrRepositoryInvariant
		}
		items = append(items, ports.CatalogItem{View: row.toEntity(), Lead: lead})
	}
	return items, nil
}

func (r *Repository) ListClaimsByTenant(ctx context.Context, tenantID string, limit int) ([]ports.ClaimRecord, error) {
	var rows []claimModel
	tx := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("claimed_at DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []ports.ClaimRecord{}, nil
	}

	claimIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		claimIDs = append(claimIDs, row.ClaimID)
	}
	var releaseRows []claimReleaseModel
	if err := r.db.WithContext(ctx).Where("claim_id IN ?", claimIDs).Find(&releaseRows).Error; err != nil {
		return nil, err
	}
	releases := make(map[string]entities.ClaimRelease, len(releaseRows))
	for _, row := range releaseRows {
		releases[row.ClaimID] = row.toEntity()
	}

	records := make([]ports.ClaimRecord, 0, len(rows))
	for _, row := range rows {
		record := ports.ClaimRecord{Claim: row.toEntity()}
		if release, ok := releases[row.ClaimID]; ok {
			release := release
			record.Release = &release
		}
		records = append(records, record)
	}
	return records, nil
}

func (r *Repository) GetClaim(ctx context.Context, claimID string) (entities.Claim, error) {
	var row claimModel
	err := r.db.WithContext(ctx).
		Where("claim_id = ?", claimID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Claim{}, domainerrors.ErrClaimNotFound
		}
		return entities.Claim{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) Get(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := r.db.WithContext(ctx).
		Where("key = ?", key).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, err
	}

	if !row.ExpiresAt.IsZero() && now.UTC().After(row.ExpiresAt.UTC()) {
		if err := r.db.WithContext(ctx).
			Where("key = ?", key).
			Delete(&idempotencyModel{}).
			Error; err != nil {
			return ports.IdempotencyRecord{}, false, err
		}
		return ports.IdempotencyRecord{}, false, nil
	}
	return row.toPort(), true, nil
}

func (r *Repository) Put(ctx context.Context, record ports.IdempotencyRecord) error {
	row := idempotencyModel{
		Key:         record.Key,
		RequestHash: record.RequestHash,
		ClaimID:     record.ClaimID,
		ExpiresAt:   record.ExpiresAt.UTC(),
	}
	createResult := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).
		Create(&row)
	if createResult.Error != nil {
		return createResult.Error
	}
	if createResult.RowsAffected > 0 {
		return nil
	}

	var existing idempotencyModel
	if err := r.db.WithContext(ctx).
		Where("key = ?", record.Key).
		First(&existing).
		Error; err != nil {
		return err
	}
	if existing.RequestHash != record.RequestHash {
		return domainerrors.ErrIdempotencyKeyConflict
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toPort())
	}
	return items, nil
}

func (r *Repository) MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", outboxID).
		Updates(map[string]any{
			"status":  outboxStatusSent,
			"sent_at": sentAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrRepositoryInvariant
	}
	return nil
}

func (r *Repository) ReserveEvent(
	ctx context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	row := eventDedupModel{
		EventID:     eventID,
		PayloadHash: payloadHash,
		ExpiresAt:   expiresAt.UTC(),
		ProcessedAt: time.Now().UTC(),
	}

	createResult := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(&row)
	if createResult.Error != nil {
		return false, createResult.Error
	}
	if createResult.RowsAffected > 0 {
		return false, nil
	}

	var existing eventDedupModel
	if err := r.db.WithContext(ctx).
		Select("payload_hash").
		Where("event_id = ?", eventID).
		First(&existing).
		Error; err != nil {
		return false, err
	}
	if existing.PayloadHash != payloadHash {
		return false, domainerrors.ErrIdempotencyKeyConflict
	}
	return true, nil
}

func translateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case sqlStateLockNotAvailable:
		return domainerrors.ErrClaimContended
	case sqlStateUniqueViolation:
		if pgErr.TableName == (claimHoldModel{}).TableName() {
			return domainerrors.ErrClaimConflict
		}
		return domainerrors.ErrRepositoryInvariant
	default:
		return err
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlStateUniqueViolation
}
