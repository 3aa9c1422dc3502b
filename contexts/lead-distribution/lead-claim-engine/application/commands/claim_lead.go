package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "leadhub/contexts/lead-distribution/lead-claim-engine/application"
	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/entities"
	domainerrors "leadhub/contexts/lead-distribution/lead-claim-engine/domain/errors"
	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/services"
	"leadhub/contexts/lead-distribution/lead-claim-engine/ports"
)

type ClaimLeadCommand struct {
	TenantID       string
	Role           string
	LeadID         string
	LockMode       string
	IdempotencyKey string
}

type ClaimLeadResult struct {
	Claim         entities.Claim
	LockedTenants []string
	Replayed      bool
}

type ClaimLeadUseCase struct {
	Leads          ports.LeadStateRepository
	Settings       ports.TenantSettingsRepository
	Claims         ports.ClaimHistoryRepository
	Idempotency    ports.IdempotencyStore
	Locker         ports.ContentionLocker
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	Metrics        ports.ClaimMetrics
	LockWait       time.Duration
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

// Execute arbitrates one claim attempt:
// 1) role and request validation (no state touched)
// 2) idempotency replay
// 3) lock-mode compatibility against current tenant settings
// 4) bounded wait on the contention key, then a second replay check
// 5) arbitration + view transitions + outbox inside the lead's unit of work
// 6) idempotency record written before the contention key is released.
// Retries sharing a key resolve to the same contention key, so they replay
// instead of racing. A lost race surfaces as ErrClaimConflict; nothing is
// retried here.
func (u ClaimLeadUseCase) Execute(ctx context.Context, cmd ClaimLeadCommand) (result ClaimLeadResult, err error) {
	logger := application.ResolveLogger(u.Logger)
	metrics := application.ResolveMetrics(u.Metrics)
	started := time.Now()
	mode := ""
	defer func() {
		if result.Replayed {
			return
		}
		metrics.ObserveClaim(mode, classifyOutcome(err), time.Since(started))
	}()

	if strings.TrimSpace(cmd.TenantID) == "" || strings.TrimSpace(cmd.LeadID) == "" {
		return ClaimLeadResult{}, domainerrors.ErrInvalidClaimRequest
	}
	if !entities.ParseRole(cmd.Role).CanClaim() {
		logger.Warn("claim lead rejected for role",
			"event", "claim_lead_forbidden",
			"module", moduleName,
			"layer", applicationLayer,
			"tenant_id", cmd.TenantID,
			"lead_id", cmd.LeadID,
			"role", cmd.Role,
		)
		return ClaimLeadResult{}, domainerrors.ErrForbidden
	}
	requested, err := parseLockMode(cmd.LockMode)
	if err != nil {
		return ClaimLeadResult{}, err
	}

	now := application.ResolveNow(u.Clock)
	idempotencyKey := scopeIdempotencyKey(cmd.TenantID, cmd.IdempotencyKey)
	requestHash := hashClaimRequest(cmd)

	logger.Info("claim lead started",
		"event", "claim_lead_started",
		"module", moduleName,
		"layer", applicationLayer,
		"tenant_id", cmd.TenantID,
		"lead_id", cmd.LeadID,
		"requested_lock_mode", requested,
	)

	if replay, ok, err := u.replay(ctx, logger, cmd, idempotencyKey, requestHash, now); err != nil || ok {
		return replay, err
	}

	settings, err := u.Settings.GetTenantSettings(ctx, cmd.TenantID)
	if err != nil {
		return ClaimLeadResult{}, err
	}
	mode = string(settings.ClaimMode)
	if requested != "" && requested != settings.ClaimMode {
		return ClaimLeadResult{}, domainerrors.ErrInvalidLockMode
	}

	lead, err := u.Leads.GetLead(ctx, cmd.LeadID)
	if err != nil {
		return ClaimLeadResult{}, err
	}
	_, contentionKey := services.ResolveContention(lead, settings)

	claimID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return ClaimLeadResult{}, err
	}
	eventID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return ClaimLeadResult{}, err
	}

	release, err := u.Locker.Acquire(ctx, contentionKey, u.lockWait())
	if err != nil {
		logger.Warn("claim lead contention wait exceeded",
			"event", "claim_lead_contended",
			"module", moduleName,
			"layer", applicationLayer,
			"tenant_id", cmd.TenantID,
			"lead_id", cmd.LeadID,
			"contention_key", contentionKey,
			"error", err.Error(),
		)
		return ClaimLeadResult{}, err
	}
	defer release()

	if replay, ok, err := u.replay(ctx, logger, cmd, idempotencyKey, requestHash, now); err != nil || ok {
		return replay, err
	}

	var decision services.ClaimDecision
	_, err = u.Leads.MutateLead(ctx, cmd.LeadID, func(state services.LeadState) (ports.LeadMutation, error) {
		current, ok := state.Settings[cmd.TenantID]
		if ok && requested != "" && requested != current.ClaimMode {
			return ports.LeadMutation{}, domainerrors.ErrInvalidLockMode
		}
		decided, err := services.ArbitrateClaim(state, services.ClaimRequest{
			ClaimID:  claimID,
			TenantID: cmd.TenantID,
			Now:      now,
		})
		if err != nil {
			return ports.LeadMutation{}, err
		}
		decision = decided
		claim := decided.Claim
		return ports.LeadMutation{
			Views: decided.Views,
			Claim: &claim,
			Events: []ports.OutboxEvent{newOutboxEvent(eventID, leadClaimedEventType, claim.LeadID, now, map[string]any{
				"claim_id":       claim.ClaimID,
				"lead_id":        claim.LeadID,
				"tenant_id":      claim.TenantID,
				"lock_mode":      string(claim.LockMode),
				"region_key":     claim.RegionKey,
				"locked_tenants": viewTenantIDs(decided.Views, entities.VisibilityLocked, claim.TenantID),
			})},
		}, nil
	})
	if err != nil {
		logger.Warn("claim lead rejected",
			"event", "claim_lead_rejected",
			"module", moduleName,
			"layer", applicationLayer,
			"tenant_id", cmd.TenantID,
			"lead_id", cmd.LeadID,
			"claim_mode", settings.ClaimMode,
			"outcome", classifyOutcome(err),
			"error", err.Error(),
		)
		return ClaimLeadResult{}, err
	}

	if idempotencyKey != "" && u.Idempotency != nil {
		if err := u.Idempotency.Put(ctx, ports.IdempotencyRecord{
			Key:         idempotencyKey,
			RequestHash: requestHash,
			ClaimID:     decision.Claim.ClaimID,
			ExpiresAt:   now.Add(u.idempotencyTTL()),
		}); err != nil {
			return ClaimLeadResult{}, err
		}
	}

	locked := viewTenantIDs(decision.Views, entities.VisibilityLocked, cmd.TenantID)
	logger.Info("claim lead granted",
		"event", "claim_lead_granted",
		"module", moduleName,
		"layer", applicationLayer,
		"claim_id", decision.Claim.ClaimID,
		"tenant_id", decision.Claim.TenantID,
		"lead_id", decision.Claim.LeadID,
		"lock_mode", decision.Claim.LockMode,
		"contention_key", decision.Claim.ContentionKey,
		"locked_count", len(locked),
	)

	return ClaimLeadResult{
		Claim:         decision.Claim,
		LockedTenants: locked,
	}, nil
}

// replay returns the stored claim when key was already used for the same
// request. A key reused for a different request is a conflict.
func (u ClaimLeadUseCase) replay(
	ctx context.Context,
	logger *slog.Logger,
	cmd ClaimLeadCommand,
	key string,
	requestHash string,
	now time.Time,
) (ClaimLeadResult, bool, error) {
	if key == "" || u.Idempotency == nil {
		return ClaimLeadResult{}, false, nil
	}
	record, found, err := u.Idempotency.Get(ctx, key, now)
	if err != nil || !found {
		return ClaimLeadResult{}, false, err
	}
	if record.RequestHash != requestHash {
		logger.Warn("idempotency key conflict",
			"event", "claim_lead_idempotency_conflict",
			"module", moduleName,
			"layer", applicationLayer,
			"tenant_id", cmd.TenantID,
			"lead_id", cmd.LeadID,
		)
		return ClaimLeadResult{}, false, domainerrors.ErrIdempotencyKeyConflict
	}
	claim, err := u.Claims.GetClaim(ctx, record.ClaimID)
	if err != nil {
		return ClaimLeadResult{}, false, err
	}
	logger.Info("claim lead replayed from idempotency",
		"event", "claim_lead_replayed",
		"module", moduleName,
		"layer", applicationLayer,
		"claim_id", claim.ClaimID,
		"tenant_id", claim.TenantID,
		"lead_id", claim.LeadID,
	)
	return ClaimLeadResult{Claim: claim, Replayed: true}, true, nil
}

func (u ClaimLeadUseCase) lockWait() time.Duration {
	if u.LockWait <= 0 {
		return defaultClaimLockWait
	}
	return u.LockWait
}

func (u ClaimLeadUseCase) idempotencyTTL() time.Duration {
	if u.IdempotencyTTL <= 0 {
		return defaultIdempotencyTTL
	}
	return u.IdempotencyTTL
}

func parseLockMode(raw string) (entities.ClaimMode, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if value == "" {
		return "", nil
	}
	mode := entities.ClaimMode(value)
	if !mode.Valid() {
		return "", domainerrors.ErrInvalidClaimRequest
	}
	return mode, nil
}

// scopeIdempotencyKey namespaces a client key by tenant so tenants never see
// or collide with each other's keys.
func scopeIdempotencyKey(tenantID string, key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	return tenantID + ":" + key
}

func hashClaimRequest(cmd ClaimLeadCommand) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s",
		cmd.TenantID,
		cmd.LeadID,
		strings.ToUpper(strings.TrimSpace(cmd.LockMode)),
	)))
	return hex.EncodeToString(sum[:])
}
