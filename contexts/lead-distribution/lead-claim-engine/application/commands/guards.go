package commands

import (
	"errors"
	"time"

	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/entities"
	domainerrors "leadhub/contexts/lead-distribution/lead-claim-engine/domain/errors"
	"leadhub/contexts/lead-distribution/lead-claim-engine/ports"
)

const (
	leadClaimedEventType       = "lead.claimed"
	leadReleasedEventType      = "lead.released"
	scoreRecalculatedEventType = "lead.score_recalculated"
	defaultReleaseReason       = "disposition_reset"
	systemActor                = "system"
	defaultIdempotencyTTL      = 7 * 24 * time.Hour
	defaultClaimLockWait       = 2 * time.Second
	outcomeGranted             = "granted"
	outcomeConflict            = "conflict"
	outcomeNotEligible         = "not_eligible"
	outcomeForbidden           = "forbidden"
	outcomeInvalidLockMode     = "invalid_lock_mode"
	outcomeInvalidRequest      = "invalid_request"
	outcomeNotFound            = "not_found"
	outcomeInternalError       = "error"
	outcomeReleased            = "released"
	outcomeRecalculated        = "recalculated"
	moduleName                 = "lead-distribution/lead-claim-engine"
	applicationLayer           = "application"
)

func classifyOutcome(err error) string {
	switch {
	case err == nil:
		return outcomeGranted
	case errors.Is(err, domainerrors.ErrClaimConflict):
		return outcomeConflict
	case errors.Is(err, domainerrors.ErrNotEligible):
		return outcomeNotEligible
	case errors.Is(err, domainerrors.ErrForbidden):
		return outcomeForbidden
	case errors.Is(err, domainerrors.ErrInvalidLockMode):
		return outcomeInvalidLockMode
	case errors.Is(err, domainerrors.ErrInvalidClaimRequest),
		errors.Is(err, domainerrors.ErrIdempotencyKeyConflict):
		return outcomeInvalidRequest
	case errors.Is(err, domainerrors.ErrLeadNotFound),
		errors.Is(err, domainerrors.ErrTenantSettingsNotFound),
		errors.Is(err, domainerrors.ErrClaimNotFound):
		return outcomeNotFound
	default:
		return outcomeInternalError
	}
}

func newOutboxEvent(
	eventID string,
	eventType string,
	leadID string,
	occurredAt time.Time,
	data map[string]any,
) ports.OutboxEvent {
	return ports.OutboxEvent{
		EventID:      eventID,
		EventType:    eventType,
		PartitionKey: leadID,
		Data:         data,
		OccurredAt:   occurredAt.UTC(),
	}
}

func viewTenantIDs(views []entities.TenantLeadView, status entities.VisibilityStatus, skipTenant string) []string {
	ids := make([]string, 0, len(views))
	for _, view := range views {
		if view.TenantID == skipTenant || view.VisibilityStatus != status {
			continue
		}
		ids = append(ids, view.TenantID)
	}
	return ids
}
