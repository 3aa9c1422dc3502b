package application

import (
	"encoding/json"

	"leadhub/contexts/lead-distribution/lead-claim-engine/ports"
)

const (
	SourceService      = "lead-claim-engine"
	EventSchemaVersion = 1
	partitionKeyPath   = "lead_id"
)

// MarshalOutboxEnvelope renders an outbox event as the canonical envelope
// payload stored in the outbox row.
func MarshalOutboxEnvelope(event ports.OutboxEvent) ([]byte, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(ports.EventEnvelope{
		EventID:          event.EventID,
		EventType:        event.EventType,
		OccurredAt:       event.OccurredAt.UTC(),
		SourceService:    SourceService,
		SchemaVersion:    EventSchemaVersion,
		PartitionKeyPath: partitionKeyPath,
		PartitionKey:     event.PartitionKey,
		Data:             data,
	})
}
