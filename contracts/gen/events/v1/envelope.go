package v1

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope wraps every lead event on the bus: lead.claimed, lead.released and
// lead.score_recalculated from the outbox, lead.ingested and
// lead.signal_recorded from upstream feeds. Data holds the event-specific
// JSON body; PartitionKey is the lead id. Fields are append-only.
type Envelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

// DecodeData unmarshals the event body into target. An empty body is an error
// so consumers never act on a zero-value payload.
func (e Envelope) DecodeData(target any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%s event %s has no data", e.EventType, e.EventID)
	}
	if err := json.Unmarshal(e.Data, target); err != nil {
		return fmt.Errorf("decode %s event %s: %w", e.EventType, e.EventID, err)
	}
	return nil
}
