package queries

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	domainerrors "leadhub/contexts/lead-distribution/lead-claim-engine/domain/errors"
	"leadhub/contexts/lead-distribution/lead-claim-engine/ports"
)

// EncodeCursor renders the keyset position as opaque base64url JSON.
func EncodeCursor(cursor ports.CatalogCursor) string {
	payload, err := json.Marshal(cursor)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(payload)
}

// DecodeCursor parses a cursor from EncodeCursor. An empty string means the
// first page.
func DecodeCursor(raw string) (*ports.CatalogCursor, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	payload, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, domainerrors.ErrInvalidCursor
	}
	var cursor ports.CatalogCursor
	if err := json.Unmarshal(payload, &cursor); err != nil {
		return nil, domainerrors.ErrInvalidCursor
	}
	if cursor.LeadID == "" || cursor.LeadCreatedAt.IsZero() {
		return nil, domainerrors.ErrInvalidCursor
	}
	cursor.LeadCreatedAt = cursor.LeadCreatedAt.UTC()
	return &cursor, nil
}
