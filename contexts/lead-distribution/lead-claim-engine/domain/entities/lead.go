package entities

import (
	"strings"
	"time"

	domainerrors "leadhub/contexts/lead-distribution/lead-claim-engine/domain/errors"
)

const (
	MinScore = 0
	MaxScore = 100
)

// Lead is a pool-owned enquiry visible to every configured tenant.
type Lead struct {
	LeadID          string
	Name            string
	Phone           string
	Email           string
	Website         string
	Address         string
	City            string
	Localities      []string
	Category        string
	Source          string
	Rating          float64
	ReviewCount     int
	EngagementCount int
	LastActivityAt  time.Time
	BaseScore       int
	ScoredAt        time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (l Lead) Validate() error {
	if strings.TrimSpace(l.LeadID) == "" || strings.TrimSpace(l.Name) == "" {
		return domainerrors.ErrInvalidLead
	}
	if strings.TrimSpace(l.City) == "" || strings.TrimSpace(l.Category) == "" {
		return domainerrors.ErrInvalidLead
	}
	if l.BaseScore < MinScore || l.BaseScore > MaxScore {
		return domainerrors.ErrInvalidLead
	}
	if l.Rating < 0 || l.Rating > 5 || l.ReviewCount < 0 || l.EngagementCount < 0 {
		return domainerrors.ErrInvalidLead
	}
	if len(l.Localities) > 100 {
		return domainerrors.ErrInvalidLead
	}
	return nil
}

// LocalityKeys returns the normalized City plus Localities, de-duplicated,
// City first.
func (l Lead) LocalityKeys() []string {
	keys := make([]string, 0, len(l.Localities)+1)
	seen := make(map[string]struct{}, len(l.Localities)+1)
	for _, raw := range append([]string{l.City}, l.Localities...) {
		key := NormalizeKey(raw)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// NormalizeKey lower-cases and collapses whitespace so targeting compares
// "New  Delhi" and "new delhi" as equal.
func NormalizeKey(value string) string {
	return strings.Join(strings.Fields(strings.ToLower(value)), " ")
}

func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
