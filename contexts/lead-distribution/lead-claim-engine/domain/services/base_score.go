package services

import (
	"math"
	"strings"
	"time"

	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/entities"
)

const (
	defaultHalfLife    = 30 * 24 * time.Hour
	defaultDecayFloor  = 0.25
	reviewSaturation   = 100
	engagementSaturate = 20
)

// SignalDecayStrategy derives a lead's base score from contact completeness,
// directory reputation and engagement, decayed by time since last activity.
type SignalDecayStrategy struct {
	HalfLife   time.Duration
	DecayFloor float64
}

func (s SignalDecayStrategy) Score(lead entities.Lead, now time.Time) int {
	raw := contactScore(lead) + reputationScore(lead) + engagementScore(lead)
	return entities.ClampScore(int(math.Round(raw * s.decay(lead, now))))
}

func (s SignalDecayStrategy) decay(lead entities.Lead, now time.Time) float64 {
	halfLife := s.HalfLife
	if halfLife <= 0 {
		halfLife = defaultHalfLife
	}
	floor := s.DecayFloor
	if floor <= 0 || floor > 1 {
		floor = defaultDecayFloor
	}

	reference := lead.LastActivityAt
	if reference.IsZero() {
		reference = lead.CreatedAt
	}
	if reference.IsZero() {
		return 1
	}
	age := now.Sub(reference)
	if age <= 0 {
		return 1
	}
	factor := math.Pow(0.5, float64(age)/float64(halfLife))
	return math.Max(factor, floor)
}

func contactScore(lead entities.Lead) float64 {
	score := 0.0
	if strings.TrimSpace(lead.Phone) != "" {
		score += 10
	}
	if strings.TrimSpace(lead.Email) != "" {
		score += 10
	}
	if strings.TrimSpace(lead.Website) != "" {
		score += 5
	}
	if strings.TrimSpace(lead.Address) != "" {
		score += 5
	}
	return score
}

func reputationScore(lead entities.Lead) float64 {
	rating := math.Min(math.Max(lead.Rating, 0), 5)
	reviews := math.Min(float64(lead.ReviewCount), reviewSaturation)
	return rating/5*25 + reviews/reviewSaturation*15
}

func engagementScore(lead entities.Lead) float64 {
	engagement := math.Min(float64(lead.EngagementCount), engagementSaturate)
	return engagement / engagementSaturate * 30
}
