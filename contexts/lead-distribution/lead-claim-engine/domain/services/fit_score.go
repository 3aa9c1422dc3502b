package services

import (
	"leadhub/contexts/lead-distribution/lead-claim-engine/domain/entities"
	domainerrors "leadhub/contexts/lead-distribution/lead-claim-engine/domain/errors"
)

// Fit score weights. City and category overlap carry most of the score;
// the automation base score fills the remainder.
const (
	CityMatchWeight     = 35
	CategoryMatchWeight = 35
	BaseScoreWeight     = 30
)

// ComputeFitScore scores a lead for one tenant. It is a pure function of its
// inputs. An empty target set matches every lead on that dimension; a lead
// matching neither dimension scores 0. A tenant targeting only categories
// therefore still scores off-category leads on the city wildcard (35 plus the
// base share); MinimumScore is what filters those out.
func ComputeFitScore(lead *entities.Lead, settings *entities.TenantSettings) (int, error) {
	if lead == nil {
		return 0, domainerrors.ErrScoringLeadMissing
	}
	if settings == nil {
		return 0, domainerrors.ErrScoringSettingsMissing
	}

	cityMatch := matchesCity(*lead, *settings)
	categoryMatch := len(settings.TargetCategories) == 0 || settings.TargetsCategory(lead.Category)
	if !cityMatch && !categoryMatch {
		return entities.MinScore, nil
	}

	score := 0
	if cityMatch {
		score += CityMatchWeight
	}
	if categoryMatch {
		score += CategoryMatchWeight
	}
	score += (entities.ClampScore(lead.BaseScore)*BaseScoreWeight + 50) / 100
	return entities.ClampScore(score), nil
}

func matchesCity(lead entities.Lead, settings entities.TenantSettings) bool {
	if len(settings.TargetCities) == 0 {
		return true
	}
	for _, key := range lead.LocalityKeys() {
		if settings.TargetsCity(key) {
			return true
		}
	}
	return false
}
