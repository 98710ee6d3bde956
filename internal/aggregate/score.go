package aggregate

import (
	"github.com/envirowatch/envirowatch/internal/model"
)

// Fixed scores per source type. Registry facilities are assumed to be
// network infrastructure running hot around the clock; tagged map features
// are confirmed data centers but with no compliance history attached.
const (
	registryScore = 8
	overpassScore = 5
	poiScore      = 3
	echoBaseScore = 6
	maxScore      = 10
)

// emissionsViolationThreshold is the violation-quarter count above which a
// compliance facility is classified as emissions-driven.
const emissionsViolationThreshold = 3

// Score classifies a facility's environmental impact from its source type
// and, for compliance-registry records, its violation count. Deterministic:
// identical inputs always produce the identical pair.
func Score(source model.Source, violations int) (model.ImpactCategory, int) {
	switch source {
	case model.SourceRegistry:
		return model.ImpactHighThermal, registryScore
	case model.SourceOverpass:
		return model.ImpactNoise, overpassScore
	case model.SourceECHO:
		if violations > emissionsViolationThreshold {
			score := echoBaseScore + violations/2
			if score > maxScore {
				score = maxScore
			}
			return model.ImpactEmissions, score
		}
		return model.ImpactCombined, echoBaseScore
	default:
		return model.ImpactLow, poiScore
	}
}
