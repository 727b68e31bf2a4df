package scoring

import (
	"math"

	"smartfeed-be/internal/model"
)

// Relationship describes how the acting party relates to the user.
type Relationship string

const (
	RelationshipManager Relationship = "manager"
	RelationshipReport  Relationship = "report"
	RelationshipPeer    Relationship = "peer"
	RelationshipSystem  Relationship = "system"
)

const emergencyBoost = 50

// Tier thresholds are fixed: score >= 75 critical, >= 30 elevated, else ambient.
const (
	criticalThreshold = 75
	elevatedThreshold = 30
)

var relationshipWeights = map[Relationship]float64{
	RelationshipManager: 1.5,
	RelationshipReport:  1.2,
	RelationshipPeer:    1.0,
	RelationshipSystem:  0.8,
}

// contentWeights key the semantic action of an event. Unknown actions get
// the default weight rather than failing.
var contentWeights = map[string]float64{
	"mention":              50,
	"direct_message":       45,
	"approval":             40,
	"recognition_received": 35,
	"comment":              25,
	"system_update":        20,
	"like":                 15,
}

const defaultContentWeight = 20

// Score computes the base urgency: relationship weight times content weight,
// plus a flat emergency boost, clamped to 0-100. Pure and deterministic.
func Score(relationship Relationship, action string, emergency bool) int {
	relWeight, ok := relationshipWeights[relationship]
	if !ok {
		relWeight = relationshipWeights[RelationshipSystem]
	}
	contentWeight, ok := contentWeights[action]
	if !ok {
		contentWeight = defaultContentWeight
	}

	score := relWeight * contentWeight
	if emergency {
		score += emergencyBoost
	}
	return Clamp(int(math.Round(score)))
}

// TierFor derives the priority tier from a final score.
func TierFor(score int) model.Tier {
	switch {
	case score >= criticalThreshold:
		return model.TierCritical
	case score >= elevatedThreshold:
		return model.TierElevated
	default:
		return model.TierAmbient
	}
}

// Clamp bounds a score to the 0-100 range.
func Clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
