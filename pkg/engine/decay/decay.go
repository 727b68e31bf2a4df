// Package decay recomputes urgency as a function of age and tier.
//
// Critical items "ripen" rather than go stale: their score floor is 90% of
// the base. Elevated and ambient items stale out on an exponential curve.
// Apply always works from the immutable base score and absolute event time;
// re-applying it with updated ages converges to the same trajectory as a
// single application with cumulative age, so overlapping refresh ticks can
// never compound the discount.
package decay

import (
	"math"
	"time"

	"smartfeed-be/internal/model"
	"smartfeed-be/pkg/engine/scoring"
)

// Apply returns the decayed score for an item of the given tier and age.
// Negative ages (clock skew) clamp to zero.
func Apply(baseScore int, tier model.Tier, age time.Duration) int {
	if age < 0 {
		age = 0
	}
	ageHours := age.Hours()

	if tier == model.TierCritical {
		multiplier := math.Max(0.9, 1-ageHours*0.01)
		return scoring.Clamp(int(math.Round(float64(baseScore) * multiplier)))
	}

	divisor := math.Max(1, ageHours*0.5)
	return scoring.Clamp(int(math.Round(float64(baseScore) / divisor)))
}
