package digest

import (
	"sort"
	"time"

	"smartfeed-be/internal/model"
)

// WindowStatus describes where "now" sits relative to the user's enabled
// delivery windows.
type WindowStatus struct {
	Previous    model.DeliveryWindow `json:"previous"`
	Next        model.DeliveryWindow `json:"next"`
	UntilNextMs int64                `json:"until_next_ms"`
}

// Windows computes the most recently passed window (wrapping to the last
// window of the previous day before today's first) and the next upcoming
// one (wrapping to tomorrow's first when none remain today). Returns false
// when no windows are enabled.
func Windows(windows []model.DeliveryWindow, now time.Time) (WindowStatus, bool) {
	enabled := make([]model.DeliveryWindow, 0, len(windows))
	for _, w := range windows {
		if w.Enabled {
			enabled = append(enabled, w)
		}
	}
	if len(enabled) == 0 {
		return WindowStatus{}, false
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].StartHour < enabled[j].StartHour
	})

	var status WindowStatus
	hour := now.Hour()

	prevIdx := -1
	for i, w := range enabled {
		if w.StartHour <= hour {
			prevIdx = i
		}
	}
	if prevIdx == -1 {
		// Before today's first window: the previous one was yesterday's last.
		status.Previous = enabled[len(enabled)-1]
	} else {
		status.Previous = enabled[prevIdx]
	}

	nextIdx := -1
	for i, w := range enabled {
		if w.StartHour > hour {
			nextIdx = i
			break
		}
	}
	var nextAt time.Time
	if nextIdx == -1 {
		// Nothing left today: wrap to tomorrow's first window.
		status.Next = enabled[0]
		nextAt = time.Date(now.Year(), now.Month(), now.Day(), enabled[0].StartHour, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	} else {
		status.Next = enabled[nextIdx]
		nextAt = time.Date(now.Year(), now.Month(), now.Day(), enabled[nextIdx].StartHour, 0, 0, 0, now.Location())
	}
	status.UntilNextMs = nextAt.Sub(now).Milliseconds()

	return status, true
}

// ShouldBatchNow reports whether an item of the given tier is held for the
// next scheduled window. Critical items are never batched; under realtime
// mode nothing is held.
func ShouldBatchNow(tier model.Tier, mode model.BatchMode) bool {
	if tier == model.TierCritical {
		return false
	}
	return mode == model.BatchScheduled
}
