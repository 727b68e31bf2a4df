// Package digest aggregates pending items into a categorized, time-aware
// summary and computes batched-delivery windows.
package digest

import (
	"smartfeed-be/internal/model"
)

// Category keyword sets, scanned in priority order. An item lands in the
// first category whose keywords intersect its topic tags.
var categories = []struct {
	Name     string
	Keywords []string
}{
	{"critical", []string{"urgent", "critical", "deadline", "action-required", "escalation", "outage"}},
	{"recognition", []string{"recognition", "kudos", "toast", "praise", "celebration", "shoutout"}},
	{"market", []string{"market", "pulse", "signal", "intel", "competitor", "trend"}},
	{"learning", []string{"learning", "course", "session", "workshop", "training"}},
}

// Category is a named bucket of digest items.
type Category struct {
	Name  string             `json:"name"`
	Items []model.StreamItem `json:"items"`
}

// Digest is the categorized summary of currently pending (unread) items.
type Digest struct {
	Greeting     string            `json:"greeting"`
	TotalPending int               `json:"total_pending"`
	Categories   []Category        `json:"categories"`
	TopPriority  *model.StreamItem `json:"top_priority,omitempty"`
}

// Generate builds the digest for the given hour of day. Unmatched
// critical-tier items fall back into the "critical" category; other
// unmatched items are excluded from the digest but stay in the raw stream.
// TopPriority is the highest-scoring pending item; ties break to the
// earliest event timestamp (stable, deterministic).
func Generate(items []model.StreamItem, hour int) Digest {
	buckets := make(map[string][]model.StreamItem, len(categories))

	var pending []model.StreamItem
	for _, item := range items {
		if item.IsRead {
			continue
		}
		pending = append(pending, item)

		name := categorize(item)
		if name == "" {
			if item.Tier == model.TierCritical {
				name = "critical"
			} else {
				continue
			}
		}
		buckets[name] = append(buckets[name], item)
	}

	out := Digest{
		Greeting:     greeting(hour),
		TotalPending: len(pending),
	}
	for _, cat := range categories {
		if bucket := buckets[cat.Name]; len(bucket) > 0 {
			out.Categories = append(out.Categories, Category{Name: cat.Name, Items: bucket})
		}
	}

	if top := topPriority(pending); top != nil {
		out.TopPriority = top
	}
	return out
}

func categorize(item model.StreamItem) string {
	for _, cat := range categories {
		for _, kw := range cat.Keywords {
			for _, topic := range item.Topics {
				if topic == kw {
					return cat.Name
				}
			}
		}
	}
	return ""
}

func greeting(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "Good Morning"
	case hour >= 12 && hour < 17:
		return "Good Afternoon"
	case hour >= 17 && hour < 21:
		return "Good Evening"
	default:
		return "Night Owl Mode"
	}
}

func topPriority(pending []model.StreamItem) *model.StreamItem {
	if len(pending) == 0 {
		return nil
	}
	top := pending[0]
	for _, item := range pending[1:] {
		if item.Score > top.Score || (item.Score == top.Score && item.EventAt.Before(top.EventAt)) {
			top = item
		}
	}
	copied := top.Clone()
	return &copied
}
