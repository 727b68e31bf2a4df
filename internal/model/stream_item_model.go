package model

import (
	"time"
)

// Source identifies the producing collaborator an item originated from.
type Source string

const (
	SourceRecognition Source = "recognition"
	SourceMarket      Source = "market"
	SourceLearning    Source = "learning"
	SourceDiscussion  Source = "discussion"
	SourceSystem      Source = "system"
)

// ParseSource maps a producer source tag to a known Source.
// Unknown tags fall back to SourceSystem (lowest-confidence default).
func ParseSource(raw string) (Source, bool) {
	switch Source(raw) {
	case SourceRecognition, SourceMarket, SourceLearning, SourceDiscussion, SourceSystem:
		return Source(raw), true
	}
	return SourceSystem, false
}

// Tier is the discrete priority bucket derived from a numeric urgency score.
type Tier string

const (
	TierCritical Tier = "critical"
	TierElevated Tier = "elevated"
	TierAmbient  Tier = "ambient"
)

// Actor is a person who contributed to an event.
type Actor struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// StreamItem is a single event surfaced to the user.
//
// Identity is stable across recomputation: decay and preference application
// mutate Score/Tier in place but never the ID. BaseScore holds the immutable
// raw urgency assigned at ingest; every recompute derives the current Score
// from BaseScore and EventAt, never from a previously decayed value.
type StreamItem struct {
	ID        string                 `json:"id"`
	Title     string                 `json:"title"`
	Body      string                 `json:"body,omitempty"`
	Source    Source                 `json:"source"`
	Score     int                    `json:"score"`
	BaseScore int                    `json:"base_score"`
	Tier      Tier                   `json:"tier"`
	Topics    []string               `json:"topics,omitempty"`
	EventAt   time.Time              `json:"event_at"`
	ServedAt  *time.Time             `json:"served_at,omitempty"`
	IsRead    bool                   `json:"is_read"`
	Link      string                 `json:"link,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Actors    []Actor                `json:"actors,omitempty"`
}

// PrimaryTopic returns the item's leading topic tag, or "" when untagged.
func (i StreamItem) PrimaryTopic() string {
	if len(i.Topics) == 0 {
		return ""
	}
	return i.Topics[0]
}

// Clone returns a deep copy so recompute passes can work on a snapshot
// without mutating the working set while iterating it.
func (i StreamItem) Clone() StreamItem {
	out := i
	if i.Topics != nil {
		out.Topics = append([]string(nil), i.Topics...)
	}
	if i.Actors != nil {
		out.Actors = append([]Actor(nil), i.Actors...)
	}
	if i.Metadata != nil {
		out.Metadata = make(map[string]interface{}, len(i.Metadata))
		for k, v := range i.Metadata {
			out.Metadata[k] = v
		}
	}
	if i.ServedAt != nil {
		t := *i.ServedAt
		out.ServedAt = &t
	}
	return out
}

// BlendedItem is a StreamItem plus blending metadata. It is a presentation
// view recomputed on every pass; the constituent items remain individually
// addressable for read/dismiss operations. BlendedCount of 1 means the item
// passed through unblended.
type BlendedItem struct {
	StreamItem
	BlendedCount int      `json:"blended_count"`
	SourceIDs    []string `json:"source_ids,omitempty"`
}
