package model

import (
	"time"
)

// InteractionAction is the fixed vocabulary of implicit feedback actions.
type InteractionAction string

const (
	ActionExpand       InteractionAction = "expand"
	ActionRead         InteractionAction = "read"
	ActionIgnore       InteractionAction = "ignore"
	ActionDismiss      InteractionAction = "dismiss"
	ActionSave         InteractionAction = "save"
	ActionClickThrough InteractionAction = "click_through"
)

// InteractionSignal is an ephemeral implicit-feedback event. It is consumed
// by the taste model to update affinities and then discarded, never logged.
type InteractionSignal struct {
	ItemID  string            `json:"item_id"`
	Source  Source            `json:"source"`
	Topic   string            `json:"topic,omitempty"`
	ActorID string            `json:"actor_id,omitempty"`
	Action  InteractionAction `json:"action"`
	At      time.Time         `json:"at"`
}

// BatchMode controls whether non-critical items are held for scheduled windows.
type BatchMode string

const (
	BatchRealtime  BatchMode = "realtime"
	BatchScheduled BatchMode = "scheduled"
)

// QuietHours is a user-configured window during which only critical items
// are delivered. Start may be later than End (overnight window, e.g.
// 22:00-08:00).
type QuietHours struct {
	Start string `json:"start"` // "HH:MM"
	End   string `json:"end"`   // "HH:MM"
}

// DeliveryWindow is a named batched-delivery slot.
type DeliveryWindow struct {
	Name      string `json:"name"`
	StartHour int    `json:"start_hour"`
	Enabled   bool   `json:"enabled"`
}

// TastePreference is the learned personalization state for one user.
// Persisted as a JSON blob through the key-value contract, loaded once per
// session and merged over defaults for any missing fields.
type TastePreference struct {
	SourceAffinity map[Source]float64 `json:"source_affinity"`
	TopicAffinity  map[string]float64 `json:"topic_affinity"`
	ActorAffinity  map[string]float64 `json:"actor_affinity"`
	QuietHours     *QuietHours        `json:"quiet_hours,omitempty"`
	DigestTime     string             `json:"digest_time,omitempty"` // "HH:MM"
	DigestEmail    string             `json:"digest_email,omitempty"`
	Windows        []DeliveryWindow   `json:"windows"`
	BatchMode      BatchMode          `json:"batch_mode"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// DefaultTastePreference returns the neutral starting state for a new user.
func DefaultTastePreference() TastePreference {
	return TastePreference{
		SourceAffinity: map[Source]float64{
			SourceRecognition: 0,
			SourceMarket:      0,
			SourceLearning:    0,
			SourceDiscussion:  0,
			SourceSystem:      0,
		},
		TopicAffinity: make(map[string]float64),
		ActorAffinity: make(map[string]float64),
		Windows: []DeliveryWindow{
			{Name: "morning", StartHour: 9, Enabled: true},
			{Name: "afternoon", StartHour: 13, Enabled: true},
			{Name: "evening", StartHour: 17, Enabled: true},
		},
		BatchMode: BatchRealtime,
	}
}

// MergeDefaults fills any zero-valued field loaded from persistence with the
// corresponding default so partial blobs from older versions stay usable.
func (p *TastePreference) MergeDefaults() {
	def := DefaultTastePreference()
	if p.SourceAffinity == nil {
		p.SourceAffinity = def.SourceAffinity
	} else {
		for src := range def.SourceAffinity {
			if _, ok := p.SourceAffinity[src]; !ok {
				p.SourceAffinity[src] = 0
			}
		}
	}
	if p.TopicAffinity == nil {
		p.TopicAffinity = make(map[string]float64)
	}
	if p.ActorAffinity == nil {
		p.ActorAffinity = make(map[string]float64)
	}
	if len(p.Windows) == 0 {
		p.Windows = def.Windows
	}
	if p.BatchMode == "" {
		p.BatchMode = def.BatchMode
	}
}

// Clone returns a deep copy safe to hand out of the taste model.
func (p TastePreference) Clone() TastePreference {
	out := p
	out.SourceAffinity = make(map[Source]float64, len(p.SourceAffinity))
	for k, v := range p.SourceAffinity {
		out.SourceAffinity[k] = v
	}
	out.TopicAffinity = make(map[string]float64, len(p.TopicAffinity))
	for k, v := range p.TopicAffinity {
		out.TopicAffinity[k] = v
	}
	out.ActorAffinity = make(map[string]float64, len(p.ActorAffinity))
	for k, v := range p.ActorAffinity {
		out.ActorAffinity[k] = v
	}
	if p.QuietHours != nil {
		qh := *p.QuietHours
		out.QuietHours = &qh
	}
	out.Windows = append([]DeliveryWindow(nil), p.Windows...)
	return out
}
