package events

import "time"

// Event is the contract between producing collaborators (recognition,
// market-intel, learning-session, discussion, system) and the engine.
// Producers publish these onto the bus; the engine never reaches into
// producer internals.
type Event interface {
	// EventType returns the unique code for this event (e.g., "RECOGNITION_GIVEN").
	EventType() string

	// Payload returns the data associated with the event. By convention it
	// carries: id (deterministic, for idempotent dedupe), user_id, source,
	// title, body, topics, actors, relationship, action, emergency, link,
	// target and event_at.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the generic implementation producers and tests use.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
