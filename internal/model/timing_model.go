package model

import (
	"time"
)

// ActivityState classifies what the user is currently doing. It is re-derived
// fresh from ambient signals on every poll; there is no state machine memory
// beyond the signals themselves.
type ActivityState string

const (
	ActivityActive    ActivityState = "active"
	ActivityTyping    ActivityState = "typing"
	ActivityIdle      ActivityState = "idle"
	ActivityScrolling ActivityState = "scrolling"
	ActivityMeeting   ActivityState = "meeting"
)

// TimingContext is the ambient session state the delivery policy reads.
// Not persisted beyond the session, except FocusUntil which survives a
// reload via the key-value store.
type TimingContext struct {
	Activity         ActivityState `json:"activity"`
	PageTopics       []string      `json:"page_topics,omitempty"`
	LastActivityAt   time.Time     `json:"last_activity_at"`
	QuietHoursActive bool          `json:"quiet_hours_active"`
	FocusUntil       *time.Time    `json:"focus_until,omitempty"`
}

// FocusActive reports whether focus mode is in effect at the given instant.
func (t TimingContext) FocusActive(now time.Time) bool {
	return t.FocusUntil != nil && now.Before(*t.FocusUntil)
}
