package timing

import (
	"strings"
	"time"

	"smartfeed-be/internal/model"
	"smartfeed-be/pkg/store"
)

const (
	typingWindow    = 30 * time.Second
	typingThreshold = 100 // keystrokes in the window, roughly 40+ WPM
	idleAfter       = 5 * time.Minute
	scrollingWithin = 2 * time.Second
)

// meetingKeywords are matched against the current window/tab title.
var meetingKeywords = []string{
	"zoom",
	"meet",
	"teams",
	"webex",
	"huddle",
	"standup",
	"1:1",
	"call",
}

// Classify derives the current activity state fresh from the ambient signal
// buffers. There is no state machine: every call re-derives from signals.
// Precedence when multiple conditions hold: meeting > typing > idle >
// scrolling > active.
func Classify(signals store.ActivitySignals, now time.Time) model.ActivityState {
	if inMeeting(signals.WindowTitle) {
		return model.ActivityMeeting
	}
	if isTyping(signals.Keystrokes, now) {
		return model.ActivityTyping
	}
	if lastInput := signals.LastInput(); lastInput.IsZero() || now.Sub(lastInput) >= idleAfter {
		return model.ActivityIdle
	}
	if !signals.LastScroll.IsZero() && now.Sub(signals.LastScroll) < scrollingWithin {
		return model.ActivityScrolling
	}
	return model.ActivityActive
}

func inMeeting(windowTitle string) bool {
	title := strings.ToLower(windowTitle)
	if title == "" {
		return false
	}
	for _, kw := range meetingKeywords {
		if strings.Contains(title, kw) {
			return true
		}
	}
	return false
}

func isTyping(keystrokes []time.Time, now time.Time) bool {
	cutoff := now.Add(-typingWindow)
	count := 0
	for i := len(keystrokes) - 1; i >= 0; i-- {
		if keystrokes[i].Before(cutoff) {
			break
		}
		count++
		if count > typingThreshold {
			return true
		}
	}
	return false
}
