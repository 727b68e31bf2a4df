// Package timing decides whether and when to interrupt the user: it
// classifies ambient activity and gates delivery per item.
package timing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"smartfeed-be/internal/model"
	"smartfeed-be/internal/pkg/logger"
	"smartfeed-be/internal/repository"
	"smartfeed-be/pkg/store"
)

const (
	meetingRequeue = 30 * time.Minute
	typingRequeue  = 5 * time.Minute

	contextMatchBoost  = 15
	criticalMatchBoost = 10
	idlePenalty        = -10
)

// Decision is the outcome of the delivery gate, with a human-readable
// reason for any "why am I seeing this" affordance.
type Decision struct {
	Deliver    bool       `json:"deliver"`
	Reason     string     `json:"reason"`
	BoostScore int        `json:"boost_score"`
	QueueUntil *time.Time `json:"queue_until,omitempty"`
}

// Policy owns the timing context. Only focus-mode expiry is persisted (it
// survives a reload through the key-value store); everything else is
// recomputed from live signals.
type Policy struct {
	kv     repository.KeyValueStore
	logger logger.ILogger
}

func NewPolicy(kv repository.KeyValueStore, log logger.ILogger) *Policy {
	return &Policy{kv: kv, logger: log}
}

func focusKey(userID string) string {
	return fmt.Sprintf("focus:%s", userID)
}

// ShouldDeliverNow walks the ordered decision table. The first matching
// branch wins: suppression branches (focus, quiet hours, meeting, typing)
// must not be overridden by later boost branches.
func ShouldDeliverNow(item model.StreamItem, tc model.TimingContext, now time.Time) Decision {
	topicsMatch := intersects(item.Topics, tc.PageTopics)

	if item.Tier == model.TierCritical {
		boost := 0
		if topicsMatch {
			boost = criticalMatchBoost
		}
		return Decision{Deliver: true, Reason: "critical, always deliver", BoostScore: boost}
	}

	if tc.FocusActive(now) {
		return Decision{
			Deliver:    false,
			Reason:     "focus mode active",
			QueueUntil: tc.FocusUntil,
		}
	}

	if tc.QuietHoursActive {
		// No explicit requeue time: the caller batches to the next digest.
		return Decision{Deliver: false, Reason: "quiet hours active"}
	}

	if tc.Activity == model.ActivityMeeting {
		until := now.Add(meetingRequeue)
		return Decision{Deliver: false, Reason: "user in meeting", QueueUntil: &until}
	}

	if tc.Activity == model.ActivityTyping && item.Tier == model.TierAmbient {
		until := now.Add(typingRequeue)
		return Decision{Deliver: false, Reason: "user typing, ambient item held", QueueUntil: &until}
	}

	if tc.Activity == model.ActivityIdle {
		return Decision{Deliver: true, Reason: "user idle, reduced confidence", BoostScore: idlePenalty}
	}

	if topicsMatch {
		return Decision{Deliver: true, Reason: "matches current page context", BoostScore: contextMatchBoost}
	}

	return Decision{Deliver: true, Reason: "default delivery", BoostScore: 0}
}

// Context assembles the current TimingContext for a user from live signals,
// quiet-hours state and the persisted focus expiry.
func (p *Policy) Context(ctx context.Context, userID string, signals store.ActivitySignals, quietActive bool, now time.Time) model.TimingContext {
	return model.TimingContext{
		Activity:         Classify(signals, now),
		PageTopics:       signals.PageTopics,
		LastActivityAt:   signals.LastInput(),
		QuietHoursActive: quietActive,
		FocusUntil:       p.Focus(ctx, userID),
	}
}

// SetFocus enables focus mode until the given time and persists the expiry.
func (p *Policy) SetFocus(ctx context.Context, userID string, until time.Time) error {
	if p.kv == nil {
		return nil
	}
	blob, err := json.Marshal(until)
	if err != nil {
		return fmt.Errorf("failed to marshal focus expiry: %w", err)
	}
	if err := p.kv.Set(ctx, focusKey(userID), blob); err != nil {
		return fmt.Errorf("failed to persist focus expiry: %w", err)
	}
	return nil
}

// Focus returns the persisted focus-mode expiry, nil when unset or already
// expired beyond parse. Read failures degrade to "no focus mode".
func (p *Policy) Focus(ctx context.Context, userID string) *time.Time {
	if p.kv == nil {
		return nil
	}
	blob, err := p.kv.Get(ctx, focusKey(userID))
	if err != nil {
		p.logger.Warn("TimingPolicy", "Failed to read focus expiry", map[string]interface{}{"user_id": userID, "error": err.Error()})
		return nil
	}
	if blob == nil {
		return nil
	}
	var until time.Time
	if err := json.Unmarshal(blob, &until); err != nil {
		p.logger.Warn("TimingPolicy", "Corrupt focus expiry blob", map[string]interface{}{"user_id": userID, "error": err.Error()})
		return nil
	}
	return &until
}

// ClearFocus drops focus mode.
func (p *Policy) ClearFocus(ctx context.Context, userID string) error {
	if p.kv == nil {
		return nil
	}
	return p.kv.Delete(ctx, focusKey(userID))
}

func intersects(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		if set[s] {
			return true
		}
	}
	return false
}
