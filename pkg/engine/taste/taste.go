// Package taste maintains the learned per-user preference weights over
// sources, topics and actors, fed by implicit interaction signals.
package taste

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"smartfeed-be/internal/model"
	"smartfeed-be/internal/pkg/logger"
	"smartfeed-be/internal/repository"
	"smartfeed-be/pkg/engine/scoring"
)

const affinityLimit = 100

var actionWeights = map[model.InteractionAction]float64{
	model.ActionExpand:       1,
	model.ActionRead:         0.5,
	model.ActionIgnore:       -1,
	model.ActionDismiss:      -2,
	model.ActionSave:         3,
	model.ActionClickThrough: 5,
}

// Model owns the TastePreference for one user. State is persisted to the
// key-value store immediately after every signal; persistence failures are
// non-fatal and leave the in-memory state authoritative for the session.
type Model struct {
	userID string
	kv     repository.KeyValueStore
	logger logger.ILogger

	mu    sync.RWMutex
	prefs model.TastePreference
}

func kvKey(userID string) string {
	return fmt.Sprintf("taste:%s", userID)
}

// Load builds the model for a user, reading the persisted blob once and
// merging it over defaults. Corrupt or unreadable blobs fall back to
// defaults for the session rather than failing.
func Load(ctx context.Context, userID string, kv repository.KeyValueStore, log logger.ILogger) *Model {
	m := &Model{
		userID: userID,
		kv:     kv,
		logger: log,
		prefs:  model.DefaultTastePreference(),
	}

	if kv == nil {
		return m
	}
	blob, err := kv.Get(ctx, kvKey(userID))
	if err != nil {
		log.Warn("TasteModel", "Failed to load preferences, using defaults", map[string]interface{}{"user_id": userID, "error": err.Error()})
		return m
	}
	if blob == nil {
		return m
	}

	var loaded model.TastePreference
	if err := json.Unmarshal(blob, &loaded); err != nil {
		log.Warn("TasteModel", "Corrupt preference blob, using defaults", map[string]interface{}{"user_id": userID, "error": err.Error()})
		return m
	}
	loaded.MergeDefaults()
	m.prefs = loaded
	return m
}

// RecordInteraction applies one implicit feedback signal to the source,
// topic and actor dimensions, each clamped to [-100, 100] independently,
// and persists the result.
func (m *Model) RecordInteraction(ctx context.Context, sig model.InteractionSignal) error {
	weight, ok := actionWeights[sig.Action]
	if !ok {
		return fmt.Errorf("unknown interaction action: %s", sig.Action)
	}

	m.mu.Lock()
	m.prefs.SourceAffinity[sig.Source] = clampAffinity(m.prefs.SourceAffinity[sig.Source] + weight)
	if sig.Topic != "" {
		m.prefs.TopicAffinity[sig.Topic] = clampAffinity(m.prefs.TopicAffinity[sig.Topic] + weight)
	}
	if sig.ActorID != "" {
		m.prefs.ActorAffinity[sig.ActorID] = clampAffinity(m.prefs.ActorAffinity[sig.ActorID] + weight)
	}
	m.prefs.UpdatedAt = time.Now()
	m.mu.Unlock()

	return m.persist(ctx)
}

// Modifier returns the preference multiplier in the 0.5-1.5 range:
// 1 + (source*0.5 + topic*0.3 + actor*0.2)/200, omitting absent terms.
// A pure read: repeated calls with no new signals return identical results.
func (m *Model) Modifier(source model.Source, topic, actor string) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	score := m.prefs.SourceAffinity[source] * 0.5
	if topic != "" {
		score += m.prefs.TopicAffinity[topic] * 0.3
	}
	if actor != "" {
		score += m.prefs.ActorAffinity[actor] * 0.2
	}
	return 1 + score/200
}

// ApplyPreference scales a base score by the user's learned affinities.
func (m *Model) ApplyPreference(baseScore int, source model.Source, topic, actor string) int {
	adjusted := float64(baseScore) * m.Modifier(source, topic, actor)
	return scoring.Clamp(int(math.Round(adjusted)))
}

// QuietHours returns the configured window, or nil when unset.
func (m *Model) QuietHours() *model.QuietHours {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.prefs.QuietHours == nil {
		return nil
	}
	qh := *m.prefs.QuietHours
	return &qh
}

// SetQuietHours stores a new window and persists it.
func (m *Model) SetQuietHours(ctx context.Context, start, end string) error {
	if _, err := parseMinuteOfDay(start); err != nil {
		return err
	}
	if _, err := parseMinuteOfDay(end); err != nil {
		return err
	}
	m.mu.Lock()
	m.prefs.QuietHours = &model.QuietHours{Start: start, End: end}
	m.prefs.UpdatedAt = time.Now()
	m.mu.Unlock()
	return m.persist(ctx)
}

// ClearQuietHours removes the window.
func (m *Model) ClearQuietHours(ctx context.Context) error {
	m.mu.Lock()
	m.prefs.QuietHours = nil
	m.prefs.UpdatedAt = time.Now()
	m.mu.Unlock()
	return m.persist(ctx)
}

// QuietHoursActive reports whether now falls inside the configured window,
// handling overnight windows (start later than end, e.g. 22:00-08:00) via
// wraparound comparison on minute-of-day.
func (m *Model) QuietHoursActive(now time.Time) bool {
	qh := m.QuietHours()
	if qh == nil {
		return false
	}
	start, err := parseMinuteOfDay(qh.Start)
	if err != nil {
		return false
	}
	end, err := parseMinuteOfDay(qh.End)
	if err != nil {
		return false
	}

	minute := now.Hour()*60 + now.Minute()
	if start <= end {
		return minute >= start && minute < end
	}
	// Overnight window wraps midnight.
	return minute >= start || minute < end
}

// Preference returns a deep copy of the current state.
func (m *Model) Preference() model.TastePreference {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.prefs.Clone()
}

// UpdateSettings replaces the user-editable delivery settings (quiet hours,
// digest time, windows, batch mode) while keeping the learned affinities.
func (m *Model) UpdateSettings(ctx context.Context, settings model.TastePreference) error {
	m.mu.Lock()
	m.prefs.QuietHours = settings.QuietHours
	m.prefs.DigestTime = settings.DigestTime
	m.prefs.DigestEmail = settings.DigestEmail
	if len(settings.Windows) > 0 {
		m.prefs.Windows = settings.Windows
	}
	if settings.BatchMode != "" {
		m.prefs.BatchMode = settings.BatchMode
	}
	m.prefs.UpdatedAt = time.Now()
	m.mu.Unlock()
	return m.persist(ctx)
}

func (m *Model) persist(ctx context.Context) error {
	if m.kv == nil {
		return nil
	}
	m.mu.RLock()
	blob, err := json.Marshal(m.prefs)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	if err := m.kv.Set(ctx, kvKey(m.userID), blob); err != nil {
		// Non-fatal: in-memory state stays authoritative for the session.
		m.logger.Warn("TasteModel", "Failed to persist preferences", map[string]interface{}{"user_id": m.userID, "error": err.Error()})
	}
	return nil
}

func clampAffinity(v float64) float64 {
	if v > affinityLimit {
		return affinityLimit
	}
	if v < -affinityLimit {
		return -affinityLimit
	}
	return v
}

func parseMinuteOfDay(hhmm string) (int, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", hhmm, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
