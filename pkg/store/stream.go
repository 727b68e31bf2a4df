package store

import (
	"sync"
	"time"

	"smartfeed-be/internal/model"
)

const maxKeystrokeSamples = 512

// ActivitySignals is the passive ambient-signal buffer for one session.
// Collection only records timestamps and never blocks the caller.
type ActivitySignals struct {
	Keystrokes  []time.Time `json:"-"`
	LastPointer time.Time   `json:"last_pointer"`
	LastClick   time.Time   `json:"last_click"`
	LastScroll  time.Time   `json:"last_scroll"`
	WindowTitle string      `json:"window_title"`
	PageTopics  []string    `json:"page_topics"`
}

// LastInput returns the most recent input signal of any kind.
func (s ActivitySignals) LastInput() time.Time {
	last := s.LastPointer
	if s.LastClick.After(last) {
		last = s.LastClick
	}
	if s.LastScroll.After(last) {
		last = s.LastScroll
	}
	if n := len(s.Keystrokes); n > 0 && s.Keystrokes[n-1].After(last) {
		last = s.Keystrokes[n-1]
	}
	return last
}

// StreamSession is the per-user engine context: the working set of items,
// the ambient signal buffers, and the pending re-check queue. All engine
// state is scoped here instead of module-level singletons, so concurrent
// sessions never share hidden state.
type StreamSession struct {
	UserID string

	mu      sync.RWMutex
	items   map[string]*model.StreamItem
	queued  map[string]time.Time // item ID -> advisory re-check time
	signals ActivitySignals
	blended []model.BlendedItem // last recompute result, swapped in atomically
}

func NewStreamSession(userID string) *StreamSession {
	return &StreamSession{
		UserID: userID,
		items:  make(map[string]*model.StreamItem),
		queued: make(map[string]time.Time),
	}
}

// Upsert inserts an item unless one with the same ID already exists.
// Producer IDs are deterministic, so replays dedupe idempotently.
func (s *StreamSession) Upsert(item model.StreamItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[item.ID]; exists {
		return false
	}
	copied := item.Clone()
	s.items[item.ID] = &copied
	return true
}

// Item returns a copy of the item with the given ID.
func (s *StreamSession) Item(id string) (model.StreamItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return model.StreamItem{}, false
	}
	return item.Clone(), true
}

// Snapshot returns deep copies of the working set so recompute passes can
// run on an immutable view while new events keep arriving.
func (s *StreamSession) Snapshot() []model.StreamItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.StreamItem, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item.Clone())
	}
	return out
}

// ApplyScores writes recomputed score/tier values back onto the working set.
// Identity is stable: only Score and Tier change.
func (s *StreamSession) ApplyScores(items []model.StreamItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		if existing, ok := s.items[item.ID]; ok {
			existing.Score = item.Score
			existing.Tier = item.Tier
		}
	}
}

// MarkRead flags an item as read. A pending queued re-check for a read item
// becomes a no-op on its next pass.
func (s *StreamSession) MarkRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return false
	}
	item.IsRead = true
	delete(s.queued, id)
	return true
}

// Dismiss removes an item from the working set entirely.
func (s *StreamSession) Dismiss(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	delete(s.queued, id)
	return true
}

// MarkServed stamps the first time an item was surfaced.
func (s *StreamSession) MarkServed(id string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.items[id]; ok && item.ServedAt == nil {
		t := at
		item.ServedAt = &t
	}
}

// Queue records an advisory re-check time for a suppressed item.
func (s *StreamSession) Queue(id string, until time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; ok {
		s.queued[id] = until
	}
}

// DueQueued pops the IDs whose advisory re-check time has passed.
func (s *StreamSession) DueQueued(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []string
	for id, until := range s.queued {
		if !now.Before(until) {
			due = append(due, id)
			delete(s.queued, id)
		}
	}
	return due
}

// SetBlended swaps in the latest recompute result.
func (s *StreamSession) SetBlended(blended []model.BlendedItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blended = blended
}

// Blended returns the last recompute result.
func (s *StreamSession) Blended() []model.BlendedItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blended
}

// RecordKeystrokes appends keystroke timestamps, trimming the buffer to the
// newest samples so the collector stays bounded.
func (s *StreamSession) RecordKeystrokes(at []time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals.Keystrokes = append(s.signals.Keystrokes, at...)
	if n := len(s.signals.Keystrokes); n > maxKeystrokeSamples {
		s.signals.Keystrokes = s.signals.Keystrokes[n-maxKeystrokeSamples:]
	}
}

// RecordActivity updates the non-keystroke ambient signals. Zero timestamps
// and empty strings leave the previous value in place.
func (s *StreamSession) RecordActivity(pointer, click, scroll time.Time, windowTitle string, pageTopics []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !pointer.IsZero() {
		s.signals.LastPointer = pointer
	}
	if !click.IsZero() {
		s.signals.LastClick = click
	}
	if !scroll.IsZero() {
		s.signals.LastScroll = scroll
	}
	if windowTitle != "" {
		s.signals.WindowTitle = windowTitle
	}
	if pageTopics != nil {
		s.signals.PageTopics = append([]string(nil), pageTopics...)
	}
}

// Signals returns a copy of the current ambient signal buffers.
func (s *StreamSession) Signals() ActivitySignals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.signals
	out.Keystrokes = append([]time.Time(nil), s.signals.Keystrokes...)
	out.PageTopics = append([]string(nil), s.signals.PageTopics...)
	return out
}

// UnreadCount reports how many working-set items are unread.
func (s *StreamSession) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, item := range s.items {
		if !item.IsRead {
			count++
		}
	}
	return count
}
