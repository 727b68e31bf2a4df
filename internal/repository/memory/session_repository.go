package memory

import (
	"time"

	"smartfeed-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// SessionRepository holds the per-user StreamSessions. Sessions idle past
// the TTL are purged; the working set is a bounded per-user view, not a
// durable store, so losing an idle session only costs recomputable state.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository(ttl time.Duration) *SessionRepository {
	c := cache.New(ttl, 10*time.Minute)
	return &SessionRepository{
		cache: c,
	}
}

// GetOrCreate returns the session for a user, creating one on first touch.
// Every access refreshes the TTL.
func (r *SessionRepository) GetOrCreate(userID string) *store.StreamSession {
	if x, found := r.cache.Get(userID); found {
		sess := x.(*store.StreamSession)
		r.cache.Set(userID, sess, cache.DefaultExpiration)
		return sess
	}
	sess := store.NewStreamSession(userID)
	r.cache.Set(userID, sess, cache.DefaultExpiration)
	return sess
}

// Get returns the session without creating one.
func (r *SessionRepository) Get(userID string) (*store.StreamSession, bool) {
	if x, found := r.cache.Get(userID); found {
		return x.(*store.StreamSession), true
	}
	return nil, false
}

// Active lists the currently live sessions (for tick-driven recompute).
func (r *SessionRepository) Active() []*store.StreamSession {
	items := r.cache.Items()
	out := make([]*store.StreamSession, 0, len(items))
	for _, it := range items {
		out = append(out, it.Object.(*store.StreamSession))
	}
	return out
}

// Delete drops a session.
func (r *SessionRepository) Delete(userID string) {
	r.cache.Delete(userID)
}
