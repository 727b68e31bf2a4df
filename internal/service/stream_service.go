package service

import (
	"context"
	"fmt"
	"time"

	"smartfeed-be/internal/model"
	"smartfeed-be/internal/pkg/logger"
	"smartfeed-be/internal/repository"
	"smartfeed-be/internal/repository/memory"
	"smartfeed-be/pkg/engine/cluster"
	"smartfeed-be/pkg/engine/decay"
	"smartfeed-be/pkg/engine/digest"
	"smartfeed-be/pkg/engine/scoring"
	"smartfeed-be/pkg/engine/taste"
	"smartfeed-be/pkg/engine/timing"
	"smartfeed-be/pkg/events"
	pktNats "smartfeed-be/pkg/nats" // Renamed to avoid collision
	"smartfeed-be/pkg/store"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// StreamDelivery defines how to push real-time payloads to the user.
// Typically implemented by the WebSocket Hub.
type StreamDelivery interface {
	Send(userID uuid.UUID, payloadType string, data interface{})
}

// StreamService owns the per-user working sets and runs the full pipeline:
// score, personalize, decay, blend, gate, deliver.
type StreamService struct {
	sessions   *memory.SessionRepository
	tastes     *cache.Cache // userID -> *taste.Model, same TTL as sessions
	kv         repository.KeyValueStore
	subscriber *pktNats.Subscriber
	policy     *timing.Policy
	delivery   StreamDelivery
	logger     logger.ILogger
	tick       time.Duration
}

func NewStreamService(
	sessions *memory.SessionRepository,
	kv repository.KeyValueStore,
	sub *pktNats.Subscriber,
	policy *timing.Policy,
	delivery StreamDelivery,
	log logger.ILogger,
	tick time.Duration,
	sessionTTL time.Duration,
) *StreamService {
	return &StreamService{
		sessions:   sessions,
		tastes:     cache.New(sessionTTL, 10*time.Minute),
		kv:         kv,
		subscriber: sub,
		policy:     policy,
		delivery:   delivery,
		logger:     log,
		tick:       tick,
	}
}

// Start begins listening to the producer event bus.
func (s *StreamService) Start() {
	err := s.subscriber.Subscribe("feed.>", "smartfeed-engine", s.handleEvent)
	if err != nil {
		s.logger.Error("StreamService", "Failed to start feed subscriber", map[string]interface{}{"error": err})
		return
	}
	s.logger.Info("StreamService", "Stream service started, listening to feed.>", nil)
}

// RunTicker drives the periodic recompute pass over all active sessions
// until the context is cancelled. Overlap with on-demand refreshes is safe:
// every pass recomputes from base scores and absolute timestamps on a
// snapshot, so a duplicate pass converges to the same result.
func (s *StreamService) RunTicker(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			for _, sess := range s.sessions.Active() {
				s.recompute(ctx, sess, now)
			}
		}
	}
}

// Taste returns the per-user taste model, loading persisted state on first
// touch of the session.
func (s *StreamService) Taste(ctx context.Context, userID string) *taste.Model {
	if x, found := s.tastes.Get(userID); found {
		return x.(*taste.Model)
	}
	m := taste.Load(ctx, userID, s.kv, s.logger)
	s.tastes.Set(userID, m, cache.DefaultExpiration)
	return m
}

// handleEvent turns one producer event into a stream item. A malformed
// event is defaulted or skipped, never fatal to the consumer.
func (s *StreamService) handleEvent(ctx context.Context, event events.Event) error {
	payload := event.Payload()

	userID := payloadString(payload, "user_id")
	if userID == "" {
		s.logger.Warn("StreamService", "Event without user_id dropped", map[string]interface{}{"type": event.EventType()})
		return nil
	}

	item, err := s.buildItem(payload, event.Timestamp())
	if err != nil {
		s.logger.Warn("StreamService", "Unprocessable event dropped", map[string]interface{}{"type": event.EventType(), "error": err.Error()})
		return nil
	}

	s.Ingest(ctx, userID, item)
	return nil
}

// buildItem maps a producer payload onto a StreamItem with the base urgency
// score. Unknown source tags and actions degrade to defaults (source
// "system", default content weight, empty topic set).
func (s *StreamService) buildItem(payload map[string]interface{}, occurredAt time.Time) (model.StreamItem, error) {
	id := payloadString(payload, "id")
	if id == "" {
		return model.StreamItem{}, fmt.Errorf("missing deterministic item id")
	}

	source, known := model.ParseSource(payloadString(payload, "source"))
	if !known {
		s.logger.Warn("StreamService", "Unknown source tag, defaulting to system", map[string]interface{}{"source": payloadString(payload, "source"), "item": id})
	}

	relationship := scoring.Relationship(payloadString(payload, "relationship"))
	action := payloadString(payload, "action")
	emergency := payloadBool(payload, "emergency")

	base := scoring.Score(relationship, action, emergency)

	eventAt := occurredAt
	if raw := payloadString(payload, "event_at"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			eventAt = parsed
		}
	}

	metadata := map[string]interface{}{
		"action": action,
	}
	if target := payloadString(payload, "target"); target != "" {
		metadata["target"] = target
	}
	if thread := payloadString(payload, "thread"); thread != "" {
		metadata["thread"] = thread
	}

	return model.StreamItem{
		ID:        id,
		Title:     payloadString(payload, "title"),
		Body:      payloadString(payload, "body"),
		Source:    source,
		BaseScore: base,
		Topics:    payloadStrings(payload, "topics"),
		EventAt:   eventAt,
		Link:      payloadString(payload, "link"),
		Metadata:  metadata,
		Actors:    payloadActors(payload),
	}, nil
}

// Ingest scores, personalizes and inserts one item, then runs the delivery
// gate. Items with an already-seen ID are deduped idempotently.
func (s *StreamService) Ingest(ctx context.Context, userID string, item model.StreamItem) {
	sess := s.sessions.GetOrCreate(userID)
	tasteModel := s.Taste(ctx, userID)

	actorID := firstActorID(item)
	item.Score = tasteModel.ApplyPreference(item.BaseScore, item.Source, item.PrimaryTopic(), actorID)
	item.Tier = scoring.TierFor(item.Score)

	if !sess.Upsert(item) {
		s.logger.Debug("StreamService", "Duplicate item ignored", map[string]interface{}{"item": item.ID, "user_id": userID})
		return
	}

	s.gateAndDeliver(ctx, sess, item, time.Now())
	s.recompute(ctx, sess, time.Now())
}

// gateAndDeliver runs batching and the timing decision table for one item,
// pushing it through the hub or queueing an advisory re-check.
func (s *StreamService) gateAndDeliver(ctx context.Context, sess *store.StreamSession, item model.StreamItem, now time.Time) {
	tasteModel := s.Taste(ctx, sess.UserID)
	prefs := tasteModel.Preference()

	if digest.ShouldBatchNow(item.Tier, prefs.BatchMode) {
		if status, ok := digest.Windows(prefs.Windows, now); ok {
			sess.Queue(item.ID, now.Add(time.Duration(status.UntilNextMs)*time.Millisecond))
		}
		s.logger.Debug("StreamService", "Item held for scheduled window", map[string]interface{}{"item": item.ID})
		return
	}

	tc := s.policy.Context(ctx, sess.UserID, sess.Signals(), tasteModel.QuietHoursActive(now), now)
	decision := timing.ShouldDeliverNow(item, tc, now)

	if !decision.Deliver {
		if decision.QueueUntil != nil {
			sess.Queue(item.ID, *decision.QueueUntil)
		}
		s.logger.Info("StreamService", "Delivery suppressed", map[string]interface{}{"item": item.ID, "reason": decision.Reason})
		return
	}

	s.send(sess.UserID, item, decision)
}

func (s *StreamService) send(userID string, item model.StreamItem, decision timing.Decision) {
	sess, ok := s.sessions.Get(userID)
	if ok {
		sess.MarkServed(item.ID, time.Now())
	}
	if s.delivery == nil {
		return
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		s.logger.Warn("StreamService", "Invalid user id for delivery", map[string]interface{}{"user_id": userID})
		return
	}
	s.delivery.Send(uid, "notification", map[string]interface{}{
		"item":     item,
		"decision": decision,
	})
}

// recompute runs one idempotent pass: decay from base score and absolute
// event time, re-apply preference, re-derive tier, blend, swap the result
// in, then re-check due queued items.
func (s *StreamService) recompute(ctx context.Context, sess *store.StreamSession, now time.Time) []model.BlendedItem {
	tasteModel := s.Taste(ctx, sess.UserID)

	snapshot := sess.Snapshot()
	for i := range snapshot {
		item := &snapshot[i]

		adjusted := tasteModel.ApplyPreference(item.BaseScore, item.Source, item.PrimaryTopic(), firstActorID(*item))
		item.Score = decay.Apply(adjusted, scoring.TierFor(adjusted), now.Sub(item.EventAt))
		item.Tier = scoring.TierFor(item.Score)
	}

	sess.ApplyScores(snapshot)

	blended := cluster.Blend(snapshot)
	sess.SetBlended(blended)

	s.flushQueued(ctx, sess, now)
	return blended
}

// flushQueued re-evaluates items whose advisory re-check time has passed.
// Read or dismissed items have already left the queue, making the check a
// no-op; still-suppressed items simply requeue.
func (s *StreamService) flushQueued(ctx context.Context, sess *store.StreamSession, now time.Time) {
	for _, id := range sess.DueQueued(now) {
		item, ok := sess.Item(id)
		if !ok || item.IsRead {
			continue
		}
		s.gateAndDeliver(ctx, sess, item, now)
	}
}

// Stream returns the ranked, blended view for a user, recomputed on demand.
func (s *StreamService) Stream(ctx context.Context, userID string) []model.BlendedItem {
	sess := s.sessions.GetOrCreate(userID)
	return s.recompute(ctx, sess, time.Now())
}

// MarkRead flags an item read; any pending queued re-check is dropped.
func (s *StreamService) MarkRead(ctx context.Context, userID, itemID string) bool {
	sess := s.sessions.GetOrCreate(userID)
	ok := sess.MarkRead(itemID)
	if ok {
		s.recompute(ctx, sess, time.Now())
	}
	return ok
}

// Dismiss removes an item from the working set.
func (s *StreamService) Dismiss(ctx context.Context, userID, itemID string) bool {
	sess := s.sessions.GetOrCreate(userID)
	ok := sess.Dismiss(itemID)
	if ok {
		s.recompute(ctx, sess, time.Now())
	}
	return ok
}

// Digest summarizes the pending working set for the given hour of day.
func (s *StreamService) Digest(ctx context.Context, userID string, hour int) digest.Digest {
	sess := s.sessions.GetOrCreate(userID)
	s.recompute(ctx, sess, time.Now())
	return digest.Generate(sess.Snapshot(), hour)
}

// WindowStatus reports the user's batched-delivery schedule position.
func (s *StreamService) WindowStatus(ctx context.Context, userID string) (digest.WindowStatus, bool) {
	prefs := s.Taste(ctx, userID).Preference()
	return digest.Windows(prefs.Windows, time.Now())
}

// Decision exposes the delivery gate verdict for one item, for debugging
// and "why am I seeing this" affordances.
func (s *StreamService) Decision(ctx context.Context, userID, itemID string) (timing.Decision, error) {
	sess := s.sessions.GetOrCreate(userID)
	item, ok := sess.Item(itemID)
	if !ok {
		return timing.Decision{}, fmt.Errorf("item %s not found", itemID)
	}

	now := time.Now()
	tasteModel := s.Taste(ctx, userID)
	tc := s.policy.Context(ctx, userID, sess.Signals(), tasteModel.QuietHoursActive(now), now)
	return timing.ShouldDeliverNow(item, tc, now), nil
}

// Session exposes the user's session for the ambient signal collector.
func (s *StreamService) Session(userID string) *store.StreamSession {
	return s.sessions.GetOrCreate(userID)
}

// Policy exposes the timing policy (focus-mode accessors).
func (s *StreamService) Policy() *timing.Policy {
	return s.policy
}

// payload helpers: producers are external, so every read degrades
// gracefully instead of panicking on a bad type.

func payloadString(payload map[string]interface{}, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func payloadBool(payload map[string]interface{}, key string) bool {
	if v, ok := payload[key].(bool); ok {
		return v
	}
	return false
}

func payloadStrings(payload map[string]interface{}, key string) []string {
	raw, ok := payload[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func payloadActors(payload map[string]interface{}) []model.Actor {
	raw, ok := payload["actors"].([]interface{})
	if !ok {
		return nil
	}
	var out []model.Actor
	for _, v := range raw {
		entry, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		actor := model.Actor{
			Name:      payloadString(entry, "name"),
			AvatarURL: payloadString(entry, "avatar_url"),
		}
		if actor.Name != "" {
			out = append(out, actor)
		}
	}
	return out
}

func firstActorID(item model.StreamItem) string {
	if len(item.Actors) == 0 {
		return ""
	}
	return item.Actors[0].Name
}
