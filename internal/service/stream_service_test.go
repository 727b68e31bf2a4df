package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"smartfeed-be/internal/model"
	"smartfeed-be/internal/pkg/logger"
	"smartfeed-be/internal/repository/memory"
	"smartfeed-be/pkg/engine/timing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPubSub() *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
}

const testUserID = "7f9c24e5-2f63-4bbf-9d2b-0a45f1f0b111"

type fakeDelivery struct {
	mu    sync.Mutex
	sends []string // payload types, in order
}

func (f *fakeDelivery) Send(_ uuid.UUID, payloadType string, _ interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, payloadType)
}

func (f *fakeDelivery) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

func newTestService(delivery StreamDelivery) *StreamService {
	log := logger.NewNopLogger()
	kv := memory.NewKeyValueStore()
	sessions := memory.NewSessionRepository(time.Hour)
	policy := timing.NewPolicy(kv, log)
	return NewStreamService(sessions, kv, nil, policy, delivery, log, 30*time.Second, time.Hour)
}

func testItem(id string, base int, eventAt time.Time) model.StreamItem {
	return model.StreamItem{
		ID:        id,
		Title:     "Quarterly report comment",
		Source:    model.SourceDiscussion,
		BaseScore: base,
		Topics:    []string{"reports"},
		EventAt:   eventAt,
		Actors:    []model.Actor{{Name: "Ada"}},
	}
}

func TestIngestDedupesByID(t *testing.T) {
	delivery := &fakeDelivery{}
	svc := newTestService(delivery)
	ctx := context.Background()

	item := testItem("evt-1", 60, time.Now())
	svc.Ingest(ctx, testUserID, item)
	svc.Ingest(ctx, testUserID, item)

	blended := svc.Stream(ctx, testUserID)
	require.Len(t, blended, 1)
	assert.Equal(t, 1, delivery.count(), "duplicate must not re-deliver")
}

func TestRecomputeIsIdempotent(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	svc.Ingest(ctx, testUserID, testItem("evt-1", 80, time.Now().Add(-5*time.Hour)))

	first := svc.Stream(ctx, testUserID)
	second := svc.Stream(ctx, testUserID)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Score, second[0].Score, "recompute from base must not compound decay")
}

func TestDecayLowersScoreOfOldItems(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	svc.Ingest(ctx, testUserID, testItem("old", 60, time.Now().Add(-10*time.Hour)))
	svc.Ingest(ctx, testUserID, model.StreamItem{
		ID:        "fresh",
		Title:     "New mention",
		Source:    model.SourceDiscussion,
		BaseScore: 60,
		Topics:    []string{"chat"},
		EventAt:   time.Now(),
	})

	blended := svc.Stream(ctx, testUserID)
	require.Len(t, blended, 2)
	assert.Equal(t, "fresh", blended[0].SourceIDs[0], "fresh item ranks above the decayed one")
	assert.Greater(t, blended[0].Score, blended[1].Score)
}

func TestMarkReadAndDismiss(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	svc.Ingest(ctx, testUserID, testItem("evt-1", 60, time.Now()))

	assert.True(t, svc.MarkRead(ctx, testUserID, "evt-1"))
	assert.False(t, svc.MarkRead(ctx, testUserID, "missing"))

	assert.True(t, svc.Dismiss(ctx, testUserID, "evt-1"))
	assert.Empty(t, svc.Stream(ctx, testUserID))
	assert.False(t, svc.Dismiss(ctx, testUserID, "evt-1"), "dismiss is not idempotent on missing items")
}

func TestCriticalDeliversDuringQuietHours(t *testing.T) {
	delivery := &fakeDelivery{}
	svc := newTestService(delivery)
	ctx := context.Background()

	taste := svc.Taste(ctx, testUserID)
	require.NoError(t, taste.SetQuietHours(ctx, "00:00", "23:59"))

	svc.Ingest(ctx, testUserID, testItem("ambient", 40, time.Now()))
	assert.Equal(t, 0, delivery.count(), "non-critical held during quiet hours")

	svc.Ingest(ctx, testUserID, testItem("critical", 90, time.Now()))
	assert.Equal(t, 1, delivery.count(), "critical bypasses quiet hours")
}

func TestScheduledBatchHoldsNonCritical(t *testing.T) {
	delivery := &fakeDelivery{}
	svc := newTestService(delivery)
	ctx := context.Background()

	prefs := model.DefaultTastePreference()
	prefs.BatchMode = model.BatchScheduled
	require.NoError(t, svc.Taste(ctx, testUserID).UpdateSettings(ctx, prefs))

	svc.Ingest(ctx, testUserID, testItem("evt-1", 40, time.Now()))
	assert.Equal(t, 0, delivery.count())

	svc.Ingest(ctx, testUserID, testItem("evt-2", 90, time.Now()))
	assert.Equal(t, 1, delivery.count(), "critical is never batched")
}

func TestHandleEventBuildsItemFromPayload(t *testing.T) {
	svc := newTestService(nil)

	occurred := time.Now().Add(-2 * time.Hour).UTC().Truncate(time.Second)
	payload := map[string]interface{}{
		"user_id":      testUserID,
		"id":           "evt-42",
		"source":       "recognition",
		"title":        "Kudos from Grace",
		"topics":       []interface{}{"recognition", "team"},
		"actors":       []interface{}{map[string]interface{}{"name": "Grace"}},
		"relationship": "manager",
		"action":       "mention",
		"emergency":    false,
		"event_at":     occurred.Format(time.RFC3339),
	}

	item, err := svc.buildItem(payload, time.Now())
	require.NoError(t, err)

	assert.Equal(t, "evt-42", item.ID)
	assert.Equal(t, model.SourceRecognition, item.Source)
	assert.Equal(t, 75, item.BaseScore, "manager mention scores 1.5 * 50")
	assert.True(t, item.EventAt.Equal(occurred))
	assert.Equal(t, []string{"recognition", "team"}, item.Topics)
	assert.Equal(t, "Grace", item.Actors[0].Name)
}

func TestBuildItemDefaultsUnknownFields(t *testing.T) {
	svc := newTestService(nil)

	item, err := svc.buildItem(map[string]interface{}{
		"user_id": testUserID,
		"id":      "evt-odd",
		"source":  "carrier_pigeon",
		"action":  "teleport",
	}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, model.SourceSystem, item.Source)
	assert.Equal(t, 16, item.BaseScore, "unknown relationship takes the system weight, unknown action the default content weight: 0.8 * 20")
	assert.Empty(t, item.Topics)
}

func TestBuildItemRejectsMissingID(t *testing.T) {
	svc := newTestService(nil)
	_, err := svc.buildItem(map[string]interface{}{"user_id": testUserID}, time.Now())
	assert.Error(t, err)
}

func TestInteractionSignalShiftsRanking(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()
	pubSub := newTestPubSub()
	signals := NewSignalService(pubSub, svc, logger.NewNopLogger())
	require.NoError(t, signals.Consume(ctx))

	svc.Ingest(ctx, testUserID, testItem("evt-1", 60, time.Now()))

	for i := 0; i < 10; i++ {
		require.NoError(t, signals.PublishInteraction(ctx, testUserID, model.InteractionSignal{
			ItemID:  "evt-1",
			Source:  model.SourceDiscussion,
			Topic:   "reports",
			ActorID: "Ada",
			Action:  model.ActionDismiss,
		}))
	}

	assert.Eventually(t, func() bool {
		blended := svc.Stream(ctx, testUserID)
		return len(blended) == 1 && blended[0].Score < 60
	}, 2*time.Second, 20*time.Millisecond, "repeated dismissals should suppress the score")
}
