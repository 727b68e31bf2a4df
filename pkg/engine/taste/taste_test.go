package taste

import (
	"context"
	"testing"
	"time"

	"smartfeed-be/internal/model"
	"smartfeed-be/internal/pkg/logger"
	"smartfeed-be/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T) *Model {
	t.Helper()
	return Load(context.Background(), "user-1", memory.NewKeyValueStore(), logger.NewNopLogger())
}

func TestRecordInteractionDismissScenario(t *testing.T) {
	m := newTestModel(t)
	ctx := context.Background()

	// 5 dismissals of source "market": affinity drops to -10 (5 x -2),
	// giving modifier 1 + (-10*0.5)/200 = 0.975.
	for i := 0; i < 5; i++ {
		err := m.RecordInteraction(ctx, model.InteractionSignal{
			ItemID: "item-1",
			Source: model.SourceMarket,
			Action: model.ActionDismiss,
		})
		require.NoError(t, err)
	}

	prefs := m.Preference()
	assert.Equal(t, float64(-10), prefs.SourceAffinity[model.SourceMarket])
	assert.InDelta(t, 0.975, m.Modifier(model.SourceMarket, "", ""), 1e-9)
}

func TestRecordInteractionAllDimensions(t *testing.T) {
	m := newTestModel(t)
	ctx := context.Background()

	err := m.RecordInteraction(ctx, model.InteractionSignal{
		ItemID:  "item-1",
		Source:  model.SourceRecognition,
		Topic:   "kudos",
		ActorID: "actor-9",
		Action:  model.ActionClickThrough,
	})
	require.NoError(t, err)

	prefs := m.Preference()
	assert.Equal(t, float64(5), prefs.SourceAffinity[model.SourceRecognition])
	assert.Equal(t, float64(5), prefs.TopicAffinity["kudos"])
	assert.Equal(t, float64(5), prefs.ActorAffinity["actor-9"])
}

func TestAffinityClamping(t *testing.T) {
	m := newTestModel(t)
	ctx := context.Background()

	// 30 saves at +3 would be +90; 10 more click-throughs push past 100.
	for i := 0; i < 50; i++ {
		require.NoError(t, m.RecordInteraction(ctx, model.InteractionSignal{
			Source: model.SourceLearning,
			Action: model.ActionClickThrough,
		}))
	}
	assert.Equal(t, float64(100), m.Preference().SourceAffinity[model.SourceLearning])

	for i := 0; i < 150; i++ {
		require.NoError(t, m.RecordInteraction(ctx, model.InteractionSignal{
			Source: model.SourceSystem,
			Action: model.ActionDismiss,
		}))
	}
	assert.Equal(t, float64(-100), m.Preference().SourceAffinity[model.SourceSystem])
}

func TestUnknownActionRejected(t *testing.T) {
	m := newTestModel(t)
	err := m.RecordInteraction(context.Background(), model.InteractionSignal{
		Source: model.SourceSystem,
		Action: model.InteractionAction("teleport"),
	})
	assert.Error(t, err)
}

func TestApplyPreferenceIdempotent(t *testing.T) {
	m := newTestModel(t)
	ctx := context.Background()

	require.NoError(t, m.RecordInteraction(ctx, model.InteractionSignal{
		Source: model.SourceDiscussion,
		Topic:  "threads",
		Action: model.ActionSave,
	}))

	first := m.ApplyPreference(60, model.SourceDiscussion, "threads", "")
	second := m.ApplyPreference(60, model.SourceDiscussion, "threads", "")
	assert.Equal(t, first, second)
}

func TestModifierRange(t *testing.T) {
	m := newTestModel(t)
	// Neutral state: modifier is exactly 1.
	assert.InDelta(t, 1.0, m.Modifier(model.SourceMarket, "", ""), 1e-9)

	// Even maxed-out affinities stay inside 0.5-1.5.
	m.prefs.SourceAffinity[model.SourceMarket] = 100
	m.prefs.TopicAffinity["x"] = 100
	m.prefs.ActorAffinity["y"] = 100
	assert.InDelta(t, 1.5, m.Modifier(model.SourceMarket, "x", "y"), 1e-9)

	m.prefs.SourceAffinity[model.SourceMarket] = -100
	m.prefs.TopicAffinity["x"] = -100
	m.prefs.ActorAffinity["y"] = -100
	assert.InDelta(t, 0.5, m.Modifier(model.SourceMarket, "x", "y"), 1e-9)
}

func TestQuietHoursOvernight(t *testing.T) {
	m := newTestModel(t)
	require.NoError(t, m.SetQuietHours(context.Background(), "22:00", "08:00"))

	at := func(hour int) time.Time {
		return time.Date(2026, 3, 14, hour, 0, 0, 0, time.UTC)
	}

	assert.True(t, m.QuietHoursActive(at(23)))
	assert.True(t, m.QuietHoursActive(at(7)))
	assert.False(t, m.QuietHoursActive(at(12)))
}

func TestQuietHoursSameDay(t *testing.T) {
	m := newTestModel(t)
	require.NoError(t, m.SetQuietHours(context.Background(), "09:00", "17:00"))

	at := func(hour int) time.Time {
		return time.Date(2026, 3, 14, hour, 0, 0, 0, time.UTC)
	}

	assert.True(t, m.QuietHoursActive(at(12)))
	assert.False(t, m.QuietHoursActive(at(8)))
	assert.False(t, m.QuietHoursActive(at(18)))
}

func TestQuietHoursClear(t *testing.T) {
	m := newTestModel(t)
	ctx := context.Background()
	require.NoError(t, m.SetQuietHours(ctx, "22:00", "08:00"))
	require.NoError(t, m.ClearQuietHours(ctx))
	assert.False(t, m.QuietHoursActive(time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)))
	assert.Nil(t, m.QuietHours())
}

func TestSetQuietHoursRejectsBadFormat(t *testing.T) {
	m := newTestModel(t)
	assert.Error(t, m.SetQuietHours(context.Background(), "25:99", "08:00"))
	assert.Error(t, m.SetQuietHours(context.Background(), "22:00", "bedtime"))
}

func TestPersistenceRoundTrip(t *testing.T) {
	kv := memory.NewKeyValueStore()
	ctx := context.Background()

	m := Load(ctx, "user-2", kv, logger.NewNopLogger())
	require.NoError(t, m.RecordInteraction(ctx, model.InteractionSignal{
		Source: model.SourceRecognition,
		Action: model.ActionSave,
	}))
	require.NoError(t, m.SetQuietHours(ctx, "21:00", "07:30"))

	// A fresh session load sees the persisted state.
	reloaded := Load(ctx, "user-2", kv, logger.NewNopLogger())
	assert.Equal(t, float64(3), reloaded.Preference().SourceAffinity[model.SourceRecognition])
	require.NotNil(t, reloaded.QuietHours())
	assert.Equal(t, "21:00", reloaded.QuietHours().Start)
}

func TestLoadCorruptBlobFallsBack(t *testing.T) {
	kv := memory.NewKeyValueStore()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, "taste:user-3", []byte("{not json")))

	m := Load(ctx, "user-3", kv, logger.NewNopLogger())
	assert.InDelta(t, 1.0, m.Modifier(model.SourceSystem, "", ""), 1e-9)
	assert.Equal(t, model.BatchRealtime, m.Preference().BatchMode)
}
