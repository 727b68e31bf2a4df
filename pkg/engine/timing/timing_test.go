package timing

import (
	"context"
	"testing"
	"time"

	"smartfeed-be/internal/model"
	"smartfeed-be/internal/pkg/logger"
	"smartfeed-be/internal/repository/memory"
	"smartfeed-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)

func activeSignals(now time.Time) store.ActivitySignals {
	return store.ActivitySignals{LastClick: now.Add(-10 * time.Second)}
}

func TestClassifyPrecedence(t *testing.T) {
	now := testNow
	burst := make([]time.Time, 150)
	for i := range burst {
		burst[i] = now.Add(-time.Duration(i) * 100 * time.Millisecond)
	}

	tests := []struct {
		name    string
		signals store.ActivitySignals
		want    model.ActivityState
	}{
		{
			name:    "meeting beats typing",
			signals: store.ActivitySignals{WindowTitle: "Weekly Sync - Zoom", Keystrokes: burst},
			want:    model.ActivityMeeting,
		},
		{
			name:    "typing beats scrolling",
			signals: store.ActivitySignals{Keystrokes: burst, LastScroll: now.Add(-time.Second)},
			want:    model.ActivityTyping,
		},
		{
			name:    "idle after five quiet minutes",
			signals: store.ActivitySignals{LastClick: now.Add(-6 * time.Minute)},
			want:    model.ActivityIdle,
		},
		{
			name:    "no signals at all is idle",
			signals: store.ActivitySignals{},
			want:    model.ActivityIdle,
		},
		{
			name:    "recent scroll",
			signals: store.ActivitySignals{LastScroll: now.Add(-time.Second)},
			want:    model.ActivityScrolling,
		},
		{
			name:    "stale scroll with recent click is active",
			signals: store.ActivitySignals{LastScroll: now.Add(-time.Minute), LastClick: now.Add(-5 * time.Second)},
			want:    model.ActivityActive,
		},
		{
			name:    "few keystrokes is not typing",
			signals: store.ActivitySignals{Keystrokes: burst[:50], LastClick: now.Add(-time.Second)},
			want:    model.ActivityActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.signals, now))
		})
	}
}

func TestShouldDeliverNowCriticalAlwaysDelivers(t *testing.T) {
	item := model.StreamItem{Tier: model.TierCritical, Topics: []string{"deploy"}}
	focusUntil := testNow.Add(time.Hour)
	tc := model.TimingContext{
		Activity:         model.ActivityMeeting,
		QuietHoursActive: true,
		FocusUntil:       &focusUntil,
	}

	d := ShouldDeliverNow(item, tc, testNow)
	assert.True(t, d.Deliver)
	assert.Equal(t, "critical, always deliver", d.Reason)
	assert.Equal(t, 0, d.BoostScore)

	tc.PageTopics = []string{"deploy"}
	d = ShouldDeliverNow(item, tc, testNow)
	assert.Equal(t, 10, d.BoostScore)
}

func TestShouldDeliverNowFocusMode(t *testing.T) {
	focusUntil := testNow.Add(25 * time.Minute)
	tc := model.TimingContext{Activity: model.ActivityActive, FocusUntil: &focusUntil}
	item := model.StreamItem{Tier: model.TierElevated, Topics: []string{"x"}}
	tc.PageTopics = []string{"x"} // context match must not override suppression

	d := ShouldDeliverNow(item, tc, testNow)
	assert.False(t, d.Deliver)
	require.NotNil(t, d.QueueUntil)
	assert.Equal(t, focusUntil, *d.QueueUntil)
}

func TestShouldDeliverNowQuietHours(t *testing.T) {
	tc := model.TimingContext{Activity: model.ActivityActive, QuietHoursActive: true}
	d := ShouldDeliverNow(model.StreamItem{Tier: model.TierAmbient}, tc, testNow)
	assert.False(t, d.Deliver)
	assert.Nil(t, d.QueueUntil) // caller batches to the next digest
}

func TestShouldDeliverNowMeeting(t *testing.T) {
	tc := model.TimingContext{Activity: model.ActivityMeeting}
	d := ShouldDeliverNow(model.StreamItem{Tier: model.TierAmbient}, tc, testNow)
	assert.False(t, d.Deliver)
	require.NotNil(t, d.QueueUntil)
	assert.Equal(t, testNow.Add(30*time.Minute), *d.QueueUntil)
}

func TestShouldDeliverNowTypingHoldsAmbientOnly(t *testing.T) {
	tc := model.TimingContext{Activity: model.ActivityTyping}

	d := ShouldDeliverNow(model.StreamItem{Tier: model.TierAmbient}, tc, testNow)
	assert.False(t, d.Deliver)
	require.NotNil(t, d.QueueUntil)
	assert.Equal(t, testNow.Add(5*time.Minute), *d.QueueUntil)

	d = ShouldDeliverNow(model.StreamItem{Tier: model.TierElevated}, tc, testNow)
	assert.True(t, d.Deliver)
}

func TestShouldDeliverNowIdlePenalty(t *testing.T) {
	tc := model.TimingContext{Activity: model.ActivityIdle}
	d := ShouldDeliverNow(model.StreamItem{Tier: model.TierElevated}, tc, testNow)
	assert.True(t, d.Deliver)
	assert.Equal(t, -10, d.BoostScore)
}

func TestShouldDeliverNowContextMatch(t *testing.T) {
	tc := model.TimingContext{Activity: model.ActivityActive, PageTopics: []string{"golang", "deploy"}}
	item := model.StreamItem{Tier: model.TierElevated, Topics: []string{"deploy"}}

	d := ShouldDeliverNow(item, tc, testNow)
	assert.True(t, d.Deliver)
	assert.Equal(t, 15, d.BoostScore)
}

func TestShouldDeliverNowDefault(t *testing.T) {
	tc := model.TimingContext{Activity: model.ActivityActive}
	d := ShouldDeliverNow(model.StreamItem{Tier: model.TierElevated}, tc, testNow)
	assert.True(t, d.Deliver)
	assert.Equal(t, 0, d.BoostScore)
	assert.Equal(t, "default delivery", d.Reason)
}

func TestFocusPersistsAcrossPolicies(t *testing.T) {
	kv := memory.NewKeyValueStore()
	ctx := context.Background()
	until := testNow.Add(45 * time.Minute)

	p := NewPolicy(kv, logger.NewNopLogger())
	require.NoError(t, p.SetFocus(ctx, "user-1", until))

	// A fresh policy (simulating a reload) still sees the expiry.
	p2 := NewPolicy(kv, logger.NewNopLogger())
	got := p2.Focus(ctx, "user-1")
	require.NotNil(t, got)
	assert.True(t, got.Equal(until))

	require.NoError(t, p2.ClearFocus(ctx, "user-1"))
	assert.Nil(t, p2.Focus(ctx, "user-1"))
}

func TestContextAssembly(t *testing.T) {
	kv := memory.NewKeyValueStore()
	p := NewPolicy(kv, logger.NewNopLogger())
	signals := activeSignals(testNow)
	signals.PageTopics = []string{"market"}

	tc := p.Context(context.Background(), "user-1", signals, false, testNow)
	assert.Equal(t, model.ActivityActive, tc.Activity)
	assert.Equal(t, []string{"market"}, tc.PageTopics)
	assert.False(t, tc.QuietHoursActive)
	assert.Nil(t, tc.FocusUntil)
}
