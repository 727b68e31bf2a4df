package digest

import (
	"testing"
	"time"

	"smartfeed-be/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unread(id, topic string, tier model.Tier, score int, eventAt time.Time) model.StreamItem {
	return model.StreamItem{
		ID:      id,
		Topics:  []string{topic},
		Tier:    tier,
		Score:   score,
		EventAt: eventAt,
	}
}

func TestGenerateCategorization(t *testing.T) {
	base := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	items := []model.StreamItem{
		unread("a", "kudos", model.TierElevated, 50, base),
		unread("b", "market", model.TierElevated, 45, base),
		unread("c", "course", model.TierAmbient, 20, base),
		unread("d", "urgent", model.TierCritical, 90, base),
		unread("e", "misc-chatter", model.TierAmbient, 10, base), // excluded
	}

	d := Generate(items, 9)
	assert.Equal(t, 5, d.TotalPending)

	names := make([]string, 0, len(d.Categories))
	for _, c := range d.Categories {
		names = append(names, c.Name)
	}
	// Category priority order is fixed.
	assert.Equal(t, []string{"critical", "recognition", "market", "learning"}, names)
}

func TestGenerateUnmatchedCriticalFallsBack(t *testing.T) {
	base := time.Now()
	items := []model.StreamItem{
		unread("x", "something-odd", model.TierCritical, 85, base),
	}
	d := Generate(items, 9)
	require.Len(t, d.Categories, 1)
	assert.Equal(t, "critical", d.Categories[0].Name)
	assert.Equal(t, "x", d.Categories[0].Items[0].ID)
}

func TestGenerateSkipsRead(t *testing.T) {
	base := time.Now()
	read := unread("r", "kudos", model.TierElevated, 50, base)
	read.IsRead = true

	d := Generate([]model.StreamItem{read}, 9)
	assert.Equal(t, 0, d.TotalPending)
	assert.Empty(t, d.Categories)
	assert.Nil(t, d.TopPriority)
}

func TestGenerateTopPriorityTieBreak(t *testing.T) {
	early := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	items := []model.StreamItem{
		unread("later", "market", model.TierElevated, 70, late),
		unread("earlier", "market", model.TierElevated, 70, early),
	}

	d := Generate(items, 9)
	require.NotNil(t, d.TopPriority)
	// Equal scores: the earlier event wins.
	assert.Equal(t, "earlier", d.TopPriority.ID)
}

func TestGreetingBuckets(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{5, "Good Morning"},
		{11, "Good Morning"},
		{12, "Good Afternoon"},
		{16, "Good Afternoon"},
		{17, "Good Evening"},
		{20, "Good Evening"},
		{21, "Night Owl Mode"},
		{2, "Night Owl Mode"},
		{4, "Night Owl Mode"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, greeting(tt.hour), "hour %d", tt.hour)
	}
}

func defaultWindows() []model.DeliveryWindow {
	return []model.DeliveryWindow{
		{Name: "morning", StartHour: 9, Enabled: true},
		{Name: "afternoon", StartHour: 13, Enabled: true},
		{Name: "evening", StartHour: 17, Enabled: true},
	}
}

func TestWindowsMidday(t *testing.T) {
	now := time.Date(2026, 3, 14, 14, 30, 0, 0, time.UTC)
	status, ok := Windows(defaultWindows(), now)
	require.True(t, ok)
	assert.Equal(t, "afternoon", status.Previous.Name)
	assert.Equal(t, "evening", status.Next.Name)
	assert.Equal(t, (2*time.Hour + 30*time.Minute).Milliseconds(), status.UntilNextMs)
}

func TestWindowsWrapToTomorrow(t *testing.T) {
	now := time.Date(2026, 3, 14, 22, 0, 0, 0, time.UTC)
	status, ok := Windows(defaultWindows(), now)
	require.True(t, ok)
	assert.Equal(t, "evening", status.Previous.Name)
	assert.Equal(t, "morning", status.Next.Name)
	assert.Equal(t, (11 * time.Hour).Milliseconds(), status.UntilNextMs)
}

func TestWindowsBeforeFirstWrapsToYesterday(t *testing.T) {
	now := time.Date(2026, 3, 14, 6, 0, 0, 0, time.UTC)
	status, ok := Windows(defaultWindows(), now)
	require.True(t, ok)
	// The most recently passed window was yesterday evening.
	assert.Equal(t, "evening", status.Previous.Name)
	assert.Equal(t, "morning", status.Next.Name)
	assert.Equal(t, (3 * time.Hour).Milliseconds(), status.UntilNextMs)
}

func TestWindowsRespectsEnabledFlag(t *testing.T) {
	windows := defaultWindows()
	windows[2].Enabled = false // no evening

	now := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	status, ok := Windows(windows, now)
	require.True(t, ok)
	assert.Equal(t, "afternoon", status.Previous.Name)
	assert.Equal(t, "morning", status.Next.Name)

	for i := range windows {
		windows[i].Enabled = false
	}
	_, ok = Windows(windows, now)
	assert.False(t, ok)
}

func TestShouldBatchNow(t *testing.T) {
	assert.False(t, ShouldBatchNow(model.TierCritical, model.BatchScheduled))
	assert.False(t, ShouldBatchNow(model.TierCritical, model.BatchRealtime))
	assert.True(t, ShouldBatchNow(model.TierElevated, model.BatchScheduled))
	assert.True(t, ShouldBatchNow(model.TierAmbient, model.BatchScheduled))
	assert.False(t, ShouldBatchNow(model.TierElevated, model.BatchRealtime))
	assert.False(t, ShouldBatchNow(model.TierAmbient, model.BatchRealtime))
}
