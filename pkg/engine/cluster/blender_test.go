package cluster

import (
	"math/rand"
	"testing"
	"time"

	"smartfeed-be/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id string, source model.Source, topic, target string, score int, eventAt time.Time, actors ...string) model.StreamItem {
	it := model.StreamItem{
		ID:      id,
		Title:   "item " + id,
		Source:  source,
		Score:   score,
		Topics:  []string{topic},
		EventAt: eventAt,
		Metadata: map[string]interface{}{
			"target": target,
		},
	}
	for _, a := range actors {
		it.Actors = append(it.Actors, model.Actor{Name: a})
	}
	return it
}

func TestBlendMergesSharedTarget(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	items := []model.StreamItem{
		item("a", model.SourceRecognition, "recognition", "user-42", 60, base, "Ada"),
		item("b", model.SourceRecognition, "recognition", "user-42", 55, base.Add(time.Minute), "Grace"),
		item("c", model.SourceRecognition, "recognition", "user-42", 50, base.Add(2*time.Minute), "Linus"),
	}

	out := Blend(items)
	require.Len(t, out, 1)

	blended := out[0]
	assert.Equal(t, 3, blended.BlendedCount)
	// max(60,55,50) + min(2*3, 20) = 66
	assert.Equal(t, 66, blended.Score)
	assert.Equal(t, model.TierElevated, blended.Tier)
	assert.Equal(t, "Ada, Grace +1 others recognition", blended.Title)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, blended.SourceIDs)
}

func TestBlendTwoActorTitle(t *testing.T) {
	base := time.Now()
	out := Blend([]model.StreamItem{
		item("a", model.SourceDiscussion, "comments", "thread-1", 40, base, "Ada"),
		item("b", model.SourceDiscussion, "comments", "thread-1", 35, base, "Grace"),
	})
	require.Len(t, out, 1)
	assert.Equal(t, "Ada and Grace comments", out[0].Title)
}

func TestBlendScoreClampsAt100(t *testing.T) {
	base := time.Now()
	out := Blend([]model.StreamItem{
		item("a", model.SourceSystem, "alerts", "sys", 95, base, "Ops"),
		item("b", model.SourceSystem, "alerts", "sys", 90, base, "Ops"),
		item("c", model.SourceSystem, "alerts", "sys", 85, base, "Ops"),
	})
	require.Len(t, out, 1)
	assert.Equal(t, 100, out[0].Score)
	assert.Equal(t, model.TierCritical, out[0].Tier)
}

func TestBlendSingletonsPassThrough(t *testing.T) {
	base := time.Now()
	items := []model.StreamItem{
		item("a", model.SourceMarket, "signals", "t1", 70, base, "Feed"),
		item("b", model.SourceLearning, "courses", "t2", 40, base, "Catalog"),
	}
	out := Blend(items)
	require.Len(t, out, 2)
	for _, b := range out {
		assert.Equal(t, 1, b.BlendedCount)
	}
	// Singleton titles are untouched.
	assert.Equal(t, "item a", out[0].Title)
}

func TestBlendSortedByScoreDescending(t *testing.T) {
	base := time.Now()
	out := Blend([]model.StreamItem{
		item("low", model.SourceMarket, "signals", "t1", 20, base),
		item("high", model.SourceSystem, "alerts", "t2", 90, base),
		item("mid", model.SourceLearning, "courses", "t3", 50, base),
	})
	require.Len(t, out, 3)
	assert.Equal(t, "high", out[0].ID)
	assert.Equal(t, "mid", out[1].ID)
	assert.Equal(t, "low", out[2].ID)
}

func TestBlendOrderIndependent(t *testing.T) {
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	items := []model.StreamItem{
		item("a", model.SourceRecognition, "recognition", "user-42", 60, base, "Ada"),
		item("b", model.SourceRecognition, "recognition", "user-42", 55, base.Add(time.Minute), "Grace"),
		item("c", model.SourceRecognition, "recognition", "user-42", 50, base.Add(2*time.Minute), "Linus"),
		item("d", model.SourceMarket, "signals", "acme", 45, base, "Feed"),
		item("e", model.SourceDiscussion, "comments", "thread-9", 30, base, "Bob"),
	}

	expected := Blend(items)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		shuffled := append([]model.StreamItem(nil), items...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := Blend(shuffled)
		require.Len(t, got, len(expected))
		for j := range expected {
			assert.Equal(t, expected[j].ID, got[j].ID)
			assert.Equal(t, expected[j].Score, got[j].Score)
			assert.Equal(t, expected[j].Title, got[j].Title)
			assert.ElementsMatch(t, expected[j].SourceIDs, got[j].SourceIDs)
		}
	}
}

func TestBlendDoesNotMutateInputs(t *testing.T) {
	base := time.Now()
	items := []model.StreamItem{
		item("a", model.SourceRecognition, "recognition", "user-42", 60, base, "Ada"),
		item("b", model.SourceRecognition, "recognition", "user-42", 55, base, "Grace"),
	}
	beforeTitle := items[0].Title
	beforeScore := items[0].Score
	beforeActors := len(items[0].Actors)

	_ = Blend(items)

	assert.Equal(t, beforeTitle, items[0].Title)
	assert.Equal(t, beforeScore, items[0].Score)
	assert.Len(t, items[0].Actors, beforeActors)
}

func TestClusterKeyFallbacks(t *testing.T) {
	it := model.StreamItem{ID: "x", Source: model.SourceSystem, Topics: []string{"alerts"}}
	assert.Equal(t, "system|alerts|global", clusterKey(it))

	it.Link = "/deploys/9"
	assert.Equal(t, "system|alerts|/deploys/9", clusterKey(it))

	it.Metadata = map[string]interface{}{"thread": "th-1"}
	assert.Equal(t, "system|alerts|th-1", clusterKey(it))

	it.Metadata["target"] = "tg-1"
	assert.Equal(t, "system|alerts|tg-1", clusterKey(it))
}
