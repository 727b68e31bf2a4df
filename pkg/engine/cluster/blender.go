// Package cluster merges structurally related stream items into single
// blended notifications for presentation.
package cluster

import (
	"fmt"
	"sort"
	"strings"

	"smartfeed-be/internal/model"
	"smartfeed-be/pkg/engine/scoring"
)

const (
	// Each extra constituent adds 2 points of urgency, capped at +20.
	countBoostPerItem = 2
	countBoostCap     = 20

	globalBucket = "global"
)

// Blend reduces the working set to a presentation list: clusters with two
// or more members merge into one blended item, singletons pass through with
// BlendedCount 1. Pure: input items are never mutated, and grouping is
// order-independent, so shuffled input yields the same groups. Output is
// sorted by descending score, ties broken by earliest event time.
func Blend(items []model.StreamItem) []model.BlendedItem {
	groups := make(map[string][]model.StreamItem)
	order := make([]string, 0, len(items))
	for _, item := range items {
		key := clusterKey(item)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], item.Clone())
	}

	out := make([]model.BlendedItem, 0, len(order))
	for _, key := range order {
		members := groups[key]
		if len(members) == 1 {
			out = append(out, model.BlendedItem{
				StreamItem:   members[0],
				BlendedCount: 1,
				SourceIDs:    []string{members[0].ID},
			})
			continue
		}
		out = append(out, merge(members))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].EventAt.Before(out[j].EventAt)
	})
	return out
}

// clusterKey groups items by (source, primary topic tag, target). The target
// comes from the metadata target/thread reference, then the deep link, then
// a global fallback bucket.
func clusterKey(item model.StreamItem) string {
	target := globalBucket
	if v, ok := item.Metadata["target"].(string); ok && v != "" {
		target = v
	} else if v, ok := item.Metadata["thread"].(string); ok && v != "" {
		target = v
	} else if item.Link != "" {
		target = item.Link
	}
	return fmt.Sprintf("%s|%s|%s", item.Source, item.PrimaryTopic(), target)
}

func merge(members []model.StreamItem) model.BlendedItem {
	// Fix member order up front so actor listing and the primary pick do not
	// depend on input order.
	sort.SliceStable(members, func(i, j int) bool {
		if members[i].Score != members[j].Score {
			return members[i].Score > members[j].Score
		}
		if !members[i].EventAt.Equal(members[j].EventAt) {
			return members[i].EventAt.Before(members[j].EventAt)
		}
		return members[i].ID < members[j].ID
	})
	primary := members[0]

	maxScore := 0
	ids := make([]string, 0, len(members))
	var actors []model.Actor
	seen := make(map[string]bool)
	allRead := true
	for _, m := range members {
		if m.Score > maxScore {
			maxScore = m.Score
		}
		ids = append(ids, m.ID)
		for _, a := range m.Actors {
			if !seen[a.Name] {
				seen[a.Name] = true
				actors = append(actors, a)
			}
		}
		if !m.IsRead {
			allRead = false
		}
	}
	sort.Strings(ids)

	boost := countBoostPerItem * len(members)
	if boost > countBoostCap {
		boost = countBoostCap
	}
	score := scoring.Clamp(maxScore + boost)

	blended := primary.Clone()
	blended.ID = fmt.Sprintf("blend:%s", strings.Join(ids, "+"))
	blended.Score = score
	blended.Tier = scoring.TierFor(score)
	blended.Title = blendedTitle(actors, primary.PrimaryTopic())
	blended.Actors = actors
	blended.IsRead = allRead

	return model.BlendedItem{
		StreamItem:   blended,
		BlendedCount: len(members),
		SourceIDs:    ids,
	}
}

// blendedTitle renders the contributing actors plus the shared action phrase
// (the primary item's leading topic tag): one name as-is, two joined with
// "and", more as "first two +N others".
func blendedTitle(actors []model.Actor, actionPhrase string) string {
	var who string
	switch len(actors) {
	case 0:
		who = "Several updates"
	case 1:
		who = actors[0].Name
	case 2:
		who = fmt.Sprintf("%s and %s", actors[0].Name, actors[1].Name)
	default:
		who = fmt.Sprintf("%s, %s +%d others", actors[0].Name, actors[1].Name, len(actors)-2)
	}
	if actionPhrase == "" {
		return who
	}
	return fmt.Sprintf("%s %s", who, actionPhrase)
}
