// internal/classify/classifier.go

// Package classify routes candidate items into the fixed category set and
// selects one representative per category for the weekly batch.
package classify

import (
	"sort"
	"strings"

	"github.com/hhamzie/toolplug/internal/models"
)

// Score computes the heuristic affinity of item for category: topic-slug
// overlap with the category's hint list counts double, keyword occurrence in
// name/tagline/description counts single. Matching is case-insensitive
// substring.
func Score(item models.CandidateItem, category models.Category) int {
	s := 0
	for _, slug := range item.Topics {
		for _, hint := range topicHints[category] {
			if strings.Contains(slug, hint) {
				s += 2
			}
		}
	}

	blob := strings.ToLower(item.Name + " " + item.Tagline + " " + item.Description)
	for _, kw := range bodyKeywords[category] {
		if strings.Contains(blob, kw) {
			s++
		}
	}
	return s
}

// bestCategory assigns an item to its single highest-scoring category.
// Ties go to the first-declared category; items scoring zero everywhere fall
// into the wildcard catch-all.
func bestCategory(item models.CandidateItem) models.Category {
	best := models.CategoryWildcard
	bestScore := 0
	for _, c := range models.Categories {
		if s := Score(item, c); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best
}

// rank orders items by descending vote score, ties broken by more recent
// createdAt.
func rank(items []models.CandidateItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].VoteScore != items[j].VoteScore {
			return items[i].VoteScore > items[j].VoteScore
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

// Classify maps each category to its chosen representative. Every category
// ends up with a pick as long as unchosen items remain: after the per-category
// top picks, empty categories are backfilled from the best remaining items,
// never reusing an item already selected elsewhere. An empty candidate set
// yields an empty map; the caller decides whether to fall back to cache.
func Classify(items []models.CandidateItem) map[models.Category]models.CandidateItem {
	picks := make(map[models.Category]models.CandidateItem)
	if len(items) == 0 {
		return picks
	}

	grouped := make(map[models.Category][]models.CandidateItem)
	for _, item := range items {
		c := bestCategory(item)
		grouped[c] = append(grouped[c], item)
	}

	chosen := make(map[string]bool)
	for _, c := range models.Categories {
		bucket := grouped[c]
		if len(bucket) == 0 {
			continue
		}
		rank(bucket)
		picks[c] = bucket[0]
		chosen[bucket[0].ID] = true
	}

	// Backfill categories left empty from the highest-ranked remaining items.
	var remaining []models.CandidateItem
	for _, item := range items {
		if !chosen[item.ID] {
			remaining = append(remaining, item)
		}
	}
	rank(remaining)

	for _, c := range models.Categories {
		if _, ok := picks[c]; ok {
			continue
		}
		if len(remaining) == 0 {
			break
		}
		picks[c] = remaining[0]
		chosen[remaining[0].ID] = true
		remaining = remaining[1:]
	}

	return picks
}
