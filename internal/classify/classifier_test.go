// internal/classify/classifier_test.go
package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhamzie/toolplug/internal/models"
)

var base = time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

func candidate(id string, votes int, ageHours int, topics ...string) models.CandidateItem {
	return models.CandidateItem{
		ID:        id,
		Name:      id,
		VoteScore: votes,
		Topics:    topics,
		CreatedAt: base.Add(-time.Duration(ageHours) * time.Hour),
	}
}

func TestScoreWeighting(t *testing.T) {
	item := models.CandidateItem{
		Name:    "CodePilot",
		Tagline: "An API client for developers",
		Topics:  []string{"developer-tools"},
	}

	// one topic hit (2) plus "api", "developer", "dev" and "code" in the blob
	score := Score(item, models.CategoryDev)
	assert.GreaterOrEqual(t, score, 3)
	assert.Greater(t, score, Score(item, models.CategoryDesign))
}

func TestScoreTopicSubstringMatch(t *testing.T) {
	item := models.CandidateItem{Name: "x", Topics: []string{"ui-design-systems"}}
	assert.GreaterOrEqual(t, Score(item, models.CategoryDesign), 2)
}

func TestBestCategoryZeroScoreFallsToWildcard(t *testing.T) {
	item := models.CandidateItem{
		Name:        "Mystery Box",
		Tagline:     "???",
		Description: "Completely unclassifiable thing",
	}
	for _, c := range models.Categories {
		if c != models.CategoryWildcard {
			assert.Zero(t, Score(item, c))
		}
	}
	assert.Equal(t, models.CategoryWildcard, bestCategory(item))
}

func TestBestCategoryTiePrefersDeclarationOrder(t *testing.T) {
	// "project" keyword hits product; "deploy" hits ops; equal single scores.
	item := models.CandidateItem{
		Name:    "x",
		Tagline: "project deploy helper",
	}
	require.Equal(t, Score(item, models.CategoryProduct), Score(item, models.CategoryOps))
	assert.Equal(t, models.CategoryProduct, bestCategory(item))
}

func TestClassifyPicksTopVotedPerCategory(t *testing.T) {
	picks := Classify([]models.CandidateItem{
		candidate("dev-low", 10, 1, "developer-tools"),
		candidate("dev-high", 90, 5, "developer-tools"),
		candidate("design-a", 40, 1, "design-tools"),
	})

	assert.Equal(t, "dev-high", picks[models.CategoryDev].ID)
	assert.Equal(t, "design-a", picks[models.CategoryDesign].ID)
}

func TestClassifyVoteTieBreaksOnRecency(t *testing.T) {
	picks := Classify([]models.CandidateItem{
		candidate("older", 50, 48, "developer-tools"),
		candidate("newer", 50, 2, "developer-tools"),
	})
	assert.Equal(t, "newer", picks[models.CategoryDev].ID)
}

func TestClassifyBackfillsEmptyCategoriesWithoutReuse(t *testing.T) {
	items := []models.CandidateItem{
		candidate("dev-1", 100, 1, "developer-tools"),
		candidate("dev-2", 80, 1, "developer-tools"),
		candidate("dev-3", 60, 1, "developer-tools"),
		candidate("dev-4", 40, 1, "developer-tools"),
		candidate("dev-5", 20, 1, "developer-tools"),
		candidate("dev-6", 10, 1, "developer-tools"),
		candidate("dev-7", 5, 1, "developer-tools"),
	}
	picks := Classify(items)

	// all six categories covered from seven items
	require.Len(t, picks, len(models.Categories))

	seen := make(map[string]bool)
	for _, pick := range picks {
		assert.False(t, seen[pick.ID], "item %s assigned twice", pick.ID)
		seen[pick.ID] = true
	}
	assert.Equal(t, "dev-1", picks[models.CategoryDev].ID)
}

func TestClassifyFewerItemsThanCategories(t *testing.T) {
	picks := Classify([]models.CandidateItem{
		candidate("only", 10, 1, "developer-tools"),
	})
	require.Len(t, picks, 1)
	assert.Equal(t, "only", picks[models.CategoryDev].ID)
}

func TestClassifyEmptyInput(t *testing.T) {
	picks := Classify(nil)
	assert.Empty(t, picks)
}
