package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wurt83ow/rosterkeeper/pkg/models"
)

func TestRateUsesPositionWeights(t *testing.T) {
	center := models.Player{Position: "center", Scoring: 60, Defense: 90, Passing: 40, Stamina: 70}
	// 0.25*60 + 0.45*90 + 0.10*40 + 0.20*70 = 73.5
	assert.InDelta(t, 73.5, Rate(center), 0.001)

	unknown := models.Player{Position: "mascot", Scoring: 80, Defense: 80, Passing: 80, Stamina: 80}
	assert.InDelta(t, 80.0, Rate(unknown), 0.001, "unknown position falls back to the balanced table")
}

func TestDivisionBuckets(t *testing.T) {
	assert.Equal(t, "A", Division(92))
	assert.Equal(t, "A", Division(80))
	assert.Equal(t, "B", Division(79.9))
	assert.Equal(t, "B", Division(60))
	assert.Equal(t, "C", Division(59.9))
	assert.Equal(t, "C", Division(0))
}

func TestSortByRatingBestFirst(t *testing.T) {
	players := []models.Player{
		{Name: "Bench", Position: "balanced", Scoring: 10, Defense: 10, Passing: 10, Stamina: 10},
		{Name: "Star", Position: "balanced", Scoring: 95, Defense: 95, Passing: 95, Stamina: 95},
		{Name: "Also Star", Position: "balanced", Scoring: 95, Defense: 95, Passing: 95, Stamina: 95},
	}
	SortByRating(players)

	assert.Equal(t, "Also Star", players[0].Name, "name breaks rating ties")
	assert.Equal(t, "Star", players[1].Name)
	assert.Equal(t, "Bench", players[2].Name)
}
