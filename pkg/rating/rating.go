// Package rating computes player ratings and division placement from fixed
// weight tables. Pure functions; the persistence core never calls in here.
package rating

import (
	"sort"

	"github.com/wurt83ow/rosterkeeper/pkg/models"
)

type weightTable struct {
	Scoring float64
	Defense float64
	Passing float64
	Stamina float64
}

// Weights per position. Unknown positions fall back to the balanced table.
var weights = map[string]weightTable{
	"guard":    {Scoring: 0.35, Defense: 0.15, Passing: 0.35, Stamina: 0.15},
	"forward":  {Scoring: 0.40, Defense: 0.25, Passing: 0.15, Stamina: 0.20},
	"center":   {Scoring: 0.25, Defense: 0.45, Passing: 0.10, Stamina: 0.20},
	"balanced": {Scoring: 0.25, Defense: 0.25, Passing: 0.25, Stamina: 0.25},
}

// Rate scores a player 0..100 using the weight table for their position.
func Rate(p models.Player) float64 {
	w, ok := weights[p.Position]
	if !ok {
		w = weights["balanced"]
	}
	return w.Scoring*float64(p.Scoring) +
		w.Defense*float64(p.Defense) +
		w.Passing*float64(p.Passing) +
		w.Stamina*float64(p.Stamina)
}

// Division buckets a rating into the league's three divisions.
func Division(r float64) string {
	switch {
	case r >= 80:
		return "A"
	case r >= 60:
		return "B"
	default:
		return "C"
	}
}

// SortByRating orders players best first, name as the stable tie-break.
func SortByRating(players []models.Player) {
	sort.SliceStable(players, func(i, j int) bool {
		ri, rj := Rate(players[i]), Rate(players[j])
		if ri != rj {
			return ri > rj
		}
		return players[i].Name < players[j].Name
	})
}
