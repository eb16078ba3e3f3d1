package storage

import (
	"cmp"
	"slices"

	"github.com/mcoot/gridarena/internal/model"
)

// SortLeaderboard orders players by lifetime score descending, then id ascending
func SortLeaderboard(players []*model.Player) {
	slices.SortFunc(players, func(a, b *model.Player) int {
		if c := cmp.Compare(b.LifetimeScore, a.LifetimeScore); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// SortAchievements orders catalog entries by id
func SortAchievements(achievements []model.Achievement) {
	slices.SortFunc(achievements, func(a, b model.Achievement) int {
		return cmp.Compare(a.ID, b.ID)
	})
}
