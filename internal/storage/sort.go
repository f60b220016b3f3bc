package storage

import (
	"sort"

	"github.com/mcoot/battleship-go/internal/model"
)

// SortNewestFirst orders games by creation time, newest first, with id as tiebreak
func SortNewestFirst(games []*model.GameRecord) {
	sort.Slice(games, func(i, j int) bool {
		if !games[i].CreatedAt.Equal(games[j].CreatedAt) {
			return games[i].CreatedAt.After(games[j].CreatedAt)
		}
		return games[i].ID < games[j].ID
	})
}
