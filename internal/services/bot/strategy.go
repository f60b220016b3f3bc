// Package bot holds computer play: choosing where to fire and laying out
// a fleet at random.
package bot

import "github.com/mcoot/battleship-go/internal/model"

// Strategy defines how a bot chooses where to fire
type Strategy interface {
	// ChooseTarget selects a cell the shooter has not fired at yet.
	// ok is false once every cell has been targeted.
	ChooseTarget(shots *model.PlayerBoard) (target model.Coordinate, ok bool)
}

// unfired returns every cell not yet targeted that satisfies keep, in row order
func unfired(shots *model.PlayerBoard, keep func(model.Coordinate) bool) []model.Coordinate {
	var out []model.Coordinate
	for row := 0; row < model.BoardSize; row++ {
		for col := 0; col < model.BoardSize; col++ {
			c := model.Coordinate{Row: row, Col: col}
			if shots.HasFired(c) || (keep != nil && !keep(c)) {
				continue
			}
			out = append(out, c)
		}
	}
	return out
}
