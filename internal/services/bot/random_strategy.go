package bot

import (
	"github.com/mcoot/battleship-go/internal/dependencies/random"
	"github.com/mcoot/battleship-go/internal/model"
)

// RandomStrategy fires at random cells it has not tried
type RandomStrategy struct {
	random random.Random
}

// NewRandomStrategy creates a new RandomStrategy
func NewRandomStrategy(rnd random.Random) *RandomStrategy {
	return &RandomStrategy{random: rnd}
}

// ChooseTarget picks uniformly among the untried cells
func (s *RandomStrategy) ChooseTarget(shots *model.PlayerBoard) (model.Coordinate, bool) {
	open := unfired(shots, nil)
	if len(open) == 0 {
		return model.Coordinate{}, false
	}
	return open[s.random.Intn(len(open))], true
}
