package bot

import (
	"github.com/mcoot/battleship-go/internal/dependencies/random"
	"github.com/mcoot/battleship-go/internal/model"
)

var directions = []model.Coordinate{{Row: -1}, {Row: 1}, {Col: -1}, {Col: 1}}

// HuntStrategy searches on a checkerboard until it hits something, then
// works outwards from its hits. Every ship is at least two cells long, so
// the checkerboard finds each of them.
type HuntStrategy struct {
	random random.Random
}

// NewHuntStrategy creates a new HuntStrategy
func NewHuntStrategy(rnd random.Random) *HuntStrategy {
	return &HuntStrategy{random: rnd}
}

func (s *HuntStrategy) ChooseTarget(shots *model.PlayerBoard) (model.Coordinate, bool) {
	if targets := s.followUps(shots); len(targets) > 0 {
		return targets[s.random.Intn(len(targets))], true
	}

	open := unfired(shots, func(c model.Coordinate) bool { return (c.Row+c.Col)%2 == 0 })
	if len(open) == 0 {
		open = unfired(shots, nil)
	}
	if len(open) == 0 {
		return model.Coordinate{}, false
	}
	return open[s.random.Intn(len(open))], true
}

// followUps returns the untried neighbours of existing hits. Cells that
// continue a line of two or more hits are preferred over plain neighbours.
func (s *HuntStrategy) followUps(shots *model.PlayerBoard) []model.Coordinate {
	hit := make(map[model.Coordinate]bool, len(shots.Hits))
	for _, h := range shots.Hits {
		hit[h] = true
	}

	var inLine, adjacent []model.Coordinate
	seen := make(map[model.Coordinate]bool)
	for _, h := range shots.Hits {
		for _, d := range directions {
			next := model.Coordinate{Row: h.Row + d.Row, Col: h.Col + d.Col}
			if !next.InBounds() || shots.HasFired(next) || seen[next] {
				continue
			}
			seen[next] = true
			behind := model.Coordinate{Row: h.Row - d.Row, Col: h.Col - d.Col}
			if hit[behind] {
				inLine = append(inLine, next)
			} else {
				adjacent = append(adjacent, next)
			}
		}
	}
	if len(inLine) > 0 {
		return inLine
	}
	return adjacent
}
