package bot

import (
	"github.com/mcoot/battleship-go/internal/dependencies/random"
	"github.com/mcoot/battleship-go/internal/model"
)

// fleetOrder places the longest ships first so the board never runs out of room
var fleetOrder = []string{
	model.ShipCarrier,
	model.ShipBattleship,
	model.ShipCruiser,
	model.ShipSubmarine,
	model.ShipDestroyer,
}

// RandomLayout lays out the standard fleet at random. Each ship is chosen
// uniformly from the placements still open, so the result is always valid.
func RandomLayout(rnd random.Random) []model.Ship {
	occupied := make(map[model.Coordinate]bool, model.FleetCells)
	ships := make([]model.Ship, 0, len(fleetOrder))

	for _, id := range fleetOrder {
		options := placements(model.Fleet[id], occupied)
		cells := options[rnd.Intn(len(options))]
		for _, c := range cells {
			occupied[c] = true
		}
		ships = append(ships, model.Ship{ID: id, Cells: cells})
	}
	return ships
}

// placements lists every straight run of length cells that avoids occupied,
// horizontal runs first
func placements(length int, occupied map[model.Coordinate]bool) [][]model.Coordinate {
	var out [][]model.Coordinate
	for _, vertical := range []bool{false, true} {
		for row := 0; row < model.BoardSize; row++ {
			for col := 0; col < model.BoardSize; col++ {
				if cells, ok := run(row, col, length, vertical, occupied); ok {
					out = append(out, cells)
				}
			}
		}
	}
	return out
}

func run(row, col, length int, vertical bool, occupied map[model.Coordinate]bool) ([]model.Coordinate, bool) {
	cells := make([]model.Coordinate, length)
	for i := range cells {
		c := model.Coordinate{Row: row, Col: col + i}
		if vertical {
			c = model.Coordinate{Row: row + i, Col: col}
		}
		if !c.InBounds() || occupied[c] {
			return nil, false
		}
		cells[i] = c
	}
	return cells, true
}
