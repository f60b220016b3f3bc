// Package board evaluates shots and ship layouts. Everything here is pure:
// no storage, no transport, no clock.
package board

import (
	"fmt"
	"sort"

	"github.com/mcoot/battleship-go/internal/model"
)

// Verdict is the outcome of a single shot against a layout
type Verdict struct {
	Result model.ShotResult
	ShipID string // set on a hit
}

// CheckForHit looks up target in the opponent's layout
func CheckForHit(target model.Coordinate, layout []model.Ship) Verdict {
	for _, ship := range layout {
		for _, cell := range ship.Cells {
			if cell == target {
				return Verdict{Result: model.ShotHit, ShipID: ship.ID}
			}
		}
	}
	return Verdict{Result: model.ShotMiss}
}

// ValidateTarget rejects shots off the board or at a cell the shooter already fired at
func ValidateTarget(target model.Coordinate, shooter *model.PlayerBoard) error {
	if !target.InBounds() {
		return fmt.Errorf("%w: %d,%d is off the board", model.ErrInvalidCoordinate, target.Row, target.Col)
	}
	if shooter.HasFired(target) {
		return fmt.Errorf("%w: %s already fired at", model.ErrInvalidCoordinate, target)
	}
	return nil
}

// HasWon reports whether the shooter has hit every ship cell
func HasWon(shooter *model.PlayerBoard) bool {
	return len(shooter.Hits) >= model.FleetCells
}

// ValidateFleet checks a layout is exactly the standard fleet, with every ship
// straight, contiguous, on the board and not overlapping another
func ValidateFleet(ships []model.Ship) error {
	if len(ships) != len(model.Fleet) {
		return fmt.Errorf("%w: expected %d ships, got %d", model.ErrInvalidFleet, len(model.Fleet), len(ships))
	}

	seenShips := make(map[string]bool, len(ships))
	occupied := make(map[model.Coordinate]string, model.FleetCells)

	for _, ship := range ships {
		length, ok := model.Fleet[ship.ID]
		if !ok {
			return fmt.Errorf("%w: unknown ship %q", model.ErrInvalidFleet, ship.ID)
		}
		if seenShips[ship.ID] {
			return fmt.Errorf("%w: duplicate ship %q", model.ErrInvalidFleet, ship.ID)
		}
		seenShips[ship.ID] = true

		if len(ship.Cells) != length {
			return fmt.Errorf("%w: %s must be %d cells, got %d", model.ErrInvalidFleet, ship.ID, length, len(ship.Cells))
		}
		if err := validateShipShape(ship); err != nil {
			return err
		}
		for _, cell := range ship.Cells {
			if other, taken := occupied[cell]; taken {
				return fmt.Errorf("%w: %s overlaps %s at %s", model.ErrInvalidFleet, ship.ID, other, cell)
			}
			occupied[cell] = ship.ID
		}
	}
	return nil
}

func validateShipShape(ship model.Ship) error {
	cells := append([]model.Coordinate{}, ship.Cells...)
	for _, c := range cells {
		if !c.InBounds() {
			return fmt.Errorf("%w: %s has a cell off the board", model.ErrInvalidFleet, ship.ID)
		}
	}

	sameRow, sameCol := true, true
	for _, c := range cells[1:] {
		sameRow = sameRow && c.Row == cells[0].Row
		sameCol = sameCol && c.Col == cells[0].Col
	}
	if !sameRow && !sameCol {
		return fmt.Errorf("%w: %s is not straight", model.ErrInvalidFleet, ship.ID)
	}

	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Row != cells[j].Row {
			return cells[i].Row < cells[j].Row
		}
		return cells[i].Col < cells[j].Col
	})
	for i := 1; i < len(cells); i++ {
		step := (cells[i].Row - cells[i-1].Row) + (cells[i].Col - cells[i-1].Col)
		if step != 1 {
			return fmt.Errorf("%w: %s is not contiguous", model.ErrInvalidFleet, ship.ID)
		}
	}
	return nil
}
