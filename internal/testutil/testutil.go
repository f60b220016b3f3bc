// Package testutil holds shared fixtures for tests.
package testutil

import (
	"io"
	"log/slog"

	"github.com/mcoot/battleship-go/internal/model"
)

// NopLogger returns a logger that discards all output
func NopLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// StandardFleet returns a valid layout with every ship laid horizontally
// from column 0, on rows A, C, E, G and I
func StandardFleet() []model.Ship {
	row := func(id string, r, length int) model.Ship {
		cells := make([]model.Coordinate, length)
		for c := range cells {
			cells[c] = model.Coordinate{Row: r, Col: c}
		}
		return model.Ship{ID: id, Cells: cells}
	}
	return []model.Ship{
		row(model.ShipCarrier, 0, 5),
		row(model.ShipBattleship, 2, 4),
		row(model.ShipCruiser, 4, 3),
		row(model.ShipSubmarine, 6, 3),
		row(model.ShipDestroyer, 8, 2),
	}
}

// FleetTargets returns every occupied cell of a layout, in ship order
func FleetTargets(layout []model.Ship) []model.Coordinate {
	var out []model.Coordinate
	for _, ship := range layout {
		out = append(out, ship.Cells...)
	}
	return out
}

// EmptyTargets returns n cells that StandardFleet never occupies.
// Columns 9 and 8 are always empty.
func EmptyTargets(n int) []model.Coordinate {
	out := make([]model.Coordinate, 0, n)
	for _, col := range []int{9, 8} {
		for r := 0; r < model.BoardSize && len(out) < n; r++ {
			out = append(out, model.Coordinate{Row: r, Col: col})
		}
	}
	return out
}
