package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/battleship-go/internal/dependencies/random"
	"github.com/mcoot/battleship-go/internal/model"
	"github.com/mcoot/battleship-go/internal/services/bot"
)

func newGamesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "games",
		Short: "Game commands",
	}

	cmd.AddCommand(newGamesListCmd())
	cmd.AddCommand(newGamesShowCmd())
	cmd.AddCommand(newGamesShipsCmd())

	return cmd
}

func newGamesListCmd() *cobra.Command {
	var active bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your games",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/games"
			if active {
				path += "?active=true"
			}

			var result GameList
			if err := client.Get(path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&active, "active", false, "Only show games still in progress")

	return cmd
}

func newGamesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <game-id>",
		Short: "Show a game from your side of the board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result GameDetail

			if err := client.Get(fmt.Sprintf("/api/v1/games/%s", args[0]), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newGamesShipsCmd() *cobra.Command {
	var (
		file       string
		shipArgs   []string
		randomShip bool
	)

	cmd := &cobra.Command{
		Use:   "ships <game-id>",
		Short: "Submit your ship layout",
		Long: `Submit your ship layout for a game. Layouts cannot be changed once stored.

Ships are given as a JSON file (a list of {"id", "cells"} objects), with
--random, or with one --ship flag per ship in the form id=START:DIR, where
DIR is h (rightwards) or v (downwards):

  bsctl games ships <game-id> \
    --ship carrier=A1:h --ship battleship=C1:h --ship cruiser=E1:h \
    --ship submarine=G1:h --ship destroyer=I1:h`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ships []model.Ship
			if randomShip {
				ships = bot.RandomLayout(random.New())
			} else {
				var err error
				if ships, err = loadLayout(file, shipArgs); err != nil {
					return err
				}
			}

			req := map[string]any{"ships": ships}
			var result ShipsPlaced

			if err := client.Post(fmt.Sprintf("/api/v1/games/%s/ships", args[0]), req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "JSON file with the layout")
	cmd.Flags().StringArrayVar(&shipArgs, "ship", nil, "Ship as id=START:DIR, e.g. carrier=A1:h (repeatable)")
	cmd.Flags().BoolVar(&randomShip, "random", false, "Lay out the fleet at random")
	cmd.MarkFlagsMutuallyExclusive("file", "ship", "random")
	cmd.MarkFlagsOneRequired("file", "ship", "random")

	return cmd
}

func loadLayout(file string, args []string) ([]model.Ship, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read layout: %w", err)
		}
		var ships []model.Ship
		if err := json.Unmarshal(data, &ships); err != nil {
			return nil, fmt.Errorf("failed to parse layout: %w", err)
		}
		return ships, nil
	}

	ships := make([]model.Ship, 0, len(args))
	for _, arg := range args {
		ship, err := parseShipArg(arg)
		if err != nil {
			return nil, err
		}
		ships = append(ships, ship)
	}
	return ships, nil
}

// parseShipArg expands "id=START:DIR" into the ship's cells. The length
// comes from the standard fleet.
func parseShipArg(arg string) (model.Ship, error) {
	id, placement, ok := strings.Cut(arg, "=")
	if !ok {
		return model.Ship{}, fmt.Errorf("invalid ship %q: expected id=START:DIR", arg)
	}
	id = strings.ToLower(strings.TrimSpace(id))
	length, ok := model.Fleet[id]
	if !ok {
		return model.Ship{}, fmt.Errorf("unknown ship %q", id)
	}

	startStr, dir, ok := strings.Cut(placement, ":")
	if !ok {
		dir = "h"
	}
	start, err := model.ParseCoordinate(startStr)
	if err != nil {
		return model.Ship{}, fmt.Errorf("invalid start for %s: %w", id, err)
	}

	var dRow, dCol int
	switch strings.ToLower(dir) {
	case "h":
		dCol = 1
	case "v":
		dRow = 1
	default:
		return model.Ship{}, fmt.Errorf("invalid direction %q for %s: use h or v", dir, id)
	}

	cells := make([]model.Coordinate, length)
	for i := range cells {
		cells[i] = model.Coordinate{Row: start.Row + i*dRow, Col: start.Col + i*dCol}
	}
	return model.Ship{ID: id, Cells: cells}, nil
}
