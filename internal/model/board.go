package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// BoardSize is the width and height of each player's grid
const BoardSize = 10

// Coordinate is a zero-based cell on the board. Row 0 is "A", Col 0 is "1".
type Coordinate struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// UnmarshalJSON requires both row and col so a partial object is not read as column or row 0
func (c *Coordinate) UnmarshalJSON(b []byte) error {
	var raw struct {
		Row *int `json:"row"`
		Col *int `json:"col"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Row == nil || raw.Col == nil {
		return fmt.Errorf("%w: row and col are required", ErrInvalidCoordinate)
	}
	c.Row, c.Col = *raw.Row, *raw.Col
	return nil
}

// InBounds reports whether the coordinate lies on the board
func (c Coordinate) InBounds() bool {
	return c.Row >= 0 && c.Row < BoardSize && c.Col >= 0 && c.Col < BoardSize
}

// String renders the coordinate as e.g. "D5"
func (c Coordinate) String() string {
	if !c.InBounds() {
		return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
	}
	return fmt.Sprintf("%c%d", 'A'+rune(c.Row), c.Col+1)
}

// ParseCoordinate parses the "D5" form. Row letters are case-insensitive.
func ParseCoordinate(s string) (Coordinate, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrInvalidCoordinate, s)
	}
	letter := strings.ToUpper(s[:1])[0]
	col, err := strconv.Atoi(s[1:])
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrInvalidCoordinate, s)
	}
	c := Coordinate{Row: int(letter - 'A'), Col: col - 1}
	if !c.InBounds() {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrInvalidCoordinate, s)
	}
	return c, nil
}

// Ship is one vessel in a layout
type Ship struct {
	ID    string       `json:"id"`
	Cells []Coordinate `json:"cells"`
}

// Standard fleet ship ids
const (
	ShipCarrier    = "carrier"
	ShipBattleship = "battleship"
	ShipCruiser    = "cruiser"
	ShipSubmarine  = "submarine"
	ShipDestroyer  = "destroyer"
)

// Fleet maps each required ship id to its length
var Fleet = map[string]int{
	ShipCarrier:    5,
	ShipBattleship: 4,
	ShipCruiser:    3,
	ShipSubmarine:  3,
	ShipDestroyer:  2,
}

// FleetCells is the total number of ship cells in a full layout.
// A player whose hit count reaches it has won.
const FleetCells = 17

// PlayerBoard is one side's state within a game
type PlayerBoard struct {
	// Ships is this player's own layout; nil until placed
	Ships []Ship `json:"ships,omitempty"`

	// Hits and Misses are shots this player fired at the opponent, in order
	Hits   []Coordinate `json:"hits"`
	Misses []Coordinate `json:"misses"`
}

// ShipsPlaced reports whether this player has submitted a layout
func (b *PlayerBoard) ShipsPlaced() bool {
	return len(b.Ships) > 0
}

// HasFired reports whether the player already targeted c
func (b *PlayerBoard) HasFired(c Coordinate) bool {
	for _, h := range b.Hits {
		if h == c {
			return true
		}
	}
	for _, m := range b.Misses {
		if m == c {
			return true
		}
	}
	return false
}

// Clone returns a deep copy
func (b PlayerBoard) Clone() PlayerBoard {
	out := PlayerBoard{
		Hits:   append([]Coordinate{}, b.Hits...),
		Misses: append([]Coordinate{}, b.Misses...),
	}
	if b.Ships != nil {
		out.Ships = make([]Ship, len(b.Ships))
		for i, s := range b.Ships {
			out.Ships[i] = Ship{ID: s.ID, Cells: append([]Coordinate{}, s.Cells...)}
		}
	}
	return out
}
