package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mcoot/battleship-go/internal/model"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Player:
		o.printPlayer(v)
	case AuthResult:
		o.printAuthResult(v)
	case Stats:
		o.printStats(v)
	case GameList:
		o.printGameList(v)
	case GameDetail:
		o.printGameDetail(v)
	case ShipsPlaced:
		fmt.Printf("Ships placed for game %s (phase: %s)\n", v.GameID, v.Phase)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches API)
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsGuest     bool   `json:"is_guest"`
}

// AuthResult combines player and token
type AuthResult struct {
	Player       Player    `json:"player"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Stats response type
type Stats struct {
	PlayerID string `json:"player_id"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	Played   int    `json:"played"`
}

// Game response type
type Game struct {
	ID          string     `json:"id"`
	RoomID      string     `json:"room_id"`
	Player1     string     `json:"player1"`
	Player2     string     `json:"player2,omitempty"`
	Status      string     `json:"status"`
	Turn        string     `json:"turn"`
	Winner      string     `json:"winner,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// GameList response type
type GameList struct {
	Games []Game `json:"games"`
}

// Board is the caller's side of a game
type Board struct {
	Ships  []model.Ship       `json:"ships"`
	Hits   []model.Coordinate `json:"hits"`
	Misses []model.Coordinate `json:"misses"`
}

// OpponentBoard is the visible part of the other side
type OpponentBoard struct {
	PlayerID    string             `json:"player_id,omitempty"`
	ShipsPlaced bool               `json:"ships_placed"`
	Hits        []model.Coordinate `json:"hits"`
	Misses      []model.Coordinate `json:"misses"`
}

// GameDetail response type
type GameDetail struct {
	Game     Game          `json:"game"`
	Role     string        `json:"role"`
	Phase    string        `json:"phase"`
	Own      Board         `json:"own"`
	Opponent OpponentBoard `json:"opponent"`
}

// ShipsPlaced response type
type ShipsPlaced struct {
	GameID string `json:"game_id"`
	Phase  string `json:"phase"`
}

// HealthResult response type
type HealthResult struct {
	Status      string `json:"status"`
	QueueLength int    `json:"queue_length"`
}

func (o *Output) printPlayer(p Player) {
	guestStr := "no"
	if p.IsGuest {
		guestStr = "yes"
	}
	fmt.Printf("Player: %s (%s)\n", p.DisplayName, p.ID)
	fmt.Printf("Guest: %s\n", guestStr)
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printPlayer(a.Player)
	fmt.Printf("Token: %s\n", a.SessionToken)
	if !a.ExpiresAt.IsZero() {
		fmt.Printf("Expires: %s\n", a.ExpiresAt.Local().Format(time.DateTime))
	}
}

func (o *Output) printStats(s Stats) {
	fmt.Printf("Played: %d\n", s.Played)
	fmt.Printf("Wins: %d\n", s.Wins)
	fmt.Printf("Losses: %d\n", s.Losses)
}

func (o *Output) printGameList(l GameList) {
	if len(l.Games) == 0 {
		fmt.Println("No games")
		return
	}
	for _, g := range l.Games {
		opponent := g.Player2
		if opponent == "" {
			opponent = "(waiting)"
		}
		line := fmt.Sprintf("%s  room %s  %s  %s vs %s", g.ID, g.RoomID, g.Status, g.Player1, opponent)
		if g.Winner != "" {
			line += "  winner: " + g.Winner
		}
		fmt.Println(line)
	}
}

func (o *Output) printGameDetail(d GameDetail) {
	fmt.Printf("Game: %s\n", d.Game.ID)
	fmt.Printf("Room: %s\n", d.Game.RoomID)
	fmt.Printf("You are: %s\n", d.Role)
	fmt.Printf("Phase: %s\n", d.Phase)
	fmt.Printf("Turn: %s\n", d.Game.Turn)
	if d.Game.Winner != "" {
		fmt.Printf("Winner: %s\n", d.Game.Winner)
	}
	if d.Opponent.PlayerID != "" {
		ready := "no"
		if d.Opponent.ShipsPlaced {
			ready = "yes"
		}
		fmt.Printf("Opponent: %s (ships placed: %s)\n", d.Opponent.PlayerID, ready)
	}

	// Own grid shows our ships and the opponent's shots at them
	fmt.Println("\nYour fleet:")
	own := newGrid()
	for _, ship := range d.Own.Ships {
		own.mark(ship.Cells, 'S')
	}
	own.mark(d.Opponent.Misses, 'o')
	own.mark(d.Opponent.Hits, 'X')
	own.print()

	fmt.Println("\nYour shots:")
	shots := newGrid()
	shots.mark(d.Own.Misses, 'o')
	shots.mark(d.Own.Hits, 'X')
	shots.print()
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
	fmt.Printf("Queued games: %d\n", h.QueueLength)
}

type grid [model.BoardSize][model.BoardSize]rune

func newGrid() *grid {
	var g grid
	for r := range g {
		for c := range g[r] {
			g[r][c] = '.'
		}
	}
	return &g
}

func (g *grid) mark(cells []model.Coordinate, ch rune) {
	for _, cell := range cells {
		if cell.InBounds() {
			g[cell.Row][cell.Col] = ch
		}
	}
}

func (g *grid) print() {
	// Print column headers
	fmt.Print("   ")
	for col := 1; col <= model.BoardSize; col++ {
		fmt.Printf("%3d", col)
	}
	fmt.Println()

	for row := range g {
		fmt.Printf(" %c  ", 'A'+rune(row))
		for col := range g[row] {
			fmt.Printf(" %c ", g[row][col])
		}
		fmt.Println()
	}
}
