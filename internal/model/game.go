package model

import "time"

// GameID uniquely identifies a game
type GameID string

// RoomID names the broadcast channel for one game
type RoomID string

// RandomRoom is the join_room argument that requests matchmaking
const RandomRoom RoomID = "random"

// GameStatus is the lifecycle status of a game. It only moves forward.
type GameStatus string

const (
	GameStatusActive   GameStatus = "active"
	GameStatusComplete GameStatus = "complete"
)

// Role identifies a seat within a game
type Role string

const (
	RolePlayer1 Role = "player1"
	RolePlayer2 Role = "player2"
)

// Opponent returns the other seat
func (r Role) Opponent() Role {
	if r == RolePlayer1 {
		return RolePlayer2
	}
	return RolePlayer1
}

// Valid reports whether r names a seat
func (r Role) Valid() bool {
	return r == RolePlayer1 || r == RolePlayer2
}

// GameRecord is the metadata for a single game
type GameRecord struct {
	ID      GameID     `json:"id"`
	RoomID  RoomID     `json:"roomId"`
	Player1 PlayerID   `json:"player1"`
	Player2 PlayerID   `json:"player2,omitempty"` // empty until matched
	Status  GameStatus `json:"status"`
	Turn    Role       `json:"turn"`
	Winner  Role       `json:"winner,omitempty"` // set when complete

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// IsActive returns true while shots may still be fired
func (g *GameRecord) IsActive() bool {
	return g.Status == GameStatusActive
}

// HasOpponent returns true once the second seat is filled
func (g *GameRecord) HasOpponent() bool {
	return g.Player2 != ""
}

// RoleOf returns the seat held by the player, if any
func (g *GameRecord) RoleOf(playerID PlayerID) (Role, bool) {
	switch {
	case playerID == "":
		return "", false
	case g.Player1 == playerID:
		return RolePlayer1, true
	case g.Player2 == playerID:
		return RolePlayer2, true
	}
	return "", false
}

// PlayerFor returns the player in the given seat
func (g *GameRecord) PlayerFor(role Role) PlayerID {
	if role == RolePlayer1 {
		return g.Player1
	}
	return g.Player2
}

// SwapTurn hands the turn to the other seat
func (g *GameRecord) SwapTurn() {
	g.Turn = g.Turn.Opponent()
}

// Complete ends the game in favour of winner. The caller checks the game is active.
func (g *GameRecord) Complete(winner Role, at time.Time) {
	g.Status = GameStatusComplete
	g.Winner = winner
	g.CompletedAt = &at
}

// WinnerID returns the winning player, or empty while the game is active
func (g *GameRecord) WinnerID() PlayerID {
	if g.Winner == "" {
		return ""
	}
	return g.PlayerFor(g.Winner)
}

// Clone returns a deep copy
func (g *GameRecord) Clone() *GameRecord {
	out := *g
	if g.CompletedAt != nil {
		t := *g.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

// GameData is the board state for a game, one PlayerBoard per seat
type GameData struct {
	GameID  GameID      `json:"gameId"`
	Player1 PlayerBoard `json:"player1"`
	Player2 PlayerBoard `json:"player2"`
}

// NewGameData returns empty board state for a new game
func NewGameData(id GameID) *GameData {
	return &GameData{
		GameID:  id,
		Player1: PlayerBoard{Hits: []Coordinate{}, Misses: []Coordinate{}},
		Player2: PlayerBoard{Hits: []Coordinate{}, Misses: []Coordinate{}},
	}
}

// Board returns the board for the given seat
func (d *GameData) Board(role Role) *PlayerBoard {
	if role == RolePlayer1 {
		return &d.Player1
	}
	return &d.Player2
}

// Clone returns a deep copy
func (d *GameData) Clone() *GameData {
	return &GameData{
		GameID:  d.GameID,
		Player1: d.Player1.Clone(),
		Player2: d.Player2.Clone(),
	}
}

// Phase is the derived position of a game in its lifecycle
type Phase string

const (
	PhaseWaitingForOpponent Phase = "waiting_for_opponent"
	PhaseShipsPending       Phase = "ships_pending"
	PhaseInPlay             Phase = "in_play"
	PhaseComplete           Phase = "complete"
)

// PhaseOf derives the phase from a record and its board state
func PhaseOf(rec *GameRecord, data *GameData) Phase {
	switch {
	case !rec.IsActive():
		return PhaseComplete
	case !rec.HasOpponent():
		return PhaseWaitingForOpponent
	case data == nil || !data.Player1.ShipsPlaced() || !data.Player2.ShipsPlaced():
		return PhaseShipsPending
	}
	return PhaseInPlay
}

// QueueEntry is a game waiting for a second player
type QueueEntry struct {
	GameID       GameID    `json:"gameId"`
	RoomID       RoomID    `json:"roomId"`
	Player1      PlayerID  `json:"player1"`
	CreatedOrder int64     `json:"createdOrder"`
	EnqueuedAt   time.Time `json:"enqueuedAt"`
}
