package response

import (
	"time"

	"github.com/mcoot/battleship-go/internal/model"
	"github.com/mcoot/battleship-go/internal/services/auth"
	"github.com/mcoot/battleship-go/internal/services/game"
)

// Player represents a player in API responses
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsGuest     bool   `json:"is_guest"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:          string(p.ID),
		DisplayName: p.DisplayName,
		IsGuest:     p.IsGuest,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	Player       Player    `json:"player"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Player:       PlayerFromModel(&s.Player),
		SessionToken: s.Token,
		ExpiresAt:    s.ExpiresAt,
	}
}

// Stats is a player's win/loss record
type Stats struct {
	PlayerID string `json:"player_id"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	Played   int    `json:"played"`
}

// StatsFromModel converts model.PlayerStats
func StatsFromModel(s *model.PlayerStats) Stats {
	return Stats{
		PlayerID: string(s.PlayerID),
		Wins:     s.Wins,
		Losses:   s.Losses,
		Played:   s.Wins + s.Losses,
	}
}

// Game is the public part of a game record
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

// GameFromModel converts a model.GameRecord
func GameFromModel(g *model.GameRecord) Game {
	return Game{
		ID:          string(g.ID),
		RoomID:      string(g.RoomID),
		Player1:     string(g.Player1),
		Player2:     string(g.Player2),
		Status:      string(g.Status),
		Turn:        string(g.Turn),
		Winner:      string(g.Winner),
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
		CompletedAt: g.CompletedAt,
	}
}

// GameList is the response for listing games
type GameList struct {
	Games []Game `json:"games"`
}

// GameListFromModel converts a slice of records
func GameListFromModel(games []*model.GameRecord) GameList {
	out := GameList{Games: make([]Game, 0, len(games))}
	for _, g := range games {
		out.Games = append(out.Games, GameFromModel(g))
	}
	return out
}

// Board is the caller's own side: their ships and the shots they fired
type Board struct {
	Ships  []model.Ship       `json:"ships"`
	Hits   []model.Coordinate `json:"hits"`
	Misses []model.Coordinate `json:"misses"`
}

// OpponentBoard is what the caller may see of the other side
type OpponentBoard struct {
	PlayerID    string             `json:"player_id,omitempty"`
	ShipsPlaced bool               `json:"ships_placed"`
	Hits        []model.Coordinate `json:"hits"`
	Misses      []model.Coordinate `json:"misses"`
}

// GameDetail is a participant's full view of a game
type GameDetail struct {
	Game     Game          `json:"game"`
	Role     string        `json:"role"`
	Phase    string        `json:"phase"`
	Own      Board         `json:"own"`
	Opponent OpponentBoard `json:"opponent"`
}

// GameDetailFromView converts a game.GameView
func GameDetailFromView(v *game.GameView) GameDetail {
	ships := v.Own.Ships
	if ships == nil {
		ships = []model.Ship{}
	}
	return GameDetail{
		Game:  GameFromModel(v.Game),
		Role:  string(v.Role),
		Phase: string(v.Phase),
		Own: Board{
			Ships:  ships,
			Hits:   nonNil(v.Own.Hits),
			Misses: nonNil(v.Own.Misses),
		},
		Opponent: OpponentBoard{
			PlayerID:    string(v.Opponent.PlayerID),
			ShipsPlaced: v.Opponent.ShipsPlaced,
			Hits:        nonNil(v.Opponent.Hits),
			Misses:      nonNil(v.Opponent.Misses),
		},
	}
}

func nonNil(c []model.Coordinate) []model.Coordinate {
	if c == nil {
		return []model.Coordinate{}
	}
	return c
}

// ShipsPlaced is the response for a stored layout
type ShipsPlaced struct {
	GameID string `json:"game_id"`
	Phase  string `json:"phase"`
}

// Health is the response for the health check
type Health struct {
	Status      string `json:"status"`
	QueueLength int    `json:"queue_length"`
}
