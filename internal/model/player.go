package model

import "time"

// PlayerID uniquely identifies a player across the system
type PlayerID string

// Player represents a participant. Guests exist only as long as their token.
type Player struct {
	ID          PlayerID  `json:"id"`
	DisplayName string    `json:"displayName"`
	IsGuest     bool      `json:"isGuest"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RegisteredPlayer holds login data for a non-guest player.
// Stored separately from Player so the hash never travels with game state.
type RegisteredPlayer struct {
	PlayerID     PlayerID  `json:"playerId"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PlayerStats is the win/loss tally for a player
type PlayerStats struct {
	PlayerID PlayerID `json:"playerId"`
	Wins     int      `json:"wins"`
	Losses   int      `json:"losses"`
}
