package model

import (
	"errors"
	"fmt"
)

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound = errors.New("player not found")

	// Room and matchmaking errors
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomTaken          = errors.New("room id is already in use")
	ErrAlreadyQueued      = errors.New("player already has a game waiting in the queue")
	ErrTooManyActiveGames = errors.New("player has too many active games")
	ErrQueueEmpty         = errors.New("matchmaking queue is empty")
	ErrNotQueueFront      = errors.New("entry is not at the front of the queue")
	ErrQueueContention    = errors.New("could not claim a queue entry")

	// Game errors
	ErrGameNotFound        = errors.New("game not found")
	ErrGameAlreadyComplete = errors.New("game is already complete")
	ErrNotAParticipant     = errors.New("player is not a participant in this game")
	ErrRoomMismatch        = errors.New("room does not match game")
	ErrOpponentNotReady    = errors.New("opponent has not placed ships")
	ErrNotYourTurn         = errors.New("not this player's turn")
	ErrInvalidCoordinate   = errors.New("invalid target coordinate")
	ErrGameFull            = errors.New("game already has two players")
	ErrCannotPlaySelf      = errors.New("player cannot join their own game")

	// Ship placement errors
	ErrInvalidFleet       = errors.New("invalid ship layout")
	ErrShipsAlreadyPlaced = errors.New("ships have already been placed")

	// Storage errors
	ErrConflict = errors.New("concurrent update conflict")
)

// ActiveGameLimitError reports that a player hit the active game cap.
// It matches ErrTooManyActiveGames under errors.Is.
type ActiveGameLimitError struct {
	Limit int
}

func (e *ActiveGameLimitError) Error() string {
	return fmt.Sprintf("%s (limit %d)", ErrTooManyActiveGames, e.Limit)
}

func (e *ActiveGameLimitError) Is(target error) bool {
	return target == ErrTooManyActiveGames
}
