package session

import (
	"errors"
	"fmt"

	"github.com/mcoot/battleship-go/internal/model"
)

var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrUnknownEvent     = errors.New("unknown event")
)

const genericErrorMessage = "Something went wrong, please try again"

// errorMessages holds the user-facing text for each known failure
var errorMessages = []struct {
	err error
	msg string
}{
	{model.ErrRoomNotFound, "This room does not exist"},
	{model.ErrNotAParticipant, "You are not allowed in this room"},
	{model.ErrGameAlreadyComplete, "This game has already been finished"},
	{model.ErrGameNotFound, "The game you are trying to modify does not exist"},
	{model.ErrRoomMismatch, "Incorrect room-id or game-id"},
	{model.ErrOpponentNotReady, "Must wait until opponent sets their ships"},
	{model.ErrAlreadyQueued, "You can only have one game in the queue at a given time. Please wait for someone else to match against you."},
	{model.ErrNotYourTurn, "It is not your turn"},
	{model.ErrInvalidCoordinate, "Invalid target coordinate"},
	{model.ErrInvalidFleet, "Invalid ship layout"},
	{model.ErrShipsAlreadyPlaced, "Your ships have already been placed"},
	{model.ErrQueueContention, "Matchmaking is busy, please try again"},
	{ErrMalformedPayload, "Malformed request"},
	{ErrUnknownEvent, "Unknown event"},
}

// gameChangeMessages replace the join wording for events that modify a game
var gameChangeMessages = []struct {
	err error
	msg string
}{
	{model.ErrNotAParticipant, "You are not allowed to make changes to this game"},
	{model.ErrGameAlreadyComplete, "The game you are trying to modify has been completed"},
}

// ErrorMessageFor maps err to the text shown for a failed event
func ErrorMessageFor(event string, err error) string {
	if event == model.EventFire || event == model.EventPlaceShips {
		for _, m := range gameChangeMessages {
			if errors.Is(err, m.err) {
				return m.msg
			}
		}
	}
	return ErrorMessage(err)
}

// ErrorMessage maps err to the text shown to the player
func ErrorMessage(err error) string {
	var limitErr *model.ActiveGameLimitError
	if errors.As(err, &limitErr) {
		return fmt.Sprintf("You can only have up to %d active games at any time.", limitErr.Limit)
	}
	for _, m := range errorMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return genericErrorMessage
}
