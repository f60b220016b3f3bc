package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mcoot/battleship-go/internal/model"
	"github.com/mcoot/battleship-go/internal/services/auth"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodePlayerNotFound     = "PLAYER_NOT_FOUND"
	CodeRoomNotFound       = "ROOM_NOT_FOUND"
	CodeGameNotFound       = "GAME_NOT_FOUND"
	CodeNotAParticipant    = "NOT_A_PARTICIPANT"
	CodeGameComplete       = "GAME_ALREADY_COMPLETE"
	CodeRoomMismatch       = "ROOM_MISMATCH"
	CodeOpponentNotReady   = "OPPONENT_NOT_READY"
	CodeNotYourTurn        = "NOT_YOUR_TURN"
	CodeInvalidCoordinate  = "INVALID_COORDINATE"
	CodeInvalidFleet       = "INVALID_FLEET"
	CodeShipsPlaced        = "SHIPS_ALREADY_PLACED"
	CodeAlreadyQueued      = "ALREADY_QUEUED"
	CodeTooManyActiveGames = "TOO_MANY_ACTIVE_GAMES"
	CodeUsernameExists     = "USERNAME_EXISTS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// StatusOf returns the HTTP status err would be written with
func StatusOf(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	var limitErr *model.ActiveGameLimitError
	if errors.As(err, &limitErr) {
		return &httpError{http.StatusConflict, APIError{CodeTooManyActiveGames,
			fmt.Sprintf("You can only have up to %d active games at any time.", limitErr.Limit)}}
	}

	switch {
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	case errors.Is(err, model.ErrRoomNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeRoomNotFound, "This room does not exist"}}
	case errors.Is(err, model.ErrGameNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeGameNotFound, "Game not found"}}
	case errors.Is(err, model.ErrNotAParticipant):
		return &httpError{http.StatusForbidden, APIError{CodeNotAParticipant, "You are not a player in this game"}}
	case errors.Is(err, model.ErrGameAlreadyComplete):
		return &httpError{http.StatusConflict, APIError{CodeGameComplete, "This game has already been finished"}}
	case errors.Is(err, model.ErrRoomMismatch):
		return &httpError{http.StatusBadRequest, APIError{CodeRoomMismatch, "Incorrect room-id or game-id"}}
	case errors.Is(err, model.ErrOpponentNotReady):
		return &httpError{http.StatusConflict, APIError{CodeOpponentNotReady, "Must wait until opponent sets their ships"}}
	case errors.Is(err, model.ErrNotYourTurn):
		return &httpError{http.StatusConflict, APIError{CodeNotYourTurn, "Not your turn"}}
	case errors.Is(err, model.ErrInvalidCoordinate):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidCoordinate, err.Error()}}
	case errors.Is(err, model.ErrInvalidFleet):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidFleet, err.Error()}}
	case errors.Is(err, model.ErrShipsAlreadyPlaced):
		return &httpError{http.StatusConflict, APIError{CodeShipsPlaced, "Ships have already been placed"}}
	case errors.Is(err, model.ErrAlreadyQueued):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyQueued, "You already have a game waiting for an opponent"}}

	// Map auth errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid username or password"}}
	case errors.Is(err, auth.ErrInvalidSession):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired session"}}
	case errors.Is(err, auth.ErrUsernameExists):
		return &httpError{http.StatusConflict, APIError{CodeUsernameExists, "Username already exists"}}
	case errors.Is(err, auth.ErrInvalidUsername), errors.Is(err, auth.ErrInvalidPassword):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, err.Error()}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Something went wrong, please try again"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string) error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Something went wrong, please try again"}}
}
