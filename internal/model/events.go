package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Inbound session events
const (
	EventJoinRoom    = "join_room"
	EventFire        = "fire"
	EventShipsReady  = "ships_ready"
	EventSendMessage = "send-message"
	EventPlaceShips  = "place_ships"
)

// Outbound session events
const (
	EventJoined        = "joined"
	EventReconnected   = "reconnected"
	EventErrorMessage  = "error-message"
	EventResponse      = "response"
	EventWin           = "win"
	EventOpponentReady = "opponent_ready"
	EventChatMessage   = "chat-message"
	EventShipsPlaced   = "ships_placed"
)

// ShotResult is the verdict for a single shot
type ShotResult string

const (
	ShotHit  ShotResult = "hit"
	ShotMiss ShotResult = "miss"
)

// FireRequest is the payload of a fire event
type FireRequest struct {
	Target Coordinate `json:"target"`
	GameID GameID     `json:"gameId"`
	RoomID RoomID     `json:"roomId"`
}

// UnmarshalJSON rejects a fire payload without a target
func (r *FireRequest) UnmarshalJSON(b []byte) error {
	type plain FireRequest
	var raw struct {
		plain
		Target *Coordinate `json:"target"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Target == nil {
		return fmt.Errorf("%w: target is required", ErrInvalidCoordinate)
	}
	*r = FireRequest(raw.plain)
	r.Target = *raw.Target
	return nil
}

// PlaceShipsRequest is the payload of a place_ships event
type PlaceShipsRequest struct {
	GameID GameID `json:"gameId"`
	Ships  []Ship `json:"ships"`
}

// ChatRequest is the payload of a send-message event
type ChatRequest struct {
	Room    RoomID `json:"room"`
	Message string `json:"message"`
}

// JoinedPayload tells a connection which seat it holds
type JoinedPayload struct {
	Room   RoomID `json:"room"`
	Player Role   `json:"player"`
	GameID GameID `json:"gameId"`
}

// ReconnectedPayload confirms a rejoin
type ReconnectedPayload struct {
	Room RoomID `json:"room"`
}

// ErrorPayload carries a user-facing error message
type ErrorPayload struct {
	Error string `json:"error"`
}

// ShotResponsePayload is broadcast to the room after every resolved shot
type ShotResponsePayload struct {
	Result       ShotResult `json:"result"`
	ShipID       string     `json:"shipId,omitempty"`
	PlayerString Role       `json:"playerString"`
	Target       Coordinate `json:"target"`
}

// WinPayload is broadcast to the room when a game ends
type WinPayload struct {
	Winner Role `json:"winner"`
}

// OpponentReadyPayload is intentionally empty
type OpponentReadyPayload struct{}

// ChatMessagePayload relays chat text to the other occupant
type ChatMessagePayload struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

// ShipsPlacedPayload confirms a layout was stored
type ShipsPlacedPayload struct {
	GameID GameID `json:"gameId"`
	Phase  Phase  `json:"phase"`
}

// GameEventType identifies a lifecycle event published to other services
type GameEventType string

const (
	GameEventCreated   GameEventType = "created"
	GameEventMatched   GameEventType = "matched"
	GameEventCompleted GameEventType = "completed"
)

// GameEvent is a lifecycle notification for the history/analytics consumer
type GameEvent struct {
	Type       GameEventType `json:"type"`
	GameID     GameID        `json:"gameId"`
	RoomID     RoomID        `json:"roomId"`
	Player1    PlayerID      `json:"player1"`
	Player2    PlayerID      `json:"player2,omitempty"`
	Winner     PlayerID      `json:"winner,omitempty"`
	OccurredAt time.Time     `json:"occurredAt"`
}

// NewGameEvent builds an event from the current record
func NewGameEvent(t GameEventType, rec *GameRecord, at time.Time) GameEvent {
	return GameEvent{
		Type:       t,
		GameID:     rec.ID,
		RoomID:     rec.RoomID,
		Player1:    rec.Player1,
		Player2:    rec.Player2,
		Winner:     rec.WinnerID(),
		OccurredAt: at,
	}
}
