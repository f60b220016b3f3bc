package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mcoot/battleship-go/internal/model"
	"github.com/mcoot/battleship-go/internal/services/game"
	"github.com/mcoot/battleship-go/internal/services/matchmaking"
)

// Protocol dispatches inbound events for every connection
type Protocol struct {
	matchmaking *matchmaking.Controller
	games       *game.Controller
	rooms       Rooms
	sanitize    func(string) string
	logger      *slog.Logger
}

// Option customises a Protocol
type Option func(*Protocol)

// WithSanitizer filters chat text before it is relayed
func WithSanitizer(fn func(string) string) Option {
	return func(p *Protocol) {
		p.sanitize = fn
	}
}

// NewProtocol creates a Protocol
func NewProtocol(mm *matchmaking.Controller, games *game.Controller, rooms Rooms, logger *slog.Logger, opts ...Option) *Protocol {
	p := &Protocol{
		matchmaking: mm,
		games:       games,
		rooms:       rooms,
		sanitize:    func(s string) string { return s },
		logger:      logger.With(slog.String("component", "session")),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Dispatch handles one inbound event. Failures are reported to conn as an
// error-message event and never reach other room members.
func (p *Protocol) Dispatch(ctx context.Context, conn Conn, event string, data json.RawMessage) {
	var err error
	switch event {
	case model.EventJoinRoom:
		err = p.handleJoinRoom(ctx, conn, data)
	case model.EventFire:
		err = p.handleFire(ctx, conn, data)
	case model.EventShipsReady:
		err = p.handleShipsReady(conn, data)
	case model.EventSendMessage:
		err = p.handleSendMessage(conn, data)
	case model.EventPlaceShips:
		err = p.handlePlaceShips(ctx, conn, data)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	if err != nil {
		p.reportError(conn, event, err)
	}
}

func (p *Protocol) reportError(conn Conn, event string, err error) {
	msg := ErrorMessageFor(event, err)
	level := slog.LevelDebug
	if msg == genericErrorMessage {
		level = slog.LevelError
	}
	p.logger.Log(context.Background(), level, "event failed",
		slog.String("event", event),
		slog.String("conn_id", conn.ID()),
		slog.String("player_id", string(conn.PlayerID())),
		slog.String("error", err.Error()),
	)
	p.send(conn, model.EventErrorMessage, model.ErrorPayload{Error: msg})
}

func (p *Protocol) send(conn Conn, event string, payload any) {
	if err := conn.Send(event, payload); err != nil {
		p.logger.Warn("failed to send event",
			slog.String("event", event),
			slog.String("conn_id", conn.ID()),
			slog.String("error", err.Error()),
		)
	}
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return ErrMalformedPayload
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return nil
}

// decodeRoom accepts either a bare room string or {"room": "..."}
func decodeRoom(data json.RawMessage) (model.RoomID, error) {
	var room string
	if err := json.Unmarshal(data, &room); err != nil {
		var obj struct {
			Room string `json:"room"`
		}
		if err := decode(data, &obj); err != nil {
			return "", err
		}
		room = obj.Room
	}
	room = strings.TrimSpace(room)
	if room == "" {
		return "", fmt.Errorf("%w: room is required", ErrMalformedPayload)
	}
	return model.RoomID(room), nil
}

func (p *Protocol) handleJoinRoom(ctx context.Context, conn Conn, data json.RawMessage) error {
	room, err := decodeRoom(data)
	if err != nil {
		return err
	}

	if room == model.RandomRoom {
		res, err := p.matchmaking.JoinRandom(ctx, conn.PlayerID())
		if err != nil {
			return err
		}
		rec := res.Game
		p.rooms.Join(rec.RoomID, conn)
		p.send(conn, model.EventJoined, model.JoinedPayload{Room: rec.RoomID, Player: res.Role, GameID: rec.ID})
		if res.Matched {
			p.rooms.BroadcastOthers(rec.RoomID, conn, model.EventJoined,
				model.JoinedPayload{Room: rec.RoomID, Player: model.RolePlayer1, GameID: rec.ID})
		}
		return nil
	}

	rec, role, err := p.matchmaking.Rejoin(ctx, conn.PlayerID(), room)
	if err != nil {
		return err
	}
	p.rooms.Join(rec.RoomID, conn)
	p.logger.Debug("player rejoined",
		slog.String("room_id", string(rec.RoomID)),
		slog.String("player_id", string(conn.PlayerID())),
		slog.String("role", string(role)),
	)
	p.send(conn, model.EventReconnected, model.ReconnectedPayload{Room: rec.RoomID})
	return nil
}

func (p *Protocol) handleFire(ctx context.Context, conn Conn, data json.RawMessage) error {
	var req model.FireRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	out, err := p.games.Fire(ctx, conn.PlayerID(), req)
	if err != nil {
		return err
	}

	room := out.Game.RoomID
	p.rooms.Broadcast(room, model.EventResponse, model.ShotResponsePayload{
		Result:       out.Result,
		ShipID:       out.ShipID,
		PlayerString: out.Shooter,
		Target:       out.Target,
	})
	if out.Won() {
		p.rooms.Broadcast(room, model.EventWin, model.WinPayload{Winner: out.Shooter})
	}
	return nil
}

func (p *Protocol) handleShipsReady(conn Conn, data json.RawMessage) error {
	room, err := decodeRoom(data)
	if err != nil {
		return err
	}
	if !p.rooms.InRoom(room, conn) {
		return model.ErrNotAParticipant
	}
	p.rooms.BroadcastOthers(room, conn, model.EventOpponentReady, model.OpponentReadyPayload{})
	return nil
}

func (p *Protocol) handleSendMessage(conn Conn, data json.RawMessage) error {
	var req model.ChatRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	if !p.rooms.InRoom(req.Room, conn) {
		return model.ErrNotAParticipant
	}
	p.rooms.BroadcastOthers(req.Room, conn, model.EventChatMessage, model.ChatMessagePayload{
		Username: conn.DisplayName(),
		Message:  p.sanitize(req.Message),
	})
	return nil
}

func (p *Protocol) handlePlaceShips(ctx context.Context, conn Conn, data json.RawMessage) error {
	var req model.PlaceShipsRequest
	if err := decode(data, &req); err != nil {
		return err
	}
	rec, phase, err := p.games.PlaceShips(ctx, conn.PlayerID(), req.GameID, req.Ships)
	if err != nil {
		return err
	}
	p.send(conn, model.EventShipsPlaced, model.ShipsPlacedPayload{GameID: rec.ID, Phase: phase})
	return nil
}
