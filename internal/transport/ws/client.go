package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/battleship-go/internal/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer
	pongWait = 60 * time.Second

	// Pings go out before the peer's read deadline passes
	pingPeriod = (pongWait * 9) / 10

	// Largest inbound frame accepted
	maxMessageSize = 8192

	// Buffer size for outgoing messages
	sendBufferSize = 512
)

// ErrSendBufferFull is returned when a slow client cannot take another message
var ErrSendBufferFull = errors.New("client send buffer full")

// Envelope is the frame format in both directions
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func encodeEnvelope(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// Client is one websocket connection. It implements session.Conn.
type Client struct {
	id          string
	playerID    model.PlayerID
	displayName string
	conn        *websocket.Conn
	connectedAt time.Time
	logger      *slog.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(id string, playerID model.PlayerID, displayName string, conn *websocket.Conn, logger *slog.Logger) *Client {
	return &Client{
		id:          id,
		playerID:    playerID,
		displayName: displayName,
		conn:        conn,
		connectedAt: time.Now(),
		send:        make(chan []byte, sendBufferSize),
		logger: logger.With(
			slog.String("conn_id", id),
			slog.String("player_id", string(playerID)),
		),
	}
}

func (c *Client) ID() string               { return c.id }
func (c *Client) PlayerID() model.PlayerID { return c.playerID }
func (c *Client) DisplayName() string      { return c.displayName }

// Send queues an event for this client only
func (c *Client) Send(event string, payload any) error {
	msg, err := encodeEnvelope(event, payload)
	if err != nil {
		return err
	}
	if !c.enqueue(msg) {
		return ErrSendBufferFull
	}
	return nil
}

// enqueue never blocks; a full or closed client drops the message
func (c *Client) enqueue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		c.logger.Warn("ws message dropped - client buffer full")
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump delivers inbound frames to handle until the connection fails
func (c *Client) readPump(handle func(Envelope)) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("ws read error", slog.String("error", err.Error()))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
			_ = c.Send(model.EventErrorMessage, model.ErrorPayload{Error: "Malformed request"})
			continue
		}
		handle(env)
	}
}

// writePump drains the send buffer and keeps the connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
