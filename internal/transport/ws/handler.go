package ws

import (
	"context"
	"encoding/json"
	"html"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcoot/battleship-go/internal/services/auth"
	"github.com/mcoot/battleship-go/internal/session"
)

// SanitizeChat escapes chat text before it is relayed to other players
func SanitizeChat(s string) string {
	return html.EscapeString(s)
}

// Authenticator resolves a bearer token to a session
type Authenticator interface {
	ValidateToken(token string) (*auth.Session, error)
}

// Dispatcher handles one decoded inbound event. session.Protocol implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, conn session.Conn, event string, data json.RawMessage)
}

// DispatcherFunc adapts a function to Dispatcher
type DispatcherFunc func(ctx context.Context, conn session.Conn, event string, data json.RawMessage)

func (f DispatcherFunc) Dispatch(ctx context.Context, conn session.Conn, event string, data json.RawMessage) {
	f(ctx, conn, event, data)
}

// Handler upgrades authenticated requests and runs the client pumps
type Handler struct {
	hub        *Hub
	auth       Authenticator
	dispatcher Dispatcher
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewHandler creates a websocket Handler
func NewHandler(hub *Hub, authn Authenticator, dispatcher Dispatcher, allowedOrigins []string, logger *slog.Logger) *Handler {
	return &Handler{
		hub:        hub,
		auth:       authn,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger.With(slog.String("component", "ws")),
	}
}

// originChecker allows any origin when none are configured
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

func tokenFrom(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := tokenFrom(r)
	if token == "" {
		http.Error(w, "Missing bearer token", http.StatusUnauthorized)
		return
	}
	sess, err := h.auth.ValidateToken(token)
	if err != nil {
		http.Error(w, "Invalid or expired session", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the error response
		h.logger.Warn("ws upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := newClient(uuid.NewString(), sess.PlayerID, sess.Player.DisplayName, conn, h.logger)
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	go client.writePump()

	ctx := context.WithoutCancel(r.Context())
	client.readPump(func(env Envelope) {
		h.dispatcher.Dispatch(ctx, client, env.Event, env.Data)
	})
}
