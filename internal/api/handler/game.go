package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/battleship-go/internal/api/middleware"
	"github.com/mcoot/battleship-go/internal/api/request"
	"github.com/mcoot/battleship-go/internal/api/response"
	"github.com/mcoot/battleship-go/internal/model"
	"github.com/mcoot/battleship-go/internal/services/game"
	"github.com/mcoot/battleship-go/internal/services/matchmaking"
)

// GameHandler handles game-related endpoints. Play itself happens over
// the websocket; these routes are for inspection and ship placement.
type GameHandler struct {
	gameController *game.Controller
	matchmaking    *matchmaking.Controller
	logger         *slog.Logger
}

// NewGameHandler creates a new game handler
func NewGameHandler(gameController *game.Controller, mm *matchmaking.Controller, logger *slog.Logger) *GameHandler {
	return &GameHandler{
		gameController: gameController,
		matchmaking:    mm,
		logger:         logger,
	}
}

// List handles GET /api/v1/games
func (h *GameHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := false
	if v := r.URL.Query().Get("active"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			WriteError(w, NewInvalidRequestError("active must be true or false"))
			return
		}
		activeOnly = parsed
	}

	games, err := h.gameController.ListGames(r.Context(), middleware.MustGetPlayerID(r.Context()), activeOnly)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.GameListFromModel(games))
}

// Get handles GET /api/v1/games/{gameId}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := model.GameID(mux.Vars(r)["gameId"])

	view, err := h.gameController.GetGame(r.Context(), middleware.MustGetPlayerID(r.Context()), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.GameDetailFromView(view))
}

// PlaceShips handles POST /api/v1/games/{gameId}/ships
func (h *GameHandler) PlaceShips(w http.ResponseWriter, r *http.Request) {
	id := model.GameID(mux.Vars(r)["gameId"])

	var req request.PlaceShipsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	rec, phase, err := h.gameController.PlaceShips(r.Context(), middleware.MustGetPlayerID(r.Context()), id, req.Ships)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.ShipsPlaced{GameID: string(rec.ID), Phase: string(phase)})
}

// Health handles GET /api/v1/health. It reads the queue so a broken
// storage backend shows up as unhealthy.
func (h *GameHandler) Health(w http.ResponseWriter, r *http.Request) {
	n, err := h.matchmaking.QueueLength(r.Context())
	if err != nil {
		h.logger.Error("health check failed", slog.String("error", err.Error()))
		response.JSON(w, http.StatusServiceUnavailable, response.Health{Status: "unavailable"})
		return
	}
	response.JSON(w, http.StatusOK, response.Health{Status: "ok", QueueLength: n})
}
