package game

import (
	"context"
	"log/slog"

	"github.com/mcoot/battleship-go/internal/dependencies/clock"
	"github.com/mcoot/battleship-go/internal/events"
	"github.com/mcoot/battleship-go/internal/model"
	"github.com/mcoot/battleship-go/internal/services/board"
	"github.com/mcoot/battleship-go/internal/services/gamestate"
	"github.com/mcoot/battleship-go/internal/storage"
)

// Config controls optional rules
type Config struct {
	// EnforceTurnOrder rejects shots fired out of turn. Off by default:
	// the turn field is tracked either way.
	EnforceTurnOrder bool
}

// ShotOutcome is the committed result of one shot
type ShotOutcome struct {
	Game    *model.GameRecord
	Shooter model.Role
	Target  model.Coordinate
	Result  model.ShotResult
	ShipID  string
}

// Won reports whether this shot ended the game
func (o *ShotOutcome) Won() bool {
	return !o.Game.IsActive() && o.Game.Winner == o.Shooter
}

// OpponentView is what a player may see of the other side
type OpponentView struct {
	PlayerID    model.PlayerID     `json:"playerId,omitempty"`
	ShipsPlaced bool               `json:"shipsPlaced"`
	Hits        []model.Coordinate `json:"hits"`
	Misses      []model.Coordinate `json:"misses"`
}

// GameView is a participant's snapshot of a game. Opponent ships are never included.
type GameView struct {
	Game     *model.GameRecord `json:"game"`
	Role     model.Role        `json:"role"`
	Phase    model.Phase       `json:"phase"`
	Own      model.PlayerBoard `json:"own"`
	Opponent OpponentView      `json:"opponent"`
}

// Controller runs the in-game rules: ship placement and firing
type Controller struct {
	games     *gamestate.Store
	stats     storage.StatsStore
	publisher events.Publisher
	clock     clock.Clock
	cfg       Config
	logger    *slog.Logger
}

// NewController creates a new game Controller
func NewController(
	games *gamestate.Store,
	stats storage.StatsStore,
	publisher events.Publisher,
	clock clock.Clock,
	cfg Config,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		games:     games,
		stats:     stats,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "game")),
	}
}

// Fire resolves a shot by player. Checks run in a fixed order and the first
// failure wins; a rejected shot changes nothing.
func (c *Controller) Fire(ctx context.Context, player model.PlayerID, req model.FireRequest) (*ShotOutcome, error) {
	outcome := &ShotOutcome{Target: req.Target}

	rec, _, err := c.games.Transact(ctx, req.GameID, func(rec *model.GameRecord, data *model.GameData) error {
		if !rec.IsActive() {
			return model.ErrGameAlreadyComplete
		}
		role, ok := rec.RoleOf(player)
		if !ok {
			return model.ErrNotAParticipant
		}
		if rec.RoomID != req.RoomID {
			return model.ErrRoomMismatch
		}
		if !data.Board(role.Opponent()).ShipsPlaced() {
			return model.ErrOpponentNotReady
		}
		if c.cfg.EnforceTurnOrder && rec.Turn != role {
			return model.ErrNotYourTurn
		}
		shooter := data.Board(role)
		if err := board.ValidateTarget(req.Target, shooter); err != nil {
			return err
		}

		verdict := board.CheckForHit(req.Target, data.Board(role.Opponent()).Ships)
		gamestate.ApplyShot(data, role, req.Target, verdict.Result)
		if board.HasWon(shooter) {
			rec.Complete(role, c.clock.Now())
		}
		rec.SwapTurn()

		outcome.Shooter = role
		outcome.Result = verdict.Result
		outcome.ShipID = verdict.ShipID
		return nil
	})
	if err != nil {
		c.logger.Debug("shot rejected",
			slog.String("game_id", string(req.GameID)),
			slog.String("player_id", string(player)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	outcome.Game = rec

	if outcome.Won() {
		c.logger.Info("game won",
			slog.String("game_id", string(rec.ID)),
			slog.String("room_id", string(rec.RoomID)),
			slog.String("winner", string(player)),
		)
		events.PublishLogged(ctx, c.publisher, c.logger, model.NewGameEvent(model.GameEventCompleted, rec, c.clock.Now()))
	}
	return outcome, nil
}

// PlaceShips stores player's layout for the game. Each side may place once.
func (c *Controller) PlaceShips(ctx context.Context, player model.PlayerID, gameID model.GameID, ships []model.Ship) (*model.GameRecord, model.Phase, error) {
	rec, err := c.games.GetRecord(ctx, gameID)
	if err != nil {
		return nil, "", err
	}
	if !rec.IsActive() {
		return nil, "", model.ErrGameAlreadyComplete
	}
	// a seat never changes hands once taken, so the role read here stays valid
	role, ok := rec.RoleOf(player)
	if !ok {
		return nil, "", model.ErrNotAParticipant
	}
	if err := board.ValidateFleet(ships); err != nil {
		return nil, "", err
	}

	rec, data, err := c.games.SetShips(ctx, gameID, role, ships)
	if err != nil {
		return nil, "", err
	}

	phase := model.PhaseOf(rec, data)
	c.logger.Info("ships placed",
		slog.String("game_id", string(gameID)),
		slog.String("player_id", string(player)),
		slog.String("phase", string(phase)),
	)
	return rec, phase, nil
}

// GetGame returns player's view of a game they take part in
func (c *Controller) GetGame(ctx context.Context, player model.PlayerID, id model.GameID) (*GameView, error) {
	rec, err := c.games.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	role, ok := rec.RoleOf(player)
	if !ok {
		return nil, model.ErrNotAParticipant
	}
	data, err := c.games.GetData(ctx, id)
	if err != nil {
		return nil, err
	}

	theirs := data.Board(role.Opponent())
	return &GameView{
		Game:  rec,
		Role:  role,
		Phase: model.PhaseOf(rec, data),
		Own:   data.Board(role).Clone(),
		Opponent: OpponentView{
			PlayerID:    rec.PlayerFor(role.Opponent()),
			ShipsPlaced: theirs.ShipsPlaced(),
			Hits:        append([]model.Coordinate{}, theirs.Hits...),
			Misses:      append([]model.Coordinate{}, theirs.Misses...),
		},
	}, nil
}

// ListGames returns player's games, newest first
func (c *Controller) ListGames(ctx context.Context, player model.PlayerID, activeOnly bool) ([]*model.GameRecord, error) {
	games, err := c.games.ListGamesForPlayer(ctx, player)
	if err != nil {
		return nil, err
	}
	if !activeOnly {
		return games, nil
	}
	active := make([]*model.GameRecord, 0, len(games))
	for _, g := range games {
		if g.IsActive() {
			active = append(active, g)
		}
	}
	return active, nil
}

// Stats returns player's win/loss record
func (c *Controller) Stats(ctx context.Context, player model.PlayerID) (*model.PlayerStats, error) {
	return c.stats.GetStats(ctx, player)
}
