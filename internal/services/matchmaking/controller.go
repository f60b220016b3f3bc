package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/battleship-go/internal/dependencies/clock"
	"github.com/mcoot/battleship-go/internal/dependencies/random"
	"github.com/mcoot/battleship-go/internal/events"
	"github.com/mcoot/battleship-go/internal/model"
	"github.com/mcoot/battleship-go/internal/services/gamestate"
)

const (
	// claimAttempts bounds how often JoinRandom re-reads the front after losing a race
	claimAttempts = 5

	// roomAttempts bounds room code regeneration on collision
	roomAttempts = 5
)

// Config holds matchmaking limits
type Config struct {
	MaxActiveGames int
	RoomCodeLength int
}

// DefaultConfig returns the standard limits
func DefaultConfig() Config {
	return Config{
		MaxActiveGames: 10,
		RoomCodeLength: 6,
	}
}

// JoinResult describes the seat a player ended up in
type JoinResult struct {
	Game *model.GameRecord
	Role model.Role

	// Matched is true when the player filled an existing waiting game
	Matched bool
}

// Controller arbitrates random matchmaking and rejoins
type Controller struct {
	queue     *Queue
	games     *gamestate.Store
	publisher events.Publisher
	clock     clock.Clock
	random    random.Random
	cfg       Config
	logger    *slog.Logger
}

// NewController creates a matchmaking Controller
func NewController(
	queue *Queue,
	games *gamestate.Store,
	publisher events.Publisher,
	clock clock.Clock,
	random random.Random,
	cfg Config,
	logger *slog.Logger,
) *Controller {
	if cfg.MaxActiveGames <= 0 {
		cfg.MaxActiveGames = DefaultConfig().MaxActiveGames
	}
	if cfg.RoomCodeLength <= 0 {
		cfg.RoomCodeLength = DefaultConfig().RoomCodeLength
	}
	return &Controller{
		queue:     queue,
		games:     games,
		publisher: publisher,
		clock:     clock,
		random:    random,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "matchmaking")),
	}
}

// JoinRandom pairs player with the oldest waiting game, or opens a new one
func (c *Controller) JoinRandom(ctx context.Context, player model.PlayerID) (*JoinResult, error) {
	for attempt := 0; attempt < claimAttempts; attempt++ {
		front, err := c.queue.PeekFront(ctx)
		if errors.Is(err, model.ErrQueueEmpty) {
			return c.openGame(ctx, player)
		}
		if err != nil {
			return nil, err
		}

		if front.Player1 == player {
			return nil, model.ErrAlreadyQueued
		}

		if err := c.queue.Dequeue(ctx, front); err != nil {
			if errors.Is(err, model.ErrNotQueueFront) {
				c.logger.Debug("lost race for queue front",
					slog.String("game_id", string(front.GameID)),
					slog.String("player_id", string(player)),
				)
				continue
			}
			return nil, err
		}

		rec, err := c.games.SetPlayer2(ctx, front.GameID, player)
		if err != nil {
			if errors.Is(err, model.ErrGameNotFound) || errors.Is(err, model.ErrGameAlreadyComplete) || errors.Is(err, model.ErrGameFull) {
				// stale entry; it is already off the queue so try the next one
				c.logger.Warn("discarded stale queue entry",
					slog.String("game_id", string(front.GameID)),
					slog.String("error", err.Error()),
				)
				continue
			}
			c.restore(ctx, front)
			return nil, err
		}

		c.logger.Info("game matched",
			slog.String("game_id", string(rec.ID)),
			slog.String("room_id", string(rec.RoomID)),
			slog.String("player1", string(rec.Player1)),
			slog.String("player2", string(rec.Player2)),
		)
		events.PublishLogged(ctx, c.publisher, c.logger, model.NewGameEvent(model.GameEventMatched, rec, c.clock.Now()))

		return &JoinResult{Game: rec, Role: model.RolePlayer2, Matched: true}, nil
	}
	return nil, model.ErrQueueContention
}

// restore puts a claimed entry back after seating failed, so the waiting
// game stays matchable
func (c *Controller) restore(ctx context.Context, entry *model.QueueEntry) {
	if err := c.queue.Requeue(ctx, entry); err != nil {
		c.logger.Error("failed to requeue waiting game",
			slog.String("game_id", string(entry.GameID)),
			slog.String("error", err.Error()),
		)
	}
}

func (c *Controller) openGame(ctx context.Context, player model.PlayerID) (*JoinResult, error) {
	active, err := c.games.CountActiveGames(ctx, player)
	if err != nil {
		return nil, err
	}
	if active >= c.cfg.MaxActiveGames {
		return nil, &model.ActiveGameLimitError{Limit: c.cfg.MaxActiveGames}
	}

	now := c.clock.Now()
	rec := &model.GameRecord{
		ID:        model.GameID(c.random.UUID()),
		Player1:   player,
		Status:    model.GameStatusActive,
		Turn:      model.RolePlayer1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := c.createWithFreshRoom(ctx, rec); err != nil {
		return nil, err
	}

	if _, err := c.queue.Enqueue(ctx, rec); err != nil {
		if delErr := c.games.Delete(ctx, rec.ID); delErr != nil {
			c.logger.Error("failed to remove unqueued game",
				slog.String("game_id", string(rec.ID)),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, fmt.Errorf("enqueue game: %w", err)
	}

	c.logger.Info("game created",
		slog.String("game_id", string(rec.ID)),
		slog.String("room_id", string(rec.RoomID)),
		slog.String("player_id", string(player)),
	)
	events.PublishLogged(ctx, c.publisher, c.logger, model.NewGameEvent(model.GameEventCreated, rec, now))

	return &JoinResult{Game: rec, Role: model.RolePlayer1}, nil
}

func (c *Controller) createWithFreshRoom(ctx context.Context, rec *model.GameRecord) error {
	for attempt := 0; attempt < roomAttempts; attempt++ {
		rec.RoomID = model.RoomID(c.random.String(c.cfg.RoomCodeLength, random.RoomCodeAlphabet))
		_, err := c.games.Create(ctx, rec)
		if errors.Is(err, model.ErrRoomTaken) {
			continue
		}
		return err
	}
	return fmt.Errorf("no free room code after %d attempts: %w", roomAttempts, model.ErrRoomTaken)
}

// Rejoin returns the game behind room if player may re-enter it
func (c *Controller) Rejoin(ctx context.Context, player model.PlayerID, room model.RoomID) (*model.GameRecord, model.Role, error) {
	rec, err := c.games.GetRecordByRoom(ctx, room)
	if err != nil {
		return nil, "", err
	}
	role, ok := rec.RoleOf(player)
	if !ok {
		return nil, "", model.ErrNotAParticipant
	}
	if !rec.IsActive() {
		return nil, "", model.ErrGameAlreadyComplete
	}
	return rec, role, nil
}

// QueueLength reports how many games are waiting
func (c *Controller) QueueLength(ctx context.Context) (int, error) {
	return c.queue.Len(ctx)
}
