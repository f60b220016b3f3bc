// Package gamestate is the authoritative read-modify-write layer over game
// records. Every mutation of a game passes through Store.Transact, which holds
// a per-game lock in-process and relies on the storage backend's atomic
// UpdateGame across processes.
package gamestate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mcoot/battleship-go/internal/dependencies/clock"
	"github.com/mcoot/battleship-go/internal/model"
	"github.com/mcoot/battleship-go/internal/storage"
)

// StatsRecorder receives the result of every completed game
type StatsRecorder interface {
	RecordWin(ctx context.Context, player model.PlayerID) error
	RecordLoss(ctx context.Context, player model.PlayerID) error
}

// Store owns GameRecord and GameData
type Store struct {
	games  storage.GameStore
	stats  StatsRecorder
	locks  *keyedMutex
	clock  clock.Clock
	logger *slog.Logger
}

// New creates a Store
func New(games storage.GameStore, stats StatsRecorder, clock clock.Clock, logger *slog.Logger) *Store {
	return &Store{
		games:  games,
		stats:  stats,
		locks:  newKeyedMutex(),
		clock:  clock,
		logger: logger.With(slog.String("component", "gamestate")),
	}
}

// Reads

func (s *Store) GetRecord(ctx context.Context, id model.GameID) (*model.GameRecord, error) {
	return s.games.GetGame(ctx, id)
}

func (s *Store) GetRecordByRoom(ctx context.Context, room model.RoomID) (*model.GameRecord, error) {
	return s.games.GetGameByRoom(ctx, room)
}

func (s *Store) GetData(ctx context.Context, id model.GameID) (*model.GameData, error) {
	return s.games.GetGameData(ctx, id)
}

func (s *Store) CountActiveGames(ctx context.Context, player model.PlayerID) (int, error) {
	return s.games.CountActiveGames(ctx, player)
}

func (s *Store) ListGamesForPlayer(ctx context.Context, player model.PlayerID) ([]*model.GameRecord, error) {
	return s.games.ListGamesForPlayer(ctx, player)
}

// Lifecycle

// Create stores a new game with empty board state
func (s *Store) Create(ctx context.Context, rec *model.GameRecord) (*model.GameData, error) {
	data := model.NewGameData(rec.ID)
	if err := s.games.CreateGame(ctx, rec, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Delete removes a game. Only used to undo a creation that could not be queued.
func (s *Store) Delete(ctx context.Context, id model.GameID) error {
	return s.games.DeleteGame(ctx, id)
}

// Transact applies fn to the game atomically and returns the committed state.
// fn sees copies; an error from fn or a broken invariant commits nothing.
// When the game moves to complete, win/loss stats are recorded after commit.
func (s *Store) Transact(ctx context.Context, id model.GameID, fn storage.UpdateFunc) (*model.GameRecord, *model.GameData, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	var wasActive bool
	rec, data, err := s.games.UpdateGame(ctx, id, func(rec *model.GameRecord, data *model.GameData) error {
		before := rec.Clone()
		wasActive = before.IsActive()
		if err := fn(rec, data); err != nil {
			return err
		}
		if err := checkTransition(before, rec); err != nil {
			return err
		}
		rec.UpdatedAt = s.clock.Now()
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if wasActive && !rec.IsActive() {
		s.recordResult(ctx, rec)
	}
	return rec, data, nil
}

func checkTransition(before, after *model.GameRecord) error {
	switch {
	case after.ID != before.ID || after.RoomID != before.RoomID || after.Player1 != before.Player1:
		return fmt.Errorf("game %s: identity fields are immutable", before.ID)
	case !before.IsActive() && after.IsActive():
		return fmt.Errorf("game %s: %w", before.ID, model.ErrGameAlreadyComplete)
	case !after.IsActive() && !after.Winner.Valid():
		return fmt.Errorf("game %s: completed without a winner", before.ID)
	case before.HasOpponent() && after.Player2 != before.Player2:
		return fmt.Errorf("game %s: %w", before.ID, model.ErrGameFull)
	case after.Player2 != "" && after.Player2 == after.Player1:
		return fmt.Errorf("game %s: %w", before.ID, model.ErrCannotPlaySelf)
	}
	return nil
}

func (s *Store) recordResult(ctx context.Context, rec *model.GameRecord) {
	winner := rec.PlayerFor(rec.Winner)
	loser := rec.PlayerFor(rec.Winner.Opponent())

	if err := s.stats.RecordWin(ctx, winner); err != nil {
		s.logger.Error("failed to record win",
			slog.String("game_id", string(rec.ID)),
			slog.String("player_id", string(winner)),
			slog.String("error", err.Error()),
		)
	}
	if loser == "" {
		return
	}
	if err := s.stats.RecordLoss(ctx, loser); err != nil {
		s.logger.Error("failed to record loss",
			slog.String("game_id", string(rec.ID)),
			slog.String("player_id", string(loser)),
			slog.String("error", err.Error()),
		)
	}
}

// Single-purpose mutations

func requireActive(rec *model.GameRecord) error {
	if !rec.IsActive() {
		return model.ErrGameAlreadyComplete
	}
	return nil
}

// Mutation steps. The Store operations below and callers composing their own
// Transact both apply changes through these.

// ApplyShot appends c to role's hits or misses
func ApplyShot(data *model.GameData, role model.Role, c model.Coordinate, result model.ShotResult) {
	b := data.Board(role)
	if result == model.ShotHit {
		b.Hits = append(b.Hits, c)
		return
	}
	b.Misses = append(b.Misses, c)
}

// ApplyShips sets role's layout, which may only happen once
func ApplyShips(data *model.GameData, role model.Role, ships []model.Ship) error {
	b := data.Board(role)
	if b.ShipsPlaced() {
		return model.ErrShipsAlreadyPlaced
	}
	b.Ships = ships
	return nil
}

// AppendHit records a hit fired by role
func (s *Store) AppendHit(ctx context.Context, id model.GameID, role model.Role, c model.Coordinate) error {
	return s.appendShot(ctx, id, role, c, model.ShotHit)
}

// AppendMiss records a miss fired by role
func (s *Store) AppendMiss(ctx context.Context, id model.GameID, role model.Role, c model.Coordinate) error {
	return s.appendShot(ctx, id, role, c, model.ShotMiss)
}

func (s *Store) appendShot(ctx context.Context, id model.GameID, role model.Role, c model.Coordinate, result model.ShotResult) error {
	_, _, err := s.Transact(ctx, id, func(rec *model.GameRecord, data *model.GameData) error {
		if err := requireActive(rec); err != nil {
			return err
		}
		ApplyShot(data, role, c, result)
		return nil
	})
	return err
}

// SwapTurn hands the turn to the other seat
func (s *Store) SwapTurn(ctx context.Context, id model.GameID) error {
	_, _, err := s.Transact(ctx, id, func(rec *model.GameRecord, _ *model.GameData) error {
		rec.SwapTurn()
		return nil
	})
	return err
}

// MarkComplete ends the game with winner and records stats
func (s *Store) MarkComplete(ctx context.Context, id model.GameID, winner model.Role) (*model.GameRecord, error) {
	rec, _, err := s.Transact(ctx, id, func(rec *model.GameRecord, _ *model.GameData) error {
		if err := requireActive(rec); err != nil {
			return err
		}
		rec.Complete(winner, s.clock.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("game completed",
		slog.String("game_id", string(id)),
		slog.String("winner", string(rec.WinnerID())),
	)
	return rec, nil
}

// SetPlayer2 seats the matched opponent
func (s *Store) SetPlayer2(ctx context.Context, id model.GameID, player model.PlayerID) (*model.GameRecord, error) {
	rec, _, err := s.Transact(ctx, id, func(rec *model.GameRecord, _ *model.GameData) error {
		if err := requireActive(rec); err != nil {
			return err
		}
		if rec.HasOpponent() {
			return model.ErrGameFull
		}
		if rec.Player1 == player {
			return model.ErrCannotPlaySelf
		}
		rec.Player2 = player
		return nil
	})
	return rec, err
}

// SetShips stores role's layout. Layouts are write-once.
func (s *Store) SetShips(ctx context.Context, id model.GameID, role model.Role, ships []model.Ship) (*model.GameRecord, *model.GameData, error) {
	return s.Transact(ctx, id, func(rec *model.GameRecord, data *model.GameData) error {
		if err := requireActive(rec); err != nil {
			return err
		}
		return ApplyShips(data, role, ships)
	})
}
