package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcoot/battleship-go/internal/model"
	"github.com/mcoot/battleship-go/internal/storage"
)

const uniqueViolation = "23505"

const gameColumns = `id, room_id, player1, player2, status, turn, winner, created_at, updated_at, completed_at`

// Storage is a Postgres-backed implementation of the storage interface
type Storage struct {
	pool *pgxpool.Pool
}

// New connects to Postgres, optionally applies migrations, and verifies the pool
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Storage, error) {
	if cfg.MigrateOnStart {
		m, err := NewMigrator(cfg.URL, logger)
		if err != nil {
			return nil, err
		}
		upErr := m.Up()
		closeErr := m.Close()
		if err := errors.Join(upErr, closeErr); err != nil {
			return nil, err
		}
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return NewWithPool(pool), nil
}

// NewWithPool wraps an existing pool (for testing)
func NewWithPool(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}

// Close closes the pool
func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO players (id, display_name, is_guest, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name, is_guest = EXCLUDED.is_guest`,
		string(player.ID), player.DisplayName, player.IsGuest, player.CreatedAt)
	return err
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	var p model.Player
	var pid string
	err := s.pool.QueryRow(ctx,
		`SELECT id, display_name, is_guest, created_at FROM players WHERE id = $1`, string(id)).
		Scan(&pid, &p.DisplayName, &p.IsGuest, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	p.ID = model.PlayerID(pid)
	return &p, nil
}

func (s *Storage) SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO registered_players (username, player_id, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash, updated_at = EXCLUDED.updated_at`,
		rp.Username, string(rp.PlayerID), rp.PasswordHash, rp.CreatedAt, rp.UpdatedAt)
	return err
}

func (s *Storage) GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error) {
	var rp model.RegisteredPlayer
	var pid string
	err := s.pool.QueryRow(ctx, `
		SELECT username, player_id, password_hash, created_at, updated_at
		FROM registered_players WHERE username = $1`, username).
		Scan(&rp.Username, &pid, &rp.PasswordHash, &rp.CreatedAt, &rp.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	rp.PlayerID = model.PlayerID(pid)
	return &rp, nil
}

// Game operations

func (s *Storage) CreateGame(ctx context.Context, rec *model.GameRecord, data *model.GameData) error {
	p1, p2, err := encodeBoards(data)
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO games (`+gameColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			string(rec.ID), string(rec.RoomID), string(rec.Player1), string(rec.Player2),
			string(rec.Status), string(rec.Turn), string(rec.Winner),
			rec.CreatedAt, rec.UpdatedAt, rec.CompletedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "games_room_id_key" {
				return model.ErrRoomTaken
			}
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO game_data (game_id, player1, player2) VALUES ($1, $2, $3)`,
			string(rec.ID), p1, p2)
		return err
	})
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.GameRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1`, string(id))
	return scanGame(row, model.ErrGameNotFound)
}

func (s *Storage) GetGameByRoom(ctx context.Context, room model.RoomID) (*model.GameRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE room_id = $1`, string(room))
	return scanGame(row, model.ErrRoomNotFound)
}

func (s *Storage) GetGameData(ctx context.Context, id model.GameID) (*model.GameData, error) {
	return loadData(ctx, s.pool, id)
}

func (s *Storage) DeleteGame(ctx context.Context, id model.GameID) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM matchmaking_queue WHERE game_id = $1`, string(id)); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM games WHERE id = $1`, string(id))
		return err
	})
}

// UpdateGame locks the game row for the duration of fn
func (s *Storage) UpdateGame(ctx context.Context, id model.GameID, fn storage.UpdateFunc) (*model.GameRecord, *model.GameData, error) {
	var rec *model.GameRecord
	var data *model.GameData

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		row := tx.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1 FOR UPDATE`, string(id))
		if rec, err = scanGame(row, model.ErrGameNotFound); err != nil {
			return err
		}
		if data, err = loadData(ctx, tx, id); err != nil {
			return err
		}

		if err := fn(rec, data); err != nil {
			return err
		}

		p1, p2, err := encodeBoards(data)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE games
			SET player2 = $2, status = $3, turn = $4, winner = $5, updated_at = $6, completed_at = $7
			WHERE id = $1`,
			string(id), string(rec.Player2), string(rec.Status), string(rec.Turn), string(rec.Winner),
			rec.UpdatedAt, rec.CompletedAt)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE game_data SET player1 = $2, player2 = $3 WHERE game_id = $1`, string(id), p1, p2)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return rec, data, nil
}

func (s *Storage) CountActiveGames(ctx context.Context, player model.PlayerID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM games
		WHERE status = $2 AND (player1 = $1 OR player2 = $1)`,
		string(player), string(model.GameStatusActive)).Scan(&n)
	return n, err
}

func (s *Storage) ListGamesForPlayer(ctx context.Context, player model.PlayerID) ([]*model.GameRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+gameColumns+` FROM games
		WHERE player1 = $1 OR player2 = $1
		ORDER BY created_at DESC, id ASC`, string(player))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []*model.GameRecord
	for rows.Next() {
		rec, err := scanGame(rows, model.ErrGameNotFound)
		if err != nil {
			return nil, err
		}
		games = append(games, rec)
	}
	return games, rows.Err()
}

// Queue operations

func (s *Storage) Enqueue(ctx context.Context, entry *model.QueueEntry) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO matchmaking_queue (game_id, room_id, player1, enqueued_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_order`,
		string(entry.GameID), string(entry.RoomID), string(entry.Player1), entry.EnqueuedAt).
		Scan(&entry.CreatedOrder)
}

func (s *Storage) PeekFront(ctx context.Context) (*model.QueueEntry, error) {
	var e model.QueueEntry
	var gameID, roomID, player1 string
	err := s.pool.QueryRow(ctx, `
		SELECT game_id, room_id, player1, created_order, enqueued_at
		FROM matchmaking_queue ORDER BY created_order LIMIT 1`).
		Scan(&gameID, &roomID, &player1, &e.CreatedOrder, &e.EnqueuedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrQueueEmpty
	}
	if err != nil {
		return nil, err
	}
	e.GameID, e.RoomID, e.Player1 = model.GameID(gameID), model.RoomID(roomID), model.PlayerID(player1)
	return &e, nil
}

// DequeueFront deletes the row only while it is the minimum. A concurrent
// claimer blocks on the row lock and then finds it gone.
func (s *Storage) DequeueFront(ctx context.Context, gameID model.GameID) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM matchmaking_queue
		WHERE game_id = $1
		  AND created_order = (SELECT min(created_order) FROM matchmaking_queue)`,
		string(gameID))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotQueueFront
	}
	return nil
}

// Requeue reinserts entry with its original created_order so it keeps its place
func (s *Storage) Requeue(ctx context.Context, entry *model.QueueEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO matchmaking_queue (game_id, room_id, player1, created_order, enqueued_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (game_id) DO NOTHING`,
		string(entry.GameID), string(entry.RoomID), string(entry.Player1), entry.CreatedOrder, entry.EnqueuedAt)
	return err
}

func (s *Storage) QueueLen(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM matchmaking_queue`).Scan(&n)
	return n, err
}

// Stats operations

func (s *Storage) RecordWin(ctx context.Context, player model.PlayerID) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO player_stats (player_id, wins) VALUES ($1, 1)
		ON CONFLICT (player_id) DO UPDATE SET wins = player_stats.wins + 1`, string(player))
	return err
}

func (s *Storage) RecordLoss(ctx context.Context, player model.PlayerID) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO player_stats (player_id, losses) VALUES ($1, 1)
		ON CONFLICT (player_id) DO UPDATE SET losses = player_stats.losses + 1`, string(player))
	return err
}

func (s *Storage) GetStats(ctx context.Context, player model.PlayerID) (*model.PlayerStats, error) {
	stats := &model.PlayerStats{PlayerID: player}
	err := s.pool.QueryRow(ctx,
		`SELECT wins, losses FROM player_stats WHERE player_id = $1`, string(player)).
		Scan(&stats.Wins, &stats.Losses)
	if errors.Is(err, pgx.ErrNoRows) {
		return stats, nil
	}
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Helpers

func scanGame(row pgx.Row, notFound error) (*model.GameRecord, error) {
	var rec model.GameRecord
	var id, room, p1, p2, status, turn, winner string
	err := row.Scan(&id, &room, &p1, &p2, &status, &turn, &winner, &rec.CreatedAt, &rec.UpdatedAt, &rec.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound
	}
	if err != nil {
		return nil, err
	}
	rec.ID = model.GameID(id)
	rec.RoomID = model.RoomID(room)
	rec.Player1 = model.PlayerID(p1)
	rec.Player2 = model.PlayerID(p2)
	rec.Status = model.GameStatus(status)
	rec.Turn = model.Role(turn)
	rec.Winner = model.Role(winner)
	return &rec, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func loadData(ctx context.Context, q querier, id model.GameID) (*model.GameData, error) {
	var p1, p2 []byte
	err := q.QueryRow(ctx, `SELECT player1, player2 FROM game_data WHERE game_id = $1`, string(id)).Scan(&p1, &p2)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	data := &model.GameData{GameID: id}
	if err := json.Unmarshal(p1, &data.Player1); err != nil {
		return nil, fmt.Errorf("decode player1 board: %w", err)
	}
	if err := json.Unmarshal(p2, &data.Player2); err != nil {
		return nil, fmt.Errorf("decode player2 board: %w", err)
	}
	return data, nil
}

func encodeBoards(data *model.GameData) ([]byte, []byte, error) {
	p1, err := json.Marshal(data.Player1)
	if err != nil {
		return nil, nil, err
	}
	p2, err := json.Marshal(data.Player2)
	if err != nil {
		return nil, nil, err
	}
	return p1, p2, nil
}
