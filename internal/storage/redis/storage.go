package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/battleship-go/internal/model"
	"github.com/mcoot/battleship-go/internal/storage"
)

// peekAttempts bounds re-reads when the front entry vanishes between ZRANGE and GET
const peekAttempts = 5

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	if cfg.MaxUpdateRetries <= 0 {
		cfg.MaxUpdateRetries = DefaultConfig().MaxUpdateRetries
	}
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// getter is satisfied by both *redis.Client and *redis.Tx
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getJSON[T any](ctx context.Context, g getter, key string, notFound error) (*T, error) {
	raw, err := g.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, notFound
		}
		return nil, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &out, nil
}

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}

	var ttl time.Duration
	if player.IsGuest {
		ttl = s.cfg.GuestPlayerTTL
	}
	return s.client.Set(ctx, playerKey(player.ID), data, ttl).Err()
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	return getJSON[model.Player](ctx, s.client, playerKey(id), model.ErrPlayerNotFound)
}

func (s *Storage) SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error {
	data, err := json.Marshal(rp)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, registeredPlayerKey(rp.Username), data, 0).Err()
}

func (s *Storage) GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error) {
	return getJSON[model.RegisteredPlayer](ctx, s.client, registeredPlayerKey(username), model.ErrPlayerNotFound)
}

// Game operations

func (s *Storage) CreateGame(ctx context.Context, rec *model.GameRecord, data *model.GameData) error {
	recJSON, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return err
	}

	claimed, err := s.client.SetNX(ctx, roomKey(rec.RoomID), string(rec.ID), 0).Result()
	if err != nil {
		return err
	}
	if !claimed {
		return model.ErrRoomTaken
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, gameKey(rec.ID), recJSON, s.gameTTL(rec))
		pipe.Set(ctx, gameDataKey(rec.ID), dataJSON, s.gameTTL(rec))
		s.writeIndexes(ctx, pipe, rec)
		return nil
	})
	if err != nil {
		s.client.Del(ctx, roomKey(rec.RoomID))
		return err
	}
	return nil
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.GameRecord, error) {
	return getJSON[model.GameRecord](ctx, s.client, gameKey(id), model.ErrGameNotFound)
}

func (s *Storage) GetGameByRoom(ctx context.Context, room model.RoomID) (*model.GameRecord, error) {
	id, err := s.client.Get(ctx, roomKey(room)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRoomNotFound
		}
		return nil, err
	}
	return getJSON[model.GameRecord](ctx, s.client, gameKey(model.GameID(id)), model.ErrRoomNotFound)
}

func (s *Storage) GetGameData(ctx context.Context, id model.GameID) (*model.GameData, error) {
	return getJSON[model.GameData](ctx, s.client, gameDataKey(id), model.ErrGameNotFound)
}

func (s *Storage) DeleteGame(ctx context.Context, id model.GameID) error {
	rec, err := s.GetGame(ctx, id)
	if errors.Is(err, model.ErrGameNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, gameKey(id), gameDataKey(id), roomKey(rec.RoomID))
		for _, p := range seatedPlayers(rec) {
			pipe.SRem(ctx, playerGamesKey(p), string(id))
			pipe.SRem(ctx, playerActiveGamesKey(p), string(id))
		}
		return nil
	})
	return err
}

// UpdateGame runs fn inside WATCH/MULTI on the game's keys and retries when
// another writer commits first
func (s *Storage) UpdateGame(ctx context.Context, id model.GameID, fn storage.UpdateFunc) (*model.GameRecord, *model.GameData, error) {
	var committedRec *model.GameRecord
	var committedData *model.GameData

	txf := func(tx *redis.Tx) error {
		rec, err := getJSON[model.GameRecord](ctx, tx, gameKey(id), model.ErrGameNotFound)
		if err != nil {
			return err
		}
		data, err := getJSON[model.GameData](ctx, tx, gameDataKey(id), model.ErrGameNotFound)
		if err != nil {
			return err
		}

		if err := fn(rec, data); err != nil {
			return err
		}

		recJSON, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		dataJSON, err := json.Marshal(data)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, gameKey(id), recJSON, s.gameTTL(rec))
			pipe.Set(ctx, gameDataKey(id), dataJSON, s.gameTTL(rec))
			s.writeIndexes(ctx, pipe, rec)
			return nil
		})
		if err != nil {
			return err
		}
		committedRec, committedData = rec, data
		return nil
	}

	for attempt := 0; attempt < s.cfg.MaxUpdateRetries; attempt++ {
		err := s.client.Watch(ctx, txf, gameKey(id), gameDataKey(id))
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		return committedRec, committedData, nil
	}
	return nil, nil, fmt.Errorf("update game %s: %w", id, model.ErrConflict)
}

func (s *Storage) CountActiveGames(ctx context.Context, player model.PlayerID) (int, error) {
	n, err := s.client.SCard(ctx, playerActiveGamesKey(player)).Result()
	return int(n), err
}

func (s *Storage) ListGamesForPlayer(ctx context.Context, player model.PlayerID) ([]*model.GameRecord, error) {
	ids, err := s.client.SMembers(ctx, playerGamesKey(player)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = gameKey(model.GameID(id))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	games := make([]*model.GameRecord, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// expired completed game still referenced by the index
			continue
		}
		var rec model.GameRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, err
		}
		games = append(games, &rec)
	}
	storage.SortNewestFirst(games)
	return games, nil
}

func (s *Storage) gameTTL(rec *model.GameRecord) time.Duration {
	if rec.IsActive() {
		return 0
	}
	return s.cfg.CompletedGameTTL
}

func (s *Storage) writeIndexes(ctx context.Context, pipe redis.Pipeliner, rec *model.GameRecord) {
	for _, p := range seatedPlayers(rec) {
		pipe.SAdd(ctx, playerGamesKey(p), string(rec.ID))
		if rec.IsActive() {
			pipe.SAdd(ctx, playerActiveGamesKey(p), string(rec.ID))
		} else {
			pipe.SRem(ctx, playerActiveGamesKey(p), string(rec.ID))
		}
	}
}

func seatedPlayers(rec *model.GameRecord) []model.PlayerID {
	if rec.Player2 == "" {
		return []model.PlayerID{rec.Player1}
	}
	return []model.PlayerID{rec.Player1, rec.Player2}
}

// Queue operations

func (s *Storage) Enqueue(ctx context.Context, entry *model.QueueEntry) error {
	seq, err := s.client.Incr(ctx, queueSeqKey()).Result()
	if err != nil {
		return err
	}
	entry.CreatedOrder = seq

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, queueEntryKey(entry.GameID), data, 0)
		pipe.ZAdd(ctx, queueKey(), redis.Z{Score: float64(seq), Member: string(entry.GameID)})
		return nil
	})
	return err
}

func (s *Storage) PeekFront(ctx context.Context) (*model.QueueEntry, error) {
	for attempt := 0; attempt < peekAttempts; attempt++ {
		ids, err := s.client.ZRange(ctx, queueKey(), 0, 0).Result()
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, model.ErrQueueEmpty
		}

		entry, err := getJSON[model.QueueEntry](ctx, s.client, queueEntryKey(model.GameID(ids[0])), model.ErrNotQueueFront)
		if errors.Is(err, model.ErrNotQueueFront) {
			// claimed between ZRANGE and GET; look again
			continue
		}
		return entry, err
	}
	return nil, model.ErrQueueEmpty
}

func (s *Storage) DequeueFront(ctx context.Context, gameID model.GameID) error {
	removed, err := dequeueFrontScript.Run(ctx, s.client,
		[]string{queueKey(), queueEntryKey(gameID)}, string(gameID)).Int()
	if err != nil {
		return err
	}
	if removed == 0 {
		return model.ErrNotQueueFront
	}
	return nil
}

// Requeue restores entry at its original score. ZADD NX leaves an entry
// that is somehow still queued untouched.
func (s *Storage) Requeue(ctx context.Context, entry *model.QueueEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, queueEntryKey(entry.GameID), data, 0)
		pipe.ZAddNX(ctx, queueKey(), redis.Z{Score: float64(entry.CreatedOrder), Member: string(entry.GameID)})
		return nil
	})
	return err
}

func (s *Storage) QueueLen(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, queueKey()).Result()
	return int(n), err
}

// Stats operations

func (s *Storage) RecordWin(ctx context.Context, player model.PlayerID) error {
	return s.client.HIncrBy(ctx, statsKey(player), "wins", 1).Err()
}

func (s *Storage) RecordLoss(ctx context.Context, player model.PlayerID) error {
	return s.client.HIncrBy(ctx, statsKey(player), "losses", 1).Err()
}

func (s *Storage) GetStats(ctx context.Context, player model.PlayerID) (*model.PlayerStats, error) {
	fields, err := s.client.HGetAll(ctx, statsKey(player)).Result()
	if err != nil {
		return nil, err
	}
	stats := &model.PlayerStats{PlayerID: player}
	if v, ok := fields["wins"]; ok {
		if stats.Wins, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("decode wins: %w", err)
		}
	}
	if v, ok := fields["losses"]; ok {
		if stats.Losses, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("decode losses: %w", err)
		}
	}
	return stats, nil
}
