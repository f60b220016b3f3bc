package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcoot/battleship-go/internal/model"
	"github.com/mcoot/battleship-go/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Everything handed in or out is copied so callers can't mutate stored state.
type Storage struct {
	mu sync.RWMutex

	players           map[model.PlayerID]*model.Player
	registeredPlayers map[string]*model.RegisteredPlayer // keyed by username

	games    map[model.GameID]*model.GameRecord
	gameData map[model.GameID]*model.GameData
	rooms    map[model.RoomID]model.GameID

	queue    []*model.QueueEntry
	queueSeq int64
	stats    map[model.PlayerID]*model.PlayerStats
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:           make(map[model.PlayerID]*model.Player),
		registeredPlayers: make(map[string]*model.RegisteredPlayer),
		games:             make(map[model.GameID]*model.GameRecord),
		gameData:          make(map[model.GameID]*model.GameData),
		rooms:             make(map[model.RoomID]model.GameID),
		stats:             make(map[model.PlayerID]*model.PlayerStats),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *player
	s.players[player.ID] = &p
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	p := *player
	return &p, nil
}

func (s *Storage) SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := *rp
	s.registeredPlayers[rp.Username] = &r
	return nil
}

func (s *Storage) GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rp, ok := s.registeredPlayers[username]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	r := *rp
	return &r, nil
}

// Game operations

func (s *Storage) CreateGame(ctx context.Context, rec *model.GameRecord, data *model.GameData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.rooms[rec.RoomID]; taken {
		return model.ErrRoomTaken
	}
	s.games[rec.ID] = rec.Clone()
	s.gameData[rec.ID] = data.Clone()
	s.rooms[rec.RoomID] = rec.ID
	return nil
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.GameRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.games[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	return rec.Clone(), nil
}

func (s *Storage) GetGameByRoom(ctx context.Context, room model.RoomID) (*model.GameRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.rooms[room]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return s.games[id].Clone(), nil
}

func (s *Storage) GetGameData(ctx context.Context, id model.GameID) (*model.GameData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.gameData[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	return data.Clone(), nil
}

func (s *Storage) DeleteGame(ctx context.Context, id model.GameID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.games[id]; ok {
		delete(s.rooms, rec.RoomID)
	}
	delete(s.games, id)
	delete(s.gameData, id)
	return nil
}

func (s *Storage) UpdateGame(ctx context.Context, id model.GameID, fn storage.UpdateFunc) (*model.GameRecord, *model.GameData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.games[id]
	if !ok {
		return nil, nil, model.ErrGameNotFound
	}
	rec := stored.Clone()
	data := s.gameData[id].Clone()
	if err := fn(rec, data); err != nil {
		return nil, nil, err
	}
	s.games[id] = rec.Clone()
	s.gameData[id] = data.Clone()
	return rec, data, nil
}

func (s *Storage) CountActiveGames(ctx context.Context, player model.PlayerID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, rec := range s.games {
		if _, in := rec.RoleOf(player); in && rec.IsActive() {
			count++
		}
	}
	return count, nil
}

func (s *Storage) ListGamesForPlayer(ctx context.Context, player model.PlayerID) ([]*model.GameRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.GameRecord
	for _, rec := range s.games {
		if _, in := rec.RoleOf(player); in {
			out = append(out, rec.Clone())
		}
	}
	storage.SortNewestFirst(out)
	return out, nil
}

// Queue operations

func (s *Storage) Enqueue(ctx context.Context, entry *model.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queueSeq++
	entry.CreatedOrder = s.queueSeq
	e := *entry
	s.queue = append(s.queue, &e)
	return nil
}

func (s *Storage) PeekFront(ctx context.Context) (*model.QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.queue) == 0 {
		return nil, model.ErrQueueEmpty
	}
	e := *s.queue[0]
	return &e, nil
}

func (s *Storage) DequeueFront(ctx context.Context, gameID model.GameID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 || s.queue[0].GameID != gameID {
		return model.ErrNotQueueFront
	}
	s.queue[0] = nil
	s.queue = s.queue[1:]
	if len(s.queue) == 0 {
		s.queue = nil
	}
	return nil
}

func (s *Storage) Requeue(ctx context.Context, entry *model.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, queued := range s.queue {
		if queued.GameID == entry.GameID {
			return nil
		}
	}
	i := sort.Search(len(s.queue), func(i int) bool {
		return s.queue[i].CreatedOrder > entry.CreatedOrder
	})
	e := *entry
	s.queue = append(s.queue, nil)
	copy(s.queue[i+1:], s.queue[i:])
	s.queue[i] = &e
	return nil
}

func (s *Storage) QueueLen(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.queue), nil
}

// Stats operations

func (s *Storage) RecordWin(ctx context.Context, player model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statsFor(player).Wins++
	return nil
}

func (s *Storage) RecordLoss(ctx context.Context, player model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statsFor(player).Losses++
	return nil
}

func (s *Storage) GetStats(ctx context.Context, player model.PlayerID) (*model.PlayerStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stats[player]
	if !ok {
		return &model.PlayerStats{PlayerID: player}, nil
	}
	out := *st
	return &out, nil
}

// statsFor must be called with the write lock held
func (s *Storage) statsFor(player model.PlayerID) *model.PlayerStats {
	st, ok := s.stats[player]
	if !ok {
		st = &model.PlayerStats{PlayerID: player}
		s.stats[player] = st
	}
	return st
}

