package storage

import (
	"context"

	"github.com/mcoot/battleship-go/internal/model"
)

// Storage is the full persistence surface used by the server
type Storage interface {
	PlayerStore
	GameStore
	QueueStore
	StatsStore
}

// PlayerStore persists players and their login data
type PlayerStore interface {
	SavePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)

	SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error
	GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error)
}

// UpdateFunc mutates a game in place. It receives copies of the stored
// record and data; returning an error discards every change.
type UpdateFunc func(rec *model.GameRecord, data *model.GameData) error

// GameStore persists GameRecord and GameData together
type GameStore interface {
	// CreateGame stores a new record and its data. Fails with ErrRoomTaken
	// if any game already uses the room.
	CreateGame(ctx context.Context, rec *model.GameRecord, data *model.GameData) error
	GetGame(ctx context.Context, id model.GameID) (*model.GameRecord, error)
	GetGameByRoom(ctx context.Context, room model.RoomID) (*model.GameRecord, error)
	GetGameData(ctx context.Context, id model.GameID) (*model.GameData, error)
	DeleteGame(ctx context.Context, id model.GameID) error

	// UpdateGame applies fn atomically with respect to every other update
	// of the same game and returns the committed state
	UpdateGame(ctx context.Context, id model.GameID, fn UpdateFunc) (*model.GameRecord, *model.GameData, error)

	// Per-player queries
	CountActiveGames(ctx context.Context, player model.PlayerID) (int, error)
	ListGamesForPlayer(ctx context.Context, player model.PlayerID) ([]*model.GameRecord, error)
}

// QueueStore is the FIFO of games waiting for a second player
type QueueStore interface {
	// Enqueue appends an entry and assigns its CreatedOrder
	Enqueue(ctx context.Context, entry *model.QueueEntry) error
	// PeekFront returns the oldest entry or ErrQueueEmpty
	PeekFront(ctx context.Context) (*model.QueueEntry, error)
	// DequeueFront removes gameID only if it is the current front, else ErrNotQueueFront
	DequeueFront(ctx context.Context, gameID model.GameID) error
	// Requeue puts back an entry taken by DequeueFront, keeping its CreatedOrder
	Requeue(ctx context.Context, entry *model.QueueEntry) error
	QueueLen(ctx context.Context) (int, error)
}

// StatsStore keeps per-player win/loss counters
type StatsStore interface {
	RecordWin(ctx context.Context, player model.PlayerID) error
	RecordLoss(ctx context.Context, player model.PlayerID) error
	GetStats(ctx context.Context, player model.PlayerID) (*model.PlayerStats, error)
}
