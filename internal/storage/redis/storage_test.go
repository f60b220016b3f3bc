package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/battleship-go/internal/model"
	"github.com/mcoot/battleship-go/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	mini    *miniredis.Miniredis
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.GuestPlayerTTL = time.Hour
	cfg.CompletedGameTTL = 2 * time.Hour

	s.storage = NewWithClient(client, cfg)
	s.Store = s.storage
	s.Ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
}

func (s *StorageSuite) TestGuestPlayerExpires() {
	s.Require().NoError(s.storage.SavePlayer(s.Ctx, &model.Player{ID: "guest-1", IsGuest: true}))
	s.Require().NoError(s.storage.SavePlayer(s.Ctx, &model.Player{ID: "reg-1"}))

	s.Equal(time.Hour, s.mini.TTL(playerKey("guest-1")))
	s.Zero(s.mini.TTL(playerKey("reg-1")))
}

func (s *StorageSuite) TestCompletedGameGetsTTLAndLeavesActiveIndex() {
	rec := &model.GameRecord{ID: "game-1", RoomID: "ROOM01", Player1: "alice", Player2: "bob", Status: model.GameStatusActive, Turn: model.RolePlayer1}
	s.Require().NoError(s.storage.CreateGame(s.Ctx, rec, model.NewGameData("game-1")))
	s.Zero(s.mini.TTL(gameKey("game-1")))

	isActive, err := s.mini.SIsMember(playerActiveGamesKey("bob"), "game-1")
	s.Require().NoError(err)
	s.True(isActive)

	_, _, err = s.storage.UpdateGame(s.Ctx, "game-1", func(rec *model.GameRecord, _ *model.GameData) error {
		rec.Status = model.GameStatusComplete
		rec.Winner = model.RolePlayer2
		return nil
	})
	s.Require().NoError(err)

	s.Equal(2*time.Hour, s.mini.TTL(gameKey("game-1")))
	s.Equal(2*time.Hour, s.mini.TTL(gameDataKey("game-1")))
	isActive, err = s.mini.SIsMember(playerActiveGamesKey("bob"), "game-1")
	s.Require().NoError(err)
	s.False(isActive)
}

func (s *StorageSuite) TestListGamesSkipsExpiredGames() {
	rec := &model.GameRecord{ID: "game-1", RoomID: "ROOM01", Player1: "alice", Status: model.GameStatusComplete, Winner: model.RolePlayer1, Turn: model.RolePlayer1}
	s.Require().NoError(s.storage.CreateGame(s.Ctx, rec, model.NewGameData("game-1")))

	s.mini.FastForward(3 * time.Hour)

	games, err := s.storage.ListGamesForPlayer(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Empty(games)
}

func (s *StorageSuite) TestDequeueScriptLeavesOtherEntries() {
	s.Require().NoError(s.storage.Enqueue(s.Ctx, &model.QueueEntry{GameID: "game-1", RoomID: "A", Player1: "alice"}))
	s.Require().NoError(s.storage.Enqueue(s.Ctx, &model.QueueEntry{GameID: "game-2", RoomID: "B", Player1: "bob"}))

	s.Require().NoError(s.storage.DequeueFront(s.Ctx, "game-1"))

	s.False(s.mini.Exists(queueEntryKey("game-1")))
	s.True(s.mini.Exists(queueEntryKey("game-2")))
	members, err := s.mini.ZMembers(queueKey())
	s.Require().NoError(err)
	s.Equal([]string{"game-2"}, members)
}

func (s *StorageSuite) TestNewRejectsBadURL() {
	cfg := DefaultConfig()
	cfg.URL = "not a url"
	_, err := New(cfg)
	s.Error(err)
}
