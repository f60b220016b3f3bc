// Package storagetest is a conformance suite shared by every storage backend.
// A backend test embeds Suite and sets Store in SetupTest.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/battleship-go/internal/model"
	"github.com/mcoot/battleship-go/internal/storage"
)

// Suite holds the backend under test
type Suite struct {
	suite.Suite
	Store storage.Storage
	Ctx   context.Context
}

var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func (s *Suite) newGame(id model.GameID, room model.RoomID, p1, p2 model.PlayerID, offset time.Duration) *model.GameRecord {
	rec := &model.GameRecord{
		ID:        id,
		RoomID:    room,
		Player1:   p1,
		Player2:   p2,
		Status:    model.GameStatusActive,
		Turn:      model.RolePlayer1,
		CreatedAt: baseTime.Add(offset),
		UpdatedAt: baseTime.Add(offset),
	}
	s.Require().NoError(s.Store.CreateGame(s.Ctx, rec, model.NewGameData(id)))
	return rec
}

// Player tests

func (s *Suite) TestSaveAndGetPlayer() {
	player := &model.Player{ID: "player-1", DisplayName: "Alice", IsGuest: true, CreatedAt: baseTime}
	s.Require().NoError(s.Store.SavePlayer(s.Ctx, player))

	got, err := s.Store.GetPlayer(s.Ctx, "player-1")
	s.Require().NoError(err)
	s.Equal("Alice", got.DisplayName)
	s.True(got.IsGuest)
	s.True(baseTime.Equal(got.CreatedAt))
}

func (s *Suite) TestGetPlayerNotFound() {
	_, err := s.Store.GetPlayer(s.Ctx, "nobody")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestSaveAndGetRegisteredPlayerByUsername() {
	rp := &model.RegisteredPlayer{PlayerID: "player-1", Username: "alice", PasswordHash: "hash", CreatedAt: baseTime, UpdatedAt: baseTime}
	s.Require().NoError(s.Store.SavePlayer(s.Ctx, &model.Player{ID: "player-1", DisplayName: "Alice", CreatedAt: baseTime}))
	s.Require().NoError(s.Store.SaveRegisteredPlayer(s.Ctx, rp))

	got, err := s.Store.GetRegisteredPlayerByUsername(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("player-1"), got.PlayerID)
	s.Equal("hash", got.PasswordHash)

	_, err = s.Store.GetRegisteredPlayerByUsername(s.Ctx, "bob")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

// Game tests

func (s *Suite) TestCreateAndGetGame() {
	s.newGame("game-1", "ROOM01", "alice", "", 0)

	rec, err := s.Store.GetGame(s.Ctx, "game-1")
	s.Require().NoError(err)
	s.Equal(model.RoomID("ROOM01"), rec.RoomID)
	s.Equal(model.PlayerID("alice"), rec.Player1)
	s.Empty(rec.Player2)
	s.Equal(model.GameStatusActive, rec.Status)
	s.Equal(model.RolePlayer1, rec.Turn)
	s.Nil(rec.CompletedAt)

	byRoom, err := s.Store.GetGameByRoom(s.Ctx, "ROOM01")
	s.Require().NoError(err)
	s.Equal(model.GameID("game-1"), byRoom.ID)

	data, err := s.Store.GetGameData(s.Ctx, "game-1")
	s.Require().NoError(err)
	s.False(data.Player1.ShipsPlaced())
	s.Empty(data.Player1.Hits)
	s.Empty(data.Player2.Misses)
}

func (s *Suite) TestCreateGameRejectsTakenRoom() {
	s.newGame("game-1", "ROOM01", "alice", "", 0)

	err := s.Store.CreateGame(s.Ctx, &model.GameRecord{ID: "game-2", RoomID: "ROOM01", Player1: "bob", Status: model.GameStatusActive, Turn: model.RolePlayer1, CreatedAt: baseTime, UpdatedAt: baseTime}, model.NewGameData("game-2"))
	s.ErrorIs(err, model.ErrRoomTaken)

	_, err = s.Store.GetGame(s.Ctx, "game-2")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *Suite) TestGetGameNotFound() {
	_, err := s.Store.GetGame(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrGameNotFound)

	_, err = s.Store.GetGameData(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrGameNotFound)

	_, err = s.Store.GetGameByRoom(s.Ctx, "NOROOM")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *Suite) TestDeleteGameFreesRoom() {
	s.newGame("game-1", "ROOM01", "alice", "", 0)
	s.Require().NoError(s.Store.DeleteGame(s.Ctx, "game-1"))

	_, err := s.Store.GetGame(s.Ctx, "game-1")
	s.ErrorIs(err, model.ErrGameNotFound)
	_, err = s.Store.GetGameByRoom(s.Ctx, "ROOM01")
	s.ErrorIs(err, model.ErrRoomNotFound)

	count, err := s.Store.CountActiveGames(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *Suite) TestUpdateGameCommits() {
	s.newGame("game-1", "ROOM01", "alice", "", 0)
	ships := []model.Ship{{ID: model.ShipDestroyer, Cells: []model.Coordinate{{Row: 3, Col: 4}, {Row: 3, Col: 5}}}}

	rec, data, err := s.Store.UpdateGame(s.Ctx, "game-1", func(rec *model.GameRecord, data *model.GameData) error {
		rec.Player2 = "bob"
		rec.SwapTurn()
		data.Player2.Ships = ships
		data.Player1.Hits = append(data.Player1.Hits, model.Coordinate{Row: 3, Col: 4})
		return nil
	})
	s.Require().NoError(err)
	s.Equal(model.PlayerID("bob"), rec.Player2)
	s.Equal(model.RolePlayer2, rec.Turn)
	s.Len(data.Player1.Hits, 1)

	stored, err := s.Store.GetGame(s.Ctx, "game-1")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("bob"), stored.Player2)
	s.Equal(model.RolePlayer2, stored.Turn)

	storedData, err := s.Store.GetGameData(s.Ctx, "game-1")
	s.Require().NoError(err)
	s.Equal(ships, storedData.Player2.Ships)
	s.Equal([]model.Coordinate{{Row: 3, Col: 4}}, storedData.Player1.Hits)
}

func (s *Suite) TestUpdateGameErrorDiscardsChanges() {
	s.newGame("game-1", "ROOM01", "alice", "", 0)
	boom := errors.New("boom")

	_, _, err := s.Store.UpdateGame(s.Ctx, "game-1", func(rec *model.GameRecord, data *model.GameData) error {
		rec.Status = model.GameStatusComplete
		data.Player1.Misses = append(data.Player1.Misses, model.Coordinate{Row: 1, Col: 1})
		return boom
	})
	s.ErrorIs(err, boom)

	rec, err := s.Store.GetGame(s.Ctx, "game-1")
	s.Require().NoError(err)
	s.Equal(model.GameStatusActive, rec.Status)
	data, err := s.Store.GetGameData(s.Ctx, "game-1")
	s.Require().NoError(err)
	s.Empty(data.Player1.Misses)
}

func (s *Suite) TestUpdateGameNotFound() {
	_, _, err := s.Store.UpdateGame(s.Ctx, "missing", func(*model.GameRecord, *model.GameData) error { return nil })
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *Suite) TestUpdateGameSerializesConcurrentWriters() {
	s.newGame("game-1", "ROOM01", "alice", "bob", 0)
	const writers = 8

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(col int) {
			defer wg.Done()
			_, _, err := s.Store.UpdateGame(s.Ctx, "game-1", func(rec *model.GameRecord, data *model.GameData) error {
				data.Player1.Misses = append(data.Player1.Misses, model.Coordinate{Row: 0, Col: col})
				return nil
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	data, err := s.Store.GetGameData(s.Ctx, "game-1")
	s.Require().NoError(err)
	s.Len(data.Player1.Misses, writers)
}

func (s *Suite) TestCountActiveGamesCountsBothSeatsAndSkipsComplete() {
	s.newGame("game-1", "ROOM01", "alice", "bob", 0)
	s.newGame("game-2", "ROOM02", "bob", "alice", time.Minute)
	s.newGame("game-3", "ROOM03", "alice", "", 2*time.Minute)
	s.newGame("game-4", "ROOM04", "carol", "dave", 3*time.Minute)

	_, _, err := s.Store.UpdateGame(s.Ctx, "game-1", func(rec *model.GameRecord, _ *model.GameData) error {
		rec.Status = model.GameStatusComplete
		rec.Winner = model.RolePlayer1
		return nil
	})
	s.Require().NoError(err)

	count, err := s.Store.CountActiveGames(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(2, count)

	count, err = s.Store.CountActiveGames(s.Ctx, "bob")
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *Suite) TestListGamesForPlayerNewestFirst() {
	s.newGame("game-1", "ROOM01", "alice", "bob", 0)
	s.newGame("game-2", "ROOM02", "carol", "", time.Minute)
	s.newGame("game-3", "ROOM03", "bob", "", 2*time.Minute)

	games, err := s.Store.ListGamesForPlayer(s.Ctx, "bob")
	s.Require().NoError(err)
	s.Require().Len(games, 2)
	s.Equal(model.GameID("game-3"), games[0].ID)
	s.Equal(model.GameID("game-1"), games[1].ID)

	games, err = s.Store.ListGamesForPlayer(s.Ctx, "nobody")
	s.Require().NoError(err)
	s.Empty(games)
}

func (s *Suite) TestMatchedPlayerAppearsInIndexes() {
	s.newGame("game-1", "ROOM01", "alice", "", 0)
	_, _, err := s.Store.UpdateGame(s.Ctx, "game-1", func(rec *model.GameRecord, _ *model.GameData) error {
		rec.Player2 = "bob"
		return nil
	})
	s.Require().NoError(err)

	count, err := s.Store.CountActiveGames(s.Ctx, "bob")
	s.Require().NoError(err)
	s.Equal(1, count)

	games, err := s.Store.ListGamesForPlayer(s.Ctx, "bob")
	s.Require().NoError(err)
	s.Len(games, 1)
}

// Queue tests

func (s *Suite) enqueue(id model.GameID, player model.PlayerID) *model.QueueEntry {
	entry := &model.QueueEntry{GameID: id, RoomID: model.RoomID("R-" + string(id)), Player1: player, EnqueuedAt: baseTime}
	s.Require().NoError(s.Store.Enqueue(s.Ctx, entry))
	return entry
}

func (s *Suite) TestPeekFrontEmpty() {
	_, err := s.Store.PeekFront(s.Ctx)
	s.ErrorIs(err, model.ErrQueueEmpty)
}

func (s *Suite) TestQueueIsFIFO() {
	first := s.enqueue("game-1", "alice")
	second := s.enqueue("game-2", "bob")
	s.Less(first.CreatedOrder, second.CreatedOrder)

	front, err := s.Store.PeekFront(s.Ctx)
	s.Require().NoError(err)
	s.Equal(model.GameID("game-1"), front.GameID)
	s.Equal(model.PlayerID("alice"), front.Player1)

	s.Require().NoError(s.Store.DequeueFront(s.Ctx, "game-1"))

	front, err = s.Store.PeekFront(s.Ctx)
	s.Require().NoError(err)
	s.Equal(model.GameID("game-2"), front.GameID)

	n, err := s.Store.QueueLen(s.Ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *Suite) TestDequeueFrontRejectsNonFront() {
	s.enqueue("game-1", "alice")
	s.enqueue("game-2", "bob")

	s.ErrorIs(s.Store.DequeueFront(s.Ctx, "game-2"), model.ErrNotQueueFront)
	s.ErrorIs(s.Store.DequeueFront(s.Ctx, "missing"), model.ErrNotQueueFront)

	n, err := s.Store.QueueLen(s.Ctx)
	s.Require().NoError(err)
	s.Equal(2, n)
}

func (s *Suite) TestRequeueRestoresOriginalPosition() {
	first := s.enqueue("game-1", "alice")
	s.enqueue("game-2", "bob")

	s.Require().NoError(s.Store.DequeueFront(s.Ctx, "game-1"))
	s.Require().NoError(s.Store.Requeue(s.Ctx, first))

	front, err := s.Store.PeekFront(s.Ctx)
	s.Require().NoError(err)
	s.Equal(model.GameID("game-1"), front.GameID)
	s.Equal(first.CreatedOrder, front.CreatedOrder)

	s.enqueue("game-3", "carol")
	n, err := s.Store.QueueLen(s.Ctx)
	s.Require().NoError(err)
	s.Equal(3, n)
}

func (s *Suite) TestRequeueOfQueuedEntryIsNoop() {
	first := s.enqueue("game-1", "alice")
	s.Require().NoError(s.Store.Requeue(s.Ctx, first))

	n, err := s.Store.QueueLen(s.Ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *Suite) TestDequeueFrontOnEmptyQueue() {
	s.ErrorIs(s.Store.DequeueFront(s.Ctx, "game-1"), model.ErrNotQueueFront)
}

func (s *Suite) TestConcurrentDequeueClaimsFrontOnce() {
	s.enqueue("game-1", "alice")
	const claimers = 6

	var wg sync.WaitGroup
	results := make(chan error, claimers)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.Store.DequeueFront(s.Ctx, "game-1")
		}()
	}
	wg.Wait()
	close(results)

	won := 0
	for err := range results {
		if err == nil {
			won++
			continue
		}
		s.ErrorIs(err, model.ErrNotQueueFront)
	}
	s.Equal(1, won)
}

// Stats tests

func (s *Suite) TestStatsStartAtZero() {
	st, err := s.Store.GetStats(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("alice"), st.PlayerID)
	s.Zero(st.Wins)
	s.Zero(st.Losses)
}

func (s *Suite) TestRecordWinAndLoss() {
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.Store.RecordWin(s.Ctx, "alice"))
	}
	s.Require().NoError(s.Store.RecordLoss(s.Ctx, "alice"))
	s.Require().NoError(s.Store.RecordLoss(s.Ctx, "bob"))

	st, err := s.Store.GetStats(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(3, st.Wins)
	s.Equal(1, st.Losses)

	st, err = s.Store.GetStats(s.Ctx, "bob")
	s.Require().NoError(err)
	s.Zero(st.Wins)
	s.Equal(1, st.Losses)
}

