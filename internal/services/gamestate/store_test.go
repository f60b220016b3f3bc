package gamestate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/battleship-go/internal/dependencies/mocks"
	"github.com/mcoot/battleship-go/internal/model"
	"github.com/mcoot/battleship-go/internal/storage/memory"
	"github.com/mcoot/battleship-go/internal/testutil"
)

// failingStats lets tests observe stats calls and inject failures
type failingStats struct {
	mu     sync.Mutex
	wins   []model.PlayerID
	losses []model.PlayerID
	err    error
}

func (f *failingStats) RecordWin(_ context.Context, p model.PlayerID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wins = append(f.wins, p)
	return f.err
}

func (f *failingStats) RecordLoss(_ context.Context, p model.PlayerID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.losses = append(f.losses, p)
	return f.err
}

type StoreSuite struct {
	suite.Suite
	storage *memory.Storage
	stats   *failingStats
	clock   *mocks.MockClock
	store   *Store
	ctx     context.Context
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.storage = memory.New()
	s.stats = &failingStats{}
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.store = New(s.storage, s.stats, s.clock, testutil.NopLogger())
	s.ctx = context.Background()

	_, err := s.store.Create(s.ctx, &model.GameRecord{
		ID: "game-1", RoomID: "ROOM01", Player1: "alice", Player2: "bob",
		Status: model.GameStatusActive, Turn: model.RolePlayer1,
		CreatedAt: s.clock.Now(), UpdatedAt: s.clock.Now(),
	})
	s.Require().NoError(err)
}

func (s *StoreSuite) data() *model.GameData {
	data, err := s.store.GetData(s.ctx, "game-1")
	s.Require().NoError(err)
	return data
}

func (s *StoreSuite) record() *model.GameRecord {
	rec, err := s.store.GetRecord(s.ctx, "game-1")
	s.Require().NoError(err)
	return rec
}

// Append tests

func (s *StoreSuite) TestAppendHitAndMissGoToShooterBoard() {
	s.Require().NoError(s.store.AppendHit(s.ctx, "game-1", model.RolePlayer1, model.Coordinate{Row: 3, Col: 4}))
	s.Require().NoError(s.store.AppendMiss(s.ctx, "game-1", model.RolePlayer1, model.Coordinate{Row: 0, Col: 9}))
	s.Require().NoError(s.store.AppendMiss(s.ctx, "game-1", model.RolePlayer2, model.Coordinate{Row: 1, Col: 1}))

	data := s.data()
	s.Equal([]model.Coordinate{{Row: 3, Col: 4}}, data.Player1.Hits)
	s.Equal([]model.Coordinate{{Row: 0, Col: 9}}, data.Player1.Misses)
	s.Empty(data.Player2.Hits)
	s.Equal([]model.Coordinate{{Row: 1, Col: 1}}, data.Player2.Misses)
}

func (s *StoreSuite) TestApplyStepsInsideTransact() {
	fleet := testutil.StandardFleet()
	_, _, err := s.store.Transact(s.ctx, "game-1", func(rec *model.GameRecord, data *model.GameData) error {
		if err := ApplyShips(data, model.RolePlayer2, fleet); err != nil {
			return err
		}
		ApplyShot(data, model.RolePlayer1, model.Coordinate{Row: 0, Col: 0}, model.ShotHit)
		ApplyShot(data, model.RolePlayer1, model.Coordinate{Row: 9, Col: 9}, model.ShotMiss)
		rec.SwapTurn()
		return nil
	})
	s.Require().NoError(err)

	data := s.data()
	s.Equal(fleet, data.Player2.Ships)
	s.Equal([]model.Coordinate{{Row: 0, Col: 0}}, data.Player1.Hits)
	s.Equal([]model.Coordinate{{Row: 9, Col: 9}}, data.Player1.Misses)

	_, _, err = s.store.SetShips(s.ctx, "game-1", model.RolePlayer2, fleet)
	s.ErrorIs(err, model.ErrShipsAlreadyPlaced)
}

func (s *StoreSuite) TestAppendOnMissingGame() {
	err := s.store.AppendHit(s.ctx, "missing", model.RolePlayer1, model.Coordinate{})
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *StoreSuite) TestAppendRejectedAfterComplete() {
	_, err := s.store.MarkComplete(s.ctx, "game-1", model.RolePlayer1)
	s.Require().NoError(err)

	err = s.store.AppendHit(s.ctx, "game-1", model.RolePlayer1, model.Coordinate{})
	s.ErrorIs(err, model.ErrGameAlreadyComplete)
}

// Turn tests

func (s *StoreSuite) TestSwapTurnToggles() {
	s.Require().NoError(s.store.SwapTurn(s.ctx, "game-1"))
	s.Equal(model.RolePlayer2, s.record().Turn)

	s.Require().NoError(s.store.SwapTurn(s.ctx, "game-1"))
	s.Equal(model.RolePlayer1, s.record().Turn)
}

func (s *StoreSuite) TestTransactStampsUpdatedAt() {
	s.clock.Advance(time.Minute)
	s.Require().NoError(s.store.SwapTurn(s.ctx, "game-1"))
	s.Equal(s.clock.Now(), s.record().UpdatedAt)
}

// Completion tests

func (s *StoreSuite) TestMarkCompleteSetsWinnerAndStats() {
	rec, err := s.store.MarkComplete(s.ctx, "game-1", model.RolePlayer2)
	s.Require().NoError(err)

	s.Equal(model.GameStatusComplete, rec.Status)
	s.Equal(model.RolePlayer2, rec.Winner)
	s.Require().NotNil(rec.CompletedAt)
	s.Equal([]model.PlayerID{"bob"}, s.stats.wins)
	s.Equal([]model.PlayerID{"alice"}, s.stats.losses)
}

func (s *StoreSuite) TestMarkCompleteTwiceFailsAndRecordsStatsOnce() {
	_, err := s.store.MarkComplete(s.ctx, "game-1", model.RolePlayer1)
	s.Require().NoError(err)

	_, err = s.store.MarkComplete(s.ctx, "game-1", model.RolePlayer2)
	s.ErrorIs(err, model.ErrGameAlreadyComplete)

	s.Equal(model.RolePlayer1, s.record().Winner)
	s.Len(s.stats.wins, 1)
	s.Len(s.stats.losses, 1)
}

func (s *StoreSuite) TestStatsFailureDoesNotUndoCompletion() {
	s.stats.err = errors.New("stats down")

	rec, err := s.store.MarkComplete(s.ctx, "game-1", model.RolePlayer1)
	s.Require().NoError(err)
	s.Equal(model.GameStatusComplete, rec.Status)
	s.Equal(model.GameStatusComplete, s.record().Status)
}

func (s *StoreSuite) TestTransactCannotReopenGame() {
	_, err := s.store.MarkComplete(s.ctx, "game-1", model.RolePlayer1)
	s.Require().NoError(err)

	_, _, err = s.store.Transact(s.ctx, "game-1", func(rec *model.GameRecord, _ *model.GameData) error {
		rec.Status = model.GameStatusActive
		return nil
	})
	s.ErrorIs(err, model.ErrGameAlreadyComplete)
	s.Equal(model.GameStatusComplete, s.record().Status)
}

func (s *StoreSuite) TestTransactRejectsCompletionWithoutWinner() {
	_, _, err := s.store.Transact(s.ctx, "game-1", func(rec *model.GameRecord, _ *model.GameData) error {
		rec.Status = model.GameStatusComplete
		return nil
	})
	s.Error(err)
	s.Equal(model.GameStatusActive, s.record().Status)
	s.Empty(s.stats.wins)
}

func (s *StoreSuite) TestTransactErrorCommitsNothing() {
	boom := errors.New("boom")
	_, _, err := s.store.Transact(s.ctx, "game-1", func(rec *model.GameRecord, data *model.GameData) error {
		rec.SwapTurn()
		data.Player1.Hits = append(data.Player1.Hits, model.Coordinate{Row: 1, Col: 1})
		return boom
	})
	s.ErrorIs(err, boom)
	s.Equal(model.RolePlayer1, s.record().Turn)
	s.Empty(s.data().Player1.Hits)
}

// Seating tests

func (s *StoreSuite) seatOnlyAlice() {
	_, err := s.store.Create(s.ctx, &model.GameRecord{
		ID: "game-2", RoomID: "ROOM02", Player1: "alice",
		Status: model.GameStatusActive, Turn: model.RolePlayer1,
	})
	s.Require().NoError(err)
}

func (s *StoreSuite) TestSetPlayer2Seats() {
	s.seatOnlyAlice()
	rec, err := s.store.SetPlayer2(s.ctx, "game-2", "carol")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("carol"), rec.Player2)
}

func (s *StoreSuite) TestSetPlayer2RejectsSelf() {
	s.seatOnlyAlice()
	_, err := s.store.SetPlayer2(s.ctx, "game-2", "alice")
	s.ErrorIs(err, model.ErrCannotPlaySelf)
}

func (s *StoreSuite) TestSetPlayer2RejectsFullGame() {
	_, err := s.store.SetPlayer2(s.ctx, "game-1", "carol")
	s.ErrorIs(err, model.ErrGameFull)
	s.Equal(model.PlayerID("bob"), s.record().Player2)
}

func (s *StoreSuite) TestSetShipsIsWriteOnce() {
	fleet := testutil.StandardFleet()
	rec, data, err := s.store.SetShips(s.ctx, "game-1", model.RolePlayer2, fleet)
	s.Require().NoError(err)
	s.Equal(model.PhaseShipsPending, model.PhaseOf(rec, data))

	_, _, err = s.store.SetShips(s.ctx, "game-1", model.RolePlayer2, fleet)
	s.ErrorIs(err, model.ErrShipsAlreadyPlaced)

	rec, data, err = s.store.SetShips(s.ctx, "game-1", model.RolePlayer1, fleet)
	s.Require().NoError(err)
	s.Equal(model.PhaseInPlay, model.PhaseOf(rec, data))
}

// Concurrency tests

func (s *StoreSuite) TestConcurrentAppendsAllLand() {
	const shooters = 20
	var wg sync.WaitGroup
	for i := 0; i < shooters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.store.AppendMiss(s.ctx, "game-1", model.RolePlayer1, model.Coordinate{Row: i / 10, Col: i % 10})
		}(i)
	}
	wg.Wait()

	s.Len(s.data().Player1.Misses, shooters)
	s.Zero(s.store.locks.size())
}

func TestKeyedMutexExcludesSameKey(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("game-1")

	acquired := make(chan struct{})
	go func() {
		u := k.Lock("game-1")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock on same game acquired while held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired after release")
	}
}

func TestKeyedMutexAllowsDifferentKeys(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("game-1")
	defer unlock()

	done := make(chan struct{})
	go func() {
		k.Lock("game-2")()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different game blocked")
	}
}
