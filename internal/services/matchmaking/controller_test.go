package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/battleship-go/internal/dependencies/mocks"
	"github.com/mcoot/battleship-go/internal/model"
	"github.com/mcoot/battleship-go/internal/services/gamestate"
	"github.com/mcoot/battleship-go/internal/storage"
	"github.com/mcoot/battleship-go/internal/storage/memory"
	"github.com/mcoot/battleship-go/internal/testutil"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.GameEvent
}

func (p *recordingPublisher) Publish(_ context.Context, evt model.GameEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []model.GameEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.GameEventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// brokenQueue fails every enqueue
type brokenQueue struct {
	*memory.Storage
}

func (brokenQueue) Enqueue(context.Context, *model.QueueEntry) error {
	return errors.New("queue unavailable")
}

// flakyGames fails the next failUpdates calls to UpdateGame
type flakyGames struct {
	*memory.Storage
	failUpdates int
}

func (f *flakyGames) UpdateGame(ctx context.Context, id model.GameID, fn storage.UpdateFunc) (*model.GameRecord, *model.GameData, error) {
	if f.failUpdates > 0 {
		f.failUpdates--
		return nil, nil, errors.New("store unavailable")
	}
	return f.Storage.UpdateGame(ctx, id, fn)
}

type ControllerSuite struct {
	suite.Suite
	storage    *memory.Storage
	clock      *mocks.MockClock
	random     *mocks.MockRandom
	publisher  *recordingPublisher
	games      *gamestate.Store
	controller *Controller
	ctx        context.Context
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.publisher = &recordingPublisher{}
	s.games = gamestate.New(s.storage, s.storage, s.clock, testutil.NopLogger())
	s.controller = s.newController(NewQueue(s.storage, s.clock))
	s.ctx = context.Background()
}

func (s *ControllerSuite) newController(q *Queue) *Controller {
	return NewController(q, s.games, s.publisher, s.clock, s.random, DefaultConfig(), testutil.NopLogger())
}

func (s *ControllerSuite) queueLen() int {
	n, err := s.controller.QueueLength(s.ctx)
	s.Require().NoError(err)
	return n
}

func (s *ControllerSuite) seedActiveGames(player model.PlayerID, n int) {
	for i := 0; i < n; i++ {
		_, err := s.games.Create(s.ctx, &model.GameRecord{
			ID:      model.GameID(fmt.Sprintf("seed-%s-%d", player, i)),
			RoomID:  model.RoomID(fmt.Sprintf("SEED-%s-%d", player, i)),
			Player1: player, Player2: "someone",
			Status: model.GameStatusActive, Turn: model.RolePlayer1,
		})
		s.Require().NoError(err)
	}
}

// JoinRandom tests

func (s *ControllerSuite) TestJoinRandomOnEmptyQueueCreatesGame() {
	s.random.QueueUUID("game-1")
	s.random.QueueString("ROOM01")

	res, err := s.controller.JoinRandom(s.ctx, "alice")
	s.Require().NoError(err)

	s.False(res.Matched)
	s.Equal(model.RolePlayer1, res.Role)
	s.Equal(model.GameID("game-1"), res.Game.ID)
	s.Equal(model.RoomID("ROOM01"), res.Game.RoomID)
	s.Equal(model.PlayerID("alice"), res.Game.Player1)
	s.Equal(model.RolePlayer1, res.Game.Turn)
	s.Equal(1, s.queueLen())

	data, err := s.games.GetData(s.ctx, "game-1")
	s.Require().NoError(err)
	s.False(data.Player1.ShipsPlaced())
	s.Equal([]model.GameEventType{model.GameEventCreated}, s.publisher.types())
}

func (s *ControllerSuite) TestJoinRandomMatchesSecondPlayer() {
	first, err := s.controller.JoinRandom(s.ctx, "alice")
	s.Require().NoError(err)

	res, err := s.controller.JoinRandom(s.ctx, "bob")
	s.Require().NoError(err)

	s.True(res.Matched)
	s.Equal(model.RolePlayer2, res.Role)
	s.Equal(first.Game.ID, res.Game.ID)
	s.Equal(first.Game.RoomID, res.Game.RoomID)
	s.Equal(model.PlayerID("bob"), res.Game.Player2)
	s.Zero(s.queueLen())

	rec, err := s.games.GetRecord(s.ctx, first.Game.ID)
	s.Require().NoError(err)
	s.Equal(model.PlayerID("bob"), rec.Player2)
	s.Equal([]model.GameEventType{model.GameEventCreated, model.GameEventMatched}, s.publisher.types())
}

func (s *ControllerSuite) TestJoinRandomRejectsOwnQueuedGame() {
	_, err := s.controller.JoinRandom(s.ctx, "alice")
	s.Require().NoError(err)

	_, err = s.controller.JoinRandom(s.ctx, "alice")
	s.ErrorIs(err, model.ErrAlreadyQueued)
	s.Equal(1, s.queueLen())
}

func (s *ControllerSuite) TestJoinRandomThirdPlayerOpensNewGame() {
	_, err := s.controller.JoinRandom(s.ctx, "alice")
	s.Require().NoError(err)
	_, err = s.controller.JoinRandom(s.ctx, "bob")
	s.Require().NoError(err)

	res, err := s.controller.JoinRandom(s.ctx, "carol")
	s.Require().NoError(err)
	s.False(res.Matched)
	s.Equal(model.RolePlayer1, res.Role)
	s.Equal(1, s.queueLen())
}

func (s *ControllerSuite) TestJoinRandomIsFIFO() {
	a, err := s.controller.JoinRandom(s.ctx, "alice")
	s.Require().NoError(err)
	// alice's entry is at the front, so bob matches it rather than queueing
	b, err := s.controller.JoinRandom(s.ctx, "bob")
	s.Require().NoError(err)
	s.Equal(a.Game.ID, b.Game.ID)

	c, err := s.controller.JoinRandom(s.ctx, "carol")
	s.Require().NoError(err)
	d, err := s.controller.JoinRandom(s.ctx, "dave")
	s.Require().NoError(err)
	s.Equal(c.Game.ID, d.Game.ID)
}

func (s *ControllerSuite) TestJoinRandomRejectsAtActiveGameLimit() {
	s.seedActiveGames("alice", 10)

	_, err := s.controller.JoinRandom(s.ctx, "alice")
	s.ErrorIs(err, model.ErrTooManyActiveGames)

	var limitErr *model.ActiveGameLimitError
	s.Require().ErrorAs(err, &limitErr)
	s.Equal(10, limitErr.Limit)
	s.Zero(s.queueLen())
}

func (s *ControllerSuite) TestJoinRandomAllowsNinthAndTenthGame() {
	s.seedActiveGames("alice", 9)

	_, err := s.controller.JoinRandom(s.ctx, "alice")
	s.NoError(err)
}

func (s *ControllerSuite) TestCompletedGamesDoNotCountTowardLimit() {
	s.seedActiveGames("alice", 10)
	_, err := s.games.MarkComplete(s.ctx, "seed-alice-0", model.RolePlayer1)
	s.Require().NoError(err)

	_, err = s.controller.JoinRandom(s.ctx, "alice")
	s.NoError(err)
}

func (s *ControllerSuite) TestLimitDoesNotBlockMatchingIntoWaitingGame() {
	_, err := s.controller.JoinRandom(s.ctx, "bob")
	s.Require().NoError(err)
	s.seedActiveGames("alice", 10)

	res, err := s.controller.JoinRandom(s.ctx, "alice")
	s.Require().NoError(err)
	s.True(res.Matched)
}

func (s *ControllerSuite) TestJoinRandomRegeneratesTakenRoom() {
	s.random.QueueUUID("game-1", "game-2")
	s.random.QueueString("ROOM01", "ROOM01", "ROOM02")

	_, err := s.controller.JoinRandom(s.ctx, "alice")
	s.Require().NoError(err)
	// drain the queue so bob opens a second game
	s.Require().NoError(s.storage.DequeueFront(s.ctx, "game-1"))

	res, err := s.controller.JoinRandom(s.ctx, "bob")
	s.Require().NoError(err)
	s.Equal(model.RoomID("ROOM02"), res.Game.RoomID)
}

func (s *ControllerSuite) TestJoinRandomSkipsStaleEntry() {
	s.Require().NoError(s.storage.Enqueue(s.ctx, &model.QueueEntry{GameID: "ghost", RoomID: "GHOST", Player1: "alice"}))
	s.random.QueueUUID("game-1")

	res, err := s.controller.JoinRandom(s.ctx, "bob")
	s.Require().NoError(err)
	s.False(res.Matched)
	s.Equal(model.GameID("game-1"), res.Game.ID)
	s.Equal(1, s.queueLen())
}

func (s *ControllerSuite) TestEnqueueFailureRemovesGame() {
	s.controller = s.newController(NewQueue(brokenQueue{s.storage}, s.clock))
	s.random.QueueUUID("game-1")

	_, err := s.controller.JoinRandom(s.ctx, "alice")
	s.Error(err)

	_, err = s.games.GetRecord(s.ctx, "game-1")
	s.ErrorIs(err, model.ErrGameNotFound)
	count, err := s.games.CountActiveGames(s.ctx, "alice")
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *ControllerSuite) TestSeatFailureRequeuesWaitingGame() {
	flaky := &flakyGames{Storage: s.storage}
	s.games = gamestate.New(flaky, s.storage, s.clock, testutil.NopLogger())
	s.controller = s.newController(NewQueue(s.storage, s.clock))

	s.random.QueueUUID("game-1")
	waiting, err := s.controller.JoinRandom(s.ctx, "alice")
	s.Require().NoError(err)

	flaky.failUpdates = 1
	_, err = s.controller.JoinRandom(s.ctx, "bob")
	s.Require().Error(err)

	s.Equal(1, s.queueLen())
	rec, err := s.games.GetRecord(s.ctx, "game-1")
	s.Require().NoError(err)
	s.Empty(rec.Player2)

	res, err := s.controller.JoinRandom(s.ctx, "carol")
	s.Require().NoError(err)
	s.True(res.Matched)
	s.Equal(waiting.Game.ID, res.Game.ID)
	s.Equal(model.PlayerID("carol"), res.Game.Player2)
	s.Zero(s.queueLen())
}

func (s *ControllerSuite) TestConcurrentJoinsClaimWaitingGameOnce() {
	waiting, err := s.controller.JoinRandom(s.ctx, "alice")
	s.Require().NoError(err)

	const joiners = 8
	var wg sync.WaitGroup
	results := make(chan *JoinResult, joiners)
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := s.controller.JoinRandom(s.ctx, model.PlayerID(fmt.Sprintf("p%d", i)))
			if err == nil {
				results <- res
			}
		}(i)
	}
	wg.Wait()
	close(results)

	claimedWaiting := 0
	seats := map[model.GameID]int{}
	for res := range results {
		seats[res.Game.ID]++
		if res.Game.ID == waiting.Game.ID {
			claimedWaiting++
			s.Equal(model.RolePlayer2, res.Role)
		}
	}
	s.Equal(1, claimedWaiting)
	for id, n := range seats {
		s.LessOrEqual(n, 2, "game %s seated %d joiners", id, n)
	}
}

// Rejoin tests

func (s *ControllerSuite) matchedGame() *model.GameRecord {
	_, err := s.controller.JoinRandom(s.ctx, "alice")
	s.Require().NoError(err)
	res, err := s.controller.JoinRandom(s.ctx, "bob")
	s.Require().NoError(err)
	return res.Game
}

func (s *ControllerSuite) TestRejoinSucceedsForBothPlayers() {
	game := s.matchedGame()

	rec, role, err := s.controller.Rejoin(s.ctx, "alice", game.RoomID)
	s.Require().NoError(err)
	s.Equal(game.ID, rec.ID)
	s.Equal(model.RolePlayer1, role)

	_, role, err = s.controller.Rejoin(s.ctx, "bob", game.RoomID)
	s.Require().NoError(err)
	s.Equal(model.RolePlayer2, role)
}

func (s *ControllerSuite) TestRejoinWhileWaitingForOpponent() {
	res, err := s.controller.JoinRandom(s.ctx, "alice")
	s.Require().NoError(err)

	_, role, err := s.controller.Rejoin(s.ctx, "alice", res.Game.RoomID)
	s.Require().NoError(err)
	s.Equal(model.RolePlayer1, role)
}

func (s *ControllerSuite) TestRejoinUnknownRoom() {
	_, _, err := s.controller.Rejoin(s.ctx, "alice", "NOPE")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *ControllerSuite) TestRejoinByStranger() {
	game := s.matchedGame()
	_, _, err := s.controller.Rejoin(s.ctx, "mallory", game.RoomID)
	s.ErrorIs(err, model.ErrNotAParticipant)
}

func (s *ControllerSuite) TestRejoinCompletedGame() {
	game := s.matchedGame()
	_, err := s.games.MarkComplete(s.ctx, game.ID, model.RolePlayer1)
	s.Require().NoError(err)

	_, _, err = s.controller.Rejoin(s.ctx, "alice", game.RoomID)
	s.ErrorIs(err, model.ErrGameAlreadyComplete)
}

func (s *ControllerSuite) TestRejoinChecksParticipantBeforeStatus() {
	game := s.matchedGame()
	_, err := s.games.MarkComplete(s.ctx, game.ID, model.RolePlayer1)
	s.Require().NoError(err)

	_, _, err = s.controller.Rejoin(s.ctx, "mallory", game.RoomID)
	s.ErrorIs(err, model.ErrNotAParticipant)
}
