package matchmaking

import (
	"context"

	"github.com/mcoot/battleship-go/internal/dependencies/clock"
	"github.com/mcoot/battleship-go/internal/model"
	"github.com/mcoot/battleship-go/internal/storage"
)

// Queue is the global FIFO of games waiting for an opponent
type Queue struct {
	store storage.QueueStore
	clock clock.Clock
}

// NewQueue creates a Queue over the given store
func NewQueue(store storage.QueueStore, clock clock.Clock) *Queue {
	return &Queue{store: store, clock: clock}
}

// Enqueue appends a waiting game to the tail
func (q *Queue) Enqueue(ctx context.Context, rec *model.GameRecord) (*model.QueueEntry, error) {
	entry := &model.QueueEntry{
		GameID:     rec.ID,
		RoomID:     rec.RoomID,
		Player1:    rec.Player1,
		EnqueuedAt: q.clock.Now(),
	}
	if err := q.store.Enqueue(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// PeekFront returns the oldest waiting entry, or ErrQueueEmpty
func (q *Queue) PeekFront(ctx context.Context) (*model.QueueEntry, error) {
	return q.store.PeekFront(ctx)
}

// Dequeue removes entry, which must still be the front.
// Returns ErrNotQueueFront if another matcher claimed it first.
func (q *Queue) Dequeue(ctx context.Context, entry *model.QueueEntry) error {
	return q.store.DequeueFront(ctx, entry.GameID)
}

// Requeue returns a dequeued entry to its original place
func (q *Queue) Requeue(ctx context.Context, entry *model.QueueEntry) error {
	return q.store.Requeue(ctx, entry)
}

// Len returns the number of waiting games
func (q *Queue) Len(ctx context.Context) (int, error) {
	return q.store.QueueLen(ctx)
}
