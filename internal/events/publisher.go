// Package events publishes game lifecycle events for consumers outside the
// server, such as match history and analytics.
package events

import (
	"context"
	"log/slog"

	"github.com/mcoot/battleship-go/internal/model"
)

// Publisher delivers lifecycle events. Failures are the caller's to log;
// they never roll back the game operation that produced the event.
type Publisher interface {
	Publish(ctx context.Context, evt model.GameEvent) error
}

// LogPublisher writes events to the log. Used when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a LogPublisher
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With(slog.String("component", "events"))}
}

func (p *LogPublisher) Publish(ctx context.Context, evt model.GameEvent) error {
	p.logger.Debug("game event",
		slog.String("type", string(evt.Type)),
		slog.String("game_id", string(evt.GameID)),
		slog.String("room_id", string(evt.RoomID)),
	)
	return nil
}

// PublishLogged publishes evt and logs, rather than returns, any failure
func PublishLogged(ctx context.Context, pub Publisher, logger *slog.Logger, evt model.GameEvent) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, evt); err != nil {
		logger.Warn("failed to publish game event",
			slog.String("type", string(evt.Type)),
			slog.String("game_id", string(evt.GameID)),
			slog.String("error", err.Error()),
		)
	}
}
