package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mcoot/battleship-go/internal/api"
	"github.com/mcoot/battleship-go/internal/config"
	"github.com/mcoot/battleship-go/internal/dependencies/clock"
	"github.com/mcoot/battleship-go/internal/dependencies/random"
	"github.com/mcoot/battleship-go/internal/events"
	"github.com/mcoot/battleship-go/internal/services/auth"
	"github.com/mcoot/battleship-go/internal/services/game"
	"github.com/mcoot/battleship-go/internal/services/gamestate"
	"github.com/mcoot/battleship-go/internal/services/matchmaking"
	"github.com/mcoot/battleship-go/internal/session"
	"github.com/mcoot/battleship-go/internal/storage"
	"github.com/mcoot/battleship-go/internal/storage/memory"
	pgstorage "github.com/mcoot/battleship-go/internal/storage/postgres"
	redisstorage "github.com/mcoot/battleship-go/internal/storage/redis"
	"github.com/mcoot/battleship-go/internal/transport/ws"
)

// Storage type constants
const (
	StorageTypeMemory   = config.StorageMemory
	StorageTypeRedis    = config.StorageRedis
	StorageTypePostgres = config.StoragePostgres
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock     clock.Clock
	Random    random.Random
	Publisher events.Publisher

	// Services
	Games          *gamestate.Store
	Matchmaking    *matchmaking.Controller
	GameController *game.Controller
	AuthService    *auth.Service

	// Realtime
	Hub       *ws.Hub
	Protocol  *session.Protocol
	WSHandler *ws.Handler

	logger  *slog.Logger
	closers []io.Closer
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service (optional)
	// If the secret is empty, defaults to auth.DefaultConfig()
	AuthConfig auth.Config
	// Matchmaking limits; zero fields fall back to matchmaking.DefaultConfig()
	Matchmaking matchmaking.Config
	// Game rules
	Game game.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "postgres")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// PostgresConfig holds Postgres settings (required if StorageType is "postgres")
	PostgresConfig *pgstorage.Config
	// NATSURL enables publishing game events to NATS when set
	NATSURL           string
	NATSSubjectPrefix string
	// AllowedOrigins limits websocket upgrades; empty allows any origin
	AllowedOrigins []string
}

// FromSettings maps loaded server settings onto a factory Config
func FromSettings(s *config.Config, logger *slog.Logger) Config {
	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = s.Redis.URL
	if s.Redis.PoolSize > 0 {
		redisCfg.PoolSize = s.Redis.PoolSize
	}
	redisCfg.GuestPlayerTTL = s.Redis.GuestPlayerTTL
	redisCfg.CompletedGameTTL = s.Redis.CompletedGameTTL

	pgCfg := pgstorage.DefaultConfig()
	pgCfg.URL = s.Postgres.URL
	if s.Postgres.MaxConns > 0 {
		pgCfg.MaxConns = s.Postgres.MaxConns
	}
	pgCfg.MigrateOnStart = s.Postgres.MigrateOnStart

	return Config{
		AuthConfig: auth.Config{
			Secret:   s.Auth.JWTSecret,
			TokenTTL: s.Auth.TokenTTL,
			Issuer:   s.Auth.Issuer,
		},
		Matchmaking: matchmaking.Config{
			MaxActiveGames: s.Game.MaxActiveGames,
			RoomCodeLength: s.Game.RoomCodeLength,
		},
		Game:              game.Config{EnforceTurnOrder: s.Game.EnforceTurnOrder},
		Logger:            logger,
		StorageType:       s.Storage.Type,
		RedisConfig:       &redisCfg,
		PostgresConfig:    &pgCfg,
		NATSURL:           s.NATS.URL,
		NATSSubjectPrefix: s.NATS.SubjectPrefix,
		AllowedOrigins:    s.Server.AllowedOrigins,
	}
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var closers []io.Closer

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
		closers = append(closers, redisStore)
	case StorageTypePostgres:
		if cfg.PostgresConfig == nil {
			return nil, errors.New("PostgresConfig required when StorageType is postgres")
		}
		pgStore, err := pgstorage.New(ctx, *cfg.PostgresConfig, logger)
		if err != nil {
			return nil, err
		}
		store = pgStore
		closers = append(closers, pgStore)
	default:
		return nil, fmt.Errorf("invalid StorageType %q: must be 'memory', 'redis' or 'postgres'", storageType)
	}

	var publisher events.Publisher
	if cfg.NATSURL != "" {
		natsPub, err := events.ConnectNATS(cfg.NATSURL, cfg.NATSSubjectPrefix, logger)
		if err != nil {
			closeAll(closers)
			return nil, err
		}
		publisher = natsPub
		closers = append(closers, natsPub)
	} else {
		publisher = events.NewLogPublisher(logger)
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	app := newWithDependencies(store, publisher, clk, rnd, cfg, logger)
	app.closers = closers
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	publisher events.Publisher,
	clk clock.Clock,
	rnd random.Random,
	cfg Config,
	logger *slog.Logger,
) *App {
	// Use default auth config if not provided
	authCfg := cfg.AuthConfig
	if authCfg.Secret == "" {
		authCfg = auth.DefaultConfig()
	}
	mmCfg := cfg.Matchmaking
	if mmCfg == (matchmaking.Config{}) {
		mmCfg = matchmaking.DefaultConfig()
	}

	// Create services
	games := gamestate.New(store, store, clk, logger)
	queue := matchmaking.NewQueue(store, clk)
	mm := matchmaking.NewController(queue, games, publisher, clk, rnd, mmCfg, logger)
	gameController := game.NewController(games, store, publisher, clk, cfg.Game, logger)
	authService := auth.New(store, clk, rnd, authCfg)

	hub := ws.NewHub(logger)
	protocol := session.NewProtocol(mm, gameController, hub, logger, session.WithSanitizer(ws.SanitizeChat))
	wsHandler := ws.NewHandler(hub, authService, protocol, cfg.AllowedOrigins, logger)

	return &App{
		Storage:        store,
		Clock:          clk,
		Random:         rnd,
		Publisher:      publisher,
		Games:          games,
		Matchmaking:    mm,
		GameController: gameController,
		AuthService:    authService,
		Hub:            hub,
		Protocol:       protocol,
		WSHandler:      wsHandler,
		logger:         logger,
	}
}

// Router builds the HTTP handler serving the REST API and the websocket
func (a *App) Router() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:         a.logger,
		AuthService:    a.AuthService,
		GameController: a.GameController,
		Matchmaking:    a.Matchmaking,
		WebSocket:      a.WSHandler,
	})
}

// Close disconnects every websocket client and releases backend connections
func (a *App) Close() error {
	a.Hub.Close()
	return closeAll(a.closers)
}

func closeAll(closers []io.Closer) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		errs = append(errs, closers[i].Close())
	}
	return errors.Join(errs...)
}
