// Package config loads server configuration from defaults, an optional file
// and BATTLESHIP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment variable, e.g. BATTLESHIP_STORAGE_TYPE
const EnvPrefix = "BATTLESHIP"

// Storage backends
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// DevJWTSecret is only accepted in development
const DevJWTSecret = "dev-secret-change-me"

// Config is the full server configuration
type Config struct {
	Env      string         `mapstructure:"env"`
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Game     GameConfig     `mapstructure:"game"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// AllowedOrigins limits websocket upgrades; empty allows any origin
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type StorageConfig struct {
	Type string `mapstructure:"type"`
}

type RedisConfig struct {
	URL              string        `mapstructure:"url"`
	PoolSize         int           `mapstructure:"pool_size"`
	GuestPlayerTTL   time.Duration `mapstructure:"guest_player_ttl"`
	CompletedGameTTL time.Duration `mapstructure:"completed_game_ttl"`
}

type PostgresConfig struct {
	URL            string `mapstructure:"url"`
	MaxConns       int32  `mapstructure:"max_conns"`
	MigrateOnStart bool   `mapstructure:"migrate_on_start"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	Issuer    string        `mapstructure:"issuer"`
}

type GameConfig struct {
	MaxActiveGames   int  `mapstructure:"max_active_games"`
	EnforceTurnOrder bool `mapstructure:"enforce_turn_order"`
	RoomCodeLength   int  `mapstructure:"room_code_length"`
}

type NATSConfig struct {
	// URL enables event publishing when set
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", EnvDevelopment)

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("storage.type", StorageMemory)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.guest_player_ttl", 24*time.Hour)
	v.SetDefault("redis.completed_game_ttl", 30*24*time.Hour)

	v.SetDefault("postgres.url", "")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.migrate_on_start", true)

	v.SetDefault("auth.jwt_secret", DevJWTSecret)
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.issuer", "battleship-go")

	v.SetDefault("game.max_active_games", 10)
	v.SetDefault("game.enforce_turn_order", false)
	v.SetDefault("game.room_code_length", 6)

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject_prefix", "battleship.games")

	v.SetDefault("log.level", "info")
}

// Load reads configuration. path may be empty, in which case BATTLESHIP_CONFIG
// is consulted; with neither set only defaults and the environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	// comma separated env values arrive as a single element
	if len(cfg.Server.AllowedOrigins) == 1 && strings.Contains(cfg.Server.AllowedOrigins[0], ",") {
		cfg.Server.AllowedOrigins = strings.Split(cfg.Server.AllowedOrigins[0], ",")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Type {
	case StorageMemory:
	case StorageRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required when storage.type is redis"))
		}
	case StoragePostgres:
		if c.Postgres.URL == "" {
			errs = append(errs, errors.New("postgres.url is required when storage.type is postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.type %q: must be memory, redis or postgres", c.Storage.Type))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	} else if c.Env != EnvDevelopment && c.Auth.JWTSecret == DevJWTSecret {
		errs = append(errs, errors.New("auth.jwt_secret must be changed outside development"))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Game.MaxActiveGames <= 0 {
		errs = append(errs, errors.New("game.max_active_games must be positive"))
	}
	if c.Game.RoomCodeLength < 4 {
		errs = append(errs, errors.New("game.room_code_length must be at least 4"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ParseLevel maps a level name to its slog level
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log.level %q", level)
	}
	return l, nil
}
