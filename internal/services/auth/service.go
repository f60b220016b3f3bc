package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/battleship-go/internal/dependencies/clock"
	"github.com/mcoot/battleship-go/internal/dependencies/random"
	"github.com/mcoot/battleship-go/internal/model"
	"github.com/mcoot/battleship-go/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidUsername    = errors.New("username must be 3-32 letters, digits, '_' or '-'")
	ErrInvalidPassword    = errors.New("password must be at least 8 characters")
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)

const (
	minPasswordLength = 8
	maxDisplayNameLen = 32
	defaultGuestName  = "Guest"
	defaultIssuer     = "battleship-go"
	defaultTokenTTL   = 24 * time.Hour
	insecureDevSecret = "dev-secret-change-me"
)

// Session is an authenticated player and the bearer token proving it
type Session struct {
	Token     string
	PlayerID  model.PlayerID
	Player    model.Player
	ExpiresAt time.Time
}

// Claims is the JWT body issued for a session
type Claims struct {
	DisplayName string `json:"name"`
	Guest       bool   `json:"guest"`
	jwt.RegisteredClaims
}

// Config holds configuration for the auth service
type Config struct {
	Secret   string
	TokenTTL time.Duration
	Issuer   string
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		Secret:   insecureDevSecret,
		TokenTTL: defaultTokenTTL,
		Issuer:   defaultIssuer,
	}
}

// Service issues and validates player sessions
type Service struct {
	players storage.PlayerStore
	clock   clock.Clock
	random  random.Random
	cfg     Config
}

// New creates a new auth Service
func New(players storage.PlayerStore, clock clock.Clock, random random.Random, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.Secret == "" {
		cfg.Secret = def.Secret
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = def.TokenTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = def.Issuer
	}
	return &Service{
		players: players,
		clock:   clock,
		random:  random,
		cfg:     cfg,
	}
}

// CreateGuest creates an anonymous player and session
func (s *Service) CreateGuest(ctx context.Context, displayName string) (*Session, error) {
	player := &model.Player{
		ID:          s.newPlayerID(),
		DisplayName: normalizeDisplayName(displayName, defaultGuestName),
		IsGuest:     true,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.players.SavePlayer(ctx, player); err != nil {
		return nil, err
	}
	return s.issue(player)
}

// Register creates a registered player account and session
func (s *Service) Register(ctx context.Context, username, password, displayName string) (*Session, error) {
	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return nil, ErrInvalidUsername
	}
	if len(password) < minPasswordLength {
		return nil, ErrInvalidPassword
	}

	_, err := s.players.GetRegisteredPlayerByUsername(ctx, username)
	if err == nil {
		return nil, ErrUsernameExists
	}
	if !errors.Is(err, model.ErrPlayerNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	player := &model.Player{
		ID:          s.newPlayerID(),
		DisplayName: normalizeDisplayName(displayName, username),
		CreatedAt:   now,
	}
	registered := &model.RegisteredPlayer{
		PlayerID:     player.ID,
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// player first so a registration never points at a missing player
	if err := s.players.SavePlayer(ctx, player); err != nil {
		return nil, err
	}
	if err := s.players.SaveRegisteredPlayer(ctx, registered); err != nil {
		return nil, err
	}
	return s.issue(player)
}

// Login authenticates a registered player and creates a session
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	rp, err := s.players.GetRegisteredPlayerByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, model.ErrPlayerNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rp.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	player, err := s.players.GetPlayer(ctx, rp.PlayerID)
	if err != nil {
		return nil, err
	}
	return s.issue(player)
}

// ValidateToken checks a bearer token and returns the session it carries
func (s *Service) ValidateToken(token string) (*Session, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(s.cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidSession
	}

	var issuedAt time.Time
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Time.UTC()
	}
	return &Session{
		Token:    token,
		PlayerID: model.PlayerID(claims.Subject),
		Player: model.Player{
			ID:          model.PlayerID(claims.Subject),
			DisplayName: claims.DisplayName,
			IsGuest:     claims.Guest,
			CreatedAt:   issuedAt,
		},
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}

// GetPlayer returns the stored player for a session token
func (s *Service) GetPlayer(ctx context.Context, token string) (*model.Player, error) {
	session, err := s.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	return s.players.GetPlayer(ctx, session.PlayerID)
}

func (s *Service) issue(player *model.Player) (*Session, error) {
	now := s.clock.Now()
	expires := now.Add(s.cfg.TokenTTL)

	claims := Claims{
		DisplayName: player.DisplayName,
		Guest:       player.IsGuest,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(player.ID),
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &Session{
		Token:     signed,
		PlayerID:  player.ID,
		Player:    *player,
		ExpiresAt: expires,
	}, nil
}

func (s *Service) newPlayerID() model.PlayerID {
	return model.PlayerID("p_" + s.random.UUID())
}

func normalizeDisplayName(name, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	if r := []rune(name); len(r) > maxDisplayNameLen {
		name = string(r[:maxDisplayNameLen])
	}
	return name
}
