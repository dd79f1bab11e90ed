package service

import (
	"context"
	"errors"
	"time"

	accounts "leadbridge/internal/accounts/domain"
	accountsrepo "leadbridge/internal/accounts/repository"
	"leadbridge/internal/auth/password"
	"leadbridge/internal/auth/token"
	"leadbridge/internal/events"
	"leadbridge/platform/apperr"
	"leadbridge/platform/config"
	"leadbridge/platform/logger"

	"github.com/google/uuid"
)

var (
	errInvalidCredentials = apperr.Unauthorized("invalid credentials")
	errTokenInvalid       = apperr.Unauthorized("token invalid")
	errTokenExpired       = apperr.Unauthorized("token expired")
)

// UserStore is the slice of the accounts repository auth needs.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (accounts.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (accounts.User, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type TokenStore interface {
	CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, time.Time, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
}

// ClientInfo is recorded in the activity log.
type ClientInfo struct {
	IP        string
	UserAgent string
}

type Tokens struct {
	AccessToken  string
	RefreshToken string
}

type Service struct {
	users    UserStore
	tokens   TokenStore
	cfg      config.AuthServiceConfig
	eventBus events.Bus
	log      *logger.Logger
	now      func() time.Time
}

func New(users UserStore, tokens TokenStore, cfg config.AuthServiceConfig, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{users: users, tokens: tokens, cfg: cfg, eventBus: eventBus, log: log, now: time.Now}
}

func (s *Service) SignIn(ctx context.Context, email, plainPassword string, client ClientInfo) (Tokens, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, accountsrepo.ErrNotFound) {
			s.log.AuthEvent("sign_in", email, false, "unknown email")
			return Tokens{}, errInvalidCredentials
		}
		return Tokens{}, err
	}
	if !user.IsActive {
		s.log.AuthEvent("sign_in", email, false, "inactive")
		return Tokens{}, errInvalidCredentials
	}
	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		s.log.AuthEvent("sign_in", email, false, "bad password")
		return Tokens{}, errInvalidCredentials
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return Tokens{}, err
	}
	if err := s.users.TouchLastLogin(ctx, user.ID, s.now()); err != nil {
		s.log.Warn("failed to record last login", "error", err, "userId", user.ID)
	}

	s.log.AuthEvent("sign_in", email, true, "")
	s.eventBus.Publish(ctx, events.UserLoggedIn{
		BaseEvent: events.NewBaseEvent(),
		UserID:    user.ID,
		Email:     user.Email,
		IP:        client.IP,
		UserAgent: client.UserAgent,
	})
	return tokens, nil
}

// Refresh rotates a refresh token. The presented token is always revoked.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	hash := token.HashSHA256(refreshToken)
	userID, expiresAt, err := s.tokens.GetRefreshToken(ctx, hash)
	if err != nil {
		return Tokens{}, errTokenInvalid
	}
	_ = s.tokens.RevokeRefreshToken(ctx, hash)
	if s.now().After(expiresAt) {
		return Tokens{}, errTokenExpired
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil || !user.IsActive {
		return Tokens{}, errTokenInvalid
	}
	return s.issueTokens(ctx, user)
}

func (s *Service) SignOut(ctx context.Context, userID uuid.UUID, refreshToken string, client ClientInfo) error {
	if refreshToken != "" {
		if err := s.tokens.RevokeRefreshToken(ctx, token.HashSHA256(refreshToken)); err != nil {
			return err
		}
	}
	s.eventBus.Publish(ctx, events.UserLoggedOut{
		BaseEvent: events.NewBaseEvent(),
		UserID:    userID,
		IP:        client.IP,
		UserAgent: client.UserAgent,
	})
	return nil
}

func (s *Service) Me(ctx context.Context, userID uuid.UUID) (accounts.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, accountsrepo.ErrNotFound) {
		return accounts.User{}, apperr.NotFound("user not found")
	}
	return user, err
}

func (s *Service) issueTokens(ctx context.Context, user accounts.User) (Tokens, error) {
	now := s.now()
	access, err := token.SignAccess(token.AccessClaims{
		UserID:    user.ID,
		Role:      string(user.Role),
		Superuser: user.IsSuperuser,
	}, s.cfg.GetJWTAccessSecret(), s.cfg.GetAccessTokenTTL(), now)
	if err != nil {
		return Tokens{}, err
	}

	refresh, err := token.GenerateRandomToken(48)
	if err != nil {
		return Tokens{}, err
	}
	if err := s.tokens.CreateRefreshToken(ctx, user.ID, token.HashSHA256(refresh), now.Add(s.cfg.GetRefreshTokenTTL())); err != nil {
		return Tokens{}, err
	}
	return Tokens{AccessToken: access, RefreshToken: refresh}, nil
}
