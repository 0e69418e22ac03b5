package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/vasiliy-maslov/ecommerce-platform/internal/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// UserStore is the slice of the user repository the gate needs. Satisfied by
// user.Repository.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type Service interface {
	Login(ctx context.Context, email, password string) (*user.User, *Token, error)
	Authenticate(ctx context.Context, tokenID uuid.UUID) (*user.User, error)
	Logout(ctx context.Context, tokenID uuid.UUID) error
}

type service struct {
	tokens   Repository
	users    UserStore
	tokenTTL time.Duration
}

func NewService(tokens Repository, users UserStore, tokenTTL time.Duration) Service {
	return &service{
		tokens:   tokens,
		users:    users,
		tokenTTL: tokenTTL,
	}
}

// Login verifies the credentials and issues a fresh bearer token. Missing
// users, wrong passwords and deactivated accounts are indistinguishable to
// the caller.
func (s *service) Login(ctx context.Context, email, password string) (*user.User, *Token, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		log.Error().Err(err).Msg("service: failed to fetch user for login")
		return nil, nil, fmt.Errorf("service: failed to fetch user for login: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			log.Warn().Stringer("user_id", u.ID).Msg("service: password mismatch on login")
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("service: failed to compare password: %w", err)
	}

	if !u.Active {
		log.Warn().Stringer("user_id", u.ID).Msg("service: login attempt for deactivated user")
		return nil, nil, ErrInvalidCredentials
	}

	tokenID, err := uuid.NewV4()
	if err != nil {
		return nil, nil, fmt.Errorf("service: failed to generate token: %w", err)
	}

	now := time.Now().UTC()
	t := &Token{
		ID:        tokenID,
		UserID:    u.ID,
		ExpiresAt: now.Add(s.tokenTTL),
		CreatedAt: now,
	}

	if err := s.tokens.CreateToken(ctx, t); err != nil {
		log.Error().Err(err).Stringer("user_id", u.ID).Msg("service: failed to persist token")
		return nil, nil, fmt.Errorf("service: failed to persist token: %w", err)
	}

	s.touchLastLogin(ctx, u, now)

	log.Info().Stringer("user_id", u.ID).Str("role", u.Role.String()).Msg("service: user logged in")

	return u, t, nil
}

// Authenticate resolves a bearer token to exactly one active user. Any
// failure collapses into ErrInvalidToken so the response does not reveal
// which check tripped.
func (s *service) Authenticate(ctx context.Context, tokenID uuid.UUID) (*user.User, error) {
	t, err := s.tokens.GetToken(ctx, tokenID)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("service: failed to fetch token: %w", err)
	}

	now := time.Now().UTC()
	if t.Revoked || t.Expired(now) {
		return nil, ErrInvalidToken
	}

	u, err := s.users.GetByID(ctx, t.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("service: failed to fetch token user: %w", err)
	}

	if !u.Active {
		return nil, ErrInvalidToken
	}

	s.touchLastLogin(ctx, u, now)

	return u, nil
}

func (s *service) Logout(ctx context.Context, tokenID uuid.UUID) error {
	if err := s.tokens.RevokeToken(ctx, tokenID); err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("service: failed to revoke token: %w", err)
	}

	return nil
}

// touchLastLogin is best-effort: a failed write is logged, never surfaced.
func (s *service) touchLastLogin(ctx context.Context, u *user.User, at time.Time) {
	if err := s.users.UpdateLastLogin(ctx, u.ID, at); err != nil {
		log.Warn().Err(err).Stringer("user_id", u.ID).Msg("service: failed to update last login")
		return
	}
	u.LastLoginAt = &at
}
