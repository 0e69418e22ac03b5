package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrCannotDeleteSelf = errors.New("admin cannot delete own account")
	ErrRoleNotAllowed   = errors.New("role cannot be assigned at registration")
)

// ProfileUpdate carries the fields a user may change on their own record.
// Role and the active flag are deliberately absent.
type ProfileUpdate struct {
	Name     string
	Email    string
	Phone    string
	Address  string
	Password *string
}

// AdminUpdate is the admin-side counterpart; it is the only path that can
// change a user's role or active flag.
type AdminUpdate struct {
	Name     string
	Email    string
	Phone    string
	Address  string
	Role     Role
	Active   bool
	Password *string
}

type Service interface {
	Register(ctx context.Context, u *User, password string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileUpdate) (*User, error)
	AdminUpdateUser(ctx context.Context, id uuid.UUID, in AdminUpdate) (*User, error)
	DeleteUser(ctx context.Context, caller *User, id uuid.UUID) error
	ListUsers(ctx context.Context, filter ListFilter) ([]User, int, error)
	EnsureAdmin(ctx context.Context, email, password string) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Register(ctx context.Context, u *User, password string) (*User, error) {
	if password == "" {
		return nil, errors.New("service: password cannot be empty")
	}
	if !u.Role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, u.Role)
	}
	if u.Role == RoleAdmin {
		return nil, ErrRoleNotAllowed
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to hash password")
		return nil, fmt.Errorf("service: failed to hash password: %w", err)
	}

	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.PasswordHash = string(hash)
	u.Active = true

	id, err := s.repo.Create(ctx, u)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, ErrEmailExists
		}
		log.Error().Err(err).Msg("service: failed to create user in repository")
		return nil, fmt.Errorf("service: failed to create user: %w", err)
	}
	u.ID = id

	log.Info().Stringer("user_id", u.ID).Str("role", u.Role.String()).Msg("service: user registered")

	return u, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch user by id '%s': %w", id, err)
	}

	return u, nil
}

func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileUpdate) (*User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	u.Name = in.Name
	u.Email = strings.ToLower(strings.TrimSpace(in.Email))
	u.Phone = in.Phone
	u.Address = in.Address

	if in.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("service: failed to hash password: %w", err)
		}
		u.PasswordHash = string(hash)
	}

	if err := s.repo.Update(ctx, u); err != nil {
		if errors.Is(err, ErrEmailExists) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to update profile")
		return nil, fmt.Errorf("service: failed to update user '%s': %w", id, err)
	}

	return u, nil
}

func (s *service) AdminUpdateUser(ctx context.Context, id uuid.UUID, in AdminUpdate) (*User, error) {
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, in.Role)
	}

	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	u.Name = in.Name
	u.Email = strings.ToLower(strings.TrimSpace(in.Email))
	u.Phone = in.Phone
	u.Address = in.Address
	u.Role = in.Role
	u.Active = in.Active

	if in.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("service: failed to hash password: %w", err)
		}
		u.PasswordHash = string(hash)
	}

	if err := s.repo.Update(ctx, u); err != nil {
		if errors.Is(err, ErrEmailExists) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to update user")
		return nil, fmt.Errorf("service: failed to update user '%s': %w", id, err)
	}

	log.Info().Stringer("user_id", id).Str("role", u.Role.String()).Bool("active", u.Active).Msg("service: user updated by admin")

	return u, nil
}

func (s *service) DeleteUser(ctx context.Context, caller *User, id uuid.UUID) error {
	if caller.ID == id {
		return ErrCannotDeleteSelf
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to delete user")
		return fmt.Errorf("service: failed to delete user '%s': %w", id, err)
	}

	log.Info().Stringer("user_id", id).Stringer("deleted_by", caller.ID).Msg("service: user deleted")

	return nil
}

func (s *service) ListUsers(ctx context.Context, filter ListFilter) ([]User, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("service: failed to list users: %w", err)
	}

	return users, total, nil
}

// EnsureAdmin creates the bootstrap admin account when it does not exist yet.
// Registration never grants the admin role, so a fresh deployment needs this
// to have an admin at all.
func (s *service) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("service: failed to check admin account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("service: failed to hash admin password: %w", err)
	}

	admin := &User{
		Name:         "Administrator",
		Email:        email,
		PasswordHash: string(hash),
		Role:         RoleAdmin,
		Active:       true,
	}

	if _, err := s.repo.Create(ctx, admin); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil
		}
		return fmt.Errorf("service: failed to create admin account: %w", err)
	}

	log.Info().Str("email", email).Msg("service: bootstrap admin created")

	return nil
}
