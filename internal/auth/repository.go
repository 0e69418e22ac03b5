package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrTokenNotFound = errors.New("token not found")

type Repository interface {
	CreateToken(ctx context.Context, t *Token) error
	GetToken(ctx context.Context, id uuid.UUID) (*Token, error)
	RevokeToken(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateToken(ctx context.Context, t *Token) error {
	query := `
		INSERT INTO auth_tokens (id, user_id, expires_at, revoked, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, t.ID, t.UserID, t.ExpiresAt, t.Revoked, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to insert token: %w", err)
	}

	return nil
}

func (r *postgresRepository) GetToken(ctx context.Context, id uuid.UUID) (*Token, error) {
	query := `
		SELECT id, user_id, expires_at, revoked, created_at
		FROM auth_tokens
		WHERE id = $1
	`

	var t Token
	err := r.db.QueryRow(ctx, query, id).Scan(&t.ID, &t.UserID, &t.ExpiresAt, &t.Revoked, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("repository: failed to select token: %w", err)
	}

	return &t, nil
}

func (r *postgresRepository) RevokeToken(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `UPDATE auth_tokens SET revoked = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to revoke token: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrTokenNotFound
	}

	return nil
}
