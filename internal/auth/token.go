package auth

import (
	"time"

	"github.com/gofrs/uuid"
)

// Token is an opaque bearer credential. The UUID itself is the secret handed
// to the client; validity lives server-side so tokens can be revoked.
type Token struct {
	ID        uuid.UUID `json:"token" db:"id"`
	UserID    uuid.UUID `json:"-" db:"user_id"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	Revoked   bool      `json:"-" db:"revoked"`
	CreatedAt time.Time `json:"-" db:"created_at"`
}

func (t *Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
