package user

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"
)

// Role identifies a user's permission context. The set is closed: every user
// carries exactly one of the four values below.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleSeller   Role = "seller"
	RoleCustomer Role = "customer"
	RoleDelivery Role = "delivery"
)

func (r Role) String() string {
	return string(r)
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSeller, RoleCustomer, RoleDelivery:
		return true
	}
	return false
}

// ParseRole converts a raw string into a Role, rejecting anything outside
// the closed set.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// Roles returns all known roles in stable order.
func Roles() []Role {
	return []Role{RoleAdmin, RoleSeller, RoleCustomer, RoleDelivery}
}

type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         Role       `json:"role" db:"role"`
	Phone        string     `json:"phone,omitempty" db:"phone"`
	Address      string     `json:"address,omitempty" db:"address"`
	Active       bool       `json:"active" db:"active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
