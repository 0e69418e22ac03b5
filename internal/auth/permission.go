package auth

import (
	"github.com/vasiliy-maslov/ecommerce-platform/internal/user"
)

// Permission represents an action a role may be authorized for. Route-level
// guards consult the matrix below; resource-level ownership is checked by the
// domain services on top of this.
type Permission string

const (
	PermManageProducts Permission = "products:manage"
	PermRateProducts   Permission = "products:rate"
	PermPlaceOrders    Permission = "orders:place"
	PermAdvanceOrders  Permission = "orders:advance"
	PermTrackOrders    Permission = "orders:track"
	PermManageUsers    Permission = "users:manage"
)

// rolePermissions is the canonical capability matrix. Admin rows are spelled
// out rather than implied: admin bypasses ownership checks elsewhere, never
// role checks.
var rolePermissions = map[user.Role]map[Permission]bool{
	user.RoleAdmin: {
		PermManageProducts: true,
		PermRateProducts:   true,
		PermPlaceOrders:    false,
		PermAdvanceOrders:  true,
		PermTrackOrders:    true,
		PermManageUsers:    true,
	},
	user.RoleSeller: {
		PermManageProducts: true,
		PermRateProducts:   true,
		PermAdvanceOrders:  true,
	},
	user.RoleCustomer: {
		PermRateProducts: true,
		PermPlaceOrders:  true,
	},
	user.RoleDelivery: {
		PermRateProducts:  true,
		PermAdvanceOrders: true,
		PermTrackOrders:   true,
	},
}

// Allowed checks a role/permission pair against the matrix.
func Allowed(role user.Role, perm Permission) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	return perms[perm]
}
