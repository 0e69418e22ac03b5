package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vasiliy-maslov/ecommerce-platform/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/user"
)

func TestAllowed(t *testing.T) {
	testCases := []struct {
		name string
		role user.Role
		perm auth.Permission
		want bool
	}{
		{name: "admin manages products", role: user.RoleAdmin, perm: auth.PermManageProducts, want: true},
		{name: "admin manages users", role: user.RoleAdmin, perm: auth.PermManageUsers, want: true},
		{name: "admin cannot place orders", role: user.RoleAdmin, perm: auth.PermPlaceOrders, want: false},
		{name: "seller manages products", role: user.RoleSeller, perm: auth.PermManageProducts, want: true},
		{name: "seller advances orders", role: user.RoleSeller, perm: auth.PermAdvanceOrders, want: true},
		{name: "seller cannot place orders", role: user.RoleSeller, perm: auth.PermPlaceOrders, want: false},
		{name: "seller cannot manage users", role: user.RoleSeller, perm: auth.PermManageUsers, want: false},
		{name: "customer places orders", role: user.RoleCustomer, perm: auth.PermPlaceOrders, want: true},
		{name: "customer rates products", role: user.RoleCustomer, perm: auth.PermRateProducts, want: true},
		{name: "customer cannot manage products", role: user.RoleCustomer, perm: auth.PermManageProducts, want: false},
		{name: "customer cannot advance orders", role: user.RoleCustomer, perm: auth.PermAdvanceOrders, want: false},
		{name: "delivery tracks orders", role: user.RoleDelivery, perm: auth.PermTrackOrders, want: true},
		{name: "delivery advances orders", role: user.RoleDelivery, perm: auth.PermAdvanceOrders, want: true},
		{name: "delivery cannot manage products", role: user.RoleDelivery, perm: auth.PermManageProducts, want: false},
		{name: "unknown role has no permissions", role: user.Role("ghost"), perm: auth.PermRateProducts, want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, auth.Allowed(tc.role, tc.perm))
		})
	}
}
