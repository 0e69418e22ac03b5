package order

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"

	"github.com/vasiliy-maslov/ecommerce-platform/internal/user"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// ParseStatus converts a raw string into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
	}
	return s, nil
}

// Terminal reports whether no further transitions leave s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// PaymentStatus tracks the state of the payment attached to an order.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Valid reports whether ps is one of the known payment statuses.
func (ps PaymentStatus) Valid() bool {
	switch ps {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// allowedTransitions is the forward lifecycle. Cancellation is reachable
// from pending only; admins may override via TransitionAllowed.
var allowedTransitions = map[Status]map[Status]bool{
	StatusPending:   {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed: {StatusShipped: true},
	StatusShipped:   {StatusDelivered: true},
}

// roleTargets lists the statuses each non-admin role may drive an order to.
// Customers never move orders through this path; they cancel instead.
var roleTargets = map[user.Role]map[Status]bool{
	user.RoleSeller:   {StatusConfirmed: true},
	user.RoleDelivery: {StatusConfirmed: true, StatusShipped: true, StatusDelivered: true},
}

// RoleMayTarget reports whether the role is ever allowed to set the given
// status, regardless of the order's current state.
func RoleMayTarget(role user.Role, to Status) bool {
	if role == user.RoleAdmin {
		return true
	}
	return roleTargets[role][to]
}

// TransitionAllowed reports whether the lifecycle permits moving from one
// status to another. Admins may force any move out of a non-cancelled state.
func TransitionAllowed(role user.Role, from, to Status) bool {
	if role == user.RoleAdmin {
		return from != StatusCancelled && from != to
	}
	return allowedTransitions[from][to]
}

// OrderItem is a line of an order with the product name and unit price
// frozen at purchase time.
type OrderItem struct {
	ID          uuid.UUID `json:"id" db:"id"`
	OrderID     uuid.UUID `json:"order_id" db:"order_id"`
	ProductID   uuid.UUID `json:"product_id" db:"product_id"`
	ProductName string    `json:"product_name" db:"product_name"`
	UnitPrice   float64   `json:"unit_price" db:"unit_price"`
	Quantity    int       `json:"quantity" db:"quantity"`
	LineTotal   float64   `json:"line_total" db:"line_total"`
}

// Order is a customer purchase with its totals, payment and delivery state.
type Order struct {
	ID                  uuid.UUID     `json:"id" db:"id"`
	OrderNumber         string        `json:"order_number" db:"order_number"`
	CustomerID          uuid.UUID     `json:"customer_id" db:"customer_id"`
	Items               []OrderItem   `json:"items" db:"-"`
	Subtotal            float64       `json:"subtotal" db:"subtotal"`
	Tax                 float64       `json:"tax" db:"tax"`
	ShippingCost        float64       `json:"shipping_cost" db:"shipping_cost"`
	Total               float64       `json:"total" db:"total"`
	Status              Status        `json:"status" db:"status"`
	ShippingAddress     string        `json:"shipping_address" db:"shipping_address"`
	BillingAddress      string        `json:"billing_address" db:"billing_address"`
	PaymentMethod       string        `json:"payment_method" db:"payment_method"`
	PaymentStatus       PaymentStatus `json:"payment_status" db:"payment_status"`
	DeliveryMethod      string        `json:"delivery_method" db:"delivery_method"`
	DeliveryAgentID     *uuid.UUID    `json:"delivery_agent_id,omitempty" db:"delivery_agent_id"`
	TrackingNumber      *string       `json:"tracking_number,omitempty" db:"tracking_number"`
	EstimatedDeliveryAt *time.Time    `json:"estimated_delivery_at,omitempty" db:"estimated_delivery_at"`
	DeliveredAt         *time.Time    `json:"delivered_at,omitempty" db:"delivered_at"`
	Notes               string        `json:"notes,omitempty" db:"notes"`
	CreatedAt           time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at" db:"updated_at"`
}

// VisibleTo reports whether u may read the order without consulting its
// line items. Sellers need an item-level check on top of this. Unassigned
// orders are visible to every delivery agent, since any of them may claim
// the shipment; an order assigned to another agent is not.
func (o *Order) VisibleTo(u *user.User) bool {
	if u == nil {
		return false
	}
	switch u.Role {
	case user.RoleAdmin:
		return true
	case user.RoleCustomer:
		return o.CustomerID == u.ID
	case user.RoleDelivery:
		return o.DeliveryAgentID == nil || *o.DeliveryAgentID == u.ID
	}
	return false
}

// Cancellable reports whether the order is still in the only state a
// customer-initiated cancellation may leave from.
func (o *Order) Cancellable() bool {
	return o.Status == StatusPending
}
