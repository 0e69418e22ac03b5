package order

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/ecommerce-platform/internal/product"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/user"
)

var (
	// ErrInvalidOrder is returned when order fields fail semantic checks.
	ErrInvalidOrder = errors.New("invalid order")
	// ErrProductUnavailable is returned when an ordered product does not
	// exist or is no longer active.
	ErrProductUnavailable = errors.New("product unavailable")
	// ErrTransitionForbidden is returned when the caller's role may never
	// drive the requested status.
	ErrTransitionForbidden = errors.New("role may not perform this transition")
	// ErrInvalidTransition is returned when the lifecycle does not permit
	// the requested move from the order's current status.
	ErrInvalidTransition = errors.New("transition not allowed from current status")
	// ErrNotPending is returned when a pending-only operation hits an order
	// that has already moved on.
	ErrNotPending = errors.New("order is no longer pending")
)

const (
	taxRate               = 0.08
	freeShippingThreshold = 50.0
	flatShippingFee       = 5.99
	defaultDeliveryMethod = "standard"

	// orderNumberAttempts bounds retries when a generated number collides.
	orderNumberAttempts = 3
)

// ItemInput is one requested line of a new order.
type ItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateInput carries the customer-supplied fields of a new order.
type CreateInput struct {
	Items           []ItemInput
	ShippingAddress string
	BillingAddress  string
	PaymentMethod   string
	DeliveryMethod  string
	Notes           string
}

// ProductStore is the slice of the catalog the order flow needs.
type ProductStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*product.Product, error)
}

// Service defines methods for order business logic. Every method takes the
// authenticated caller; visibility and transition rules depend on it.
type Service interface {
	Create(ctx context.Context, caller *user.User, input CreateInput) (*Order, error)
	GetByID(ctx context.Context, caller *user.User, id uuid.UUID) (*Order, error)
	List(ctx context.Context, caller *user.User, filter ListFilter) ([]Order, int, error)
	UpdateStatus(ctx context.Context, caller *user.User, id uuid.UUID, to Status) (*Order, error)
	Cancel(ctx context.Context, caller *user.User, id uuid.UUID) error
	UpdateAddresses(ctx context.Context, caller *user.User, id uuid.UUID, shipping, billing string) (*Order, error)
	SetTracking(ctx context.Context, caller *user.User, id uuid.UUID, tracking string, estimated *time.Time) (*Order, error)
}

type service struct {
	repo     Repository
	products ProductStore
}

// NewService creates an order service over the given repository and catalog.
func NewService(repo Repository, products ProductStore) Service {
	return &service{repo: repo, products: products}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func newOrderNumber() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("service: failed to generate order number suffix: %w", err)
	}
	return fmt.Sprintf("ORD-%s-%X", time.Now().Format("060102150405"), id.Bytes()[:2]), nil
}

func (s *service) Create(ctx context.Context, caller *user.User, input CreateInput) (*Order, error) {
	if len(input.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrInvalidOrder)
	}
	if strings.TrimSpace(input.ShippingAddress) == "" {
		return nil, fmt.Errorf("%w: shipping address is required", ErrInvalidOrder)
	}
	if strings.TrimSpace(input.PaymentMethod) == "" {
		return nil, fmt.Errorf("%w: payment method is required", ErrInvalidOrder)
	}

	items := make([]OrderItem, 0, len(input.Items))
	var subtotal float64
	for _, in := range input.Items {
		if in.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidOrder)
		}

		p, err := s.products.GetByID(ctx, in.ProductID)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, in.ProductID)
			}
			return nil, fmt.Errorf("service: failed to load product %s: %w", in.ProductID, err)
		}
		if !p.Active {
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, in.ProductID)
		}
		if p.Stock < in.Quantity {
			return nil, fmt.Errorf("%w: product %s", ErrInsufficientStock, in.ProductID)
		}

		itemID, err := uuid.NewV4()
		if err != nil {
			return nil, fmt.Errorf("service: failed to generate item id: %w", err)
		}

		lineTotal := round2(p.Price * float64(in.Quantity))
		items = append(items, OrderItem{
			ID:          itemID,
			ProductID:   p.ID,
			ProductName: p.Name,
			UnitPrice:   p.Price,
			Quantity:    in.Quantity,
			LineTotal:   lineTotal,
		})
		subtotal += lineTotal
	}

	subtotal = round2(subtotal)
	tax := round2(subtotal * taxRate)
	shipping := flatShippingFee
	if subtotal > freeShippingThreshold {
		shipping = 0
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate order id: %w", err)
	}

	billing := input.BillingAddress
	if strings.TrimSpace(billing) == "" {
		billing = input.ShippingAddress
	}
	deliveryMethod := input.DeliveryMethod
	if strings.TrimSpace(deliveryMethod) == "" {
		deliveryMethod = defaultDeliveryMethod
	}

	now := time.Now()
	o := &Order{
		ID:              id,
		CustomerID:      caller.ID,
		Items:           items,
		Subtotal:        subtotal,
		Tax:             tax,
		ShippingCost:    shipping,
		Total:           round2(subtotal + tax + shipping),
		Status:          StatusPending,
		ShippingAddress: input.ShippingAddress,
		BillingAddress:  billing,
		PaymentMethod:   input.PaymentMethod,
		PaymentStatus:   PaymentPending,
		DeliveryMethod:  deliveryMethod,
		Notes:           input.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for i := range o.Items {
		o.Items[i].OrderID = id
	}

	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		o.OrderNumber, err = newOrderNumber()
		if err != nil {
			return nil, err
		}

		err = s.repo.Create(ctx, o)
		if err == nil {
			return o, nil
		}
		if errors.Is(err, ErrInsufficientStock) {
			return nil, err
		}
		if !errors.Is(err, ErrOrderNumberExists) {
			return nil, fmt.Errorf("service: failed to create order: %w", err)
		}
		log.Warn().Str("order_number", o.OrderNumber).Msg("service: order number collision, regenerating")
	}

	return nil, fmt.Errorf("service: failed to create order: %w", err)
}

// visibleTo extends Order.VisibleTo with the seller's item-level check.
func (s *service) visibleTo(ctx context.Context, caller *user.User, o *Order) (bool, error) {
	if o.VisibleTo(caller) {
		return true, nil
	}
	if caller.Role == user.RoleSeller {
		ok, err := s.repo.HasSellerItems(ctx, o.ID, caller.ID)
		if err != nil {
			return false, fmt.Errorf("service: failed to check order visibility: %w", err)
		}
		return ok, nil
	}
	return false, nil
}

func (s *service) GetByID(ctx context.Context, caller *user.User, id uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to get order: %w", err)
	}

	visible, err := s.visibleTo(ctx, caller, o)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, ErrNotFound
	}

	return o, nil
}

// List returns orders scoped to what the caller may see: customers their
// own, sellers orders containing their products, delivery agents their
// assignments plus unclaimed orders, admins everything.
func (s *service) List(ctx context.Context, caller *user.User, filter ListFilter) ([]Order, int, error) {
	switch caller.Role {
	case user.RoleCustomer:
		filter.CustomerID = &caller.ID
	case user.RoleSeller:
		filter.SellerID = &caller.ID
	case user.RoleDelivery:
		filter.AgentID = &caller.ID
		filter.IncludeUnassigned = true
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("service: failed to list orders: %w", err)
	}

	return orders, total, nil
}

// UpdateStatus drives an order through its lifecycle. The caller's role must
// be allowed to set the target status at all, then the move must be legal
// from the current status. Admins may force any move out of a non-cancelled
// state, including cancellation with stock restoration.
func (s *service) UpdateStatus(ctx context.Context, caller *user.User, id uuid.UUID, to Status) (*Order, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}

	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to get order: %w", err)
	}

	switch caller.Role {
	case user.RoleSeller:
		ok, err := s.repo.HasSellerItems(ctx, o.ID, caller.ID)
		if err != nil {
			return nil, fmt.Errorf("service: failed to check order visibility: %w", err)
		}
		if !ok {
			return nil, ErrNotFound
		}
	case user.RoleDelivery:
		// Unassigned orders are fair game for any agent; another agent's
		// assignments are not.
		if o.DeliveryAgentID != nil && *o.DeliveryAgentID != caller.ID {
			return nil, ErrNotFound
		}
	}

	if !RoleMayTarget(caller.Role, to) {
		return nil, ErrTransitionForbidden
	}
	if o.Status == to {
		return o, nil
	}
	if !TransitionAllowed(caller.Role, o.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}

	if to == StatusCancelled {
		if err := s.repo.Cancel(ctx, o, o.Status); err != nil {
			if errors.Is(err, ErrStatusConflict) {
				return nil, ErrStatusConflict
			}
			return nil, fmt.Errorf("service: failed to cancel order: %w", err)
		}
		if o.PaymentStatus == PaymentCompleted {
			o.PaymentStatus = PaymentRefunded
		}
		o.Status = StatusCancelled
		o.UpdatedAt = time.Now()
		return o, nil
	}

	var agentID *uuid.UUID
	if caller.Role == user.RoleDelivery && to == StatusShipped && o.DeliveryAgentID == nil {
		agentID = &caller.ID
	}
	var deliveredAt *time.Time
	if to == StatusDelivered {
		now := time.Now()
		deliveredAt = &now
	}

	if err := s.repo.UpdateStatus(ctx, id, o.Status, to, agentID, deliveredAt); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, ErrStatusConflict
		}
		return nil, fmt.Errorf("service: failed to update order status: %w", err)
	}

	o.Status = to
	if agentID != nil {
		o.DeliveryAgentID = agentID
	}
	if deliveredAt != nil {
		o.DeliveredAt = deliveredAt
	}
	o.UpdatedAt = time.Now()

	return o, nil
}

// Cancel is the customer-facing cancellation: the order must still be
// pending and belong to the caller (admins may cancel any pending order).
func (s *service) Cancel(ctx context.Context, caller *user.User, id uuid.UUID) error {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("service: failed to get order: %w", err)
	}

	if caller.Role != user.RoleAdmin && o.CustomerID != caller.ID {
		return ErrNotFound
	}
	if !o.Cancellable() {
		return ErrNotPending
	}

	if err := s.repo.Cancel(ctx, o, StatusPending); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return ErrStatusConflict
		}
		return fmt.Errorf("service: failed to cancel order: %w", err)
	}

	return nil
}

func (s *service) UpdateAddresses(ctx context.Context, caller *user.User, id uuid.UUID, shipping, billing string) (*Order, error) {
	if strings.TrimSpace(shipping) == "" {
		return nil, fmt.Errorf("%w: shipping address is required", ErrInvalidOrder)
	}
	if strings.TrimSpace(billing) == "" {
		billing = shipping
	}

	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to get order: %w", err)
	}

	if caller.Role != user.RoleAdmin && o.CustomerID != caller.ID {
		return nil, ErrNotFound
	}
	if o.Status != StatusPending {
		return nil, ErrNotPending
	}

	if err := s.repo.UpdateAddresses(ctx, id, shipping, billing); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, ErrNotPending
		}
		return nil, fmt.Errorf("service: failed to update order addresses: %w", err)
	}

	o.ShippingAddress = shipping
	o.BillingAddress = billing
	o.UpdatedAt = time.Now()

	return o, nil
}

// SetTracking attaches a tracking number and optional delivery estimate. An
// unassigned order is claimed by the delivery agent who sets its tracking.
func (s *service) SetTracking(ctx context.Context, caller *user.User, id uuid.UUID, tracking string, estimated *time.Time) (*Order, error) {
	if strings.TrimSpace(tracking) == "" {
		return nil, fmt.Errorf("%w: tracking number is required", ErrInvalidOrder)
	}

	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to get order: %w", err)
	}

	var agentID *uuid.UUID
	if caller.Role == user.RoleDelivery {
		if o.DeliveryAgentID != nil && *o.DeliveryAgentID != caller.ID {
			return nil, ErrNotFound
		}
		if o.DeliveryAgentID == nil {
			agentID = &caller.ID
		}
	}

	if err := s.repo.SetDelivery(ctx, id, tracking, estimated, agentID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to set order tracking: %w", err)
	}

	o.TrackingNumber = &tracking
	if estimated != nil {
		o.EstimatedDeliveryAt = estimated
	}
	if agentID != nil {
		o.DeliveryAgentID = agentID
	}
	o.UpdatedAt = time.Now()

	return o, nil
}
