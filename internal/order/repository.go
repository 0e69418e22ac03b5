package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNotFound is returned when no order matches the given id.
	ErrNotFound = errors.New("order not found")
	// ErrOrderNumberExists is returned when an insert collides on order_number.
	ErrOrderNumberExists = errors.New("order number already exists")
	// ErrInsufficientStock is returned when a product cannot cover the
	// requested quantity. The whole order is rolled back.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrUnknownStatus is returned for a status outside the known set.
	ErrUnknownStatus = errors.New("unknown order status")
	// ErrStatusConflict is returned when the order's status moved between the
	// caller's read and the guarded update.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// ListFilter narrows an order listing. Nil fields are ignored. SellerID
// matches orders that contain at least one of the seller's products.
// IncludeUnassigned widens an AgentID match to orders with no agent yet.
type ListFilter struct {
	CustomerID        *uuid.UUID
	SellerID          *uuid.UUID
	AgentID           *uuid.UUID
	IncludeUnassigned bool
	Status            *Status
	Page              int
	Limit             int
}

// Repository defines methods for order persistence.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, agentID *uuid.UUID, deliveredAt *time.Time) error
	Cancel(ctx context.Context, o *Order, from Status) error
	UpdateAddresses(ctx context.Context, id uuid.UUID, shipping, billing string) error
	SetDelivery(ctx context.Context, id uuid.UUID, tracking string, estimated *time.Time, agentID *uuid.UUID) error
	HasSellerItems(ctx context.Context, orderID, sellerID uuid.UUID) (bool, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates an order repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const orderColumns = `id, order_number, customer_id, subtotal, tax, shipping_cost, total, status,
		shipping_address, billing_address, payment_method, payment_status, delivery_method,
		delivery_agent_id, tracking_number, estimated_delivery_at, delivered_at, notes,
		created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerID, &o.Subtotal, &o.Tax, &o.ShippingCost, &o.Total,
		&o.Status, &o.ShippingAddress, &o.BillingAddress, &o.PaymentMethod, &o.PaymentStatus,
		&o.DeliveryMethod, &o.DeliveryAgentID, &o.TrackingNumber, &o.EstimatedDeliveryAt,
		&o.DeliveredAt, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// Create inserts the order and its items, decrementing product stock in the
// same transaction. The decrement is conditional on remaining stock, so two
// concurrent orders can never oversell a product: the second one sees zero
// affected rows and the whole transaction rolls back.
func (r *postgresRepository) Create(ctx context.Context, o *Order) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Error().Err(rbErr).Msg("repository: failed to rollback order creation")
			}
		}
	}()

	stockQuery := `
		UPDATE products
		SET stock = stock - $2, sales = sales + $2, updated_at = now()
		WHERE id = $1 AND active AND stock >= $2`

	for _, item := range o.Items {
		cmdTag, execErr := tx.Exec(ctx, stockQuery, item.ProductID, item.Quantity)
		if execErr != nil {
			err = fmt.Errorf("repository: failed to decrement stock: %w", execErr)
			return err
		}
		if cmdTag.RowsAffected() == 0 {
			err = fmt.Errorf("%w: product %s", ErrInsufficientStock, item.ProductID)
			return err
		}
	}

	orderQuery := `
		INSERT INTO orders (id, order_number, customer_id, subtotal, tax, shipping_cost, total,
			status, shipping_address, billing_address, payment_method, payment_status,
			delivery_method, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err = tx.Exec(ctx, orderQuery,
		o.ID, o.OrderNumber, o.CustomerID, o.Subtotal, o.Tax, o.ShippingCost, o.Total,
		o.Status, o.ShippingAddress, o.BillingAddress, o.PaymentMethod, o.PaymentStatus,
		o.DeliveryMethod, o.Notes, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			err = ErrOrderNumberExists
			return err
		}
		err = fmt.Errorf("repository: failed to insert order: %w", err)
		return err
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, product_name, unit_price, quantity, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for _, item := range o.Items {
		_, err = tx.Exec(ctx, itemQuery,
			item.ID, o.ID, item.ProductID, item.ProductName, item.UnitPrice, item.Quantity, item.LineTotal,
		)
		if err != nil {
			err = fmt.Errorf("repository: failed to insert order item: %w", err)
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit order creation: %w", err)
	}

	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	o, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to get order by id: %w", err)
	}

	items, err := r.itemsForOrders(ctx, []string{id.String()})
	if err != nil {
		return nil, err
	}
	o.Items = items[id]
	if o.Items == nil {
		o.Items = []OrderItem{}
	}

	return o, nil
}

func (r *postgresRepository) itemsForOrders(ctx context.Context, orderIDs []string) (map[uuid.UUID][]OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, product_name, unit_price, quantity, line_total
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY product_name`

	rows, err := r.db.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to list order items: %w", err)
	}
	defer rows.Close()

	items := make(map[uuid.UUID][]OrderItem)
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.UnitPrice, &it.Quantity, &it.LineTotal); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item: %w", err)
		}
		items[it.OrderID] = append(items[it.OrderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed to iterate order items: %w", err)
	}

	return items, nil
}

func (r *postgresRepository) List(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	clauses := []string{}
	args := []any{}
	argCounter := 1

	if filter.CustomerID != nil {
		clauses = append(clauses, fmt.Sprintf("customer_id = $%d", argCounter))
		args = append(args, *filter.CustomerID)
		argCounter++
	}
	if filter.AgentID != nil {
		clause := fmt.Sprintf("delivery_agent_id = $%d", argCounter)
		if filter.IncludeUnassigned {
			clause = fmt.Sprintf("(delivery_agent_id = $%d OR delivery_agent_id IS NULL)", argCounter)
		}
		clauses = append(clauses, clause)
		args = append(args, *filter.AgentID)
		argCounter++
	}
	if filter.SellerID != nil {
		clauses = append(clauses, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM order_items oi
			JOIN products p ON p.id = oi.product_id
			WHERE oi.order_id = orders.id AND p.seller_id = $%d)`, argCounter))
		args = append(args, *filter.SellerID)
		argCounter++
	}
	if filter.Status != nil {
		clauses = append(clauses, fmt.Sprintf("status = $%d", argCounter))
		args = append(args, *filter.Status)
		argCounter++
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	countQuery := "SELECT count(*) FROM orders" + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to count orders: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, argCounter, argCounter+1)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []Order{}
	ids := []string{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repository: failed to scan order row: %w", err)
		}
		orders = append(orders, *o)
		ids = append(ids, o.ID.String())
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to iterate order rows: %w", err)
	}

	if len(ids) > 0 {
		items, err := r.itemsForOrders(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for i := range orders {
			orders[i].Items = items[orders[i].ID]
			if orders[i].Items == nil {
				orders[i].Items = []OrderItem{}
			}
		}
	}

	return orders, total, nil
}

// UpdateStatus moves an order from one status to another with a guard on the
// expected current status. Optional agent and delivery timestamps are set
// only when provided.
func (r *postgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, agentID *uuid.UUID, deliveredAt *time.Time) error {
	query := `
		UPDATE orders
		SET status = $3,
			delivery_agent_id = COALESCE($4, delivery_agent_id),
			delivered_at = COALESCE($5, delivered_at),
			updated_at = now()
		WHERE id = $1 AND status = $2`

	cmdTag, err := r.db.Exec(ctx, query, id, from, to, agentID, deliveredAt)
	if err != nil {
		return fmt.Errorf("repository: failed to update order status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrStatusConflict
	}

	return nil
}

// Cancel flips the order to cancelled and returns every item's quantity to
// product stock in one transaction. A completed payment becomes refunded.
// The status guard makes a concurrent double-cancel restore stock only once.
func (r *postgresRepository) Cancel(ctx context.Context, o *Order, from Status) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Error().Err(rbErr).Msg("repository: failed to rollback order cancellation")
			}
		}
	}()

	statusQuery := `
		UPDATE orders
		SET status = $3,
			payment_status = CASE WHEN payment_status = $4 THEN $5 ELSE payment_status END,
			updated_at = now()
		WHERE id = $1 AND status = $2`

	cmdTag, err := tx.Exec(ctx, statusQuery, o.ID, from, StatusCancelled, PaymentCompleted, PaymentRefunded)
	if err != nil {
		err = fmt.Errorf("repository: failed to cancel order: %w", err)
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		err = ErrStatusConflict
		return err
	}

	restockQuery := `
		UPDATE products
		SET stock = stock + $2, sales = GREATEST(sales - $2, 0), updated_at = now()
		WHERE id = $1`

	for _, item := range o.Items {
		if _, err = tx.Exec(ctx, restockQuery, item.ProductID, item.Quantity); err != nil {
			err = fmt.Errorf("repository: failed to restore stock: %w", err)
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit order cancellation: %w", err)
	}

	return nil
}

// UpdateAddresses rewrites the shipping and billing addresses of an order
// that is still pending.
func (r *postgresRepository) UpdateAddresses(ctx context.Context, id uuid.UUID, shipping, billing string) error {
	query := `
		UPDATE orders
		SET shipping_address = $2, billing_address = $3, updated_at = now()
		WHERE id = $1 AND status = $4`

	cmdTag, err := r.db.Exec(ctx, query, id, shipping, billing, StatusPending)
	if err != nil {
		return fmt.Errorf("repository: failed to update order addresses: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrStatusConflict
	}

	return nil
}

func (r *postgresRepository) SetDelivery(ctx context.Context, id uuid.UUID, tracking string, estimated *time.Time, agentID *uuid.UUID) error {
	query := `
		UPDATE orders
		SET tracking_number = $2,
			estimated_delivery_at = COALESCE($3, estimated_delivery_at),
			delivery_agent_id = COALESCE($4, delivery_agent_id),
			updated_at = now()
		WHERE id = $1`

	cmdTag, err := r.db.Exec(ctx, query, id, tracking, estimated, agentID)
	if err != nil {
		return fmt.Errorf("repository: failed to set order tracking: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// HasSellerItems reports whether at least one line of the order references a
// product owned by the given seller.
func (r *postgresRepository) HasSellerItems(ctx context.Context, orderID, sellerID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM order_items oi
			JOIN products p ON p.id = oi.product_id
			WHERE oi.order_id = $1 AND p.seller_id = $2)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, orderID, sellerID).Scan(&exists); err != nil {
		return false, fmt.Errorf("repository: failed to check seller items: %w", err)
	}

	return exists, nil
}
