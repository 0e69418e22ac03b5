package report

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vasiliy-maslov/ecommerce-platform/internal/order"
)

// Repository defines the read-only aggregation queries behind the
// dashboards. It runs over the stdlib bridge of the shared pgx pool.
type Repository interface {
	AdminStats(ctx context.Context) (*AdminStats, error)
	SellerStats(ctx context.Context, sellerID uuid.UUID) (*SellerStats, error)
	DeliveryStats(ctx context.Context, agentID uuid.UUID) (*DeliveryStats, error)
	SalesSeries(ctx context.Context, days int, sellerID *uuid.UUID) ([]SalesPoint, error)
}

type postgresRepository struct {
	db        *sqlx.DB
	threshold int
}

// NewPostgresRepository creates a reporting repository. threshold is the
// stock level counted as "low".
func NewPostgresRepository(db *sqlx.DB, threshold int) Repository {
	return &postgresRepository{db: db, threshold: threshold}
}

func (r *postgresRepository) AdminStats(ctx context.Context) (*AdminStats, error) {
	var stats AdminStats

	if err := r.db.GetContext(ctx, &stats.TotalUsers, `SELECT count(*) FROM users`); err != nil {
		return nil, fmt.Errorf("repository: failed to count users: %w", err)
	}

	usersByRole := `SELECT role, count(*) AS count FROM users GROUP BY role ORDER BY role`
	if err := r.db.SelectContext(ctx, &stats.UsersByRole, usersByRole); err != nil {
		return nil, fmt.Errorf("repository: failed to count users by role: %w", err)
	}

	if err := r.db.GetContext(ctx, &stats.TotalProducts, `SELECT count(*) FROM products`); err != nil {
		return nil, fmt.Errorf("repository: failed to count products: %w", err)
	}
	if err := r.db.GetContext(ctx, &stats.ActiveProducts, `SELECT count(*) FROM products WHERE active`); err != nil {
		return nil, fmt.Errorf("repository: failed to count active products: %w", err)
	}

	if err := r.db.GetContext(ctx, &stats.TotalOrders, `SELECT count(*) FROM orders`); err != nil {
		return nil, fmt.Errorf("repository: failed to count orders: %w", err)
	}

	ordersByStatus := `SELECT status, count(*) AS count FROM orders GROUP BY status ORDER BY status`
	if err := r.db.SelectContext(ctx, &stats.OrdersByStatus, ordersByStatus); err != nil {
		return nil, fmt.Errorf("repository: failed to count orders by status: %w", err)
	}

	revenue := `SELECT COALESCE(sum(total), 0) FROM orders WHERE status <> $1`
	if err := r.db.GetContext(ctx, &stats.Revenue, revenue, order.StatusCancelled); err != nil {
		return nil, fmt.Errorf("repository: failed to sum revenue: %w", err)
	}

	lowStock := `SELECT count(*) FROM products WHERE active AND stock <= $1`
	if err := r.db.GetContext(ctx, &stats.LowStockCount, lowStock, r.threshold); err != nil {
		return nil, fmt.Errorf("repository: failed to count low stock products: %w", err)
	}

	return &stats, nil
}

func (r *postgresRepository) SellerStats(ctx context.Context, sellerID uuid.UUID) (*SellerStats, error) {
	var stats SellerStats

	if err := r.db.GetContext(ctx, &stats.TotalProducts,
		`SELECT count(*) FROM products WHERE seller_id = $1`, sellerID); err != nil {
		return nil, fmt.Errorf("repository: failed to count seller products: %w", err)
	}
	if err := r.db.GetContext(ctx, &stats.ActiveProducts,
		`SELECT count(*) FROM products WHERE seller_id = $1 AND active`, sellerID); err != nil {
		return nil, fmt.Errorf("repository: failed to count active seller products: %w", err)
	}
	if err := r.db.GetContext(ctx, &stats.LowStockCount,
		`SELECT count(*) FROM products WHERE seller_id = $1 AND active AND stock <= $2`,
		sellerID, r.threshold); err != nil {
		return nil, fmt.Errorf("repository: failed to count seller low stock products: %w", err)
	}

	ordersByStatus := `
		SELECT o.status, count(DISTINCT o.id) AS count
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		JOIN products p ON p.id = oi.product_id
		WHERE p.seller_id = $1
		GROUP BY o.status
		ORDER BY o.status`
	if err := r.db.SelectContext(ctx, &stats.OrdersByStatus, ordersByStatus, sellerID); err != nil {
		return nil, fmt.Errorf("repository: failed to count seller orders by status: %w", err)
	}

	revenue := `
		SELECT COALESCE(sum(oi.line_total), 0)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN products p ON p.id = oi.product_id
		WHERE p.seller_id = $1 AND o.status <> $2`
	if err := r.db.GetContext(ctx, &stats.Revenue, revenue, sellerID, order.StatusCancelled); err != nil {
		return nil, fmt.Errorf("repository: failed to sum seller revenue: %w", err)
	}

	return &stats, nil
}

func (r *postgresRepository) DeliveryStats(ctx context.Context, agentID uuid.UUID) (*DeliveryStats, error) {
	var stats DeliveryStats

	assigned := `
		SELECT status, count(*) AS count
		FROM orders
		WHERE delivery_agent_id = $1
		GROUP BY status
		ORDER BY status`
	if err := r.db.SelectContext(ctx, &stats.AssignedByStatus, assigned, agentID); err != nil {
		return nil, fmt.Errorf("repository: failed to count assigned orders: %w", err)
	}

	if err := r.db.GetContext(ctx, &stats.DeliveredTotal,
		`SELECT count(*) FROM orders WHERE delivery_agent_id = $1 AND status = $2`,
		agentID, order.StatusDelivered); err != nil {
		return nil, fmt.Errorf("repository: failed to count delivered orders: %w", err)
	}
	if err := r.db.GetContext(ctx, &stats.DeliveredToday,
		`SELECT count(*) FROM orders WHERE delivery_agent_id = $1 AND delivered_at::date = current_date`,
		agentID); err != nil {
		return nil, fmt.Errorf("repository: failed to count today's deliveries: %w", err)
	}

	return &stats, nil
}

// SalesSeries returns daily order counts and revenue over the trailing
// window. With a seller id, counts cover orders containing the seller's
// products and revenue only their line totals.
func (r *postgresRepository) SalesSeries(ctx context.Context, days int, sellerID *uuid.UUID) ([]SalesPoint, error) {
	points := []SalesPoint{}

	if sellerID == nil {
		query := `
			SELECT date_trunc('day', created_at) AS day,
				count(*) AS orders,
				COALESCE(sum(total), 0) AS revenue
			FROM orders
			WHERE status <> $1 AND created_at >= now() - make_interval(days => $2)
			GROUP BY 1
			ORDER BY 1`
		if err := r.db.SelectContext(ctx, &points, query, order.StatusCancelled, days); err != nil {
			return nil, fmt.Errorf("repository: failed to build sales series: %w", err)
		}
		return points, nil
	}

	query := `
		SELECT date_trunc('day', o.created_at) AS day,
			count(DISTINCT o.id) AS orders,
			COALESCE(sum(oi.line_total), 0) AS revenue
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		JOIN products p ON p.id = oi.product_id
		WHERE p.seller_id = $1 AND o.status <> $2 AND o.created_at >= now() - make_interval(days => $3)
		GROUP BY 1
		ORDER BY 1`
	if err := r.db.SelectContext(ctx, &points, query, *sellerID, order.StatusCancelled, days); err != nil {
		return nil, fmt.Errorf("repository: failed to build seller sales series: %w", err)
	}

	return points, nil
}
