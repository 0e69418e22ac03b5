package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when no product matches the given id.
	ErrNotFound = errors.New("product not found")
	// ErrSKUExists is returned when an insert collides on the sku column.
	ErrSKUExists = errors.New("product with this SKU already exists")
	// ErrUnknownCategory is returned for a category outside the known set.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrNotOwner is returned when a seller touches a product they do not own.
	ErrNotOwner = errors.New("product belongs to another seller")
)

// ListFilter narrows and orders a catalog listing. Nil fields are ignored.
type ListFilter struct {
	Category   *Category
	SellerID   *uuid.UUID
	MinPrice   *float64
	MaxPrice   *float64
	Query      string
	Featured   *bool
	ActiveOnly bool
	SortBy     string
	SortDesc   bool
	Page       int
	Limit      int
}

// Repository defines methods for product persistence.
type Repository interface {
	Create(ctx context.Context, p *Product) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	Update(ctx context.Context, p *Product) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter) ([]Product, int, error)
	IncrementViews(ctx context.Context, id uuid.UUID) error
	AddRating(ctx context.Context, id uuid.UUID, rating int) (*Product, error)
	LowStock(ctx context.Context, threshold int, sellerID *uuid.UUID) ([]Product, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a product repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const productColumns = `id, name, description, category, price, original_price, stock, sku,
		images, seller_id, rating_avg, rating_count, sales, views, active, featured,
		created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Category, &p.Price, &p.OriginalPrice,
		&p.Stock, &p.SKU, &p.Images, &p.SellerID, &p.RatingAvg, &p.RatingCount,
		&p.Sales, &p.Views, &p.Active, &p.Featured, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func (r *postgresRepository) Create(ctx context.Context, p *Product) (uuid.UUID, error) {
	query := `
		INSERT INTO products (id, name, description, category, price, original_price, stock, sku,
			images, seller_id, active, featured, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`

	var id uuid.UUID
	err := r.db.QueryRow(ctx, query,
		p.ID, p.Name, p.Description, p.Category, p.Price, p.OriginalPrice, p.Stock, p.SKU,
		p.Images, p.SellerID, p.Active, p.Featured, p.CreatedAt, p.UpdatedAt,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, ErrSKUExists
		}
		return uuid.Nil, fmt.Errorf("repository: failed to create product: %w", err)
	}

	return id, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)

	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to get product by id: %w", err)
	}

	return p, nil
}

func (r *postgresRepository) Update(ctx context.Context, p *Product) error {
	query := `
		UPDATE products
		SET name = $2, description = $3, category = $4, price = $5, original_price = $6,
			stock = $7, images = $8, active = $9, featured = $10, updated_at = $11
		WHERE id = $1`

	cmdTag, err := r.db.Exec(ctx, query,
		p.ID, p.Name, p.Description, p.Category, p.Price, p.OriginalPrice,
		p.Stock, p.Images, p.Active, p.Featured, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to update product: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *postgresRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE products SET active = false, updated_at = now() WHERE id = $1 AND active`

	cmdTag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("repository: failed to deactivate product: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// sortColumns maps requested sort keys onto real columns. Anything outside
// this map falls back to created_at.
var sortColumns = map[string]string{
	"created_at": "created_at",
	"price":      "price",
	"name":       "name",
	"rating":     "rating_avg",
	"sales":      "sales",
}

func (r *postgresRepository) List(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	clauses := []string{}
	args := []any{}
	argCounter := 1

	if filter.ActiveOnly {
		clauses = append(clauses, "active")
	}
	if filter.Category != nil {
		clauses = append(clauses, fmt.Sprintf("category = $%d", argCounter))
		args = append(args, *filter.Category)
		argCounter++
	}
	if filter.SellerID != nil {
		clauses = append(clauses, fmt.Sprintf("seller_id = $%d", argCounter))
		args = append(args, *filter.SellerID)
		argCounter++
	}
	if filter.MinPrice != nil {
		clauses = append(clauses, fmt.Sprintf("price >= $%d", argCounter))
		args = append(args, *filter.MinPrice)
		argCounter++
	}
	if filter.MaxPrice != nil {
		clauses = append(clauses, fmt.Sprintf("price <= $%d", argCounter))
		args = append(args, *filter.MaxPrice)
		argCounter++
	}
	if filter.Query != "" {
		clauses = append(clauses, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", argCounter, argCounter))
		args = append(args, "%"+filter.Query+"%")
		argCounter++
	}
	if filter.Featured != nil {
		clauses = append(clauses, fmt.Sprintf("featured = $%d", argCounter))
		args = append(args, *filter.Featured)
		argCounter++
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	countQuery := "SELECT count(*) FROM products" + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to count products: %w", err)
	}

	orderBy, ok := sortColumns[filter.SortBy]
	if !ok {
		orderBy = "created_at"
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	query := fmt.Sprintf(`SELECT %s FROM products%s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		productColumns, where, orderBy, direction, argCounter, argCounter+1)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to list products: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repository: failed to scan product row: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to iterate product rows: %w", err)
	}

	return products, total, nil
}

func (r *postgresRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE products SET views = views + 1 WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("repository: failed to increment product views: %w", err)
	}

	return nil
}

// AddRating folds a new 1..5 score into the running average atomically and
// returns the refreshed product.
func (r *postgresRepository) AddRating(ctx context.Context, id uuid.UUID, rating int) (*Product, error) {
	query := fmt.Sprintf(`
		UPDATE products
		SET rating_avg = round(((rating_avg * rating_count + $2) / (rating_count + 1))::numeric, 2),
			rating_count = rating_count + 1,
			updated_at = now()
		WHERE id = $1
		RETURNING %s`, productColumns)

	p, err := scanProduct(r.db.QueryRow(ctx, query, id, rating))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to add product rating: %w", err)
	}

	return p, nil
}

func (r *postgresRepository) LowStock(ctx context.Context, threshold int, sellerID *uuid.UUID) ([]Product, error) {
	clauses := []string{"active", "stock <= $1"}
	args := []any{threshold}
	if sellerID != nil {
		clauses = append(clauses, "seller_id = $2")
		args = append(args, *sellerID)
	}

	query := fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY stock ASC`,
		productColumns, strings.Join(clauses, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to list low stock products: %w", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan product row: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed to iterate product rows: %w", err)
	}

	return products, nil
}
