package product

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/ecommerce-platform/internal/user"
)

var (
	// ErrInvalidProduct is returned when product fields fail semantic checks.
	ErrInvalidProduct = errors.New("invalid product")
	// ErrInvalidRating is returned for a score outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// skuAttempts bounds retries when a generated SKU collides.
const skuAttempts = 3

// CreateInput carries the seller-supplied fields of a new product. An empty
// SKU is generated server-side. SellerID is honoured for admins only;
// sellers always own what they create.
type CreateInput struct {
	Name          string
	Description   string
	Category      Category
	Price         float64
	OriginalPrice *float64
	Stock         int
	SKU           string
	Images        []string
	SellerID      *uuid.UUID
}

// UpdateInput carries a partial product update. Nil fields keep their
// current value. Featured is honoured for admins only.
type UpdateInput struct {
	Name          *string
	Description   *string
	Category      *Category
	Price         *float64
	OriginalPrice *float64
	Stock         *int
	Images        []string
	Active        *bool
	Featured      *bool
}

// Service defines methods for catalog business logic.
type Service interface {
	Create(ctx context.Context, caller *user.User, input CreateInput) (*Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	Update(ctx context.Context, caller *user.User, id uuid.UUID, input UpdateInput) (*Product, error)
	Delete(ctx context.Context, caller *user.User, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter) ([]Product, int, error)
	Rate(ctx context.Context, id uuid.UUID, rating int) (*Product, error)
	LowStock(ctx context.Context, threshold int, sellerID *uuid.UUID) ([]Product, error)
}

type service struct {
	repo Repository
}

// NewService creates a catalog service over the given repository.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func validateFields(name string, category Category, price float64, stock int, images []string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if !category.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	if price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	if stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidProduct)
	}
	if len(images) == 0 {
		return fmt.Errorf("%w: at least one image is required", ErrInvalidProduct)
	}
	return nil
}

// newSKU derives a unique-enough stock keeping unit from the clock and a
// random suffix. Collisions are caught by the unique index and retried.
func newSKU() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("service: failed to generate sku suffix: %w", err)
	}
	return fmt.Sprintf("SKU-%d-%X", time.Now().UnixMilli(), id.Bytes()[:3]), nil
}

func (s *service) Create(ctx context.Context, caller *user.User, input CreateInput) (*Product, error) {
	if err := validateFields(input.Name, input.Category, input.Price, input.Stock, input.Images); err != nil {
		return nil, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate product id: %w", err)
	}

	sellerID := caller.ID
	if input.SellerID != nil && caller.Role == user.RoleAdmin {
		sellerID = *input.SellerID
	}

	now := time.Now()
	p := &Product{
		ID:            id,
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
		Category:      input.Category,
		Price:         input.Price,
		OriginalPrice: input.OriginalPrice,
		Stock:         input.Stock,
		SKU:           strings.TrimSpace(input.SKU),
		Images:        input.Images,
		SellerID:      sellerID,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// A caller-supplied SKU is taken as-is; a collision is theirs to fix.
	if p.SKU != "" {
		if _, err := s.repo.Create(ctx, p); err != nil {
			if errors.Is(err, ErrSKUExists) {
				return nil, ErrSKUExists
			}
			return nil, fmt.Errorf("service: failed to create product: %w", err)
		}
		return p, nil
	}

	for attempt := 0; attempt < skuAttempts; attempt++ {
		p.SKU, err = newSKU()
		if err != nil {
			return nil, err
		}

		_, err = s.repo.Create(ctx, p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrSKUExists) {
			return nil, fmt.Errorf("service: failed to create product: %w", err)
		}
		log.Warn().Str("sku", p.SKU).Msg("service: sku collision, regenerating")
	}

	return nil, fmt.Errorf("service: failed to create product: %w", err)
}

// GetByID returns a product and bumps its view counter. A failed bump is
// logged and does not fail the read.
func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to get product: %w", err)
	}

	if err := s.repo.IncrementViews(ctx, id); err != nil {
		log.Warn().Err(err).Stringer("product_id", id).Msg("service: failed to increment product views")
	} else {
		p.Views++
	}

	return p, nil
}

func (s *service) Update(ctx context.Context, caller *user.User, id uuid.UUID, input UpdateInput) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to get product for update: %w", err)
	}

	if !p.CanModify(caller) {
		return nil, ErrNotOwner
	}

	if input.Name != nil {
		p.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		p.Description = *input.Description
	}
	if input.Category != nil {
		p.Category = *input.Category
	}
	if input.Price != nil {
		p.Price = *input.Price
	}
	if input.OriginalPrice != nil {
		p.OriginalPrice = input.OriginalPrice
	}
	if input.Stock != nil {
		p.Stock = *input.Stock
	}
	if input.Images != nil {
		p.Images = input.Images
	}
	if input.Active != nil {
		p.Active = *input.Active
	}
	if input.Featured != nil && caller.Role == user.RoleAdmin {
		p.Featured = *input.Featured
	}

	if err := validateFields(p.Name, p.Category, p.Price, p.Stock, p.Images); err != nil {
		return nil, err
	}

	p.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to update product: %w", err)
	}

	return p, nil
}

// Delete deactivates a product instead of removing the row, so existing
// order lines keep a valid reference.
func (s *service) Delete(ctx context.Context, caller *user.User, id uuid.UUID) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("service: failed to get product for delete: %w", err)
	}

	if !p.CanModify(caller) {
		return ErrNotOwner
	}

	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("service: failed to deactivate product: %w", err)
	}

	return nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("service: failed to list products: %w", err)
	}

	return products, total, nil
}

func (s *service) Rate(ctx context.Context, id uuid.UUID, rating int) (*Product, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	p, err := s.repo.AddRating(ctx, id, rating)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to rate product: %w", err)
	}

	return p, nil
}

func (s *service) LowStock(ctx context.Context, threshold int, sellerID *uuid.UUID) ([]Product, error) {
	if threshold < 0 {
		threshold = 0
	}

	products, err := s.repo.LowStock(ctx, threshold, sellerID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list low stock products: %w", err)
	}

	return products, nil
}
