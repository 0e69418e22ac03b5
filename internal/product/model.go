package product

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"

	"github.com/vasiliy-maslov/ecommerce-platform/internal/user"
)

// LowStockThreshold is the stock level at or below which a product shows up
// in low-stock reports.
const LowStockThreshold = 5

// Category is the closed set of catalog sections a product can belong to.
type Category string

const (
	CategoryBooks         Category = "books"
	CategoryFoods         Category = "foods"
	CategoryClothingMen   Category = "clothing_men"
	CategoryClothingWomen Category = "clothing_women"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryBooks, CategoryFoods, CategoryClothingMen, CategoryClothingWomen:
		return true
	}
	return false
}

// ParseCategory converts a raw string into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// Categories returns every known category, for validation messages and docs.
func Categories() []Category {
	return []Category{CategoryBooks, CategoryFoods, CategoryClothingMen, CategoryClothingWomen}
}

// Product is a catalog entry owned by a seller. Rating fields are aggregates
// maintained by AddRating; Sales and Views are maintained by the order and
// catalog flows respectively.
type Product struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	Name          string     `json:"name" db:"name"`
	Description   string     `json:"description" db:"description"`
	Category      Category   `json:"category" db:"category"`
	Price         float64    `json:"price" db:"price"`
	OriginalPrice *float64   `json:"original_price,omitempty" db:"original_price"`
	Stock         int        `json:"stock" db:"stock"`
	SKU           string     `json:"sku" db:"sku"`
	Images        []string   `json:"images" db:"images"`
	SellerID      uuid.UUID  `json:"seller_id" db:"seller_id"`
	RatingAvg     float64    `json:"rating_avg" db:"rating_avg"`
	RatingCount   int        `json:"rating_count" db:"rating_count"`
	Sales         int        `json:"sales" db:"sales"`
	Views         int        `json:"views" db:"views"`
	Active        bool       `json:"active" db:"active"`
	Featured      bool       `json:"featured" db:"featured"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// CanModify reports whether u may change or deactivate the product. Admins
// may touch anything; sellers only their own entries.
func (p *Product) CanModify(u *user.User) bool {
	if u == nil {
		return false
	}
	if u.Role == user.RoleAdmin {
		return true
	}
	return u.Role == user.RoleSeller && p.SellerID == u.ID
}

// Discounted reports whether the product carries a struck-through original
// price higher than the current one.
func (p *Product) Discounted() bool {
	return p.OriginalPrice != nil && *p.OriginalPrice > p.Price
}
