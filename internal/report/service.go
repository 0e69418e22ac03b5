package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
)

// ErrInvalidRange is returned for a sales window outside the allowed set.
var ErrInvalidRange = errors.New("days must be one of 7, 30 or 90")

// DefaultSalesDays is the window used when the caller does not pick one.
const DefaultSalesDays = 30

var allowedDays = map[int]bool{7: true, 30: true, 90: true}

// Service defines methods for the reporting views.
type Service interface {
	AdminDashboard(ctx context.Context) (*AdminStats, error)
	SellerDashboard(ctx context.Context, sellerID uuid.UUID) (*SellerStats, error)
	DeliveryDashboard(ctx context.Context, agentID uuid.UUID) (*DeliveryStats, error)
	SalesSeries(ctx context.Context, days int, sellerID *uuid.UUID) ([]SalesPoint, error)
}

type service struct {
	repo Repository
}

// NewService creates a reporting service over the given repository.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) AdminDashboard(ctx context.Context) (*AdminStats, error) {
	stats, err := s.repo.AdminStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to build admin dashboard: %w", err)
	}
	return stats, nil
}

func (s *service) SellerDashboard(ctx context.Context, sellerID uuid.UUID) (*SellerStats, error) {
	stats, err := s.repo.SellerStats(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to build seller dashboard: %w", err)
	}
	return stats, nil
}

func (s *service) DeliveryDashboard(ctx context.Context, agentID uuid.UUID) (*DeliveryStats, error) {
	stats, err := s.repo.DeliveryStats(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to build delivery dashboard: %w", err)
	}
	return stats, nil
}

// SalesSeries validates the window against the allowed set. Zero means the
// default window.
func (s *service) SalesSeries(ctx context.Context, days int, sellerID *uuid.UUID) ([]SalesPoint, error) {
	if days == 0 {
		days = DefaultSalesDays
	}
	if !allowedDays[days] {
		return nil, ErrInvalidRange
	}

	points, err := s.repo.SalesSeries(ctx, days, sellerID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to build sales series: %w", err)
	}

	return points, nil
}
