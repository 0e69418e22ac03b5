package report_test

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/ecommerce-platform/internal/report"
)

type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) AdminStats(ctx context.Context) (*report.AdminStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.AdminStats), args.Error(1)
}

func (m *MockReportRepository) SellerStats(ctx context.Context, sellerID uuid.UUID) (*report.SellerStats, error) {
	args := m.Called(ctx, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.SellerStats), args.Error(1)
}

func (m *MockReportRepository) DeliveryStats(ctx context.Context, agentID uuid.UUID) (*report.DeliveryStats, error) {
	args := m.Called(ctx, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.DeliveryStats), args.Error(1)
}

func (m *MockReportRepository) SalesSeries(ctx context.Context, days int, sellerID *uuid.UUID) ([]report.SalesPoint, error) {
	args := m.Called(ctx, days, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]report.SalesPoint), args.Error(1)
}

func TestReportService_SalesSeries_DefaultWindow(t *testing.T) {
	mockRepo := new(MockReportRepository)
	reportService := report.NewService(mockRepo)

	mockRepo.On("SalesSeries", mock.Anything, report.DefaultSalesDays, (*uuid.UUID)(nil)).
		Return([]report.SalesPoint{}, nil).
		Once()

	_, err := reportService.SalesSeries(context.Background(), 0, nil)

	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestReportService_SalesSeries_RejectsArbitraryWindow(t *testing.T) {
	mockRepo := new(MockReportRepository)
	reportService := report.NewService(mockRepo)

	for _, days := range []int{-7, 1, 14, 365} {
		_, err := reportService.SalesSeries(context.Background(), days, nil)

		require.Error(t, err, "days=%d should be rejected", days)
		require.ErrorIs(t, err, report.ErrInvalidRange)
	}
	mockRepo.AssertNotCalled(t, "SalesSeries", mock.Anything, mock.Anything, mock.Anything)
}

func TestReportService_SalesSeries_AllowedWindows(t *testing.T) {
	for _, days := range []int{7, 30, 90} {
		mockRepo := new(MockReportRepository)
		reportService := report.NewService(mockRepo)

		points := []report.SalesPoint{
			{Day: time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), Orders: 3, Revenue: 199.97},
		}
		mockRepo.On("SalesSeries", mock.Anything, days, (*uuid.UUID)(nil)).
			Return(points, nil).
			Once()

		got, err := reportService.SalesSeries(context.Background(), days, nil)

		require.NoError(t, err)
		if diff := cmp.Diff(points, got); diff != "" {
			t.Errorf("SalesSeries(%d) mismatch (-want +got):\n%s", days, diff)
		}
	}
}

func TestReportService_SalesSeries_SellerScoped(t *testing.T) {
	mockRepo := new(MockReportRepository)
	reportService := report.NewService(mockRepo)
	sellerID := uuid.Must(uuid.NewV4())

	mockRepo.On("SalesSeries", mock.Anything, 7, &sellerID).
		Return([]report.SalesPoint{}, nil).
		Once()

	_, err := reportService.SalesSeries(context.Background(), 7, &sellerID)

	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestReportService_AdminDashboard(t *testing.T) {
	mockRepo := new(MockReportRepository)
	reportService := report.NewService(mockRepo)

	stats := report.AdminStats{
		TotalUsers:     12,
		UsersByRole:    []report.RoleCount{{Role: "customer", Count: 9}, {Role: "seller", Count: 3}},
		TotalProducts:  40,
		ActiveProducts: 37,
		TotalOrders:    25,
		OrdersByStatus: []report.StatusCount{{Status: "pending", Count: 4}, {Status: "delivered", Count: 18}},
		Revenue:        1893.44,
		LowStockCount:  2,
	}

	mockRepo.On("AdminStats", mock.Anything).Return(&stats, nil).Once()

	got, err := reportService.AdminDashboard(context.Background())

	require.NoError(t, err)
	if diff := cmp.Diff(&stats, got); diff != "" {
		t.Errorf("AdminDashboard() mismatch (-want +got):\n%s", diff)
	}
}

func TestReportService_SellerDashboard(t *testing.T) {
	mockRepo := new(MockReportRepository)
	reportService := report.NewService(mockRepo)
	sellerID := uuid.Must(uuid.NewV4())

	stats := report.SellerStats{TotalProducts: 5, ActiveProducts: 4, LowStockCount: 1, Revenue: 412.50}

	mockRepo.On("SellerStats", mock.Anything, sellerID).Return(&stats, nil).Once()

	got, err := reportService.SellerDashboard(context.Background(), sellerID)

	require.NoError(t, err)
	require.Equal(t, &stats, got)
}

func TestReportService_DeliveryDashboard(t *testing.T) {
	mockRepo := new(MockReportRepository)
	reportService := report.NewService(mockRepo)
	agentID := uuid.Must(uuid.NewV4())

	stats := report.DeliveryStats{
		AssignedByStatus: []report.StatusCount{{Status: "shipped", Count: 2}},
		DeliveredTotal:   31,
		DeliveredToday:   3,
	}

	mockRepo.On("DeliveryStats", mock.Anything, agentID).Return(&stats, nil).Once()

	got, err := reportService.DeliveryDashboard(context.Background(), agentID)

	require.NoError(t, err)
	require.Equal(t, &stats, got)
}
