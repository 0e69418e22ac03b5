package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	handler "github.com/vasiliy-maslov/ecommerce-platform/internal/handler/http"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/product"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/report"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/user"
)

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) AdminDashboard(ctx context.Context) (*report.AdminStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.AdminStats), args.Error(1)
}

func (m *MockReportService) SellerDashboard(ctx context.Context, sellerID uuid.UUID) (*report.SellerStats, error) {
	args := m.Called(ctx, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.SellerStats), args.Error(1)
}

func (m *MockReportService) DeliveryDashboard(ctx context.Context, agentID uuid.UUID) (*report.DeliveryStats, error) {
	args := m.Called(ctx, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.DeliveryStats), args.Error(1)
}

func (m *MockReportService) SalesSeries(ctx context.Context, days int, sellerID *uuid.UUID) ([]report.SalesPoint, error) {
	args := m.Called(ctx, days, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]report.SalesPoint), args.Error(1)
}

func newReportRouter(reports report.Service, products product.Service, prefix string, sessionUser *user.User) *chi.Mux {
	h := handler.NewReportHandler(reports, products)
	router := chi.NewRouter()
	router.Route(prefix, func(r chi.Router) {
		r.Use(injectUser(sessionUser))
		switch prefix {
		case "/api/admin":
			h.RegisterAdminRoutes(r)
		case "/api/seller":
			h.RegisterSellerRoutes(r)
		default:
			h.RegisterDeliveryRoutes(r)
		}
	})
	return router
}

func TestReportHandler_AdminDashboard(t *testing.T) {
	mockReports := new(MockReportService)
	mockProducts := new(MockProductService)
	admin := &user.User{ID: uuid.Must(uuid.NewV4()), Role: user.RoleAdmin, Active: true}
	router := newReportRouter(mockReports, mockProducts, "/api/admin", admin)

	stats := report.AdminStats{TotalUsers: 12, TotalOrders: 25, Revenue: 1893.44}

	mockReports.On("AdminDashboard", mock.Anything).Return(&stats, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/admin/dashboard", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeEnvelope(t, rr)

	var data struct {
		TotalUsers int     `json:"total_users"`
		Revenue    float64 `json:"revenue"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, 12, data.TotalUsers)
	assert.Equal(t, 1893.44, data.Revenue)
}

func TestReportHandler_AdminSales_PassesWindow(t *testing.T) {
	mockReports := new(MockReportService)
	mockProducts := new(MockProductService)
	admin := &user.User{ID: uuid.Must(uuid.NewV4()), Role: user.RoleAdmin, Active: true}
	router := newReportRouter(mockReports, mockProducts, "/api/admin", admin)

	mockReports.On("SalesSeries", mock.Anything, 7, (*uuid.UUID)(nil)).
		Return([]report.SalesPoint{}, nil).
		Once()

	req := httptest.NewRequest(http.MethodGet, "/api/admin/analytics/sales?days=7", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	mockReports.AssertExpectations(t)
}

func TestReportHandler_AdminSales_MalformedDays(t *testing.T) {
	mockReports := new(MockReportService)
	mockProducts := new(MockProductService)
	admin := &user.User{ID: uuid.Must(uuid.NewV4()), Role: user.RoleAdmin, Active: true}
	router := newReportRouter(mockReports, mockProducts, "/api/admin", admin)

	mockReports.On("SalesSeries", mock.Anything, -1, (*uuid.UUID)(nil)).
		Return(nil, report.ErrInvalidRange).
		Once()

	req := httptest.NewRequest(http.MethodGet, "/api/admin/analytics/sales?days=abc", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	resp := decodeEnvelope(t, rr)
	assert.Equal(t, "Days must be one of 7, 30 or 90", resp.Error)
}

func TestReportHandler_AdminLowStock(t *testing.T) {
	mockReports := new(MockReportService)
	mockProducts := new(MockProductService)
	admin := &user.User{ID: uuid.Must(uuid.NewV4()), Role: user.RoleAdmin, Active: true}
	router := newReportRouter(mockReports, mockProducts, "/api/admin", admin)

	low := []product.Product{{ID: uuid.Must(uuid.NewV4()), Name: "Go in Practice", Stock: 2}}

	mockProducts.On("LowStock", mock.Anything, product.LowStockThreshold, (*uuid.UUID)(nil)).
		Return(low, nil).
		Once()

	req := httptest.NewRequest(http.MethodGet, "/api/admin/products/low-stock", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	mockProducts.AssertExpectations(t)
}

func TestReportHandler_SellerScopes(t *testing.T) {
	mockReports := new(MockReportService)
	mockProducts := new(MockProductService)
	seller := sessionSeller()
	router := newReportRouter(mockReports, mockProducts, "/api/seller", seller)

	stats := report.SellerStats{TotalProducts: 5, Revenue: 412.50}

	mockReports.On("SellerDashboard", mock.Anything, seller.ID).Return(&stats, nil).Once()
	mockReports.On("SalesSeries", mock.Anything, 30, &seller.ID).
		Return([]report.SalesPoint{}, nil).
		Once()
	mockProducts.On("LowStock", mock.Anything, product.LowStockThreshold, &seller.ID).
		Return([]product.Product{}, nil).
		Once()

	for _, path := range []string{
		"/api/seller/dashboard",
		"/api/seller/analytics/sales?days=30",
		"/api/seller/products/low-stock",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code, "unexpected status for %s", path)
	}
	mockReports.AssertExpectations(t)
	mockProducts.AssertExpectations(t)
}

func TestReportHandler_DeliveryDashboard(t *testing.T) {
	mockReports := new(MockReportService)
	mockProducts := new(MockProductService)
	agent := sessionAgent()
	router := newReportRouter(mockReports, mockProducts, "/api/delivery", agent)

	stats := report.DeliveryStats{DeliveredTotal: 31, DeliveredToday: 3}

	mockReports.On("DeliveryDashboard", mock.Anything, agent.ID).Return(&stats, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/delivery/dashboard", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeEnvelope(t, rr)

	var data struct {
		DeliveredTotal int `json:"delivered_total"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, 31, data.DeliveredTotal)
	mockReports.AssertExpectations(t)
}
