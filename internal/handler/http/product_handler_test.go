package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	handler "github.com/vasiliy-maslov/ecommerce-platform/internal/handler/http"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/product"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/user"
)

type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) Create(ctx context.Context, caller *user.User, input product.CreateInput) (*product.Product, error) {
	args := m.Called(ctx, caller, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProductService) GetByID(ctx context.Context, id uuid.UUID) (*product.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProductService) Update(ctx context.Context, caller *user.User, id uuid.UUID, input product.UpdateInput) (*product.Product, error) {
	args := m.Called(ctx, caller, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProductService) Delete(ctx context.Context, caller *user.User, id uuid.UUID) error {
	args := m.Called(ctx, caller, id)
	return args.Error(0)
}

func (m *MockProductService) List(ctx context.Context, filter product.ListFilter) ([]product.Product, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]product.Product), args.Int(1), args.Error(2)
}

func (m *MockProductService) Rate(ctx context.Context, id uuid.UUID, rating int) (*product.Product, error) {
	args := m.Called(ctx, id, rating)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

func (m *MockProductService) LowStock(ctx context.Context, threshold int, sellerID *uuid.UUID) ([]product.Product, error) {
	args := m.Called(ctx, threshold, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]product.Product), args.Error(1)
}

func newProductRouter(products product.Service, sessionUser *user.User) *chi.Mux {
	h := handler.NewProductHandler(products)
	router := chi.NewRouter()
	router.Route("/api/products", func(r chi.Router) {
		h.RegisterRoutes(r, injectUser(sessionUser))
	})
	return router
}

func TestProductHandler_Create_SellerSucceeds(t *testing.T) {
	mockProducts := new(MockProductService)
	seller := sessionSeller()
	router := newProductRouter(mockProducts, seller)

	created := product.Product{
		ID:       uuid.Must(uuid.NewV4()),
		Name:     "Go in Practice",
		Category: product.CategoryBooks,
		Price:    39.99,
		SKU:      "SKU-1756120000000-A1B2C3",
		SellerID: seller.ID,
		Active:   true,
	}

	mockProducts.On("Create", mock.Anything, seller, mock.MatchedBy(func(in product.CreateInput) bool {
		return in.Name == "Go in Practice" &&
			in.Category == product.CategoryBooks &&
			in.Price == 39.99 &&
			in.Stock == 12 &&
			len(in.Images) == 1
	})).
		Return(&created, nil).
		Once()

	body := `{"name":"Go in Practice","category":"books","price":39.99,"stock":12,"images":["https://cdn.example.com/book.jpg"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/products/", strings.NewReader(body))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	resp := decodeEnvelope(t, rr)
	assert.True(t, resp.Success)
	assert.Equal(t, "Product created", resp.Message)

	var data struct {
		SKU string `json:"sku"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, created.SKU, data.SKU)
	mockProducts.AssertExpectations(t)
}

func TestProductHandler_Create_CustomerForbidden(t *testing.T) {
	mockProducts := new(MockProductService)
	router := newProductRouter(mockProducts, sessionCustomer())

	body := `{"name":"Go in Practice","category":"books","price":39.99,"stock":12,"images":["https://cdn.example.com/book.jpg"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/products/", strings.NewReader(body))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusForbidden, rr.Code)
	mockProducts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestProductHandler_Create_MissingImages(t *testing.T) {
	mockProducts := new(MockProductService)
	router := newProductRouter(mockProducts, sessionSeller())

	body := `{"name":"Go in Practice","category":"books","price":39.99,"stock":12,"images":[]}`
	req := httptest.NewRequest(http.MethodPost, "/api/products/", strings.NewReader(body))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	resp := decodeEnvelope(t, rr)
	assert.Equal(t, "Validation failed", resp.Error)
	mockProducts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestProductHandler_Create_ZeroPriceAllowed(t *testing.T) {
	mockProducts := new(MockProductService)
	seller := sessionSeller()
	router := newProductRouter(mockProducts, seller)

	created := product.Product{ID: uuid.Must(uuid.NewV4()), Name: "Free Sampler", Active: true}

	mockProducts.On("Create", mock.Anything, seller, mock.MatchedBy(func(in product.CreateInput) bool {
		return in.Price == 0
	})).
		Return(&created, nil).
		Once()

	body := `{"name":"Free Sampler","category":"books","price":0,"stock":100,"images":["https://cdn.example.com/sampler.jpg"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/products/", strings.NewReader(body))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	mockProducts.AssertExpectations(t)
}

func TestProductHandler_List_PublicDefaults(t *testing.T) {
	mockProducts := new(MockProductService)
	router := newProductRouter(mockProducts, nil)

	mockProducts.On("List", mock.Anything, mock.MatchedBy(func(f product.ListFilter) bool {
		return f.ActiveOnly && f.SortBy == "created_at" && f.SortDesc && f.Category == nil
	})).
		Return([]product.Product{}, 0, nil).
		Once()

	req := httptest.NewRequest(http.MethodGet, "/api/products/", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeEnvelope(t, rr)
	assert.True(t, resp.Success)
	mockProducts.AssertExpectations(t)
}

func TestProductHandler_List_QueryFilters(t *testing.T) {
	mockProducts := new(MockProductService)
	router := newProductRouter(mockProducts, nil)

	mockProducts.On("List", mock.Anything, mock.MatchedBy(func(f product.ListFilter) bool {
		return f.Category != nil && *f.Category == product.CategoryBooks &&
			f.MinPrice != nil && *f.MinPrice == 10 &&
			f.MaxPrice != nil && *f.MaxPrice == 50 &&
			f.Featured != nil && *f.Featured &&
			f.Query == "go" &&
			f.SortBy == "price" && !f.SortDesc &&
			f.Page == 2 && f.Limit == 5
	})).
		Return([]product.Product{}, 0, nil).
		Once()

	req := httptest.NewRequest(http.MethodGet, "/api/products/?category=books&min_price=10&max_price=50&featured=true&q=go&sort=price&order=asc&page=2&limit=5", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	mockProducts.AssertExpectations(t)
}

func TestProductHandler_List_UnknownCategory(t *testing.T) {
	mockProducts := new(MockProductService)
	router := newProductRouter(mockProducts, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/products/?category=gadgets", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	resp := decodeEnvelope(t, rr)
	assert.False(t, resp.Success)
	mockProducts.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestProductHandler_Get_Public(t *testing.T) {
	mockProducts := new(MockProductService)
	router := newProductRouter(mockProducts, nil)

	stored := product.Product{ID: uuid.Must(uuid.NewV4()), Name: "Go in Practice", Views: 8, Active: true}

	mockProducts.On("GetByID", mock.Anything, stored.ID).Return(&stored, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/products/"+stored.ID.String(), nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeEnvelope(t, rr)

	var data struct {
		Views int `json:"views"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, 8, data.Views)
}

func TestProductHandler_Update_NotOwner(t *testing.T) {
	mockProducts := new(MockProductService)
	seller := sessionSeller()
	router := newProductRouter(mockProducts, seller)

	productID := uuid.Must(uuid.NewV4())

	mockProducts.On("Update", mock.Anything, seller, productID, mock.AnythingOfType("product.UpdateInput")).
		Return(nil, product.ErrNotOwner).
		Once()

	body := `{"price":10.00}`
	req := httptest.NewRequest(http.MethodPut, "/api/products/"+productID.String(), strings.NewReader(body))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusForbidden, rr.Code)
	resp := decodeEnvelope(t, rr)
	assert.Equal(t, "You do not own this product", resp.Error)
}

func TestProductHandler_Delete_Success(t *testing.T) {
	mockProducts := new(MockProductService)
	seller := sessionSeller()
	router := newProductRouter(mockProducts, seller)

	productID := uuid.Must(uuid.NewV4())

	mockProducts.On("Delete", mock.Anything, seller, productID).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/api/products/"+productID.String(), nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeEnvelope(t, rr)
	assert.Equal(t, "Product deactivated", resp.Message)
	mockProducts.AssertExpectations(t)
}

func TestProductHandler_Rate_CustomerSucceeds(t *testing.T) {
	mockProducts := new(MockProductService)
	router := newProductRouter(mockProducts, sessionCustomer())

	rated := product.Product{ID: uuid.Must(uuid.NewV4()), RatingAvg: 4.5, RatingCount: 2}

	mockProducts.On("Rate", mock.Anything, rated.ID, 5).Return(&rated, nil).Once()

	body := `{"rating":5}`
	req := httptest.NewRequest(http.MethodPost, "/api/products/"+rated.ID.String()+"/rating", strings.NewReader(body))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeEnvelope(t, rr)

	var data struct {
		RatingAvg   float64 `json:"rating_avg"`
		RatingCount int     `json:"rating_count"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, 4.5, data.RatingAvg)
	assert.Equal(t, 2, data.RatingCount)
	mockProducts.AssertExpectations(t)
}

func TestProductHandler_Rate_ScoreOutOfRange(t *testing.T) {
	mockProducts := new(MockProductService)
	router := newProductRouter(mockProducts, sessionCustomer())

	body := `{"rating":9}`
	req := httptest.NewRequest(http.MethodPost, "/api/products/"+uuid.Must(uuid.NewV4()).String()+"/rating", strings.NewReader(body))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	mockProducts.AssertNotCalled(t, "Rate", mock.Anything, mock.Anything, mock.Anything)
}

func TestProductHandler_SellerList_IncludesInactive(t *testing.T) {
	mockProducts := new(MockProductService)
	seller := sessionSeller()

	h := handler.NewProductHandler(mockProducts)
	router := chi.NewRouter()
	router.Route("/api/seller", func(r chi.Router) {
		r.Use(injectUser(seller))
		h.RegisterSellerRoutes(r)
	})

	mockProducts.On("List", mock.Anything, mock.MatchedBy(func(f product.ListFilter) bool {
		return !f.ActiveOnly && f.SellerID != nil && *f.SellerID == seller.ID
	})).
		Return([]product.Product{}, 0, nil).
		Once()

	req := httptest.NewRequest(http.MethodGet, "/api/seller/products", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	mockProducts.AssertExpectations(t)
}
