package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/ecommerce-platform/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/product"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/report"
)

// ReportHandler serves the role-scoped dashboards and analytics. Each
// RegisterXRoutes set is mounted behind the matching role gate.
type ReportHandler struct {
	reports  report.Service
	products product.Service
}

func NewReportHandler(reports report.Service, products product.Service) *ReportHandler {
	return &ReportHandler{
		reports:  reports,
		products: products,
	}
}

func (h *ReportHandler) RegisterAdminRoutes(router chi.Router) {
	router.Get("/dashboard", h.handleAdminDashboard)
	router.Get("/analytics/sales", h.handleAdminSales)
	router.Get("/products/low-stock", h.handleAdminLowStock)
}

func (h *ReportHandler) RegisterSellerRoutes(router chi.Router) {
	router.Get("/dashboard", h.handleSellerDashboard)
	router.Get("/analytics/sales", h.handleSellerSales)
	router.Get("/products/low-stock", h.handleSellerLowStock)
}

func (h *ReportHandler) RegisterDeliveryRoutes(router chi.Router) {
	router.Get("/dashboard", h.handleDeliveryDashboard)
}

func daysFromQuery(r *http.Request) int {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return 0
	}
	days, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return days
}

func (h *ReportHandler) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reports.AdminDashboard(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to build admin dashboard via service")
		respondWithServiceError(w, err, "Failed to build dashboard")
		return
	}

	respondWithData(w, http.StatusOK, stats)
}

func (h *ReportHandler) handleAdminSales(w http.ResponseWriter, r *http.Request) {
	points, err := h.reports.SalesSeries(r.Context(), daysFromQuery(r), nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build sales series via service")
		respondWithServiceError(w, err, "Failed to build sales series")
		return
	}

	respondWithData(w, http.StatusOK, points)
}

func (h *ReportHandler) handleAdminLowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.LowStock(r.Context(), product.LowStockThreshold, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list low stock products via service")
		respondWithServiceError(w, err, "Failed to list low stock products")
		return
	}

	respondWithData(w, http.StatusOK, products)
}

func (h *ReportHandler) handleSellerDashboard(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	stats, err := h.reports.SellerDashboard(r.Context(), caller.ID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build seller dashboard via service")
		respondWithServiceError(w, err, "Failed to build dashboard")
		return
	}

	respondWithData(w, http.StatusOK, stats)
}

func (h *ReportHandler) handleSellerSales(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	points, err := h.reports.SalesSeries(r.Context(), daysFromQuery(r), &caller.ID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build seller sales series via service")
		respondWithServiceError(w, err, "Failed to build sales series")
		return
	}

	respondWithData(w, http.StatusOK, points)
}

func (h *ReportHandler) handleSellerLowStock(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	products, err := h.products.LowStock(r.Context(), product.LowStockThreshold, &caller.ID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list seller low stock products via service")
		respondWithServiceError(w, err, "Failed to list low stock products")
		return
	}

	respondWithData(w, http.StatusOK, products)
}

func (h *ReportHandler) handleDeliveryDashboard(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	stats, err := h.reports.DeliveryDashboard(r.Context(), caller.ID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build delivery dashboard via service")
		respondWithServiceError(w, err, "Failed to build dashboard")
		return
	}

	respondWithData(w, http.StatusOK, stats)
}
