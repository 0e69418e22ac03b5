package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/ecommerce-platform/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/order"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/user"
)

type OrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingAddress string             `json:"shipping_address" validate:"required"`
	BillingAddress  string             `json:"billing_address"`
	PaymentMethod   string             `json:"payment_method" validate:"required"`
	DeliveryMethod  string             `json:"delivery_method"`
	Notes           string             `json:"notes"`
}

type UpdateOrderRequest struct {
	ShippingAddress string `json:"shipping_address" validate:"required"`
	BillingAddress  string `json:"billing_address"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type SetTrackingRequest struct {
	TrackingNumber      string     `json:"tracking_number" validate:"required"`
	EstimatedDeliveryAt *time.Time `json:"estimated_delivery_at,omitempty"`
}

type OrderHandler struct {
	orders   order.Service
	validate *validator.Validate
}

func NewOrderHandler(orders order.Service) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		validate: validator.New(),
	}
}

// RegisterRoutes mounts the order endpoints. The whole subtree already sits
// behind authentication; capability and role gates narrow it further.
func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.With(auth.RequirePermission(auth.PermPlaceOrders)).Post("/", h.handleCreate)
	router.Get("/", h.handleList)
	router.Get("/{id}", h.handleGet)
	router.With(auth.RequireRole(user.RoleCustomer, user.RoleAdmin)).Put("/{id}", h.handleUpdateAddresses)
	router.With(auth.RequireRole(user.RoleCustomer, user.RoleAdmin)).Delete("/{id}", h.handleCancel)
	router.With(auth.RequirePermission(auth.PermAdvanceOrders)).Patch("/{id}/status", h.handleUpdateStatus)
	router.With(auth.RequirePermission(auth.PermTrackOrders)).Post("/{id}/tracking", h.handleSetTracking)
}

// RegisterDeliveryRoutes mounts the agent-facing listing; the service
// already scopes delivery listings to the caller's assignments plus
// orders no agent has claimed yet.
func (h *OrderHandler) RegisterDeliveryRoutes(router chi.Router) {
	router.Get("/orders", h.handleList)
}

func orderIDParam(r *http.Request) (uuid.UUID, bool) {
	idParam := chi.URLParam(r, "id")
	id, err := uuid.FromString(idParam)
	if err != nil {
		log.Warn().Err(err).Str("order_id", idParam).Msg("Failed to parse id parameter from URL")
		return uuid.Nil, false
	}
	return id, true
}

func (h *OrderHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var requestPayload CreateOrderRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode order create request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		handleValidationError(w, err)
		return
	}

	input := order.CreateInput{
		ShippingAddress: requestPayload.ShippingAddress,
		BillingAddress:  requestPayload.BillingAddress,
		PaymentMethod:   requestPayload.PaymentMethod,
		DeliveryMethod:  requestPayload.DeliveryMethod,
		Notes:           requestPayload.Notes,
		Items:           make([]order.ItemInput, 0, len(requestPayload.Items)),
	}
	for _, item := range requestPayload.Items {
		productID, err := uuid.FromString(item.ProductID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid product_id in items")
			return
		}
		input.Items = append(input.Items, order.ItemInput{ProductID: productID, Quantity: item.Quantity})
	}

	created, err := h.orders.Create(r.Context(), caller, input)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create order via service")
		respondWithServiceError(w, err, "Failed to create order")
		return
	}

	respondWithMessage(w, http.StatusCreated, created, "Order placed")
}

func (h *OrderHandler) handleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var filter order.ListFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := order.ParseStatus(raw)
		if err != nil {
			respondWithServiceError(w, err, "Invalid status filter")
			return
		}
		filter.Status = &status
	}
	filter.Page, filter.Limit = parsePagination(r)

	orders, total, err := h.orders.List(r.Context(), caller, filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list orders via service")
		respondWithServiceError(w, err, "Failed to list orders")
		return
	}

	respondWithData(w, http.StatusOK, ListData{
		Items: orders,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	})
}

func (h *OrderHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, ok := orderIDParam(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	o, err := h.orders.GetByID(r.Context(), caller, id)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get order via service")
		respondWithServiceError(w, err, "Failed to get order")
		return
	}

	respondWithData(w, http.StatusOK, o)
}

func (h *OrderHandler) handleUpdateAddresses(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, ok := orderIDParam(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	var requestPayload UpdateOrderRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode order update request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		handleValidationError(w, err)
		return
	}

	updated, err := h.orders.UpdateAddresses(r.Context(), caller, id, requestPayload.ShippingAddress, requestPayload.BillingAddress)
	if err != nil {
		log.Error().Err(err).Msg("Failed to update order via service")
		respondWithServiceError(w, err, "Failed to update order")
		return
	}

	respondWithData(w, http.StatusOK, updated)
}

func (h *OrderHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, ok := orderIDParam(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	if err := h.orders.Cancel(r.Context(), caller, id); err != nil {
		log.Error().Err(err).Msg("Failed to cancel order via service")
		respondWithServiceError(w, err, "Failed to cancel order")
		return
	}

	respondWithMessage(w, http.StatusOK, nil, "Order cancelled")
}

func (h *OrderHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, ok := orderIDParam(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	var requestPayload UpdateOrderStatusRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode status update request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		handleValidationError(w, err)
		return
	}

	status, err := order.ParseStatus(requestPayload.Status)
	if err != nil {
		respondWithServiceError(w, err, "Invalid status")
		return
	}

	updated, err := h.orders.UpdateStatus(r.Context(), caller, id, status)
	if err != nil {
		log.Error().Err(err).Msg("Failed to update order status via service")
		respondWithServiceError(w, err, "Failed to update order status")
		return
	}

	respondWithData(w, http.StatusOK, updated)
}

func (h *OrderHandler) handleSetTracking(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, ok := orderIDParam(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	var requestPayload SetTrackingRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode tracking request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		handleValidationError(w, err)
		return
	}

	updated, err := h.orders.SetTracking(r.Context(), caller, id, requestPayload.TrackingNumber, requestPayload.EstimatedDeliveryAt)
	if err != nil {
		log.Error().Err(err).Msg("Failed to set order tracking via service")
		respondWithServiceError(w, err, "Failed to set order tracking")
		return
	}

	respondWithData(w, http.StatusOK, updated)
}
