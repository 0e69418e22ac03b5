package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/ecommerce-platform/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/product"
)

type CreateProductRequest struct {
	Name          string   `json:"name" validate:"required,min=2"`
	Description   string   `json:"description"`
	Category      string   `json:"category" validate:"required,oneof=books foods clothing_men clothing_women"`
	Price         float64  `json:"price" validate:"gte=0"`
	OriginalPrice *float64 `json:"original_price,omitempty" validate:"omitempty,gte=0"`
	Stock         int      `json:"stock" validate:"gte=0"`
	SKU           string   `json:"sku,omitempty"`
	Images        []string `json:"images" validate:"required,min=1,dive,required"`
	SellerID      *string  `json:"seller_id,omitempty" validate:"omitempty,uuid4"`
}

type UpdateProductRequest struct {
	Name          *string  `json:"name,omitempty" validate:"omitempty,min=2"`
	Description   *string  `json:"description,omitempty"`
	Category      *string  `json:"category,omitempty" validate:"omitempty,oneof=books foods clothing_men clothing_women"`
	Price         *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	OriginalPrice *float64 `json:"original_price,omitempty" validate:"omitempty,gte=0"`
	Stock         *int     `json:"stock,omitempty" validate:"omitempty,gte=0"`
	Images        []string `json:"images,omitempty" validate:"omitempty,min=1,dive,required"`
	Active        *bool    `json:"active,omitempty"`
	Featured      *bool    `json:"featured,omitempty"`
}

type RateProductRequest struct {
	Rating int `json:"rating" validate:"required,min=1,max=5"`
}

type ProductHandler struct {
	products product.Service
	validate *validator.Validate
}

func NewProductHandler(products product.Service) *ProductHandler {
	return &ProductHandler{
		products: products,
		validate: validator.New(),
	}
}

// RegisterRoutes mounts the public catalog endpoints directly and the
// mutating ones behind authentication plus the matching capability.
func (h *ProductHandler) RegisterRoutes(router chi.Router, authenticate func(http.Handler) http.Handler) {
	router.Get("/", h.handleList)
	router.Get("/{id}", h.handleGet)

	router.Group(func(g chi.Router) {
		g.Use(authenticate)
		g.With(auth.RequirePermission(auth.PermManageProducts)).Post("/", h.handleCreate)
		g.With(auth.RequirePermission(auth.PermManageProducts)).Put("/{id}", h.handleUpdate)
		g.With(auth.RequirePermission(auth.PermManageProducts)).Delete("/{id}", h.handleDelete)
		g.With(auth.RequirePermission(auth.PermRateProducts)).Post("/{id}/rating", h.handleRate)
	})
}

// RegisterSellerRoutes mounts the seller's own-catalog listing; unlike the
// public list it includes inactive products.
func (h *ProductHandler) RegisterSellerRoutes(router chi.Router) {
	router.Get("/products", h.handleSellerList)
}

func productIDParam(r *http.Request) (uuid.UUID, bool) {
	idParam := chi.URLParam(r, "id")
	id, err := uuid.FromString(idParam)
	if err != nil {
		log.Warn().Err(err).Str("product_id", idParam).Msg("Failed to parse id parameter from URL")
		return uuid.Nil, false
	}
	return id, true
}

// listFilterFromQuery translates storefront query params into a catalog
// filter. Malformed numbers are ignored rather than rejected.
func listFilterFromQuery(r *http.Request) (product.ListFilter, error) {
	q := r.URL.Query()
	filter := product.ListFilter{ActiveOnly: true, SortBy: "created_at", SortDesc: true}

	if raw := q.Get("category"); raw != "" {
		category, err := product.ParseCategory(raw)
		if err != nil {
			return filter, err
		}
		filter.Category = &category
	}
	if raw := q.Get("min_price"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			filter.MinPrice = &v
		}
	}
	if raw := q.Get("max_price"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			filter.MaxPrice = &v
		}
	}
	if raw := q.Get("featured"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			filter.Featured = &v
		}
	}
	filter.Query = q.Get("q")

	if raw := q.Get("sort"); raw != "" {
		filter.SortBy = raw
	}
	if raw := q.Get("order"); raw != "" {
		filter.SortDesc = raw != "asc"
	}

	filter.Page, filter.Limit = parsePagination(r)

	return filter, nil
}

func (h *ProductHandler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := listFilterFromQuery(r)
	if err != nil {
		respondWithServiceError(w, err, "Invalid filter")
		return
	}

	products, total, err := h.products.List(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list products via service")
		respondWithServiceError(w, err, "Failed to list products")
		return
	}

	respondWithData(w, http.StatusOK, ListData{
		Items: products,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	})
}

func (h *ProductHandler) handleSellerList(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	filter, err := listFilterFromQuery(r)
	if err != nil {
		respondWithServiceError(w, err, "Invalid filter")
		return
	}
	filter.SellerID = &caller.ID
	filter.ActiveOnly = false

	products, total, err := h.products.List(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list seller products via service")
		respondWithServiceError(w, err, "Failed to list products")
		return
	}

	respondWithData(w, http.StatusOK, ListData{
		Items: products,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	})
}

func (h *ProductHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get product via service")
		respondWithServiceError(w, err, "Failed to get product")
		return
	}

	respondWithData(w, http.StatusOK, p)
}

func (h *ProductHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var requestPayload CreateProductRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode product create request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		handleValidationError(w, err)
		return
	}

	input := product.CreateInput{
		Name:          requestPayload.Name,
		Description:   requestPayload.Description,
		Category:      product.Category(requestPayload.Category),
		Price:         requestPayload.Price,
		OriginalPrice: requestPayload.OriginalPrice,
		Stock:         requestPayload.Stock,
		SKU:           requestPayload.SKU,
		Images:        requestPayload.Images,
	}
	if requestPayload.SellerID != nil {
		sellerID, err := uuid.FromString(*requestPayload.SellerID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid seller_id")
			return
		}
		input.SellerID = &sellerID
	}

	created, err := h.products.Create(r.Context(), caller, input)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create product via service")
		respondWithServiceError(w, err, "Failed to create product")
		return
	}

	respondWithMessage(w, http.StatusCreated, created, "Product created")
}

func (h *ProductHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, ok := productIDParam(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	var requestPayload UpdateProductRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode product update request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		handleValidationError(w, err)
		return
	}

	input := product.UpdateInput{
		Name:          requestPayload.Name,
		Description:   requestPayload.Description,
		Price:         requestPayload.Price,
		OriginalPrice: requestPayload.OriginalPrice,
		Stock:         requestPayload.Stock,
		Images:        requestPayload.Images,
		Active:        requestPayload.Active,
		Featured:      requestPayload.Featured,
	}
	if requestPayload.Category != nil {
		category := product.Category(*requestPayload.Category)
		input.Category = &category
	}

	updated, err := h.products.Update(r.Context(), caller, id, input)
	if err != nil {
		log.Error().Err(err).Msg("Failed to update product via service")
		respondWithServiceError(w, err, "Failed to update product")
		return
	}

	respondWithData(w, http.StatusOK, updated)
}

func (h *ProductHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, ok := productIDParam(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	if err := h.products.Delete(r.Context(), caller, id); err != nil {
		log.Error().Err(err).Msg("Failed to delete product via service")
		respondWithServiceError(w, err, "Failed to delete product")
		return
	}

	respondWithMessage(w, http.StatusOK, nil, "Product deactivated")
}

func (h *ProductHandler) handleRate(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	var requestPayload RateProductRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode rating request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		handleValidationError(w, err)
		return
	}

	rated, err := h.products.Rate(r.Context(), id, requestPayload.Rating)
	if err != nil {
		log.Error().Err(err).Msg("Failed to rate product via service")
		respondWithServiceError(w, err, "Failed to rate product")
		return
	}

	respondWithData(w, http.StatusOK, rated)
}
