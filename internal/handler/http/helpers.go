package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/ecommerce-platform/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/order"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/product"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/report"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/user"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool         `json:"success"`
	Data    any          `json:"data,omitempty"`
	Message string       `json:"message,omitempty"`
	Error   string       `json:"error,omitempty"`
	Details []FieldError `json:"details,omitempty"`
}

// FieldError describes one failed validation rule of a request payload.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ListData is the shape of paginated collection responses inside Data.
type ListData struct {
	Items any `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, Response{Success: false, Error: message})
}

func respondWithData(w http.ResponseWriter, code int, data any) {
	respondWithJSON(w, code, Response{Success: true, Data: data})
}

func respondWithMessage(w http.ResponseWriter, code int, data any, message string) {
	respondWithJSON(w, code, Response{Success: true, Data: data, Message: message})
}

func respondWithValidationErrors(w http.ResponseWriter, validationErrors validator.ValidationErrors) {
	respondWithJSON(w, http.StatusBadRequest, Response{
		Success: false,
		Error:   "Validation failed",
		Details: formatValidationErrors(validationErrors),
	})
}

func formatValidationErrors(validationErrors validator.ValidationErrors) []FieldError {
	details := make([]FieldError, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		rule := fieldErr.Tag()
		if fieldErr.Param() != "" {
			rule = fmt.Sprintf("%s=%s", rule, fieldErr.Param())
		}
		details = append(details, FieldError{Field: fieldErr.Field(), Rule: rule})
	}
	return details
}

// handleValidationError answers a failed validate.Struct call. Anything that
// is not a ValidationErrors slice is an internal problem.
func handleValidationError(w http.ResponseWriter, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		respondWithValidationErrors(w, validationErrors)
		return
	}
	log.Error().Err(err).Msg("Unexpected error type during validation")
	respondWithError(w, http.StatusInternalServerError, "Internal validation error")
}

func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, user.ErrUnknownRole),
		errors.Is(err, user.ErrRoleNotAllowed),
		errors.Is(err, product.ErrUnknownCategory),
		errors.Is(err, product.ErrInvalidProduct),
		errors.Is(err, product.ErrInvalidRating),
		errors.Is(err, order.ErrInvalidOrder),
		errors.Is(err, order.ErrUnknownStatus),
		errors.Is(err, order.ErrProductUnavailable),
		errors.Is(err, report.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, product.ErrNotOwner),
		errors.Is(err, order.ErrTransitionForbidden),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, user.ErrCannotDeleteSelf):
		return http.StatusForbidden
	case errors.Is(err, user.ErrNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, auth.ErrTokenNotFound):
		return http.StatusNotFound
	case errors.Is(err, user.ErrEmailExists),
		errors.Is(err, product.ErrSKUExists),
		errors.Is(err, order.ErrOrderNumberExists),
		errors.Is(err, order.ErrInsufficientStock),
		errors.Is(err, order.ErrNotPending),
		errors.Is(err, order.ErrStatusConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage picks a safe human-readable string for the envelope. The
// wrapped chain never reaches the client.
func clientMessage(err error, fallback string) string {
	knownMessages := []struct {
		sentinel error
		message  string
	}{
		{user.ErrNotFound, "User not found"},
		{user.ErrEmailExists, "Email already exists"},
		{user.ErrCannotDeleteSelf, "Cannot delete your own account"},
		{auth.ErrInvalidCredentials, "Invalid email or password"},
		{auth.ErrInvalidToken, "Invalid or expired token"},
		{product.ErrNotFound, "Product not found"},
		{product.ErrSKUExists, "Product with this SKU already exists"},
		{product.ErrNotOwner, "You do not own this product"},
		{product.ErrInvalidRating, "Rating must be between 1 and 5"},
		{order.ErrNotFound, "Order not found"},
		{order.ErrInsufficientStock, "Insufficient stock for one of the items"},
		{order.ErrProductUnavailable, "One of the products is unavailable"},
		{order.ErrTransitionForbidden, "Your role cannot perform this status change"},
		{order.ErrInvalidTransition, "Status change not allowed from the current status"},
		{order.ErrNotPending, "Order is no longer pending"},
		{order.ErrStatusConflict, "Order was modified concurrently, try again"},
		{report.ErrInvalidRange, "Days must be one of 7, 30 or 90"},
	}
	for _, known := range knownMessages {
		if errors.Is(err, known.sentinel) {
			return known.message
		}
	}
	if errors.Is(err, user.ErrUnknownRole) ||
		errors.Is(err, product.ErrUnknownCategory) ||
		errors.Is(err, product.ErrInvalidProduct) ||
		errors.Is(err, order.ErrInvalidOrder) ||
		errors.Is(err, order.ErrUnknownStatus) {
		return err.Error()
	}
	return fallback
}

// respondWithServiceError maps a service failure onto the envelope.
func respondWithServiceError(w http.ResponseWriter, err error, fallback string) {
	respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, fallback))
}

// parsePagination reads page and limit query params, leaving zero for the
// service defaults when absent or malformed.
func parsePagination(r *http.Request) (page, limit int) {
	if raw := r.URL.Query().Get("page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			page = v
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}
	return page, limit
}
