package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/ecommerce-platform/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/user"
)

type AdminUpdateUserRequest struct {
	Name     string  `json:"name" validate:"required,min=2"`
	Email    string  `json:"email" validate:"required,email"`
	Phone    string  `json:"phone"`
	Address  string  `json:"address"`
	Role     string  `json:"role" validate:"required,oneof=admin seller customer delivery"`
	Active   bool    `json:"active"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=8"`
}

// UserHandler is the admin-side user management surface. The router mounts
// it behind the admin role gate.
type UserHandler struct {
	users    user.Service
	validate *validator.Validate
}

func NewUserHandler(users user.Service) *UserHandler {
	return &UserHandler{
		users:    users,
		validate: validator.New(),
	}
}

func (h *UserHandler) RegisterRoutes(router chi.Router) {
	router.Get("/users", h.handleList)
	router.Get("/users/{id}", h.handleGet)
	router.Put("/users/{id}", h.handleUpdate)
	router.Delete("/users/{id}", h.handleDelete)
}

func userIDParam(r *http.Request) (uuid.UUID, bool) {
	idParam := chi.URLParam(r, "id")
	id, err := uuid.FromString(idParam)
	if err != nil {
		log.Warn().Err(err).Str("user_id", idParam).Msg("Failed to parse id parameter from URL")
		return uuid.Nil, false
	}
	return id, true
}

func (h *UserHandler) handleList(w http.ResponseWriter, r *http.Request) {
	var filter user.ListFilter

	if raw := r.URL.Query().Get("role"); raw != "" {
		role, err := user.ParseRole(raw)
		if err != nil {
			respondWithServiceError(w, err, "Invalid role filter")
			return
		}
		filter.Role = &role
	}
	filter.Page, filter.Limit = parsePagination(r)

	users, total, err := h.users.ListUsers(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list users via service")
		respondWithServiceError(w, err, "Failed to list users")
		return
	}

	items := make([]UserResponse, 0, len(users))
	for i := range users {
		items = append(items, newUserResponse(&users[i]))
	}

	respondWithData(w, http.StatusOK, ListData{
		Items: items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	})
}

func (h *UserHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	found, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get user via service")
		respondWithServiceError(w, err, "Failed to get user")
		return
	}

	respondWithData(w, http.StatusOK, newUserResponse(found))
}

func (h *UserHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	var requestPayload AdminUpdateUserRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode user update request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		handleValidationError(w, err)
		return
	}

	updated, err := h.users.AdminUpdateUser(r.Context(), id, user.AdminUpdate{
		Name:     requestPayload.Name,
		Email:    requestPayload.Email,
		Phone:    requestPayload.Phone,
		Address:  requestPayload.Address,
		Role:     user.Role(requestPayload.Role),
		Active:   requestPayload.Active,
		Password: requestPayload.Password,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to update user via service")
		respondWithServiceError(w, err, "Failed to update user")
		return
	}

	respondWithData(w, http.StatusOK, newUserResponse(updated))
}

func (h *UserHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, ok := userIDParam(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	if err := h.users.DeleteUser(r.Context(), caller, id); err != nil {
		log.Error().Err(err).Msg("Failed to delete user via service")
		respondWithServiceError(w, err, "Failed to delete user")
		return
	}

	respondWithMessage(w, http.StatusOK, nil, "User deleted")
}
