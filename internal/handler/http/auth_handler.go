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
	"github.com/vasiliy-maslov/ecommerce-platform/internal/user"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=customer seller delivery"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	Name     string  `json:"name" validate:"required,min=2"`
	Email    string  `json:"email" validate:"required,email"`
	Phone    string  `json:"phone"`
	Address  string  `json:"address"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=8"`
}

type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        user.Role  `json:"role"`
	Phone       string     `json:"phone,omitempty"`
	Address     string     `json:"address,omitempty"`
	Active      bool       `json:"active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type LoginResponse struct {
	Token     uuid.UUID    `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

func newUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Role:        u.Role,
		Phone:       u.Phone,
		Address:     u.Address,
		Active:      u.Active,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

type AuthHandler struct {
	users    user.Service
	auth     auth.Service
	validate *validator.Validate
}

func NewAuthHandler(users user.Service, authSvc auth.Service) *AuthHandler {
	return &AuthHandler{
		users:    users,
		auth:     authSvc,
		validate: validator.New(),
	}
}

// RegisterRoutes mounts the public endpoints directly and the
// session-bound ones behind the given authentication middleware.
func (h *AuthHandler) RegisterRoutes(router chi.Router, authenticate func(http.Handler) http.Handler) {
	router.Post("/register", h.handleRegister)
	router.Post("/login", h.handleLogin)

	router.Group(func(g chi.Router) {
		g.Use(authenticate)
		g.Post("/logout", h.handleLogout)
		g.Get("/verify", h.handleVerify)
		g.Get("/profile", h.handleGetProfile)
		g.Put("/profile", h.handleUpdateProfile)
	})
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var requestPayload RegisterRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode register request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		handleValidationError(w, err)
		return
	}

	role := user.RoleCustomer
	if requestPayload.Role != "" {
		parsed, err := user.ParseRole(requestPayload.Role)
		if err != nil {
			respondWithServiceError(w, err, "Invalid role")
			return
		}
		role = parsed
	}

	domainUser := user.User{
		Name:    requestPayload.Name,
		Email:   requestPayload.Email,
		Role:    role,
		Phone:   requestPayload.Phone,
		Address: requestPayload.Address,
	}

	createdUser, err := h.users.Register(r.Context(), &domainUser, requestPayload.Password)
	if err != nil {
		log.Error().Err(err).Msg("Failed to register user via service")
		respondWithServiceError(w, err, "Failed to register user")
		return
	}

	respondWithMessage(w, http.StatusCreated, newUserResponse(createdUser), "Registration successful")
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var requestPayload LoginRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode login request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		handleValidationError(w, err)
		return
	}

	loggedIn, token, err := h.auth.Login(r.Context(), requestPayload.Email, requestPayload.Password)
	if err != nil {
		log.Warn().Err(err).Str("email", requestPayload.Email).Msg("Failed login attempt")
		respondWithServiceError(w, err, "Failed to login")
		return
	}

	responsePayload := LoginResponse{
		Token:     token.ID,
		ExpiresAt: token.ExpiresAt,
		User:      newUserResponse(loggedIn),
	}

	respondWithMessage(w, http.StatusOK, responsePayload, "Login successful")
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := auth.BearerToken(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.auth.Logout(r.Context(), tokenID); err != nil {
		log.Error().Err(err).Msg("Failed to logout via service")
		respondWithServiceError(w, err, "Failed to logout")
		return
	}

	respondWithMessage(w, http.StatusOK, nil, "Logged out")
}

func (h *AuthHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	respondWithData(w, http.StatusOK, newUserResponse(u))
}

func (h *AuthHandler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	profile, err := h.users.GetByID(r.Context(), u.ID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get profile via service")
		respondWithServiceError(w, err, "Failed to get profile")
		return
	}

	respondWithData(w, http.StatusOK, newUserResponse(profile))
}

func (h *AuthHandler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var requestPayload UpdateProfileRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode profile update request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		handleValidationError(w, err)
		return
	}

	updated, err := h.users.UpdateProfile(r.Context(), u.ID, user.ProfileUpdate{
		Name:     requestPayload.Name,
		Email:    requestPayload.Email,
		Phone:    requestPayload.Phone,
		Address:  requestPayload.Address,
		Password: requestPayload.Password,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to update profile via service")
		respondWithServiceError(w, err, "Failed to update profile")
		return
	}

	respondWithData(w, http.StatusOK, newUserResponse(updated))
}
