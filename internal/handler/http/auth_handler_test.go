package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/ecommerce-platform/internal/auth"
	handler "github.com/vasiliy-maslov/ecommerce-platform/internal/handler/http"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/user"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, u *user.User, password string) (*user.User, error) {
	args := m.Called(ctx, u, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, id uuid.UUID, in user.ProfileUpdate) (*user.User, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) AdminUpdateUser(ctx context.Context, id uuid.UUID, in user.AdminUpdate) (*user.User, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) DeleteUser(ctx context.Context, caller *user.User, id uuid.UUID) error {
	args := m.Called(ctx, caller, id)
	return args.Error(0)
}

func (m *MockUserService) ListUsers(ctx context.Context, filter user.ListFilter) ([]user.User, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]user.User), args.Int(1), args.Error(2)
}

func (m *MockUserService) EnsureAdmin(ctx context.Context, email, password string) error {
	args := m.Called(ctx, email, password)
	return args.Error(0)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*user.User, *auth.Token, error) {
	args := m.Called(ctx, email, password)
	var u *user.User
	if args.Get(0) != nil {
		u = args.Get(0).(*user.User)
	}
	var t *auth.Token
	if args.Get(1) != nil {
		t = args.Get(1).(*auth.Token)
	}
	return u, t, args.Error(2)
}

func (m *MockAuthService) Authenticate(ctx context.Context, tokenID uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, tokenID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, tokenID uuid.UUID) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

// envelope mirrors the response wrapper for assertions.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Details []struct {
		Field string `json:"field"`
		Rule  string `json:"rule"`
	} `json:"details"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var resp envelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp
}

// injectUser stands in for the session middleware in handler tests. A nil
// user leaves the request unauthenticated.
func injectUser(u *user.User) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if u != nil {
				r = r.WithContext(auth.WithUser(r.Context(), u))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newAuthRouter(users user.Service, authSvc auth.Service, sessionUser *user.User) *chi.Mux {
	h := handler.NewAuthHandler(users, authSvc)
	router := chi.NewRouter()
	router.Route("/api/auth", func(r chi.Router) {
		h.RegisterRoutes(r, injectUser(sessionUser))
	})
	return router
}

func TestAuthHandler_Register_Success(t *testing.T) {
	mockUsers := new(MockUserService)
	mockAuth := new(MockAuthService)
	router := newAuthRouter(mockUsers, mockAuth, nil)

	created := user.User{
		ID:     uuid.Must(uuid.NewV4()),
		Name:   "Jamie Rivera",
		Email:  "jamie@example.com",
		Role:   user.RoleCustomer,
		Active: true,
	}

	mockUsers.On("Register", mock.Anything, mock.MatchedBy(func(u *user.User) bool {
		return u.Email == "jamie@example.com" && u.Role == user.RoleCustomer
	}), "password123").
		Return(&created, nil).
		Once()

	body := `{"name":"Jamie Rivera","email":"jamie@example.com","password":"password123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	resp := decodeEnvelope(t, rr)
	assert.True(t, resp.Success)
	assert.Equal(t, "Registration successful", resp.Message)

	var data struct {
		ID    uuid.UUID `json:"id"`
		Email string    `json:"email"`
		Role  string    `json:"role"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, created.ID, data.ID)
	assert.Equal(t, "jamie@example.com", data.Email)
	assert.Equal(t, "customer", data.Role)
	mockUsers.AssertExpectations(t)
}

func TestAuthHandler_Register_ValidationDetails(t *testing.T) {
	mockUsers := new(MockUserService)
	mockAuth := new(MockAuthService)
	router := newAuthRouter(mockUsers, mockAuth, nil)

	body := `{"name":"J","email":"not-an-email","password":"short"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	resp := decodeEnvelope(t, rr)
	assert.False(t, resp.Success)
	assert.Equal(t, "Validation failed", resp.Error)

	fields := make(map[string]string, len(resp.Details))
	for _, d := range resp.Details {
		fields[d.Field] = d.Rule
	}
	assert.Equal(t, "min=2", fields["Name"])
	assert.Equal(t, "email", fields["Email"])
	assert.Equal(t, "min=8", fields["Password"])
	mockUsers.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthHandler_Register_AdminRoleRejected(t *testing.T) {
	mockUsers := new(MockUserService)
	mockAuth := new(MockAuthService)
	router := newAuthRouter(mockUsers, mockAuth, nil)

	body := `{"name":"Jamie Rivera","email":"jamie@example.com","password":"password123","role":"admin"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	mockUsers.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthHandler_Register_UnknownFieldRejected(t *testing.T) {
	mockUsers := new(MockUserService)
	mockAuth := new(MockAuthService)
	router := newAuthRouter(mockUsers, mockAuth, nil)

	body := `{"name":"Jamie Rivera","email":"jamie@example.com","password":"password123","is_admin":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	resp := decodeEnvelope(t, rr)
	assert.Equal(t, "Invalid request payload", resp.Error)
}

func TestAuthHandler_Register_DuplicateEmail(t *testing.T) {
	mockUsers := new(MockUserService)
	mockAuth := new(MockAuthService)
	router := newAuthRouter(mockUsers, mockAuth, nil)

	mockUsers.On("Register", mock.Anything, mock.AnythingOfType("*user.User"), "password123").
		Return(nil, user.ErrEmailExists).
		Once()

	body := `{"name":"Jamie Rivera","email":"jamie@example.com","password":"password123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusConflict, rr.Code)
	resp := decodeEnvelope(t, rr)
	assert.False(t, resp.Success)
	assert.Equal(t, "Email already exists", resp.Error)
}

func TestAuthHandler_Login_Success(t *testing.T) {
	mockUsers := new(MockUserService)
	mockAuth := new(MockAuthService)
	router := newAuthRouter(mockUsers, mockAuth, nil)

	loggedIn := user.User{
		ID:     uuid.Must(uuid.NewV4()),
		Email:  "jamie@example.com",
		Role:   user.RoleCustomer,
		Active: true,
	}
	token := auth.Token{
		ID:        uuid.Must(uuid.NewV4()),
		UserID:    loggedIn.ID,
		ExpiresAt: time.Now().Add(24 * time.Hour).UTC(),
	}

	mockAuth.On("Login", mock.Anything, "jamie@example.com", "password123").
		Return(&loggedIn, &token, nil).
		Once()

	body := `{"email":"jamie@example.com","password":"password123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeEnvelope(t, rr)
	assert.True(t, resp.Success)

	var data struct {
		Token uuid.UUID `json:"token"`
		User  struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, token.ID, data.Token)
	assert.Equal(t, "jamie@example.com", data.User.Email)
	mockAuth.AssertExpectations(t)
}

func TestAuthHandler_Login_WrongCredentials(t *testing.T) {
	mockUsers := new(MockUserService)
	mockAuth := new(MockAuthService)
	router := newAuthRouter(mockUsers, mockAuth, nil)

	mockAuth.On("Login", mock.Anything, "jamie@example.com", "wrong-password").
		Return(nil, nil, auth.ErrInvalidCredentials).
		Once()

	body := `{"email":"jamie@example.com","password":"wrong-password"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	resp := decodeEnvelope(t, rr)
	assert.False(t, resp.Success)
	assert.Equal(t, "Invalid email or password", resp.Error)
}

func TestAuthHandler_Verify_ReturnsSessionUser(t *testing.T) {
	sessionUser := user.User{
		ID:     uuid.Must(uuid.NewV4()),
		Email:  "jamie@example.com",
		Role:   user.RoleCustomer,
		Active: true,
	}

	mockUsers := new(MockUserService)
	mockAuth := new(MockAuthService)
	router := newAuthRouter(mockUsers, mockAuth, &sessionUser)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeEnvelope(t, rr)

	var data struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, sessionUser.ID, data.ID)
}

func TestAuthHandler_Logout_RevokesBearerToken(t *testing.T) {
	sessionUser := user.User{ID: uuid.Must(uuid.NewV4()), Role: user.RoleCustomer, Active: true}
	tokenID := uuid.Must(uuid.NewV4())

	mockUsers := new(MockUserService)
	mockAuth := new(MockAuthService)
	router := newAuthRouter(mockUsers, mockAuth, &sessionUser)

	mockAuth.On("Logout", mock.Anything, tokenID).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+tokenID.String())
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeEnvelope(t, rr)
	assert.Equal(t, "Logged out", resp.Message)
	mockAuth.AssertExpectations(t)
}

func TestAuthHandler_UpdateProfile_PassesChanges(t *testing.T) {
	sessionUser := user.User{ID: uuid.Must(uuid.NewV4()), Email: "jamie@example.com", Role: user.RoleCustomer, Active: true}

	mockUsers := new(MockUserService)
	mockAuth := new(MockAuthService)
	router := newAuthRouter(mockUsers, mockAuth, &sessionUser)

	updated := sessionUser
	updated.Name = "Jamie R."
	updated.Phone = "+15550100"

	mockUsers.On("UpdateProfile", mock.Anything, sessionUser.ID, mock.MatchedBy(func(in user.ProfileUpdate) bool {
		return in.Name == "Jamie R." && in.Phone == "+15550100" && in.Password == nil
	})).
		Return(&updated, nil).
		Once()

	body := `{"name":"Jamie R.","email":"jamie@example.com","phone":"+15550100"}`
	req := httptest.NewRequest(http.MethodPut, "/api/auth/profile", strings.NewReader(body))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	mockUsers.AssertExpectations(t)
}
