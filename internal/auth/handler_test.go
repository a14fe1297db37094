package auth_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/prontivus/prontivus/internal/auth"
	"github.com/prontivus/prontivus/internal/rbac"
	"github.com/prontivus/prontivus/internal/shared"
	_ "github.com/prontivus/prontivus/testing"
)

type stubRepo struct {
	user *auth.User
}

func (s *stubRepo) FindByLogin(ctx context.Context, usernameOrEmail string) (*auth.User, error) {
	if s.user == nil || (s.user.Username != usernameOrEmail && s.user.Email != usernameOrEmail) {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) TouchLastLogin(ctx context.Context, id int64) error { return nil }

type stubAuthorizer struct{}

func (stubAuthorizer) ResolveForPrincipal(ctx context.Context, principal rbac.Principal) (*rbac.ResolvedAuthorization, error) {
	return &rbac.ResolvedAuthorization{
		RoleID:      4,
		RoleName:    "Secretaria",
		Permissions: rbac.NewPermissionSet("patients.view"),
		Menu: []rbac.GroupView{
			{ID: 1, Name: "Dashboard", OrderIndex: 1, Items: []rbac.ItemView{
				{ID: 1, Name: "Início", Route: "/dashboard", OrderIndex: 1},
			}},
		},
	}, nil
}

func newRouter(t *testing.T) (chi.Router, *auth.TokenIssuer) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	roleID := int64(4)
	repo := &stubRepo{user: &auth.User{
		ID:           9,
		Username:     "clerk",
		Email:        "clerk@clinic.example",
		FullName:     "Clara Clerk",
		PasswordHash: string(hash),
		IsActive:     true,
		ClinicID:     1,
		RoleID:       &roleID,
	}}

	issuer := auth.NewTokenIssuer("test-secret", 30*time.Minute, 24*time.Hour)
	service := auth.NewService(repo, stubAuthorizer{}, issuer, nil)
	handler := auth.NewHandler(slog.New(slog.DiscardHandler), service)

	r := chi.NewRouter()
	r.Use(auth.Middleware(issuer))
	r.Route("/api/auth", handler.MountRoutes)
	return r, issuer
}

func postJSON(t *testing.T, r http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestLoginReturnsTokensAndMenu(t *testing.T) {
	r, _ := newRouter(t)

	rr := postJSON(t, r, "/api/auth/login", `{"login":"clerk","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var payload struct {
		AccessToken  string   `json:"access_token"`
		RefreshToken string   `json:"refresh_token"`
		Permissions  []string `json:"permissions"`
		User         struct {
			Username string `json:"username"`
			RoleName string `json:"role_name"`
		} `json:"user"`
		Menu []struct {
			Name  string `json:"name"`
			Items []struct {
				Route string `json:"route"`
			} `json:"items"`
		} `json:"menu"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	assert.NotEmpty(t, payload.AccessToken)
	assert.NotEmpty(t, payload.RefreshToken)
	assert.Equal(t, "clerk", payload.User.Username)
	assert.Equal(t, "Secretaria", payload.User.RoleName)
	assert.Equal(t, []string{"patients.view"}, payload.Permissions)
	require.Len(t, payload.Menu, 1)
	assert.Equal(t, "/dashboard", payload.Menu[0].Items[0].Route)
}

func TestLoginBadCredentials(t *testing.T) {
	r, _ := newRouter(t)

	rr := postJSON(t, r, "/api/auth/login", `{"login":"clerk","password":"wrong-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLoginValidation(t *testing.T) {
	r, _ := newRouter(t)

	rr := postJSON(t, r, "/api/auth/login", `{"login":"clerk"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = postJSON(t, r, "/api/auth/login", `{bad json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRefreshFlow(t *testing.T) {
	r, _ := newRouter(t)

	login := postJSON(t, r, "/api/auth/login", `{"login":"clerk","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusOK, login.Code)

	var tokens struct {
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &tokens))

	rr := postJSON(t, r, "/api/auth/refresh", `{"refresh_token":"`+tokens.RefreshToken+`"}`)
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = postJSON(t, r, "/api/auth/refresh", `{"refresh_token":"garbage"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMeRequiresAuthentication(t *testing.T) {
	r, _ := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMeReturnsProfile(t *testing.T) {
	r, _ := newRouter(t)

	login := postJSON(t, r, "/api/auth/login", `{"login":"clerk","password":"s3cret-pass"}`)
	require.Equal(t, http.StatusOK, login.Code)

	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &tokens))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var profile struct {
		Username string `json:"username"`
		RoleName string `json:"role_name"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &profile))
	assert.Equal(t, "clerk", profile.Username)
	assert.Equal(t, "Secretaria", profile.RoleName)
}
