package rbac

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/prontivus/prontivus/internal/shared"
)

type mockPrincipals struct {
	principals map[int64]Principal
	err        error
}

func (m *mockPrincipals) PrincipalByID(ctx context.Context, userID int64) (Principal, error) {
	if m.err != nil {
		return Principal{}, m.err
	}
	p, ok := m.principals[userID]
	if !ok {
		return Principal{}, shared.ErrNotFound
	}
	return p, nil
}

func guardedRequest(t *testing.T, mw func(http.Handler) http.Handler, claims *shared.Claims) *httptest.ResponseRecorder {
	t.Helper()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	if claims != nil {
		req = req.WithContext(shared.ContextWithClaims(req.Context(), claims))
	}
	rr := httptest.NewRecorder()
	mw(next).ServeHTTP(rr, req)
	return rr
}

func trustingMiddleware() Middleware {
	return Middleware{TrustClaims: true, Logger: testLogger()}
}

func claimsWith(perms ...string) *shared.Claims {
	return &shared.Claims{
		UserID:      9,
		Username:    "clerk",
		RoleID:      4,
		RoleName:    "Secretaria",
		Permissions: perms,
	}
}

func TestGuardMissingClaimsIsUnauthorized(t *testing.T) {
	mw := trustingMiddleware()
	rr := guardedRequest(t, mw.RequirePermission("patients.view"), nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGuardAnyPermissionSemantics(t *testing.T) {
	mw := trustingMiddleware()
	claims := claimsWith("patients.view", "appointments.view")

	rr := guardedRequest(t, mw.RequireAnyPermission("patients.view", "billing.view"), claims)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = guardedRequest(t, mw.RequireAnyPermission("billing.view", "stock.view"), claims)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestGuardAllPermissionsSemantics(t *testing.T) {
	mw := trustingMiddleware()
	claims := claimsWith("patients.view", "appointments.view")

	rr := guardedRequest(t, mw.RequireAllPermissions("patients.view", "appointments.view"), claims)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = guardedRequest(t, mw.RequireAllPermissions("patients.view", "billing.view"), claims)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestGuardRequireRole(t *testing.T) {
	mw := trustingMiddleware()
	claims := claimsWith()

	rr := guardedRequest(t, mw.RequireRole("Secretaria", "AdminClinica"), claims)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = guardedRequest(t, mw.RequireRole(RoleNameSuperAdmin), claims)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestGuardReResolvesThroughPrincipalSource(t *testing.T) {
	dir := newMockDirectory(RoleRef{ID: 4, Name: "Secretaria"})
	catalog := newMockCatalog()
	catalog.permsByRole[4] = [][]string{{"patients.view"}}
	svc, _ := newTestService(dir, catalog, time.Minute)

	principals := &mockPrincipals{principals: map[int64]Principal{
		9: {UserID: 9, RoleID: int64Ptr(4)},
	}}
	mw := Middleware{Service: svc, Principals: principals, Logger: testLogger()}

	// The stale claims carry a permission the store no longer grants.
	claims := claimsWith("billing.view")

	rr := guardedRequest(t, mw.RequirePermission("patients.view"), claims)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = guardedRequest(t, mw.RequirePermission("billing.view"), claims)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestGuardDeletedPrincipalIsUnauthorized(t *testing.T) {
	dir := newMockDirectory(RoleRef{ID: 4, Name: "Secretaria"})
	svc, _ := newTestService(dir, newMockCatalog(), time.Minute)

	principals := &mockPrincipals{principals: map[int64]Principal{}}
	mw := Middleware{Service: svc, Principals: principals, Logger: testLogger()}

	rr := guardedRequest(t, mw.RequirePermission("patients.view"), claimsWith("patients.view"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGuardUnresolvedRoleIsForbidden(t *testing.T) {
	dir := newMockDirectory()
	svc, _ := newTestService(dir, newMockCatalog(), time.Minute)

	principals := &mockPrincipals{principals: map[int64]Principal{
		9: {UserID: 9, LegacyRole: "ghost"},
	}}
	mw := Middleware{Service: svc, Principals: principals, Logger: testLogger()}

	rr := guardedRequest(t, mw.RequirePermission("patients.view"), claimsWith("patients.view"))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestGuardFallsBackToClaimsWhenStoreUnreachable(t *testing.T) {
	dir := newMockDirectory(RoleRef{ID: 4, Name: "Secretaria"})
	svc, _ := newTestService(dir, newMockCatalog(), time.Minute)

	principals := &mockPrincipals{err: errors.New("connection refused")}
	mw := Middleware{Service: svc, Principals: principals, Logger: testLogger()}

	rr := guardedRequest(t, mw.RequirePermission("patients.view"), claimsWith("patients.view"))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = guardedRequest(t, mw.RequirePermission("billing.view"), claimsWith("patients.view"))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
