package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prontivus/prontivus/internal/platform/httpx"
	"github.com/prontivus/prontivus/internal/shared"
)

// PrincipalSource loads the persisted principal for re-resolution, so guard
// decisions reflect the current role assignment and ad-hoc overlay rather
// than the token's snapshot.
type PrincipalSource interface {
	PrincipalByID(ctx context.Context, userID int64) (Principal, error)
}

// Middleware wires authorization guards for HTTP handlers. Guards re-resolve
// against the role store (through the cache) by default and fall back to the
// permissions embedded in the credential only when the store is unreachable.
// TrustClaims switches to trusting the embedded claims outright.
type Middleware struct {
	Service     *Service
	Principals  PrincipalSource
	Logger      *slog.Logger
	TrustClaims bool
}

// RequireRole passes when the resolved role name is one of the allowed names.
func (m Middleware) RequireRole(names ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			allowed[n] = struct{}{}
		}
	}
	return m.guard(func(roleName string, _ PermissionSet) bool {
		_, ok := allowed[roleName]
		return ok
	})
}

// RequirePermission passes when the principal holds the permission.
func (m Middleware) RequirePermission(perm string) func(http.Handler) http.Handler {
	return m.RequireAnyPermission(perm)
}

// RequireAnyPermission passes when the principal holds at least one of the
// permissions (OR semantics).
func (m Middleware) RequireAnyPermission(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.guard(func(_ string, held PermissionSet) bool {
		if len(normalized) == 0 {
			return true
		}
		return held.HasAny(normalized...)
	})
}

// RequireAllPermissions passes when the principal holds every permission
// (AND semantics).
func (m Middleware) RequireAllPermissions(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.guard(func(_ string, held PermissionSet) bool {
		return held.HasAll(normalized...)
	})
}

// guard evaluates the predicate against the request's authorization state.
// Missing credentials yield 401; a resolved-but-unprivileged principal
// yields 403, never a panic or a leaked internal error.
func (m Middleware) guard(allow func(roleName string, held PermissionSet) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := shared.ClaimsFromContext(r.Context())
			if claims == nil {
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			roleName, held, err := m.effective(r.Context(), claims)
			if err != nil {
				httpx.RespondError(w, err)
				return
			}
			if !allow(roleName, held) {
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// effective returns the role name and permission set to evaluate guards
// against, according to the configured posture.
func (m Middleware) effective(ctx context.Context, claims *shared.Claims) (string, PermissionSet, error) {
	if m.TrustClaims {
		return claims.RoleName, NewPermissionSet(claims.Permissions...), nil
	}

	principal := Principal{UserID: claims.UserID}
	if m.Principals != nil {
		loaded, err := m.Principals.PrincipalByID(ctx, claims.UserID)
		switch {
		case err == nil:
			principal = loaded
		case errors.Is(err, shared.ErrNotFound):
			return "", nil, shared.ErrUnauthenticated
		default:
			m.logf("load principal", err)
			return claims.RoleName, NewPermissionSet(claims.Permissions...), nil
		}
	} else {
		roleID := claims.RoleID
		principal.RoleID = &roleID
	}

	auth, err := m.Service.ResolveForPrincipal(ctx, principal)
	if err != nil {
		if errors.Is(err, ErrUnresolvedRole) {
			return "", nil, shared.ErrForbidden
		}
		// Role store unreachable: fall back to the claims embedded at
		// issuance rather than denying every request.
		m.logf("resolve authorization", err)
		return claims.RoleName, NewPermissionSet(claims.Permissions...), nil
	}
	return auth.RoleName, auth.Permissions, nil
}

func (m Middleware) logf(msg string, err error) {
	if m.Logger != nil {
		m.Logger.Error(msg, slog.Any("error", err))
	}
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p != "" {
			unique[p] = struct{}{}
		}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}
