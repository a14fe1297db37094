package shared

import "context"

// Claims carries the identity and authorization facts embedded in an access
// token. Guards read it from the request context after authentication.
type Claims struct {
	UserID      int64
	Username    string
	ClinicID    int64
	RoleID      int64
	RoleName    string
	Permissions []string
	TokenID     string
}

type claimsContextKey struct{}

// ContextWithClaims stores the authenticated claims in context.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext extracts the authenticated claims from context. A nil
// result means the request is unauthenticated.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsContextKey{}).(*Claims)
	return claims
}
