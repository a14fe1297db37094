package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/prontivus/prontivus/internal/rbac"
	"github.com/prontivus/prontivus/internal/shared"
)

const issuer = "prontivus"

// Token kinds carried in the custom "token_type" claim.
const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims is the enriched JWT payload: identity plus the resolved role and
// permission set, so downstream services can authorize without a database
// round trip until the token is reissued.
type Claims struct {
	UserID      int64    `json:"user_id"`
	Username    string   `json:"username"`
	ClinicID    int64    `json:"clinic_id"`
	RoleID      int64    `json:"role_id"`
	RoleName    string   `json:"role_name"`
	Permissions []string `json:"permissions"`
	TokenType   string   `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair bundles the issued access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// TokenIssuer signs and verifies the enriched credentials.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenIssuer constructs a TokenIssuer.
func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// Issue embeds the user identity and the resolved authorization into a new
// token pair. The refresh token carries identity only; permissions are
// re-resolved at refresh time.
func (t *TokenIssuer) Issue(user *User, auth *rbac.ResolvedAuthorization) (TokenPair, error) {
	now := time.Now()

	access := Claims{
		UserID:      user.ID,
		Username:    user.Username,
		ClinicID:    user.ClinicID,
		RoleID:      auth.RoleID,
		RoleName:    auth.RoleName,
		Permissions: auth.Permissions.Values(),
		TokenType:   tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   fmt.Sprintf("%d", user.ID),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, access).SignedString(t.secret)
	if err != nil {
		return TokenPair{}, err
	}

	refresh := Claims{
		UserID:    user.ID,
		Username:  user.Username,
		ClinicID:  user.ClinicID,
		TokenType: tokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   fmt.Sprintf("%d", user.ID),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.refreshTTL)),
		},
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refresh).SignedString(t.secret)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(t.accessTTL.Seconds()),
	}, nil
}

// ParseAccess verifies an access token and returns its claims.
func (t *TokenIssuer) ParseAccess(token string) (*Claims, error) {
	return t.parse(token, tokenTypeAccess)
}

// ParseRefresh verifies a refresh token and returns its claims.
func (t *TokenIssuer) ParseRefresh(token string) (*Claims, error) {
	return t.parse(token, tokenTypeRefresh)
}

func (t *TokenIssuer) parse(token, wantType string) (*Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, shared.ErrUnauthenticated
	}
	if claims.TokenType != wantType {
		return nil, shared.ErrUnauthenticated
	}
	return &claims, nil
}

// SharedClaims converts the JWT payload into the context form guards read.
func (c *Claims) SharedClaims() *shared.Claims {
	return &shared.Claims{
		UserID:      c.UserID,
		Username:    c.Username,
		ClinicID:    c.ClinicID,
		RoleID:      c.RoleID,
		RoleName:    c.RoleName,
		Permissions: c.Permissions,
		TokenID:     c.ID,
	}
}
