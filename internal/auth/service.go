package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/prontivus/prontivus/internal/rbac"
	"github.com/prontivus/prontivus/internal/shared"
)

// Authorizer resolves the authorization bundle embedded at issuance time.
type Authorizer interface {
	ResolveForPrincipal(ctx context.Context, principal rbac.Principal) (*rbac.ResolvedAuthorization, error)
}

// AlertNotifier enqueues a login alert after a successful authentication.
// Delivery happens out of band; enqueue failures never fail the login.
type AlertNotifier interface {
	NotifyLogin(ctx context.Context, userID int64, username, ip, userAgent string) error
}

// Service wraps authentication business rules and credential issuance.
type Service struct {
	repo       Repository
	authorizer Authorizer
	issuer     *TokenIssuer
	notifier   AlertNotifier
}

// NewService constructs a new Service.
func NewService(repo Repository, authorizer Authorizer, issuer *TokenIssuer, notifier AlertNotifier) *Service {
	return &Service{repo: repo, authorizer: authorizer, issuer: issuer, notifier: notifier}
}

// LoginResult is everything a successful login hands back: the enriched
// token pair, the user, the resolved authorization, and the assembled menu
// tree for immediate rendering.
type LoginResult struct {
	Tokens TokenPair
	User   *User
	Auth   *rbac.ResolvedAuthorization
}

// Authenticate validates login/password credentials.
func (s *Service) Authenticate(ctx context.Context, usernameOrEmail, password string) (*User, error) {
	user, err := s.repo.FindByLogin(ctx, usernameOrEmail)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates the credentials, resolves the principal's
// authorization, and issues an enriched token pair.
func (s *Service) Login(ctx context.Context, usernameOrEmail, password string) (*LoginResult, error) {
	user, err := s.Authenticate(ctx, usernameOrEmail, password)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user)
}

// Refresh re-resolves the user's authorization and issues a fresh token
// pair, so a refreshed credential always carries current permissions.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := s.issuer.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrUnauthenticated
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, shared.ErrUnauthenticated
	}
	return s.issue(ctx, user)
}

// GetUser loads a user by ID.
func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// RecordLogin updates login bookkeeping and fires the login alert.
func (s *Service) RecordLogin(ctx context.Context, user *User, ip, userAgent string) error {
	if err := s.repo.TouchLastLogin(ctx, user.ID); err != nil {
		return err
	}
	if s.notifier != nil {
		return s.notifier.NotifyLogin(ctx, user.ID, user.Username, ip, userAgent)
	}
	return nil
}

func (s *Service) issue(ctx context.Context, user *User) (*LoginResult, error) {
	auth, err := s.authorizer.ResolveForPrincipal(ctx, user.Principal())
	if err != nil {
		return nil, err
	}
	tokens, err := s.issuer.Issue(user, auth)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Tokens: tokens, User: user, Auth: auth}, nil
}
