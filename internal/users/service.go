package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/prontivus/prontivus/internal/rbac"
	"github.com/prontivus/prontivus/internal/shared"
)

// RepositoryPort defines data access methods for user administration.
type RepositoryPort interface {
	ListUsers(ctx context.Context, clinicID int64, page, perPage int) ([]User, shared.Pagination, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	AssignRole(ctx context.Context, userID, roleID int64) error
	UpdateExtraPermissions(ctx context.Context, userID int64, permissions []string) error
}

// RoleChecker verifies that a role exists before it is assigned.
type RoleChecker interface {
	RoleByID(ctx context.Context, id int64) (rbac.RoleRef, error)
}

// Service handles user administration business logic. It doubles as the
// principal source for authorization guards.
type Service struct {
	repo  RepositoryPort
	roles RoleChecker
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, roles RoleChecker) *Service {
	return &Service{repo: repo, roles: roles}
}

// ListUsers returns a page of a clinic's users.
func (s *Service) ListUsers(ctx context.Context, clinicID int64, page, perPage int) ([]User, shared.Pagination, error) {
	return s.repo.ListUsers(ctx, clinicID, page, perPage)
}

// GetUser loads one user by ID.
func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetUser(ctx, id)
}

// AssignRole moves a user onto the given role after checking it exists.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) error {
	if _, err := s.roles.RoleByID(ctx, roleID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("users: role %d: %w", roleID, shared.ErrNotFound)
		}
		return err
	}
	return s.repo.AssignRole(ctx, userID, roleID)
}

// UpdateExtraPermissions replaces a user's permission overlay.
func (s *Service) UpdateExtraPermissions(ctx context.Context, userID int64, permissions []string) error {
	return s.repo.UpdateExtraPermissions(ctx, userID, permissions)
}

// PrincipalByID loads the persisted identity fields guards re-resolve from.
func (s *Service) PrincipalByID(ctx context.Context, userID int64) (rbac.Principal, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return rbac.Principal{}, err
	}
	if !user.IsActive {
		return rbac.Principal{}, shared.ErrNotFound
	}
	return rbac.Principal{
		UserID:           user.ID,
		RoleID:           user.RoleID,
		LegacyRole:       user.LegacyRole,
		ExtraPermissions: user.ExtraPermissions,
	}, nil
}

var _ rbac.PrincipalSource = (*Service)(nil)
