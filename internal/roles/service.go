package roles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prontivus/prontivus/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	GetRoleByName(ctx context.Context, name string) (Role, error)
	CreateRole(ctx context.Context, name, description string, isSystem bool) (Role, error)
	UpdateRole(ctx context.Context, id int64, name, description string) (Role, error)
	DeleteRole(ctx context.Context, id int64) error
}

// Invalidator drops cached authorization state for the given roles after a
// successful mutation. The authorization cache implements it.
type Invalidator interface {
	InvalidateRoles(ctx context.Context, roleIDs ...int64) error
}

// Service handles role business logic.
type Service struct {
	repo        RepositoryPort
	invalidator Invalidator
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, invalidator Invalidator) *Service {
	return &Service{repo: repo, invalidator: invalidator}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// GetRoleByName fetches a role by name.
func (s *Service) GetRoleByName(ctx context.Context, name string) (Role, error) {
	return s.repo.GetRoleByName(ctx, name)
}

// CreateRole inserts a new custom role.
func (s *Service) CreateRole(ctx context.Context, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("roles: role name required")
	}
	return s.repo.CreateRole(ctx, name, strings.TrimSpace(description), false)
}

// UpdateRole updates an existing role and invalidates its cached
// authorization.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("roles: role name required")
	}
	role, err := s.repo.UpdateRole(ctx, id, name, strings.TrimSpace(description))
	if err != nil {
		return Role{}, err
	}
	if err := s.invalidate(ctx, role.ID); err != nil {
		return Role{}, err
	}
	return role, nil
}

// DeleteRole removes a role. Seeded system roles are protected.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return fmt.Errorf("roles: %q: %w", role.Name, shared.ErrSystemRole)
	}
	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return err
	}
	return s.invalidate(ctx, id)
}

func (s *Service) invalidate(ctx context.Context, roleIDs ...int64) error {
	if s.invalidator == nil {
		return nil
	}
	return s.invalidator.InvalidateRoles(ctx, roleIDs...)
}
