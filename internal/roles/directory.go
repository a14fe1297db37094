package roles

import (
	"context"

	"github.com/prontivus/prontivus/internal/rbac"
)

// Directory adapts the role repository to the canonical role lookups the
// authorization engine needs.
type Directory struct {
	repo RepositoryPort
}

// NewDirectory builds a Directory over the repository.
func NewDirectory(repo RepositoryPort) *Directory {
	return &Directory{repo: repo}
}

// RoleByID looks up a role by its identity.
func (d *Directory) RoleByID(ctx context.Context, id int64) (rbac.RoleRef, error) {
	role, err := d.repo.GetRole(ctx, id)
	if err != nil {
		return rbac.RoleRef{}, err
	}
	return rbac.RoleRef{ID: role.ID, Name: role.Name}, nil
}

// RoleByName looks up a role by its unique name.
func (d *Directory) RoleByName(ctx context.Context, name string) (rbac.RoleRef, error) {
	role, err := d.repo.GetRoleByName(ctx, name)
	if err != nil {
		return rbac.RoleRef{}, err
	}
	return rbac.RoleRef{ID: role.ID, Name: role.Name}, nil
}

var _ rbac.RoleDirectory = (*Directory)(nil)
