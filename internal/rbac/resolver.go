package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/prontivus/prontivus/internal/shared"
)

// ErrUnresolvedRole indicates a principal with neither a valid direct role
// reference nor a mappable legacy tag. Resolution never falls back to a
// default role.
var ErrUnresolvedRole = fmt.Errorf("rbac: unresolved role: %w", shared.ErrUnauthenticated)

// RoleDirectory looks up canonical role identities in the role store.
type RoleDirectory interface {
	RoleByID(ctx context.Context, id int64) (RoleRef, error)
	RoleByName(ctx context.Context, name string) (RoleRef, error)
}

// Resolver determines the effective role for a principal. It prefers the
// direct role reference and falls back to the legacy tag mapping; everything
// downstream sees only the canonical RoleRef.
type Resolver struct {
	directory RoleDirectory
}

// NewResolver constructs a Resolver over the given role directory.
func NewResolver(directory RoleDirectory) *Resolver {
	return &Resolver{directory: directory}
}

// ResolveRole returns the canonical role for the principal. A dangling
// direct reference falls through to the legacy mapping rather than failing
// outright; only when neither representation yields an existing role does it
// return ErrUnresolvedRole.
func (r *Resolver) ResolveRole(ctx context.Context, principal Principal) (RoleRef, error) {
	if principal.RoleID != nil {
		ref, err := r.directory.RoleByID(ctx, *principal.RoleID)
		if err == nil {
			return ref, nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return RoleRef{}, err
		}
	}

	name, ok := legacyRoleNames[principal.LegacyRole]
	if !ok {
		return RoleRef{}, ErrUnresolvedRole
	}
	ref, err := r.directory.RoleByName(ctx, name)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return RoleRef{}, ErrUnresolvedRole
		}
		return RoleRef{}, err
	}
	return ref, nil
}
