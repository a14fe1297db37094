package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Catalog exposes the menu catalog reads the engine needs: the assembled
// navigation tree for a role, and the raw required-permission lists of the
// active items assigned to a role.
type Catalog interface {
	MenuForRole(ctx context.Context, roleID int64) ([]GroupView, error)
	RequiredPermissions(ctx context.Context, roleID int64) ([][]string, error)
}

// CacheMetrics records authorization cache effectiveness. Implementations
// must be safe for concurrent use; a nil value disables recording.
type CacheMetrics interface {
	AuthzCacheHit()
	AuthzCacheMiss()
}

// Service computes and caches resolved authorizations per role. It is the
// only process-wide mutable state in the authorization core.
type Service struct {
	resolver  *Resolver
	directory RoleDirectory
	catalog   Catalog
	store     Store
	logger    *slog.Logger
	metrics   CacheMetrics

	group singleflight.Group

	// genMu guards gens. A role's generation moves forward on every
	// invalidation; a compute that started under an older generation must
	// not write its result back to the store.
	genMu sync.Mutex
	gens  map[int64]uint64
}

// NewService constructs the authorization engine.
func NewService(directory RoleDirectory, catalog Catalog, store Store, logger *slog.Logger, metrics CacheMetrics) *Service {
	return &Service{
		resolver:  NewResolver(directory),
		directory: directory,
		catalog:   catalog,
		store:     store,
		logger:    logger,
		metrics:   metrics,
		gens:      make(map[int64]uint64),
	}
}

// SetCatalog installs the menu catalog after construction. The catalog and
// the engine reference each other, so one side has to be wired late.
func (s *Service) SetCatalog(catalog Catalog) {
	s.catalog = catalog
}

// ResolveRole determines the canonical role for a principal.
func (s *Service) ResolveRole(ctx context.Context, principal Principal) (RoleRef, error) {
	return s.resolver.ResolveRole(ctx, principal)
}

// PermissionsForRole unions the required-permission lists of every active
// menu item assigned to the role. Items without permission requirements
// contribute nothing; a role with zero assignments yields an empty set.
func (s *Service) PermissionsForRole(ctx context.Context, roleID int64) (PermissionSet, error) {
	grants, err := s.catalog.RequiredPermissions(ctx, roleID)
	if err != nil {
		return nil, err
	}
	set := make(PermissionSet)
	for _, grant := range grants {
		for _, perm := range grant {
			if perm != "" {
				set[perm] = struct{}{}
			}
		}
	}
	return set, nil
}

// MenuForRole assembles the ordered navigation tree for a role.
func (s *Service) MenuForRole(ctx context.Context, roleID int64) ([]GroupView, error) {
	return s.catalog.MenuForRole(ctx, roleID)
}

// Resolve returns the cached authorization bundle for a role, computing and
// storing it on miss or expiry. Concurrent misses for the same role coalesce
// to a single compute; a failed compute is propagated and never cached, so a
// previous entry (if any) stays usable after its next recompute attempt.
func (s *Service) Resolve(ctx context.Context, roleID int64) (*ResolvedAuthorization, error) {
	auth, ok, err := s.store.Get(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("rbac: cache read: %w", err)
	}
	if ok {
		if s.metrics != nil {
			s.metrics.AuthzCacheHit()
		}
		return auth, nil
	}
	if s.metrics != nil {
		s.metrics.AuthzCacheMiss()
	}

	value, err, _ := s.group.Do(strconv.FormatInt(roleID, 10), func() (any, error) {
		gen := s.generation(roleID)
		computed, err := s.compute(ctx, roleID)
		if err != nil {
			return nil, err
		}
		if s.generation(roleID) != gen {
			// An invalidation landed while this compute ran, so the result
			// may predate the mutation. Serve it to the coalesced callers
			// but keep it out of the store; the next miss recomputes.
			return computed, nil
		}
		if err := s.store.Set(ctx, roleID, computed); err != nil {
			// Compute succeeded; serve the result even when the store write
			// fails, the next miss recomputes.
			s.logger.Warn("authz cache write failed", slog.Int64("role_id", roleID), slog.Any("error", err))
		}
		return computed, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*ResolvedAuthorization), nil
}

// compute builds a fresh authorization bundle. Permission aggregation and
// menu assembly run concurrently; both must succeed or the whole compute
// fails without poisoning the cache.
func (s *Service) compute(ctx context.Context, roleID int64) (*ResolvedAuthorization, error) {
	role, err := s.directory.RoleByID(ctx, roleID)
	if err != nil {
		return nil, err
	}

	var (
		perms PermissionSet
		menu  []GroupView
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		perms, err = s.PermissionsForRole(gctx, roleID)
		return err
	})
	g.Go(func() error {
		var err error
		menu, err = s.MenuForRole(gctx, roleID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &ResolvedAuthorization{
		RoleID:      role.ID,
		RoleName:    role.Name,
		Permissions: perms,
		Menu:        menu,
	}, nil
}

// ResolveForPrincipal resolves the principal's role, fetches the cached
// bundle, and applies the principal's ad-hoc permission overlay. The overlay
// is applied on a copy so the per-role cache entry stays untouched.
func (s *Service) ResolveForPrincipal(ctx context.Context, principal Principal) (*ResolvedAuthorization, error) {
	role, err := s.ResolveRole(ctx, principal)
	if err != nil {
		return nil, err
	}
	auth, err := s.Resolve(ctx, role.ID)
	if err != nil {
		return nil, err
	}
	if len(principal.ExtraPermissions) == 0 {
		return auth, nil
	}
	overlaid := *auth
	overlaid.Permissions = auth.Permissions.Union(principal.ExtraPermissions...)
	return &overlaid, nil
}

// InvalidateRoles synchronously drops the cache entries for the given roles.
// Administrative mutations call this before responding so subsequent reads
// by the same caller observe the change. Computes already in flight are cut
// loose from the singleflight group and barred from writing back, so a
// pre-mutation bundle can never re-enter the store after this returns.
func (s *Service) InvalidateRoles(ctx context.Context, roleIDs ...int64) error {
	if len(roleIDs) == 0 {
		return nil
	}
	for _, roleID := range roleIDs {
		s.bumpGeneration(roleID)
		s.group.Forget(strconv.FormatInt(roleID, 10))
	}
	if err := s.store.Delete(ctx, roleIDs...); err != nil {
		return fmt.Errorf("rbac: invalidate: %w", err)
	}
	return nil
}

func (s *Service) generation(roleID int64) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gens[roleID]
}

func (s *Service) bumpGeneration(roleID int64) {
	s.genMu.Lock()
	s.gens[roleID]++
	s.genMu.Unlock()
}
