package menu

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/prontivus/prontivus/internal/rbac"
)

// RepositoryPort defines data access methods for the menu catalog.
type RepositoryPort interface {
	ListGroups(ctx context.Context) ([]Group, error)
	ListActiveGroups(ctx context.Context) ([]Group, error)
	GetGroup(ctx context.Context, id int64) (Group, error)
	CreateGroup(ctx context.Context, g Group) (Group, error)
	UpdateGroup(ctx context.Context, g Group) (Group, error)
	DeleteGroup(ctx context.Context, id int64) error
	GetItem(ctx context.Context, id int64) (Item, error)
	CreateItem(ctx context.Context, item Item) (Item, error)
	UpdateItem(ctx context.Context, item Item) (Item, error)
	DeleteItem(ctx context.Context, id int64) error
	ListAssignedItems(ctx context.Context, roleID int64) ([]AssignedRow, error)
	Assign(ctx context.Context, roleID, itemID int64) error
	Revoke(ctx context.Context, roleID, itemID int64) error
	RoleIDsForItem(ctx context.Context, itemID int64) ([]int64, error)
	RoleIDsForGroup(ctx context.Context, groupID int64) ([]int64, error)
}

// Invalidator drops cached authorization state for the given roles after a
// successful mutation.
type Invalidator interface {
	InvalidateRoles(ctx context.Context, roleIDs ...int64) error
}

// Config tunes menu assembly.
type Config struct {
	// KeepEmptyGroups includes groups with zero visible items in the
	// assembled tree as empty sections. Default drops them.
	KeepEmptyGroups bool
}

// Service assembles navigation trees and owns catalog administration.
type Service struct {
	repo        RepositoryPort
	invalidator Invalidator
	logger      *slog.Logger
	cfg         Config
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, invalidator Invalidator, logger *slog.Logger, cfg Config) *Service {
	return &Service{repo: repo, invalidator: invalidator, logger: logger, cfg: cfg}
}

// MenuForRole assembles the ordered group/item tree for a role. Only active
// groups and active assigned items appear. Ordering is enforced here, not
// delegated to the repository: groups by order_index then ID, items within
// a group by order_index then ID.
func (s *Service) MenuForRole(ctx context.Context, roleID int64) ([]rbac.GroupView, error) {
	groups, err := s.repo.ListActiveGroups(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.assignedActiveItems(ctx, roleID)
	if err != nil {
		return nil, err
	}

	byGroup := make(map[int64][]rbac.ItemView, len(groups))
	for _, item := range items {
		byGroup[item.GroupID] = append(byGroup[item.GroupID], rbac.ItemView{
			ID:          item.ID,
			Name:        item.Name,
			Route:       item.Route,
			Icon:        item.Icon,
			OrderIndex:  item.OrderIndex,
			Description: item.Description,
			Badge:       item.Badge,
			IsExternal:  item.IsExternal,
		})
	}

	for _, items := range byGroup {
		sort.Slice(items, func(i, j int) bool {
			if items[i].OrderIndex != items[j].OrderIndex {
				return items[i].OrderIndex < items[j].OrderIndex
			}
			return items[i].ID < items[j].ID
		})
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].OrderIndex != groups[j].OrderIndex {
			return groups[i].OrderIndex < groups[j].OrderIndex
		}
		return groups[i].ID < groups[j].ID
	})

	views := make([]rbac.GroupView, 0, len(groups))
	for _, g := range groups {
		groupItems := byGroup[g.ID]
		if len(groupItems) == 0 && !s.cfg.KeepEmptyGroups {
			continue
		}
		if groupItems == nil {
			groupItems = []rbac.ItemView{}
		}
		views = append(views, rbac.GroupView{
			ID:          g.ID,
			Name:        g.Name,
			Description: g.Description,
			OrderIndex:  g.OrderIndex,
			Icon:        g.Icon,
			Items:       groupItems,
		})
	}
	return views, nil
}

// RequiredPermissions returns the required-permission list of every active
// item assigned to the role, one list per item.
func (s *Service) RequiredPermissions(ctx context.Context, roleID int64) ([][]string, error) {
	items, err := s.assignedActiveItems(ctx, roleID)
	if err != nil {
		return nil, err
	}
	grants := make([][]string, 0, len(items))
	for _, item := range items {
		grants = append(grants, item.RequiredPermissions)
	}
	return grants, nil
}

// assignedActiveItems loads the role's assignments, dropping inactive items
// and logging dangling assignments as integrity warnings. A dangling
// assignment grants nothing.
func (s *Service) assignedActiveItems(ctx context.Context, roleID int64) ([]Item, error) {
	rows, err := s.repo.ListAssignedItems(ctx, roleID)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		if row.Item == nil {
			s.logger.Warn("dangling role-menu assignment",
				slog.Int64("role_id", roleID),
				slog.Int64("menu_item_id", row.ItemID))
			continue
		}
		if !row.Item.IsActive {
			continue
		}
		items = append(items, *row.Item)
	}
	return items, nil
}

// ListGroups returns the full catalog for administration.
func (s *Service) ListGroups(ctx context.Context) ([]Group, error) {
	return s.repo.ListGroups(ctx)
}

// GetItem fetches one item for administration.
func (s *Service) GetItem(ctx context.Context, id int64) (Item, error) {
	return s.repo.GetItem(ctx, id)
}

// CreateGroup inserts a new group. No invalidation needed: a new group has
// no items yet, so no role's view changes.
func (s *Service) CreateGroup(ctx context.Context, g Group) (Group, error) {
	if strings.TrimSpace(g.Name) == "" {
		return Group{}, errors.New("menu: group name required")
	}
	return s.repo.CreateGroup(ctx, g)
}

// UpdateGroup updates a group and invalidates every role holding items in
// it.
func (s *Service) UpdateGroup(ctx context.Context, g Group) (Group, error) {
	if strings.TrimSpace(g.Name) == "" {
		return Group{}, errors.New("menu: group name required")
	}
	updated, err := s.repo.UpdateGroup(ctx, g)
	if err != nil {
		return Group{}, err
	}
	if err := s.invalidateGroup(ctx, g.ID); err != nil {
		return Group{}, err
	}
	return updated, nil
}

// DeleteGroup removes a group, its items, and their assignments.
func (s *Service) DeleteGroup(ctx context.Context, id int64) error {
	roleIDs, err := s.repo.RoleIDsForGroup(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteGroup(ctx, id); err != nil {
		return err
	}
	return s.invalidate(ctx, roleIDs...)
}

// CreateItem inserts a new item. The item starts unassigned, so no cached
// role view changes.
func (s *Service) CreateItem(ctx context.Context, item Item) (Item, error) {
	if err := validateItem(item); err != nil {
		return Item{}, err
	}
	return s.repo.CreateItem(ctx, item)
}

// UpdateItem updates an item and invalidates every role currently assigned
// to it.
func (s *Service) UpdateItem(ctx context.Context, item Item) (Item, error) {
	if err := validateItem(item); err != nil {
		return Item{}, err
	}
	updated, err := s.repo.UpdateItem(ctx, item)
	if err != nil {
		return Item{}, err
	}
	roleIDs, err := s.repo.RoleIDsForItem(ctx, item.ID)
	if err != nil {
		return Item{}, err
	}
	if err := s.invalidate(ctx, roleIDs...); err != nil {
		return Item{}, err
	}
	return updated, nil
}

// DeleteItem removes an item, fanning invalidation out to every role that
// was assigned it.
func (s *Service) DeleteItem(ctx context.Context, id int64) error {
	roleIDs, err := s.repo.RoleIDsForItem(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteItem(ctx, id); err != nil {
		return err
	}
	return s.invalidate(ctx, roleIDs...)
}

// AssignItem grants a role access to an item. Duplicate grants are
// idempotent.
func (s *Service) AssignItem(ctx context.Context, roleID, itemID int64) error {
	if err := s.repo.Assign(ctx, roleID, itemID); err != nil {
		return err
	}
	return s.invalidate(ctx, roleID)
}

// RevokeItem removes a role's access to an item.
func (s *Service) RevokeItem(ctx context.Context, roleID, itemID int64) error {
	if err := s.repo.Revoke(ctx, roleID, itemID); err != nil {
		return err
	}
	return s.invalidate(ctx, roleID)
}

func (s *Service) invalidateGroup(ctx context.Context, groupID int64) error {
	roleIDs, err := s.repo.RoleIDsForGroup(ctx, groupID)
	if err != nil {
		return err
	}
	return s.invalidate(ctx, roleIDs...)
}

func (s *Service) invalidate(ctx context.Context, roleIDs ...int64) error {
	if s.invalidator == nil || len(roleIDs) == 0 {
		return nil
	}
	return s.invalidator.InvalidateRoles(ctx, roleIDs...)
}

func validateItem(item Item) error {
	if strings.TrimSpace(item.Name) == "" {
		return errors.New("menu: item name required")
	}
	if strings.TrimSpace(item.Route) == "" {
		return errors.New("menu: item route required")
	}
	return nil
}

var _ rbac.Catalog = (*Service)(nil)
