package menu

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prontivus/prontivus/internal/shared"
)

// Repository provides PostgreSQL backed persistence for the menu catalog.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const groupColumns = `id, name, description, order_index, icon, is_active, created_at, updated_at`

const itemColumns = `id, group_id, name, route, icon, order_index, permissions_required, description, badge, is_external, is_active, created_at, updated_at`

func scanGroup(row pgx.Row) (Group, error) {
	var g Group
	err := row.Scan(&g.ID, &g.Name, &g.Description, &g.OrderIndex, &g.Icon, &g.IsActive, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Group{}, shared.ErrNotFound
		}
		return Group{}, err
	}
	return g, nil
}

func scanItemFields(row interface{ Scan(...any) error }) (Item, error) {
	var (
		item  Item
		perms []byte
	)
	err := row.Scan(&item.ID, &item.GroupID, &item.Name, &item.Route, &item.Icon, &item.OrderIndex,
		&perms, &item.Description, &item.Badge, &item.IsExternal, &item.IsActive,
		&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, shared.ErrNotFound
		}
		return Item{}, err
	}
	if len(perms) > 0 {
		if err := json.Unmarshal(perms, &item.RequiredPermissions); err != nil {
			return Item{}, err
		}
	}
	return item, nil
}

// ListGroups returns every menu group ordered by display order, including
// inactive ones, for administrative listings.
func (r *Repository) ListGroups(ctx context.Context) ([]Group, error) {
	return r.queryGroups(ctx, `SELECT `+groupColumns+` FROM menu_groups ORDER BY order_index, id`)
}

// ListActiveGroups returns active groups ordered by display order.
func (r *Repository) ListActiveGroups(ctx context.Context) ([]Group, error) {
	return r.queryGroups(ctx, `SELECT `+groupColumns+` FROM menu_groups WHERE is_active ORDER BY order_index, id`)
}

func (r *Repository) queryGroups(ctx context.Context, sql string, args ...any) ([]Group, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var groups []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.OrderIndex, &g.Icon, &g.IsActive, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// GetGroup fetches a group by ID.
func (r *Repository) GetGroup(ctx context.Context, id int64) (Group, error) {
	return scanGroup(r.pool.QueryRow(ctx, `SELECT `+groupColumns+` FROM menu_groups WHERE id = $1`, id))
}

// CreateGroup inserts a new menu group.
func (r *Repository) CreateGroup(ctx context.Context, g Group) (Group, error) {
	return scanGroup(r.pool.QueryRow(ctx,
		`INSERT INTO menu_groups (name, description, order_index, icon, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now(), now())
		 RETURNING `+groupColumns,
		g.Name, g.Description, g.OrderIndex, g.Icon, g.IsActive))
}

// UpdateGroup updates an existing menu group.
func (r *Repository) UpdateGroup(ctx context.Context, g Group) (Group, error) {
	return scanGroup(r.pool.QueryRow(ctx,
		`UPDATE menu_groups
		 SET name = $2, description = $3, order_index = $4, icon = $5, is_active = $6, updated_at = now()
		 WHERE id = $1
		 RETURNING `+groupColumns,
		g.ID, g.Name, g.Description, g.OrderIndex, g.Icon, g.IsActive))
}

// DeleteGroup removes a menu group and, via cascade, its items and their
// assignments.
func (r *Repository) DeleteGroup(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM menu_groups WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GetItem fetches a menu item by ID.
func (r *Repository) GetItem(ctx context.Context, id int64) (Item, error) {
	return scanItemFields(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM menu_items WHERE id = $1`, id))
}

// CreateItem inserts a new menu item.
func (r *Repository) CreateItem(ctx context.Context, item Item) (Item, error) {
	perms, err := marshalPermissions(item.RequiredPermissions)
	if err != nil {
		return Item{}, err
	}
	created, err := scanItemFields(r.pool.QueryRow(ctx,
		`INSERT INTO menu_items (group_id, name, route, icon, order_index, permissions_required, description, badge, is_external, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		 RETURNING `+itemColumns,
		item.GroupID, item.Name, item.Route, item.Icon, item.OrderIndex, perms,
		item.Description, item.Badge, item.IsExternal, item.IsActive))
	if err != nil {
		if isForeignKeyViolation(err) {
			return Item{}, shared.ErrNotFound
		}
		return Item{}, err
	}
	return created, nil
}

// UpdateItem updates an existing menu item.
func (r *Repository) UpdateItem(ctx context.Context, item Item) (Item, error) {
	perms, err := marshalPermissions(item.RequiredPermissions)
	if err != nil {
		return Item{}, err
	}
	return scanItemFields(r.pool.QueryRow(ctx,
		`UPDATE menu_items
		 SET group_id = $2, name = $3, route = $4, icon = $5, order_index = $6,
		     permissions_required = $7, description = $8, badge = $9,
		     is_external = $10, is_active = $11, updated_at = now()
		 WHERE id = $1
		 RETURNING `+itemColumns,
		item.ID, item.GroupID, item.Name, item.Route, item.Icon, item.OrderIndex, perms,
		item.Description, item.Badge, item.IsExternal, item.IsActive))
}

// DeleteItem removes a menu item and its assignments.
func (r *Repository) DeleteItem(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AssignedRow is one role-menu assignment joined against the item catalog.
// Item is nil when the assignment references an item that no longer exists.
type AssignedRow struct {
	ItemID int64
	Item   *Item
}

// ListAssignedItems returns the assignments of a role joined with their
// items, ordered for assembly: group display order first, then item display
// order, ties broken by item identity. Dangling assignments surface with a
// nil Item so callers can log the integrity breach.
func (r *Repository) ListAssignedItems(ctx context.Context, roleID int64) ([]AssignedRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.menu_item_id,
		        i.id, i.group_id, i.name, i.route, i.icon, i.order_index,
		        i.permissions_required, i.description, i.badge, i.is_external, i.is_active,
		        i.created_at, i.updated_at
		 FROM role_menu_permissions a
		 LEFT JOIN menu_items i ON i.id = a.menu_item_id
		 WHERE a.role_id = $1
		 ORDER BY i.group_id, i.order_index, i.id`,
		roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AssignedRow
	for rows.Next() {
		var row AssignedRow
		var id, groupID *int64
		var name, route, icon, description, badge *string
		var order *int
		var perms []byte
		var isExternal, isActive *bool
		var createdAt, updatedAt *time.Time
		if err := rows.Scan(&row.ItemID, &id, &groupID, &name, &route, &icon, &order,
			&perms, &description, &badge, &isExternal, &isActive, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if id != nil {
			item := Item{
				ID:          *id,
				GroupID:     *groupID,
				Name:        *name,
				Route:       *route,
				Icon:        *icon,
				OrderIndex:  *order,
				Description: *description,
				Badge:       *badge,
				IsExternal:  *isExternal,
				IsActive:    *isActive,
				CreatedAt:   *createdAt,
				UpdatedAt:   *updatedAt,
			}
			if len(perms) > 0 {
				if err := json.Unmarshal(perms, &item.RequiredPermissions); err != nil {
					return nil, err
				}
			}
			row.Item = &item
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Assign grants a role access to a menu item. Duplicate assignments are
// idempotent no-ops.
func (r *Repository) Assign(ctx context.Context, roleID, itemID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO role_menu_permissions (role_id, menu_item_id)
		 VALUES ($1, $2)
		 ON CONFLICT (role_id, menu_item_id) DO NOTHING`,
		roleID, itemID)
	if err != nil && isForeignKeyViolation(err) {
		return shared.ErrNotFound
	}
	return err
}

// Revoke removes a role's access to a menu item.
func (r *Repository) Revoke(ctx context.Context, roleID, itemID int64) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM role_menu_permissions WHERE role_id = $1 AND menu_item_id = $2`,
		roleID, itemID)
	return err
}

// RoleIDsForItem returns every role currently assigned the item. Used to fan
// out cache invalidation after an item mutation.
func (r *Repository) RoleIDsForItem(ctx context.Context, itemID int64) ([]int64, error) {
	return r.queryRoleIDs(ctx,
		`SELECT role_id FROM role_menu_permissions WHERE menu_item_id = $1`, itemID)
}

// RoleIDsForGroup returns every role assigned at least one item in the
// group.
func (r *Repository) RoleIDsForGroup(ctx context.Context, groupID int64) ([]int64, error) {
	return r.queryRoleIDs(ctx,
		`SELECT DISTINCT a.role_id
		 FROM role_menu_permissions a
		 JOIN menu_items i ON i.id = a.menu_item_id
		 WHERE i.group_id = $1`, groupID)
}

func (r *Repository) queryRoleIDs(ctx context.Context, sql string, args ...any) ([]int64, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func marshalPermissions(perms []string) ([]byte, error) {
	if perms == nil {
		perms = []string{}
	}
	return json.Marshal(perms)
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
