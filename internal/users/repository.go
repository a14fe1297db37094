package users

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prontivus/prontivus/internal/shared"
)

// Repository implements user administration queries over PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, username, email, full_name, is_active, clinic_id, role_id, legacy_role, extra_permissions, last_login_at, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var user User
	var extra []byte
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.IsActive,
		&user.ClinicID, &user.RoleID, &user.LegacyRole, &extra,
		&user.LastLoginAt, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &user.ExtraPermissions); err != nil {
			return nil, err
		}
	}
	return &user, nil
}

// ListUsers returns a page of a clinic's users ordered by username.
func (r *Repository) ListUsers(ctx context.Context, clinicID int64, page, perPage int) ([]User, shared.Pagination, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE clinic_id = $1`, clinicID).Scan(&total); err != nil {
		return nil, shared.Pagination{}, err
	}
	meta := shared.NewPagination(page, perPage, total)

	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE clinic_id = $1 ORDER BY username LIMIT $2 OFFSET $3`,
		clinicID, meta.PerPage, (meta.Page-1)*meta.PerPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	defer rows.Close()

	var list []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, shared.Pagination{}, err
		}
		list = append(list, *user)
	}
	return list, meta, rows.Err()
}

// GetUser fetches a single user by ID.
func (r *Repository) GetUser(ctx context.Context, id int64) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// AssignRole sets the user's role. The legacy tag is cleared so the
// resolver never falls back to a stale mapping afterwards.
func (r *Repository) AssignRole(ctx context.Context, userID, roleID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET role_id = $2, legacy_role = '', updated_at = now() WHERE id = $1`, userID, roleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateExtraPermissions replaces the user's per-user permission overlay.
func (r *Repository) UpdateExtraPermissions(ctx context.Context, userID int64, permissions []string) error {
	if permissions == nil {
		permissions = []string{}
	}
	payload, err := json.Marshal(permissions)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET extra_permissions = $2, updated_at = now() WHERE id = $1`, userID, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
