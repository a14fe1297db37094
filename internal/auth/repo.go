package auth

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prontivus/prontivus/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByLogin(ctx context.Context, usernameOrEmail string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	TouchLastLogin(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, username, email, full_name, password_hash, is_active, clinic_id, role_id, legacy_role, extra_permissions, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var user User
	var extra []byte
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FullName, &user.PasswordHash,
		&user.IsActive, &user.ClinicID, &user.RoleID, &user.LegacyRole, &extra,
		&user.CreatedAt, &user.UpdatedAt)
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

// FindByLogin fetches a user by username or email.
func (r *PGRepository) FindByLogin(ctx context.Context, usernameOrEmail string) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1 OR email = $1`, usernameOrEmail))
}

// FindByID fetches a user by ID.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// TouchLastLogin records the login timestamp.
func (r *PGRepository) TouchLastLogin(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at = now() WHERE id = $1`, id)
	return err
}

var _ Repository = (*PGRepository)(nil)
