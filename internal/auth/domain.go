package auth

import (
	"time"

	"github.com/prontivus/prontivus/internal/rbac"
)

// User represents an authenticated user account. RoleID references the
// database-defined role; LegacyRole carries the fixed enum tag kept for
// accounts created before the role table existed.
type User struct {
	ID               int64
	Username         string
	Email            string
	FullName         string
	PasswordHash     string
	IsActive         bool
	ClinicID         int64
	RoleID           *int64
	LegacyRole       string
	ExtraPermissions []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Principal projects the user into the authorization engine's input form.
func (u *User) Principal() rbac.Principal {
	return rbac.Principal{
		UserID:           u.ID,
		RoleID:           u.RoleID,
		LegacyRole:       u.LegacyRole,
		ExtraPermissions: u.ExtraPermissions,
	}
}
