package users

import "time"

// User is the administrative view of an account. Password material is
// never exposed through this package.
type User struct {
	ID               int64      `json:"id"`
	Username         string     `json:"username"`
	Email            string     `json:"email"`
	FullName         string     `json:"full_name"`
	IsActive         bool       `json:"is_active"`
	ClinicID         int64      `json:"clinic_id"`
	RoleID           *int64     `json:"role_id"`
	LegacyRole       string     `json:"legacy_role,omitempty"`
	ExtraPermissions []string   `json:"extra_permissions,omitempty"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
