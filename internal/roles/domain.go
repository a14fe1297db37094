package roles

import "time"

// Role represents a named authorization class principals belong to.
type Role struct {
	ID          int64
	Name        string
	Description string
	IsSystem    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// System role names seeded at install time. System roles cannot be deleted.
const (
	RoleSuperAdmin  = "SuperAdmin"
	RoleAdminClinic = "AdminClinica"
	RoleDoctor      = "Medico"
	RoleSecretary   = "Secretaria"
	RolePatient     = "Paciente"
)

// SystemRoleNames lists the seeded system roles.
func SystemRoleNames() []string {
	return []string{RoleSuperAdmin, RoleAdminClinic, RoleDoctor, RoleSecretary, RolePatient}
}
