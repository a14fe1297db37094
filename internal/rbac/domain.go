package rbac

import (
	"encoding/json"
	"sort"
)

// RoleRef is the canonical role identity every downstream component operates
// on. The resolver collapses the legacy and the database-defined role
// representations into this single form.
type RoleRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Principal describes the authenticated actor as persisted: an optional
// direct role reference, the legacy fixed-role tag kept for backward
// compatibility, and any ad-hoc permission grants independent of role.
type Principal struct {
	UserID           int64
	RoleID           *int64
	LegacyRole       string
	ExtraPermissions []string
}

// RoleNameSuperAdmin is the most-privileged seeded role. Administrative
// queries over other roles' menus are restricted to it.
const RoleNameSuperAdmin = "SuperAdmin"

// Legacy fixed-role tags predating the user_roles table.
const (
	LegacyAdmin     = "admin"
	LegacySecretary = "secretary"
	LegacyDoctor    = "doctor"
	LegacyPatient   = "patient"
)

// legacyRoleNames maps each legacy tag to the seeded role it stands for.
// The set is closed; unknown tags never resolve.
var legacyRoleNames = map[string]string{
	LegacyAdmin:     "SuperAdmin",
	LegacySecretary: "Secretaria",
	LegacyDoctor:    "Medico",
	LegacyPatient:   "Paciente",
}

// PermissionSet is an order-independent set of permission strings.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from the given permissions, skipping blanks.
func NewPermissionSet(perms ...string) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		if p != "" {
			set[p] = struct{}{}
		}
	}
	return set
}

// Has reports whether the set contains the permission.
func (s PermissionSet) Has(perm string) bool {
	_, ok := s[perm]
	return ok
}

// HasAny reports whether the set contains at least one of the permissions.
func (s PermissionSet) HasAny(perms ...string) bool {
	for _, p := range perms {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// HasAll reports whether the set contains every one of the permissions.
func (s PermissionSet) HasAll(perms ...string) bool {
	for _, p := range perms {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// Union returns a new set containing this set plus the given permissions.
func (s PermissionSet) Union(perms ...string) PermissionSet {
	out := make(PermissionSet, len(s)+len(perms))
	for p := range s {
		out[p] = struct{}{}
	}
	for _, p := range perms {
		if p != "" {
			out[p] = struct{}{}
		}
	}
	return out
}

// Values returns the permissions sorted ascending.
func (s PermissionSet) Values() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted JSON array.
func (s PermissionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

// UnmarshalJSON decodes a JSON array into the set.
func (s *PermissionSet) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*s = NewPermissionSet(values...)
	return nil
}

// ItemView is the flat menu item projection surfaced to clients. Permission
// requirements never leak into the view.
type ItemView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Route       string `json:"route"`
	Icon        string `json:"icon"`
	OrderIndex  int    `json:"order"`
	Description string `json:"description"`
	Badge       string `json:"badge,omitempty"`
	IsExternal  bool   `json:"is_external"`
}

// GroupView is one ordered section of the navigation tree.
type GroupView struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	OrderIndex  int        `json:"order"`
	Icon        string     `json:"icon"`
	Items       []ItemView `json:"items"`
}

// ResolvedAuthorization is the derived, cacheable bundle of a role's
// permission set and menu tree. Values are treated as immutable once stored.
type ResolvedAuthorization struct {
	RoleID      int64         `json:"role_id"`
	RoleName    string        `json:"role_name"`
	Permissions PermissionSet `json:"permissions"`
	Menu        []GroupView   `json:"menu"`
}
