package menu

import "time"

// Group orders the top level of the navigation tree.
type Group struct {
	ID          int64
	Name        string
	Description string
	OrderIndex  int
	Icon        string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Item is a navigation entry belonging to exactly one group. The
// RequiredPermissions list names the fine-grained capabilities a role
// inherits by being assigned this item; an empty list means the item is
// reachable by role membership alone.
type Item struct {
	ID                  int64
	GroupID             int64
	Name                string
	Route               string
	Icon                string
	OrderIndex          int
	RequiredPermissions []string
	Description         string
	Badge               string
	IsExternal          bool
	IsActive            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
