package shared

// Core platform permissions.
const (
	PermUsersView = "users.view"
	PermUsersEdit = "users.edit"

	PermRolesView = "roles.view"
	PermRolesEdit = "roles.edit"

	PermMenuView = "menu.view"
	PermMenuEdit = "menu.edit"
)

// Clinical and operational permissions referenced by menu items.
const (
	PermPatientsView = "patients.view"
	PermPatientsEdit = "patients.edit"

	PermAppointmentsView = "appointments.view"
	PermAppointmentsEdit = "appointments.edit"

	PermRecordsView = "records.view"
	PermRecordsEdit = "records.edit"

	PermBillingView = "billing.view"
	PermBillingEdit = "billing.edit"

	PermStockView = "stock.view"
	PermStockEdit = "stock.edit"

	PermReportsView = "reports.view"
)

// CoreScopes lists all permissions related to the admin platform.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersEdit,
		PermRolesView,
		PermRolesEdit,
		PermMenuView,
		PermMenuEdit,
	}
}
