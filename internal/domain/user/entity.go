package user

type Role string

const (
	RolePayrollSpecialist Role = "payroll_specialist" // Prepares and submits runs
	RolePayrollManager    Role = "payroll_manager"    // Reviews, locks and unlocks runs
	RoleFinance           Role = "finance"            // Releases payment
	RoleEmployee          Role = "employee"           // Reads own payslips
)

// Actor is the authenticated caller of a payroll operation.
type Actor struct {
	EmployeeID string
	Roles      []Role
}

// HasRole checks if the actor holds role
func (a Actor) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ParseRoles converts raw claim values into roles, dropping unknown entries.
func ParseRoles(raw []string) []Role {
	roles := make([]Role, 0, len(raw))
	for _, r := range raw {
		switch Role(r) {
		case RolePayrollSpecialist, RolePayrollManager, RoleFinance, RoleEmployee:
			roles = append(roles, Role(r))
		}
	}
	return roles
}
