package rbac

import (
	"testing"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnforcer_Can(t *testing.T) {
	e, err := NewEnforcer(user.RolePermissions)
	require.NoError(t, err)

	tests := []struct {
		name  string
		roles []user.Role
		perm  user.Permission
		want  bool
	}{
		{"specialist creates run", []user.Role{user.RolePayrollSpecialist}, user.PermissionRunCreate, true},
		{"specialist cannot approve review", []user.Role{user.RolePayrollSpecialist}, user.PermissionRunApproveReview, false},
		{"manager approves review", []user.Role{user.RolePayrollManager}, user.PermissionRunApproveReview, true},
		{"manager cannot release payment", []user.Role{user.RolePayrollManager}, user.PermissionRunApproveFinance, false},
		{"finance releases payment", []user.Role{user.RoleFinance}, user.PermissionRunApproveFinance, true},
		{"any granting role is enough", []user.Role{user.RoleEmployee, user.RolePayrollManager}, user.PermissionRunUnlock, true},
		{"employee cannot view runs", []user.Role{user.RoleEmployee}, user.PermissionRunView, false},
		{"no roles", nil, user.PermissionRunView, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Can(tt.roles, tt.perm)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
