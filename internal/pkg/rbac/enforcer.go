package rbac

import (
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
)

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

// Enforcer answers "may any of these roles perform this permission".
type Enforcer struct {
	enforcer *casbin.Enforcer
	mu       sync.Mutex
}

// NewEnforcer builds an enforcer whose policy is the given role catalogue.
func NewEnforcer(policies map[user.Role][]user.Permission) (*Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rbac model: %w", err)
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}

	for role, perms := range policies {
		for _, p := range perms {
			if _, err := e.AddPolicy(string(role), p.Resource(), p.Action()); err != nil {
				return nil, fmt.Errorf("failed to add policy %s %s: %w", role, p, err)
			}
		}
	}

	return &Enforcer{enforcer: e}, nil
}

// Can reports whether at least one of roles grants perm.
func (e *Enforcer) Can(roles []user.Role, perm user.Permission) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, role := range roles {
		ok, err := e.enforcer.Enforce(string(role), perm.Resource(), perm.Action())
		if err != nil {
			return false, fmt.Errorf("failed to enforce %s for %s: %w", perm, role, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
