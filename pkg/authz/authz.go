// Package authz gates operations on the permissions of an authenticated principal.
package authz

import (
	"fmt"

	"github.com/cayopay/cayopay-identity/pkg/errs"
	"github.com/cayopay/cayopay-identity/pkg/model"
	"github.com/cayopay/cayopay-identity/pkg/role"
)

// Gate wraps a resolved principal. Privileged operations take a *Gate and
// call it at the point of execution.
type Gate struct {
	principal *model.User
	roles     *role.Model
}

// New returns a gate for principal. A nil model means role.Default.
func New(principal *model.User, roles *role.Model) *Gate {
	if roles == nil {
		roles = role.Default
	}
	return &Gate{principal: principal, roles: roles}
}

// Principal returns the wrapped principal.
func (g *Gate) Principal() *model.User {
	if g == nil {
		return nil
	}
	return g.principal
}

// Role returns the principal's role, or role.Undefined for an empty gate.
func (g *Gate) Role() role.Role {
	if g == nil || g.principal == nil {
		return role.Undefined
	}
	return g.principal.Role
}

// Permissions returns the permission set of the principal's role. An empty
// gate has none.
func (g *Gate) Permissions() []role.Permission {
	if g == nil || g.principal == nil {
		return nil
	}
	return g.roles.PermissionsOf(g.principal.Role)
}

// Has reports whether the principal carries p.
func (g *Gate) Has(p role.Permission) bool {
	if g == nil || g.principal == nil {
		return false
	}
	return g.roles.HasPermission(g.principal.Role, p)
}

// Require fails with errs.ErrForbidden unless the principal carries p.
func (g *Gate) Require(p role.Permission) error {
	if !g.Has(p) {
		return fmt.Errorf("%w: role %s lacks %s", errs.ErrForbidden, g.Role(), p)
	}
	return nil
}

// RequireAny succeeds if the principal carries at least one of perms.
// An empty list never succeeds.
func (g *Gate) RequireAny(perms ...role.Permission) error {
	for _, p := range perms {
		if g.Has(p) {
			return nil
		}
	}
	return fmt.Errorf("%w: role %s lacks any of %v", errs.ErrForbidden, g.Role(), perms)
}

// RequireAll succeeds if the principal carries every one of perms.
// An empty list always succeeds.
func (g *Gate) RequireAll(perms ...role.Permission) error {
	for _, p := range perms {
		if err := g.Require(p); err != nil {
			return err
		}
	}
	return nil
}

// CanAssign fails with errs.ErrForbidden unless the principal's role may grant target.
func (g *Gate) CanAssign(target role.Role) error {
	if g == nil || g.principal == nil || !g.roles.CanAssign(g.principal.Role, target) {
		return fmt.Errorf("%w: role %s cannot assign %s", errs.ErrForbidden, g.Role(), target)
	}
	return nil
}
