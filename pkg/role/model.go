package role

// Grant is one row of the role table.
type Grant struct {
	Permissions []Permission
	Assignable  []Role
}

// Model maps roles to their permissions and to the roles they may assign.
// It is immutable after construction.
type Model struct {
	grants map[Role]Grant
}

// NewModel builds a Model from a table. Roles missing from the table hold no
// permissions and can assign nothing.
func NewModel(table map[Role]Grant) *Model {
	grants := make(map[Role]Grant, len(table))
	for r, g := range table {
		grants[r] = Grant{
			Permissions: append([]Permission(nil), g.Permissions...),
			Assignable:  append([]Role(nil), g.Assignable...),
		}
	}
	return &Model{grants: grants}
}

// Default is the built-in role table.
//
// Owner holds every permission and may assign owner and admin. Admin may
// invite and view but not configure, and may only assign admin. Undefined is
// listed explicitly with nothing: it cannot assign any role, itself included.
var Default = NewModel(map[Role]Grant{
	Owner: {
		Permissions: []Permission{ConfigureSettings, InviteUsers, ViewAllActors},
		Assignable:  []Role{Owner, Admin},
	},
	Admin: {
		Permissions: []Permission{InviteUsers, ViewAllActors},
		Assignable:  []Role{Admin},
	},
	Undefined: {},
})

// PermissionsOf returns a copy of the permission set of r.
func (m *Model) PermissionsOf(r Role) []Permission {
	return append([]Permission(nil), m.grants[r].Permissions...)
}

// HasPermission reports whether r carries p.
func (m *Model) HasPermission(r Role, p Permission) bool {
	for _, have := range m.grants[r].Permissions {
		if have == p {
			return true
		}
	}
	return false
}

// CanAssign reports whether a principal holding grantor may grant target.
func (m *Model) CanAssign(grantor, target Role) bool {
	for _, r := range m.grants[grantor].Assignable {
		if r == target {
			return true
		}
	}
	return false
}

// AssignableBy returns a copy of the roles r may grant.
func (m *Model) AssignableBy(r Role) []Role {
	return append([]Role(nil), m.grants[r].Assignable...)
}
