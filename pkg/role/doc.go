// Package role holds the fixed role and permission tables.
//
// A principal's permissions are fully determined by its role. The table is
// data, not logic: see Default for the built-in hierarchy
// (owner ⊇ admin ⊇ undefined).
//
//	if role.Default.HasPermission(user.Role, role.InviteUsers) {
//	    // ...
//	}
package role
