// Package identity carries the authenticated principal of a request.
//
// The authentication middleware stores an Identity in the request context;
// handlers retrieve it and turn it into an authorization gate:
//
//	id, ok := identity.Get(r.Context())
//	gate := id.Gate(roles)
//	if err := gate.Require(role.InviteUsers); err != nil {
//	    ...
//	}
//
// An Identity built from a session token also carries the session, so that
// logout can revoke exactly that session.
package identity
