// Package invitation onboards principals through single-use invitation
// tokens.
//
// At most one active invitation exists per address. An invitation that has
// expired, or that was declined or revoked, is replaced by the next Invite to
// the same address. Accepting registers the principal through the directory
// and removes the invitation in the same transaction, so a token can create
// at most one principal.
package invitation
