// Package directory creates and looks up principals.
//
// Registration is the only way a principal comes into existence. It creates
// the identity anchor, the user and the opening account in one transaction;
// callers can add more work to that transaction with Within (invitation
// acceptance deletes its invite this way). Authenticate answers unknown
// addresses and wrong secrets with the same error after comparable work.
package directory
