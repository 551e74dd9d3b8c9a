// Package store defines the persistence interfaces used by the identity core.
//
// Each entity has its own store. Implementations translate unique constraint
// violations into the matching errs kind (ErrAlreadyExists for users,
// ErrAlreadyInvited for invites, ErrDuplicateToken for session tokens) and
// wrap every other failure with errs.ErrStorage. Lookups that find nothing
// return errs.ErrNotFound.
//
// Registration spans several stores; Transactor runs a function against a Tx
// whose stores share one database transaction.
//
// The gorm subpackage provides the implementations.
package store
