// Package model defines the database models for the identity service.
//
// # Core Models
//
//   - Actor: identity anchor, one per principal
//   - User: login-capable principal with an argon2id password hash and a role
//   - Session: bearer session, stored by token hash
//   - Invite: onboarding offer, stored by token hash
//   - Wallet: account opened at registration
//
// Identifiers are UUIDv7, assigned in BeforeCreate hooks when unset.
// Plaintext tokens only exist on the transient Token fields of freshly
// created sessions and invites.
package model
