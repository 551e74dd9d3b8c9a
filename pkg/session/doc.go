// Package session issues and validates bearer sessions.
//
// A session is active strictly before its expiry. Expiry is discovered on
// access: the first Validate that sees an expired session deletes it. Tokens
// are only ever stored as hashes; the plaintext is handed back once, on the
// issued Session.
package session
