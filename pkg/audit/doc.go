// Package audit records security-relevant events.
//
// Events are written as RFC5424 syslog lines and, when an audit database is
// configured, persisted to its messages table. The package defines events
// for authentication, session issue/revoke/expiry, the invitation lifecycle,
// registration and role changes.
//
// # Usage
//
//	auditor := &audit.Auditor{Logger: audit.NewLogger(os.Stdout)}
//	auditor.Record(audit.AuthenticateEvent{User: email, AuthenticatorName: "password", Success: true})
//
// Components take an audit.Recorder; audit.Discard drops events.
package audit
