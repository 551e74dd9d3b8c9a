// Package authenticator defines how requests prove who they are.
//
// An Authenticator turns the credentials carried by a request into a
// principal. It does not decide what the principal may do; that is the job
// of authz.Gate.
//
// # Built-in Authenticators
//
//   - session: a token issued at login, sent as a cookie or bearer token.
//     See [github.com/cayopay/cayopay-identity/pkg/authenticator/authn_session]
//   - password: HTTP Basic credentials checked on every request.
//     See [github.com/cayopay/cayopay-identity/pkg/authenticator/authn_password]
//
// # Configuration
//
// Enabled authenticators are configured via CAYOPAY_AUTHENTICATORS as a
// comma-separated list. Only session is enabled by default:
//
//	CAYOPAY_AUTHENTICATORS=session,password
package authenticator
