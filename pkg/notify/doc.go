// Package notify delivers invitation messages.
//
// A Gateway sends one invitation and reports whether it was handed off.
// Gateways never retry; the invitation manager decides what a failure means.
// Drivers: smtp (go-mail), webhook (JSON POST signed with an HS256 bearer
// token) and writer (prints the rendered message, for development).
package notify
