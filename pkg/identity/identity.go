package identity

import (
	"context"
	"net"

	"github.com/cayopay/cayopay-identity/pkg/authz"
	"github.com/cayopay/cayopay-identity/pkg/model"
	"github.com/cayopay/cayopay-identity/pkg/role"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// Key is the context key for Identity.
	Key ContextKey = "identity"
)

// Identity represents the authenticated principal of a request.
type Identity struct {
	User *model.User

	// Session is set when the request carried a session token. Token is the
	// plaintext it was resolved from.
	Session *model.Session
	Token   string

	// Authenticator names the authenticator that accepted the request.
	Authenticator string

	// Request context
	RemoteIP  net.IP
	UserAgent string
}

// New creates an Identity for user.
func New(user *model.User, authenticator string) *Identity {
	return &Identity{User: user, Authenticator: authenticator}
}

// WithSession attaches the session and its plaintext token.
func (i *Identity) WithSession(s *model.Session, token string) *Identity {
	i.Session = s
	i.Token = token
	return i
}

// WithRemoteIP sets the remote IP address.
func (i *Identity) WithRemoteIP(ip net.IP) *Identity {
	i.RemoteIP = ip
	return i
}

// WithUserAgent sets the client user agent.
func (i *Identity) WithUserAgent(ua string) *Identity {
	i.UserAgent = ua
	return i
}

// Gate wraps the principal in an authorization gate over roles.
func (i *Identity) Gate(roles *role.Model) *authz.Gate {
	if i == nil {
		return authz.New(nil, roles)
	}
	return authz.New(i.User, roles)
}

// HasSession reports whether the identity came from a session token.
func (i *Identity) HasSession() bool {
	return i != nil && i.Session != nil
}

// Get retrieves Identity from context.
func Get(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(Key).(*Identity)
	return id, ok
}

// Set stores Identity in context.
func Set(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, Key, id)
}
