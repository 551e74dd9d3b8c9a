package authn_session

import (
	"context"

	"github.com/cayopay/cayopay-identity/pkg/authenticator"
	"github.com/cayopay/cayopay-identity/pkg/model"
	"github.com/cayopay/cayopay-identity/pkg/store"
)

// Name is the registry name of the session authenticator.
const Name = "session"

// Resolver maps a session token to its session and principal.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*model.Session, *model.User, error)
}

// Authenticator accepts session tokens issued at login.
type Authenticator struct {
	sessions Resolver
	health   store.HealthStore
}

// New creates a session authenticator. health may be nil.
func New(sessions Resolver, health store.HealthStore) *Authenticator {
	return &Authenticator{sessions: sessions, health: health}
}

// Name returns the authenticator name
func (a *Authenticator) Name() string {
	return Name
}

// Authenticate resolves input.Token. Unknown and expired tokens fail with
// errs.ErrUnauthenticated.
func (a *Authenticator) Authenticate(ctx context.Context, input authenticator.Input) (*authenticator.Result, error) {
	if input.Token == "" {
		return nil, authenticator.ErrNoCredentials
	}
	session, user, err := a.sessions.Resolve(ctx, input.Token)
	if err != nil {
		return nil, err
	}
	return &authenticator.Result{User: user, Session: session}, nil
}

// Status checks if the authenticator is healthy
func (a *Authenticator) Status(ctx context.Context) error {
	if a.health == nil {
		return nil
	}
	return a.health.Ping(ctx)
}
