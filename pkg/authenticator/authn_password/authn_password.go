package authn_password

import (
	"context"

	"github.com/cayopay/cayopay-identity/pkg/authenticator"
	"github.com/cayopay/cayopay-identity/pkg/credential"
	"github.com/cayopay/cayopay-identity/pkg/model"
)

// Name is the registry name of the password authenticator.
const Name = "password"

// Directory checks an address and secret.
type Directory interface {
	Authenticate(ctx context.Context, email string, secret credential.Secret) (*model.User, error)
}

// Authenticator accepts an address and secret on every request, without a
// session. It serves scripted clients using HTTP Basic authentication.
type Authenticator struct {
	dir Directory
}

// New creates a password authenticator
func New(dir Directory) *Authenticator {
	return &Authenticator{dir: dir}
}

// Name returns the authenticator name
func (a *Authenticator) Name() string {
	return Name
}

// Authenticate checks input.Login and input.Secret. A wrong secret and an
// unknown login both fail with errs.ErrInvalidCredentials.
func (a *Authenticator) Authenticate(ctx context.Context, input authenticator.Input) (*authenticator.Result, error) {
	if input.Login == "" {
		return nil, authenticator.ErrNoCredentials
	}
	user, err := a.dir.Authenticate(ctx, input.Login, input.Secret)
	if err != nil {
		return nil, err
	}
	return &authenticator.Result{User: user}, nil
}

// Status checks if the authenticator is healthy
func (a *Authenticator) Status(context.Context) error {
	return nil
}
