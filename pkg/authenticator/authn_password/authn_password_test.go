package authn_password

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cayopay/cayopay-identity/pkg/authenticator"
	"github.com/cayopay/cayopay-identity/pkg/credential"
	"github.com/cayopay/cayopay-identity/pkg/errs"
	"github.com/cayopay/cayopay-identity/pkg/model"
)

type fakeDirectory map[string]string

func (d fakeDirectory) Authenticate(_ context.Context, email string, secret credential.Secret) (*model.User, error) {
	if want, ok := d[email]; ok && want == string(secret.Reveal()) {
		return &model.User{ID: uuid.New(), Email: email}, nil
	}
	return nil, errs.ErrInvalidCredentials
}

func TestAuthenticator(t *testing.T) {
	a := New(fakeDirectory{"jane@example.com": "right"})
	assert.Equal(t, "password", a.Name())
	assert.NoError(t, a.Status(context.Background()))

	_, err := a.Authenticate(context.Background(), authenticator.Input{Token: "tok"})
	assert.ErrorIs(t, err, authenticator.ErrNoCredentials)

	res, err := a.Authenticate(context.Background(), authenticator.Input{Login: "jane@example.com", Secret: credential.NewSecret("right")})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", res.User.Email)
	assert.Nil(t, res.Session)

	_, err = a.Authenticate(context.Background(), authenticator.Input{Login: "jane@example.com", Secret: credential.NewSecret("wrong")})
	assert.ErrorIs(t, err, errs.ErrInvalidCredentials)
}
