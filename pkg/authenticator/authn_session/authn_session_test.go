package authn_session

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cayopay/cayopay-identity/pkg/authenticator"
	"github.com/cayopay/cayopay-identity/pkg/errs"
	"github.com/cayopay/cayopay-identity/pkg/model"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, token string) (*model.Session, *model.User, error) {
	args := m.Called(ctx, token)
	s, _ := args.Get(0).(*model.Session)
	u, _ := args.Get(1).(*model.User)
	return s, u, args.Error(2)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestAuthenticator_Name(t *testing.T) {
	assert.Equal(t, "session", New(&mockResolver{}, nil).Name())
}

func TestAuthenticator_NoToken(t *testing.T) {
	r := &mockResolver{}
	_, err := New(r, nil).Authenticate(context.Background(), authenticator.Input{Login: "jane@example.com"})
	assert.ErrorIs(t, err, authenticator.ErrNoCredentials)
	r.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestAuthenticator_Authenticate(t *testing.T) {
	user := &model.User{ID: uuid.New()}
	session := &model.Session{ID: uuid.New(), UserID: user.ID}

	r := &mockResolver{}
	r.On("Resolve", mock.Anything, "good").Return(session, user, nil)
	r.On("Resolve", mock.Anything, "stale").Return(nil, nil, errs.ErrUnauthenticated)

	a := New(r, nil)
	res, err := a.Authenticate(context.Background(), authenticator.Input{Token: "good"})
	require.NoError(t, err)
	assert.Same(t, user, res.User)
	assert.Same(t, session, res.Session)

	_, err = a.Authenticate(context.Background(), authenticator.Input{Token: "stale"})
	assert.ErrorIs(t, err, errs.ErrUnauthenticated)
	r.AssertExpectations(t)
}

func TestAuthenticator_Status(t *testing.T) {
	assert.NoError(t, New(&mockResolver{}, nil).Status(context.Background()))

	down := pingFunc(func(context.Context) error { return errors.New("db down") })
	assert.Error(t, New(&mockResolver{}, down).Status(context.Background()))
}
