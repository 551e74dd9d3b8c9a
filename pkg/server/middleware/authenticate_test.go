package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cayopay/cayopay-identity/pkg/authenticator"
	"github.com/cayopay/cayopay-identity/pkg/errs"
	"github.com/cayopay/cayopay-identity/pkg/identity"
	"github.com/cayopay/cayopay-identity/pkg/logging"
	"github.com/cayopay/cayopay-identity/pkg/model"
	"github.com/cayopay/cayopay-identity/pkg/role"
)

type stubAuthenticator struct {
	name string
	fn   func(authenticator.Input) (*authenticator.Result, error)
	seen []authenticator.Input
}

func (s *stubAuthenticator) Name() string { return s.name }

func (s *stubAuthenticator) Authenticate(_ context.Context, in authenticator.Input) (*authenticator.Result, error) {
	s.seen = append(s.seen, in)
	return s.fn(in)
}

func (s *stubAuthenticator) Status(context.Context) error { return nil }

func newMiddleware(t *testing.T, auth *stubAuthenticator) *Authenticator {
	t.Helper()
	registry := authenticator.NewRegistry()
	registry.Register(auth)
	require.NoError(t, registry.Enable(auth.name))
	return NewAuthenticator(registry, "cayopay_session", logging.Discard())
}

func TestInput(t *testing.T) {
	m := NewAuthenticator(authenticator.NewRegistry(), "cayopay_session", nil)

	t.Run("cookie wins over bearer", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.AddCookie(&http.Cookie{Name: "cayopay_session", Value: "from-cookie"})
		r.Header.Set("Authorization", "Bearer from-header")
		r.Header.Set("User-Agent", "curl/8.0")
		r.RemoteAddr = "192.0.2.10:51234"

		in := m.Input(r)
		assert.Equal(t, "from-cookie", in.Token)
		assert.Equal(t, "192.0.2.10", in.ClientIP)
		assert.Equal(t, "curl/8.0", in.UserAgent)
	})

	t.Run("bearer", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "bearer  abc ")
		assert.Equal(t, "abc", m.Input(r).Token)
	})

	t.Run("basic", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.SetBasicAuth("jane@example.com", "s3cret-pass")
		in := m.Input(r)
		assert.Empty(t, in.Token)
		assert.Equal(t, "jane@example.com", in.Login)
		assert.Equal(t, []byte("s3cret-pass"), in.Secret.Reveal())
	})
}

func TestMiddleware(t *testing.T) {
	user := &model.User{ID: uuid.New(), Email: "jane@example.com", Role: role.Admin}
	sess := &model.Session{ID: uuid.New(), UserID: user.ID}

	t.Run("sets the identity", func(t *testing.T) {
		auth := &stubAuthenticator{name: "session", fn: func(in authenticator.Input) (*authenticator.Result, error) {
			return &authenticator.Result{User: user, Session: sess}, nil
		}}
		m := newMiddleware(t, auth)

		var got *identity.Identity
		h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ = identity.Get(r.Context())
			w.WriteHeader(http.StatusTeapot)
		}))

		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer tok")
		r.RemoteAddr = "198.51.100.7:443"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		assert.Equal(t, http.StatusTeapot, w.Code)
		require.NotNil(t, got)
		assert.Equal(t, user, got.User)
		assert.Equal(t, "session", got.Authenticator)
		assert.True(t, got.HasSession())
		assert.Equal(t, "tok", got.Token)
		assert.Equal(t, "198.51.100.7", got.RemoteIP.String())
		assert.True(t, got.Gate(role.Default).Has(role.InviteUsers))
	})

	t.Run("no credentials", func(t *testing.T) {
		auth := &stubAuthenticator{name: "session", fn: func(authenticator.Input) (*authenticator.Result, error) {
			return nil, authenticator.ErrNoCredentials
		}}
		h := newMiddleware(t, auth).Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("handler must not run")
		}))

		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"unauthenticated"}`, w.Body.String())
		assert.Empty(t, w.Header().Get("WWW-Authenticate"))
	})

	t.Run("bad basic credentials ask for basic", func(t *testing.T) {
		auth := &stubAuthenticator{name: "password", fn: func(authenticator.Input) (*authenticator.Result, error) {
			return nil, errs.ErrInvalidCredentials
		}}
		h := newMiddleware(t, auth).Middleware(http.NotFoundHandler())

		r := httptest.NewRequest("GET", "/", nil)
		r.SetBasicAuth("jane@example.com", "wrong")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Basic")
	})

	t.Run("storage failure is not a 401", func(t *testing.T) {
		auth := &stubAuthenticator{name: "session", fn: func(authenticator.Input) (*authenticator.Result, error) {
			return nil, errs.Storage(errors.New("connection refused"))
		}}
		h := newMiddleware(t, auth).Middleware(http.NotFoundHandler())

		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer tok")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "[2001:db8::1]:8080"
	assert.Equal(t, "2001:db8::1", ClientIP(r))

	r.RemoteAddr = "unix"
	assert.Equal(t, "unix", ClientIP(r))
}
