package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/cayopay/cayopay-identity/pkg/authenticator"
	"github.com/cayopay/cayopay-identity/pkg/credential"
	"github.com/cayopay/cayopay-identity/pkg/errs"
	"github.com/cayopay/cayopay-identity/pkg/identity"
)

// Authenticator is middleware that resolves the request's credentials to an
// identity using the enabled authenticators.
type Authenticator struct {
	Registry   *authenticator.Registry
	CookieName string
	Logger     *slog.Logger
}

// NewAuthenticator creates the authentication middleware
func NewAuthenticator(registry *authenticator.Registry, cookieName string, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{Registry: registry, CookieName: cookieName, Logger: logger}
}

// Input extracts credentials from r. A session token is read from the cookie
// first and from an Authorization: Bearer header otherwise; Basic
// credentials fill Login and Secret.
func (a *Authenticator) Input(r *http.Request) authenticator.Input {
	in := authenticator.Input{
		ClientIP:  ClientIP(r),
		UserAgent: r.UserAgent(),
	}
	if c, err := r.Cookie(a.CookieName); err == nil && c.Value != "" {
		in.Token = c.Value
	}

	authHeader := r.Header.Get("Authorization")
	if in.Token == "" && len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "bearer ") {
		in.Token = strings.TrimSpace(authHeader[7:])
	}
	if login, password, ok := r.BasicAuth(); ok {
		in.Login = login
		in.Secret = credential.NewSecret(password)
	}
	return in
}

// Middleware returns an HTTP middleware that requires authentication.
// Unauthenticated requests get a 401 JSON error.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		in := a.Input(r)
		res, name, err := a.Registry.Authenticate(r.Context(), in)
		if err != nil {
			if errs.Internal(err) {
				a.Logger.ErrorContext(r.Context(), "authentication failed", "authenticator", name, "error", err)
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if in.Login != "" {
				w.Header().Set("WWW-Authenticate", `Basic realm="CayoPay"`)
			}
			writeError(w, http.StatusUnauthorized, "unauthenticated")
			return
		}

		id := identity.New(res.User, name).
			WithRemoteIP(net.ParseIP(in.ClientIP)).
			WithUserAgent(in.UserAgent)
		if res.Session != nil {
			id.WithSession(res.Session, in.Token)
		}

		next.ServeHTTP(w, r.WithContext(identity.Set(r.Context(), id)))
	})
}

// ClientIP returns the remote address of r without its port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
