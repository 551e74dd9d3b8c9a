package endpoints

import (
	"net/http"
	"time"

	"github.com/cayopay/cayopay-identity/pkg/credential"
	"github.com/cayopay/cayopay-identity/pkg/identity"
	"github.com/cayopay/cayopay-identity/pkg/model"
	"github.com/cayopay/cayopay-identity/pkg/server"
	"github.com/cayopay/cayopay-identity/pkg/server/middleware"
	"github.com/cayopay/cayopay-identity/pkg/session"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	User      model.UserResponse `json:"user"`
	ExpiresAt string             `json:"expires_at"`
}

// RegisterAuthEndpoints registers login, logout and the current principal's endpoints
func RegisterAuthEndpoints(s *server.Server) {
	s.Router.HandleFunc("/auth/login", handleLogin(s)).Methods("POST")

	s.Router.Handle("/auth/logout", s.Auth.Middleware(handleLogout(s))).Methods("POST")
	s.Router.Handle("/auth/me", s.Auth.Middleware(handleMe(s))).Methods("GET")
	s.Router.Handle("/auth/sessions", s.Auth.Middleware(handleSessions(s))).Methods("GET")
	s.Router.Handle("/auth/sessions", s.Auth.Middleware(handleRevokeSessions(s))).Methods("DELETE")
}

func handleLogin(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !validEmail(req.Email) || req.Password == "" {
			respondWithError(w, http.StatusBadRequest, "email and password are required")
			return
		}

		meta := session.ClientMeta{UserAgent: r.UserAgent(), IPAddress: middleware.ClientIP(r)}
		sess, user, err := s.Sessions.Login(r.Context(), req.Email, credential.NewSecret(req.Password), meta)
		if err != nil {
			respondWithKind(w, r, s.Logger, err)
			return
		}

		http.SetCookie(w, sessionCookie(s, sess.Token, sess.ExpiresAt))
		respondWithJSON(w, http.StatusOK, LoginResponse{
			User:      withPermissions(s, user),
			ExpiresAt: sess.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}
}

func handleLogout(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())
		if id.HasSession() {
			if err := s.Sessions.Revoke(r.Context(), id.Token); err != nil {
				respondWithKind(w, r, s.Logger, err)
				return
			}
		}
		http.SetCookie(w, sessionCookie(s, "", time.Unix(0, 0)))
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleMe(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())
		respondWithJSON(w, http.StatusOK, withPermissions(s, id.User))
	}
}

func handleSessions(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())
		sessions, err := s.Sessions.ListForUser(r.Context(), id.User.ID)
		if err != nil {
			respondWithKind(w, r, s.Logger, err)
			return
		}
		resp := make([]model.SessionResponse, 0, len(sessions))
		for i := range sessions {
			resp = append(resp, sessions[i].ToResponse())
		}
		respondWithJSON(w, http.StatusOK, resp)
	}
}

func handleRevokeSessions(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())
		n, err := s.Sessions.RevokeAllForUser(r.Context(), id.User.ID)
		if err != nil {
			respondWithKind(w, r, s.Logger, err)
			return
		}
		http.SetCookie(w, sessionCookie(s, "", time.Unix(0, 0)))
		respondWithJSON(w, http.StatusOK, map[string]int64{"revoked": n})
	}
}

func sessionCookie(s *server.Server, token string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     s.Config.Session.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.Config.Session.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
	if token == "" {
		c.MaxAge = -1
	}
	return c
}

func withPermissions(s *server.Server, user *model.User) model.UserResponse {
	resp := user.ToResponse()
	resp.Permissions = s.Roles.PermissionsOf(user.Role)
	return resp
}
