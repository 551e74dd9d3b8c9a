package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/cayopay/cayopay-identity/pkg/authenticator"
	"github.com/cayopay/cayopay-identity/pkg/config"
	"github.com/cayopay/cayopay-identity/pkg/directory"
	"github.com/cayopay/cayopay-identity/pkg/invitation"
	"github.com/cayopay/cayopay-identity/pkg/role"
	"github.com/cayopay/cayopay-identity/pkg/server/middleware"
	"github.com/cayopay/cayopay-identity/pkg/session"
	"github.com/cayopay/cayopay-identity/pkg/store"
)

// Services are the core components the HTTP layer exposes.
type Services struct {
	Directory      *directory.Directory
	Sessions       *session.Manager
	Invitations    *invitation.Manager
	Authenticators *authenticator.Registry
	HealthStore    store.HealthStore
	Roles          *role.Model
	Logger         *slog.Logger
}

type Server struct {
	Config *config.Config
	Router *mux.Router
	Auth   *middleware.Authenticator

	Directory      *directory.Directory
	Sessions       *session.Manager
	Invitations    *invitation.Manager
	Authenticators *authenticator.Registry
	HealthStore    store.HealthStore
	Roles          *role.Model
	Logger         *slog.Logger

	srv *http.Server
}

// NewServer builds a server listening on cfg.Address(). Access logs go to
// accessLog in Apache common log format.
func NewServer(cfg *config.Config, svc Services, accessLog io.Writer) *Server {
	if svc.Roles == nil {
		svc.Roles = role.Default
	}
	if svc.Logger == nil {
		svc.Logger = slog.Default()
	}
	if accessLog == nil {
		accessLog = io.Discard
	}

	router := mux.NewRouter().UseEncodedPath()
	srv := &http.Server{
		Handler:           handlers.LoggingHandler(accessLog, router),
		Addr:              cfg.Address(),
		WriteTimeout:      15 * time.Second,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Server{
		Config:         cfg,
		Router:         router,
		Auth:           middleware.NewAuthenticator(svc.Authenticators, cfg.Session.CookieName, svc.Logger),
		Directory:      svc.Directory,
		Sessions:       svc.Sessions,
		Invitations:    svc.Invitations,
		Authenticators: svc.Authenticators,
		HealthStore:    svc.HealthStore,
		Roles:          svc.Roles,
		Logger:         svc.Logger,
		srv:            srv,
	}
}

// Handler returns the root handler including access logging.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
