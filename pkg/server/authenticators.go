package server

import (
	"github.com/cayopay/cayopay-identity/pkg/authenticator"
	"github.com/cayopay/cayopay-identity/pkg/authenticator/authn_password"
	"github.com/cayopay/cayopay-identity/pkg/authenticator/authn_session"
	"github.com/cayopay/cayopay-identity/pkg/config"
	"github.com/cayopay/cayopay-identity/pkg/directory"
	"github.com/cayopay/cayopay-identity/pkg/session"
	"github.com/cayopay/cayopay-identity/pkg/store"
)

// NewAuthenticators installs the built-in authenticators, session first,
// and enables those listed in cfg.Authenticators.
func NewAuthenticators(cfg *config.Config, sessions *session.Manager, dir *directory.Directory, health store.HealthStore) (*authenticator.Registry, error) {
	registry := authenticator.NewRegistry()
	registry.Register(authn_session.New(sessions, health))
	registry.Register(authn_password.New(dir))

	for _, name := range cfg.Authenticators {
		if err := registry.Enable(name); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
