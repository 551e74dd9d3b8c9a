package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"gorm.io/gorm"

	"github.com/cayopay/cayopay-identity/pkg/audit"
	"github.com/cayopay/cayopay-identity/pkg/authenticator"
	"github.com/cayopay/cayopay-identity/pkg/config"
	"github.com/cayopay/cayopay-identity/pkg/credential"
	pkgdb "github.com/cayopay/cayopay-identity/pkg/db"
	"github.com/cayopay/cayopay-identity/pkg/directory"
	"github.com/cayopay/cayopay-identity/pkg/invitation"
	"github.com/cayopay/cayopay-identity/pkg/logging"
	"github.com/cayopay/cayopay-identity/pkg/notify"
	"github.com/cayopay/cayopay-identity/pkg/server"
	"github.com/cayopay/cayopay-identity/pkg/session"
	gormstore "github.com/cayopay/cayopay-identity/pkg/store/gorm"
)

// app is the wired service graph shared by the commands.
type app struct {
	cfg    *config.Config
	level  *slog.LevelVar
	logger *slog.Logger
	db     *gorm.DB

	auditStore *audit.Store
	users      *gormstore.UsersStore
	health     *gormstore.HealthStore

	directory      *directory.Directory
	sessions       *session.Manager
	invitations    *invitation.Manager
	authenticators *authenticator.Registry
}

// loadConfig loads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger returns a JSON logger on stderr at cfg's level. The returned
// LevelVar can be changed later.
func newLogger(cfg *config.Config) (*slog.Logger, *slog.LevelVar, error) {
	lvl, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	level := new(slog.LevelVar)
	level.Set(lvl)
	logger := logging.New(os.Stderr, level)
	slog.SetDefault(logger)
	return logger, level, nil
}

// newApp connects to the database and wires the services. Invitations are
// delivered through the configured gateway; stdout backs the writer driver.
func newApp(cfg *config.Config, out io.Writer) (*app, error) {
	logger, level, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	db, err := pkgdb.Connect(pkgdb.Config{URL: cfg.DatabaseURL, Debug: level.Level() == slog.LevelDebug})
	if err != nil {
		return nil, err
	}

	auditStore, err := audit.NewStore(cfg.AuditDatabaseURL)
	if err != nil {
		_ = pkgdb.Close(db)
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	auditor := &audit.Auditor{Logger: audit.NewLogger(out), Store: auditStore, ErrorLog: logger}

	a := &app{
		cfg:        cfg,
		level:      level,
		logger:     logger,
		db:         db,
		auditStore: auditStore,
		users:      gormstore.NewUsersStore(db),
		health:     gormstore.NewHealthStore(db),
	}
	sessionsStore := gormstore.NewSessionsStore(db)

	a.directory, err = directory.New(directory.Deps{
		Users:      a.users,
		Transactor: gormstore.NewTransactor(db),
		Hasher:     credential.NewArgon2idHasher(cfg.HashParams()),
		Audit:      auditor,
		Logger:     logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.sessions, err = session.New(session.Deps{
		Sessions:      sessionsStore,
		Users:         a.users,
		Authenticator: a.directory,
		TTL:           cfg.Session.TTL,
		Audit:         auditor,
		Logger:        logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	gateway, err := notify.New(cfg.Notification(), out)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.invitations, err = invitation.New(invitation.Deps{
		Invites:                 gormstore.NewInvitesStore(db),
		Directory:               a.directory,
		Gateway:                 gateway,
		TTL:                     cfg.Invitations.TTL,
		RollbackOnNotifyFailure: cfg.Invitations.RollbackOnNotifyFailure,
		Audit:                   auditor,
		Logger:                  logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.authenticators, err = server.NewAuthenticators(cfg, a.sessions, a.directory, a.health)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) services() server.Services {
	return server.Services{
		Directory:      a.directory,
		Sessions:       a.sessions,
		Invitations:    a.invitations,
		Authenticators: a.authenticators,
		HealthStore:    a.health,
		Logger:         a.logger,
	}
}

// Close releases the database handles.
func (a *app) Close() {
	if err := a.auditStore.Close(); err != nil {
		a.logger.Warn("failed to close audit database", "error", err)
	}
	if err := pkgdb.Close(a.db); err != nil {
		a.logger.Warn("failed to close database", "error", err)
	}
}
