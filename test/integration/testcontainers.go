package integration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/cayopay/cayopay-identity/pkg/config"
	"github.com/cayopay/cayopay-identity/pkg/credential"
	pkgdb "github.com/cayopay/cayopay-identity/pkg/db"
	"github.com/cayopay/cayopay-identity/pkg/directory"
	"github.com/cayopay/cayopay-identity/pkg/invitation"
	"github.com/cayopay/cayopay-identity/pkg/logging"
	"github.com/cayopay/cayopay-identity/pkg/notify"
	"github.com/cayopay/cayopay-identity/pkg/server"
	"github.com/cayopay/cayopay-identity/pkg/server/endpoints"
	"github.com/cayopay/cayopay-identity/pkg/session"
	gormstore "github.com/cayopay/cayopay-identity/pkg/store/gorm"
)

const (
	ownerEmail    = "owner@example.com"
	ownerPassword = "owner-password"
	serverPort    = 18080
)

// Outbox captures invitations instead of delivering them.
type Outbox struct {
	mu   sync.Mutex
	sent []notify.Invitation
}

func (o *Outbox) SendInvitation(_ context.Context, inv notify.Invitation) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, inv)
	return nil
}

// TokenFor returns the token of the latest invitation sent to email.
func (o *Outbox) TokenFor(email string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.sent) - 1; i >= 0; i-- {
		if o.sent[i].Email == email {
			return o.sent[i].Token, true
		}
	}
	return "", false
}

// TestContext holds all the resources needed for integration tests
type TestContext struct {
	DB          *gorm.DB
	Container   testcontainers.Container
	DatabaseURL string
	ServerURL   string
	HTTPClient  *http.Client

	Directory   *directory.Directory
	Sessions    *session.Manager
	Invitations *invitation.Manager
	Outbox      *Outbox
	Server      *server.Server
}

// NewTestContext starts PostgreSQL in a container, applies the embedded
// migrations and runs the server in-process.
func NewTestContext(ctx context.Context) (*TestContext, error) {
	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("identity_test"),
		tcpostgres.WithUsername("identity"),
		tcpostgres.WithPassword("identity"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	if _, _, err := pkgdb.MigrateUp(connStr); err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db, err := pkgdb.Connect(pkgdb.Config{URL: connStr, MaxOpenConns: 20})
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, err
	}

	tc := &TestContext{
		DB:          db,
		Container:   pgContainer,
		DatabaseURL: connStr,
		ServerURL:   fmt.Sprintf("http://127.0.0.1:%d", serverPort),
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
		Outbox:      &Outbox{},
	}
	if err := tc.startServer(ctx); err != nil {
		tc.Close(ctx)
		return nil, err
	}
	return tc, nil
}

func (tc *TestContext) startServer(ctx context.Context) error {
	logger := logging.Discard()

	cfg := config.Default()
	cfg.BindAddress = "127.0.0.1"
	cfg.Port = serverPort
	cfg.Session.CookieSecure = false
	cfg.Authenticators = []string{"session", "password"}

	users := gormstore.NewUsersStore(tc.DB)
	sessionsStore := gormstore.NewSessionsStore(tc.DB)
	health := gormstore.NewHealthStore(tc.DB)

	var err error
	tc.Directory, err = directory.New(directory.Deps{
		Users:      users,
		Transactor: gormstore.NewTransactor(tc.DB),
		Hasher:     credential.NewArgon2idHasher(credential.Params{MemoryKiB: 1024, Iterations: 1, Parallelism: 1}),
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	tc.Sessions, err = session.New(session.Deps{
		Sessions:      sessionsStore,
		Users:         users,
		Authenticator: tc.Directory,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	tc.Invitations, err = invitation.New(invitation.Deps{
		Invites:   gormstore.NewInvitesStore(tc.DB),
		Directory: tc.Directory,
		Gateway:   tc.Outbox,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	registry, err := server.NewAuthenticators(cfg, tc.Sessions, tc.Directory, health)
	if err != nil {
		return err
	}

	if _, _, err := tc.Directory.Bootstrap(ctx, directory.BootstrapParams{
		Email: ownerEmail, Secret: credential.NewSecret(ownerPassword), FirstName: "Ada", LastName: "Founder",
	}); err != nil {
		return err
	}

	tc.Server = server.NewServer(cfg, server.Services{
		Directory:      tc.Directory,
		Sessions:       tc.Sessions,
		Invitations:    tc.Invitations,
		Authenticators: registry,
		HealthStore:    health,
		Logger:         logger,
	}, io.Discard)
	endpoints.RegisterAll(tc.Server)

	go func() {
		if err := tc.Server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "integration server stopped: %v\n", err)
		}
	}()

	return waitForServer(ctx, tc.ServerURL+"/health")
}

// waitForServer polls url until it responds with 200 or 30 seconds pass.
func waitForServer(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	backoff := retry.WithMaxDuration(30*time.Second, retry.NewConstant(100*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := client.Get(url)
		if err != nil {
			return retry.RetryableError(err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return retry.RetryableError(fmt.Errorf("health returned %d", resp.StatusCode))
		}
		return nil
	})
}

// Reset deletes everything but the owner so scenarios start clean.
// Wallets go with their actors.
func (tc *TestContext) Reset() error {
	return tc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM sessions`).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM invites`).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM users WHERE email <> ?`, ownerEmail).Error; err != nil {
			return err
		}
		if err := tx.Exec(`UPDATE users SET role = 'owner' WHERE email = ?`, ownerEmail).Error; err != nil {
			return err
		}
		return tx.Exec(`DELETE FROM actors WHERE id NOT IN (SELECT actor_id FROM users)`).Error
	})
}

// Close cleans up all test resources
func (tc *TestContext) Close(ctx context.Context) {
	if tc.Server != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_ = tc.Server.Shutdown(shutdownCtx)
		cancel()
	}
	if tc.DB != nil {
		_ = pkgdb.Close(tc.DB)
	}
	if tc.Container != nil {
		_ = tc.Container.Terminate(ctx)
	}
}
