package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cayopay/cayopay-identity/pkg/config"
	pkgdb "github.com/cayopay/cayopay-identity/pkg/db"
	"github.com/cayopay/cayopay-identity/pkg/logging"
	"github.com/cayopay/cayopay-identity/pkg/server"
	"github.com/cayopay/cayopay-identity/pkg/server/endpoints"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the identity HTTP server",
	Long: `Run the identity HTTP server.

Requires DATABASE_URL (or CAYOPAY_DATABASE_URL). By default, database
migrations are run on startup and the owner named by the owner.* settings
is registered if missing. Use --no-migrate to skip migrations.

The config file is watched while the server runs; a changed log_level
takes effect without a restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("bind-address") {
			cfg.BindAddress, _ = cmd.Flags().GetString("bind-address")
		}

		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			version, changed, err := pkgdb.MigrateUp(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			if changed {
				fmt.Fprintf(os.Stderr, "Migrated to version: %d\n", version)
			}
		}

		a, err := newApp(cfg, os.Stdout)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := bootstrapOwner(ctx, a, ownerFromConfig(cfg)); err != nil && !errors.Is(err, errNoOwner) {
			return err
		}

		s := server.NewServer(cfg, a.services(), os.Stdout)
		endpoints.RegisterAll(s)

		purgeEvery, _ := cmd.Flags().GetDuration("purge-interval")
		return run(ctx, a, s, purgeEvery)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 3000, "server listen port (overrides config)")
	serveCmd.Flags().StringP("bind-address", "b", "0.0.0.0", "server bind address (overrides config)")
	serveCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
	serveCmd.Flags().Duration("purge-interval", time.Hour, "how often expired sessions are deleted (0 disables)")
}

// run serves until ctx is done, then shuts the server down.
func run(ctx context.Context, a *app, s *server.Server, purgeEvery time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("server listening", "address", a.cfg.Address(), "authenticators", a.authenticators.Enabled())
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})

	if path := a.cfg.ConfigFilePath(); path != "" {
		if _, err := os.Stat(path); err == nil {
			g.Go(func() error {
				return config.Watch(ctx, path, a.logger, func(next *config.Config) {
					lvl, err := logging.ParseLevel(next.LogLevel)
					if err != nil {
						return
					}
					if lvl != a.level.Level() {
						a.level.Set(lvl)
						a.logger.Info("log level changed", "level", lvl.String())
					}
				})
			})
		}
	}

	if purgeEvery > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(purgeEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					n, err := a.sessions.PurgeExpired(ctx)
					if err != nil {
						a.logger.Warn("session purge failed", "error", err)
						continue
					}
					a.logger.Debug("expired sessions purged", "count", n)
				}
			}
		})
	}

	return g.Wait()
}
