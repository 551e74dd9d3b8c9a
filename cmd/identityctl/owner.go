package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cayopay/cayopay-identity/pkg/config"
	"github.com/cayopay/cayopay-identity/pkg/credential"
	"github.com/cayopay/cayopay-identity/pkg/directory"
)

var errNoOwner = errors.New("owner email and password are not configured")

// ownerCmd represents the owner command
var ownerCmd = &cobra.Command{
	Use:   "owner",
	Short: "Manage the initial owner",
}

var ownerBootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Register the initial owner if missing",
	Long: `Register the initial owner if no principal holds the address yet.

Values default to the owner.* settings (CAYOPAY_OWNER_EMAIL,
CAYOPAY_OWNER_PASSWORD, ...). Running it again is harmless.

Example:
  echo -n "$PASSWORD" | identityctl owner bootstrap --email ada@example.com --password-stdin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		params := ownerFromConfig(cfg)
		if v, _ := cmd.Flags().GetString("email"); v != "" {
			params.Email = v
		}
		if v, _ := cmd.Flags().GetString("first-name"); v != "" {
			params.FirstName = v
		}
		if v, _ := cmd.Flags().GetString("last-name"); v != "" {
			params.LastName = v
		}
		if fromStdin, _ := cmd.Flags().GetBool("password-stdin"); fromStdin {
			password, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}
			params.Secret = credential.NewSecret(password)
		}

		a, err := newApp(cfg, io.Discard)
		if err != nil {
			return err
		}
		defer a.Close()

		return bootstrapOwner(cmd.Context(), a, params)
	},
}

func init() {
	rootCmd.AddCommand(ownerCmd)
	ownerCmd.AddCommand(ownerBootstrapCmd)

	ownerBootstrapCmd.Flags().String("email", "", "owner email address")
	ownerBootstrapCmd.Flags().String("first-name", "", "owner first name")
	ownerBootstrapCmd.Flags().String("last-name", "", "owner last name")
	ownerBootstrapCmd.Flags().Bool("password-stdin", false, "read the owner password from stdin")
}

func ownerFromConfig(cfg *config.Config) directory.BootstrapParams {
	return directory.BootstrapParams{
		Email:     cfg.Owner.Email,
		Secret:    credential.NewSecret(cfg.Owner.Password),
		FirstName: cfg.Owner.FirstName,
		LastName:  cfg.Owner.LastName,
	}
}

func bootstrapOwner(ctx context.Context, a *app, params directory.BootstrapParams) error {
	if params.Email == "" || len(params.Secret.Reveal()) == 0 {
		return errNoOwner
	}
	user, created, err := a.directory.Bootstrap(ctx, params)
	if err != nil {
		return fmt.Errorf("owner bootstrap failed: %w", err)
	}
	if created {
		a.logger.Info("owner registered", "email", user.Email, "id", user.ID)
	} else {
		a.logger.Info("owner already registered", "email", user.Email)
	}
	return nil
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("empty password on stdin")
	}
	return password, nil
}

