package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// sessionCmd represents the session command
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage sessions",
}

var sessionPurgeCmd = &cobra.Command{
	Use:   "purge-expired",
	Short: "Delete every expired session",
	Long: `Delete every expired session.

Expired sessions are already rejected and removed when presented; this
clears the ones nobody presents again. "identityctl serve" also does this
periodically.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, io.Discard)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.sessions.PurgeExpired(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d expired session(s)\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionPurgeCmd)
}
