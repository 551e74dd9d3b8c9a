package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cayopay/cayopay-identity/pkg/audit"
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Read the audit trail",
}

var auditRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show the most recent audit events",
	Long: `Show the most recent audit events stored in the audit database.

Requires audit_database_url to be configured.

Example:
  identityctl audit recent
  identityctl audit recent --msgid remove --limit 20 --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		msgid, _ := cmd.Flags().GetString("msgid")
		limit, _ := cmd.Flags().GetInt("limit")
		format, _ := cmd.Flags().GetString("format")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.AuditDatabaseURL == "" {
			return errors.New("audit database is not configured (audit_database_url)")
		}
		store, err := audit.NewStore(cfg.AuditDatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to open audit database: %w", err)
		}
		defer store.Close()

		entries, err := store.Recent(cmd.Context(), msgid, limit)
		if err != nil {
			return err
		}
		return printEntries(cmd.OutOrStdout(), entries, format)
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditRecentCmd)
	auditRecentCmd.Flags().String("msgid", "", "Only show events of this kind (register, role-update, remove, session, authn, invite)")
	auditRecentCmd.Flags().IntP("limit", "n", 50, "Maximum number of events")
	auditRecentCmd.Flags().StringP("format", "f", "text", "Output format (text or json)")
}

type entryJSON struct {
	ID        int64                        `json:"id"`
	Timestamp string                       `json:"timestamp"`
	Severity  int                          `json:"severity"`
	MsgID     string                       `json:"msgid"`
	Data      map[string]map[string]string `json:"data,omitempty"`
	Message   string                       `json:"message"`
}

func printEntries(w io.Writer, entries []audit.Entry, format string) error {
	switch format {
	case "json":
		out := make([]entryJSON, 0, len(entries))
		for _, e := range entries {
			out = append(out, entryJSON{
				ID:        e.ID,
				Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
				Severity:  int(e.Severity),
				MsgID:     e.MsgID,
				Data:      e.Data,
				Message:   e.Message,
			})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "text":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tKIND\tMESSAGE")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Timestamp.UTC().Format(time.RFC3339), e.MsgID, e.Message)
		}
		return tw.Flush()
	}
	return fmt.Errorf("unknown format %q", format)
}
