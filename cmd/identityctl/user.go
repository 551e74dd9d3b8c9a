package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cayopay/cayopay-identity/pkg/model"
)

// userCmd represents the user command
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Inspect principals",
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered principals",
	Long: `List registered principals in creation order.

Example:
  identityctl user list
  identityctl user list --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, io.Discard)
		if err != nil {
			return err
		}
		defer a.Close()

		users, err := a.users.List(cmd.Context())
		if err != nil {
			return err
		}
		return printUsers(cmd.OutOrStdout(), users, format)
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userListCmd)
	userListCmd.Flags().StringP("format", "f", "text", "Output format (text or json)")
}

func printUsers(w io.Writer, users []model.User, format string) error {
	switch format {
	case "json":
		resp := make([]model.UserResponse, 0, len(users))
		for i := range users {
			resp = append(resp, users[i].ToResponse())
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case "text":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tROLE\tCREATED")
		for i := range users {
			u := users[i].ToResponse()
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Email, users[i].DisplayName(), u.Role, u.CreatedAt)
		}
		return tw.Flush()
	}
	return fmt.Errorf("unknown format %q", format)
}
