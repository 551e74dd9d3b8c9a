package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cayopay/cayopay-identity/pkg/config"
)

// configurationCmd represents the configuration command
var configurationCmd = &cobra.Command{
	Use:   "configuration",
	Short: "Inspect the service configuration",
}

var configurationShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show configuration attributes and their sources",
	Long: `Show configuration attributes and their sources.

The values displayed by this command reflect the current state of the
configuration sources, the environment variables and the config file. They
may not reflect the values used by a running server. Secrets are redacted.

Config file location: /etc/cayopay/cayopay.yml (or CAYOPAY_CONFIG_PATH)

Example:
  identityctl configuration show
  identityctl configuration show --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return showConfiguration(cmd.OutOrStdout(), cfg, format)
	},
}

func init() {
	rootCmd.AddCommand(configurationCmd)
	configurationCmd.AddCommand(configurationShowCmd)
	configurationShowCmd.Flags().StringP("format", "f", "text", "Output format (text or json)")
}

func showConfiguration(w io.Writer, cfg *config.Config, format string) error {
	switch format {
	case "json":
		out, err := cfg.FormatJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, out)
	case "text":
		fmt.Fprint(w, cfg.FormatText())
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	if unknown := cfg.UnknownFileKeys(); len(unknown) > 0 {
		fmt.Fprintf(w, "\nWarning: unknown keys in %s: %v\n", cfg.ConfigFilePath(), unknown)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(w, "\nWarning: %v\n", err)
	}
	return nil
}
