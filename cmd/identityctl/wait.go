package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"
)

// waitCmd represents the wait command
var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for the identity server to be ready",
	Long: `Wait for the identity server to be ready by polling its health endpoint.

This command will repeatedly check the server health until it responds
successfully or the maximum number of retries is reached.

Example:
  identityctl wait
  identityctl wait --port 3000 --retries 60`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		retries, _ := cmd.Flags().GetUint64("retries")

		url := fmt.Sprintf("http://localhost:%d/health", port)
		fmt.Fprintln(cmd.OutOrStdout(), "Waiting for the identity server to be ready...")
		if err := waitForServer(cmd.Context(), url, retries, time.Second); err != nil {
			return fmt.Errorf("server did not become ready: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Identity server is ready")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(waitCmd)
	waitCmd.Flags().IntP("port", "p", 3000, "Server port to check")
	waitCmd.Flags().Uint64P("retries", "r", 90, "Number of retries")
}

// waitForServer polls url until it answers with a 2xx status.
func waitForServer(ctx context.Context, url string, retries uint64, interval time.Duration) error {
	client := &http.Client{Timeout: 2 * time.Second}
	backoff := retry.WithMaxRetries(retries, retry.NewConstant(interval))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode >= 300 {
			return retry.RetryableError(fmt.Errorf("health check returned %d", resp.StatusCode))
		}
		return nil
	})
}
