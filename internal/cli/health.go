package cli

import (
	"time"

	"github.com/spf13/cobra"
)

const healthPollInterval = 250 * time.Millisecond

func newHealthCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Long: `Check server health. Exits non-zero when the server is unreachable
or its storage is down. With --wait, keep retrying until the server
reports ok or the wait elapses.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			deadline := time.Now().Add(wait)
			for {
				var result HealthResult
				err := client.Get("/api/v1/health", &result)
				if err == nil {
					output(cmd).Print(result)
					return nil
				}
				if !time.Now().Before(deadline) {
					return err
				}

				select {
				case <-cmd.Context().Done():
					return err
				case <-time.After(healthPollInterval):
				}
			}
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "Keep retrying for up to this long (e.g. 10s)")

	return cmd
}
