// Package cli implements the agentguard command line tool: ad-hoc
// verification of single events, batch ingestion of journaled events, and a
// spool-directory watcher for offline replay.
package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

const defaultAPIURL = "https://api.agentguard.dev"

var (
	rootAPIURL  string
	rootAPIKey  string
	rootTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "agentguard",
	Short: "Ship agent execution telemetry to the AgentGuard backend",
	Long: "Sends execution events to the AgentGuard ingestion and verification\n" +
		"endpoints. Events are JSON files in the same shape the SDK emits, so\n" +
		"spooled or exported telemetry can be replayed from the command line.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if rootAPIKey == "" {
			rootAPIKey = os.Getenv("AGENTGUARD_API_KEY")
		}
		if rootAPIURL == defaultAPIURL {
			if env := os.Getenv("AGENTGUARD_API_URL"); env != "" {
				rootAPIURL = env
			}
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootAPIURL, "api-url", defaultAPIURL, "Backend base URL (env: AGENTGUARD_API_URL)")
	rootCmd.PersistentFlags().StringVar(&rootAPIKey, "api-key", "", "API key (env: AGENTGUARD_API_KEY)")
	rootCmd.PersistentFlags().DurationVar(&rootTimeout, "timeout", 2*time.Second, "Per-request HTTP timeout")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
