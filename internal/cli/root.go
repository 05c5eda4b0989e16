// Package cli provides the command-line interface for the recorder server.
package cli

import (
	"github.com/spf13/cobra"
	"github.com/tdnguyen/interview-recorder-go/internal/client"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose   bool
	serverURL string

	// apiClient talks to the recorder server's REST API.
	apiClient *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "recorderctl",
	Short: "Control and monitoring CLI for the interview recorder server",
	Long: `Recorderctl talks to a running interview recorder server over its
HTTP API: create interview sessions, inspect the AI analysis queue,
retry failed jobs, and watch the queue drain live.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		apiClient = client.New(serverURL)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "recorder server URL (default RECORDER_SERVER_URL or http://localhost:8080)")
}
