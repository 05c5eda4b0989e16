package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var interviewerID string

var createSessionCmd = &cobra.Command{
	Use:   "create-session <interviewee-name>",
	Short: "Create a pending interview session",
	Long: `Create a new interview session for an interviewee. The server
generates an 8-character token the interviewee uses to log in.

Examples:
  recorderctl create-session "Nguyễn Văn A" --interviewer hr-01`,
	Args: cobra.ExactArgs(1),
	RunE: runCreateSession,
}

func init() {
	createSessionCmd.Flags().StringVar(&interviewerID, "interviewer", "cli", "interviewer identifier stored on the session")
	rootCmd.AddCommand(createSessionCmd)
}

func runCreateSession(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	created, err := apiClient.CreateSession(ctx, args[0], interviewerID)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	fmt.Printf("Token: %s\n", created.Token)
	fmt.Printf("URL:   %s\n", created.SessionURL)
	return nil
}
