package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List queued analysis jobs or inspect one by ID",
	Long: `List the jobs waiting in the analysis queue, or inspect a specific
job by its ID (token:q<index>).

Examples:
  recorderctl jobs                 # List queued jobs
  recorderctl jobs AB12CD34:q0     # Show details for one job`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if len(args) == 1 {
		return showJob(ctx, args[0])
	}
	return listJobs(ctx)
}

func listJobs(ctx context.Context) error {
	snap, err := apiClient.GetQueue(ctx)
	if err != nil {
		return fmt.Errorf("get queue: %w", err)
	}

	if snap.CurrentJob != "" {
		fmt.Printf("Processing: %s\n\n", snap.CurrentJob)
	}
	if len(snap.Jobs) == 0 {
		fmt.Println("No jobs queued")
		if snap.Scheduled > 0 {
			fmt.Printf("(%d waiting for retry)\n", snap.Scheduled)
		}
		return nil
	}

	fmt.Printf("%-24s %-22s %-8s %s\n", "ID", "STATUS", "MANUAL", "CREATED")
	fmt.Println("------------------------------------------------------------------------")
	for _, job := range snap.Jobs {
		manual := ""
		if job.IsManualRetry {
			manual = "yes"
		}
		fmt.Printf("%-24s %-22s %-8s %s\n", job.JobID, job.Status, manual, job.CreatedAt.Format("15:04:05"))
	}
	if snap.Scheduled > 0 {
		fmt.Printf("\n%d job(s) waiting for automatic retry\n", snap.Scheduled)
	}
	return nil
}

func showJob(ctx context.Context, id string) error {
	job, err := apiClient.GetJob(ctx, id)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	fmt.Printf("Job: %s\n", job.JobID)
	fmt.Printf("  Status: %s\n", job.Status)
	if job.Position >= 0 {
		fmt.Printf("  Position: %d ahead in queue\n", job.Position)
	}
	fmt.Printf("  Created: %s\n", job.CreatedAt.Format(time.RFC3339))
	if job.StartedAt != nil {
		fmt.Printf("  Started: %s\n", job.StartedAt.Format(time.RFC3339))
	}
	if job.CompletedAt != nil {
		fmt.Printf("  Completed: %s\n", job.CompletedAt.Format(time.RFC3339))
		if job.StartedAt != nil {
			fmt.Printf("  Duration: %s\n", job.CompletedAt.Sub(*job.StartedAt).Round(time.Second))
		}
	}
	if job.Retry.AutoRetryAttempt > 0 {
		fmt.Printf("  Auto retries used: %d\n", job.Retry.AutoRetryAttempt)
	}
	if job.Retry.AutoRetryAt != nil {
		fmt.Printf("  Next retry: %s\n", job.Retry.AutoRetryAt.Format(time.RFC3339))
	}
	if job.Error != "" {
		fmt.Printf("  Error: %s\n", job.Error)
	}
	if job.Result != nil {
		fmt.Println("\nResult:")
		printResult(job.Result)
	}
	return nil
}

// printResult renders the analysis result map in a stable, readable order.
func printResult(result any) {
	m, ok := result.(map[string]any)
	if !ok {
		fmt.Printf("  %v\n", result)
		return
	}
	for _, key := range []string{"match_score", "emotion", "emotion_score", "pace_wpm", "pace_label", "feedback", "transcript"} {
		if v, ok := m[key]; ok {
			fmt.Printf("  %s: %v\n", key, v)
		}
	}
}
