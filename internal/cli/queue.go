package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show a one-shot snapshot of the analysis queue",
	Args:  cobra.NoArgs,
	RunE:  runQueue,
}

var retryCmd = &cobra.Command{
	Use:   "retry <token> <folder> <question-index>",
	Short: "Manually retry one question's AI analysis",
	Long: `Re-enqueue an already-uploaded answer for analysis. The job moves to
the back of the queue; the uploaded video is reused.

Examples:
  recorderctl retry AB12CD34 01_01_2025_10_00_nguyen_van_a 2`,
	Args: cobra.ExactArgs(3),
	RunE: runRetry,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show server runtime statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(retryCmd)
	rootCmd.AddCommand(statsCmd)
}

func runQueue(cmd *cobra.Command, args []string) error {
	snap, err := apiClient.GetQueue(context.Background())
	if err != nil {
		return fmt.Errorf("get queue: %w", err)
	}

	fmt.Printf("Queue size: %d\n", snap.QueueSize)
	fmt.Printf("Processing: %v\n", snap.Processing)
	if snap.CurrentJob != "" {
		fmt.Printf("Current job: %s\n", snap.CurrentJob)
	}
	fmt.Printf("Scheduled retries: %d\n", snap.Scheduled)
	return nil
}

func runRetry(cmd *cobra.Command, args []string) error {
	var questionIndex int
	if _, err := fmt.Sscanf(args[2], "%d", &questionIndex); err != nil {
		return fmt.Errorf("invalid question index %q", args[2])
	}

	if err := apiClient.RetryJob(context.Background(), args[0], args[1], questionIndex); err != nil {
		return fmt.Errorf("retry job: %w", err)
	}
	fmt.Println("Manual retry queued")
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	stats, err := apiClient.GetServerStats(context.Background())
	if err != nil {
		return fmt.Errorf("get server stats: %w", err)
	}

	fmt.Printf("Uptime: %.0fs\n", stats.UptimeSeconds)
	fmt.Printf("Uploads: %d\n", stats.Uploads)
	fmt.Printf("Analyses: %d ok, %d failed\n", stats.AnalysisSuccesses, stats.AnalysisFailures)
	fmt.Printf("Retries: %d auto, %d manual\n", stats.AutoRetries, stats.ManualRetries)

	if stats.Analysis != nil {
		fmt.Printf("\nAnalysis timing (ms): avg %.0f, min %d, max %d over %d runs\n",
			stats.Analysis.AvgTimeMs, stats.Analysis.MinTimeMs, stats.Analysis.MaxTimeMs, stats.Analysis.Count)
	}
	if stats.QueueWait != nil {
		fmt.Printf("Queue wait (ms): avg %.0f, min %d, max %d\n",
			stats.QueueWait.AvgTimeMs, stats.QueueWait.MinTimeMs, stats.QueueWait.MaxTimeMs)
	}
	if stats.Upload != nil {
		fmt.Printf("Upload handling (ms): avg %.0f, max %d\n",
			stats.Upload.AvgTimeMs, stats.Upload.MaxTimeMs)
	}
	return nil
}
