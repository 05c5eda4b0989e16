// Package main provides the interview recorder HTTP server.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tdnguyen/interview-recorder-go/internal/analysis"
	"github.com/tdnguyen/interview-recorder-go/internal/config"
	"github.com/tdnguyen/interview-recorder-go/internal/db"
	"github.com/tdnguyen/interview-recorder-go/internal/metrics"
	"github.com/tdnguyen/interview-recorder-go/internal/questions"
	"github.com/tdnguyen/interview-recorder-go/internal/queue"
	"github.com/tdnguyen/interview-recorder-go/internal/server"
	"github.com/tdnguyen/interview-recorder-go/internal/storage"
)

const version = "0.1.0"

func main() {
	wipeDB := flag.Bool("wipe", false, "wipe all session data from database on startup (testing only)")
	flag.Parse()

	cfg := config.Load()

	// Setup logger (dual output: stderr text + file JSON)
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()

	logger.Info("recorder-server starting",
		"version", version,
		"addr", cfg.Addr,
		"surrealdb_url", cfg.SurrealDBURL,
		"gemini_model", cfg.GeminiModel,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	dbCfg := db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}
	dbClient, err := db.NewClient(ctx, dbCfg, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		logger.Info("closing database connection")
		_ = dbClient.Close(context.Background())
	}()

	if err := dbClient.InitSchema(ctx); err != nil {
		logger.Error("failed to initialize database schema", "error", err)
		os.Exit(1)
	}
	if *wipeDB || os.Getenv("RECORDER_WIPE_DB") == "true" {
		if err := dbClient.WipeData(ctx); err != nil {
			logger.Error("failed to wipe database", "error", err)
			os.Exit(1)
		}
		logger.Warn("database wiped")
	}

	// Storage
	store, err := storage.New(cfg.UploadsDir, logger)
	if err != nil {
		logger.Error("failed to initialize uploads storage", "error", err)
		os.Exit(1)
	}

	// Question bank is optional; the server falls back to client-provided
	// question text and session records.
	bank, err := questions.Load(cfg.QuestionsFile)
	if err != nil {
		logger.Warn("question bank unavailable", "file", cfg.QuestionsFile, "error", err)
		bank = questions.Empty()
	}

	// Analyzer
	if cfg.GoogleAPIKey == "" {
		logger.Error("GOOGLE_API_KEY is required")
		os.Exit(1)
	}
	analyzer, err := analysis.NewGemini(ctx, cfg.GoogleAPIKey, cfg.GeminiModel, logger)
	if err != nil {
		logger.Error("failed to initialize analyzer", "error", err)
		os.Exit(1)
	}

	// Queue + worker
	q := queue.New(cfg.AutoRetryDelay, logger)
	collector := metrics.NewCollector()

	srv := server.New(server.Deps{
		DB:        dbClient,
		Store:     store,
		Queue:     q,
		Metrics:   collector,
		Questions: bank,
		Logger:    logger,
	})

	analyze := func(ctx context.Context, job *queue.Job) (any, error) {
		duration := store.QuestionDuration(job.Folder, job.QuestionIndex)
		return analyzer.Analyze(ctx, analysis.Request{
			VideoPath:       job.VideoPath,
			QuestionText:    job.QuestionText,
			DurationSeconds: duration,
		})
	}
	worker := queue.NewWorker(q, analyze, srv.ResultHandler(), cfg.ProcessInterval, cfg.PollInterval, logger)
	worker.Start()

	go func() {
		if err := srv.Run(cfg.Addr); err != nil {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// Let an in-flight analysis finish before exiting.
	worker.Stop()

	logger.Info("shutdown complete")
}
