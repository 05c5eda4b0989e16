// Package config loads all runtime configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/tdnguyen/interview-recorder-go/internal/queue"
)

// Config holds all configuration values.
type Config struct {
	// HTTP server
	Addr       string
	UploadsDir string

	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Gemini analysis
	GoogleAPIKey string
	GeminiModel  string

	// Question bank
	QuestionsFile string

	// Queue timings
	ProcessInterval time.Duration
	AutoRetryDelay  time.Duration
	PollInterval    time.Duration

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment
// variables win over it.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:       getEnv("RECORDER_ADDR", ":8080"),
		UploadsDir: getEnv("RECORDER_UPLOADS_DIR", "uploads"),

		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "interview"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "recorder"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		GoogleAPIKey: getEnv("GOOGLE_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		QuestionsFile: getEnv("RECORDER_QUESTIONS_FILE", "questions.yaml"),

		ProcessInterval: getDuration("RECORDER_PROCESS_INTERVAL", queue.DefaultProcessInterval),
		AutoRetryDelay:  getDuration("RECORDER_AUTO_RETRY_DELAY", queue.DefaultAutoRetryDelay),
		PollInterval:    getDuration("RECORDER_POLL_INTERVAL", queue.DefaultPollInterval),

		LogFile:  getEnv("RECORDER_LOG_FILE", "/tmp/recorder.log"),
		LogLevel: parseLogLevel(getEnv("RECORDER_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getDuration accepts Go duration syntax ("15s") or bare seconds ("15").
func getDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
