// Package db_test contains integration tests for the SurrealDB session store.
// They require a running SurrealDB instance and are skipped in short mode.
package db_test

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tdnguyen/interview-recorder-go/internal/db"
	"github.com/tdnguyen/interview-recorder-go/internal/models"
)

// getTestConfig returns config from environment or defaults for local testing.
func getTestConfig() db.Config {
	return db.Config{
		URL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		Namespace: getEnv("SURREALDB_NAMESPACE", "test_interview"),
		Database:  getEnv("SURREALDB_DATABASE", "test_recorder"),
		Username:  getEnv("SURREALDB_USER", "root"),
		Password:  getEnv("SURREALDB_PASS", "root"),
		AuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func setupClient(t *testing.T, ctx context.Context) *db.Client {
	t.Helper()

	cfg := getTestConfig()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	client, err := db.NewClient(ctx, cfg, logger)
	require.NoError(t, err, "should connect to SurrealDB")
	t.Cleanup(func() { client.Close(context.Background()) })

	require.NoError(t, client.InitSchema(ctx), "should initialize schema")
	return client
}

func testToken() string {
	return strings.ToUpper(uuid.New().String()[:8])
}

func TestClientConnect(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := setupClient(t, ctx)
	assert.NotNil(t, client.DB(), "should have valid DB reference")
}

func TestSessionLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := setupClient(t, ctx)
	token := testToken()

	created, err := client.CreateSession(ctx, token, "Nguyễn Văn A", "interviewer-1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionPending, created.Status)
	assert.Equal(t, "Nguyễn Văn A", created.IntervieweeName)

	fetched, err := client.GetSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, token, fetched.Token)

	err = client.ActivateSession(ctx, token, "01_01_2025_10_00_nguyen_van_a", uuid.New().String(), time.Now())
	require.NoError(t, err)

	fetched, err = client.GetSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, models.SessionActive, fetched.Status)
	assert.Equal(t, "01_01_2025_10_00_nguyen_van_a", fetched.FolderName)

	err = client.SaveAnswerResult(ctx, token, 0, models.AnswerResult{
		Status:     models.AnswerStatusDone,
		Transcript: "xin chào",
		MatchScore: 75,
		PaceWPM:    120,
		PaceLabel:  "normal",
	})
	require.NoError(t, err)

	fetched, err = client.GetSession(ctx, token)
	require.NoError(t, err)
	require.Contains(t, fetched.Answers, "0")
	assert.Equal(t, 75, fetched.Answers["0"].MatchScore)

	err = client.FinishSession(ctx, token, 1, time.Now())
	require.NoError(t, err)

	fetched, err = client.GetSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, models.SessionComplete, fetched.Status)
	assert.Equal(t, 1, fetched.QuestionsAnswered)
}

func TestGetSessionNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := setupClient(t, ctx)

	_, err := client.GetSession(ctx, "NOSUCHTOKEN")
	assert.ErrorIs(t, err, db.ErrNotFound)
}
