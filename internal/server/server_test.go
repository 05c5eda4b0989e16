package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdnguyen/interview-recorder-go/internal/metrics"
	"github.com/tdnguyen/interview-recorder-go/internal/queue"
	"github.com/tdnguyen/interview-recorder-go/internal/server"
	"github.com/tdnguyen/interview-recorder-go/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type fixture struct {
	srv   *server.Server
	store *storage.Store
	queue *queue.Queue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.New(t.TempDir(), testLogger())
	require.NoError(t, err)

	q := queue.New(0, testLogger())
	srv := server.New(server.Deps{
		Store:   store,
		Queue:   q,
		Metrics: metrics.NewCollector(),
		Logger:  testLogger(),
	})
	return &fixture{srv: srv, store: store, queue: q}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(data)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestStats(t *testing.T) {
	f := newFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var snap metrics.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.GreaterOrEqual(t, snap.UptimeSeconds, 0.0)
}

func TestJobStatusNotFound(t *testing.T) {
	f := newFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/jobs/NOPE:q1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQueueSnapshotEmpty(t *testing.T) {
	f := newFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/queue", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var snap queue.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, 0, snap.QueueSize)
	assert.False(t, snap.Processing)
}

// uploadRequest builds a multipart upload-one request.
func uploadRequest(t *testing.T, token, folder string, questionIndex int, contentType string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("token", token))
	require.NoError(t, mw.WriteField("folder", folder))
	require.NoError(t, mw.WriteField("questionIndex", fmt.Sprintf("%d", questionIndex)))
	require.NoError(t, mw.WriteField("questionText", "Tell me about yourself."))

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="video"; filename="blob.webm"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("fake webm bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload-one", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadOne(t *testing.T) {
	f := newFixture(t)
	folder := "01_01_2025_10_00_test_user"
	require.NoError(t, f.store.CreateSessionFolder(folder, &storage.Meta{FolderName: folder}))

	w := f.do(uploadRequest(t, "TOK12345", folder, 0, "video/webm"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		OK      bool   `json:"ok"`
		SavedAs string `json:"savedAs"`
		JobID   string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "Q1.webm", resp.SavedAs)
	assert.Equal(t, "TOK12345:q0", resp.JobID)

	// Video landed on disk and a job is queued.
	_, err := os.Stat(filepath.Join(f.store.FolderPath(folder), "Q1.webm"))
	assert.NoError(t, err)
	assert.Equal(t, 1, f.queue.Len())

	meta, err := f.store.LoadMeta(folder)
	require.NoError(t, err)
	require.Contains(t, meta.ReceivedQuestions, "0")
	assert.Equal(t, storage.QuestionUploaded, meta.ReceivedQuestions["0"].Status)
}

func TestUploadOneUnknownFolder(t *testing.T) {
	f := newFixture(t)

	w := f.do(uploadRequest(t, "TOK12345", "no_such_folder", 0, "video/webm"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadOneRejectsBadContentType(t *testing.T) {
	f := newFixture(t)
	folder := "01_01_2025_10_00_test_user"
	require.NoError(t, f.store.CreateSessionFolder(folder, &storage.Meta{FolderName: folder}))

	w := f.do(uploadRequest(t, "TOK12345", folder, 0, "video/mp4"))
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestUploadOneIsIdempotent(t *testing.T) {
	f := newFixture(t)
	folder := "01_01_2025_10_00_test_user"
	require.NoError(t, f.store.CreateSessionFolder(folder, &storage.Meta{FolderName: folder}))

	w := f.do(uploadRequest(t, "TOK12345", folder, 0, "video/webm"))
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(uploadRequest(t, "TOK12345", folder, 0, "video/webm"))
	require.Equal(t, http.StatusOK, w.Code)

	// Second upload of the same question merges into the existing job.
	assert.Equal(t, 1, f.queue.Len())
}

func TestRetryProcessing(t *testing.T) {
	f := newFixture(t)
	folder := "01_01_2025_10_00_test_user"
	require.NoError(t, f.store.CreateSessionFolder(folder, &storage.Meta{FolderName: folder}))

	w := f.do(uploadRequest(t, "TOK12345", folder, 0, "video/webm"))
	require.Equal(t, http.StatusOK, w.Code)

	idx := 0
	body := jsonBody(t, map[string]any{
		"token":         "TOK12345",
		"folder":        folder,
		"questionIndex": idx,
		"questionText":  "Tell me about yourself.",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/retry-processing", body)
	req.Header.Set("Content-Type", "application/json")
	w = f.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	meta, err := f.store.LoadMeta(folder)
	require.NoError(t, err)
	assert.Equal(t, storage.QuestionRetrying, meta.ReceivedQuestions["0"].Status)

	view, err := f.queue.Status("TOK12345:q0")
	require.NoError(t, err)
	assert.Equal(t, queue.StatusManualRetryPending, view.Status)
}

func TestRetryProcessingMissingVideo(t *testing.T) {
	f := newFixture(t)

	body := jsonBody(t, map[string]any{
		"token":         "TOK12345",
		"folder":        "nope",
		"questionIndex": 0,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/retry-processing", body)
	req.Header.Set("Content-Type", "application/json")

	w := f.do(req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJobStatusAfterUpload(t *testing.T) {
	f := newFixture(t)
	folder := "01_01_2025_10_00_test_user"
	require.NoError(t, f.store.CreateSessionFolder(folder, &storage.Meta{FolderName: folder}))

	w := f.do(uploadRequest(t, "TOK12345", folder, 2, "video/webm"))
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(httptest.NewRequest(http.MethodGet, "/api/jobs/TOK12345:q2", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var view queue.JobView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, queue.StatusPending, view.Status)
	assert.Equal(t, 0, view.Position)
}
