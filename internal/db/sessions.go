package db

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/tdnguyen/interview-recorder-go/internal/models"
)

// CreateSession creates a pending session keyed by its token.
func (c *Client) CreateSession(ctx context.Context, token, intervieweeName, interviewerID string) (*models.Session, error) {
	results, err := surrealdb.Query[[]models.Session](ctx, c.db, `
		CREATE type::record("session", $token) SET
			token = $token,
			interviewee_name = $name,
			interviewer_id = $interviewer,
			status = "pending",
			created_at = time::now()
	`, map[string]any{
		"token":       token,
		"name":        intervieweeName,
		"interviewer": interviewerID,
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create session: empty result")
	}
	return &(*results)[0].Result[0], nil
}

// GetSession retrieves a session by token. Returns ErrNotFound when the
// token is unknown.
func (c *Client) GetSession(ctx context.Context, token string) (*models.Session, error) {
	results, err := surrealdb.Query[[]models.Session](ctx, c.db, `
		SELECT * FROM type::record("session", $token)
	`, map[string]any{"token": token})
	if err != nil {
		return nil, fmt.Errorf("get session: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, ErrNotFound
	}
	return &(*results)[0].Result[0], nil
}

// ActivateSession marks a pending session active and records its upload
// folder and generated session id.
func (c *Client) ActivateSession(ctx context.Context, token, folderName, sessionID string, startTime time.Time) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("session", $token) SET
			status = "active",
			folder_name = $folder,
			session_id = $session_id,
			start_time = $start
	`, map[string]any{
		"token":      token,
		"folder":     folderName,
		"session_id": sessionID,
		"start":      startTime,
	})
	if err != nil {
		return fmt.Errorf("activate session: %w", wrapQueryError(err))
	}
	return nil
}

// SetQuestionsSelected stores the question list the client chose for the
// session, used as a fallback when an upload omits the question text.
func (c *Client) SetQuestionsSelected(ctx context.Context, token string, questions []string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("session", $token) SET questions_selected = $questions
	`, map[string]any{"token": token, "questions": questions})
	if err != nil {
		return fmt.Errorf("set questions: %w", wrapQueryError(err))
	}
	return nil
}

// SaveAnswerResult records the analysis outcome for one question on the
// session document.
func (c *Client) SaveAnswerResult(ctx context.Context, token string, questionIndex int, result models.AnswerResult) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("session", $token) SET
			answers[$idx] = $answer
	`, map[string]any{
		"token":  token,
		"idx":    fmt.Sprintf("%d", questionIndex),
		"answer": result,
	})
	if err != nil {
		return fmt.Errorf("save answer: %w", wrapQueryError(err))
	}
	return nil
}

// FinishSession marks a session complete.
func (c *Client) FinishSession(ctx context.Context, token string, questionsAnswered int, endTime time.Time) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("session", $token) SET
			status = "complete",
			questions_answered = $count,
			end_time = $end
	`, map[string]any{
		"token": token,
		"count": questionsAnswered,
		"end":   endTime,
	})
	if err != nil {
		return fmt.Errorf("finish session: %w", wrapQueryError(err))
	}
	return nil
}
