package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zhouzirui/msl-practice/backend/internal/model/practice"
)

const sessionColumns = `session_id, user_id, persona_id, persona_name, difficulty, questions,
	current_question_index, answers, recordings, status, created_at, completed_at`

// SessionStore implements practice.Store. Answers and recordings live in
// JSONB arrays appended with a single UPDATE.
type SessionStore struct {
	pool *pgxpool.Pool
}

var _ practice.Store = (*SessionStore)(nil)

func (s *SessionStore) Put(ctx context.Context, sess *practice.Session) error {
	questions, err := json.Marshal(nonNil(sess.Questions))
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	answers, err := json.Marshal(nonNil(sess.Answers))
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	recordings, err := json.Marshal(nonNil(sess.Recordings))
	if err != nil {
		return fmt.Errorf("marshal recordings: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO practice_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (session_id) DO UPDATE SET
			persona_id = EXCLUDED.persona_id,
			persona_name = EXCLUDED.persona_name,
			difficulty = EXCLUDED.difficulty,
			questions = EXCLUDED.questions,
			current_question_index = EXCLUDED.current_question_index,
			answers = EXCLUDED.answers,
			recordings = EXCLUDED.recordings,
			status = EXCLUDED.status,
			completed_at = EXCLUDED.completed_at`,
		sess.ID, sess.UserID, sess.PersonaID, sess.PersonaName, sess.Difficulty, questions,
		sess.CurrentQuestionIndex, answers, recordings, string(sess.Status), sess.CreatedAt, sess.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (*practice.Session, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM practice_sessions WHERE session_id = $1`, id)
	sess, err := scanSession(row)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *SessionStore) ListByUser(ctx context.Context, userID string) ([]*practice.Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM practice_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC, session_id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []*practice.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SessionStore) AppendAnswer(ctx context.Context, id string, a practice.Answer, nextIndex int) (int, error) {
	payload, err := json.Marshal([]practice.Answer{a})
	if err != nil {
		return 0, fmt.Errorf("marshal answer: %w", err)
	}

	var current int
	err = s.pool.QueryRow(ctx, `
		UPDATE practice_sessions
		SET answers = answers || $2::jsonb,
			current_question_index = GREATEST(current_question_index, $3)
		WHERE session_id = $1
		RETURNING current_question_index`, id, payload, nextIndex).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, practice.ErrSessionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to append answer: %w", err)
	}
	return current, nil
}

func (s *SessionStore) AppendRecording(ctx context.Context, id string, r practice.Recording) (int, error) {
	payload, err := json.Marshal([]practice.Recording{r})
	if err != nil {
		return 0, fmt.Errorf("marshal recording: %w", err)
	}

	var index int
	err = s.pool.QueryRow(ctx, `
		UPDATE practice_sessions
		SET recordings = recordings || $2::jsonb
		WHERE session_id = $1
		RETURNING jsonb_array_length(recordings) - 1`, id, payload).Scan(&index)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, practice.ErrSessionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to append recording: %w", err)
	}
	return index, nil
}

func (s *SessionStore) Complete(ctx context.Context, id string, at time.Time) (*practice.Session, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE practice_sessions
		SET status = $2, completed_at = COALESCE(completed_at, $3)
		WHERE session_id = $1
		RETURNING `+sessionColumns, id, string(practice.StatusCompleted), at)
	return scanSession(row)
}

func scanSession(row pgx.Row) (*practice.Session, error) {
	var (
		sess                          practice.Session
		status                        string
		questions, answers, recordings []byte
	)
	err := row.Scan(
		&sess.ID, &sess.UserID, &sess.PersonaID, &sess.PersonaName, &sess.Difficulty, &questions,
		&sess.CurrentQuestionIndex, &answers, &recordings, &status, &sess.CreatedAt, &sess.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, practice.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	sess.Status = practice.Status(status)
	if err := json.Unmarshal(questions, &sess.Questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	if err := json.Unmarshal(answers, &sess.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	if err := json.Unmarshal(recordings, &sess.Recordings); err != nil {
		return nil, fmt.Errorf("decode recordings: %w", err)
	}
	return &sess, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
