// Package practice orchestrates practice sessions: question set creation,
// answer submission, completion scoring and recording processing.
package practice

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/msl-practice/backend/internal/apperr"
	"github.com/zhouzirui/msl-practice/backend/internal/logger"
	"github.com/zhouzirui/msl-practice/backend/internal/model/persona"
	"github.com/zhouzirui/msl-practice/backend/internal/model/practice"
	"github.com/zhouzirui/msl-practice/backend/internal/model/user"
	"github.com/zhouzirui/msl-practice/backend/internal/validation"
)

const (
	defaultDifficulty    = practice.DifficultyMedium
	defaultQuestionCount = 5
)

// QuestionGenerator produces a question set and never fails.
type QuestionGenerator interface {
	Generate(ctx context.Context, p *persona.Persona, difficulty string, count int) []practice.Question
}

// StartRequest is the input of Start.
type StartRequest struct {
	PersonaID     string `json:"personaId" validate:"required"`
	Difficulty    string `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	QuestionCount int    `json:"questionCount" validate:"omitempty,min=1,max=20"`
}

// AnswerRequest is the input of SubmitAnswer. QuestionIndex is not checked
// against the question set and repeated indexes append again.
type AnswerRequest struct {
	QuestionIndex *int    `json:"questionIndex" validate:"required,gte=0"`
	Answer        string  `json:"answer"`
	TimeTaken     float64 `json:"timeTaken" validate:"gte=0"`
	Confidence    float64 `json:"confidence" validate:"gte=0"`
}

// Manager owns the session lifecycle.
type Manager struct {
	sessions  practice.Store
	personas  persona.Store
	users     user.Store
	generator QuestionGenerator
	now       func() time.Time
	newID     func() string
	log       zerolog.Logger
}

// Option customises a Manager or Pipeline.
type Option func(*options)

type options struct {
	now   func() time.Time
	newID func() string
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDs replaces the session id generator.
func WithIDs(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewManager wires the lifecycle manager. users may be nil.
func NewManager(sessions practice.Store, personas persona.Store, users user.Store, generator QuestionGenerator, opts ...Option) *Manager {
	o := buildOptions(opts)
	return &Manager{
		sessions:  sessions,
		personas:  personas,
		users:     users,
		generator: generator,
		now:       o.now,
		newID:     o.newID,
		log:       logger.Component("session"),
	}
}

// Start creates an in-progress session with a fresh question set.
func (m *Manager) Start(ctx context.Context, userID string, req StartRequest) (*practice.Session, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.Difficulty == "" {
		req.Difficulty = defaultDifficulty
	}
	if req.QuestionCount == 0 {
		req.QuestionCount = defaultQuestionCount
	}

	p, err := loadPersona(ctx, m.personas, req.PersonaID)
	if err != nil {
		return nil, err
	}

	questions := m.generator.Generate(ctx, p, req.Difficulty, req.QuestionCount)

	sess := &practice.Session{
		ID:          m.newID(),
		UserID:      userID,
		PersonaID:   p.ID,
		PersonaName: p.Name,
		Difficulty:  req.Difficulty,
		Questions:   questions,
		Answers:     []practice.Answer{},
		Recordings:  []practice.Recording{},
		Status:      practice.StatusInProgress,
		CreatedAt:   m.now().UTC(),
	}
	if err := m.sessions.Put(ctx, sess); err != nil {
		return nil, apperr.Service("save session", err)
	}

	if m.users != nil {
		if err := m.users.IncrementSessions(ctx, userID); err != nil {
			m.log.Warn().Err(err).Str("user_id", userID).Msg("failed to bump session counter")
		}
	}

	m.log.Info().
		Str("session_id", sess.ID).
		Str("persona_id", p.ID).
		Str("difficulty", sess.Difficulty).
		Int("questions", len(questions)).
		Msg("session started")
	return sess, nil
}

// SubmitAnswer appends an answer and returns the resulting question index.
func (m *Manager) SubmitAnswer(ctx context.Context, sessionID, userID string, req AnswerRequest) (int, error) {
	if err := validation.Struct(req); err != nil {
		return 0, err
	}
	if _, err := loadOwnedSession(ctx, m.sessions, sessionID, userID); err != nil {
		return 0, err
	}

	index := *req.QuestionIndex
	answer := practice.Answer{
		QuestionIndex: index,
		AnswerText:    req.Answer,
		TimeTaken:     req.TimeTaken,
		Confidence:    req.Confidence,
		SubmittedAt:   m.now().UTC(),
	}
	next, err := m.sessions.AppendAnswer(ctx, sessionID, answer, index+1)
	if err != nil {
		return 0, mapSessionErr("save answer", err)
	}
	return next, nil
}

// Complete marks the session completed and returns its aggregates.
func (m *Manager) Complete(ctx context.Context, sessionID, userID string) (practice.Stats, error) {
	if _, err := loadOwnedSession(ctx, m.sessions, sessionID, userID); err != nil {
		return practice.Stats{}, err
	}

	sess, err := m.sessions.Complete(ctx, sessionID, m.now().UTC())
	if err != nil {
		return practice.Stats{}, mapSessionErr("complete session", err)
	}

	stats := practice.ComputeStats(sess)
	m.log.Info().
		Str("session_id", sessionID).
		Int("answers", len(sess.Answers)).
		Float64("total_time", stats.TotalTime).
		Msg("session completed")
	return stats, nil
}

// List returns the user's sessions, newest first.
func (m *Manager) List(ctx context.Context, userID string) ([]*practice.Session, error) {
	sessions, err := m.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Service("list sessions", err)
	}
	return sessions, nil
}

// Get returns one session owned by userID.
func (m *Manager) Get(ctx context.Context, sessionID, userID string) (*practice.Session, error) {
	return loadOwnedSession(ctx, m.sessions, sessionID, userID)
}

func loadOwnedSession(ctx context.Context, store practice.Store, sessionID, userID string) (*practice.Session, error) {
	sess, err := store.Get(ctx, sessionID)
	if err != nil {
		return nil, mapSessionErr("load session", err)
	}
	if !sess.OwnedBy(userID) {
		return nil, apperr.Forbidden("Unauthorized")
	}
	return sess, nil
}

func loadPersona(ctx context.Context, store persona.Store, id string) (*persona.Persona, error) {
	p, err := store.Get(ctx, id)
	if errors.Is(err, persona.ErrNotFound) {
		return nil, apperr.NotFound("Persona")
	}
	if err != nil {
		return nil, apperr.Service("load persona", err)
	}
	return p, nil
}

func mapSessionErr(op string, err error) error {
	if errors.Is(err, practice.ErrSessionNotFound) {
		return apperr.NotFound("Session")
	}
	return apperr.Service(op, err)
}
