package practice

import (
	"encoding/json"
	"slices"
	"strconv"
	"time"
)

// Status is the lifecycle state of a practice session.
type Status string

const (
	StatusCreated    Status = "created"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Difficulty levels accepted by session start.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Question is one prompt in a session's ordered question set.
type Question struct {
	Text       string `json:"text" validate:"required"`
	Category   string `json:"category" validate:"required"`
	Difficulty string `json:"difficulty" validate:"required"`
	TimeLimit  int    `json:"timeLimit" validate:"gt=0"`
}

// Answer is an append-only record of a submitted answer.
type Answer struct {
	QuestionIndex int       `json:"questionIndex"`
	AnswerText    string    `json:"answer"`
	TimeTaken     float64   `json:"timeTaken"`
	Confidence    float64   `json:"confidence"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

// Scores holds the 0-10 rubric scores of one answer.
type Scores struct {
	Clarity         float64 `json:"clarity"`
	Confidence      float64 `json:"confidence"`
	Relevance       float64 `json:"relevance"`
	Accuracy        float64 `json:"accuracy"`
	Professionalism float64 `json:"professionalism"`
	Overall         float64 `json:"overall"`
}

// AnalysisResult is the structured feedback produced for a recording.
type AnalysisResult struct {
	Scores       Scores   `json:"scores"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Summary      string   `json:"summary"`
}

// Recording is a processed audio answer. It is never mutated once appended.
type Recording struct {
	StorageKey    string         `json:"s3Key"`
	Duration      float64        `json:"duration"`
	QuestionIndex int            `json:"questionIndex"`
	Transcription string         `json:"transcription"`
	Analysis      AnalysisResult `json:"analysis"`
	UploadedAt    time.Time      `json:"uploadedAt"`
	ProcessedAt   time.Time      `json:"processedAt"`
}

// Session is one practice run owned by a single user.
type Session struct {
	ID                   string      `json:"sessionId"`
	UserID               string      `json:"userId"`
	PersonaID            string      `json:"personaId"`
	PersonaName          string      `json:"personaName"`
	Difficulty           string      `json:"difficulty"`
	Questions            []Question  `json:"questions"`
	CurrentQuestionIndex int         `json:"currentQuestionIndex"`
	Answers              []Answer    `json:"answers"`
	Recordings           []Recording `json:"recordings"`
	Status               Status      `json:"status"`
	CreatedAt            time.Time   `json:"createdAt"`
	CompletedAt          *time.Time  `json:"completedAt,omitempty"`
}

// OwnedBy reports whether userID owns the session.
func (s *Session) OwnedBy(userID string) bool {
	return s != nil && s.UserID == userID
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Questions = slices.Clone(s.Questions)
	c.Answers = slices.Clone(s.Answers)
	c.Recordings = make([]Recording, len(s.Recordings))
	for i, r := range s.Recordings {
		r.Analysis.Strengths = slices.Clone(r.Analysis.Strengths)
		r.Analysis.Improvements = slices.Clone(r.Analysis.Improvements)
		c.Recordings[i] = r
	}
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}

// Stats are the aggregates returned when a session completes.
type Stats struct {
	TotalQuestions int     `json:"totalQuestions"`
	TotalTime      float64 `json:"totalTime"`
	AvgConfidence  float64 `json:"avgConfidence"`
}

// MarshalJSON renders avgConfidence with two decimals, e.g. "7.00".
func (s Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TotalQuestions int     `json:"totalQuestions"`
		TotalTime      float64 `json:"totalTime"`
		AvgConfidence  string  `json:"avgConfidence"`
	}{
		TotalQuestions: s.TotalQuestions,
		TotalTime:      s.TotalTime,
		AvgConfidence:  strconv.FormatFloat(s.AvgConfidence, 'f', 2, 64),
	})
}

// ComputeStats sums time taken and averages confidence over the answers.
func ComputeStats(s *Session) Stats {
	stats := Stats{TotalQuestions: len(s.Questions)}
	if len(s.Answers) == 0 {
		return stats
	}

	var confidence float64
	for _, a := range s.Answers {
		stats.TotalTime += a.TimeTaken
		confidence += a.Confidence
	}
	stats.AvgConfidence = confidence / float64(len(s.Answers))
	return stats
}
