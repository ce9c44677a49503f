package question

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/msl-practice/backend/internal/logger"
	"github.com/zhouzirui/msl-practice/backend/internal/model/persona"
	"github.com/zhouzirui/msl-practice/backend/internal/model/practice"
	"github.com/zhouzirui/msl-practice/backend/internal/service/ai"
	"github.com/zhouzirui/msl-practice/backend/internal/validation"
)

// ErrGeneration marks any failure of the model path. It never leaves
// Generate; callers see fallback questions instead.
var ErrGeneration = errors.New("question generation failed")

const (
	generationMaxTokens   = 1500
	generationTemperature = 0.7
)

// Generator produces a session's question set.
type Generator struct {
	completer ai.Completer
	bank      *Bank
	log       zerolog.Logger
}

// NewGenerator creates a generator. A nil completer means every call uses
// the bank.
func NewGenerator(completer ai.Completer, bank *Bank) *Generator {
	return &Generator{
		completer: completer,
		bank:      bank,
		log:       logger.Component("question"),
	}
}

// Generate asks the model for count questions and falls back to the bank on
// any failure. It never returns an error.
func (g *Generator) Generate(ctx context.Context, p *persona.Persona, difficulty string, count int) []practice.Question {
	questions, err := g.generate(ctx, p, difficulty, count)
	if err == nil {
		return questions
	}

	g.log.Warn().Err(err).
		Str("persona_id", p.ID).
		Str("difficulty", difficulty).
		Int("count", count).
		Msg("using fallback question bank")
	return g.bank.Pick(p.ID, count)
}

func (g *Generator) generate(ctx context.Context, p *persona.Persona, difficulty string, count int) ([]practice.Question, error) {
	if g.completer == nil {
		return nil, fmt.Errorf("%w: text generation not configured", ErrGeneration)
	}

	reply, err := g.completer.Complete(ctx, ai.CompletionRequest{
		SystemPrompt: generationSystemPrompt,
		UserPrompt:   BuildPrompt(p, difficulty, count),
		MaxTokens:    generationMaxTokens,
		Temperature:  generationTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	questions, err := ParseQuestions(reply, difficulty)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	if len(questions) < count {
		return nil, fmt.Errorf("%w: model returned %d of %d questions", ErrGeneration, len(questions), count)
	}
	return questions[:count], nil
}

// rawQuestion is the model's reply shape. Older prompts produced "question"
// instead of "text".
type rawQuestion struct {
	Text       string `json:"text"`
	Question   string `json:"question"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
	TimeLimit  int    `json:"timeLimit"`
}

func (r rawQuestion) canonical(defaultDifficulty string) (practice.Question, error) {
	text := strings.TrimSpace(r.Text)
	if text == "" {
		text = strings.TrimSpace(r.Question)
	}
	if text == "" {
		return practice.Question{}, errors.New("question has neither text nor question field")
	}

	q := practice.Question{
		Text:       text,
		Category:   strings.TrimSpace(r.Category),
		Difficulty: strings.TrimSpace(r.Difficulty),
		TimeLimit:  r.TimeLimit,
	}
	if q.Difficulty == "" {
		q.Difficulty = defaultDifficulty
	}
	if q.TimeLimit <= 0 {
		q.TimeLimit = DefaultTimeLimit
	}
	return q, nil
}

// ParseQuestions extracts the first JSON array from reply and converts every
// element, failing on the first malformed one.
func ParseQuestions(reply, defaultDifficulty string) ([]practice.Question, error) {
	raw, err := ai.ExtractArray(reply)
	if err != nil {
		return nil, err
	}

	var items []rawQuestion
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}

	out := make([]practice.Question, 0, len(items))
	for i, item := range items {
		q, err := item.canonical(defaultDifficulty)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		if err := validation.Struct(q); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		out = append(out, q)
	}
	return out, nil
}
