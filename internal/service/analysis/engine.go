// Package analysis scores a transcribed answer against a rubric using the
// language model. There is no fallback: a reply that cannot be parsed fails
// the call.
package analysis

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

// ErrAnalysis marks every failure of Analyze.
var ErrAnalysis = errors.New("failed to analyze answer")

const (
	analysisMaxTokens   = 800
	analysisTemperature = 0.3

	maxStrengths    = 2
	maxImprovements = 3
)

// Engine runs the rubric prompt.
type Engine struct {
	completer ai.Completer
	log       zerolog.Logger
}

// NewEngine creates an engine backed by completer.
func NewEngine(completer ai.Completer) *Engine {
	return &Engine{completer: completer, log: logger.Component("analysis")}
}

// Analyze scores transcript as an answer to questionText asked by p.
func (e *Engine) Analyze(ctx context.Context, transcript, questionText string, p *persona.Persona) (practice.AnalysisResult, error) {
	if e.completer == nil {
		return practice.AnalysisResult{}, fmt.Errorf("%w: text generation not configured", ErrAnalysis)
	}

	reply, err := e.completer.Complete(ctx, ai.CompletionRequest{
		UserPrompt:  BuildPrompt(transcript, questionText, p),
		MaxTokens:   analysisMaxTokens,
		Temperature: analysisTemperature,
	})
	if err != nil {
		return practice.AnalysisResult{}, fmt.Errorf("%w: %w", ErrAnalysis, err)
	}

	result, err := ParseResult(reply)
	if err != nil {
		e.log.Warn().Err(err).Str("persona_id", p.ID).Msg("analysis reply rejected")
		return practice.AnalysisResult{}, fmt.Errorf("%w: %w", ErrAnalysis, err)
	}
	return result, nil
}

type rawScores struct {
	Clarity         *float64 `json:"clarity" validate:"required,gte=0,lte=10"`
	Confidence      *float64 `json:"confidence" validate:"required,gte=0,lte=10"`
	Relevance       *float64 `json:"relevance" validate:"required,gte=0,lte=10"`
	Accuracy        *float64 `json:"accuracy" validate:"required,gte=0,lte=10"`
	Professionalism *float64 `json:"professionalism" validate:"required,gte=0,lte=10"`
	Overall         *float64 `json:"overall" validate:"required,gte=0,lte=10"`
}

type rawResult struct {
	Scores       rawScores `json:"scores"`
	Strengths    []string  `json:"strengths" validate:"max=2,dive,required"`
	Improvements []string  `json:"improvements" validate:"len=3,dive,required"`
	Summary      string    `json:"summary" validate:"required"`
}

// ParseResult extracts the first JSON object from reply, trims the lists to
// their rubric sizes and validates every field.
func ParseResult(reply string) (practice.AnalysisResult, error) {
	raw, err := ai.ExtractObject(reply)
	if err != nil {
		return practice.AnalysisResult{}, err
	}

	var r rawResult
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return practice.AnalysisResult{}, fmt.Errorf("decode analysis: %w", err)
	}

	r.Summary = strings.TrimSpace(r.Summary)
	r.Strengths = trimList(r.Strengths, maxStrengths)
	r.Improvements = trimList(r.Improvements, maxImprovements)

	if err := validation.Struct(r); err != nil {
		return practice.AnalysisResult{}, err
	}

	return practice.AnalysisResult{
		Scores: practice.Scores{
			Clarity:         *r.Scores.Clarity,
			Confidence:      *r.Scores.Confidence,
			Relevance:       *r.Scores.Relevance,
			Accuracy:        *r.Scores.Accuracy,
			Professionalism: *r.Scores.Professionalism,
			Overall:         *r.Scores.Overall,
		},
		Strengths:    r.Strengths,
		Improvements: r.Improvements,
		Summary:      r.Summary,
	}, nil
}

// trimList drops blank items and keeps at most limit.
func trimList(items []string, limit int) []string {
	out := make([]string, 0, min(len(items), limit))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, item)
	}
	return out
}
