package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/zhouzirui/msl-practice/backend/internal/model/persona"
	"github.com/zhouzirui/msl-practice/backend/internal/service/ai"
)

type fakeCompleter struct {
	reply string
	err   error
	last  ai.CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req ai.CompletionRequest) (string, error) {
	f.last = req
	return f.reply, f.err
}

const validReply = `Here is the analysis:
{
  "scores": {"clarity": 7.5, "confidence": 8, "relevance": 9, "accuracy": 8.5, "professionalism": 9, "overall": 8.4},
  "strengths": ["Cited the primary endpoint", "Calm tone", "Good structure"],
  "improvements": ["Quantify the benefit", "Mention safety", "Close with a question", "Extra"],
  "summary": "Solid answer with room to tighten the data story."
}`

func testPersona() *persona.Persona {
	p := persona.Seed()[0]
	return &p
}

func TestAnalyze(t *testing.T) {
	fake := &fakeCompleter{reply: validReply}
	engine := NewEngine(fake)

	got, err := engine.Analyze(context.Background(), "The trial met its primary endpoint.", "What was the primary endpoint?", testPersona())
	if err != nil {
		t.Fatalf("Analyze err: %v", err)
	}
	if got.Scores.Overall != 8.4 || got.Scores.Confidence != 8 {
		t.Fatalf("unexpected scores %+v", got.Scores)
	}
	if len(got.Strengths) != 2 || len(got.Improvements) != 3 {
		t.Fatalf("lists not trimmed: %d strengths %d improvements", len(got.Strengths), len(got.Improvements))
	}
	if fake.last.MaxTokens != 800 || fake.last.Temperature != 0.3 {
		t.Fatalf("unexpected params %+v", fake.last)
	}
	if !strings.Contains(fake.last.UserPrompt, "The trial met its primary endpoint.") ||
		!strings.Contains(fake.last.UserPrompt, "What was the primary endpoint?") {
		t.Fatalf("prompt missing transcript or question")
	}
}

func TestAnalyzeFailures(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		err   error
	}{
		{name: "capability error", err: errors.New("timeout")},
		{name: "no object", reply: "Great answer!"},
		{name: "malformed", reply: `{"scores": {"clarity": 7,}}`},
		{name: "score out of range", reply: `{"scores":{"clarity":11,"confidence":8,"relevance":9,"accuracy":8,"professionalism":9,"overall":9},"strengths":[],"improvements":["a","b","c"],"summary":"s"}`},
		{name: "negative overall", reply: `{"scores":{"clarity":1,"confidence":8,"relevance":9,"accuracy":8,"professionalism":9,"overall":-1},"strengths":[],"improvements":["a","b","c"],"summary":"s"}`},
		{name: "missing score", reply: `{"scores":{"clarity":7,"confidence":8,"relevance":9,"accuracy":8,"overall":8},"strengths":[],"improvements":["a","b","c"],"summary":"s"}`},
		{name: "two improvements", reply: `{"scores":{"clarity":7,"confidence":8,"relevance":9,"accuracy":8,"professionalism":9,"overall":8},"strengths":["x"],"improvements":["a","b"],"summary":"s"}`},
		{name: "empty summary", reply: `{"scores":{"clarity":7,"confidence":8,"relevance":9,"accuracy":8,"professionalism":9,"overall":8},"strengths":["x"],"improvements":["a","b","c"],"summary":"  "}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := NewEngine(&fakeCompleter{reply: tc.reply, err: tc.err})
			_, err := engine.Analyze(context.Background(), "answer", "question", testPersona())
			if !errors.Is(err, ErrAnalysis) {
				t.Fatalf("expected ErrAnalysis, got %v", err)
			}
		})
	}

	if _, err := NewEngine(nil).Analyze(context.Background(), "a", "q", testPersona()); !errors.Is(err, ErrAnalysis) {
		t.Fatalf("expected ErrAnalysis without completer, got %v", err)
	}
}

func TestParseResultOverallInRange(t *testing.T) {
	got, err := ParseResult(`{"scores":{"clarity":0,"confidence":10,"relevance":5,"accuracy":5,"professionalism":5,"overall":0},"strengths":[],"improvements":["a","b","c"],"summary":"ok"}`)
	if err != nil {
		t.Fatalf("ParseResult err: %v", err)
	}
	if got.Scores.Overall < 0 || got.Scores.Overall > 10 {
		t.Fatalf("overall out of range: %v", got.Scores.Overall)
	}
}
