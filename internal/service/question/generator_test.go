package question

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/zhouzirui/msl-practice/backend/internal/model/persona"
	"github.com/zhouzirui/msl-practice/backend/internal/service/ai"
)

type fakeCompleter struct {
	reply string
	err   error
	calls int
	last  ai.CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req ai.CompletionRequest) (string, error) {
	f.calls++
	f.last = req
	return f.reply, f.err
}

func testBank(t *testing.T) *Bank {
	t.Helper()
	bank, err := LoadBank(WithRand(rand.New(rand.NewPCG(1, 2))))
	if err != nil {
		t.Fatalf("LoadBank err: %v", err)
	}
	return bank
}

func testPersona() *persona.Persona {
	p := persona.Seed()[0]
	return &p
}

func TestGenerateUsesModelReply(t *testing.T) {
	fake := &fakeCompleter{reply: `Sure! Here are your questions:
[
  {"text": "What was the hazard ratio for PFS?", "category": "Clinical Data & Evidence", "difficulty": "hard"},
  {"question": "How is [grade 3] rash managed?", "category": "Safety & Tolerability"},
  {"text": "Who qualifies?", "category": "Patient Selection", "difficulty": "hard", "timeLimit": 60}
]`}
	gen := NewGenerator(fake, testBank(t))

	got := gen.Generate(context.Background(), testPersona(), "hard", 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(got))
	}
	if got[1].Text != "How is [grade 3] rash managed?" {
		t.Fatalf("question field not normalized: %q", got[1].Text)
	}
	if got[1].Difficulty != "hard" || got[1].TimeLimit != DefaultTimeLimit {
		t.Fatalf("defaults not applied: %+v", got[1])
	}

	if fake.calls != 1 {
		t.Fatalf("expected a single model call, got %d", fake.calls)
	}
	if fake.last.MaxTokens != 1500 || fake.last.Temperature != 0.7 {
		t.Fatalf("unexpected generation params %+v", fake.last)
	}
	if fake.last.SystemPrompt != generationSystemPrompt {
		t.Fatalf("unexpected system prompt %q", fake.last.SystemPrompt)
	}
}

func TestGenerateFallsBack(t *testing.T) {
	cases := []struct {
		name string
		fake *fakeCompleter
	}{
		{name: "capability error", fake: &fakeCompleter{err: errors.New("upstream 503")}},
		{name: "no json", fake: &fakeCompleter{reply: "I cannot help with that."}},
		{name: "invalid json", fake: &fakeCompleter{reply: `[{"text": "a",}]`}},
		{name: "missing text", fake: &fakeCompleter{reply: `[{"category":"Safety & Tolerability"},{"text":"b","category":"c"},{"text":"c","category":"c"}]`}},
		{name: "missing category", fake: &fakeCompleter{reply: `[{"text":"a"},{"text":"b"},{"text":"c"}]`}},
		{name: "too few", fake: &fakeCompleter{reply: `[{"text":"a","category":"c"}]`}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := NewGenerator(tc.fake, testBank(t))
			got := gen.Generate(context.Background(), testPersona(), "medium", 3)
			if len(got) != 3 {
				t.Fatalf("expected 3 fallback questions, got %d", len(got))
			}
			for _, q := range got {
				if strings.TrimSpace(q.Text) == "" {
					t.Fatalf("fallback question has empty text: %+v", q)
				}
			}
		})
	}
}

func TestGenerateWithoutCompleter(t *testing.T) {
	bank := testBank(t)
	gen := NewGenerator(nil, bank)

	got := gen.Generate(context.Background(), testPersona(), "easy", bank.Size()+5)
	if len(got) != bank.Size() {
		t.Fatalf("expected whole bank (%d), got %d", bank.Size(), len(got))
	}
}

func TestBuildPrompt(t *testing.T) {
	p := testPersona()
	prompt := BuildPrompt(p, "hard", 4)

	for _, want := range []string{
		"Generate 4 realistic",
		p.Name,
		p.Title,
		p.Specialty,
		p.PracticeSetting.Type,
		p.CommunicationStyle.Tone,
		`"difficulty":"hard"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	for _, priority := range p.TopPriorities(3) {
		if !strings.Contains(prompt, priority) {
			t.Fatalf("prompt missing priority %q", priority)
		}
	}
}
