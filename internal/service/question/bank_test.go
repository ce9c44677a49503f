package question

import (
	"testing"
)

func TestPickPrefersPersonaQuestions(t *testing.T) {
	bank := testBank(t)
	personaID := "dr-james-rodriguez"
	tagged := bank.List(Filter{Persona: personaID})
	if len(tagged) < 3 {
		t.Fatalf("catalog needs at least 3 questions for %s", personaID)
	}

	taggedText := make(map[string]bool, len(tagged))
	for _, e := range tagged {
		taggedText[e.Text] = true
	}

	got := bank.Pick(personaID, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3, got %d", len(got))
	}
	for _, q := range got {
		if !taggedText[q.Text] {
			t.Fatalf("expected persona-tagged question, got %q", q.Text)
		}
	}
}

func TestPickTopsUpWithoutDuplicates(t *testing.T) {
	bank := testBank(t)
	personaID := "dr-aisha-patel"
	tagged := len(bank.List(Filter{Persona: personaID}))
	count := tagged + 3

	got := bank.Pick(personaID, count)
	if len(got) != count {
		t.Fatalf("expected %d, got %d", count, len(got))
	}

	seen := make(map[string]bool, len(got))
	for _, q := range got {
		if seen[q.Text] {
			t.Fatalf("duplicate question %q", q.Text)
		}
		seen[q.Text] = true
	}
}

func TestPickUnknownPersonaAndBounds(t *testing.T) {
	bank := testBank(t)

	if got := bank.Pick("nobody", 4); len(got) != 4 {
		t.Fatalf("expected 4 from the whole bank, got %d", len(got))
	}
	if got := bank.Pick("nobody", 0); len(got) != 0 {
		t.Fatalf("expected none, got %d", len(got))
	}
	if got := bank.Pick("", bank.Size()*2); len(got) != bank.Size() {
		t.Fatalf("expected %d, got %d", bank.Size(), len(got))
	}
}

func TestListFiltersAndLookup(t *testing.T) {
	bank := testBank(t)

	cases := []struct {
		name   string
		filter Filter
		check  func(Entry) bool
	}{
		{name: "category is case insensitive", filter: Filter{Category: "safety & tolerability"}, check: func(e Entry) bool { return e.Category == "Safety & Tolerability" }},
		{name: "difficulty", filter: Filter{Difficulty: "hard"}, check: func(e Entry) bool { return e.Difficulty == "hard" }},
		{name: "persona", filter: Filter{Persona: "dr-sarah-chen"}, check: func(e Entry) bool { return e.TaggedFor("dr-sarah-chen") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := bank.List(tc.filter)
			if len(got) == 0 {
				t.Fatalf("expected matches")
			}
			for _, e := range got {
				if !tc.check(e) {
					t.Fatalf("entry %d does not match filter %+v", e.ID, tc.filter)
				}
			}
		})
	}

	if len(bank.List(Filter{})) != bank.Size() {
		t.Fatalf("empty filter should list the whole bank")
	}
	if len(bank.Categories()) == 0 {
		t.Fatalf("expected categories")
	}
	if e, ok := bank.Get(1); !ok || e.ID != 1 {
		t.Fatalf("Get(1) = %+v, %v", e, ok)
	}
	if _, ok := bank.Get(9999); ok {
		t.Fatalf("expected miss for unknown id")
	}
	if e := bank.Random(); e.Text == "" {
		t.Fatalf("Random returned empty entry")
	}
}

func TestNewBankRejectsInvalidCatalog(t *testing.T) {
	cases := map[string]string{
		"empty":        "questions: []",
		"missing text": "questions:\n  - id: 1\n    category: A\n",
		"duplicate id": "questions:\n  - id: 1\n    text: a\n    category: A\n  - id: 1\n    text: b\n    category: A\n",
		"bad yaml":     "questions: [",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := NewBank([]byte(data)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
