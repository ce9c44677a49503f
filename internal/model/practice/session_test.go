package practice

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestComputeStats(t *testing.T) {
	cases := []struct {
		name      string
		answers   []Answer
		wantTime  float64
		wantAvg   float64
		wantJSON  string
		questions int
	}{
		{name: "no answers", questions: 5, wantJSON: `"avgConfidence":"0.00"`},
		{
			name:      "two answers",
			questions: 2,
			answers:   []Answer{{TimeTaken: 30, Confidence: 8}, {TimeTaken: 45, Confidence: 6}},
			wantTime:  75,
			wantAvg:   7,
			wantJSON:  `"avgConfidence":"7.00"`,
		},
		{
			name:      "rounding",
			questions: 3,
			answers:   []Answer{{TimeTaken: 10, Confidence: 7}, {TimeTaken: 10, Confidence: 8}, {TimeTaken: 10, Confidence: 8}},
			wantTime:  30,
			wantAvg:   23.0 / 3.0,
			wantJSON:  `"avgConfidence":"7.67"`,
		},
	}

	for _, tc := range cases {
		s := &Session{Questions: make([]Question, tc.questions), Answers: tc.answers}
		stats := ComputeStats(s)
		if stats.TotalTime != tc.wantTime || stats.AvgConfidence != tc.wantAvg {
			t.Errorf("%s: got %+v", tc.name, stats)
		}
		if stats.TotalQuestions != tc.questions {
			t.Errorf("%s: TotalQuestions = %d", tc.name, stats.TotalQuestions)
		}
		raw, _ := json.Marshal(stats)
		if !strings.Contains(string(raw), tc.wantJSON) {
			t.Errorf("%s: json %s missing %s", tc.name, raw, tc.wantJSON)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := &Session{
		ID:         "s1",
		Answers:    []Answer{{QuestionIndex: 0}},
		Recordings: []Recording{{Analysis: AnalysisResult{Strengths: []string{"clear"}}}},
	}
	c := s.Clone()
	c.Answers[0].QuestionIndex = 9
	c.Recordings[0].Analysis.Strengths[0] = "changed"

	if s.Answers[0].QuestionIndex != 0 || s.Recordings[0].Analysis.Strengths[0] != "clear" {
		t.Fatal("clone shares memory with original")
	}
}

func TestMemoryStoreAppendsAndIndex(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Put(ctx, &Session{ID: "s1", UserID: "u1", Status: StatusInProgress}); err != nil {
		t.Fatalf("Put err: %v", err)
	}

	idx, err := store.AppendAnswer(ctx, "s1", Answer{QuestionIndex: 2}, 3)
	if err != nil || idx != 3 {
		t.Fatalf("AppendAnswer = %d, %v", idx, err)
	}
	idx, _ = store.AppendAnswer(ctx, "s1", Answer{QuestionIndex: 0}, 1)
	if idx != 3 {
		t.Fatalf("currentQuestionIndex decreased to %d", idx)
	}

	got, _ := store.Get(ctx, "s1")
	if len(got.Answers) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(got.Answers))
	}

	if _, err := store.AppendRecording(ctx, "missing", Recording{}); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestMemoryStoreConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.Put(ctx, &Session{ID: "s1", UserID: "u1"})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = store.AppendAnswer(ctx, "s1", Answer{QuestionIndex: i}, i+1)
			_, _ = store.AppendRecording(ctx, "s1", Recording{QuestionIndex: i})
		}(i)
	}
	wg.Wait()

	got, _ := store.Get(ctx, "s1")
	if len(got.Answers) != 20 || len(got.Recordings) != 20 {
		t.Fatalf("lost appends: %d answers, %d recordings", len(got.Answers), len(got.Recordings))
	}
	if got.CurrentQuestionIndex != 20 {
		t.Fatalf("currentQuestionIndex = %d, want 20", got.CurrentQuestionIndex)
	}
}

func TestMemoryStoreCompleteKeepsFirstTimestamp(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.Put(ctx, &Session{ID: "s1", Status: StatusInProgress})

	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if _, err := store.Complete(ctx, "s1", first); err != nil {
		t.Fatalf("Complete err: %v", err)
	}
	got, _ := store.Complete(ctx, "s1", first.Add(time.Hour))
	if got.Status != StatusCompleted || !got.CompletedAt.Equal(first) {
		t.Fatalf("unexpected completion state: %v %v", got.Status, got.CompletedAt)
	}
}

func TestListByUserNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Now()
	_ = store.Put(ctx, &Session{ID: "old", UserID: "u1", CreatedAt: base.Add(-time.Hour)})
	_ = store.Put(ctx, &Session{ID: "new", UserID: "u1", CreatedAt: base})
	_ = store.Put(ctx, &Session{ID: "other", UserID: "u2", CreatedAt: base})

	got, _ := store.ListByUser(ctx, "u1")
	if len(got) != 2 || got[0].ID != "new" || got[1].ID != "old" {
		t.Fatalf("unexpected order: %v", ids(got))
	}
}

func ids(sessions []*Session) []string {
	out := make([]string, len(sessions))
	for i, s := range sessions {
		out[i] = s.ID
	}
	return out
}
