package redisstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/zhouzirui/msl-practice/backend/internal/model/practice"
)

func setupStore(t *testing.T) *SessionStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionStore(client)
}

func newSession(id, userID string, createdAt time.Time) *practice.Session {
	return &practice.Session{
		ID:          id,
		UserID:      userID,
		PersonaID:   "dr-sarah-chen",
		PersonaName: "Dr. Sarah Chen",
		Difficulty:  practice.DifficultyMedium,
		Questions: []practice.Question{
			{Text: "What was the primary endpoint?", Category: "Clinical Data", Difficulty: "medium", TimeLimit: 90},
			{Text: "How do you handle grade 3 rash?", Category: "Safety", Difficulty: "medium", TimeLimit: 90},
		},
		Status:    practice.StatusInProgress,
		CreatedAt: createdAt.UTC(),
	}
}

func TestPutGet(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	sess := newSession("s1", "u1", time.Now())
	if err := store.Put(ctx, sess); err != nil {
		t.Fatalf("Put err: %v", err)
	}

	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if got.PersonaName != sess.PersonaName || len(got.Questions) != 2 || got.Status != practice.StatusInProgress {
		t.Fatalf("unexpected session %+v", got)
	}
	if len(got.Answers) != 0 || len(got.Recordings) != 0 {
		t.Fatalf("expected empty appends, got %d/%d", len(got.Answers), len(got.Recordings))
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, practice.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestAppendAnswerKeepsIndexMonotonic(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	_ = store.Put(ctx, newSession("s1", "u1", time.Now()))

	idx, err := store.AppendAnswer(ctx, "s1", practice.Answer{QuestionIndex: 1, AnswerText: "b"}, 2)
	if err != nil || idx != 2 {
		t.Fatalf("AppendAnswer = %d, %v", idx, err)
	}
	idx, err = store.AppendAnswer(ctx, "s1", practice.Answer{QuestionIndex: 0, AnswerText: "a"}, 1)
	if err != nil || idx != 2 {
		t.Fatalf("AppendAnswer = %d, %v", idx, err)
	}

	got, _ := store.Get(ctx, "s1")
	if len(got.Answers) != 2 || got.Answers[1].AnswerText != "a" {
		t.Fatalf("unexpected answers %+v", got.Answers)
	}
	if got.CurrentQuestionIndex != 2 {
		t.Fatalf("CurrentQuestionIndex = %d", got.CurrentQuestionIndex)
	}

	if _, err := store.AppendAnswer(ctx, "missing", practice.Answer{}, 1); !errors.Is(err, practice.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestAppendRecordingConcurrent(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	_ = store.Put(ctx, newSession("s1", "u1", time.Now()))

	var wg sync.WaitGroup
	indexes := make(chan int, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			idx, err := store.AppendRecording(ctx, "s1", practice.Recording{QuestionIndex: i})
			if err != nil {
				t.Errorf("AppendRecording err: %v", err)
				return
			}
			indexes <- idx
		}(i)
	}
	wg.Wait()
	close(indexes)

	seen := map[int]bool{}
	for idx := range indexes {
		if seen[idx] {
			t.Fatalf("index %d returned twice", idx)
		}
		seen[idx] = true
	}

	got, _ := store.Get(ctx, "s1")
	if len(got.Recordings) != 10 {
		t.Fatalf("expected 10 recordings, got %d", len(got.Recordings))
	}
}

func TestCompleteAndList(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	base := time.Now()
	_ = store.Put(ctx, newSession("old", "u1", base.Add(-time.Hour)))
	_ = store.Put(ctx, newSession("new", "u1", base))
	_ = store.Put(ctx, newSession("theirs", "u2", base))

	first := base.Add(time.Minute).UTC()
	done, err := store.Complete(ctx, "old", first)
	if err != nil {
		t.Fatalf("Complete err: %v", err)
	}
	again, _ := store.Complete(ctx, "old", first.Add(time.Hour))
	if done.Status != practice.StatusCompleted || !again.CompletedAt.Equal(first) {
		t.Fatalf("completion not stable: %v / %v", done.CompletedAt, again.CompletedAt)
	}

	list, err := store.ListByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListByUser err: %v", err)
	}
	if len(list) != 2 || list[0].ID != "new" || list[1].ID != "old" {
		t.Fatalf("unexpected list order")
	}

	if _, err := store.Complete(ctx, "missing", first); !errors.Is(err, practice.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
