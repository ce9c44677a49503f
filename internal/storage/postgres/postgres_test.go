package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/msl-practice/backend/internal/model/persona"
	"github.com/zhouzirui/msl-practice/backend/internal/model/practice"
	"github.com/zhouzirui/msl-practice/backend/internal/model/user"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping postgres tests")
	}

	db, err := Open(context.Background(), Config{DSN: dsn, MaxConns: 4})
	if err != nil {
		t.Fatalf("Open err: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func TestMigrationNamesSorted(t *testing.T) {
	names, err := migrationNames()
	if err != nil {
		t.Fatalf("migrationNames err: %v", err)
	}
	if len(names) == 0 || names[0] != "001_init.sql" {
		t.Fatalf("unexpected migrations %v", names)
	}
}

func TestSessionStoreRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := db.Sessions()

	userID := "user-" + uuid.NewString()
	sess := &practice.Session{
		ID:          uuid.NewString(),
		UserID:      userID,
		PersonaID:   "dr-sarah-chen",
		PersonaName: "Dr. Sarah Chen",
		Difficulty:  practice.DifficultyMedium,
		Questions:   []practice.Question{{Text: "Why?", Category: "Clinical Data", Difficulty: "medium", TimeLimit: 90}},
		Status:      practice.StatusInProgress,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := store.Put(ctx, sess); err != nil {
		t.Fatalf("Put err: %v", err)
	}

	idx, err := store.AppendAnswer(ctx, sess.ID, practice.Answer{QuestionIndex: 0, TimeTaken: 30, Confidence: 8}, 1)
	if err != nil || idx != 1 {
		t.Fatalf("AppendAnswer = %d, %v", idx, err)
	}
	idx, _ = store.AppendAnswer(ctx, sess.ID, practice.Answer{QuestionIndex: 0}, 1)
	if idx != 1 {
		t.Fatalf("duplicate answer changed index to %d", idx)
	}

	recIdx, err := store.AppendRecording(ctx, sess.ID, practice.Recording{StorageKey: "recordings/x/1.webm"})
	if err != nil || recIdx != 0 {
		t.Fatalf("AppendRecording = %d, %v", recIdx, err)
	}

	completed, err := store.Complete(ctx, sess.ID, time.Now())
	if err != nil {
		t.Fatalf("Complete err: %v", err)
	}
	if completed.Status != practice.StatusCompleted || completed.CompletedAt == nil {
		t.Fatalf("unexpected completion: %+v", completed)
	}
	if len(completed.Answers) != 2 || len(completed.Recordings) != 1 {
		t.Fatalf("appends not persisted: %d answers %d recordings", len(completed.Answers), len(completed.Recordings))
	}

	list, err := store.ListByUser(ctx, userID)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListByUser = %d, %v", len(list), err)
	}

	if _, err := store.Get(ctx, "missing-"+uuid.NewString()); !errors.Is(err, practice.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestUserStoreDuplicateEmail(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := db.Users()

	email := uuid.NewString() + "@example.com"
	u := &user.User{ID: uuid.NewString(), Email: email, Name: "A", PasswordHash: "x", CreatedAt: time.Now()}
	if err := store.Create(ctx, u); err != nil {
		t.Fatalf("Create err: %v", err)
	}
	dup := &user.User{ID: uuid.NewString(), Email: email, Name: "B", PasswordHash: "y", CreatedAt: time.Now()}
	if err := store.Create(ctx, dup); !errors.Is(err, user.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if err := store.IncrementSessions(ctx, u.ID); err != nil {
		t.Fatalf("IncrementSessions err: %v", err)
	}
	got, _ := store.GetByEmail(ctx, email)
	if got.TotalSessions != 1 {
		t.Fatalf("TotalSessions = %d", got.TotalSessions)
	}
}

func TestPersonaStoreSeed(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := db.Personas()

	for _, p := range persona.Seed() {
		if err := store.Put(ctx, p); err != nil {
			t.Fatalf("Put err: %v", err)
		}
	}
	got, err := store.Get(ctx, persona.Seed()[0].ID)
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if got.CommunicationStyle.Tone == "" {
		t.Fatalf("persona document lost fields: %+v", got)
	}
}
