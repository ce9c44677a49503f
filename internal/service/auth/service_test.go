package auth

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/zhouzirui/msl-practice/backend/internal/apperr"
	"github.com/zhouzirui/msl-practice/backend/internal/model/user"
)

func newTestService(t *testing.T) (*Service, *user.MemoryStore) {
	t.Helper()
	tokens, err := NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer err: %v", err)
	}
	users := user.NewMemoryStore()
	return NewService(users, tokens), users
}

func TestRegisterAndLogin(t *testing.T) {
	svc, users := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterRequest{Email: "Trainee@Example.com ", Password: "s3cret", Name: "Jo"})
	if err != nil {
		t.Fatalf("Register err: %v", err)
	}
	if reg.Token == "" || reg.User.Email != "trainee@example.com" {
		t.Fatalf("unexpected register result %+v", reg)
	}

	stored, _ := users.GetByEmail(ctx, "trainee@example.com")
	if cost, err := bcrypt.Cost([]byte(stored.PasswordHash)); err != nil || cost != BcryptCost {
		t.Fatalf("hash cost = %d, %v", cost, err)
	}
	raw, _ := json.Marshal(stored)
	if strings.Contains(string(raw), stored.PasswordHash) {
		t.Fatal("password hash leaked into json")
	}

	login, err := svc.Login(ctx, LoginRequest{Email: "trainee@example.com", Password: "s3cret"})
	if err != nil {
		t.Fatalf("Login err: %v", err)
	}
	claims, err := svc.Authenticate(login.Token)
	if err != nil || claims.UserID != reg.User.ID || claims.Email != "trainee@example.com" {
		t.Fatalf("Authenticate = %+v, %v", claims, err)
	}

	me, err := svc.Me(ctx, claims.UserID)
	if err != nil || me.Name != "Jo" {
		t.Fatalf("Me = %+v, %v", me, err)
	}
}

func TestRegisterErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, _ = svc.Register(ctx, RegisterRequest{Email: "a@example.com", Password: "pw", Name: "A"})

	cases := []struct {
		name string
		req  RegisterRequest
		kind apperr.Kind
	}{
		{name: "missing name", req: RegisterRequest{Email: "b@example.com", Password: "pw"}, kind: apperr.KindValidation},
		{name: "missing password", req: RegisterRequest{Email: "b@example.com", Name: "B"}, kind: apperr.KindValidation},
		{name: "duplicate", req: RegisterRequest{Email: "A@example.com", Password: "pw", Name: "A2"}, kind: apperr.KindConflict},
	}
	for _, tc := range cases {
		if _, err := svc.Register(ctx, tc.req); !apperr.Is(err, tc.kind) {
			t.Errorf("%s: expected %s, got %v", tc.name, tc.kind, err)
		}
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, _ = svc.Register(ctx, RegisterRequest{Email: "a@example.com", Password: "pw", Name: "A"})

	for _, req := range []LoginRequest{
		{Email: "a@example.com", Password: "wrong"},
		{Email: "nobody@example.com", Password: "pw"},
	} {
		if _, err := svc.Login(ctx, req); !apperr.Is(err, apperr.KindUnauthorized) {
			t.Errorf("%s: expected unauthorized, got %v", req.Email, err)
		}
	}
}

func TestTokenExpiryAndTampering(t *testing.T) {
	issuer, _ := NewTokenIssuer("secret", time.Minute)
	base := time.Now()
	issuer.now = func() time.Time { return base }

	token, err := issuer.Issue("u1", "a@example.com")
	if err != nil {
		t.Fatalf("Issue err: %v", err)
	}
	if _, err := issuer.Parse(token); err != nil {
		t.Fatalf("Parse err: %v", err)
	}

	other, _ := NewTokenIssuer("different", time.Minute)
	if _, err := other.Parse(token); err == nil {
		t.Fatal("expected signature error")
	}

	issuer.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := issuer.Parse(token); err == nil {
		t.Fatal("expected expiry error")
	}

	if _, err := NewTokenIssuer("", 0); err == nil {
		t.Fatal("expected missing secret error")
	}
}
