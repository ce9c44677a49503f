// Package auth registers trainees, checks their passwords and issues the
// bearer tokens every practice route requires.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/zhouzirui/msl-practice/backend/internal/apperr"
	"github.com/zhouzirui/msl-practice/backend/internal/logger"
	"github.com/zhouzirui/msl-practice/backend/internal/model/user"
	"github.com/zhouzirui/msl-practice/backend/internal/validation"
)

// BcryptCost is the work factor for stored password hashes.
const BcryptCost = 10

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Result carries a signed token and the public user record.
type Result struct {
	Token string     `json:"token"`
	User  *user.User `json:"user"`
}

// Service implements register, login and me.
type Service struct {
	users  user.Store
	tokens *TokenIssuer
	now    func() time.Time
	log    zerolog.Logger
}

// NewService wires the identity store to a token issuer.
func NewService(users user.Store, tokens *TokenIssuer) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		now:    time.Now,
		log:    logger.Component("auth"),
	}
}

// Register creates a user and signs a token for it.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (Result, error) {
	if err := validation.Struct(req); err != nil {
		return Result{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), BcryptCost)
	if err != nil {
		return Result{}, apperr.Service("hash password", err)
	}

	u := &user.User{
		ID:           uuid.NewString(),
		Email:        user.NormalizeEmail(req.Email),
		Name:         req.Name,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return Result{}, apperr.Conflict("User already exists")
		}
		return Result{}, apperr.Service("create user", err)
	}

	token, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return Result{}, apperr.Service("issue token", err)
	}
	s.log.Info().Str("user_id", u.ID).Msg("user registered")
	return Result{Token: token, User: u}, nil
}

// Login checks the password and signs a fresh token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req LoginRequest) (Result, error) {
	if err := validation.Struct(req); err != nil {
		return Result{}, err
	}

	u, err := s.users.GetByEmail(ctx, user.NormalizeEmail(req.Email))
	if errors.Is(err, user.ErrNotFound) {
		return Result{}, apperr.Unauthorized("Invalid credentials")
	}
	if err != nil {
		return Result{}, apperr.Service("load user", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return Result{}, apperr.Unauthorized("Invalid credentials")
	}

	token, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return Result{}, apperr.Service("issue token", err)
	}
	return Result{Token: token, User: u}, nil
}

// Me returns the caller's user record.
func (s *Service) Me(ctx context.Context, userID string) (*user.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, user.ErrNotFound) {
		return nil, apperr.NotFound("User")
	}
	if err != nil {
		return nil, apperr.Service("load user", err)
	}
	return u, nil
}

// Authenticate resolves a bearer token to its claims.
func (s *Service) Authenticate(token string) (*Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired token")
	}
	return claims, nil
}
