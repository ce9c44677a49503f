// Package middleware holds the HTTP middleware shared by every route group.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/zhouzirui/msl-practice/backend/internal/apperr"
	"github.com/zhouzirui/msl-practice/backend/internal/service/auth"
	"github.com/zhouzirui/msl-practice/backend/pkg/utils"
)

type claimsKey struct{}

// Authenticator resolves a bearer token to claims.
type Authenticator interface {
	Authenticate(token string) (*auth.Claims, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller's claims in the request context.
func RequireAuth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				utils.RespondAppError(w, apperr.Unauthorized("Access token required"))
				return
			}
			claims, err := authn.Authenticate(token)
			if err != nil {
				utils.RespondAppError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// WithClaims stores claims in ctx.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFrom returns the claims stored by RequireAuth.
func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return claims, ok && claims != nil
}

// UserID returns the authenticated user id, or "" outside RequireAuth.
func UserID(ctx context.Context) string {
	if claims, ok := ClaimsFrom(ctx); ok {
		return claims.UserID
	}
	return ""
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
