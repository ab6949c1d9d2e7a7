package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"
)

// AnonymousUserID marks an unauthenticated caller in contexts and
// capability checks.
const AnonymousUserID int64 = 0

type ctxKeyUserID struct{}

// UserIDFromContext returns the authenticated user id, or
// AnonymousUserID when the request carries no identity.
func UserIDFromContext(ctx context.Context) int64 {
	v, ok := ctx.Value(ctxKeyUserID{}).(int64)
	if !ok {
		return AnonymousUserID
	}
	return v
}

// WithUserID injects a user id into context. Useful for testing.
func WithUserID(ctx context.Context, uid int64) context.Context {
	return context.WithValue(ctx, ctxKeyUserID{}, uid)
}

type JWTVerifier struct {
	Secret []byte
}

// Parse validates the token and returns the numeric subject.
func (v JWTVerifier) Parse(tokenString string) (int64, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return v.Secret, nil
	})
	if err != nil {
		return 0, err
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return 0, errors.New("invalid token")
	}
	uid, err := strconv.ParseInt(strings.TrimSpace(claims.Subject), 10, 64)
	if err != nil || uid <= 0 {
		return 0, errors.New("invalid subject")
	}
	return uid, nil
}

func bearerToken(r *http.Request) (string, bool) {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if authz == "" {
		return "", false
	}
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// RequireUser middleware validates the Bearer token and injects the
// user id into context. Requests without a valid identity are rejected.
func RequireUser(verifier JWTVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			uid, err := verifier.Parse(token)
			if err != nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), uid)))
		})
	}
}

// OptionalUser middleware injects the user id when a valid Bearer token
// is present and lets the request through anonymously otherwise. Used
// on read routes where visibility still depends on the caller.
func OptionalUser(verifier JWTVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := bearerToken(r); ok {
				if uid, err := verifier.Parse(token); err == nil {
					r = r.WithContext(WithUserID(r.Context(), uid))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
