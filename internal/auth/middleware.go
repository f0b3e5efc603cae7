package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/marekholub/auth-api/internal/httputil"
	"github.com/marekholub/auth-api/internal/logging"
	"github.com/marekholub/auth-api/internal/user"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const (
	// SubjectContextKey holds the verified subject (user ID) of the access token
	SubjectContextKey ContextKey = "auth_subject"
)

// Middleware guards protected routes. RequireAuth only verifies the access
// token; RequireRole additionally resolves the user record and checks its
// capability level. Authentication failures (401) always take precedence
// over authorization failures (403).
type Middleware struct {
	codec *TokenCodec
	users UserStore
}

func NewMiddleware(codec *TokenCodec, users UserStore) *Middleware {
	return &Middleware{codec: codec, users: users}
}

// RequireAuth validates the bearer access token and attaches the verified
// subject to the request context. It never touches the user record.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := m.authenticate(w, r)
		if !ok {
			return
		}

		ctx := context.WithValue(r.Context(), SubjectContextKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole composes RequireAuth's verification with a capability check
// on the resolved user record.
func (m *Middleware) RequireRole(required user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := m.authenticate(w, r)
			if !ok {
				return
			}

			resolved, err := m.users.GetByID(r.Context(), claims.Subject)
			if err != nil {
				if errors.Is(err, user.ErrNotFound) {
					// Valid token for a deleted account: authenticated but
					// not authorized.
					httputil.RespondErrorWithCode(w, "access denied", httputil.CodeForbidden, http.StatusForbidden)
					return
				}
				logger := logging.GetLoggerFromContext(r.Context())
				logger.Error("failed to resolve user for role check", "error", err.Error())
				httputil.RespondErrorWithCode(w, "internal error", httputil.CodeInternalError, http.StatusInternalServerError)
				return
			}

			if !resolved.Role.Can(required) {
				httputil.RespondErrorWithCode(w, "access denied, insufficient privileges", httputil.CodeForbidden, http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), SubjectContextKey, claims.Subject)
			ctx = user.NewContext(ctx, resolved)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authenticate extracts and verifies the bearer token, writing the 401
// response itself on failure.
func (m *Middleware) authenticate(w http.ResponseWriter, r *http.Request) (*TokenClaims, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		httputil.RespondErrorWithCode(w, "no token, authorization denied", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return nil, false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		httputil.RespondErrorWithCode(w, "invalid authorization header format", httputil.CodeInvalidAuthHeader, http.StatusUnauthorized)
		return nil, false
	}

	claims, err := m.codec.Verify(parts[1], PurposeAccess)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			httputil.RespondErrorWithCode(w, "token has expired", httputil.CodeTokenExpired, http.StatusUnauthorized)
			return nil, false
		}
		httputil.RespondErrorWithCode(w, "invalid token", httputil.CodeInvalidToken, http.StatusUnauthorized)
		return nil, false
	}

	return claims, true
}

// GetSubjectFromContext extracts the verified subject from the request context.
func GetSubjectFromContext(ctx context.Context) (uuid.UUID, bool) {
	subject, ok := ctx.Value(SubjectContextKey).(uuid.UUID)
	return subject, ok
}
