package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marekholub/auth-api/internal/httputil"
	"github.com/marekholub/auth-api/internal/user"
)

// fakeRateLimiter allows everything unless a test flips a flag.
type fakeRateLimiter struct {
	ipLimited  bool
	onCooldown bool
}

func (l *fakeRateLimiter) CheckIPRateLimit(context.Context, string, string) (bool, error) {
	return l.ipLimited, nil
}

func (l *fakeRateLimiter) RecordIPRequest(context.Context, string, string) error { return nil }

func (l *fakeRateLimiter) CheckEmailCooldown(context.Context, string) (bool, error) {
	return l.onCooldown, nil
}

func (l *fakeRateLimiter) SetEmailCooldown(context.Context, string) error { return nil }

type handlerFixture struct {
	*serviceFixture
	handler *Handler
	limiter *fakeRateLimiter
	router  *chi.Mux
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	sf := newServiceFixture(t)
	limiter := &fakeRateLimiter{}
	handler := NewHandler(sf.service, limiter, testLogger())

	r := chi.NewRouter()
	r.Post("/auth/register", handler.Register)
	r.Post("/auth/login", handler.Login)
	r.Post("/auth/refresh-token", handler.Refresh)
	r.Get("/auth/verify-email/{token}", handler.VerifyEmail)
	r.Post("/auth/request-password-reset", handler.ForgotPassword)
	r.Post("/auth/reset-password", handler.ResetPassword)

	mw := NewMiddleware(sf.codec, sf.users)
	r.With(mw.RequireAuth).Get("/auth/check-admin", handler.CheckAdmin)

	return &handlerFixture{
		serviceFixture: sf,
		handler:        handler,
		limiter:        limiter,
		router:         r,
	}
}

func (f *handlerFixture) postJSON(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *handlerFixture) get(t *testing.T, path, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterEndpoint(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.postJSON(t, "/auth/register", RegisterRequest{
		Email:    "new@example.com",
		Password: "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp RegisterResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "new@example.com", resp.User.Email)
	assert.NotEqual(t, "", resp.User.ID.String())
	waitForMail(t, f.notifier.verifications)

	t.Run("duplicate email", func(t *testing.T) {
		rec := f.postJSON(t, "/auth/register", RegisterRequest{
			Email:    "new@example.com",
			Password: "password123",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, httputil.CodeEmailAlreadyExists, decodeErrorResponse(t, rec).Code)
	})

	t.Run("short password", func(t *testing.T) {
		rec := f.postJSON(t, "/auth/register", RegisterRequest{
			Email:    "other@example.com",
			Password: "short",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, httputil.CodePasswordTooShort, decodeErrorResponse(t, rec).Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, httputil.CodeInvalidRequestBody, decodeErrorResponse(t, rec).Code)
	})

	t.Run("rate limited", func(t *testing.T) {
		f.limiter.ipLimited = true
		defer func() { f.limiter.ipLimited = false }()

		rec := f.postJSON(t, "/auth/register", RegisterRequest{
			Email:    "limited@example.com",
			Password: "password123",
		})
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, httputil.CodeTooManyRequests, decodeErrorResponse(t, rec).Code)
	})
}

func TestLoginEndpoint(t *testing.T) {
	f := newHandlerFixture(t)
	f.registerVerified(t, "user@example.com", "password123")

	t.Run("success", func(t *testing.T) {
		rec := f.postJSON(t, "/auth/login", LoginRequest{Email: "user@example.com", Password: "password123"})
		require.Equal(t, http.StatusOK, rec.Code)

		var tokens AuthTokens
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&tokens))
		assert.NotEmpty(t, tokens.AccessToken)
		assert.NotEmpty(t, tokens.RefreshToken)
		assert.Equal(t, "Bearer", tokens.TokenType)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := f.postJSON(t, "/auth/login", LoginRequest{Email: "user@example.com", Password: "wrong"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, httputil.CodeInvalidCredentials, decodeErrorResponse(t, rec).Code)
	})

	t.Run("unknown email", func(t *testing.T) {
		rec := f.postJSON(t, "/auth/login", LoginRequest{Email: "nobody@example.com", Password: "password123"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, httputil.CodeInvalidCredentials, decodeErrorResponse(t, rec).Code)
	})

	t.Run("unverified email", func(t *testing.T) {
		_, err := f.service.Register(context.Background(), "pending@example.com", "password123", nil)
		require.NoError(t, err)
		waitForMail(t, f.notifier.verifications)

		rec := f.postJSON(t, "/auth/login", LoginRequest{Email: "pending@example.com", Password: "password123"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, httputil.CodeEmailNotVerified, decodeErrorResponse(t, rec).Code)
	})
}

func TestRefreshEndpoint(t *testing.T) {
	f := newHandlerFixture(t)
	f.registerVerified(t, "user@example.com", "password123")

	loginRec := f.postJSON(t, "/auth/login", LoginRequest{Email: "user@example.com", Password: "password123"})
	require.Equal(t, http.StatusOK, loginRec.Code)
	var tokens AuthTokens
	require.NoError(t, json.NewDecoder(loginRec.Body).Decode(&tokens))

	t.Run("success", func(t *testing.T) {
		rec := f.postJSON(t, "/auth/refresh-token", RefreshRequest{RefreshToken: tokens.RefreshToken})
		require.Equal(t, http.StatusOK, rec.Code)

		var refreshed AuthTokens
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&refreshed))
		assert.NotEmpty(t, refreshed.AccessToken)
		assert.Empty(t, refreshed.RefreshToken)
	})

	t.Run("missing token", func(t *testing.T) {
		rec := f.postJSON(t, "/auth/refresh-token", RefreshRequest{})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, httputil.CodeRefreshTokenRequired, decodeErrorResponse(t, rec).Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		rec := f.postJSON(t, "/auth/refresh-token", RefreshRequest{RefreshToken: "garbage"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, httputil.CodeInvalidRefreshToken, decodeErrorResponse(t, rec).Code)
	})

	t.Run("access token rejected", func(t *testing.T) {
		rec := f.postJSON(t, "/auth/refresh-token", RefreshRequest{RefreshToken: tokens.AccessToken})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, httputil.CodeInvalidRefreshToken, decodeErrorResponse(t, rec).Code)
	})
}

func TestVerifyEmailEndpoint(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.postJSON(t, "/auth/register", RegisterRequest{Email: "user@example.com", Password: "password123"})
	require.Equal(t, http.StatusCreated, rec.Code)
	mail := waitForMail(t, f.notifier.verifications)

	t.Run("success then login", func(t *testing.T) {
		rec := f.get(t, "/auth/verify-email/"+mail.token, "")
		assert.Equal(t, http.StatusOK, rec.Code)

		loginRec := f.postJSON(t, "/auth/login", LoginRequest{Email: "user@example.com", Password: "password123"})
		assert.Equal(t, http.StatusOK, loginRec.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		rec := f.get(t, "/auth/verify-email/garbage", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, httputil.CodeVerificationFailed, decodeErrorResponse(t, rec).Code)
	})

	t.Run("expired token", func(t *testing.T) {
		u, err := f.users.GetByEmail(context.Background(), "user@example.com")
		require.NoError(t, err)
		expired, err := f.codec.Issue(u.ID, PurposeVerifyEmail, -time.Minute)
		require.NoError(t, err)

		rec := f.get(t, "/auth/verify-email/"+expired, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, httputil.CodeTokenExpired, decodeErrorResponse(t, rec).Code)
	})
}

func TestPasswordResetEndpoints(t *testing.T) {
	f := newHandlerFixture(t)
	f.registerVerified(t, "user@example.com", "old password")

	t.Run("unknown email", func(t *testing.T) {
		rec := f.postJSON(t, "/auth/request-password-reset", ForgotPasswordRequest{Email: "nobody@example.com"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, httputil.CodeUserNotFound, decodeErrorResponse(t, rec).Code)
	})

	t.Run("email cooldown", func(t *testing.T) {
		f.limiter.onCooldown = true
		defer func() { f.limiter.onCooldown = false }()

		rec := f.postJSON(t, "/auth/request-password-reset", ForgotPasswordRequest{Email: "user@example.com"})
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, httputil.CodeCooldownActive, decodeErrorResponse(t, rec).Code)
	})

	rec := f.postJSON(t, "/auth/request-password-reset", ForgotPasswordRequest{Email: "user@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	mail := waitForMail(t, f.notifier.resets)

	t.Run("reset then replay", func(t *testing.T) {
		rec := f.postJSON(t, "/auth/reset-password", ResetPasswordRequest{Token: mail.token, NewPassword: "new password"})
		assert.Equal(t, http.StatusOK, rec.Code)

		loginRec := f.postJSON(t, "/auth/login", LoginRequest{Email: "user@example.com", Password: "new password"})
		assert.Equal(t, http.StatusOK, loginRec.Code)

		replayRec := f.postJSON(t, "/auth/reset-password", ResetPasswordRequest{Token: mail.token, NewPassword: "yet another"})
		assert.Equal(t, http.StatusBadRequest, replayRec.Code)
		assert.Equal(t, httputil.CodeInvalidResetToken, decodeErrorResponse(t, replayRec).Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := f.postJSON(t, "/auth/reset-password", ResetPasswordRequest{Token: "garbage", NewPassword: "new password"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, httputil.CodeInvalidResetToken, decodeErrorResponse(t, rec).Code)
	})

	t.Run("short password", func(t *testing.T) {
		rec := f.postJSON(t, "/auth/reset-password", ResetPasswordRequest{Token: "whatever", NewPassword: "short"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, httputil.CodePasswordTooShort, decodeErrorResponse(t, rec).Code)
	})
}

func TestCheckAdminEndpoint(t *testing.T) {
	f := newHandlerFixture(t)

	admin := &user.User{ID: uuid.New(), Email: "admin@example.com", IsVerified: true, Role: user.RoleAdmin}
	f.users.add(admin)
	regular := f.registerVerified(t, "user@example.com", "password123")

	adminToken, err := f.codec.Issue(admin.ID, PurposeAccess, time.Hour)
	require.NoError(t, err)
	userToken, err := f.codec.Issue(regular.ID, PurposeAccess, time.Hour)
	require.NoError(t, err)

	t.Run("admin", func(t *testing.T) {
		rec := f.get(t, "/auth/check-admin", adminToken)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp CheckAdminResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.True(t, resp.IsAdmin)
	})

	t.Run("regular user", func(t *testing.T) {
		rec := f.get(t, "/auth/check-admin", userToken)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp CheckAdminResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.False(t, resp.IsAdmin)
	})

	t.Run("no token", func(t *testing.T) {
		rec := f.get(t, "/auth/check-admin", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
