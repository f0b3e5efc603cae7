package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marekholub/auth-api/internal/logging"
	"github.com/marekholub/auth-api/internal/user"
)

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailRequired       = errors.New("email is required")
	ErrPasswordRequired    = errors.New("password is required")
	ErrPasswordTooShort    = errors.New("password must be at least 8 characters")
	ErrInvalidEmailFormat  = errors.New("invalid email format")
	ErrEmailNotVerified    = errors.New("email not verified, please check your inbox")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// verifyTokenTTL bounds how long an emailed verification link stays usable.
const verifyTokenTTL = time.Hour

// AuthTokens is the credential pair returned by login.
type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Service handles authentication business logic
type Service struct {
	users                UserStore
	resetStore           ResetTokenStore
	codec                *TokenCodec
	notifier             Notifier
	hasher               *PasswordHasher
	logger               *logging.Logger
	accessTokenDuration  time.Duration
	refreshTokenDuration time.Duration
}

func NewService(
	users UserStore,
	resetStore ResetTokenStore,
	codec *TokenCodec,
	notifier Notifier,
	hasher *PasswordHasher,
	logger *logging.Logger,
	accessTokenDuration time.Duration,
	refreshTokenDuration time.Duration,
) *Service {
	return &Service{
		users:                users,
		resetStore:           resetStore,
		codec:                codec,
		notifier:             notifier,
		hasher:               hasher,
		logger:               logger,
		accessTokenDuration:  accessTokenDuration,
		refreshTokenDuration: refreshTokenDuration,
	}
}

// Register creates a new unverified user account and emails a verification
// link. The duplicate-email failure is explicit, which clients rely on;
// rate limiting at the handler layer bounds the enumeration exposure.
func (s *Service) Register(ctx context.Context, email, password string, profileImagePath *string) (*user.User, error) {
	email = NormalizeEmail(email)

	if email == "" {
		return nil, ErrEmailRequired
	}
	if len(email) > 254 {
		return nil, ErrInvalidEmailFormat
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmailFormat
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if len(password) < 8 {
		return nil, ErrPasswordTooShort
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := s.users.Create(ctx, email, passwordHash, profileImagePath)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, user.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	verificationToken, err := s.codec.Issue(newUser.ID, PurposeVerifyEmail, verifyTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue verification token: %w", err)
	}

	// Send in a goroutine so a slow SMTP server never blocks registration.
	// Failures are logged only; the user can re-register or ask support.
	go func() {
		emailCtx := context.Background()
		if err := s.notifier.SendVerificationEmail(emailCtx, email, verificationToken); err != nil {
			s.logger.Warn("failed to send verification email", "email", email, "error", err)
		}
	}()

	return newUser, nil
}

// Login authenticates a user and returns an access/refresh token pair.
// Unknown email and wrong password produce the same error.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthTokens, error) {
	email = NormalizeEmail(email)

	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	existingUser, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !s.hasher.Verify(existingUser.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	if !existingUser.IsVerified {
		return nil, ErrEmailNotVerified
	}

	accessToken, err := s.codec.Issue(existingUser.ID, PurposeAccess, s.accessTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	refreshToken, err := s.codec.Issue(existingUser.ID, PurposeRefresh, s.refreshTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	// Both tokens are self-contained; no session state is stored server-side.
	return &AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTokenDuration.Seconds()),
	}, nil
}

// RefreshAccessToken mints a new access token from a valid refresh token.
// The refresh token itself is not rotated; the caller keeps using the same
// one until it expires.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	claims, err := s.codec.Verify(refreshToken, PurposeRefresh)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	existingUser, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	accessToken, err := s.codec.Issue(existingUser.ID, PurposeAccess, s.accessTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	return &AuthTokens{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.accessTokenDuration.Seconds()),
	}, nil
}

// VerifyEmail marks the token's subject as verified. Verifying an already
// verified account succeeds; the flag never transitions back.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	claims, err := s.codec.Verify(token, PurposeVerifyEmail)
	if err != nil {
		return err
	}

	existingUser, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.ErrNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if existingUser.IsVerified {
		return nil
	}

	if err := s.users.MarkEmailAsVerified(ctx, existingUser.ID); err != nil {
		return fmt.Errorf("failed to verify email: %w", err)
	}

	return nil
}

// RequestPasswordReset issues a reset token, records it in the shared store
// and emails the reset link. The signed token and the store record are
// independent checks: consuming a reset always requires the record, so a
// reset can be revoked by deleting the record before its TTL runs out.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	existingUser, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.ErrNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	token, err := s.codec.Issue(existingUser.ID, PurposeResetPassword, ResetTokenTTL)
	if err != nil {
		return fmt.Errorf("failed to issue reset token: %w", err)
	}

	if err := s.resetStore.Store(ctx, token, existingUser.ID); err != nil {
		return fmt.Errorf("failed to store password reset token: %w", err)
	}

	go func() {
		emailCtx := context.Background()
		if err := s.notifier.SendPasswordResetEmail(emailCtx, email, token); err != nil {
			s.logger.Warn("failed to send password reset email", "email", email, "error", err)
		}
	}()

	return nil
}

// ResetPassword sets a new password for the token's subject. The signature
// is checked first, then the store record is consumed atomically; a missing
// record fails the reset even when the signature is still valid, which is
// what makes each token single-use. The consume happens before the password
// write: if the write fails the record stays gone and the user must request
// a fresh reset.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return ErrPasswordRequired
	}
	if len(newPassword) < 8 {
		return ErrPasswordTooShort
	}

	if _, err := s.codec.Verify(token, PurposeResetPassword); err != nil {
		return err
	}

	userID, err := s.resetStore.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, ErrResetTokenNotFound) {
			return ErrResetTokenNotFound
		}
		return fmt.Errorf("failed to consume password reset token: %w", err)
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

// IsAdmin reports whether the user holds the admin role. A deleted subject
// is simply not an admin.
func (s *Service) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	existingUser, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get user: %w", err)
	}

	return existingUser.Role.Can(user.RoleAdmin), nil
}

// NormalizeEmail lowercases and trims an email address so uniqueness and
// lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
