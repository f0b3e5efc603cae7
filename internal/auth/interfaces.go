package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/marekholub/auth-api/internal/user"
)

// UserStore is the subset of user persistence the auth flows need.
// *user.Repository satisfies it.
type UserStore interface {
	Create(ctx context.Context, email, passwordHash string, profileImagePath *string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	MarkEmailAsVerified(ctx context.Context, userID uuid.UUID) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
}

// ResetTokenStore tracks issued password reset tokens. Consume must be
// atomic: a token yields its user ID exactly once.
type ResetTokenStore interface {
	Store(ctx context.Context, token string, userID uuid.UUID) error
	Consume(ctx context.Context, token string) (uuid.UUID, error)
}

// Notifier delivers verification and reset links. Delivery failures are
// logged by callers, never surfaced to the client.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, toEmail, token string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, token string) error
}

// RateLimiter guards the unauthenticated endpoints against abuse.
// *ratelimit.Limiter satisfies it.
type RateLimiter interface {
	CheckIPRateLimit(ctx context.Context, ip, purpose string) (bool, error)
	RecordIPRequest(ctx context.Context, ip, purpose string) error
	CheckEmailCooldown(ctx context.Context, email string) (bool, error)
	SetEmailCooldown(ctx context.Context, email string) error
}
