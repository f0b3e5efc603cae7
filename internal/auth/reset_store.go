package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrResetTokenNotFound = errors.New("password reset token not found or already used")

// ResetTokenTTL bounds how long a reset link stays usable.
const ResetTokenTTL = 30 * time.Minute

// RedisResetTokenStore maps password reset tokens to user IDs in Redis.
// Redis is shared across server instances, so single-use semantics hold
// under horizontal scaling.
type RedisResetTokenStore struct {
	client *redis.Client
}

func NewRedisResetTokenStore(client *redis.Client) *RedisResetTokenStore {
	return &RedisResetTokenStore{client: client}
}

// Store records a reset token for the user with the fixed TTL.
func (s *RedisResetTokenStore) Store(ctx context.Context, token string, userID uuid.UUID) error {
	err := s.client.Set(ctx, passwordResetKey(token), userID.String(), ResetTokenTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to store password reset token: %w", err)
	}

	return nil
}

// Consume retrieves and deletes the record for a reset token in a single
// atomic GETDEL, so two concurrent reset attempts with the same token cannot
// both succeed. Returns ErrResetTokenNotFound when the record is absent,
// already used or TTL-expired.
func (s *RedisResetTokenStore) Consume(ctx context.Context, token string) (uuid.UUID, error) {
	userIDStr, err := s.client.GetDel(ctx, passwordResetKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrResetTokenNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to consume password reset token: %w", err)
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse user ID: %w", err)
	}

	return userID, nil
}

// passwordResetKey generates the Redis key for a reset token.
// Tokens are hashed so a Redis dump never exposes usable tokens.
func passwordResetKey(token string) string {
	return fmt.Sprintf("password_reset:%s", hashToken(token))
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
