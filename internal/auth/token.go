package auth

import (
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Purpose identifies the single flow a token is valid for.
type Purpose string

const (
	PurposeAccess        Purpose = "access"
	PurposeRefresh       Purpose = "refresh"
	PurposeVerifyEmail   Purpose = "verify-email"
	PurposeResetPassword Purpose = "reset-password"
)

// TokenClaims represents the claims carried inside a token
type TokenClaims struct {
	Subject   uuid.UUID
	Purpose   Purpose
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenKeys holds the raw 32-byte symmetric keys, one per purpose.
type TokenKeys struct {
	Access  []byte
	Refresh []byte
	Verify  []byte
	Reset   []byte
}

// TokenCodec issues and verifies PASETO v4.local tokens
// (symmetric encryption with XChaCha20-Poly1305). Each purpose is encrypted
// with its own key, so a token minted for one flow is undecryptable by any
// other; the embedded purpose claim is checked on top of that.
type TokenCodec struct {
	keys map[Purpose]paseto.V4SymmetricKey
}

func NewTokenCodec(keys TokenKeys) (*TokenCodec, error) {
	raw := map[Purpose][]byte{
		PurposeAccess:        keys.Access,
		PurposeRefresh:       keys.Refresh,
		PurposeVerifyEmail:   keys.Verify,
		PurposeResetPassword: keys.Reset,
	}

	codec := &TokenCodec{keys: make(map[Purpose]paseto.V4SymmetricKey, len(raw))}
	for purpose, keyBytes := range raw {
		if len(keyBytes) != 32 {
			return nil, fmt.Errorf("%s key must be exactly 32 bytes, got %d", purpose, len(keyBytes))
		}
		key, err := paseto.V4SymmetricKeyFromBytes(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s key: %w", purpose, err)
		}
		codec.keys[purpose] = key
	}

	return codec, nil
}

// Issue generates a new token for the given subject, purpose and lifetime.
func (c *TokenCodec) Issue(subject uuid.UUID, purpose Purpose, ttl time.Duration) (string, error) {
	key, ok := c.keys[purpose]
	if !ok {
		return "", fmt.Errorf("no key registered for purpose %q", purpose)
	}

	now := time.Now()

	token := paseto.NewToken()
	token.SetIssuedAt(now)
	token.SetExpiration(now.Add(ttl))
	token.SetSubject(subject.String())
	token.SetString("purpose", string(purpose))

	return token.V4Encrypt(key, nil), nil
}

// Verify validates a token against the expected purpose and returns its
// claims. Returns ErrExpiredToken only when the ciphertext was authentic but
// past its expiration; any other failure, including a purpose mismatch, is
// ErrInvalidToken.
func (c *TokenCodec) Verify(tokenStr string, expected Purpose) (*TokenClaims, error) {
	key, ok := c.keys[expected]
	if !ok {
		return nil, ErrInvalidToken
	}

	parser := paseto.NewParser()

	token, err := parser.ParseV4Local(key, tokenStr, nil)
	if err != nil {
		// The parser decrypts before applying rules; a RuleError means the
		// ciphertext was authentic but a claim check (expiry) failed.
		if errors.Is(err, &paseto.RuleError{}) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	purpose, err := token.GetString("purpose")
	if err != nil || Purpose(purpose) != expected {
		return nil, ErrInvalidToken
	}

	subjectStr, err := token.GetSubject()
	if err != nil {
		return nil, ErrInvalidToken
	}

	subject, err := uuid.Parse(subjectStr)
	if err != nil {
		return nil, ErrInvalidToken
	}

	issuedAt, err := token.GetIssuedAt()
	if err != nil {
		return nil, ErrInvalidToken
	}

	expiresAt, err := token.GetExpiration()
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &TokenClaims{
		Subject:   subject,
		Purpose:   Purpose(purpose),
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}
