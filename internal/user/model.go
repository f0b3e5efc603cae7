package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID               uuid.UUID `json:"id"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"` // Never expose password hash in JSON
	IsVerified       bool      `json:"is_verified"`
	Role             Role      `json:"role"`
	ProfileImagePath *string   `json:"profile_image_path,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
