package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the bun model for the users table.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID               uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Email            string    `bun:"email,notnull,unique"`
	PasswordHash     string    `bun:"password_hash,notnull"`
	IsVerified       bool      `bun:"is_verified,notnull,default:false"`
	Role             string    `bun:"role,notnull,default:'user'"`
	ProfileImagePath *string   `bun:"profile_image_path"`
	CreatedAt        time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt        time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
