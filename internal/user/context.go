package user

import "context"

type contextKey int

const userContextKey contextKey = 0

// NewContext returns a context carrying the resolved user record.
// Set by the role guard after a successful lookup.
func NewContext(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// FromContext extracts the resolved user record from the request context.
func FromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userContextKey).(*User)
	return u, ok
}
