package users

import (
	"context"
)

// Repository persists credential records. Implementations must make Create's
// check-then-insert atomic under concurrent registrations: exactly one of two
// simultaneous attempts for the same username may succeed.
type Repository interface {
	// Create stores a new record. Fails with common.ErrorAlreadyExists when
	// the username already has one.
	Create(ctx context.Context, user *User) error

	// GetByUserName returns the record for the given username or
	// common.ErrorNotFound.
	GetByUserName(ctx context.Context, userName string) (*User, error)
}
