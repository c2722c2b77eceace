package users

import "context"

// Repo manages persistent storage of users.
// Lookups return errors.ErrUserNotFound (from internal/errors) when no user matches.
type Repo interface {
	// Create inserts a new user. A duplicate email returns errors.ErrEmailTaken.
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*User, error)
	Update(ctx context.Context, user *User) error

	// List returns a page of users ordered by creation time, newest first,
	// together with the total match count. A non-empty query filters on
	// email, first name and last name (case-insensitive substring).
	List(ctx context.Context, query string, limit, offset int) ([]*User, int64, error)
}
