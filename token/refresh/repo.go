package refresh

import (
	"context"
	"time"
)

// Record is the server-side trace of an issued refresh token. The raw token
// value is never stored; only its SHA-256 hash. A record is active while
// RevokedAt is nil and ExpiresAt is in the future, and is mutated only by
// setting RevokedAt.
type Record struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Active reports whether the record is usable at the given instant.
func (r *Record) Active(now time.Time) bool {
	return r.RevokedAt == nil && now.Before(r.ExpiresAt)
}

// Repo manages durable storage of refresh token records, keyed by token hash.
type Repo interface {
	// Create inserts a new active record.
	Create(ctx context.Context, record *Record) error

	// GetActiveByHash returns the active record for the hash, or
	// errors.ErrNotFound when no unrevoked record matches. Expiry is checked
	// by the caller against its own clock.
	GetActiveByHash(ctx context.Context, hash string) (*Record, error)

	// RevokeByHash marks the active record for the hash revoked at the given
	// instant. Revoking an absent or already-revoked hash is a no-op.
	RevokeByHash(ctx context.Context, hash string, revokedAt time.Time) error

	// RevokeAllForUser marks every active record of the user revoked.
	RevokeAllForUser(ctx context.Context, userID string, revokedAt time.Time) error

	// Rotate atomically revokes the record for oldHash and inserts newRecord.
	// It returns errors.ErrTokenNotUsable without inserting anything when
	// oldHash has no record that is still active at the rotation instant;
	// two concurrent rotations of the same hash cannot both succeed.
	Rotate(ctx context.Context, oldHash string, newRecord *Record, rotatedAt time.Time) error

	// DeleteExpired physically removes records whose expiry has passed,
	// regardless of revocation status, and returns the number deleted.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
