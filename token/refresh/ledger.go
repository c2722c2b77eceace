// Package refresh is the durable source of truth for which refresh tokens are
// currently usable. Raw tokens never touch storage; the ledger keys every
// record by the token's SHA-256 hash, and invalidation happens by revocation
// rather than deletion.
package refresh

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	errs "github.com/astba/trainingcenter/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// HashToken returns the hex-encoded SHA-256 hash of a raw refresh token.
func HashToken(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}

// Ledger records issued refresh tokens and answers whether a presented one is
// still usable. Validate never distinguishes missing from revoked from
// expired: all three are errs.ErrTokenNotUsable.
type Ledger struct {
	repo Repo
}

func NewLedger(repo Repo) *Ledger {
	return &Ledger{repo: repo}
}

// Store persists a new active record for the raw token. expiresAt is copied
// from the token's embedded expiry claim by the caller.
func (l *Ledger) Store(ctx context.Context, userID, rawToken string, expiresAt time.Time) error {
	record := &Record{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: HashToken(rawToken),
		ExpiresAt: expiresAt,
		CreatedAt: NowTimeFunc(),
	}
	if err := l.repo.Create(ctx, record); err != nil {
		return errs.Wrapf(err, "store refresh token")
	}
	return nil
}

// Validate returns the active record matching the raw token, or
// errs.ErrTokenNotUsable on any failure.
func (l *Ledger) Validate(ctx context.Context, rawToken string) (*Record, error) {
	record, err := l.repo.GetActiveByHash(ctx, HashToken(rawToken))
	if err != nil {
		return nil, errs.ErrTokenNotUsable
	}
	if !record.Active(NowTimeFunc()) {
		return nil, errs.ErrTokenNotUsable
	}
	return record, nil
}

// Revoke marks the token's record revoked. Revoking a token with no active
// record is a no-op.
func (l *Ledger) Revoke(ctx context.Context, rawToken string) error {
	if err := l.repo.RevokeByHash(ctx, HashToken(rawToken), NowTimeFunc()); err != nil {
		return errs.Wrapf(err, "revoke refresh token")
	}
	return nil
}

// RevokeAll marks every active record of the user revoked (logout-everywhere,
// password change).
func (l *Ledger) RevokeAll(ctx context.Context, userID string) error {
	if err := l.repo.RevokeAllForUser(ctx, userID, NowTimeFunc()); err != nil {
		return errs.Wrapf(err, "revoke all refresh tokens")
	}
	return nil
}

// Rotate replaces oldRaw with newRaw in a single conditional operation: the
// old record is revoked only while still active, and the new record is
// inserted only when that revocation succeeded. A concurrent rotation of the
// same token gets errs.ErrTokenNotUsable.
func (l *Ledger) Rotate(ctx context.Context, userID, oldRaw, newRaw string, newExpiresAt time.Time) error {
	now := NowTimeFunc()
	newRecord := &Record{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: HashToken(newRaw),
		ExpiresAt: newExpiresAt,
		CreatedAt: now,
	}
	if err := l.repo.Rotate(ctx, HashToken(oldRaw), newRecord, now); err != nil {
		if errs.Is(err, errs.ErrTokenNotUsable) {
			return errs.ErrTokenNotUsable
		}
		return errs.Wrapf(err, "rotate refresh token")
	}
	return nil
}

// CleanupExpired deletes records whose expiry has passed. Pure storage
// hygiene: an expired-but-undeleted record already fails Validate.
func (l *Ledger) CleanupExpired(ctx context.Context) (int64, error) {
	return l.repo.DeleteExpired(ctx, NowTimeFunc())
}
