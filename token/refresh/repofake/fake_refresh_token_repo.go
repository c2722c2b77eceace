package refreshrepofake

import (
	"context"
	"sync"
	"time"

	errs "github.com/astba/trainingcenter/internal/errors"
	"github.com/astba/trainingcenter/token/refresh"
)

var _ refresh.Repo = (*FakeRefreshTokenRepo)(nil)

// FakeRefreshTokenRepo is a thread-safe in-memory Repo. Rotate performs the
// same compare-and-set as the PostgreSQL implementation: the old record must
// still be active under the lock or nothing is inserted.
type FakeRefreshTokenRepo struct {
	lock    sync.RWMutex
	records map[string]*refresh.Record // token hash -> record
}

func NewFakeRefreshTokenRepo() *FakeRefreshTokenRepo {
	return &FakeRefreshTokenRepo{
		records: make(map[string]*refresh.Record),
	}
}

func (r *FakeRefreshTokenRepo) Create(_ context.Context, record *refresh.Record) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	rec := *record
	r.records[rec.TokenHash] = &rec
	return nil
}

func (r *FakeRefreshTokenRepo) GetActiveByHash(_ context.Context, hash string) (*refresh.Record, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	record, ok := r.records[hash]
	if !ok || record.RevokedAt != nil {
		return nil, errs.ErrNotFound
	}
	rec := *record
	return &rec, nil
}

func (r *FakeRefreshTokenRepo) RevokeByHash(_ context.Context, hash string, revokedAt time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.revokeLocked(hash, revokedAt)
	return nil
}

func (r *FakeRefreshTokenRepo) RevokeAllForUser(_ context.Context, userID string, revokedAt time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	for _, record := range r.records {
		if record.UserID == userID && record.Active(revokedAt) {
			t := revokedAt
			record.RevokedAt = &t
		}
	}
	return nil
}

func (r *FakeRefreshTokenRepo) Rotate(_ context.Context, oldHash string, newRecord *refresh.Record, rotatedAt time.Time) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if !r.revokeLocked(oldHash, rotatedAt) {
		return errs.ErrTokenNotUsable
	}
	rec := *newRecord
	r.records[rec.TokenHash] = &rec
	return nil
}

func (r *FakeRefreshTokenRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	var deleted int64
	for hash, record := range r.records {
		if !now.Before(record.ExpiresAt) {
			delete(r.records, hash)
			deleted++
		}
	}
	return deleted, nil
}

// revokeLocked revokes the record for hash if it is still active and reports
// whether it did. Callers must hold the write lock.
func (r *FakeRefreshTokenRepo) revokeLocked(hash string, revokedAt time.Time) bool {
	record, ok := r.records[hash]
	if !ok || !record.Active(revokedAt) {
		return false
	}
	t := revokedAt
	record.RevokedAt = &t
	return true
}
