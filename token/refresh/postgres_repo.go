package refresh

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/astba/trainingcenter/internal/dbx"
	errs "github.com/astba/trainingcenter/internal/errors"
)

// PostgresRepo implements Repo over PostgreSQL. Rotation runs as a single
// transaction whose revoking UPDATE matches only a still-active row, so the
// storage layer, not a read-then-write sequence, decides the race.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

var _ Repo = (*PostgresRepo)(nil)

const insertRecordQuery = `
	INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at)
	VALUES ($1, $2, $3, $4, $5)
`

const revokeActiveByHashQuery = `
	UPDATE refresh_tokens
	SET revoked_at = $2
	WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > $2
`

func (r *PostgresRepo) Create(ctx context.Context, record *Record) error {
	if _, err := r.db.ExecContext(ctx, insertRecordQuery,
		record.ID, record.UserID, record.TokenHash, record.ExpiresAt, record.CreatedAt,
	); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepo) GetActiveByHash(ctx context.Context, hash string) (*Record, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
		FROM refresh_tokens
		WHERE token_hash = $1 AND revoked_at IS NULL
	`
	record := &Record{}
	var revokedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, hash).Scan(
		&record.ID, &record.UserID, &record.TokenHash,
		&record.ExpiresAt, &revokedAt, &record.CreatedAt,
	)
	if err != nil {
		if errs.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		record.RevokedAt = &t
	}
	return record, nil
}

func (r *PostgresRepo) RevokeByHash(ctx context.Context, hash string, revokedAt time.Time) error {
	if _, err := r.db.ExecContext(ctx, revokeActiveByHashQuery, hash, revokedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepo) RevokeAllForUser(ctx context.Context, userID string, revokedAt time.Time) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $2
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2
	`
	if _, err := r.db.ExecContext(ctx, query, userID, revokedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Rotate(ctx context.Context, oldHash string, newRecord *Record, rotatedAt time.Time) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx, revokeActiveByHashQuery, oldHash, rotatedAt)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		matched, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if matched == 0 {
			return errs.ErrTokenNotUsable
		}

		if _, err := tx.ExecContext(ctx, insertRecordQuery,
			newRecord.ID, newRecord.UserID, newRecord.TokenHash,
			newRecord.ExpiresAt, newRecord.CreatedAt,
		); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
}

func (r *PostgresRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return deleted, nil
}
