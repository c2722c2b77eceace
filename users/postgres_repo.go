package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/astba/trainingcenter/internal/dbx"
	errs "github.com/astba/trainingcenter/internal/errors"
)

// PostgresRepo implements Repo over dbx.DBTX (satisfied by *sql.DB or *sql.Tx).
type PostgresRepo struct {
	db dbx.DBTX
}

func NewPostgresRepo(db dbx.DBTX) *PostgresRepo {
	return &PostgresRepo{db: db}
}

var _ Repo = (*PostgresRepo)(nil)

func (r *PostgresRepo) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, email, password_hash, first_name, last_name, google_id, roles, status, email_verified, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10)
	`
	if _, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.GoogleID, JoinRoles(user.Roles), string(user.Status), user.EmailVerified, user.CreatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return errs.ErrEmailTaken
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getBy(ctx, "id = $1", id)
}

func (r *PostgresRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getBy(ctx, "email = $1", email)
}

func (r *PostgresRepo) GetByGoogleID(ctx context.Context, googleID string) (*User, error) {
	return r.getBy(ctx, "google_id = $1", googleID)
}

func (r *PostgresRepo) Update(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET email = $2, password_hash = $3, first_name = $4, last_name = $5,
		    google_id = NULLIF($6, ''), roles = $7, status = $8, email_verified = $9, last_login = $10
		WHERE id = $1
	`
	var lastLogin sql.NullTime
	if !user.LastLogin.IsZero() {
		lastLogin = sql.NullTime{Time: user.LastLogin, Valid: true}
	}
	res, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.GoogleID, JoinRoles(user.Roles), string(user.Status), user.EmailVerified, lastLogin,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errs.ErrEmailTaken
		}
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errs.ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepo) List(ctx context.Context, query string, limit, offset int) ([]*User, int64, error) {
	where := "TRUE"
	args := []any{}
	if query != "" {
		where = "(email ILIKE $1 OR first_name ILIKE $1 OR last_name ILIKE $1)"
		args = append(args, "%"+query+"%")
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM users WHERE " + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	pageQuery := fmt.Sprintf(`
		SELECT id, email, password_hash, first_name, last_name, COALESCE(google_id, ''), roles, status, email_verified, created_at, last_login
		FROM users
		WHERE %s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, pageQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var page []*User
	for rows.Next() {
		user, err := scanUser(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		page = append(page, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	return page, total, nil
}

func (r *PostgresRepo) getBy(ctx context.Context, where string, arg any) (*User, error) {
	query := `
		SELECT id, email, password_hash, first_name, last_name, COALESCE(google_id, ''), roles, status, email_verified, created_at, last_login
		FROM users
		WHERE ` + where

	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg).Scan)
	if err != nil {
		if errs.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func scanUser(scan func(...any) error) (*User, error) {
	var (
		user      User
		rolesStr  string
		statusStr string
		lastLogin sql.NullTime
	)
	err := scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName,
		&user.GoogleID, &rolesStr, &statusStr, &user.EmailVerified, &user.CreatedAt, &lastLogin,
	)
	if err != nil {
		if errs.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	roles, err := ParseRoles(rolesStr)
	if err != nil {
		return nil, fmt.Errorf("stored roles: %w", err)
	}
	user.Roles = roles

	status, err := ParseStatus(statusStr)
	if err != nil {
		return nil, fmt.Errorf("stored status: %w", err)
	}
	user.Status = status

	if lastLogin.Valid {
		user.LastLogin = lastLogin.Time
	} else {
		user.LastLogin = time.Time{}
	}
	return &user, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (class 23505), raised on duplicate email inserts that race past
// the pre-insert existence check.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
