package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	errs "github.com/astba/trainingcenter/internal/errors"
	"github.com/astba/trainingcenter/users"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// UserPage is one page of the admin user listing.
type UserPage struct {
	Users []*users.User
	Total int64
	Page  int
	Size  int
}

// ListUsers returns a page of users for the admin overview. query filters on
// email and name; page is zero-based.
func (s *Service) ListUsers(ctx context.Context, query string, page, size int) (*UserPage, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	list, total, err := s.repos.Users.List(ctx, query, size, page*size)
	if err != nil {
		return nil, errs.Wrapf(err, "list users")
	}
	return &UserPage{Users: list, Total: total, Page: page, Size: size}, nil
}

// UpdateUserRoles replaces the user's role set. The set must be non-empty; a
// user without roles would be authenticated but unable to do anything.
// Existing sessions keep their old roles until the next refresh.
func (s *Service) UpdateUserRoles(ctx context.Context, userID string, roles []users.Role) (*users.User, error) {
	if len(roles) == 0 {
		return nil, errors.New("at least one role is required")
	}

	user, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Roles = dedupeRoles(roles)
	if err := s.repos.Users.Update(ctx, user); err != nil {
		return nil, errs.Wrapf(err, "update roles")
	}

	log.Info().Str("user_id", userID).Str("roles", users.JoinRoles(user.Roles)).Msg("user roles updated")
	return user, nil
}

// UpdateUserStatus activates or suspends an account. Suspension revokes every
// outstanding refresh token, so the account's sessions end as soon as their
// current access tokens expire.
func (s *Service) UpdateUserStatus(ctx context.Context, userID string, status users.Status) (*users.User, error) {
	user, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Status = status
	if err := s.repos.Users.Update(ctx, user); err != nil {
		return nil, errs.Wrapf(err, "update status")
	}

	if status == users.StatusSuspended {
		if err := s.ledger.RevokeAll(ctx, userID); err != nil {
			return nil, err
		}
	}

	log.Info().Str("user_id", userID).Str("status", string(status)).Msg("user status updated")
	return user, nil
}

// AdminCreateUser provisions an account with an explicit role set, unlike
// self-service registration which always yields a TRAINER. No tokens are
// issued; the new user logs in with the given credentials.
func (s *Service) AdminCreateUser(ctx context.Context, email, password, firstName, lastName string, roles []users.Role) (*users.User, error) {
	if err := users.ValidatePasswordStrength(password); err != nil {
		return nil, errs.ErrWeakPassword
	}
	if len(roles) == 0 {
		roles = []users.Role{users.RoleTrainer}
	}

	passwordHash, err := users.HashPassword(password)
	if err != nil {
		return nil, errs.Wrapf(err, "admin create user")
	}

	user := &users.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		Roles:        dedupeRoles(roles),
		Status:       users.StatusActive,
		CreatedAt:    s.nowTime(),
	}
	if err := s.repos.Users.Create(ctx, user); err != nil {
		if errs.Is(err, errs.ErrEmailTaken) {
			return nil, errs.ErrEmailTaken
		}
		return nil, errs.Wrapf(err, "admin create user")
	}

	log.Info().Str("user_id", user.ID).Msg("user created by admin")
	return user, nil
}

func dedupeRoles(roles []users.Role) []users.Role {
	seen := make(map[users.Role]struct{}, len(roles))
	out := make([]users.Role, 0, len(roles))
	for _, role := range roles {
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out
}
