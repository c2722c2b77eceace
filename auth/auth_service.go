// Package auth implements the credential lifecycle flows of the training
// center: registration, login, token refresh with rotation, logout, and
// federated (Google) account linking. It issues token pairs via token.Codec
// and records refresh tokens in the refresh ledger.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	errs "github.com/astba/trainingcenter/internal/errors"
	"github.com/astba/trainingcenter/token"
	"github.com/astba/trainingcenter/token/refresh"
	"github.com/astba/trainingcenter/users"
)

// TokenPair bundles the credentials handed to a client after a successful
// authentication: a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Repos holds all repository dependencies for the Service.
type Repos struct {
	Users         users.Repo
	RefreshTokens refresh.Repo
}

// Service provides the authentication flows consumed by the HTTP layer.
type Service struct {
	repos   Repos
	codec   *token.Codec
	ledger  *refresh.Ledger
	nowTime func() time.Time
}

// ServiceOption modifies the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// NewService initializes a Service with required dependencies.
func NewService(repos Repos, codec *token.Codec, options ...ServiceOption) (*Service, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewService] Users repo is required")
	}
	if repos.RefreshTokens == nil {
		return nil, errors.New("[NewService] RefreshTokens repo is required")
	}
	if codec == nil {
		return nil, errors.New("[NewService] codec is required")
	}

	service := &Service{
		repos:   repos,
		codec:   codec,
		ledger:  refresh.NewLedger(repos.RefreshTokens),
		nowTime: time.Now,
	}

	for _, opt := range options {
		opt(service)
	}

	return service, nil
}

// Ledger exposes the refresh ledger for maintenance tasks (cleanup sweep).
func (s *Service) Ledger() *refresh.Ledger {
	return s.ledger
}

// Register creates a local account and logs it in. New users get the TRAINER
// role; role elevation is an admin operation.
func (s *Service) Register(ctx context.Context, email, password, firstName, lastName string) (*users.User, *TokenPair, error) {
	if err := users.ValidatePasswordStrength(password); err != nil {
		return nil, nil, errs.ErrWeakPassword
	}

	if _, err := s.repos.Users.GetByEmail(ctx, email); err == nil {
		return nil, nil, errs.ErrEmailTaken
	} else if !errs.Is(err, errs.ErrUserNotFound) {
		return nil, nil, errs.Wrapf(err, "register")
	}

	passwordHash, err := users.HashPassword(password)
	if err != nil {
		return nil, nil, errs.Wrapf(err, "register")
	}

	user := &users.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		Roles:        []users.Role{users.RoleTrainer},
		Status:       users.StatusActive,
		CreatedAt:    s.nowTime(),
	}
	if err := s.repos.Users.Create(ctx, user); err != nil {
		return nil, nil, errs.Wrapf(err, "register")
	}

	pair, err := s.IssuePair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	log.Info().Str("user_id", user.ID).Msg("user registered")
	return user, pair, nil
}

// Login authenticates a local account. Unknown email and wrong password are
// the same failure.
func (s *Service) Login(ctx context.Context, email, password string) (*users.User, *TokenPair, error) {
	user, err := s.repos.Users.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, errs.ErrInvalidCredentials
	}
	if user.PasswordHash == "" || !users.CheckPasswordHash(password, user.PasswordHash) {
		return nil, nil, errs.ErrInvalidCredentials
	}
	if user.Status == users.StatusSuspended {
		return nil, nil, errs.ErrAccountSuspended
	}

	pair, err := s.IssuePair(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	user.LastLogin = s.nowTime()
	if err := s.repos.Users.Update(ctx, user); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record last login")
	}

	return user, pair, nil
}

// IssuePair mints an access+refresh pair for the user and records the refresh
// token in the ledger before the pair leaves this process.
func (s *Service) IssuePair(ctx context.Context, user *users.User) (*TokenPair, error) {
	accessToken, err := s.codec.IssueAccess(user.ID, user.Email, user.Roles)
	if err != nil {
		return nil, errs.Wrapf(err, "issue access token")
	}
	refreshToken, err := s.codec.IssueRefresh(user.ID)
	if err != nil {
		return nil, errs.Wrapf(err, "issue refresh token")
	}
	if err := s.ledger.Store(ctx, user.ID, refreshToken, s.codec.RefreshExpiry()); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Refresh exchanges a usable refresh token for a fresh pair, rotating the
// presented token out of the ledger in the same step. Every failure is
// errs.ErrTokenNotUsable.
func (s *Service) Refresh(ctx context.Context, rawRefresh string) (*users.User, *TokenPair, error) {
	if !s.codec.Validate(rawRefresh) || !s.codec.IsRefresh(rawRefresh) {
		return nil, nil, errs.ErrTokenNotUsable
	}

	record, err := s.ledger.Validate(ctx, rawRefresh)
	if err != nil {
		return nil, nil, errs.ErrTokenNotUsable
	}

	user, err := s.repos.Users.GetByID(ctx, record.UserID)
	if err != nil {
		return nil, nil, errs.ErrTokenNotUsable
	}
	if user.Status == users.StatusSuspended {
		return nil, nil, errs.ErrTokenNotUsable
	}

	accessToken, err := s.codec.IssueAccess(user.ID, user.Email, user.Roles)
	if err != nil {
		return nil, nil, errs.Wrapf(err, "refresh")
	}
	newRefresh, err := s.codec.IssueRefresh(user.ID)
	if err != nil {
		return nil, nil, errs.Wrapf(err, "refresh")
	}

	if err := s.ledger.Rotate(ctx, user.ID, rawRefresh, newRefresh, s.codec.RefreshExpiry()); err != nil {
		// A concurrent refresh with the same token won the rotation.
		return nil, nil, errs.ErrTokenNotUsable
	}

	return user, &TokenPair{AccessToken: accessToken, RefreshToken: newRefresh}, nil
}

// Logout revokes the presented refresh token. Idempotent: revoking an
// unknown or already-revoked token succeeds silently.
func (s *Service) Logout(ctx context.Context, rawRefresh string) error {
	if rawRefresh == "" {
		return nil
	}
	return s.ledger.Revoke(ctx, rawRefresh)
}

// LogoutAll revokes every active refresh token of the user.
func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	return s.ledger.RevokeAll(ctx, userID)
}

// ChangePassword verifies the current password, installs the new one, and
// revokes every outstanding refresh token so stolen sessions die with the
// old credential.
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return errs.ErrInvalidCredentials
	}
	if user.PasswordHash == "" || !users.CheckPasswordHash(currentPassword, user.PasswordHash) {
		return errs.ErrInvalidCredentials
	}
	if err := users.ValidatePasswordStrength(newPassword); err != nil {
		return errs.ErrWeakPassword
	}

	passwordHash, err := users.HashPassword(newPassword)
	if err != nil {
		return errs.Wrapf(err, "change password")
	}
	user.PasswordHash = passwordHash
	if err := s.repos.Users.Update(ctx, user); err != nil {
		return errs.Wrapf(err, "change password")
	}

	return s.ledger.RevokeAll(ctx, userID)
}

// FindOrCreateGoogleUser resolves a verified Google identity to a local user,
// linking by Google subject first and by email second, creating a TRAINER
// account when neither matches.
func (s *Service) FindOrCreateGoogleUser(ctx context.Context, googleID, email, firstName, lastName string, emailVerified bool) (*users.User, error) {
	if user, err := s.repos.Users.GetByGoogleID(ctx, googleID); err == nil {
		if user.Status == users.StatusSuspended {
			return nil, errs.ErrAccountSuspended
		}
		return user, nil
	} else if !errs.Is(err, errs.ErrUserNotFound) {
		return nil, errs.Wrapf(err, "federated login")
	}

	if user, err := s.repos.Users.GetByEmail(ctx, email); err == nil {
		if user.Status == users.StatusSuspended {
			return nil, errs.ErrAccountSuspended
		}
		user.GoogleID = googleID
		if emailVerified {
			user.EmailVerified = true
		}
		if err := s.repos.Users.Update(ctx, user); err != nil {
			return nil, errs.Wrapf(err, "federated login")
		}
		return user, nil
	} else if !errs.Is(err, errs.ErrUserNotFound) {
		return nil, errs.Wrapf(err, "federated login")
	}

	user := &users.User{
		ID:            uuid.NewString(),
		Email:         email,
		FirstName:     firstName,
		LastName:      lastName,
		GoogleID:      googleID,
		Roles:         []users.Role{users.RoleTrainer},
		Status:        users.StatusActive,
		EmailVerified: emailVerified,
		CreatedAt:     s.nowTime(),
	}
	if err := s.repos.Users.Create(ctx, user); err != nil {
		return nil, errs.Wrapf(err, "federated login")
	}

	log.Info().Str("user_id", user.ID).Msg("federated user created")
	return user, nil
}
