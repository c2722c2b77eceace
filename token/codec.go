// Package token produces and verifies the self-contained signed tokens that
// carry a caller's identity between requests. Access tokens embed the user's
// id, email and roles; refresh tokens carry only the subject plus a
// type=refresh discriminator and are additionally tracked server-side by the
// refresh ledger.
package token

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	errs "github.com/astba/trainingcenter/internal/errors"
	"github.com/astba/trainingcenter/users"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// minKeyBytes is the minimum signing key length for HS512 (512-bit key).
const minKeyBytes = 64

const refreshTypeClaim = "refresh"

// Codec signs and validates access and refresh tokens with a single shared
// symmetric key. It is stateless and safe for concurrent use.
type Codec struct {
	signingKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCodec builds a Codec from the operator-supplied secret. The secret is
// stretched to at least 64 bytes by deterministic repetition; this is a fixed,
// auditable derivation, not a KDF. An empty secret is a configuration error.
func NewCodec(secret string, accessTTL, refreshTTL time.Duration) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("signing secret is required")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token TTLs must be positive")
	}

	padded := secret
	for len(padded) < minKeyBytes {
		padded += secret
	}

	return &Codec{
		signingKey: []byte(padded),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// IssueAccess mints an access token carrying the user's identity claims.
func (c *Codec) IssueAccess(userID, email string, roles []users.Role) (string, error) {
	now := NowTimeFunc()
	claims := jwtlib.MapClaims{
		"sub":   userID,
		"email": email,
		"roles": users.JoinRoles(roles),
		"iat":   now.Unix(),
		"exp":   now.Add(c.accessTTL).Unix(),
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS512, claims).SignedString(c.signingKey)
}

// IssueRefresh mints a refresh token for the user. The raw value is returned
// to the client; only its hash is ever persisted (see token/refresh).
func (c *Codec) IssueRefresh(userID string) (string, error) {
	now := NowTimeFunc()
	claims := jwtlib.MapClaims{
		"sub":  userID,
		"type": refreshTypeClaim,
		"iat":  now.Unix(),
		"exp":  now.Add(c.refreshTTL).Unix(),
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS512, claims).SignedString(c.signingKey)
}

// Validate reports whether the token's signature verifies and it has not
// expired. Malformed, unsigned, tampered and expired tokens are all equally
// invalid; no further detail is surfaced.
func (c *Codec) Validate(rawToken string) bool {
	_, err := c.parse(rawToken)
	return err == nil
}

// Subject returns the user id embedded in the token. It fails on any token
// that does not validate.
func (c *Codec) Subject(rawToken string) (string, error) {
	claims, err := c.parse(rawToken)
	if err != nil {
		return "", err
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", errs.ErrInvalidToken
	}
	return sub, nil
}

// Email returns the email claim of a valid access token.
func (c *Codec) Email(rawToken string) (string, error) {
	claims, err := c.parse(rawToken)
	if err != nil {
		return "", err
	}
	email, _ := claims["email"].(string)
	return email, nil
}

// Roles returns the role set embedded in a valid access token. Unknown role
// names fail the whole read: a malformed roles claim grants nothing.
func (c *Codec) Roles(rawToken string) ([]users.Role, error) {
	claims, err := c.parse(rawToken)
	if err != nil {
		return nil, err
	}
	rolesStr, _ := claims["roles"].(string)
	return users.ParseRoles(rolesStr)
}

// IsRefresh reports whether a valid token carries the refresh discriminator.
func (c *Codec) IsRefresh(rawToken string) bool {
	claims, err := c.parse(rawToken)
	if err != nil {
		return false
	}
	tokenType, _ := claims["type"].(string)
	return tokenType == refreshTypeClaim
}

func (c *Codec) AccessTTL() time.Duration {
	return c.accessTTL
}

func (c *Codec) RefreshTTL() time.Duration {
	return c.refreshTTL
}

// RefreshExpiry returns the expiry a refresh token minted now would carry.
func (c *Codec) RefreshExpiry() time.Time {
	return NowTimeFunc().Add(c.refreshTTL)
}

func (c *Codec) parse(rawToken string) (jwtlib.MapClaims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, errs.ErrInvalidToken
	}

	parser := jwtlib.NewParser(
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS512.Alg()}),
		jwtlib.WithTimeFunc(func() time.Time { return NowTimeFunc() }),
		jwtlib.WithExpirationRequired(),
	)

	parsed, err := parser.Parse(rawToken, func(t *jwtlib.Token) (any, error) {
		return c.signingKey, nil
	})
	if err != nil || !parsed.Valid {
		return nil, errs.ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errs.ErrInvalidToken
	}
	return claims, nil
}
