package token_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/astba/trainingcenter/token"
	"github.com/astba/trainingcenter/users"
)

const (
	secretStr     = "1234"
	testUserID    = "user-1"
	testUserEmail = "john.doe@example.com"
)

func newTestCodec(t *testing.T) *token.Codec {
	t.Helper()
	codec, err := token.NewCodec(secretStr, 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)
	return codec
}

func TestNewCodecRequiresSecret(t *testing.T) {
	_, err := token.NewCodec("", time.Minute, time.Hour)
	require.Error(t, err)

	_, err = token.NewCodec("   ", time.Minute, time.Hour)
	require.Error(t, err)
}

func TestNewCodecRequiresPositiveTTLs(t *testing.T) {
	_, err := token.NewCodec(secretStr, 0, time.Hour)
	require.Error(t, err)

	_, err = token.NewCodec(secretStr, time.Minute, -time.Hour)
	require.Error(t, err)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	codec := newTestCodec(t)
	roles := []users.Role{users.RoleAdmin, users.RoleTrainer}

	accessToken, err := codec.IssueAccess(testUserID, testUserEmail, roles)
	require.NoError(t, err)
	require.True(t, codec.Validate(accessToken))

	subject, err := codec.Subject(accessToken)
	require.NoError(t, err)
	require.Equal(t, testUserID, subject)

	email, err := codec.Email(accessToken)
	require.NoError(t, err)
	require.Equal(t, testUserEmail, email)

	gotRoles, err := codec.Roles(accessToken)
	require.NoError(t, err)
	require.Equal(t, roles, gotRoles)

	require.False(t, codec.IsRefresh(accessToken))
}

func TestRefreshTokenCarriesDiscriminator(t *testing.T) {
	codec := newTestCodec(t)

	refreshToken, err := codec.IssueRefresh(testUserID)
	require.NoError(t, err)
	require.True(t, codec.Validate(refreshToken))
	require.True(t, codec.IsRefresh(refreshToken))

	subject, err := codec.Subject(refreshToken)
	require.NoError(t, err)
	require.Equal(t, testUserID, subject)
}

func TestTamperedSignatureFailsValidation(t *testing.T) {
	codec := newTestCodec(t)

	accessToken, err := codec.IssueAccess(testUserID, testUserEmail, []users.Role{users.RoleTrainer})
	require.NoError(t, err)

	parts := strings.Split(accessToken, ".")
	require.Len(t, parts, 3)

	// Flip a byte in the signature segment.
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	require.False(t, codec.Validate(tampered))

	_, err = codec.Subject(tampered)
	require.Error(t, err)
	_, err = codec.Roles(tampered)
	require.Error(t, err)
}

func TestExpiredTokenFailsValidation(t *testing.T) {
	codec := newTestCodec(t)

	issuedAt := time.Now().Add(-time.Hour)
	token.NowTimeFunc = func() time.Time { return issuedAt }
	accessToken, err := codec.IssueAccess(testUserID, testUserEmail, []users.Role{users.RoleTrainer})
	token.NowTimeFunc = time.Now
	require.NoError(t, err)

	// 15 minute TTL, issued an hour ago.
	require.False(t, codec.Validate(accessToken))
}

func TestWrongKeyFailsValidation(t *testing.T) {
	codec := newTestCodec(t)
	other, err := token.NewCodec("a-different-secret", 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	accessToken, err := codec.IssueAccess(testUserID, testUserEmail, nil)
	require.NoError(t, err)

	require.True(t, codec.Validate(accessToken))
	require.False(t, other.Validate(accessToken))
}

func TestMalformedTokensFailValidation(t *testing.T) {
	codec := newTestCodec(t)

	for _, raw := range []string{"", "   ", "not-a-token", "a.b", "a.b.c.d", "a.b.c"} {
		require.False(t, codec.Validate(raw), "token %q should be invalid", raw)
	}
}

func TestUnknownRoleFailsClosed(t *testing.T) {
	codec := newTestCodec(t)

	// Roles travel as a comma-joined claim; users.ParseRoles rejects names
	// outside the closed enumeration, so reading roles from such a token
	// must fail rather than return a partial set.
	_, err := users.ParseRoles("ADMIN,SUPERUSER")
	require.Error(t, err)

	accessToken, err := codec.IssueAccess(testUserID, testUserEmail, []users.Role{users.RoleAdmin})
	require.NoError(t, err)
	gotRoles, err := codec.Roles(accessToken)
	require.NoError(t, err)
	require.Equal(t, []users.Role{users.RoleAdmin}, gotRoles)
}
