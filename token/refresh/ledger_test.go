package refresh_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	errs "github.com/astba/trainingcenter/internal/errors"
	"github.com/astba/trainingcenter/token/refresh"
	"github.com/astba/trainingcenter/token/refresh/repofake"
)

const testUserID = "user-1"

func newTestLedger() (*refresh.Ledger, *refreshrepofake.FakeRefreshTokenRepo) {
	repo := refreshrepofake.NewFakeRefreshTokenRepo()
	return refresh.NewLedger(repo), repo
}

func TestStoreAndValidate(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	err := ledger.Store(ctx, testUserID, "raw-token", time.Now().Add(time.Hour))
	require.NoError(t, err)

	record, err := ledger.Validate(ctx, "raw-token")
	require.NoError(t, err)
	require.Equal(t, testUserID, record.UserID)
	require.Equal(t, refresh.HashToken("raw-token"), record.TokenHash)
	require.Nil(t, record.RevokedAt)
}

func TestValidateUnknownTokenFails(t *testing.T) {
	ledger, _ := newTestLedger()

	_, err := ledger.Validate(context.Background(), "never-stored")
	require.ErrorIs(t, err, errs.ErrTokenNotUsable)
}

func TestValidateExpiredTokenFails(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	err := ledger.Store(ctx, testUserID, "raw-token", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	_, err = ledger.Validate(ctx, "raw-token")
	require.ErrorIs(t, err, errs.ErrTokenNotUsable)
}

func TestRevokeMakesTokenUnusable(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Store(ctx, testUserID, "raw-token", time.Now().Add(time.Hour)))
	require.NoError(t, ledger.Revoke(ctx, "raw-token"))

	_, err := ledger.Validate(ctx, "raw-token")
	require.ErrorIs(t, err, errs.ErrTokenNotUsable)

	// Revoking again is a no-op.
	require.NoError(t, ledger.Revoke(ctx, "raw-token"))
}

func TestRevokeAllForUser(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	expiry := time.Now().Add(time.Hour)

	require.NoError(t, ledger.Store(ctx, testUserID, "token-a", expiry))
	require.NoError(t, ledger.Store(ctx, testUserID, "token-b", expiry))
	require.NoError(t, ledger.Store(ctx, "user-2", "token-c", expiry))

	require.NoError(t, ledger.RevokeAll(ctx, testUserID))

	_, err := ledger.Validate(ctx, "token-a")
	require.ErrorIs(t, err, errs.ErrTokenNotUsable)
	_, err = ledger.Validate(ctx, "token-b")
	require.ErrorIs(t, err, errs.ErrTokenNotUsable)

	// The other user's token survives.
	_, err = ledger.Validate(ctx, "token-c")
	require.NoError(t, err)
}

func TestRotateSwapsOldForNew(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	expiry := time.Now().Add(time.Hour)

	require.NoError(t, ledger.Store(ctx, testUserID, "old-token", expiry))
	require.NoError(t, ledger.Rotate(ctx, testUserID, "old-token", "new-token", expiry))

	_, err := ledger.Validate(ctx, "old-token")
	require.ErrorIs(t, err, errs.ErrTokenNotUsable)

	record, err := ledger.Validate(ctx, "new-token")
	require.NoError(t, err)
	require.Equal(t, testUserID, record.UserID)
}

func TestRotateRevokedTokenFails(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	expiry := time.Now().Add(time.Hour)

	require.NoError(t, ledger.Store(ctx, testUserID, "old-token", expiry))
	require.NoError(t, ledger.Revoke(ctx, "old-token"))

	err := ledger.Rotate(ctx, testUserID, "old-token", "new-token", expiry)
	require.ErrorIs(t, err, errs.ErrTokenNotUsable)

	// The replacement must not have been stored.
	_, err = ledger.Validate(ctx, "new-token")
	require.ErrorIs(t, err, errs.ErrTokenNotUsable)
}

func TestConcurrentRotateSingleWinner(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	expiry := time.Now().Add(time.Hour)

	require.NoError(t, ledger.Store(ctx, testUserID, "old-token", expiry))

	const attempts = 50
	results := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			newToken := "new-token-" + string(rune('a'+i%26)) + string(rune('a'+i/26))
			results[i] = ledger.Rotate(ctx, testUserID, "old-token", newToken, expiry)
		}(i)
	}
	wg.Wait()

	var winners int
	for _, err := range results {
		if err == nil {
			winners++
		} else {
			require.ErrorIs(t, err, errs.ErrTokenNotUsable)
		}
	}
	require.Equal(t, 1, winners)
}

func TestCleanupExpired(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	require.NoError(t, ledger.Store(ctx, testUserID, "live-token", time.Now().Add(time.Hour)))
	require.NoError(t, ledger.Store(ctx, testUserID, "dead-token", time.Now().Add(-time.Hour)))

	deleted, err := ledger.CleanupExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	_, err = ledger.Validate(ctx, "live-token")
	require.NoError(t, err)
}

func TestHashTokenIsDeterministic(t *testing.T) {
	require.Equal(t, refresh.HashToken("abc"), refresh.HashToken("abc"))
	require.NotEqual(t, refresh.HashToken("abc"), refresh.HashToken("abd"))
	require.Len(t, refresh.HashToken("abc"), 64)
}
