// Package codebridge hands a federated login off across the origin boundary:
// the callback handler deposits an already-issued token pair under an opaque
// one-time code, redirects the browser with only that code in the URL, and
// the front end exchanges it for cookies within 60 seconds.
//
// The bridge is process-local by design. Entries do not survive a restart,
// and a multi-instance deployment would need a shared, atomically-mutable
// store behind the same interface.
package codebridge

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// codeTTL is how long an issued code stays redeemable.
const codeTTL = 60 * time.Second

// TokenPair is the payload parked under a one-time code.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type pendingExchange struct {
	tokens    TokenPair
	expiresAt time.Time
}

// Bridge maps one-time codes to pending token pairs. All operations are a
// single map access under the mutex; nothing blocks beyond that.
type Bridge struct {
	mu      sync.Mutex
	pending map[string]pendingExchange
}

func New() *Bridge {
	return &Bridge{
		pending: make(map[string]pendingExchange),
	}
}

// IssueCode parks the token pair under a fresh random code and returns it.
// Already-expired entries are purged on the way in; the purge is amortized
// housekeeping, not needed for correctness.
func (b *Bridge) IssueCode(accessToken, refreshToken string) string {
	now := NowTimeFunc()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.purgeLocked(now)

	code := uuid.NewString()
	b.pending[code] = pendingExchange{
		tokens:    TokenPair{AccessToken: accessToken, RefreshToken: refreshToken},
		expiresAt: now.Add(codeTTL),
	}
	return code
}

// Redeem consumes a code: an atomic get-and-remove. It succeeds at most once
// per code; missing, already-redeemed and expired codes all report false.
// An expired-but-present entry is removed on the failed attempt.
func (b *Bridge) Redeem(code string) (TokenPair, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.pending[code]
	if !ok {
		return TokenPair{}, false
	}
	delete(b.pending, code)

	if NowTimeFunc().After(entry.expiresAt) {
		return TokenPair{}, false
	}
	return entry.tokens, true
}

func (b *Bridge) purgeLocked(now time.Time) {
	for code, entry := range b.pending {
		if now.After(entry.expiresAt) {
			delete(b.pending, code)
		}
	}
}
