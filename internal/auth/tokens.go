package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stipendia/stipendia/internal/users"
)

// Identity is the authenticated principal a token resolves to.
type Identity struct {
	UserID   int64
	Username string
	Role     users.Role
}

type tokenEntry struct {
	identity Identity
	lastSeen time.Time
}

// TokenStore maps opaque session tokens to authenticated identities. It is
// process-wide state shared by every connection; a restart invalidates all
// sessions. An idle TTL of zero disables expiry.
type TokenStore struct {
	mu      sync.RWMutex
	tokens  map[string]*tokenEntry
	idleTTL time.Duration
	now     func() time.Time
}

// NewTokenStore constructs a TokenStore.
func NewTokenStore(idleTTL time.Duration) *TokenStore {
	return &TokenStore{
		tokens:  make(map[string]*tokenEntry),
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

// Issue creates a fresh opaque token for the identity.
func (ts *TokenStore) Issue(identity Identity) string {
	token := uuid.NewString()
	ts.mu.Lock()
	ts.tokens[token] = &tokenEntry{identity: identity, lastSeen: ts.now()}
	ts.mu.Unlock()
	return token
}

// Validate resolves a token to its identity. Expired or unknown tokens fail.
// Each successful validation refreshes the idle clock.
func (ts *TokenStore) Validate(token string) (Identity, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	entry, ok := ts.tokens[token]
	if !ok {
		return Identity{}, false
	}
	now := ts.now()
	if ts.idleTTL > 0 && now.Sub(entry.lastSeen) > ts.idleTTL {
		delete(ts.tokens, token)
		return Identity{}, false
	}
	entry.lastSeen = now
	return entry.identity, true
}

// Revoke removes a single token.
func (ts *TokenStore) Revoke(token string) {
	ts.mu.Lock()
	delete(ts.tokens, token)
	ts.mu.Unlock()
}

// RevokeUser removes every token belonging to the user.
func (ts *TokenStore) RevokeUser(userID int64) {
	ts.mu.Lock()
	for token, entry := range ts.tokens {
		if entry.identity.UserID == userID {
			delete(ts.tokens, token)
		}
	}
	ts.mu.Unlock()
}

// Len reports the number of live tokens.
func (ts *TokenStore) Len() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.tokens)
}
