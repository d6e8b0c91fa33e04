// Package auth issues and verifies the bearer tokens handed out by
// POST /auth/token.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrTokenUnknown       = errors.New("unknown token")
	ErrTokenExpired       = errors.New("token expired")
)

// DefaultTTL is used when an Issuer has no TTL.
const DefaultTTL = 24 * time.Hour

// Token is an issued access token.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Username    string    `json:"-"`
}

// Issuer checks credentials against bcrypt hashes and keeps issued tokens
// in memory. Tokens do not survive a restart.
type Issuer struct {
	Users map[string]string // username -> bcrypt hash
	TTL   time.Duration
	Now   func() time.Time

	mu     sync.Mutex
	tokens map[string]Token
}

// NewIssuer creates an issuer for users.
func NewIssuer(users map[string]string, ttl time.Duration) *Issuer {
	return &Issuer{Users: users, TTL: ttl}
}

// Enabled reports whether any user is configured.
func (i *Issuer) Enabled() bool {
	return i != nil && len(i.Users) > 0
}

func (i *Issuer) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now()
}

// Issue returns a new token for valid credentials.
func (i *Issuer) Issue(username, password string) (Token, error) {
	hash, ok := i.Users[username]
	if !ok {
		// compare anyway so unknown users cost the same as bad passwords
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return Token{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return Token{}, ErrInvalidCredentials
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return Token{}, err
	}
	ttl := i.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := i.now()
	token := Token{
		AccessToken: hex.EncodeToString(raw),
		TokenType:   "bearer",
		ExpiresAt:   now.Add(ttl),
		Username:    username,
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.tokens == nil {
		i.tokens = make(map[string]Token)
	}
	for k, t := range i.tokens {
		if !now.Before(t.ExpiresAt) {
			delete(i.tokens, k)
		}
	}
	i.tokens[token.AccessToken] = token
	return token, nil
}

// Verify returns the user a token was issued to.
func (i *Issuer) Verify(accessToken string) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	t, ok := i.tokens[accessToken]
	if !ok {
		return "", ErrTokenUnknown
	}
	if !i.now().Before(t.ExpiresAt) {
		delete(i.tokens, accessToken)
		return "", ErrTokenExpired
	}
	return t.Username, nil
}

// Revoke drops a token.
func (i *Issuer) Revoke(accessToken string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.tokens, accessToken)
}

// HashPassword returns the bcrypt hash to put in the users table.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

var (
	dummyOnce sync.Once
	dummy     []byte
)

func dummyHash() []byte {
	dummyOnce.Do(func() {
		dummy, _ = bcrypt.GenerateFromPassword([]byte("dummy"), bcrypt.DefaultCost)
	})
	return dummy
}
