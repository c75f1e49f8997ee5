// Package session holds the viewer's credential and publishes changes to
// it. Components that need the token (channel URL builder, REST client)
// receive a *Session instead of reading ambient state, so sign-in and
// sign-out propagate without global lookups.
package session

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of the platform's access-token claims the viewer
// cares about. The client never verifies the signature; the server does
// that on every hop. It only reads identity and expiry.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// Info is a snapshot of the current credential state.
type Info struct {
	Token     string
	Username  string
	ExpiresAt time.Time
}

// Authenticated reports whether the snapshot carries a usable credential.
func (i Info) Authenticated() bool {
	if i.Token == "" {
		return false
	}
	if i.ExpiresAt.IsZero() {
		return true
	}
	return time.Now().Before(i.ExpiresAt)
}

// Session is safe for concurrent use.
type Session struct {
	mu   sync.RWMutex
	info Info
	subs []chan Info
}

// New builds a session from a bearer token. An empty token yields a valid
// unauthenticated (read-only) session.
func New(token string) *Session {
	s := &Session{}
	s.info = parseToken(token)
	return s
}

// Current returns the credential snapshot.
func (s *Session) Current() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

// Token returns the raw bearer token, or "" when signed out.
func (s *Session) Token() string {
	return s.Current().Token
}

// Username returns the identity claimed by the token, or "".
func (s *Session) Username() string {
	return s.Current().Username
}

// Authenticated reports whether a usable credential is present.
func (s *Session) Authenticated() bool {
	return s.Current().Authenticated()
}

// SetToken replaces the credential and notifies subscribers.
// An empty token signs the session out.
func (s *Session) SetToken(token string) {
	info := parseToken(token)

	s.mu.Lock()
	s.info = info
	subs := make([]chan Info, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- info:
		default:
		}
	}
}

// Subscribe returns a channel that receives a snapshot on every
// credential change. The channel is buffered; a slow consumer misses
// intermediate snapshots, never blocks the setter.
func (s *Session) Subscribe() <-chan Info {
	ch := make(chan Info, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

func parseToken(token string) Info {
	if token == "" {
		return Info{}
	}

	info := Info{Token: token}

	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		// Opaque token: usable for the server, no local identity.
		return info
	}

	info.Username = claims.Username
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info
}
