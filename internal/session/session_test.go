package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, username string, exp time.Time) string {
	t.Helper()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID:   "u-1",
		Username: username,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

func TestEmptyTokenIsReadOnly(t *testing.T) {
	s := New("")
	if s.Authenticated() {
		t.Error("empty token reported authenticated")
	}
	if s.Token() != "" || s.Username() != "" {
		t.Errorf("empty session = %+v", s.Current())
	}
}

func TestTokenClaimsAreParsedUnverified(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	s := New(signedToken(t, "carol", exp))

	if !s.Authenticated() {
		t.Fatal("valid token reported unauthenticated")
	}
	if got := s.Username(); got != "carol" {
		t.Errorf("username = %q, want carol", got)
	}
	if got := s.Current().ExpiresAt; !got.Equal(exp) {
		t.Errorf("expiry = %v, want %v", got, exp)
	}
}

func TestExpiredTokenIsNotAuthenticated(t *testing.T) {
	s := New(signedToken(t, "carol", time.Now().Add(-time.Minute)))
	if s.Authenticated() {
		t.Error("expired token reported authenticated")
	}
	// The raw token is still carried; the server is the final judge.
	if s.Token() == "" {
		t.Error("expired token dropped from session")
	}
}

func TestOpaqueTokenIsUsableWithoutIdentity(t *testing.T) {
	s := New("not-a-jwt")
	if !s.Authenticated() {
		t.Error("opaque token reported unauthenticated")
	}
	if s.Username() != "" {
		t.Errorf("opaque token produced username %q", s.Username())
	}
}

func TestSetTokenNotifiesSubscribers(t *testing.T) {
	s := New("")
	sub := s.Subscribe()

	s.SetToken(signedToken(t, "carol", time.Now().Add(time.Hour)))

	select {
	case info := <-sub:
		if info.Username != "carol" {
			t.Errorf("notified username = %q", info.Username)
		}
	case <-time.After(time.Second):
		t.Fatal("no notification")
	}

	s.SetToken("")
	select {
	case info := <-sub:
		if info.Authenticated() {
			t.Error("sign-out notification still authenticated")
		}
	case <-time.After(time.Second):
		t.Fatal("no sign-out notification")
	}
	if s.Authenticated() {
		t.Error("session still authenticated after sign-out")
	}
}

func TestSlowSubscriberNeverBlocksSetter(t *testing.T) {
	s := New("")
	s.Subscribe() // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			s.SetToken("tok")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SetToken blocked on a slow subscriber")
	}
}
