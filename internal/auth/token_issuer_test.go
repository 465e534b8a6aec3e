package auth

import (
	"strings"
	"testing"
	"time"
)

func newTestIssuer(clock func() time.Time) *TokenIssuer {
	return NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("test-secret"),
		Issuer:        "campus-auth",
		Audience:      "campus-api",
		TokenTTL:      time.Hour,
		Clock:         clock,
	})
}

func TestIssueAndValidateRoundTrip(t *testing.T) {
	issuer := newTestIssuer(func() time.Time { return time.Unix(1700000000, 0) })

	token, err := issuer.IssueToken("user-123")
	if err != nil {
		t.Fatalf("unexpected issue error: %v", err)
	}
	if token == "" {
		t.Fatalf("expected a signed token")
	}

	subject, err := issuer.ValidateToken(token)
	if err != nil {
		t.Fatalf("unexpected validate error: %v", err)
	}
	if subject != "user-123" {
		t.Fatalf("expected subject user-123, got %q", subject)
	}
}

func TestIssueTokenRequiresSubject(t *testing.T) {
	issuer := newTestIssuer(nil)
	if _, err := issuer.IssueToken(""); err == nil {
		t.Fatalf("expected error for empty subject")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	now := time.Unix(1700000000, 0)
	issuer := newTestIssuer(func() time.Time { return now })

	token, err := issuer.IssueToken("user-123")
	if err != nil {
		t.Fatalf("unexpected issue error: %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := issuer.ValidateToken(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer := newTestIssuer(nil)
	token, err := issuer.IssueToken("user-123")
	if err != nil {
		t.Fatalf("unexpected issue error: %v", err)
	}

	other := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("different-secret"),
		Issuer:        "campus-auth",
		Audience:      "campus-api",
	})
	if _, err := other.ValidateToken(token); err == nil {
		t.Fatalf("expected signature mismatch to be rejected")
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	issuer := newTestIssuer(nil)
	if _, err := issuer.ValidateToken(strings.Repeat("x", 32)); err == nil {
		t.Fatalf("expected malformed token to be rejected")
	}
}
