package authn

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/louisbranch/taskhub/internal/platform/errors"
	"golang.org/x/crypto/bcrypt"
)

func newTestProvider(t *testing.T, now *time.Time) *Provider {
	t.Helper()
	p, err := NewProvider("test-secret", time.Hour,
		WithBcryptCost(bcrypt.MinCost),
		WithClock(func() time.Time { return *now }),
	)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return p
}

func TestNewProviderRequiresSecret(t *testing.T) {
	if _, err := NewProvider("  ", time.Hour); err == nil {
		t.Fatal("expected blank secret to fail")
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	now := time.Now()
	p := newTestProvider(t, &now)
	hash, err := p.HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "s3cret!" {
		t.Fatal("expected hash to differ from password")
	}
	if !p.VerifyPassword(hash, "s3cret!") {
		t.Fatal("expected password to verify")
	}
	if p.VerifyPassword(hash, "wrong") {
		t.Fatal("expected wrong password to fail")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	p := newTestProvider(t, &now)
	token, err := p.IssueToken(42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if token.TokenType != "bearer" || token.AccessToken == "" {
		t.Fatalf("unexpected token %+v", token)
	}
	userID, err := p.ParseToken(token.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if userID != 42 {
		t.Fatalf("expected user 42, got %d", userID)
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	p := newTestProvider(t, &now)
	token, err := p.IssueToken(1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	now = now.Add(2 * time.Hour)
	_, err = p.ParseToken(token.AccessToken)
	if apperrors.KindOf(err) != apperrors.KindUnauthenticated {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestParseTokenRejectsOtherSecretAndGarbage(t *testing.T) {
	now := time.Now()
	p := newTestProvider(t, &now)
	other, err := NewProvider("other-secret", time.Hour)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	token, err := other.IssueToken(1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	for _, raw := range []string{token.AccessToken, "not-a-jwt", ""} {
		if _, err := p.ParseToken(raw); apperrors.KindOf(err) != apperrors.KindUnauthenticated {
			t.Fatalf("expected unauthenticated for %q, got %v", raw, err)
		}
	}
}

func TestParseTokenRejectsNoneAlgorithm(t *testing.T) {
	now := time.Now()
	p := newTestProvider(t, &now)
	claims := jwt.RegisteredClaims{Subject: "1", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if !strings.HasSuffix(unsigned, ".") {
		t.Fatalf("expected unsigned token, got %q", unsigned)
	}
	if _, err := p.ParseToken(unsigned); err == nil {
		t.Fatal("expected none algorithm to be rejected")
	}
}
