package authtoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueVerify_RoundTrip(t *testing.T) {
	iss, err := NewIssuer("test_secret", 10*time.Minute)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	now := time.Unix(1700000000, 0)

	tok, exp, err := iss.Issue("user-1", "admin", "admin", now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !exp.Equal(now.Add(10 * time.Minute)) {
		t.Fatalf("unexpected expiry %s", exp)
	}

	got, err := iss.Verify(tok, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.Subject != "user-1" || got.Username != "admin" || got.Role != "admin" {
		t.Fatalf("claims mismatch: %+v", got)
	}

	if _, err := iss.Verify(tok, now.Add(11*time.Minute)); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestVerify_RejectsOtherSecretAndMethod(t *testing.T) {
	now := time.Unix(1700000000, 0)
	a, _ := NewIssuer("secret-a", time.Hour)
	b, _ := NewIssuer("secret-b", time.Hour)

	tok, _, err := a.Issue("user-1", "admin", "admin", now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := b.Verify(tok, now); err == nil {
		t.Fatalf("expected signature mismatch")
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Role: "admin",
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := a.Verify(none, now); err == nil {
		t.Fatalf("expected alg none to be rejected")
	}
}

func TestNewIssuer_RequiresSecret(t *testing.T) {
	if _, err := NewIssuer("", time.Hour); err == nil {
		t.Fatalf("expected error")
	}
}
