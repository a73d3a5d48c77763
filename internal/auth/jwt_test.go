package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// newTestTokenService uses a fixed secret so tests are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// =========================================================================
// CONSTRUCTION
// =========================================================================

func TestNewTokenService_SecretLength(t *testing.T) {
	if _, err := NewTokenService("short"); err == nil {
		t.Error("NewTokenService() should reject secrets shorter than 16 chars")
	}
	if _, err := NewTokenService("this-is-16-chars"); err != nil {
		t.Errorf("NewTokenService() unexpected error for valid secret: %v", err)
	}
}

// =========================================================================
// ISSUE / VALIDATE
// =========================================================================

func TestIssue_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Issue("alice", time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("token %q is not header.payload.signature", token)
	}

	id, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if id.Subject != "alice" {
		t.Errorf("Subject = %q, want %q", id.Subject, "alice")
	}
	if id.TokenID == "" {
		t.Error("TokenID is empty")
	}
	if until := time.Until(id.ExpiresAt); until < 59*time.Minute || until > time.Hour+time.Minute {
		t.Errorf("ExpiresAt %v is not about an hour away", id.ExpiresAt)
	}
}

func TestIssue_UniqueTokenIDs(t *testing.T) {
	ts := newTestTokenService(t)

	a, _ := ts.Issue("alice", time.Hour)
	b, _ := ts.Issue("alice", time.Hour)
	idA, _ := ts.Validate(a)
	idB, _ := ts.Validate(b)
	if idA.TokenID == idB.TokenID {
		t.Errorf("two tokens share jti %q", idA.TokenID)
	}
}

func TestIssue_DefaultTTL(t *testing.T) {
	ts := newTestTokenService(t)
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ts.now = func() time.Time { return fixed }

	token, err := ts.Issue("bob", 0)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	id, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !id.ExpiresAt.Equal(fixed.Add(DefaultTTL)) {
		t.Errorf("ExpiresAt = %v, want %v", id.ExpiresAt, fixed.Add(DefaultTTL))
	}
}

func TestIssue_EmptySubject(t *testing.T) {
	if _, err := newTestTokenService(t).Issue("", time.Hour); err == nil {
		t.Error("Issue() should reject an empty subject")
	}
}

func TestValidate_Expired(t *testing.T) {
	ts := newTestTokenService(t)
	start := time.Now()
	ts.now = func() time.Time { return start }

	token, err := ts.Issue("alice", time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	ts.now = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = ts.Validate(token)
	if err == nil || !strings.Contains(err.Error(), "expired") {
		t.Errorf("Validate() error = %v, want expired", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	ts := newTestTokenService(t)
	good, _ := ts.Issue("alice", time.Hour)

	other, _ := NewTokenService("a-completely-different-secret")
	foreign, _ := other.Issue("alice", time.Hour)

	wrongIssuer, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(ts.secret)

	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "alice",
		Issuer:  issuer,
	}).SignedString(ts.secret)

	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "alice",
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"tampered", good[:len(good)-4] + "AAAA"},
		{"wrong secret", foreign},
		{"wrong issuer", wrongIssuer},
		{"no expiry", noExpiry},
		{"alg none", unsigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ts.Validate(tt.token); err == nil {
				t.Error("Validate() accepted a bad token")
			}
		})
	}
}
