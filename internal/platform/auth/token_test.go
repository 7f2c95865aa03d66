package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func newTestIssuer(now time.Time) *TokenIssuer {
	ti := NewTokenIssuer(testSigningKey, "clinic-api", time.Hour)
	ti.now = func() time.Time { return now }
	return ti
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	now := time.Now()
	ti := newTestIssuer(now)
	pid := uuid.New()
	in := Principal{UserID: uuid.New(), Role: RolePatient, PatientID: &pid}

	token, exp, err := ti.Issue(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exp.Equal(now.Add(time.Hour)) {
		t.Errorf("expected expiry one hour out, got %s", exp)
	}

	out, err := ti.Parse(token)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if out.UserID != in.UserID || out.Role != RolePatient {
		t.Errorf("expected %+v, got %+v", in, out)
	}
	if out.PatientID == nil || *out.PatientID != pid {
		t.Errorf("expected patient id %s, got %v", pid, out.PatientID)
	}
}

func TestTokenIssuer_NoPatientID(t *testing.T) {
	ti := newTestIssuer(time.Now())
	token, _, err := ti.Issue(Principal{UserID: uuid.New(), Role: RoleDoctor})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := ti.Parse(token)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if out.PatientID != nil {
		t.Errorf("expected no patient id, got %v", out.PatientID)
	}
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuedAt := time.Now().Add(-2 * time.Hour)
	token, _, err := newTestIssuer(issuedAt).Issue(Principal{UserID: uuid.New(), Role: RoleDoctor})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = newTestIssuer(time.Now()).Parse(token)
	if err != ErrTokenExpired {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if err.Error() != "token expired" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestTokenIssuer_Invalid(t *testing.T) {
	ti := newTestIssuer(time.Now())

	wrongKey := NewTokenIssuer([]byte("another-key"), "clinic-api", time.Hour)
	foreign, _, _ := wrongKey.Issue(Principal{UserID: uuid.New(), Role: RoleDoctor})

	otherIssuer := NewTokenIssuer(testSigningKey, "someone-else", time.Hour)
	misissued, _, _ := otherIssuer.Issue(Principal{UserID: uuid.New(), Role: RoleDoctor})

	badRole, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			Issuer:    "clinic-api",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "Janitor",
	}).SignedString(testSigningKey)

	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.NewString(), Issuer: "clinic-api"},
		Role:             RoleDoctor,
	}).SignedString(testSigningKey)

	tests := map[string]string{
		"garbage":       "not-a-token",
		"wrong key":     foreign,
		"wrong issuer":  misissued,
		"unknown role":  badRole,
		"no expiration": noExp,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ti.Parse(token); err != ErrInvalidToken {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestTokenIssuer_Empty(t *testing.T) {
	if _, err := newTestIssuer(time.Now()).Parse(""); err != ErrMissingToken {
		t.Errorf("expected ErrMissingToken, got %v", err)
	}
}
