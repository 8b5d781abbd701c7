package channel

import (
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	m, err := NewManager(Config{
		Key:    testKey,
		TTL:    time.Hour,
		Issuer: "goshield",
		Leeway: 30 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestMintThenVerify(t *testing.T) {
	m := newTestManager(t)

	token, err := m.Mint("s1")
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	if err := m.Verify(token, "s1"); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
}

func TestVerifyRejectsOtherSession(t *testing.T) {
	m := newTestManager(t)

	token, err := m.Mint("s1")
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}
	if err := m.Verify(token, "s2"); !errors.Is(err, ErrSessionMismatch) {
		t.Fatalf("Verify for other session returned %v, want ErrSessionMismatch", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m := newTestManager(t)

	claims := Claims{SID: "s1", RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "goshield",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-2 * time.Minute)),
		IssuedAt:  gjwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims)
	expired, err := tok.SignedString(testKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if err := m.Verify(expired, "s1"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Verify of expired token returned %v, want ErrTokenInvalid", err)
	}
}

func TestVerifyAllowsExpiryWithinLeeway(t *testing.T) {
	m := newTestManager(t)

	claims := Claims{SID: "s1", RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "goshield",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-15 * time.Second)),
		IssuedAt:  gjwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims)
	within, err := tok.SignedString(testKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if err := m.Verify(within, "s1"); err != nil {
		t.Fatalf("token within leeway rejected: %v", err)
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	m := newTestManager(t)

	claims := Claims{SID: "s1", RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "goshield",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  gjwt.NewNumericDate(time.Now()),
	}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims)
	forged, err := tok.SignedString([]byte("attacker-controlled-key-material"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if err := m.Verify(forged, "s1"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Verify of forged token returned %v, want ErrTokenInvalid", err)
	}
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	m := newTestManager(t)

	claims := Claims{SID: "s1", RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "goshield",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS384, claims)
	other, err := tok.SignedString(testKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if err := m.Verify(other, "s1"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Verify of HS384 token returned %v, want ErrTokenInvalid", err)
	}
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	m := newTestManager(t)

	claims := Claims{SID: "s1", RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "someone-else",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  gjwt.NewNumericDate(time.Now()),
	}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims)
	other, err := tok.SignedString(testKey)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if err := m.Verify(other, "s1"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("Verify with wrong issuer returned %v, want ErrTokenInvalid", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m := newTestManager(t)

	for _, input := range []string{"", "garbage", "a.b.c"} {
		if err := m.Verify(input, "s1"); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("Verify(%q) returned %v, want ErrTokenInvalid", input, err)
		}
	}
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(Config{TTL: time.Hour}); err == nil {
		t.Fatal("NewManager accepted an empty key")
	}
	if _, err := NewManager(Config{Key: testKey}); err == nil {
		t.Fatal("NewManager accepted a zero TTL")
	}
	if _, err := NewManager(Config{Key: testKey, TTL: time.Hour, Leeway: 5 * time.Minute}); err == nil {
		t.Fatal("NewManager accepted an oversized leeway")
	}
	if _, err := NewManager(Config{Key: testKey, TTL: time.Hour, Leeway: -time.Second}); err == nil {
		t.Fatal("NewManager accepted a negative leeway")
	}
}

func TestMintRequiresSession(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Mint(""); err == nil {
		t.Fatal("Mint accepted an empty session id")
	}
}
