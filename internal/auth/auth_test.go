package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestManager(t *testing.T, ttl time.Duration) *Manager {
	t.Helper()
	m, err := NewManager("test-secret", ttl)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	return m
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager("", time.Hour); err == nil {
		t.Error("expected error for empty secret")
	}
	if _, err := NewManager("secret", 0); err == nil {
		t.Error("expected error for zero ttl")
	}
}

func TestPasswordHashing(t *testing.T) {
	m := newTestManager(t, time.Hour)

	hash, err := m.HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("password stored in plain text")
	}
	if !m.CheckPassword(hash, "correct horse battery staple") {
		t.Error("correct password rejected")
	}
	if m.CheckPassword(hash, "wrong password") {
		t.Error("wrong password accepted")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	m := newTestManager(t, time.Hour)

	token, err := m.GenerateToken("user-1", "admin")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	claims, err := m.ParseToken(token)
	if err != nil {
		t.Fatalf("failed to parse token: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("user id = %s, want user-1", claims.UserID)
	}
	if claims.Role != "admin" {
		t.Errorf("role = %s, want admin", claims.Role)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	m := newTestManager(t, time.Millisecond)

	token, err := m.GenerateToken("user-1", "user")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if _, err := m.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestForeignSecretRejected(t *testing.T) {
	issuer := newTestManager(t, time.Hour)
	verifier, err := NewManager("different-secret", time.Hour)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	token, err := issuer.GenerateToken("user-1", "user")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	if _, err := verifier.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	if _, err := issuer.ParseToken("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}
