package session

import (
	"testing"
	"time"
)

func TestMintAndVerify(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tok, err := MintToken("ops@example.com", "secret", time.Hour, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, err := VerifyToken(tok, "secret", now.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Subject != "ops@example.com" {
		t.Fatalf("expected subject round-trip, got %q", v.Subject)
	}
}

func TestVerify_RejectsExpired(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tok, err := MintToken("ops", "secret", time.Hour, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := VerifyToken(tok, "secret", now.Add(2*time.Hour)); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tok, err := MintToken("ops", "secret", time.Hour, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := VerifyToken(tok, "other", now); err == nil {
		t.Fatalf("expected signature error")
	}
}
