package crypt

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheck(t *testing.T) {
	hash, err := Hash("secret1", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Fatalf("expected bcrypt hash, got %q", hash)
	}
	if !Check("secret1", hash) {
		t.Error("Check should accept the hashed password")
	}
	if Check("secret2", hash) {
		t.Error("Check should reject a different password")
	}
	if Check("", hash) {
		t.Error("Check should reject an empty password")
	}
}

func TestHashIsSalted(t *testing.T) {
	a, err := Hash("secret1", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	b, err := Hash("secret1", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if a == b {
		t.Error("two hashes of the same password should differ")
	}
}

func TestHashCostFallback(t *testing.T) {
	hash, err := Hash("secret1", 0)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("Cost: %v", err)
	}
	if cost != DefaultCost {
		t.Errorf("cost = %d, want %d", cost, DefaultCost)
	}
}

func TestHashTooLong(t *testing.T) {
	_, err := Hash(strings.Repeat("x", MaxPasswordLen+1), bcrypt.MinCost)
	if !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("err = %v, want ErrPasswordTooLong", err)
	}
	if _, err := Hash(strings.Repeat("x", MaxPasswordLen), bcrypt.MinCost); err != nil {
		t.Fatalf("72-byte password should hash: %v", err)
	}
}

func TestCheckGarbage(t *testing.T) {
	for _, stored := range []string{"", "x", "plaintext", "$2a$bogus", "XXq2wKiyI43A2"} {
		if Check("plaintext", stored) {
			t.Errorf("Check accepted stored value %q", stored)
		}
	}
}
