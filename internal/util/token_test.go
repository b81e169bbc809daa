package util

import "testing"

func TestGenerateTokenUnique(t *testing.T) {
	first, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}
	second, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct tokens")
	}
	if len(first) < 40 {
		t.Fatalf("token shorter than expected: %d chars", len(first))
	}
}

func TestHashTokenStable(t *testing.T) {
	token, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken returned error: %v", err)
	}
	if HashToken(token) != HashToken(token) {
		t.Fatalf("expected stable digest for same token")
	}
	if HashToken(token) == HashToken(token+"x") {
		t.Fatalf("expected different digest for different token")
	}
	if HashToken(token) == token {
		t.Fatalf("digest must not equal raw token")
	}
}
