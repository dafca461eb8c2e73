package utils

import (
	"strings"
	"testing"
)

func TestGenerateRandomString(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		s := GenerateRandomString(12)
		if len(s) != 12 {
			t.Fatalf("Wrong length: got %d, want 12", len(s))
		}
		for _, c := range s {
			if !strings.ContainsRune(randomAlphabet, c) {
				t.Fatalf("Character %q outside alphabet", c)
			}
		}
		if seen[s] {
			t.Fatalf("Duplicate string generated: %s", s)
		}
		seen[s] = true
	}
}

func TestGenerateRandomStringZeroLength(t *testing.T) {
	if s := GenerateRandomString(0); s != "" {
		t.Errorf("Expected empty string, got %q", s)
	}
}
