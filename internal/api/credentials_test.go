package api

import (
	"strings"
	"testing"
)

func TestNewProjectID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		id, err := NewProjectID()
		if err != nil {
			t.Fatal(err)
		}
		if len(id) != projectIDLength {
			t.Fatalf("expected %d characters, got %d", projectIDLength, len(id))
		}
		for _, r := range id {
			if !strings.ContainsRune(projectIDAlphabet, r) {
				t.Fatalf("character %q outside the credential alphabet", r)
			}
		}
		if seen[id] {
			t.Fatal("credential collision across consecutive draws")
		}
		seen[id] = true
	}
}
