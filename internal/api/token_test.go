package api

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 3600)

	token, err := issuer.Issue("0xAbC", time.Now())
	if err != nil {
		t.Fatal(err)
	}

	address, err := issuer.Verify(token)
	if err != nil {
		t.Fatal(err)
	}
	if address != "0xAbC" {
		t.Errorf("expected address to round-trip, got %q", address)
	}
}

func TestTokenExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 60)

	token, err := issuer.Issue("0xAbC", time.Now().Add(-2*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := issuer.Verify(token); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := NewTokenIssuer("secret-a", 3600).Issue("0xAbC", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewTokenIssuer("secret-b", 3600).Verify(token); err == nil {
		t.Error("expected signature mismatch to be rejected")
	}
}

func TestTokenGarbage(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 3600)
	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := issuer.Verify(token); err == nil {
			t.Errorf("expected %q to be rejected", token)
		}
	}
}

func TestTokenClaimsAreStrings(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", 3600)

	token, err := issuer.Issue("0xAbC", time.Unix(1700000000, 0))
	if err != nil {
		t.Fatal(err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("expected 3 token segments, got %d", len(parts))
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatal(err)
	}

	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		t.Fatal(err)
	}
	// iat/exp travel as strings, not JSON numbers.
	if got, ok := claims["iat"].(string); !ok || got != "1700000000" {
		t.Errorf("expected string iat, got %T %v", claims["iat"], claims["iat"])
	}
	if got, ok := claims["exp"].(string); !ok || got != "1700003600" {
		t.Errorf("expected string exp, got %T %v", claims["exp"], claims["exp"])
	}
	if claims["username"] != "0xAbC" {
		t.Errorf("unexpected username claim %v", claims["username"])
	}
}
