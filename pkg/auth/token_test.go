package auth

import (
	"testing"
	"time"

	"github.com/qanlink/qanlink-backend/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret: "test-secret",
		Issuer: "qanlink-idp",
	}
}

func TestMintAndParseRoundTrip(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now()

	token, err := MintAccessToken(cfg, now, "idp|user-1", "Aysel M", "aysel@example.com", time.Hour)
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.ExternalID() != "idp|user-1" {
		t.Fatalf("unexpected subject %q", claims.ExternalID())
	}
	if claims.Name != "Aysel M" || claims.Email != "aysel@example.com" {
		t.Fatalf("unexpected profile claims %+v", claims)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), "idp|user-1", "", "", time.Hour)
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	other := cfg
	other.Secret = "different"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), "idp|user-1", "", "", time.Hour)
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	other := cfg
	other.Issuer = "someone-else"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected error for wrong issuer")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), "idp|user-1", "", "", time.Hour)
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}

	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestParseRejectsMissingSubject(t *testing.T) {
	cfg := testJWTConfig()
	if _, err := MintAccessToken(cfg, time.Now(), "  ", "", "", time.Hour); err == nil {
		t.Fatal("expected mint error for blank subject")
	}
}

func TestAudienceEnforcedWhenConfigured(t *testing.T) {
	cfg := testJWTConfig()
	cfg.Audience = "qanlink-api"

	token, err := MintAccessToken(cfg, time.Now(), "idp|user-1", "", "", time.Hour)
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}
	if _, err := ParseAccessToken(cfg, token); err != nil {
		t.Fatalf("ParseAccessToken with matching audience: %v", err)
	}

	noAud := testJWTConfig()
	tokenNoAud, err := MintAccessToken(noAud, time.Now(), "idp|user-1", "", "", time.Hour)
	if err != nil {
		t.Fatalf("MintAccessToken: %v", err)
	}
	if _, err := ParseAccessToken(cfg, tokenNoAud); err == nil {
		t.Fatal("expected error for missing audience claim")
	}
}
