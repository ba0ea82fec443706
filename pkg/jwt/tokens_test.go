package jwt

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateAndParseRoundTrip(t *testing.T) {
	token, err := GenerateToken("user-1", "team-1", KindAccess, "secret", time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := Parse(token, "secret", KindAccess)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "user-1" || claims.TeamID != "team-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseRejectsRefreshAsAccess(t *testing.T) {
	token, err := GenerateToken("user-1", "", KindRefresh, "secret", time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := Parse(token, "secret", KindAccess); !errors.Is(err, ErrWrongKind) {
		t.Fatalf("expected ErrWrongKind, got %v", err)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken("user-1", "", KindAccess, "secret", time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := Parse(token, "other", KindAccess); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	token, err := GenerateToken("user-1", "", KindAccess, "secret", -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := Parse(token, "secret", KindAccess); err == nil {
		t.Fatalf("expected expiry error")
	}
}
