package services

import (
	"errors"
	"testing"
	"time"

	"imposter-game-backend/internal/apperr"
)

func TestTokenRoundTrip(t *testing.T) {
	auth := NewAuthService("secret", time.Hour)

	host, err := auth.HostToken("s1")
	if err != nil {
		t.Fatalf("HostToken: %v", err)
	}
	claims, err := auth.ValidateToken(host)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.SessionID != "s1" || claims.Role != TokenRoleHost {
		t.Fatalf("claims = %+v, want host of s1", claims)
	}

	player, err := auth.PlayerToken("s1", "p1", "u1")
	if err != nil {
		t.Fatalf("PlayerToken: %v", err)
	}
	claims, err = auth.ValidateToken(player)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Role != TokenRolePlayer || claims.PlayerID != "p1" || claims.UserID != "u1" {
		t.Fatalf("claims = %+v, want player p1", claims)
	}
}

func TestTokenRejectsForeignSecret(t *testing.T) {
	token, err := NewAuthService("one", time.Hour).HostToken("s1")
	if err != nil {
		t.Fatalf("HostToken: %v", err)
	}
	if _, err := NewAuthService("two", time.Hour).ValidateToken(token); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("ValidateToken error = %v, want Unauthorized", err)
	}
}

func TestTokenRejectsExpired(t *testing.T) {
	auth := NewAuthService("secret", time.Hour)
	auth.ttl = -time.Minute
	token, err := auth.HostToken("s1")
	if err != nil {
		t.Fatalf("HostToken: %v", err)
	}
	if _, err := auth.ValidateToken(token); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("ValidateToken error = %v, want Unauthorized", err)
	}
}

func TestTokenRejectsGarbage(t *testing.T) {
	if _, err := NewAuthService("secret", 0).ValidateToken("not-a-jwt"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("ValidateToken error = %v, want Unauthorized", err)
	}
}
