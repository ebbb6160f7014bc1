package security

import (
	"context"
	"testing"
	"time"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPasswordHash("s3cret", hash) {
		t.Fatal("expected password to match its hash")
	}
	if CheckPasswordHash("wrong", hash) {
		t.Fatal("expected mismatch for wrong password")
	}
	if CheckPasswordHash("s3cret", "") {
		t.Fatal("empty hash must never match")
	}
}

func TestTokenIssuerClaims(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer([]byte("test-secret"), time.Hour)
	token, err := issuer.GenerateToken("operator", RoleOperator)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	decoded, err := issuer.JWTAuth().Decode(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	claims, err := decoded.AsMap(context.Background())
	if err != nil {
		t.Fatalf("claims: %v", err)
	}

	sub, err := GetSubjectFromClaims(claims)
	if err != nil || sub != "operator" {
		t.Fatalf("sub = %q, err = %v", sub, err)
	}
	role, err := GetRoleFromClaims(claims)
	if err != nil || role != RoleOperator {
		t.Fatalf("role = %q, err = %v", role, err)
	}
}
