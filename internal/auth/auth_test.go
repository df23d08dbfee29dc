package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"crosspost/internal/config"
)

type memRevocations map[string]time.Time

func (m memRevocations) Revoke(_ context.Context, jti string, exp time.Time) error {
	m[jti] = exp
	return nil
}

func (m memRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, ok := m[jti]
	return ok, nil
}

var testAuthCfg = config.AuthConfig{JWTSecretKey: "secret", JWTExpiry: time.Hour}

func TestTokenRoundTrip(t *testing.T) {
	token, exp, err := GenerateToken("owner", testAuthCfg)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if time.Until(exp) <= 59*time.Minute {
		t.Errorf("expiry too early: %v", exp)
	}

	bl := memRevocations{}
	claims, err := ValidateToken(context.Background(), token, "secret", bl)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "owner" || claims.ID == "" {
		t.Errorf("unexpected claims %+v", claims)
	}

	_ = bl.Revoke(context.Background(), claims.ID, exp)
	if _, err := ValidateToken(context.Background(), token, "secret", bl); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("err = %v, want ErrTokenRevoked", err)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	token, _, err := GenerateToken("owner", testAuthCfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ValidateToken(context.Background(), token, "other", nil); err == nil {
		t.Error("token signed with another key must be rejected")
	}

	expired, _, err := GenerateToken("owner", config.AuthConfig{JWTSecretKey: "secret", JWTExpiry: -time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ValidateToken(context.Background(), expired, "secret", nil); err == nil {
		t.Error("expired token must be rejected")
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPasswordHash("hunter2", hash) {
		t.Error("correct password rejected")
	}
	if CheckPasswordHash("hunter3", hash) {
		t.Error("wrong password accepted")
	}
	if CheckPasswordHash("hunter2", "") {
		t.Error("empty hash must never match")
	}
}
