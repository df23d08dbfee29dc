package auth

import (
	"context"
	"fmt"
	"time"

	"crosspost/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer is written into every session token.
const Issuer = "crosspost"

// Claims are the session token claims. The subject names the logged in
// account; the form has a single owner account.
type Claims struct {
	jwt.RegisteredClaims
}

// GenerateToken issues a session token for subject.
func GenerateToken(subject string, authCfg config.AuthConfig) (string, time.Time, error) {
	jwtID, err := uuid.NewRandom()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate JWT ID: %w", err)
	}

	now := time.Now()
	expirationTime := now.Add(authCfg.JWTExpiry)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			ID:        jwtID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(authCfg.JWTSecretKey))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign JWT: %w", err)
	}
	return tokenString, expirationTime, nil
}

// ValidateToken checks signature, expiry and, when revoked is not nil,
// revocation of tokenString.
func ValidateToken(ctx context.Context, tokenString string, jwtKey string, revoked RevocationStore) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtKey), nil
	}, jwt.WithIssuer(Issuer))
	if err != nil {
		return nil, fmt.Errorf("parse JWT: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("JWT is not valid")
	}

	if revoked != nil {
		if claims.ID == "" {
			return nil, fmt.Errorf("JWT has no JTI, cannot check revocation")
		}
		isRevoked, err := revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			// fail closed
			return nil, fmt.Errorf("check token revocation: %w", err)
		}
		if isRevoked {
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}
