package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crosspost/internal/auth"
	"crosspost/internal/config"
)

// OwnerSubject is the subject of every session token.
const OwnerSubject = "owner"

var (
	ErrInvalidCredentials = errors.New("incorrect password")
	ErrNotAuthenticated   = errors.New("not authenticated")
)

// AuthService guards the form behind the configured password.
type AuthService interface {
	Login(ctx context.Context, password string) (token string, expiresAt time.Time, err error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
}

// authService 是 AuthService 的实现。
type authService struct {
	cfg     config.AuthConfig
	revoked auth.RevocationStore
}

// NewAuthService creates an AuthService. revoked may be nil, in which case
// logout only clears the cookie.
func NewAuthService(cfg config.AuthConfig, revoked auth.RevocationStore) AuthService {
	return &authService{cfg: cfg, revoked: revoked}
}

// Login checks the password and issues a session token.
func (s *authService) Login(ctx context.Context, password string) (string, time.Time, error) {
	if !auth.CheckPasswordHash(password, s.cfg.PasswordHash) {
		return "", time.Time{}, ErrInvalidCredentials
	}
	token, expiresAt, err := auth.GenerateToken(OwnerSubject, s.cfg)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue session token: %w", err)
	}
	return token, expiresAt, nil
}

// Logout revokes token until it expires.
func (s *authService) Logout(ctx context.Context, token string) error {
	claims, err := auth.ValidateToken(ctx, token, s.cfg.JWTSecretKey, nil)
	if err != nil {
		// an invalid token is as good as logged out
		return nil
	}
	if s.revoked == nil || claims.ExpiresAt == nil {
		return nil
	}
	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// Authenticate validates a session token.
func (s *authService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	if token == "" {
		return nil, ErrNotAuthenticated
	}
	claims, err := auth.ValidateToken(ctx, token, s.cfg.JWTSecretKey, s.revoked)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}
	return claims, nil
}
