package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/staynest/backend/internal/config"
)

const (
	resetTokenType  = "password_reset"
	minSecretLength = 32
)

// ErrInvalidToken covers malformed, badly signed and expired tokens alike.
// Callers must not be able to tell which failure occurred.
var ErrInvalidToken = errors.New("invalid or expired token")

// SessionClaims is the payload of a session token. TokenType stays empty
// for session tokens; a non-empty value means the artifact is of another
// kind and must not be accepted as a session.
type SessionClaims struct {
	Email     string `json:"email"`
	TokenType string `json:"token_type,omitempty"`
	jwt.RegisteredClaims
}

// ResetClaims is the payload of a password-reset token. The token_type
// discriminator and the jti are mandatory.
type ResetClaims struct {
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

func (c *SessionClaims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return id, nil
}

func (c *ResetClaims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return id, nil
}

type TokenService struct {
	secret           []byte
	sessionTTL       time.Duration
	resetTTL         time.Duration
	refreshThreshold time.Duration
}

func NewTokenService(cfg config.AuthConfig) (*TokenService, error) {
	if len(cfg.JWTSecret) < minSecretLength {
		return nil, fmt.Errorf("%w: JWT_SECRET must be at least %d characters", ErrMisconfigured, minSecretLength)
	}

	sessionTTL, err := time.ParseDuration(cfg.SessionTTL)
	if err != nil || sessionTTL <= 0 {
		return nil, fmt.Errorf("%w: invalid SESSION_TOKEN_TTL", ErrMisconfigured)
	}

	resetTTL, err := time.ParseDuration(cfg.ResetTTL)
	if err != nil || resetTTL <= 0 {
		return nil, fmt.Errorf("%w: invalid RESET_TOKEN_TTL", ErrMisconfigured)
	}

	refreshThreshold, err := time.ParseDuration(cfg.RefreshThreshold)
	if err != nil || refreshThreshold <= 0 {
		return nil, fmt.Errorf("%w: invalid TOKEN_REFRESH_THRESHOLD", ErrMisconfigured)
	}

	return &TokenService{
		secret:           []byte(cfg.JWTSecret),
		sessionTTL:       sessionTTL,
		resetTTL:         resetTTL,
		refreshThreshold: refreshThreshold,
	}, nil
}

// Issue creates a signed session token for the identity.
func (s *TokenService) Issue(userID int64, email string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify validates signature and expiry of a session token. Any failure,
// including a reset token presented on the session path, maps to
// ErrInvalidToken.
func (s *TokenService) Verify(tokenStr string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, s.keyFunc)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != "" {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ShouldRefresh reports whether a verified session token is close enough
// to expiry that the caller should mint a replacement.
func (s *TokenService) ShouldRefresh(claims *SessionClaims) bool {
	if claims == nil || claims.ExpiresAt == nil {
		return false
	}
	return time.Until(claims.ExpiresAt.Time) <= s.refreshThreshold
}

// Refresh re-issues a session token for the same identity. An invalid or
// already-expired token cannot be refreshed.
func (s *TokenService) Refresh(tokenStr string) (string, error) {
	claims, err := s.Verify(tokenStr)
	if err != nil {
		return "", err
	}
	userID, err := claims.UserID()
	if err != nil {
		return "", err
	}
	return s.Issue(userID, claims.Email)
}

// IssueReset creates a password-reset token. The token carries a type
// discriminator so it can never pass as a session token, and a jti used
// to enforce single use.
func (s *TokenService) IssueReset(userID int64, email string) (string, error) {
	now := time.Now()
	claims := ResetClaims{
		Email:     email,
		TokenType: resetTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.resetTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// VerifyReset validates a password-reset token. Structural failures
// (missing discriminator, missing jti or subject) are reported the same
// way as cryptographic ones.
func (s *TokenService) VerifyReset(tokenStr string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, s.keyFunc)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != resetTokenType {
		return nil, ErrInvalidToken
	}
	if claims.ID == "" || claims.Subject == "" || claims.Email == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *TokenService) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ErrInvalidToken
	}
	return s.secret, nil
}
