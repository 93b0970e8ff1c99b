// Package auth issues and verifies the signed tokens used by the address book
// and hashes user passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/addressbook/internal/common"
)

// Scope tags the purpose of a token. Every token carries exactly one.
type Scope string

const (
	ScopeAccess       Scope = "access_token"
	ScopeRefresh      Scope = "refresh_token"
	ScopeConfirmation Scope = "email_token"
)

const (
	DefaultAccessTTL       = 15 * time.Minute
	DefaultRefreshTTL      = 7 * 24 * time.Hour
	ConfirmationTokenTTL   = 7 * 24 * time.Hour
	DefaultSigningAlgoName = "HS256"
)

// Claims is the token envelope: jti, sub, iat, exp and scope.
type Claims struct {
	Scope Scope `json:"scope"`
	jwt.RegisteredClaims
}

// TokenConfig is the process-wide signing configuration.
type TokenConfig struct {
	Secret     []byte
	Algorithm  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenService signs and verifies tokens. It holds no mutable state and is
// safe for concurrent use. All methods take the current time explicitly.
type TokenService struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("auth: empty signing secret")
	}

	alg := cfg.Algorithm
	if alg == "" {
		alg = DefaultSigningAlgoName
	}

	var method jwt.SigningMethod
	switch alg {
	case "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("auth: unsupported signing algorithm %q", alg)
	}

	s := &TokenService{
		secret:     append([]byte(nil), cfg.Secret...),
		method:     method,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}
	if s.accessTTL <= 0 {
		s.accessTTL = DefaultAccessTTL
	}
	if s.refreshTTL <= 0 {
		s.refreshTTL = DefaultRefreshTTL
	}
	return s, nil
}

// IssueAccessToken signs an access token for subject. A ttl <= 0 means the
// configured default.
func (s *TokenService) IssueAccessToken(subject string, now time.Time, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.accessTTL
	}
	return s.issue(subject, ScopeAccess, now, ttl)
}

// IssueRefreshToken signs a refresh token for subject. A ttl <= 0 means the
// configured default.
func (s *TokenService) IssueRefreshToken(subject string, now time.Time, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.refreshTTL
	}
	return s.issue(subject, ScopeRefresh, now, ttl)
}

func (s *TokenService) IssueConfirmationToken(subject string, now time.Time) (string, error) {
	return s.issue(subject, ScopeConfirmation, now, ConfirmationTokenTTL)
}

// DecodeRefreshToken returns the subject of a valid refresh token.
// Bad signature, format or expiry yield common.ErrInvalidToken; a valid token
// of another kind yields common.ErrInvalidScope.
func (s *TokenService) DecodeRefreshToken(token string, now time.Time) (string, error) {
	claims, err := s.parse(token, now)
	if err != nil {
		return "", common.ErrInvalidToken
	}
	if claims.Scope != ScopeRefresh {
		return "", common.ErrInvalidScope
	}
	return claims.Subject, nil
}

// DecodeConfirmationToken returns the subject of a valid confirmation token.
// Every failure, including a token of another kind, is common.ErrInvalidToken.
func (s *TokenService) DecodeConfirmationToken(token string, now time.Time) (string, error) {
	claims, err := s.parse(token, now)
	if err != nil || claims.Scope != ScopeConfirmation || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}
	return claims.Subject, nil
}

// AuthenticateAccessToken returns the subject of a valid access token, or
// common.ErrorUnauthenticated.
func (s *TokenService) AuthenticateAccessToken(token string, now time.Time) (string, error) {
	claims, err := s.parse(token, now)
	if err != nil || claims.Scope != ScopeAccess || claims.Subject == "" {
		return "", common.ErrorUnauthenticated
	}
	return claims.Subject, nil
}

// issue signs a token. NumericDate has whole-second precision, so iat is
// truncated first and exp is exactly iat+ttl. The random jti makes two tokens
// issued in the same second distinct.
func (s *TokenService) issue(subject string, scope Scope, now time.Time, ttl time.Duration) (string, error) {
	now = now.Truncate(time.Second)
	claims := Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	tokenString, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", scope, err)
	}
	return tokenString, nil
}

func (s *TokenService) parse(tokenString string, now time.Time) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	// expiry is strict: a token is dead at exactly exp
	if !now.Before(claims.ExpiresAt.Time) {
		return nil, jwt.ErrTokenExpired
	}
	return claims, nil
}
