package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

const defaultTokenTTL = 7 * 24 * time.Hour

// Claims is the validated identity carried by an access token.
type Claims struct {
	UserID string
	Email  string
}

type tokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService issues and validates HMAC-SHA256 access tokens.
type TokenService struct {
	signingKey []byte
	tokenTTL   time.Duration
	timeFunc   func() time.Time
	clockSkew  time.Duration
}

func NewTokenService(secret []byte, tokenTTL time.Duration) (*TokenService, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 bytes")
	}

	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}

	return &TokenService{
		signingKey: secret,
		tokenTTL:   tokenTTL,
		timeFunc:   time.Now,
		clockSkew:  2 * time.Minute,
	}, nil
}

// IssueToken creates a signed access token for the user.
func (s *TokenService) IssueToken(userID, email string) (string, error) {
	now := s.timeFunc()

	claims := tokenClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	return signed, nil
}

// ValidateToken parses the token and returns its identity claims.
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	now := s.timeFunc()

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(s.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		return s.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrExpiredToken, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user id claim", ErrInvalidToken)
	}

	return &Claims{
		UserID: claims.UserID,
		Email:  claims.Email,
	}, nil
}
