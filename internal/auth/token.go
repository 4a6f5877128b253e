package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired is returned when the credential's validity window has elapsed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned for every other validation failure.
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims is the identity payload carried by a relay credential. Older
// clients put the user identifier in "id" instead of "userId"; both are
// accepted.
type Claims struct {
	UserID   string `json:"userId,omitempty"`
	LegacyID string `json:"id,omitempty"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Identity returns the user identifier, preferring the current claim name.
func (c *Claims) Identity() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.LegacyID
}

// TokenService signs and verifies relay credentials against a shared
// secret. Verification is a pure function of (token, secret, clock).
type TokenService struct {
	secret []byte
	expire time.Duration
}

func NewTokenService(secret string, expire time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		expire: expire,
	}
}

// Issue signs a credential for the given identity.
func (s *TokenService) Issue(userID, username string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expire)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify validates a credential and extracts its identity claims.
// It returns ErrTokenExpired when the validity window has elapsed and
// ErrTokenInvalid for any other failure: bad signature, malformed
// structure, wrong algorithm, or a payload with no user identifier.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Identity() == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
