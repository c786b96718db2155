package api

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/atriumverse/atrium/internal/net"
	"github.com/atriumverse/atrium/internal/persist"
)

// TokenIssuer mints and verifies the HS256 session tokens that gate both the
// REST boundary and the websocket upgrade.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("auth.jwt_secret must be set")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}, nil
}

type sessionClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Issue signs a token for a user.
func (t *TokenIssuer) Issue(u *persist.UserRow) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns the identity it carries. Satisfies
// net.TokenVerifier.
func (t *TokenIssuer) Verify(token string) (net.Identity, error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return net.Identity{}, fmt.Errorf("parse token: %w", err)
	}
	if !parsed.Valid {
		return net.Identity{}, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" || claims.Username == "" {
		return net.Identity{}, fmt.Errorf("token missing identity claims")
	}
	return net.Identity{
		UserID:   claims.Subject,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}

// IssueChatToken signs a short-lived token for the embedded meeting chat
// vendor. The vendor verifies it with the shared chat secret.
func IssueChatToken(secret, userID, username, meetingID string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("meeting.chat_secret must be set")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      userID,
		"username": username,
		"room":     meetingID,
		"iat":      now.Unix(),
		"exp":      now.Add(2 * time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign chat token: %w", err)
	}
	return signed, nil
}
