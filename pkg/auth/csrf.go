package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CSRFClaims binds an anti-forgery token to a session id. The token is
// returned to the client at login and must accompany mutating requests.
type CSRFClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func NewCSRFToken(sessionID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := CSRFClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Audience:  []string{"tourline-api"},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseCSRF validates the token signature and expiry and returns the
// bound session id.
func ParseCSRF(tokenString, secret string) (string, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &CSRFClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if claims, ok := tok.Claims.(*CSRFClaims); ok && tok.Valid {
		return claims.SessionID, nil
	}
	return "", errors.New("invalid token")
}
