package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateSessionToken signs a cookie value carrying the session id. The
// token has no exp claim: idle expiry belongs to the session store, which
// refreshes on every request.
func GenerateSessionToken(sessionID, secret string) (string, error) {
	if sessionID == "" {
		return "", errors.New("empty session id")
	}

	claims := jwt.MapClaims{
		"sid":  sessionID,
		"type": "visit_session",
		"iat":  time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateSessionToken parses a session cookie and returns the session id
func ValidateSessionToken(tokenString, secret string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}
	if claims["type"] != "visit_session" {
		return "", errors.New("not a session token")
	}

	sid, _ := claims["sid"].(string)
	if sid == "" {
		return "", errors.New("token has no session id")
	}
	return sid, nil
}
