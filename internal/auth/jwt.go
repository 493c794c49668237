package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is an issued session credential.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// Claims is the JWT payload for a device-bound login session.
type Claims struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	Group    string `json:"group,omitempty"`
	DeviceID string `json:"device_id"`
	jwt.RegisteredClaims
}

// IssueSession signs a short-lived session credential carrying the user's
// role, group and the device the session is bound to.
func IssueSession(name, role, group, deviceID, issuer, key string, ttl time.Duration, now time.Time) (Session, error) {
	exp := now.Add(ttl)
	claims := Claims{
		Name:     name,
		Role:     role,
		Group:    group,
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   name,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: exp}, nil
}

// ParseSession validates a session credential and returns its claims.
func ParseSession(tokenStr, key, issuer string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	if issuer != "" && claims.Issuer != issuer {
		return Claims{}, errors.New("issuer mismatch")
	}
	return *claims, nil
}
