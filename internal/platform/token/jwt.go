// Package token validates the HS256 bearer tokens issued by the platform's
// auth service for the engine's API surface.
package token

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Validator validates HS256-signed JWTs against a shared signing key.
type Validator struct {
	signingKey []byte
}

func NewValidator(signingKey string) *Validator {
	return &Validator{signingKey: []byte(signingKey)}
}

// Validate parses and verifies the token, returning its subject claim.
func (v *Validator) Validate(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return subject, nil
}
