package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const minSecretLength = 16

var ErrSecretTooShort = fmt.Errorf("secret should be at least %d bytes long", minSecretLength)

// Manager issues and verifies tokens that authorize writes to the cache.
type Manager struct {
	key []byte
}

func NewManager(secret string) (*Manager, error) {
	if len(secret) < minSecretLength {
		return nil, ErrSecretTooShort
	}

	return &Manager{
		key: []byte(secret),
	}, nil
}

// Issue returns a signed token for the subject. Zero validity
// means that the token never expires.
func (manager *Manager) Issue(subject string, validity time.Duration) (string, error) {
	now := time.Now()

	claims := jwt.RegisteredClaims{
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(now),
	}

	if validity != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(validity))
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(manager.key)
}

// Verify checks the token's signature and expiration and returns its subject.
func (manager *Manager) Verify(rawToken string) (string, error) {
	var claims jwt.RegisteredClaims

	validMethods := []string{
		jwt.SigningMethodHS256.Alg(),
	}

	_, err := jwt.ParseWithClaims(rawToken, &claims, manager.keyFunc, jwt.WithValidMethods(validMethods))
	if err != nil {
		return "", err
	}

	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}

	return claims.Subject, nil
}

func (manager *Manager) keyFunc(_ *jwt.Token) (interface{}, error) {
	return manager.key, nil
}
