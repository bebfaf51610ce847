package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const sessionTokenTTL = 24 * time.Hour

// ErrExchangeDisabled is returned when a custom token is presented but no
// bootstrap secret was configured for this deployment.
var ErrExchangeDisabled = errors.New("custom-token exchange is not configured")

// Manager mints and verifies session tokens. An identity is an opaque
// per-session user handle; it is never stored here, only signed.
type Manager struct {
	sessionSecret   []byte
	bootstrapSecret []byte
}

func NewManager(sessionSecret, bootstrapSecret string) *Manager {
	return &Manager{
		sessionSecret:   []byte(sessionSecret),
		bootstrapSecret: []byte(bootstrapSecret),
	}
}

// AnonymousIdentity mints a fresh opaque identity for the anonymous
// sign-in flow.
func (m *Manager) AnonymousIdentity() string {
	return "anon-" + uuid.NewString()
}

// IssueSessionToken signs a bearer token for the given identity.
func (m *Manager) IssueSessionToken(identity string) (string, error) {
	claims := jwt.MapClaims{
		"sub": identity,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(sessionTokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.sessionSecret)
}

// VerifySessionToken validates a bearer token and returns the identity it
// was issued for. This is the restore path: an expired or tampered token
// fails and the caller must sign in again.
func (m *Manager) VerifySessionToken(tokenString string) (string, error) {
	return verify(tokenString, m.sessionSecret)
}

// ExchangeCustomToken verifies a pre-provisioned credential against the
// bootstrap secret and returns the identity embedded in it. The caller is
// expected to issue a fresh session token for that identity.
func (m *Manager) ExchangeCustomToken(tokenString string) (string, error) {
	if len(m.bootstrapSecret) == 0 {
		return "", ErrExchangeDisabled
	}
	return verify(tokenString, m.bootstrapSecret)
}

func verify(tokenString string, secret []byte) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		return "", err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		sub, ok := claims["sub"].(string)
		if !ok || sub == "" {
			return "", fmt.Errorf("token has no subject")
		}
		return sub, nil
	}

	return "", fmt.Errorf("invalid token")
}
