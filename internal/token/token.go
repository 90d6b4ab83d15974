// Package token mints and verifies the signed unsubscribe tokens returned
// when an email is captured. The token proves the unsubscribe request
// originates from someone holding the original signup response, without
// storing any subscriber state server-side.
package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "haulready/pkg/domain-errors"
)

const purposeUnsubscribe = "unsubscribe"

// Manager signs and verifies unsubscribe tokens with an HMAC key.
type Manager struct {
	signingKey []byte
	ttl        time.Duration
}

// New creates a Manager. A non-positive ttl defaults to one year, matching
// how long a signup confirmation email realistically stays in an inbox.
func New(signingKey string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 365 * 24 * time.Hour
	}
	return &Manager{signingKey: []byte(signingKey), ttl: ttl}
}

type claims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// Mint returns a signed token bound to the given email.
func (m *Manager) Mint(email string) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Purpose: purposeUnsubscribe,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strings.ToLower(strings.TrimSpace(email)),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	})

	signed, err := t.SignedString(m.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign unsubscribe token")
	}
	return signed, nil
}

// Verify checks the token's signature, expiry, purpose, and that it was
// minted for the given email.
func (m *Manager) Verify(tokenString, email string) error {
	var c claims
	_, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.signingKey, nil
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "Invalid or expired unsubscribe token")
	}

	if c.Purpose != purposeUnsubscribe {
		return dErrors.New(dErrors.CodeValidation, "Invalid or expired unsubscribe token")
	}
	if c.Subject != strings.ToLower(strings.TrimSpace(email)) {
		return dErrors.New(dErrors.CodeValidation, "Invalid or expired unsubscribe token")
	}
	return nil
}
