package document

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/mel-roster/internal/model"
)

// ErrInvalidToken is returned for tokens that are malformed, tampered with
// or expired.
var ErrInvalidToken = errors.New("invalid or expired download token")

// Claims identify one stored document.
type Claims struct {
	SessionID string     `json:"sid"`
	Kind      model.Kind `json:"kind"`
	jwt.RegisteredClaims
}

// Key returns the store key the token grants access to.
func (c Claims) Key() string { return c.Subject }

// Signer issues and checks HS256 download tokens.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner returns a Signer using secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for key that expires after ttl.
func (s *Signer) Issue(key, sessionID string, kind model.Kind, ttl time.Duration) (string, time.Time, error) {
	now := s.now().UTC()
	exp := now.Add(ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		SessionID: sessionID,
		Kind:      kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   key,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign download token: %w", err)
	}
	return signed, exp, nil
}

// Verify parses token and returns its claims.
func (s *Signer) Verify(token string) (Claims, error) {
	var c Claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Subject == "" {
		return Claims{}, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return c, nil
}
