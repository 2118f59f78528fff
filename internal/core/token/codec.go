// Package token signs and verifies self-contained session tokens. No session
// table exists server-side: a token's validity is a pure function of its
// signature, expiry and issuer, which keeps request authentication stateless
// across replicas. The tradeoff is that logout is client-side token deletion.
package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/campushub/campushub-api/internal/core/domain"
)

// Issuer tags every token this API signs; verification rejects any other
// issuer. The value is kept identical to the previous API generation so
// tokens stay interchangeable during rollout.
const Issuer = "campushub-api"

// DefaultTTL applies when no expiry is configured.
const DefaultTTL = 7 * 24 * time.Hour

var ErrNoSecret = errors.New("token: signing secret is not configured")
var ErrInvalidToken = errors.New("token: invalid session token")

// SessionClaims is the decoded payload of a session token.
type SessionClaims struct {
	UserID    int64
	Email     string
	Role      string
	Name      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type jwtClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
	Name  string `json:"name"`
}

// Codec signs and verifies session tokens with a server-held secret.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// NewCodec returns a Codec signing with secret. An empty secret is a
// configuration error and must abort startup, not surface per request.
func NewCodec(secret string, ttl time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Codec{secret: []byte(secret), ttl: ttl}, nil
}

// Sign issues an HS256 session token for user, valid for the codec's TTL.
func (c *Codec) Sign(user *domain.User) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Email: user.Email,
		Role:  user.Role,
		Name:  user.Name,
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.secret)
}

// Verify checks signature, expiry and issuer. Every failure collapses into
// ErrInvalidToken: callers treat "no valid session" as the only outcome, and
// the reason matters only to diagnostics.
func (c *Codec) Verify(raw string) (*SessionClaims, error) {
	claims := &jwtClaims{}
	tkn, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return c.secret, nil
	}, jwt.WithIssuer(Issuer), jwt.WithExpirationRequired())
	if err != nil || !tkn.Valid {
		return nil, ErrInvalidToken
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}

	sc := &SessionClaims{
		UserID: id,
		Email:  claims.Email,
		Role:   claims.Role,
		Name:   claims.Name,
	}
	if claims.IssuedAt != nil {
		sc.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		sc.ExpiresAt = claims.ExpiresAt.Time
	}
	return sc, nil
}
