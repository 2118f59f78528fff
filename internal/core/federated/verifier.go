// Package federated validates identity tokens issued by the campus's
// external identity provider. Tokens are RS256 JWTs verified against the
// provider's published JWKS; the key set is cached (optionally in Redis, so
// replicas share fetches) and refreshed when an unknown key id appears.
package federated

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/campushub/campushub-api/internal/core/domain"
	"github.com/campushub/campushub-api/internal/core/ports"
)

// TestToken short-circuits verification outside production so integration
// tests can exercise the federated flow without a live provider. Production
// configurations must never enable it.
const TestToken = "integration-test-token"

const (
	jwksCacheKey = "federated:jwks"
	jwksCacheTTL = time.Hour
	fetchTimeout = 10 * time.Second
)

var ErrInvalidIDToken = errors.New("federated: invalid identity token")

// KeyCache shares the fetched JWKS document across replicas. Get returns
// "" (and no error) on a miss. A nil cache means every refresh fetches from
// the provider directly.
type KeyCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Config identifies the trusted provider.
type Config struct {
	// Issuer is the exact "iss" claim the provider stamps on its tokens.
	Issuer string
	// Audience is the expected "aud" claim (the provider-side project id).
	Audience string
	// JWKSURL is where the provider publishes its current signing keys.
	JWKSURL string
	// AllowTestToken accepts TestToken without verification. Only set when
	// the environment is not production.
	AllowTestToken bool
}

// Verifier implements ports.FederatedVerifier against a JWKS-publishing
// provider.
type Verifier struct {
	cfg    Config
	client *http.Client
	cache  KeyCache
	log    zerolog.Logger

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewVerifier builds a Verifier. cache may be nil.
func NewVerifier(cfg Config, cache KeyCache, log zerolog.Logger) *Verifier {
	return &Verifier{
		cfg:    cfg,
		client: &http.Client{Timeout: fetchTimeout},
		cache:  cache,
		log:    log,
	}
}

type idTokenClaims struct {
	jwt.RegisteredClaims
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Verify validates raw against the provider's signing keys, expected issuer
// and audience. Invalid tokens and an unreachable provider both come back as
// errors; they are logged apart here but must not be distinguished by the
// HTTP boundary.
func (v *Verifier) Verify(ctx context.Context, raw string) (*ports.FederatedIdentity, error) {
	if raw == TestToken {
		if v.cfg.AllowTestToken {
			v.log.Warn().Msg("federated verification bypassed with test token")
			return &ports.FederatedIdentity{
				Subject: "integration-test",
				Email:   "integration-test@campushub.dev",
				Name:    "Integration Test",
			}, nil
		}
		return nil, ErrInvalidIDToken
	}

	claims := &idTokenClaims{}
	tkn, err := jwt.ParseWithClaims(raw, claims, v.keyfunc(ctx),
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithAudience(v.cfg.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, domain.ErrProviderUnavailable) {
			v.log.Warn().Err(err).Msg("identity provider unreachable")
			return nil, err
		}
		v.log.Debug().Err(err).Msg("identity token rejected")
		return nil, ErrInvalidIDToken
	}
	if !tkn.Valid || claims.Subject == "" {
		return nil, ErrInvalidIDToken
	}

	return &ports.FederatedIdentity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}, nil
}

func (v *Verifier) keyfunc(ctx context.Context) jwt.Keyfunc {
	return func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("federated: token header missing kid")
		}
		return v.signingKey(ctx, kid)
	}
}

// signingKey resolves kid against the in-memory key set, refreshing from the
// cache or the provider when the set is stale or the kid is unknown (key
// rotation).
func (v *Verifier) signingKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	fresh := time.Since(v.fetchedAt) < jwksCacheTTL
	v.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}

	keys, fromCache, err := v.refresh(ctx)
	if err != nil {
		return nil, err
	}
	if key, ok = keys[kid]; ok {
		return key, nil
	}
	if fromCache {
		// The cached document may predate a rotation; go to the source once.
		if keys, err = v.fetchJWKS(ctx); err != nil {
			return nil, err
		}
		v.store(keys)
		if key, ok = keys[kid]; ok {
			return key, nil
		}
	}
	return nil, fmt.Errorf("%w: signing key %q not in provider key set", ErrInvalidIDToken, kid)
}

func (v *Verifier) refresh(ctx context.Context) (map[string]*rsa.PublicKey, bool, error) {
	if v.cache != nil {
		doc, err := v.cache.Get(ctx, jwksCacheKey)
		if err != nil {
			v.log.Warn().Err(err).Msg("federated key cache unavailable")
		} else if doc != "" {
			keys, perr := parseJWKS([]byte(doc))
			if perr == nil {
				v.store(keys)
				return keys, true, nil
			}
			v.log.Warn().Err(perr).Msg("discarding corrupt cached key set")
		}
	}

	keys, err := v.fetchJWKS(ctx)
	if err != nil {
		return nil, false, err
	}
	v.store(keys)
	return keys, false, nil
}

func (v *Verifier) store(keys map[string]*rsa.PublicKey) {
	v.mu.Lock()
	v.keys = keys
	v.fetchedAt = time.Now()
	v.mu.Unlock()
}

func (v *Verifier) fetchJWKS(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.cfg.JWKSURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch JWKS: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: JWKS endpoint returned %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read JWKS: %v", domain.ErrProviderUnavailable, err)
	}

	keys, err := parseJWKS(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	if v.cache != nil {
		if err := v.cache.Set(ctx, jwksCacheKey, string(body), jwksCacheTTL); err != nil {
			v.log.Warn().Err(err).Msg("failed to share fetched key set")
		}
	}
	return keys, nil
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksDoc struct {
	Keys []jwk `json:"keys"`
}

// parseJWKS extracts the RSA signing keys from a JWKS document. The provider
// signs exclusively with RS256, so other key types are skipped.
func parseJWKS(data []byte) (map[string]*rsa.PublicKey, error) {
	var doc jwksDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := k.rsaPublicKey()
		if err != nil {
			return nil, err
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return nil, errors.New("JWKS document contains no RSA signing keys")
	}
	return keys, nil
}

func (k jwk) rsaPublicKey() (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode RSA modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode RSA exponent: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}
