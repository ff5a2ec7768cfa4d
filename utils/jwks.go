package utils

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"
)

// KeyProvider resolves a key ID from a bearer token header to the public key
// that signed it. The HTTP-backed implementation below talks to the identity
// provider's JWKS endpoint; tests swap in a static provider with fixed keys.
type KeyProvider interface {
	Key(kid string) (*rsa.PublicKey, error)
}

// jwk is the subset of a JSON Web Key needed to rebuild an RSA public key.
type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSCache fetches the provider's key set lazily on first use and refetches
// only after the TTL elapses. Concurrent readers share the cached map.
type JWKSCache struct {
	url    string
	ttl    time.Duration
	client *http.Client

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewJWKSCache builds a cache over the given JWKS endpoint. A non-positive
// ttl means the key set is kept for the process lifetime.
func NewJWKSCache(url string, ttl time.Duration) *JWKSCache {
	return &JWKSCache{
		url:    url,
		ttl:    ttl,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Key returns the public key for kid, refreshing the key set when stale or
// when the kid is unknown. A fetch failure surfaces as an error so callers
// fail closed.
func (c *JWKSCache) Key(kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	fresh := c.keys != nil && (c.ttl <= 0 || time.Since(c.fetchedAt) < c.ttl)
	c.mu.RUnlock()

	if ok && fresh {
		return key, nil
	}

	if err := c.refresh(); err != nil {
		// Keep serving a previously cached key rather than rejecting valid
		// tokens on a transient JWKS outage.
		if ok {
			return key, nil
		}
		return nil, err
	}

	c.mu.RLock()
	key, ok = c.keys[kid]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("jwks: no key with kid %q", kid)
	}
	return key, nil
}

func (c *JWKSCache) refresh() error {
	resp, err := c.client.Get(c.url)
	if err != nil {
		return fmt.Errorf("jwks: fetch %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks: fetch %s: unexpected status %s", c.url, resp.Status)
	}

	var payload struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("jwks: decode response: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(payload.Keys))
	for _, k := range payload.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		pub, err := k.publicKey()
		if err != nil {
			if Sugar != nil {
				Sugar.Warnf("jwks: skipping key %s: %v", k.Kid, err)
			}
			continue
		}
		keys[k.Kid] = pub
	}

	c.mu.Lock()
	c.keys = keys
	c.fetchedAt = time.Now()
	c.mu.Unlock()
	return nil
}

func (k jwk) publicKey() (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}
	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	if e <= 0 {
		return nil, fmt.Errorf("non-positive exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}

// StaticKeyProvider serves a fixed key set; used by tests and local tooling.
type StaticKeyProvider map[string]*rsa.PublicKey

// Key implements KeyProvider.
func (p StaticKeyProvider) Key(kid string) (*rsa.PublicKey, error) {
	key, ok := p[kid]
	if !ok {
		return nil, fmt.Errorf("jwks: no key with kid %q", kid)
	}
	return key, nil
}
