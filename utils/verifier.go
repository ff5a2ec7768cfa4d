package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/inkwell-dev/inkwell/config"
)

// IdentityClaims is the claim set carried by the identity provider's tokens.
// Identity tokens declare token_use "id" and carry an audience; access tokens
// declare "access" and carry the client id as a claim instead.
type IdentityClaims struct {
	TokenUse string `json:"token_use"`
	ClientID string `json:"client_id,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// ErrInvalidToken covers every verification failure; callers respond 401
// without leaking which step rejected the token.
var ErrInvalidToken = errors.New("invalid token")

// TokenVerifier validates bearer tokens against the configured identity
// provider: signature via the key set, then issuer/audience/client-id
// depending on the declared token use.
type TokenVerifier struct {
	Keys     KeyProvider
	Issuer   string
	ClientID string
}

// NewTokenVerifier wires a verifier from config with an HTTP-backed JWKS cache.
func NewTokenVerifier(cfg config.AppConfig) *TokenVerifier {
	return &TokenVerifier{
		Keys:     NewJWKSCache(cfg.JWKSURL(), time.Duration(cfg.JWKSCacheTTLMinutes)*time.Minute),
		Issuer:   cfg.IssuerURL(),
		ClientID: cfg.CognitoClientID,
	}
}

// Verify checks signature and claims and returns the decoded claim set.
func (v *TokenVerifier) Verify(tokenStr string) (*IdentityClaims, error) {
	claims := &IdentityClaims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", token.Method.Alg())
		}
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token header missing kid")
		}
		return v.Keys.Key(kid)
	}, jwt.WithValidMethods([]string{"RS256"}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Issuer != v.Issuer {
		return nil, fmt.Errorf("%w: issuer mismatch", ErrInvalidToken)
	}

	switch claims.TokenUse {
	case "id":
		// Identity tokens address the app client through the audience claim.
		if !audienceContains(claims.Audience, v.ClientID) {
			return nil, fmt.Errorf("%w: audience mismatch", ErrInvalidToken)
		}
	case "access":
		// Access tokens carry no audience; the client id is a plain claim.
		if claims.ClientID != v.ClientID {
			return nil, fmt.Errorf("%w: client id mismatch", ErrInvalidToken)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported token use %q", ErrInvalidToken, claims.TokenUse)
	}

	return claims, nil
}

func audienceContains(aud jwt.ClaimStrings, clientID string) bool {
	for _, a := range aud {
		if a == clientID {
			return true
		}
	}
	return false
}
