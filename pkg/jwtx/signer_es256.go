package jwtx

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/vcissuer/pkg/cryptox"
	"github.com/golang-jwt/jwt/v5"
)

// ES256Signer implements the Signer interface using ECDSA P-256 with SHA-256.
type ES256Signer struct {
	kid string
	key *ecdsa.PrivateKey
	alg string
}

// NewSignerES256 creates an ES256 signer from PEM bytes.
func NewSignerES256(kid string, pemKey []byte) (*ES256Signer, error) {
	key, err := cryptox.ParseES256PrivateKey(pemKey)
	if err != nil {
		return nil, fmt.Errorf("jwtx: %w", err)
	}
	return NewSignerES256FromKey(kid, key), nil
}

// NewSignerES256FromKey wraps an already loaded key. kid may be empty.
func NewSignerES256FromKey(kid string, key *ecdsa.PrivateKey) *ES256Signer {
	return &ES256Signer{kid: kid, key: key, alg: jwt.SigningMethodES256.Alg()}
}

func (s *ES256Signer) Alg() string { return s.alg }
func (s *ES256Signer) KID() string { return s.kid }

// Sign takes the claims and turns them into a signed JWT string.
func (s *ES256Signer) Sign(claims jwt.Claims, header map[string]any) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	if s.kid != "" {
		t.Header["kid"] = s.kid
	}
	for k, v := range header {
		if k == "alg" {
			continue
		}
		t.Header[k] = v
	}
	return t.SignedString(s.key)
}

func (s *ES256Signer) PublicJWK() JWK {
	return NewES256JWK(s.kid, "sig", s.alg, &s.key.PublicKey)
}

// Validate does a quick sanity check to make sure we actually have a P-256 key.
func (s *ES256Signer) Validate() error {
	if s.key == nil {
		return errors.New("jwtx: nil ECDSA key")
	}
	if name := s.key.Curve.Params().Name; name != "P-256" {
		return fmt.Errorf("jwtx: expected P-256 curve, got %s", name)
	}
	return nil
}
