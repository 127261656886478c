package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ProofTyp is the typ header every OpenID4VCI key proof must carry.
const ProofTyp = "openid4vci-proof+jwt"

// ProofClaims are the claims of a wallet key proof. iss is the client id
// and is absent for anonymous pre-authorized flows.
type ProofClaims struct {
	jwt.RegisteredClaims

	Nonce string `json:"nonce,omitempty"`
}

// NewProofClaims builds the claims a wallet signs to prove key possession.
func NewProofClaims(clientID, audience, nonce string, now time.Time) ProofClaims {
	return ProofClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   clientID,
			Audience: jwt.ClaimStrings{audience},
			IssuedAt: jwt.NewNumericDate(now),
		},
		Nonce: nonce,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateAudience checks that expected is one of the audiences.
func (c *ProofClaims) ValidateAudience(expected string) error {
	if expected == "" {
		return nil
	}
	if slices.Contains(c.Audience, expected) {
		return nil
	}
	return ErrAudience
}

// ValidateIssuedAt requires iat and rejects values more than skew away from now.
func (c *ProofClaims) ValidateIssuedAt(now time.Time, skew time.Duration) error {
	if c.IssuedAt == nil {
		return ErrInvalidClaim
	}
	iat := c.IssuedAt.Time
	if iat.After(now.Add(skew)) {
		return ErrNotYetValid
	}
	if iat.Before(now.Add(-skew)) {
		return ErrExpired
	}
	return nil
}
