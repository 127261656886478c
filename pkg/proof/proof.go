// Package proof verifies OpenID4VCI key proofs and extracts the holder key
// the issued credential is bound to.
package proof

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"
)

// Proof types accepted in the credential request.
const (
	TypeJWT = "jwt"
	TypeCWT = "cwt"
)

// DefaultSkew bounds how far iat may drift from the issuer clock.
const DefaultSkew = 5 * time.Minute

var (
	ErrUnsupportedType = errors.New("proof: unsupported proof type")
	ErrMissing         = errors.New("proof: missing proof")
	ErrMalformed       = errors.New("proof: malformed proof")
	ErrSignature       = errors.New("proof: signature invalid")
	ErrKey             = errors.New("proof: unusable holder key")
	ErrAudience        = errors.New("proof: audience mismatch")
	ErrNonce           = errors.New("proof: nonce mismatch")
	ErrIssuedAt        = errors.New("proof: iat outside allowed window")
)

// Proof is the "proof" member of a credential request.
type Proof struct {
	ProofType string `json:"proof_type"`
	JWT       string `json:"jwt,omitempty"`
	CWT       string `json:"cwt,omitempty"`
}

// Expectations are what a valid proof must assert.
type Expectations struct {
	// Audience is the credential issuer identifier.
	Audience string
	// Nonce is the c_nonce most recently handed to the wallet. Empty
	// disables the nonce check.
	Nonce string
	Now   time.Time
	Skew  time.Duration
}

func (e Expectations) skew() time.Duration {
	if e.Skew <= 0 {
		return DefaultSkew
	}
	return e.Skew
}

// Verify checks p against exp and returns the proven holder key.
func Verify(p Proof, exp Expectations) (*ecdsa.PublicKey, error) {
	switch p.ProofType {
	case TypeJWT:
		if p.JWT == "" {
			return nil, fmt.Errorf("%w: jwt", ErrMissing)
		}
		return verifyJWT(p.JWT, exp)
	case TypeCWT:
		if p.CWT == "" {
			return nil, fmt.Errorf("%w: cwt", ErrMissing)
		}
		return verifyCWT(p.CWT, exp)
	case "":
		return nil, ErrMissing
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, p.ProofType)
	}
}

func checkIssuedAt(iat, now time.Time, skew time.Duration) error {
	if iat.After(now.Add(skew)) || iat.Before(now.Add(-skew)) {
		return ErrIssuedAt
	}
	return nil
}
