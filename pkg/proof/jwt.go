package proof

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/vcissuer/pkg/jwtx"
)

func verifyJWT(token string, exp Expectations) (*ecdsa.PublicKey, error) {
	var claims jwtx.ProofClaims

	key, err := jwtx.VerifyEmbeddedJWK(token, jwtx.ProofTyp, &claims)
	switch {
	case err == nil:
	case errors.Is(err, jwtx.ErrInvalidSig):
		return nil, ErrSignature
	case errors.Is(err, jwtx.ErrMissingJWK):
		return nil, fmt.Errorf("%w: %w", ErrKey, err)
	default:
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	if err := claims.ValidateAudience(exp.Audience); err != nil {
		return nil, ErrAudience
	}
	if exp.Nonce != "" && claims.Nonce != exp.Nonce {
		return nil, ErrNonce
	}
	if err := claims.ValidateIssuedAt(exp.Now, exp.skew()); err != nil {
		if errors.Is(err, jwtx.ErrInvalidClaim) {
			return nil, fmt.Errorf("%w: missing iat", ErrMalformed)
		}
		return nil, fmt.Errorf("%w: %w", ErrIssuedAt, err)
	}

	pub, err := key.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKey, err)
	}
	return pub, nil
}

// SignJWT produces a jwt proof for key, as a wallet would.
func SignJWT(key *ecdsa.PrivateKey, audience, nonce string, now time.Time) (string, error) {
	signer := jwtx.NewSignerES256FromKey("", key)
	claims := jwtx.NewProofClaims("", audience, nonce, now)
	claims.ID = jwtx.NewJTI()
	return signer.Sign(claims, map[string]any{
		"typ": jwtx.ProofTyp,
		"jwk": signer.PublicJWK(),
	})
}
