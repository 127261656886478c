package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrTypMismatch = errors.New("jwtx: typ mismatch")
	ErrMissingJWK  = errors.New("jwtx: missing jwk header")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")

	ErrAudience     = errors.New("jwtx: audience mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// VerifyEmbeddedJWK checks a self-signed ES256 JWT whose verification key
// travels in the "jwk" protected header. The decoded claims land in claims
// and the embedded key is returned for binding.
//
// Temporal claims are left to the caller; proofs carry only iat.
func VerifyEmbeddedJWK(token, typ string, claims jwt.Claims) (JWK, error) {
	var embedded JWK

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if got, _ := t.Header["typ"].(string); typ != "" && got != typ {
			return nil, ErrTypMismatch
		}

		raw, ok := t.Header["jwk"]
		if !ok {
			return nil, ErrMissingJWK
		}
		k, err := JWKFromHeader(raw)
		if err != nil {
			return nil, err
		}
		pub, err := k.PublicKey()
		if err != nil {
			return nil, err
		}
		embedded = k
		return pub, nil
	})

	switch {
	case err == nil:
		return embedded, nil
	case errors.Is(err, ErrTypMismatch), errors.Is(err, ErrMissingJWK):
		return JWK{}, err
	case errors.Is(err, jwt.ErrTokenMalformed):
		return JWK{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return JWK{}, ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return JWK{}, fmt.Errorf("%w: %w", ErrAlgMismatch, err)
	default:
		return JWK{}, fmt.Errorf("jwtx: parse or verify: %w", err)
	}
}
