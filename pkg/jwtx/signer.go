package jwtx

import "github.com/golang-jwt/jwt/v5"

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	KID() string
	// Sign serialises claims; extra header parameters are merged over
	// the defaults (alg, typ, kid).
	Sign(claims jwt.Claims, header map[string]any) (string, error)
	PublicJWK() JWK
	Validate() error
}
