package jwtx

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// JWK is the JSON Web Key form of an EC P-256 public key (RFC 7517).
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Alg string `json:"alg,omitempty"`
	Kid string `json:"kid,omitempty"`
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
}

// NewES256JWK builds a JWK for an ECDSA P-256 public key.
func NewES256JWK(kid, use, alg string, pub *ecdsa.PublicKey) JWK {
	// P-256 coordinates are left-padded to 32 bytes.
	x := make([]byte, 32)
	y := make([]byte, 32)
	pub.X.FillBytes(x)
	pub.Y.FillBytes(y)

	return JWK{
		Kty: "EC",
		Use: use,
		Alg: alg,
		Kid: kid,
		Crv: "P-256",
		X:   base64.RawURLEncoding.EncodeToString(x),
		Y:   base64.RawURLEncoding.EncodeToString(y),
	}
}

// JWKFromHeader converts a decoded "jwk" header value into a JWK.
func JWKFromHeader(raw any) (JWK, error) {
	if m, ok := raw.(map[string]any); ok {
		if _, private := m["d"]; private {
			return JWK{}, errors.New("jwtx: jwk must not contain private material")
		}
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return JWK{}, fmt.Errorf("jwtx: encode jwk header: %w", err)
	}
	var k JWK
	if err := json.Unmarshal(b, &k); err != nil {
		return JWK{}, fmt.Errorf("jwtx: decode jwk header: %w", err)
	}
	return k, nil
}

// PublicKey parses the JWK with jwx and returns the ECDSA P-256 key.
func (j JWK) PublicKey() (*ecdsa.PublicKey, error) {
	key, err := j.parse()
	if err != nil {
		return nil, err
	}
	var pub ecdsa.PublicKey
	if err := key.Raw(&pub); err != nil {
		return nil, fmt.Errorf("jwtx: jwk is not an EC public key: %w", err)
	}
	if pub.Curve != elliptic.P256() {
		return nil, fmt.Errorf("jwtx: unsupported curve %s", pub.Curve.Params().Name)
	}
	return &pub, nil
}

// Thumbprint returns the RFC 7638 SHA-256 thumbprint, base64url encoded.
func (j JWK) Thumbprint() (string, error) {
	key, err := j.parse()
	if err != nil {
		return "", err
	}
	tp, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("jwtx: thumbprint: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(tp), nil
}

func (j JWK) parse() (jwk.Key, error) {
	if j.Kty != "EC" {
		return nil, fmt.Errorf("jwtx: unsupported kty %q", j.Kty)
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	key, err := jwk.ParseKey(b)
	if err != nil {
		return nil, fmt.Errorf("jwtx: parse jwk: %w", err)
	}
	return key, nil
}

// FromPublicKey builds a JWK through jwx, assigning the thumbprint as kid.
func FromPublicKey(pub *ecdsa.PublicKey) (JWK, error) {
	key, err := jwk.FromRaw(pub)
	if err != nil {
		return JWK{}, fmt.Errorf("jwtx: jwk from key: %w", err)
	}
	if err := jwk.AssignKeyID(key); err != nil {
		return JWK{}, fmt.Errorf("jwtx: assign kid: %w", err)
	}
	j := NewES256JWK(key.KeyID(), "", "", pub)
	return j, nil
}
