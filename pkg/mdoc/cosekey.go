package mdoc

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"errors"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// COSE key parameters for EC2 P-256 (RFC 9053).
const (
	COSEKeyTypeEC2 = 2
	COSECurveP256  = 1
)

// ErrInvalidCOSEKey reports a COSE_Key that is not an EC2 P-256 public key.
var ErrInvalidCOSEKey = errors.New("mdoc: invalid COSE_Key")

// COSEKey is an EC2 COSE_Key with integer labels.
type COSEKey struct {
	Kty int    `cbor:"1,keyasint"`
	Kid []byte `cbor:"2,keyasint,omitempty"`
	Crv int    `cbor:"-1,keyasint"`
	X   []byte `cbor:"-2,keyasint"`
	Y   []byte `cbor:"-3,keyasint"`
	D   []byte `cbor:"-4,keyasint,omitempty"`
}

// NewCOSEKey encodes a P-256 public key.
func NewCOSEKey(pub *ecdsa.PublicKey) (COSEKey, error) {
	if pub == nil || pub.Curve != elliptic.P256() {
		return COSEKey{}, fmt.Errorf("%w: want P-256", ErrInvalidCOSEKey)
	}
	x := make([]byte, 32)
	y := make([]byte, 32)
	pub.X.FillBytes(x)
	pub.Y.FillBytes(y)
	return COSEKey{Kty: COSEKeyTypeEC2, Crv: COSECurveP256, X: x, Y: y}, nil
}

// ParseCOSEKey decodes a CBOR COSE_Key.
func ParseCOSEKey(data []byte) (COSEKey, error) {
	var k COSEKey
	if err := cbor.Unmarshal(data, &k); err != nil {
		return COSEKey{}, fmt.Errorf("%w: %w", ErrInvalidCOSEKey, err)
	}
	return k, nil
}

// Bytes returns the CBOR encoding of k.
func (k COSEKey) Bytes() ([]byte, error) {
	return cbor.Marshal(k)
}

// PublicKey validates the key and returns it as an ECDSA key. Keys carrying
// private material are rejected.
func (k COSEKey) PublicKey() (*ecdsa.PublicKey, error) {
	if k.Kty != COSEKeyTypeEC2 || k.Crv != COSECurveP256 {
		return nil, fmt.Errorf("%w: kty=%d crv=%d", ErrInvalidCOSEKey, k.Kty, k.Crv)
	}
	if len(k.D) != 0 {
		return nil, fmt.Errorf("%w: private key material present", ErrInvalidCOSEKey)
	}
	if len(k.X) != 32 || len(k.Y) != 32 {
		return nil, fmt.Errorf("%w: bad coordinate length", ErrInvalidCOSEKey)
	}

	// ecdh rejects points that are not on the curve.
	uncompressed := append([]byte{0x04}, append(append([]byte{}, k.X...), k.Y...)...)
	if _, err := ecdh.P256().NewPublicKey(uncompressed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCOSEKey, err)
	}

	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(k.X),
		Y:     new(big.Int).SetBytes(k.Y),
	}, nil
}
