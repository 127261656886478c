package cryptox

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// encryptedKeyBlockType wraps an EncryptPrivateKey ciphertext in PEM.
const encryptedKeyBlockType = "VCISSUER ENCRYPTED KEY"

// ErrNotES256Key is returned when a PEM block holds a key that is not ECDSA P-256.
var ErrNotES256Key = errors.New("cryptox: key is not an ECDSA P-256 key")

// GenerateES256Key generates a new ECDSA P-256 private key.
// Returns the private key in PEM format (PKCS8).
func GenerateES256Key() ([]byte, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to generate ECDSA key: %w", err)
	}
	return MarshalES256PrivateKey(privateKey)
}

// MarshalES256PrivateKey encodes key as a PKCS8 PEM block.
func MarshalES256PrivateKey(key *ecdsa.PrivateKey) ([]byte, error) {
	if key == nil || key.Curve != elliptic.P256() {
		return nil, ErrNotES256Key
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to marshal PKCS8 key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// ParseES256PrivateKey decodes a PEM private key. PKCS8, SEC1 and blocks
// produced by EncryptES256PrivateKey are accepted.
func ParseES256PrivateKey(data []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("cryptox: no PEM block found")
	}

	switch block.Type {
	case encryptedKeyBlockType:
		plain, err := DecryptPrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		return ParseES256PrivateKey(plain)

	case "EC PRIVATE KEY":
		key, err := x509.ParseECPrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("cryptox: parse SEC1 key: %w", err)
		}
		return checkP256(key)

	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("cryptox: parse PKCS8 key: %w", err)
		}
		key, ok := parsed.(*ecdsa.PrivateKey)
		if !ok {
			return nil, ErrNotES256Key
		}
		return checkP256(key)
	}

	return nil, fmt.Errorf("cryptox: unsupported PEM block %q", block.Type)
}

// EncryptES256PrivateKey seals a PEM private key with the master key and
// returns it wrapped in a PEM block that ParseES256PrivateKey understands.
func EncryptES256PrivateKey(pemData []byte) ([]byte, error) {
	sealed, err := EncryptPrivateKey(pemData)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: encryptedKeyBlockType, Bytes: sealed}), nil
}

// IsEncryptedKeyPEM reports whether data is a block written by EncryptES256PrivateKey.
func IsEncryptedKeyPEM(data []byte) bool {
	block, _ := pem.Decode(data)
	return block != nil && block.Type == encryptedKeyBlockType
}

func checkP256(key *ecdsa.PrivateKey) (*ecdsa.PrivateKey, error) {
	if key.Curve != elliptic.P256() {
		return nil, ErrNotES256Key
	}
	return key, nil
}
