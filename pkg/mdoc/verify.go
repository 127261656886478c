package mdoc

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"
)

var (
	ErrMalformed        = errors.New("mdoc: malformed document")
	ErrInvalidSignature = errors.New("mdoc: issuerAuth signature invalid")
	ErrDigestMismatch   = errors.New("mdoc: value digest mismatch")
)

// sign1Tag is the single-byte CBOR head of tag 18 (COSE_Sign1).
const sign1Tag = 0xd2

// Verified is the outcome of Verify.
type Verified struct {
	DocType     string
	Claims      map[string]map[string]any
	DeviceKey   *ecdsa.PublicKey
	Signed      time.Time
	ValidFrom   time.Time
	ValidUntil  time.Time
	Certificate *x509.Certificate
}

// Claim returns a claim value from ns or nil.
func (v *Verified) Claim(ns, name string) any {
	return v.Claims[ns][name]
}

// DecodeString accepts padded or unpadded base64url.
func DecodeString(s string) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return raw, nil
}

// VerifyEncoded is DecodeString followed by Verify.
func VerifyEncoded(s string) (*Verified, error) {
	raw, err := DecodeString(s)
	if err != nil {
		return nil, err
	}
	return Verify(raw)
}

// Verify checks the issuerAuth signature against the x5chain leaf and every
// item digest against the MSO. Certificate trust is not evaluated.
func Verify(raw []byte) (*Verified, error) {
	var doc issuerSigned
	if err := cbor.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	authBytes := []byte(doc.IssuerAuth)
	if len(authBytes) == 0 {
		return nil, fmt.Errorf("%w: missing issuerAuth", ErrMalformed)
	}
	if authBytes[0] != sign1Tag {
		authBytes = append([]byte{sign1Tag}, authBytes...)
	}

	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(authBytes); err != nil {
		return nil, fmt.Errorf("%w: issuerAuth: %w", ErrMalformed, err)
	}

	cert, err := leafCertificate(msg.Headers.Unprotected[cose.HeaderLabelX5Chain])
	if err != nil {
		return nil, err
	}
	pub, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: certificate key is not ECDSA", ErrMalformed)
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmES256, pub)
	if err != nil {
		return nil, fmt.Errorf("mdoc: COSE verifier: %w", err)
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	mso, err := decodeMSO(msg.Payload)
	if err != nil {
		return nil, err
	}

	out := &Verified{
		DocType:     mso.DocType,
		Claims:      make(map[string]map[string]any, len(doc.NameSpaces)),
		Certificate: cert,
	}
	if out.DeviceKey, err = mso.DeviceKeyInfo.DeviceKey.PublicKey(); err != nil {
		return nil, err
	}
	if out.Signed, err = tagTime(mso.ValidityInfo.Signed); err != nil {
		return nil, err
	}
	if out.ValidFrom, err = tagTime(mso.ValidityInfo.ValidFrom); err != nil {
		return nil, err
	}
	if out.ValidUntil, err = tagTime(mso.ValidityInfo.ValidUntil); err != nil {
		return nil, err
	}

	for ns, items := range doc.NameSpaces {
		expected := mso.ValueDigests[ns]
		claims := make(map[string]any, len(items))

		for _, wrapped := range items {
			item, err := decodeItem(wrapped)
			if err != nil {
				return nil, err
			}
			sum := sha256.Sum256(wrapped)
			if want, ok := expected[item.DigestID]; !ok || !bytes.Equal(want, sum[:]) {
				return nil, fmt.Errorf("%w: %s/%s", ErrDigestMismatch, ns, item.ElementIdentifier)
			}
			claims[item.ElementIdentifier] = plainValue(item.ElementValue)
		}
		out.Claims[ns] = claims
	}

	return out, nil
}

func leafCertificate(v any) (*x509.Certificate, error) {
	var der []byte
	switch chain := v.(type) {
	case []byte:
		der = chain
	case [][]byte:
		if len(chain) > 0 {
			der = chain[0]
		}
	case []any:
		if len(chain) > 0 {
			der, _ = chain[0].([]byte)
		}
	}
	if len(der) == 0 {
		return nil, fmt.Errorf("%w: missing x5chain", ErrMalformed)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: x5chain: %w", ErrMalformed, err)
	}
	return cert, nil
}

// decodeMSO accepts the MSO either directly or wrapped in tag 24.
func decodeMSO(payload []byte) (*mobileSecurityObject, error) {
	var wrapped cbor.Tag
	if err := cbor.Unmarshal(payload, &wrapped); err == nil && wrapped.Number == tagEncodedCBOR {
		if inner, ok := wrapped.Content.([]byte); ok {
			payload = inner
		}
	}

	var mso mobileSecurityObject
	if err := cbor.Unmarshal(payload, &mso); err != nil {
		return nil, fmt.Errorf("%w: MSO: %w", ErrMalformed, err)
	}
	if mso.DigestAlgorithm != DigestAlgorithm {
		return nil, fmt.Errorf("%w: unsupported digest algorithm %q", ErrMalformed, mso.DigestAlgorithm)
	}
	return &mso, nil
}

func decodeItem(wrapped []byte) (*issuerSignedItem, error) {
	var tag cbor.Tag
	if err := cbor.Unmarshal(wrapped, &tag); err != nil || tag.Number != tagEncodedCBOR {
		return nil, fmt.Errorf("%w: item is not tag 24", ErrMalformed)
	}
	inner, ok := tag.Content.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: tag 24 content is not a byte string", ErrMalformed)
	}
	var item issuerSignedItem
	if err := cbor.Unmarshal(inner, &item); err != nil {
		return nil, fmt.Errorf("%w: item: %w", ErrMalformed, err)
	}
	return &item, nil
}

func tagTime(t cbor.Tag) (time.Time, error) {
	s, ok := t.Content.(string)
	if !ok || t.Number != tagDateTime {
		return time.Time{}, fmt.Errorf("%w: validity is not a tdate", ErrMalformed)
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return parsed, nil
}

// plainValue unwraps date tags into their string form for display.
func plainValue(v any) any {
	if tag, ok := v.(cbor.Tag); ok && (tag.Number == tagFullDate || tag.Number == tagDateTime) {
		if s, ok := tag.Content.(string); ok {
			return s
		}
	}
	return v
}
