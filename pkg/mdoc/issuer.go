package mdoc

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/samber/lo"
	"github.com/veraison/go-cose"
)

var (
	ErrNoClaims       = errors.New("mdoc: no claims")
	ErrInvalidRequest = errors.New("mdoc: invalid document request")
)

// Document is everything needed to issue one mdoc.
type Document struct {
	DocType   string
	Namespace string
	// Claims are element identifiers to values. Values must be CBOR
	// encodable; use FullDate for date-only elements.
	Claims     map[string]any
	DeviceKey  *ecdsa.PublicKey
	ValidFrom  time.Time
	ValidUntil time.Time
}

// Issuer signs MSOs with a document signer key and certificate.
type Issuer struct {
	key   *ecdsa.PrivateKey
	chain [][]byte
	now   func() time.Time
}

// NewIssuer returns an Issuer. chain is the DER certificate chain, leaf
// first, and its leaf must certify key.
func NewIssuer(key *ecdsa.PrivateKey, chain ...[]byte) (*Issuer, error) {
	if key == nil || key.Curve != elliptic.P256() {
		return nil, errors.New("mdoc: issuer key must be ECDSA P-256")
	}
	if len(chain) == 0 {
		return nil, errors.New("mdoc: issuer certificate required")
	}
	leaf, err := x509.ParseCertificate(chain[0])
	if err != nil {
		return nil, fmt.Errorf("mdoc: parse issuer certificate: %w", err)
	}
	pub, ok := leaf.PublicKey.(*ecdsa.PublicKey)
	if !ok || !pub.Equal(&key.PublicKey) {
		return nil, errors.New("mdoc: certificate does not match issuer key")
	}
	return &Issuer{key: key, chain: chain, now: time.Now}, nil
}

// WithClock replaces the clock used for validityInfo.signed.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Certificate returns the document signer certificate (DER).
func (i *Issuer) Certificate() []byte { return i.chain[0] }

// Issue builds and signs an IssuerSigned structure and returns its CBOR.
func (i *Issuer) Issue(doc Document) ([]byte, error) {
	if doc.DocType == "" || doc.Namespace == "" {
		return nil, fmt.Errorf("%w: doctype and namespace required", ErrInvalidRequest)
	}
	if len(doc.Claims) == 0 {
		return nil, ErrNoClaims
	}
	if !doc.ValidUntil.After(doc.ValidFrom) {
		return nil, fmt.Errorf("%w: empty validity window", ErrInvalidRequest)
	}
	deviceKey, err := NewCOSEKey(doc.DeviceKey)
	if err != nil {
		return nil, err
	}

	// Sorted element ids give stable digest ids.
	names := lo.Keys(doc.Claims)
	slices.Sort(names)

	items := make([]cbor.RawMessage, 0, len(names))
	digests := make(map[uint64][]byte, len(names))

	for id, name := range names {
		salt := make([]byte, 16)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("mdoc: random salt: %w", err)
		}

		itemBytes, err := cbor.Marshal(issuerSignedItem{
			DigestID:          uint64(id),
			Random:            salt,
			ElementIdentifier: name,
			ElementValue:      doc.Claims[name],
		})
		if err != nil {
			return nil, fmt.Errorf("mdoc: encode item %q: %w", name, err)
		}

		wrapped, err := cbor.Marshal(cbor.Tag{Number: tagEncodedCBOR, Content: itemBytes})
		if err != nil {
			return nil, fmt.Errorf("mdoc: wrap item %q: %w", name, err)
		}

		sum := sha256.Sum256(wrapped)
		digests[uint64(id)] = sum[:]
		items = append(items, wrapped)
	}

	mso := mobileSecurityObject{
		Version:         Version,
		DigestAlgorithm: DigestAlgorithm,
		ValueDigests:    map[string]map[uint64][]byte{doc.Namespace: digests},
		DeviceKeyInfo:   deviceKeyInfo{DeviceKey: deviceKey},
		DocType:         doc.DocType,
		ValidityInfo: validityInfo{
			Signed:     tdate(i.now()),
			ValidFrom:  tdate(doc.ValidFrom),
			ValidUntil: tdate(doc.ValidUntil),
		},
	}
	msoBytes, err := cbor.Marshal(mso)
	if err != nil {
		return nil, fmt.Errorf("mdoc: encode MSO: %w", err)
	}

	issuerAuth, err := i.sign(msoBytes)
	if err != nil {
		return nil, err
	}

	out, err := cbor.Marshal(issuerSigned{
		NameSpaces: map[string][]cbor.RawMessage{doc.Namespace: items},
		IssuerAuth: issuerAuth,
	})
	if err != nil {
		return nil, fmt.Errorf("mdoc: encode IssuerSigned: %w", err)
	}
	return out, nil
}

// IssueEncoded is Issue followed by unpadded base64url encoding.
func (i *Issuer) IssueEncoded(doc Document) (string, error) {
	raw, err := i.Issue(doc)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func (i *Issuer) sign(payload []byte) ([]byte, error) {
	signer, err := cose.NewSigner(cose.AlgorithmES256, i.key)
	if err != nil {
		return nil, fmt.Errorf("mdoc: COSE signer: %w", err)
	}

	msg := cose.NewSign1Message()
	msg.Headers.Protected.SetAlgorithm(cose.AlgorithmES256)
	if len(i.chain) == 1 {
		msg.Headers.Unprotected[cose.HeaderLabelX5Chain] = i.chain[0]
	} else {
		msg.Headers.Unprotected[cose.HeaderLabelX5Chain] = i.chain
	}
	msg.Payload = payload

	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		return nil, fmt.Errorf("mdoc: COSE sign: %w", err)
	}
	raw, err := msg.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("mdoc: encode COSE_Sign1: %w", err)
	}
	return raw, nil
}
