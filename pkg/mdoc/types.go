package mdoc

import (
	"time"

	"github.com/fxamacker/cbor/v2"
)

const (
	// Version of the MSO structure.
	Version = "1.0"

	DigestAlgorithm = "SHA-256"

	tagEncodedCBOR = 24
	tagDateTime    = 0
	tagFullDate    = 1004

	fullDateLayout = "2006-01-02"
)

// FullDate encodes t as an RFC 8943 full-date (tag 1004).
func FullDate(t time.Time) cbor.Tag {
	return cbor.Tag{Number: tagFullDate, Content: t.UTC().Format(fullDateLayout)}
}

func tdate(t time.Time) cbor.Tag {
	return cbor.Tag{Number: tagDateTime, Content: t.UTC().Truncate(time.Second).Format(time.RFC3339)}
}

type issuerSignedItem struct {
	DigestID          uint64 `cbor:"digestID"`
	Random            []byte `cbor:"random"`
	ElementIdentifier string `cbor:"elementIdentifier"`
	ElementValue      any    `cbor:"elementValue"`
}

type deviceKeyInfo struct {
	DeviceKey COSEKey `cbor:"deviceKey"`
}

type validityInfo struct {
	Signed     cbor.Tag `cbor:"signed"`
	ValidFrom  cbor.Tag `cbor:"validFrom"`
	ValidUntil cbor.Tag `cbor:"validUntil"`
}

type mobileSecurityObject struct {
	Version         string                       `cbor:"version"`
	DigestAlgorithm string                       `cbor:"digestAlgorithm"`
	ValueDigests    map[string]map[uint64][]byte `cbor:"valueDigests"`
	DeviceKeyInfo   deviceKeyInfo                `cbor:"deviceKeyInfo"`
	DocType         string                       `cbor:"docType"`
	ValidityInfo    validityInfo                 `cbor:"validityInfo"`
}

type issuerSigned struct {
	NameSpaces map[string][]cbor.RawMessage `cbor:"nameSpaces"`
	IssuerAuth cbor.RawMessage              `cbor:"issuerAuth"`
}
