package cryptox

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// CertificateSubject describes the issuer certificate embedded in x5chain.
type CertificateSubject struct {
	Country      string
	Province     string
	Locality     string
	Organization string
	CommonName   string
	DNSNames     []string
	Validity     time.Duration
}

// DefaultCertificateSubject is used when no certificate file is configured.
var DefaultCertificateSubject = CertificateSubject{
	Country:      "NO",
	Province:     "Vestland",
	Locality:     "Leikanger",
	Organization: "Digdir",
	CommonName:   "digdir.no",
	DNSNames:     []string{"localhost"},
	Validity:     365 * 24 * time.Hour,
}

// SelfSignedCertificate issues a DER certificate for key signed by itself.
func SelfSignedCertificate(key *ecdsa.PrivateKey, subject CertificateSubject, now time.Time) ([]byte, error) {
	if key == nil {
		return nil, errors.New("cryptox: nil signing key")
	}
	if subject.Validity <= 0 {
		subject.Validity = DefaultCertificateSubject.Validity
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("cryptox: generate serial: %w", err)
	}

	name := pkix.Name{CommonName: subject.CommonName}
	if subject.Country != "" {
		name.Country = []string{subject.Country}
	}
	if subject.Province != "" {
		name.Province = []string{subject.Province}
	}
	if subject.Locality != "" {
		name.Locality = []string{subject.Locality}
	}
	if subject.Organization != "" {
		name.Organization = []string{subject.Organization}
	}

	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               name,
		Issuer:                name,
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(subject.Validity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		DNSNames:              subject.DNSNames,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: create certificate: %w", err)
	}
	return der, nil
}

// EncodeCertificatePEM wraps a DER certificate in a CERTIFICATE PEM block.
func EncodeCertificatePEM(der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

// ParseCertificatePEM returns the DER bytes of the first CERTIFICATE block.
func ParseCertificatePEM(data []byte) ([]byte, error) {
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return nil, errors.New("cryptox: no CERTIFICATE block found")
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		if _, err := x509.ParseCertificate(block.Bytes); err != nil {
			return nil, fmt.Errorf("cryptox: parse certificate: %w", err)
		}
		return block.Bytes, nil
	}
}
