package service

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/aussiebroadwan/vcissuer/internal/issuer/domain"
	"github.com/aussiebroadwan/vcissuer/pkg/mdoc"
)

// DefaultCredentialValidity is how long an issued credential is valid.
const DefaultCredentialValidity = 365 * 24 * time.Hour

// SignRequest carries everything a signer needs for one credential.
type SignRequest struct {
	Configuration domain.CredentialConfiguration
	Claims        map[string]any
	HolderKey     *ecdsa.PublicKey
	ValidFrom     time.Time
	ValidUntil    time.Time
}

// CredentialSigner turns claims into a signed, encoded credential.
type CredentialSigner interface {
	Sign(ctx context.Context, req SignRequest) (string, error)
}

// MdocSigner issues mso_mdoc credentials with an mdoc.Issuer.
type MdocSigner struct {
	Issuer *mdoc.Issuer
}

var errSignerNotReady = errors.New("mdoc signer: no issuer key loaded")

// Ready reports whether a document signer key is loaded.
func (s *MdocSigner) Ready() error {
	if s == nil || s.Issuer == nil {
		return errSignerNotReady
	}
	return nil
}

func (s *MdocSigner) Sign(_ context.Context, req SignRequest) (string, error) {
	if err := s.Ready(); err != nil {
		return "", err
	}
	if req.Configuration.Format != domain.FormatMSOMdoc {
		return "", fmt.Errorf("mdoc signer: unsupported format %q", req.Configuration.Format)
	}

	claims, err := mdocClaims(req)
	if err != nil {
		return "", err
	}

	return s.Issuer.IssueEncoded(mdoc.Document{
		DocType:    req.Configuration.DocType,
		Namespace:  req.Configuration.Namespace,
		Claims:     claims,
		DeviceKey:  req.HolderKey,
		ValidFrom:  req.ValidFrom,
		ValidUntil: req.ValidUntil,
	})
}

// mdocClaims fills issuance_date and expiry_date from the validity window
// and encodes every full-date claim as tag 1004.
func mdocClaims(req SignRequest) (map[string]any, error) {
	claims := maps.Clone(req.Claims)
	if claims == nil {
		claims = make(map[string]any)
	}
	if _, ok := req.Configuration.Claim("issuance_date"); ok {
		claims["issuance_date"] = req.ValidFrom
	}
	if _, ok := req.Configuration.Claim("expiry_date"); ok {
		claims["expiry_date"] = req.ValidUntil
	}

	for _, d := range req.Configuration.Claims {
		if d.ValueType != domain.ValueTypeFullDate {
			continue
		}
		v, ok := claims[d.Name]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case time.Time:
			claims[d.Name] = mdoc.FullDate(val)
		case string:
			t, err := time.Parse(time.DateOnly, val)
			if err != nil {
				return nil, fmt.Errorf("mdoc signer: claim %s: %w", d.Name, err)
			}
			claims[d.Name] = mdoc.FullDate(t)
		default:
			return nil, fmt.Errorf("mdoc signer: claim %s: unsupported date value %T", d.Name, v)
		}
	}
	return claims, nil
}
