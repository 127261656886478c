package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/vcissuer/internal/issuer/domain"
	"github.com/aussiebroadwan/vcissuer/pkg/issuersdk"
	"github.com/aussiebroadwan/vcissuer/pkg/slogx"
)

// QREncoder renders offer URIs as images.
type QREncoder interface {
	Encode(content string) ([]byte, error)
}

// Offer is a freshly minted credential offer.
type Offer struct {
	Payload   issuersdk.CredentialOffer
	URI       string
	QRCode    []byte // PNG, nil when no encoder is configured
	TxCode    string
	ExpiresAt time.Time
}

type OfferService struct {
	Codes   *CodeService
	Catalog domain.Catalog
	QR      QREncoder

	// TxCodeDescription is shown by wallets next to the tx code prompt.
	TxCodeDescription string
}

// MakeOffer creates a new code for configID and wraps it in an offer
// addressed from baseURL.
func (s *OfferService) MakeOffer(ctx context.Context, baseURL, configID string) (*Offer, error) {
	cfg, ok := s.Catalog.Get(configID)
	if !ok {
		return nil, ErrUnsupportedCredentialType
	}

	issued, err := s.Codes.CreateCode(ctx, cfg.ID)
	if err != nil {
		return nil, err
	}

	grant := &issuersdk.PreAuthorizedCodeGrant{PreAuthorizedCode: issued.Code}
	if issued.TxCode != "" {
		grant.TxCode = &issuersdk.TxCode{
			Length:      len(issued.TxCode),
			InputMode:   "numeric",
			Description: s.TxCodeDescription,
		}
	}

	payload := issuersdk.CredentialOffer{
		CredentialIssuer:           baseURL,
		CredentialConfigurationIDs: []string{cfg.ID},
		Grants:                     issuersdk.Grants{PreAuthorizedCode: grant},
	}

	uri, err := issuersdk.BuildOfferURI(payload)
	if err != nil {
		return nil, err
	}

	offer := &Offer{
		Payload:   payload,
		URI:       uri,
		TxCode:    issued.TxCode,
		ExpiresAt: issued.ExpiresAt,
	}
	if s.QR != nil {
		if offer.QRCode, err = s.QR.Encode(uri); err != nil {
			return nil, fmt.Errorf("render offer qr: %w", err)
		}
	}

	slogx.FromContext(ctx).Info("credential offer created",
		slog.String("code_id", issued.Record.ID),
		slog.String("credential_configuration_id", cfg.ID),
	)
	return offer, nil
}
