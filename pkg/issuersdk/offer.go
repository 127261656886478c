package issuersdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// OfferScheme is the URI scheme wallets register for credential offers.
const OfferScheme = "openid-credential-offer"

var ErrInvalidOfferURI = errors.New("issuersdk: invalid credential offer uri")

// BuildOfferURI encodes offer by value into an openid-credential-offer URI.
func BuildOfferURI(offer CredentialOffer) (string, error) {
	raw, err := json.Marshal(offer)
	if err != nil {
		return "", fmt.Errorf("issuersdk: encode offer: %w", err)
	}
	return OfferScheme + "://?credential_offer=" + url.QueryEscape(string(raw)), nil
}

// ParseOfferURI decodes a by-value credential offer URI. Both the
// openid-credential-offer scheme and https links with a credential_offer
// query parameter are accepted.
func ParseOfferURI(uri string) (*CredentialOffer, error) {
	u, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOfferURI, err)
	}
	if u.Scheme != OfferScheme && u.Scheme != "https" && u.Scheme != "http" {
		return nil, fmt.Errorf("%w: unexpected scheme %q", ErrInvalidOfferURI, u.Scheme)
	}

	raw := u.Query().Get("credential_offer")
	if raw == "" {
		return nil, fmt.Errorf("%w: missing credential_offer", ErrInvalidOfferURI)
	}

	var offer CredentialOffer
	if err := json.Unmarshal([]byte(raw), &offer); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOfferURI, err)
	}
	if offer.CredentialIssuer == "" || len(offer.CredentialConfigurationIDs) == 0 {
		return nil, fmt.Errorf("%w: incomplete offer", ErrInvalidOfferURI)
	}
	if offer.Grants.PreAuthorizedCode == nil || offer.Grants.PreAuthorizedCode.PreAuthorizedCode == "" {
		return nil, fmt.Errorf("%w: no pre-authorized code grant", ErrInvalidOfferURI)
	}
	return &offer, nil
}
