package issuersdk

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// TxCodeHeader carries the plain transaction code alongside a PNG offer.
const TxCodeHeader = "X-Transaction-Code"

// CreateOffer asks the issuer for a new credential offer.
func (c *Client) CreateOffer(ctx context.Context, credentialConfigurationID string) (*OfferResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/offers",
		OfferRequest{CredentialConfigurationID: credentialConfigurationID},
		bearer(c.AdminToken),
	)
	if err != nil {
		return nil, err
	}

	var offer OfferResponse
	if err := decodeJSON(resp, &offer, http.StatusCreated); err != nil {
		return nil, err
	}
	return &offer, nil
}

// OfferQRCode fetches a new offer rendered as a PNG QR code. The returned
// string is the plain transaction code, empty when none was set.
func (c *Client) OfferQRCode(ctx context.Context, credentialConfigurationID string) ([]byte, string, error) {
	path := "/offers/qr.png?" + url.Values{"credential_configuration_id": {credentialConfigurationID}}.Encode()
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, bearer(c.AdminToken))
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", parseErrorResponse(resp, body)
	}
	return body, resp.Header.Get(TxCodeHeader), nil
}
