package issuersdk

import (
	"context"
	"net/http"
)

// RequestCredential calls the credential endpoint with an access token.
// An invalid_proof failure comes back as a *ProtocolError carrying the
// fresh c_nonce to retry with.
func (c *Client) RequestCredential(ctx context.Context, accessToken string, req CredentialRequest) (*CredentialResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, "/credential", req, bearer(accessToken))
	if err != nil {
		return nil, err
	}

	var credResp CredentialResponse
	if err := decodeJSON(resp, &credResp, http.StatusOK); err != nil {
		return nil, err
	}
	return &credResp, nil
}
