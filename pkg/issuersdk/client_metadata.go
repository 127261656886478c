package issuersdk

import (
	"context"
	"net/http"
)

// GetIssuerMetadata fetches /.well-known/openid-credential-issuer.
func (c *Client) GetIssuerMetadata(ctx context.Context) (*IssuerMetadata, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, "/.well-known/openid-credential-issuer", nil, nil)
	if err != nil {
		return nil, err
	}

	var md IssuerMetadata
	if err := decodeJSON(resp, &md, http.StatusOK); err != nil {
		return nil, err
	}
	return &md, nil
}

// GetAuthorizationServerMetadata fetches /.well-known/oauth-authorization-server.
func (c *Client) GetAuthorizationServerMetadata(ctx context.Context) (*AuthorizationServerMetadata, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, "/.well-known/oauth-authorization-server", nil, nil)
	if err != nil {
		return nil, err
	}

	var md AuthorizationServerMetadata
	if err := decodeJSON(resp, &md, http.StatusOK); err != nil {
		return nil, err
	}
	return &md, nil
}
