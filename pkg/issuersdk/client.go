package issuersdk

import (
	"net/http"
	"strings"
	"time"
)

// Client talks to one credential issuer. The same client serves the wallet
// side (token, credential, metadata) and the operator side (offers), the
// latter authenticated with AdminToken.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// AdminToken is sent as a bearer token on offer requests.
	AdminToken string
}

// NewClient creates a client for the issuer at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// WithAdminToken sets the operator bearer token and returns c.
func (c *Client) WithAdminToken(token string) *Client {
	c.AdminToken = token
	return c
}
