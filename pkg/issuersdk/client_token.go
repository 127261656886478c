package issuersdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// ExchangePreAuthorizedCode redeems a pre-authorized code at the token
// endpoint. txCode may be empty when the offer carried no tx_code hint.
func (c *Client) ExchangePreAuthorizedCode(ctx context.Context, code, txCode string) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":          {GrantTypePreAuthorizedCode},
		"pre-authorized_code": {code},
	}
	if txCode != "" {
		data.Set("tx_code", txCode)
	}
	return c.requestToken(ctx, data)
}

func (c *Client) requestToken(ctx context.Context, data url.Values) (*TokenResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/token", strings.NewReader(data.Encode()), map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
		"Accept":       "application/json",
	})
	if err != nil {
		return nil, err
	}

	var tokenResp TokenResponse
	if err := decodeJSON(resp, &tokenResp, http.StatusOK); err != nil {
		return nil, err
	}
	return &tokenResp, nil
}
