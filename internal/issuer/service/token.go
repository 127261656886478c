package service

import (
	"context"

	"github.com/aussiebroadwan/vcissuer/pkg/issuersdk"
)

type TokenService struct {
	Codes *CodeService
}

// Exchange implements the pre-authorized code grant. Other grant types are
// rejected before the code is even looked at.
func (s *TokenService) Exchange(ctx context.Context, grantType, code, txCode string) (*issuersdk.TokenResponse, error) {
	if grantType != issuersdk.GrantTypePreAuthorizedCode {
		return nil, ErrUnsupportedGrantType
	}

	tok, err := s.Codes.Redeem(ctx, code, txCode)
	if err != nil {
		return nil, err
	}

	return &issuersdk.TokenResponse{
		AccessToken:     tok.AccessToken,
		TokenType:       "bearer",
		ExpiresIn:       int(tok.ExpiresIn.Seconds()),
		CNonce:          tok.CNonce,
		CNonceExpiresIn: int(tok.CNonceExpiresIn.Seconds()),
	}, nil
}
