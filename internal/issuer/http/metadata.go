package http

import (
	"net/http"

	"github.com/aussiebroadwan/vcissuer/internal/issuer/service"
	"github.com/aussiebroadwan/vcissuer/pkg/httpx"
)

// MetadataHandler serves the discovery documents wallets read before
// redeeming an offer.
type MetadataHandler struct {
	MetadataService *service.MetadataService
	baseURL         func(*http.Request) string
}

// HandleIssuer godoc
//
//	@Summary		Credential Issuer Metadata
//	@Description	Returns the OpenID4VCI credential issuer metadata, including every supported credential configuration.
//	@Tags			Metadata
//	@Produce		json
//	@Success		200	{object}	issuersdk.IssuerMetadata	"credential_issuer, credential_endpoint, credential_configurations_supported"
//	@Router			/.well-known/openid-credential-issuer [get].
func (h *MetadataHandler) HandleIssuer(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.MetadataService.Metadata(h.baseURL(r)))
}

// HandleAuthorizationServer godoc
//
//	@Summary		OAuth 2.0 Authorization Server Metadata
//	@Description	Returns RFC 8414 metadata advertising the pre-authorized code grant and the token endpoint.
//	@Tags			Metadata
//	@Produce		json
//	@Success		200	{object}	issuersdk.AuthorizationServerMetadata	"issuer, token_endpoint, grant_types_supported"
//	@Router			/.well-known/oauth-authorization-server [get].
func (h *MetadataHandler) HandleAuthorizationServer(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.MetadataService.AuthorizationServer(h.baseURL(r)))
}
