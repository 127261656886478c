package issuersdk

import (
	"github.com/aussiebroadwan/vcissuer/pkg/proof"
)

// GrantTypePreAuthorizedCode is the only grant the token endpoint accepts.
const GrantTypePreAuthorizedCode = "urn:ietf:params:oauth:grant-type:pre-authorized_code"

// ============================================================================
// Credential offer
// ============================================================================

// CredentialOffer is the object carried in an openid-credential-offer URI.
type CredentialOffer struct {
	CredentialIssuer           string   `json:"credential_issuer"`
	CredentialConfigurationIDs []string `json:"credential_configuration_ids"`
	Grants                     Grants   `json:"grants"`
}

type Grants struct {
	PreAuthorizedCode *PreAuthorizedCodeGrant `json:"urn:ietf:params:oauth:grant-type:pre-authorized_code,omitempty"`
}

type PreAuthorizedCodeGrant struct {
	PreAuthorizedCode string  `json:"pre-authorized_code"`
	TxCode            *TxCode `json:"tx_code,omitempty"`
}

// TxCode tells the wallet to prompt for a transaction code. It never holds
// the code itself.
type TxCode struct {
	Length      int    `json:"length,omitempty"`
	InputMode   string `json:"input_mode,omitempty"`
	Description string `json:"description,omitempty"`
}

// OfferRequest is the body of POST /offers.
type OfferRequest struct {
	CredentialConfigurationID string `json:"credential_configuration_id"`
}

// OfferResponse is returned by POST /offers. TxCode is the plain
// transaction code, for the operator to pass on out of band.
type OfferResponse struct {
	CredentialOffer    CredentialOffer `json:"credential_offer"`
	CredentialOfferURI string          `json:"credential_offer_uri"`
	QRCode             string          `json:"qr_code"`
	TxCode             string          `json:"tx_code,omitempty"`
	ExpiresAt          string          `json:"expires_at"`
}

// ============================================================================
// Token and credential
// ============================================================================

type TokenResponse struct {
	AccessToken     string `json:"access_token"`
	TokenType       string `json:"token_type"`
	ExpiresIn       int    `json:"expires_in"`
	CNonce          string `json:"c_nonce,omitempty"`
	CNonceExpiresIn int    `json:"c_nonce_expires_in,omitempty"`
}

type CredentialRequest struct {
	Format                    string       `json:"format,omitempty"`
	CredentialConfigurationID string       `json:"credential_configuration_id,omitempty"`
	DocType                   string       `json:"doctype,omitempty"`
	Proof                     *proof.Proof `json:"proof,omitempty"`
}

// CredentialResponse carries no c_nonce: the access token is single use,
// so there is no follow-up request a nonce could serve.
type CredentialResponse struct {
	Credential string `json:"credential"`
	Format     string `json:"format"`
}

// ============================================================================
// Metadata
// ============================================================================

type Display struct {
	Name            string `json:"name"`
	Locale          string `json:"locale,omitempty"`
	Logo            *Logo  `json:"logo,omitempty"`
	BackgroundColor string `json:"background_color,omitempty"`
	TextColor       string `json:"text_color,omitempty"`
}

type Logo struct {
	URI     string `json:"uri"`
	AltText string `json:"alt_text,omitempty"`
}

type ClaimMetadata struct {
	Mandatory bool      `json:"mandatory"`
	ValueType string    `json:"value_type,omitempty"`
	Display   []Display `json:"display,omitempty"`
}

type ProofTypeMetadata struct {
	SigningAlgValuesSupported []string `json:"proof_signing_alg_values_supported"`

	// COSE identifiers, advertised for cwt proofs only.
	AlgValuesSupported []int `json:"proof_alg_values_supported,omitempty"`
	CrvValuesSupported []int `json:"proof_crv_values_supported,omitempty"`
}

type CredentialConfigurationMetadata struct {
	Format                               string                              `json:"format"`
	DocType                              string                              `json:"doctype,omitempty"`
	Scope                                string                              `json:"scope,omitempty"`
	CryptographicBindingMethodsSupported []string                            `json:"cryptographic_binding_methods_supported,omitempty"`
	CredentialSigningAlgValuesSupported  []string                            `json:"credential_signing_alg_values_supported,omitempty"`
	ProofTypesSupported                  map[string]ProofTypeMetadata        `json:"proof_types_supported,omitempty"`
	Display                              []Display                           `json:"display,omitempty"`
	Claims                               map[string]map[string]ClaimMetadata `json:"claims,omitempty"`
}

// IssuerMetadata is served at /.well-known/openid-credential-issuer.
type IssuerMetadata struct {
	CredentialIssuer                  string                                     `json:"credential_issuer"`
	CredentialEndpoint                string                                     `json:"credential_endpoint"`
	TokenEndpoint                     string                                     `json:"token_endpoint,omitempty"`
	Display                           []Display                                  `json:"display,omitempty"`
	CredentialConfigurationsSupported map[string]CredentialConfigurationMetadata `json:"credential_configurations_supported"`
}

// AuthorizationServerMetadata is served at
// /.well-known/oauth-authorization-server.
type AuthorizationServerMetadata struct {
	Issuer                            string   `json:"issuer"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	PreAuthorizedGrantAnonymousAccess bool     `json:"pre-authorized_grant_anonymous_access_supported"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
}

// ============================================================================
// Health
// ============================================================================

type HealthResponse struct {
	Status  string            `json:"status"`
	Uptime  string            `json:"uptime,omitempty"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}
