package issuersdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/vcissuer/pkg/httpx"
)

// ============================================================================
// Error codes (RFC 6749, RFC 6750, OpenID4VCI)
// ============================================================================

const (
	ErrorCodeInvalidRequest              = "invalid_request"
	ErrorCodeInvalidGrant                = "invalid_grant"
	ErrorCodeUnsupportedGrantType        = "unsupported_grant_type"
	ErrorCodeInvalidToken                = "invalid_token"
	ErrorCodeInvalidProof                = "invalid_proof"
	ErrorCodeUnsupportedCredentialType   = "unsupported_credential_type"
	ErrorCodeUnsupportedCredentialFormat = "unsupported_credential_format"
	ErrorCodeServerError                 = "server_error"
	ErrorCodeRateLimitExceeded           = "rate_limit_exceeded"
)

// ============================================================================
// ProtocolError
// ============================================================================

// ProtocolError is an OAuth 2.0 / OpenID4VCI error response. It is written by
// the server's handlers and returned by the client SDK, so both sides agree
// on one shape.
type ProtocolError struct {
	StatusCode int `json:"-"`

	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`

	// CNonce is set on invalid_proof so the wallet can retry with a fresh
	// nonce without another token request.
	CNonce          string `json:"c_nonce,omitempty"`
	CNonceExpiresIn int    `json:"c_nonce_expires_in,omitempty"`
}

func (e *ProtocolError) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches on the error code so errors.Is(err, issuersdk.ErrInvalidToken)
// works on errors decoded by the client.
func (e *ProtocolError) Is(target error) bool {
	t, ok := target.(*ProtocolError)
	return ok && t.Code == e.Code
}

// WithNonce returns a copy carrying a fresh c_nonce.
func (e *ProtocolError) WithNonce(nonce string, expiresIn int) *ProtocolError {
	cp := *e
	cp.CNonce = nonce
	cp.CNonceExpiresIn = expiresIn
	return &cp
}

// WithDescription returns a copy with a different description.
func (e *ProtocolError) WithDescription(desc string) *ProtocolError {
	cp := *e
	cp.Description = desc
	return &cp
}

// WriteError writes e as a JSON response. 401s also carry an RFC 6750
// WWW-Authenticate challenge.
func (e *ProtocolError) WriteError(w http.ResponseWriter) {
	if e.StatusCode == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer error=%q, error_description=%q`, e.Code, e.Description))
	}
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(e)
}

// ============================================================================
// Predefined errors
// ============================================================================

var (
	ErrInvalidRequest = &ProtocolError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	ErrInvalidContentType = &ProtocolError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "content-type must be application/x-www-form-urlencoded",
	}

	ErrInvalidFormBody = &ProtocolError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "invalid form body",
	}

	// ErrInvalidGrant covers unknown, expired, already redeemed and
	// transaction code mismatches alike so the response does not reveal
	// which one happened.
	ErrInvalidGrant = &ProtocolError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidGrant,
		Description: "the pre-authorized code or transaction code is invalid",
	}

	ErrUnsupportedGrantType = &ProtocolError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeUnsupportedGrantType,
		Description: "grant type not supported",
	}

	ErrInvalidToken = &ProtocolError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidToken,
		Description: "the access token is missing, invalid, expired or already used",
	}

	ErrInvalidProof = &ProtocolError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidProof,
		Description: "the key proof is missing or invalid",
	}

	ErrUnsupportedCredentialType = &ProtocolError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeUnsupportedCredentialType,
		Description: "credential configuration not supported",
	}

	ErrUnsupportedCredentialFormat = &ProtocolError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeUnsupportedCredentialFormat,
		Description: "credential format not supported",
	}

	ErrServerError = &ProtocolError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// parseErrorResponse turns a non-2xx response into a *ProtocolError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var perr ProtocolError
	if err := json.Unmarshal(body, &perr); err == nil && perr.Code != "" {
		perr.StatusCode = resp.StatusCode
		return &perr
	}

	return &ProtocolError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
