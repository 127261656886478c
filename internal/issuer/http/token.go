package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/vcissuer/internal/issuer/metrics"
	"github.com/aussiebroadwan/vcissuer/internal/issuer/service"
	"github.com/aussiebroadwan/vcissuer/pkg/httpx"
	"github.com/aussiebroadwan/vcissuer/pkg/issuersdk"
	"github.com/aussiebroadwan/vcissuer/pkg/slogx"
)

// TokenHandler serves POST /token
// Accepts application/x-www-form-urlencoded per the RFC 6749 framework.
type TokenHandler struct {
	TokenService *service.TokenService
	metrics      *metrics.Metrics
}

// ServeHTTP godoc
//
//	@Summary		Pre-authorized Code Token Endpoint
//	@Description	Exchanges the pre-authorized code from a credential offer (and its transaction code, when the offer carried one) for a single-use access token and c_nonce.
//	@Description	Unknown, expired and already used codes and wrong transaction codes all answer the same invalid_grant.
//	@Tags			OID4VCI
//	@Accept			application/x-www-form-urlencoded
//	@Produce		json
//	@Param			grant_type			formData	string						true	"Grant type"	Enums(urn:ietf:params:oauth:grant-type:pre-authorized_code)
//	@Param			pre-authorized_code	formData	string						true	"Pre-authorized code from the credential offer"
//	@Param			tx_code				formData	string						false	"Transaction code, required when the offer carried tx_code"
//	@Success		200					{object}	issuersdk.TokenResponse		"access_token, token_type, expires_in, c_nonce, c_nonce_expires_in"
//	@Failure		400					{object}	issuersdk.ProtocolError		"error, error_description"
//	@Failure		429					{object}	issuersdk.ProtocolError		"error, error_description"
//	@Failure		500					{object}	issuersdk.ProtocolError		"error, error_description"
//	@Header			200					{string}	Cache-Control				"no-store"
//	@Header			200					{string}	Pragma						"no-cache"
//	@Router			/token [post].
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// 1. Ensure the right content-type
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		h.fail(w, issuersdk.ErrInvalidContentType)
		return
	}

	// 2. Parse the form body
	if err := r.ParseForm(); err != nil {
		h.fail(w, issuersdk.ErrInvalidFormBody)
		return
	}

	grantType := strings.TrimSpace(r.PostForm.Get("grant_type"))
	code := strings.TrimSpace(r.PostForm.Get("pre-authorized_code"))
	txCode := strings.TrimSpace(r.PostForm.Get("tx_code"))
	if txCode == "" {
		// Draft 13 and earlier wallets send the transaction code as user_pin.
		txCode = strings.TrimSpace(r.PostForm.Get("user_pin"))
	}

	if grantType == issuersdk.GrantTypePreAuthorizedCode && code == "" {
		h.fail(w, issuersdk.ErrInvalidRequest.WithDescription("pre-authorized_code is required"))
		return
	}

	// 3. Exchange
	resp, err := h.TokenService.Exchange(ctx, grantType, code, txCode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedGrantType):
			h.fail(w, issuersdk.ErrUnsupportedGrantType)
		case errors.Is(err, service.ErrInvalidCode),
			errors.Is(err, service.ErrExpiredCode),
			errors.Is(err, service.ErrTransactionCodeMismatch):
			h.fail(w, issuersdk.ErrInvalidGrant)
		default:
			log.Error("pre-authorized code exchange failed", "err", err)
			h.fail(w, issuersdk.ErrServerError)
		}
		return
	}

	h.metrics.Tokens.WithLabelValues(metrics.OutcomeOK, "").Inc()
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *TokenHandler) fail(w http.ResponseWriter, perr *issuersdk.ProtocolError) {
	outcome := metrics.OutcomeRejected
	if perr.StatusCode >= http.StatusInternalServerError {
		outcome = metrics.OutcomeError
	}
	h.metrics.Tokens.WithLabelValues(outcome, perr.Code).Inc()
	perr.WriteError(w)
}
