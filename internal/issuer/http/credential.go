package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/vcissuer/internal/issuer/metrics"
	"github.com/aussiebroadwan/vcissuer/internal/issuer/service"
	"github.com/aussiebroadwan/vcissuer/pkg/httpx"
	"github.com/aussiebroadwan/vcissuer/pkg/issuersdk"
	"github.com/aussiebroadwan/vcissuer/pkg/slogx"
)

const maxCredentialRequestBytes = 64 << 10

// CredentialHandler serves POST /credential
type CredentialHandler struct {
	CredentialService *service.CredentialService
	baseURL           func(*http.Request) string
	metrics           *metrics.Metrics
}

// ServeHTTP godoc
//
//	@Summary		Credential Endpoint
//	@Description	Issues one mso_mdoc credential bound to the key in the holder proof. The access token is single use.
//	@Description	A rejected proof answers invalid_proof with a fresh c_nonce and leaves the token usable.
//	@Tags			OID4VCI
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		issuersdk.CredentialRequest		true	"format, credential_configuration_id, proof"
//	@Success		200		{object}	issuersdk.CredentialResponse	"credential, format"
//	@Failure		400		{object}	issuersdk.ProtocolError			"invalid_request, invalid_proof, unsupported_credential_type, unsupported_credential_format"
//	@Failure		401		{object}	issuersdk.ProtocolError			"invalid_token"
//	@Failure		429		{object}	issuersdk.ProtocolError			"rate_limit_exceeded"
//	@Failure		500		{object}	issuersdk.ProtocolError			"server_error"
//	@Router			/credential [post].
func (h *CredentialHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	// 1. Authorize the bearer before looking at the body
	token, ok := httpx.BearerToken(r)
	if !ok {
		h.fail(w, issuersdk.ErrInvalidToken)
		return
	}
	if err := h.CredentialService.Authorize(ctx, token); err != nil {
		h.failIssue(w, log, err)
		return
	}

	// 2. Decode the request
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		h.fail(w, issuersdk.ErrInvalidRequest.WithDescription("content-type must be application/json"))
		return
	}

	var body issuersdk.CredentialRequest
	if err := httpx.DecodeJSON(r, &body, maxCredentialRequestBytes); err != nil {
		h.fail(w, issuersdk.ErrInvalidRequest.WithDescription("malformed credential request"))
		return
	}

	// 3. Issue
	resp, err := h.CredentialService.Issue(ctx, service.IssueRequest{
		AccessToken:               token,
		Format:                    body.Format,
		CredentialConfigurationID: body.CredentialConfigurationID,
		DocType:                   body.DocType,
		Proof:                     body.Proof,
		Audience:                  h.baseURL(r),
	})
	if err != nil {
		h.failIssue(w, log, err)
		return
	}

	h.metrics.Credentials.WithLabelValues(metrics.OutcomeOK, "").Inc()
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *CredentialHandler) failIssue(w http.ResponseWriter, log *slog.Logger, err error) {
	var proofErr *service.ProofError
	switch {
	case errors.As(err, &proofErr):
		h.fail(w, issuersdk.ErrInvalidProof.WithNonce(proofErr.Nonce, int(proofErr.NonceExpiresIn.Seconds())))
	case errors.Is(err, service.ErrAlreadyUsed):
		h.fail(w, issuersdk.ErrInvalidToken.WithDescription("the access token has already been used"))
	case errors.Is(err, service.ErrExpiredToken):
		h.fail(w, issuersdk.ErrInvalidToken.WithDescription("the access token has expired"))
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, service.ErrInvalidToken):
		h.fail(w, issuersdk.ErrInvalidToken)
	case errors.Is(err, service.ErrUnsupportedCredentialFormat):
		h.fail(w, issuersdk.ErrUnsupportedCredentialFormat)
	case errors.Is(err, service.ErrUnsupportedCredentialType):
		h.fail(w, issuersdk.ErrUnsupportedCredentialType)
	case errors.Is(err, service.ErrInvalidRequest):
		h.fail(w, issuersdk.ErrInvalidRequest)
	case errors.Is(err, service.ErrSigningFailure):
		// already logged by the service
		h.fail(w, issuersdk.ErrServerError)
	default:
		log.Error("credential request failed", "err", err)
		h.fail(w, issuersdk.ErrServerError)
	}
}

func (h *CredentialHandler) fail(w http.ResponseWriter, perr *issuersdk.ProtocolError) {
	outcome := metrics.OutcomeRejected
	if perr.StatusCode >= http.StatusInternalServerError {
		outcome = metrics.OutcomeError
	}
	h.metrics.Credentials.WithLabelValues(outcome, perr.Code).Inc()
	perr.WriteError(w)
}
