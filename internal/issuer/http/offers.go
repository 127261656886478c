package http

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/vcissuer/internal/issuer/domain"
	"github.com/aussiebroadwan/vcissuer/internal/issuer/metrics"
	"github.com/aussiebroadwan/vcissuer/internal/issuer/service"
	"github.com/aussiebroadwan/vcissuer/pkg/httpx"
	"github.com/aussiebroadwan/vcissuer/pkg/issuersdk"
	"github.com/aussiebroadwan/vcissuer/pkg/slogx"
)

const maxOfferRequestBytes = 4 << 10

// OffersHandler mints credential offers for the issuer's operators.
type OffersHandler struct {
	OfferService *service.OfferService
	baseURL      func(*http.Request) string
	metrics      *metrics.Metrics
}

// HandleCreate godoc
//
//	@Summary		Create Credential Offer
//	@Description	Creates a pre-authorized code and returns the credential offer, its openid-credential-offer URI and a PNG QR code as a data URI.
//	@Description	The plain transaction code is returned once and must reach the holder out of band.
//	@Tags			Offers
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		issuersdk.OfferRequest		false	"credential_configuration_id, defaults to the loyalty card"
//	@Success		201		{object}	issuersdk.OfferResponse		"credential_offer, credential_offer_uri, qr_code, tx_code, expires_at"
//	@Failure		400		{object}	issuersdk.ProtocolError		"invalid_request, unsupported_credential_type"
//	@Failure		401		{object}	issuersdk.ProtocolError		"invalid_token"
//	@Failure		429		{object}	issuersdk.ProtocolError		"rate_limit_exceeded"
//	@Router			/offers [post].
func (h *OffersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var body issuersdk.OfferRequest
	if err := httpx.DecodeJSON(r, &body, maxOfferRequestBytes); err != nil && !errors.Is(err, io.EOF) {
		h.fail(w, "", issuersdk.ErrInvalidRequest.WithDescription("malformed offer request"))
		return
	}

	offer, configID, ok := h.makeOffer(w, r, body.CredentialConfigurationID)
	if !ok {
		return
	}

	resp := issuersdk.OfferResponse{
		CredentialOffer:    offer.Payload,
		CredentialOfferURI: offer.URI,
		TxCode:             offer.TxCode,
		ExpiresAt:          offer.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if len(offer.QRCode) > 0 {
		resp.QRCode = "data:image/png;base64," + base64.StdEncoding.EncodeToString(offer.QRCode)
	}

	h.metrics.Offers.WithLabelValues(configID, metrics.OutcomeOK).Inc()
	httpx.WriteJSON(w, http.StatusCreated, resp)
}

// HandleQRCode godoc
//
//	@Summary		Create Credential Offer as QR Code
//	@Description	Creates a pre-authorized code and returns its credential offer URI rendered as a PNG QR code.
//	@Description	The plain transaction code, when one was set, is returned in the X-Transaction-Code header.
//	@Tags			Offers
//	@Produce		png
//	@Security		BearerAuth
//	@Param			credential_configuration_id	query		string					false	"Credential configuration id, defaults to the loyalty card"
//	@Success		200							{file}		binary					"PNG QR code"
//	@Header			200							{string}	X-Transaction-Code		"plain transaction code"
//	@Failure		400							{object}	issuersdk.ProtocolError	"unsupported_credential_type"
//	@Failure		401							{object}	issuersdk.ProtocolError	"invalid_token"
//	@Failure		429							{object}	issuersdk.ProtocolError	"rate_limit_exceeded"
//	@Router			/offers/qr.png [get].
func (h *OffersHandler) HandleQRCode(w http.ResponseWriter, r *http.Request) {
	offer, configID, ok := h.makeOffer(w, r, r.URL.Query().Get("credential_configuration_id"))
	if !ok {
		return
	}
	if len(offer.QRCode) == 0 {
		slogx.FromContext(r.Context()).Error("offer qr requested but no encoder is configured")
		h.fail(w, configID, issuersdk.ErrServerError)
		return
	}

	h.metrics.Offers.WithLabelValues(configID, metrics.OutcomeOK).Inc()

	httpx.NoCache(w)
	w.Header().Set("Content-Type", "image/png")
	if offer.TxCode != "" {
		w.Header().Set(issuersdk.TxCodeHeader, offer.TxCode)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(offer.QRCode)
}

func (h *OffersHandler) makeOffer(w http.ResponseWriter, r *http.Request, configID string) (*service.Offer, string, bool) {
	configID = strings.TrimSpace(configID)
	if configID == "" {
		configID = h.defaultConfigID()
	}

	offer, err := h.OfferService.MakeOffer(r.Context(), h.baseURL(r), configID)
	switch {
	case err == nil:
		return offer, configID, true
	case errors.Is(err, service.ErrUnsupportedCredentialType):
		// unknown ids stay out of the metric labels
		h.fail(w, "", issuersdk.ErrUnsupportedCredentialType)
	default:
		slogx.FromContext(r.Context()).Error("create offer failed", "err", err, "credential_configuration_id", configID)
		h.fail(w, configID, issuersdk.ErrServerError)
	}
	return nil, configID, false
}

func (h *OffersHandler) defaultConfigID() string {
	if len(h.OfferService.Catalog) > 0 {
		return h.OfferService.Catalog[0].ID
	}
	return domain.LoyaltyConfigurationID
}

func (h *OffersHandler) fail(w http.ResponseWriter, configID string, perr *issuersdk.ProtocolError) {
	outcome := metrics.OutcomeRejected
	if perr.StatusCode >= http.StatusInternalServerError {
		outcome = metrics.OutcomeError
	}
	if configID == "" {
		configID = "unknown"
	}
	h.metrics.Offers.WithLabelValues(configID, outcome).Inc()
	perr.WriteError(w)
}
