package issuersdk_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/vcissuer/pkg/httpx"
	"github.com/aussiebroadwan/vcissuer/pkg/issuersdk"
	"github.com/aussiebroadwan/vcissuer/pkg/proof"
)

func sampleOffer(issuer string, withTx bool) issuersdk.CredentialOffer {
	offer := issuersdk.CredentialOffer{
		CredentialIssuer:           issuer,
		CredentialConfigurationIDs: []string{"eu.europa.ec.eudi.loyalty_mdoc"},
		Grants: issuersdk.Grants{
			PreAuthorizedCode: &issuersdk.PreAuthorizedCodeGrant{PreAuthorizedCode: "code-123"},
		},
	}
	if withTx {
		offer.Grants.PreAuthorizedCode.TxCode = &issuersdk.TxCode{Length: 6, InputMode: "numeric"}
	}
	return offer
}

func TestOfferURIRoundTrip(t *testing.T) {
	offer := sampleOffer("https://issuer.example.com", true)

	uri, err := issuersdk.BuildOfferURI(offer)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "openid-credential-offer://?credential_offer="))
	assert.NotContains(t, uri, "{", "offer JSON must be url-encoded")

	parsed, err := issuersdk.ParseOfferURI(uri)
	require.NoError(t, err)
	assert.Equal(t, offer, *parsed)
}

func TestOfferJSONShape(t *testing.T) {
	raw, err := json.Marshal(sampleOffer("https://issuer.example.com", true))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"credential_issuer": "https://issuer.example.com",
		"credential_configuration_ids": ["eu.europa.ec.eudi.loyalty_mdoc"],
		"grants": {
			"urn:ietf:params:oauth:grant-type:pre-authorized_code": {
				"pre-authorized_code": "code-123",
				"tx_code": {"length": 6, "input_mode": "numeric"}
			}
		}
	}`, string(raw))
}

func TestParseOfferURIRejects(t *testing.T) {
	tests := []struct {
		name string
		uri  string
	}{
		{"wrong scheme", "ftp://x?credential_offer=%7B%7D"},
		{"missing parameter", "openid-credential-offer://?foo=bar"},
		{"not json", "openid-credential-offer://?credential_offer=nope"},
		{"no grant", "openid-credential-offer://?credential_offer=" +
			`%7B%22credential_issuer%22%3A%22https%3A%2F%2Fi%22%2C%22credential_configuration_ids%22%3A%5B%22a%22%5D%2C%22grants%22%3A%7B%7D%7D`},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuersdk.ParseOfferURI(tt.uri)
			assert.ErrorIs(t, err, issuersdk.ErrInvalidOfferURI)
		})
	}
}

func TestProtocolErrorWriteError(t *testing.T) {
	t.Run("unauthorized carries a bearer challenge", func(t *testing.T) {
		rec := httptest.NewRecorder()
		issuersdk.ErrInvalidToken.WriteError(rec)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Header().Get("WWW-Authenticate"), `error="invalid_token"`)
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "invalid_token", body["error"])
		assert.NotContains(t, body, "c_nonce")
	})

	t.Run("invalid proof carries the nonce", func(t *testing.T) {
		rec := httptest.NewRecorder()
		issuersdk.ErrInvalidProof.WithNonce("fresh", 300).WriteError(rec)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, rec.Header().Get("WWW-Authenticate"))
		assert.JSONEq(t, `{
			"error": "invalid_proof",
			"error_description": "the key proof is missing or invalid",
			"c_nonce": "fresh",
			"c_nonce_expires_in": 300
		}`, rec.Body.String())
		assert.Empty(t, issuersdk.ErrInvalidProof.CNonce, "WithNonce must not mutate the shared value")
	})
}

func TestClientDecodesProtocolErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, issuersdk.GrantTypePreAuthorizedCode, r.PostForm.Get("grant_type"))
		assert.Equal(t, "code-123", r.PostForm.Get("pre-authorized_code"))
		assert.Equal(t, "000111", r.PostForm.Get("tx_code"))
		issuersdk.ErrInvalidGrant.WriteError(w)
	}))
	t.Cleanup(srv.Close)

	_, err := issuersdk.NewClient(srv.URL).ExchangePreAuthorizedCode(context.Background(), "code-123", "000111")
	require.Error(t, err)
	assert.ErrorIs(t, err, issuersdk.ErrInvalidGrant)

	var perr *issuersdk.ProtocolError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusBadRequest, perr.StatusCode)
}

func TestClientNonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	_, err := issuersdk.NewClient(srv.URL).GetLiveness(context.Background())
	var perr *issuersdk.ProtocolError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusBadGateway, perr.StatusCode)
	assert.Equal(t, issuersdk.ErrorCodeServerError, perr.Code)
}

// stubIssuer hands out one token and rejects the first proof with a fresh
// nonce, the way a real issuer does when the wallet used a stale one.
func stubIssuer(t *testing.T) *httptest.Server {
	t.Helper()
	var (
		srv   *httptest.Server
		nonce = "first"
		calls int
	)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, issuersdk.TokenResponse{
			AccessToken: "at", TokenType: "bearer", ExpiresIn: 300, CNonce: nonce, CNonceExpiresIn: 300,
		})
	})
	mux.HandleFunc("POST /credential", func(w http.ResponseWriter, r *http.Request) {
		calls++
		tok, _ := httpx.BearerToken(r)
		assert.Equal(t, "at", tok)

		var req issuersdk.CredentialRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) || !assert.NotNil(t, req.Proof) {
			issuersdk.ErrInvalidRequest.WriteError(w)
			return
		}

		_, err := proof.Verify(*req.Proof, proof.Expectations{Audience: srv.URL, Nonce: nonce, Now: time.Now()})
		if err != nil || calls == 1 {
			nonce = "second"
			issuersdk.ErrInvalidProof.WithNonce(nonce, 300).WriteError(w)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, issuersdk.CredentialResponse{Credential: "cred", Format: req.Format})
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestWalletAcceptRetriesWithFreshNonce(t *testing.T) {
	for _, proofType := range []string{proof.TypeJWT, proof.TypeCWT} {
		t.Run(proofType, func(t *testing.T) {
			srv := stubIssuer(t)
			uri, err := issuersdk.BuildOfferURI(sampleOffer(srv.URL, false))
			require.NoError(t, err)

			key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
			require.NoError(t, err)
			w := issuersdk.NewWallet(key)
			w.ProofType = proofType

			issued, err := w.Accept(context.Background(), uri, "")
			require.NoError(t, err)
			assert.Equal(t, "cred", issued.Credential.Credential)
			assert.Equal(t, issuersdk.FormatMSOMdoc, issued.Credential.Format)
		})
	}
}

func TestWalletRequiresTxCode(t *testing.T) {
	uri, err := issuersdk.BuildOfferURI(sampleOffer("https://issuer.example.com", true))
	require.NoError(t, err)

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	_, err = issuersdk.NewWallet(key).Accept(context.Background(), uri, "")
	assert.ErrorIs(t, err, issuersdk.ErrTxCodeRequired)
}
