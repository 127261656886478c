package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/vcissuer/internal/issuer/domain"
	"github.com/aussiebroadwan/vcissuer/pkg/issuersdk"
	"github.com/aussiebroadwan/vcissuer/pkg/mdoc"
	"github.com/aussiebroadwan/vcissuer/pkg/proof"
)

func (f *fixture) offerAndToken(t *testing.T) (*Offer, *issuersdk.TokenResponse) {
	t.Helper()
	ctx := context.Background()

	offer, err := f.offers.MakeOffer(ctx, testIssuer, domain.LoyaltyConfigurationID)
	require.NoError(t, err)

	tok, err := f.tokens.Exchange(ctx, issuersdk.GrantTypePreAuthorizedCode,
		offer.Payload.Grants.PreAuthorizedCode.PreAuthorizedCode, offer.TxCode)
	require.NoError(t, err)
	return offer, tok
}

func (f *fixture) jwtProof(t *testing.T, nonce string) *proof.Proof {
	t.Helper()
	signed, err := proof.SignJWT(f.holder, testIssuer, nonce, f.clock.Now())
	require.NoError(t, err)
	return &proof.Proof{ProofType: proof.TypeJWT, JWT: signed}
}

func (f *fixture) issueRequest(t *testing.T, tok *issuersdk.TokenResponse) IssueRequest {
	t.Helper()
	return IssueRequest{
		AccessToken: tok.AccessToken,
		Format:      domain.FormatMSOMdoc,
		Proof:       f.jwtProof(t, tok.CNonce),
		Audience:    testIssuer,
	}
}

func TestMakeOffer(t *testing.T) {
	ctx := context.Background()

	t.Run("with tx code", func(t *testing.T) {
		f := newFixture(t, 6)
		f.offers.TxCodeDescription = "Check your email"

		offer, err := f.offers.MakeOffer(ctx, testIssuer, domain.LoyaltyConfigurationID)
		require.NoError(t, err)

		require.Equal(t, testIssuer, offer.Payload.CredentialIssuer)
		require.Equal(t, []string{domain.LoyaltyConfigurationID}, offer.Payload.CredentialConfigurationIDs)
		grant := offer.Payload.Grants.PreAuthorizedCode
		require.NotNil(t, grant)
		require.NotEmpty(t, grant.PreAuthorizedCode)
		require.Equal(t, &issuersdk.TxCode{Length: 6, InputMode: "numeric", Description: "Check your email"}, grant.TxCode)
		require.Len(t, offer.TxCode, 6)
		require.True(t, bytes.HasPrefix(offer.QRCode, []byte("\x89PNG")))

		parsed, err := issuersdk.ParseOfferURI(offer.URI)
		require.NoError(t, err)
		require.Equal(t, offer.Payload, *parsed)

		raw, err := json.Marshal(offer.Payload)
		require.NoError(t, err)
		require.NotContains(t, string(raw), offer.TxCode, "the offer must never carry the tx code itself")
	})

	t.Run("without tx code", func(t *testing.T) {
		f := newFixture(t, 0)
		offer, err := f.offers.MakeOffer(ctx, testIssuer, domain.LoyaltyConfigurationID)
		require.NoError(t, err)
		require.Nil(t, offer.Payload.Grants.PreAuthorizedCode.TxCode)
		require.Empty(t, offer.TxCode)
	})

	t.Run("unknown configuration", func(t *testing.T) {
		f := newFixture(t, 0)
		_, err := f.offers.MakeOffer(ctx, testIssuer, "eu.europa.ec.eudi.pid_mdoc")
		require.ErrorIs(t, err, ErrUnsupportedCredentialType)
	})
}

func TestExchange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 6)

	offer, err := f.offers.MakeOffer(ctx, testIssuer, domain.LoyaltyConfigurationID)
	require.NoError(t, err)
	code := offer.Payload.Grants.PreAuthorizedCode.PreAuthorizedCode

	for _, grant := range []string{"authorization_code", "client_credentials", "", "pre-authorized_code"} {
		t.Run("rejects grant "+grant, func(t *testing.T) {
			_, err := f.tokens.Exchange(ctx, grant, code, offer.TxCode)
			require.ErrorIs(t, err, ErrUnsupportedGrantType)
		})
	}

	tok, err := f.tokens.Exchange(ctx, issuersdk.GrantTypePreAuthorizedCode, code, offer.TxCode)
	require.NoError(t, err)
	require.Equal(t, "bearer", tok.TokenType)
	require.Equal(t, 300, tok.ExpiresIn)
	require.Equal(t, 300, tok.CNonceExpiresIn)
	require.NotEmpty(t, tok.CNonce)
}

func TestIssueCredential(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 6)
	_, tok := f.offerAndToken(t)

	resp, err := f.credential.Issue(ctx, f.issueRequest(t, tok))
	require.NoError(t, err)
	require.Equal(t, domain.FormatMSOMdoc, resp.Format)
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "c_nonce", "a spent token has no use for a fresh nonce")

	verified, err := mdoc.VerifyEncoded(resp.Credential)
	require.NoError(t, err)
	require.Equal(t, domain.LoyaltyDocType, verified.DocType)
	require.True(t, verified.DeviceKey.Equal(&f.holder.PublicKey))

	ns := domain.LoyaltyDocType
	require.Equal(t, "Ola", verified.Claim(ns, "given_name"))
	require.Equal(t, "Normann", verified.Claim(ns, "family_name"))
	require.Equal(t, "2026-03-01", verified.Claim(ns, "issuance_date"))
	require.Equal(t, "2027-03-01", verified.Claim(ns, "expiry_date"))

	t.Run("replay", func(t *testing.T) {
		_, err := f.credential.Issue(ctx, f.issueRequest(t, tok))
		require.ErrorIs(t, err, ErrAlreadyUsed)
	})
}

func TestIssueCWTProof(t *testing.T) {
	f := newFixture(t, 0)
	_, tok := f.offerAndToken(t)

	signed, err := proof.SignCWT(f.holder, testIssuer, tok.CNonce, f.clock.Now())
	require.NoError(t, err)

	req := f.issueRequest(t, tok)
	req.Proof = &proof.Proof{ProofType: proof.TypeCWT, CWT: signed}
	_, err = f.credential.Issue(context.Background(), req)
	require.NoError(t, err)
}

func TestIssueUnauthorized(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	t.Run("missing token", func(t *testing.T) {
		_, err := f.credential.Issue(ctx, IssueRequest{Audience: testIssuer})
		require.ErrorIs(t, err, ErrUnauthorized)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := f.credential.Issue(ctx, IssueRequest{AccessToken: "bogus", Audience: testIssuer})
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("expired token", func(t *testing.T) {
		_, tok := f.offerAndToken(t)
		req := f.issueRequest(t, tok)
		f.clock.Advance(DefaultTokenTTL + 1)

		_, err := f.credential.Issue(ctx, req)
		require.ErrorIs(t, err, ErrUnauthorized)
		require.ErrorIs(t, err, ErrExpiredToken)
	})
}

func TestAuthorize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	_, tok := f.offerAndToken(t)

	require.NoError(t, f.credential.Authorize(ctx, tok.AccessToken))
	require.NoError(t, f.credential.Authorize(ctx, tok.AccessToken), "authorizing must not spend the token")

	err := f.credential.Authorize(ctx, "")
	require.ErrorIs(t, err, ErrUnauthorized)
	require.ErrorIs(t, err, ErrInvalidToken)

	require.ErrorIs(t, f.credential.Authorize(ctx, "bogus"), ErrUnauthorized)

	_, err = f.credential.Issue(ctx, f.issueRequest(t, tok))
	require.NoError(t, err)
	require.ErrorIs(t, f.credential.Authorize(ctx, tok.AccessToken), ErrAlreadyUsed)
}

func TestIssueInvalidProof(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	offer, tok := f.offerAndToken(t)

	tests := []struct {
		name  string
		proof *proof.Proof
	}{
		{"missing", nil},
		{"stale nonce", f.jwtProof(t, "not-the-nonce")},
		{"unsupported type", &proof.Proof{ProofType: "ldp_vp"}},
		{"garbage jwt", &proof.Proof{ProofType: proof.TypeJWT, JWT: "a.b.c"}},
	}

	nonce := tok.CNonce
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.issueRequest(t, tok)
			req.Proof = tt.proof

			_, err := f.credential.Issue(ctx, req)
			require.ErrorIs(t, err, ErrInvalidProof)

			var perr *ProofError
			require.True(t, errors.As(err, &perr))
			require.NotEmpty(t, perr.Nonce)
			require.NotEqual(t, nonce, perr.Nonce)
			require.Equal(t, DefaultNonceTTL, perr.NonceExpiresIn)
			nonce = perr.Nonce
		})
	}

	require.Equal(t, domain.CodeStateRedeemed,
		codeState(t, f.codes, offer.Payload.Grants.PreAuthorizedCode.PreAuthorizedCode).State,
		"failed proofs must not burn the grant")

	req := f.issueRequest(t, tok)
	req.Proof = f.jwtProof(t, nonce)
	_, err := f.credential.Issue(ctx, req)
	require.NoError(t, err)
}

func TestIssueRequestMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	_, tok := f.offerAndToken(t)

	tests := []struct {
		name   string
		mutate func(*IssueRequest)
		want   error
	}{
		{"format", func(r *IssueRequest) { r.Format = "jwt_vc_json" }, ErrUnsupportedCredentialFormat},
		{"configuration", func(r *IssueRequest) { r.CredentialConfigurationID = "eu.europa.ec.eudi.pid_mdoc" }, ErrUnsupportedCredentialType},
		{"doctype", func(r *IssueRequest) { r.DocType = "org.iso.18013.5.1.mDL" }, ErrUnsupportedCredentialType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.issueRequest(t, tok)
			tt.mutate(&req)
			_, err := f.credential.Issue(ctx, req)
			require.ErrorIs(t, err, tt.want)
		})
	}

	_, err := f.credential.Issue(ctx, f.issueRequest(t, tok))
	require.NoError(t, err)
}

type failingSigner struct{}

func (failingSigner) Sign(context.Context, SignRequest) (string, error) {
	return "", errors.New("hsm unavailable")
}

func TestIssueSigningFailureConsumesGrant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.credential.Signer = failingSigner{}
	offer, tok := f.offerAndToken(t)

	_, err := f.credential.Issue(ctx, f.issueRequest(t, tok))
	require.ErrorIs(t, err, ErrSigningFailure)
	require.Equal(t, domain.CodeStateConsumed,
		codeState(t, f.codes, offer.Payload.Grants.PreAuthorizedCode.PreAuthorizedCode).State)

	_, err = f.credential.Issue(ctx, f.issueRequest(t, tok))
	require.ErrorIs(t, err, ErrAlreadyUsed)
}

func TestMdocSignerNotReady(t *testing.T) {
	var s *MdocSigner
	require.Error(t, s.Ready())
	require.Error(t, (&MdocSigner{}).Ready())
}

func TestMetadata(t *testing.T) {
	f := newFixture(t, 0)
	svc := &MetadataService{Catalog: domain.DefaultCatalog(), Display: DefaultIssuerDisplay()}

	first, err := json.Marshal(svc.Metadata(testIssuer + "/"))
	require.NoError(t, err)
	second, err := json.Marshal(svc.Metadata(testIssuer))
	require.NoError(t, err)
	require.Equal(t, first, second)

	md := svc.Metadata(testIssuer)
	require.Equal(t, testIssuer+"/credential", md.CredentialEndpoint)
	cfg := md.CredentialConfigurationsSupported[domain.LoyaltyConfigurationID]
	require.Equal(t, "mso_mdoc", cfg.Format)
	require.Equal(t, domain.LoyaltyDocType, cfg.DocType)
	require.Equal(t, []int{-7}, cfg.ProofTypesSupported["cwt"].AlgValuesSupported)
	require.Len(t, cfg.Claims[domain.LoyaltyDocType], 6)
	require.True(t, cfg.Claims[domain.LoyaltyDocType]["given_name"].Mandatory)

	as := svc.AuthorizationServer(testIssuer)
	require.True(t, as.PreAuthorizedGrantAnonymousAccess)
	require.Equal(t, testIssuer+"/token", as.TokenEndpoint)

	res, err := f.codes.SweepExpired(context.Background())
	require.NoError(t, err)
	require.Zero(t, res, "metadata must not touch the store")
}
