package jwtx_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/vcissuer/pkg/cryptox"
	"github.com/aussiebroadwan/vcissuer/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const exampleIssuer = "https://issuer.example.com"

func newSigner(t *testing.T) *jwtx.ES256Signer {
	t.Helper()
	pemKey, err := cryptox.GenerateES256Key()
	require.NoError(t, err)
	signer, err := jwtx.NewSignerES256("", pemKey)
	require.NoError(t, err)
	require.NoError(t, signer.Validate())
	return signer
}

func signProof(t *testing.T, s *jwtx.ES256Signer, claims jwtx.ProofClaims, typ string) string {
	t.Helper()
	tok, err := s.Sign(claims, map[string]any{"typ": typ, "jwk": s.PublicJWK()})
	require.NoError(t, err)
	return tok
}

func TestVerifyEmbeddedJWK(t *testing.T) {
	s := newSigner(t)
	now := time.Now()
	tok := signProof(t, s, jwtx.NewProofClaims("", exampleIssuer, "n-1", now), jwtx.ProofTyp)

	var claims jwtx.ProofClaims
	key, err := jwtx.VerifyEmbeddedJWK(tok, jwtx.ProofTyp, &claims)
	require.NoError(t, err)
	require.Equal(t, "n-1", claims.Nonce)
	require.Equal(t, s.PublicJWK().X, key.X)
	require.NoError(t, claims.ValidateAudience(exampleIssuer))
	require.NoError(t, claims.ValidateIssuedAt(now, 5*time.Minute))
}

func TestVerifyEmbeddedJWKRejects(t *testing.T) {
	s := newSigner(t)
	claims := jwtx.NewProofClaims("", exampleIssuer, "n", time.Now())

	t.Run("wrong typ", func(t *testing.T) {
		tok := signProof(t, s, claims, "JWT")
		_, err := jwtx.VerifyEmbeddedJWK(tok, jwtx.ProofTyp, &jwtx.ProofClaims{})
		require.ErrorIs(t, err, jwtx.ErrTypMismatch)
	})

	t.Run("missing jwk", func(t *testing.T) {
		tok, err := s.Sign(claims, map[string]any{"typ": jwtx.ProofTyp})
		require.NoError(t, err)
		_, err = jwtx.VerifyEmbeddedJWK(tok, jwtx.ProofTyp, &jwtx.ProofClaims{})
		require.ErrorIs(t, err, jwtx.ErrMissingJWK)
	})

	t.Run("key swapped", func(t *testing.T) {
		other := newSigner(t)
		tok, err := s.Sign(claims, map[string]any{"typ": jwtx.ProofTyp, "jwk": other.PublicJWK()})
		require.NoError(t, err)
		_, err = jwtx.VerifyEmbeddedJWK(tok, jwtx.ProofTyp, &jwtx.ProofClaims{})
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := jwtx.VerifyEmbeddedJWK("not.a.jwt", jwtx.ProofTyp, &jwtx.ProofClaims{})
		require.Error(t, err)
	})

	t.Run("alg none", func(t *testing.T) {
		header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"openid4vci-proof+jwt"}`))
		payload := base64.RawURLEncoding.EncodeToString([]byte(`{"nonce":"n"}`))
		_, err := jwtx.VerifyEmbeddedJWK(strings.Join([]string{header, payload, ""}, "."), jwtx.ProofTyp, &jwtx.ProofClaims{})
		require.Error(t, err)
	})
}

func TestProofClaimsValidation(t *testing.T) {
	now := time.Now()
	c := jwtx.NewProofClaims("", exampleIssuer, "n", now.Add(-10*time.Minute))
	require.ErrorIs(t, c.ValidateIssuedAt(now, 5*time.Minute), jwtx.ErrExpired)

	c.IssuedAt = jwt.NewNumericDate(now.Add(10 * time.Minute))
	require.ErrorIs(t, c.ValidateIssuedAt(now, 5*time.Minute), jwtx.ErrNotYetValid)

	c.IssuedAt = nil
	require.ErrorIs(t, c.ValidateIssuedAt(now, 5*time.Minute), jwtx.ErrInvalidClaim)

	require.ErrorIs(t, c.ValidateAudience("https://elsewhere"), jwtx.ErrAudience)
}

func TestJWKRoundTrip(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	j, err := jwtx.FromPublicKey(&key.PublicKey)
	require.NoError(t, err)
	require.NotEmpty(t, j.Kid)

	pub, err := j.PublicKey()
	require.NoError(t, err)
	require.True(t, key.PublicKey.Equal(pub))

	tp, err := j.Thumbprint()
	require.NoError(t, err)
	require.Equal(t, j.Kid, tp)
}

func TestJWKFromHeaderRejectsPrivate(t *testing.T) {
	_, err := jwtx.JWKFromHeader(map[string]any{"kty": "EC", "crv": "P-256", "x": "a", "y": "b", "d": "c"})
	require.Error(t, err)

	_, err = jwtx.JWK{Kty: "RSA"}.PublicKey()
	require.Error(t, err)
}
