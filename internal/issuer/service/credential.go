package service

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/vcissuer/internal/issuer/domain"
	"github.com/aussiebroadwan/vcissuer/internal/issuer/store"
	"github.com/aussiebroadwan/vcissuer/pkg/issuersdk"
	"github.com/aussiebroadwan/vcissuer/pkg/jwtx"
	"github.com/aussiebroadwan/vcissuer/pkg/proof"
	"github.com/aussiebroadwan/vcissuer/pkg/slogx"
)

// IssueRequest is a credential request after HTTP decoding.
type IssueRequest struct {
	AccessToken               string
	Format                    string
	CredentialConfigurationID string
	DocType                   string
	Proof                     *proof.Proof

	// Audience is the credential issuer identifier the proof must name.
	Audience string
}

type CredentialService struct {
	Codes   *CodeService
	Catalog domain.Catalog
	Claims  ClaimsSource
	Signer  CredentialSigner

	// Validity is how long issued credentials are valid.
	Validity time.Duration
	// ProofSkew bounds the proof iat drift; zero means proof.DefaultSkew.
	ProofSkew time.Duration
}

func (s *CredentialService) validity() time.Duration {
	return orDefault(s.Validity, DefaultCredentialValidity)
}

// Authorize checks the bearer token of a credential request without
// touching its state. Errors are the same as Issue's token failures.
func (s *CredentialService) Authorize(ctx context.Context, accessToken string) error {
	if strings.TrimSpace(accessToken) == "" {
		return fmt.Errorf("%w: %w", ErrUnauthorized, ErrInvalidToken)
	}
	if _, err := s.Codes.LookupToken(ctx, accessToken); err != nil {
		return unauthorized(err)
	}
	return nil
}

// Issue runs the credential endpoint: authorize the bearer token, check the
// request against the offered configuration, verify the holder proof,
// consume the grant and sign. Nothing before Consume burns the grant;
// nothing after it gives the grant back.
//
// Token failures match ErrUnauthorized together with the specific kind.
// A replayed token matches ErrAlreadyUsed.
func (s *CredentialService) Issue(ctx context.Context, req IssueRequest) (*issuersdk.CredentialResponse, error) {
	l := slogx.FromContext(ctx)
	now := s.Codes.now()

	if strings.TrimSpace(req.AccessToken) == "" {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, ErrInvalidToken)
	}

	tok, err := s.Codes.LookupToken(ctx, req.AccessToken)
	if err != nil {
		return nil, unauthorized(err)
	}

	code, err := s.Codes.Store.Codes().GetCodeByHash(ctx, tok.CodeHash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrUnauthorized, ErrInvalidToken)
		}
		return nil, err
	}

	cfg, err := s.configuration(code, req)
	if err != nil {
		return nil, err
	}

	holderKey, err := s.verifyProof(tok, cfg, req, now)
	if err != nil {
		l.Warn("credential proof rejected", slog.String("code_id", code.ID), slog.Any("error", err))
		nonce, expiresIn, rerr := s.Codes.RotateNonce(ctx, req.AccessToken)
		if rerr != nil {
			return nil, unauthorized(rerr)
		}
		return nil, &ProofError{Err: err, Nonce: nonce, NonceExpiresIn: expiresIn}
	}

	if _, err := s.Codes.Consume(ctx, req.AccessToken); err != nil {
		return nil, unauthorized(err)
	}

	// The grant is spent from here on. Failures below are final.
	claims, err := s.Claims.Claims(ctx, cfg)
	if err != nil {
		l.Error("credential claims unavailable", slog.String("code_id", code.ID), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", ErrSigningFailure, err)
	}

	credential, err := s.Signer.Sign(ctx, SignRequest{
		Configuration: cfg,
		Claims:        claims,
		HolderKey:     holderKey,
		ValidFrom:     now,
		ValidUntil:    now.Add(s.validity()),
	})
	if err != nil {
		l.Error("credential signing failed", slog.String("code_id", code.ID), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", ErrSigningFailure, err)
	}

	l.Info("credential issued",
		slog.String("code_id", code.ID),
		slog.String("credential_configuration_id", cfg.ID),
		slog.String("holder_key", holderThumbprint(holderKey)),
	)
	return &issuersdk.CredentialResponse{
		Credential: credential,
		Format:     cfg.Format,
	}, nil
}

// configuration resolves what the grant was offered for and checks the
// request does not ask for anything else.
func (s *CredentialService) configuration(code domain.PreAuthCode, req IssueRequest) (domain.CredentialConfiguration, error) {
	cfg, ok := s.Catalog.Get(code.CredentialType)
	if !ok {
		return domain.CredentialConfiguration{}, ErrUnsupportedCredentialType
	}
	if req.Format != "" && req.Format != cfg.Format {
		return domain.CredentialConfiguration{}, ErrUnsupportedCredentialFormat
	}
	if req.CredentialConfigurationID != "" && req.CredentialConfigurationID != cfg.ID {
		return domain.CredentialConfiguration{}, ErrUnsupportedCredentialType
	}
	if req.DocType != "" && req.DocType != cfg.DocType {
		return domain.CredentialConfiguration{}, ErrUnsupportedCredentialType
	}
	return cfg, nil
}

func (s *CredentialService) verifyProof(tok *domain.AccessToken, cfg domain.CredentialConfiguration, req IssueRequest, now time.Time) (*ecdsa.PublicKey, error) {
	if req.Proof == nil {
		return nil, proof.ErrMissing
	}
	if _, ok := cfg.ProofTypes[req.Proof.ProofType]; !ok && req.Proof.ProofType != "" {
		return nil, fmt.Errorf("%w: %q", proof.ErrUnsupportedType, req.Proof.ProofType)
	}
	if now.After(tok.CNonceExpiresAt) {
		return nil, fmt.Errorf("%w: c_nonce expired", proof.ErrNonce)
	}
	return proof.Verify(*req.Proof, proof.Expectations{
		Audience: req.Audience,
		Nonce:    tok.CNonce,
		Now:      now,
		Skew:     s.ProofSkew,
	})
}

// unauthorized tags token failures so callers can treat them as one class.
// ErrAlreadyUsed and backend errors pass through.
func unauthorized(err error) error {
	if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrExpiredToken) {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return err
}

func holderThumbprint(pub *ecdsa.PublicKey) string {
	jwk, err := jwtx.FromPublicKey(pub)
	if err != nil {
		return ""
	}
	tp, err := jwk.Thumbprint()
	if err != nil {
		return ""
	}
	return tp
}
