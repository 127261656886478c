package service

import (
	"errors"
	"time"
)

var (
	ErrInvalidCode             = errors.New("invalid_code")
	ErrExpiredCode             = errors.New("expired_code")
	ErrTransactionCodeMismatch = errors.New("tx_code_mismatch")
	ErrUnsupportedGrantType    = errors.New("unsupported_grant_type")

	ErrInvalidToken = errors.New("invalid_token")
	ErrExpiredToken = errors.New("expired_token")
	ErrAlreadyUsed  = errors.New("already_used")

	ErrInvalidProof                = errors.New("invalid_proof")
	ErrUnsupportedCredentialType   = errors.New("unsupported_credential_type")
	ErrUnsupportedCredentialFormat = errors.New("unsupported_credential_format")
	ErrInvalidRequest              = errors.New("invalid_request")
	ErrSigningFailure              = errors.New("signing_failure")
	ErrUnauthorized                = errors.New("unauthorized")
)

// ProofError is returned when the holder proof fails. It matches
// ErrInvalidProof and the underlying proof error, and carries the fresh
// c_nonce the wallet must use on its next attempt.
type ProofError struct {
	Err            error
	Nonce          string
	NonceExpiresIn time.Duration
}

func (e *ProofError) Error() string {
	return "invalid_proof: " + e.Err.Error()
}

func (e *ProofError) Unwrap() []error {
	return []error{ErrInvalidProof, e.Err}
}
