package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/vcissuer/internal/issuer/domain"
	"github.com/aussiebroadwan/vcissuer/internal/issuer/store"
	"github.com/aussiebroadwan/vcissuer/pkg/cryptox"
	"github.com/aussiebroadwan/vcissuer/pkg/idx"
	"github.com/aussiebroadwan/vcissuer/pkg/slogx"
)

const (
	DefaultCodeTTL   = 5 * time.Minute
	DefaultTokenTTL  = 5 * time.Minute
	DefaultNonceTTL  = 5 * time.Minute
	DefaultRetention = 24 * time.Hour
)

// CodeService owns the pre-authorized code lifecycle:
// ISSUED -> REDEEMED -> CONSUMED, with EXPIRED reachable from the first two.
// Every transition is a single atomic store call; the service only decides
// which error the caller sees.
type CodeService struct {
	Store    store.Store
	CodeTTL  time.Duration
	TokenTTL time.Duration
	NonceTTL time.Duration

	// TxCodeLength is the number of digits of the transaction code attached
	// to new offers; 0 disables transaction codes.
	TxCodeLength int

	// Retention is how long terminal codes are kept after their expiry
	// before the sweep deletes them.
	Retention time.Duration

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// IssuedCode is the result of CreateCode. Code and TxCode are the only
// copies of the plain values.
type IssuedCode struct {
	Code      string
	TxCode    string
	Record    domain.PreAuthCode
	ExpiresAt time.Time
}

// IssuedToken is the result of a successful redeem.
type IssuedToken struct {
	AccessToken     string
	ExpiresIn       time.Duration
	CNonce          string
	CNonceExpiresIn time.Duration
	Code            domain.PreAuthCode
}

// SweepResult counts what one SweepExpired pass changed.
type SweepResult struct {
	Expired       int64
	TokensDeleted int64
	CodesDeleted  int64
}

func (s *CodeService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func (s *CodeService) codeTTL() time.Duration   { return orDefault(s.CodeTTL, DefaultCodeTTL) }
func (s *CodeService) tokenTTL() time.Duration  { return orDefault(s.TokenTTL, DefaultTokenTTL) }
func (s *CodeService) nonceTTL() time.Duration  { return orDefault(s.NonceTTL, DefaultNonceTTL) }
func (s *CodeService) retention() time.Duration { return orDefault(s.Retention, DefaultRetention) }

// CreateCode mints a new single-use code for credentialType and stores it as
// ISSUED.
func (s *CodeService) CreateCode(ctx context.Context, credentialType string) (*IssuedCode, error) {
	now := s.now()
	l := slogx.FromContext(ctx)

	code, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return nil, err
	}

	var txCode, txHash string
	if s.TxCodeLength > 0 {
		if txCode, err = cryptox.GenerateTxCode(s.TxCodeLength); err != nil {
			return nil, err
		}
		if txHash, err = cryptox.HashTxCode(txCode); err != nil {
			return nil, err
		}
	}

	rec := domain.PreAuthCode{
		ID:             idx.NewAt(now).String(),
		CodeHash:       cryptox.FingerprintToken(code),
		TxCodeHash:     txHash,
		CredentialType: credentialType,
		State:          domain.CodeStateIssued,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.codeTTL()),
	}
	if err := s.Store.Codes().CreateCode(ctx, rec); err != nil {
		return nil, fmt.Errorf("store code: %w", err)
	}

	l.Info("pre-authorized code issued",
		slog.String("code_id", rec.ID),
		slog.String("credential_type", credentialType),
		slog.Bool("tx_code", rec.HasTxCode()),
		slog.Time("expires_at", rec.ExpiresAt),
	)
	return &IssuedCode{Code: code, TxCode: txCode, Record: rec, ExpiresAt: rec.ExpiresAt}, nil
}

// Redeem exchanges an ISSUED code (and its transaction code, if one was set)
// for a bound access token. Under concurrency exactly one caller wins; the
// others get ErrInvalidCode.
func (s *CodeService) Redeem(ctx context.Context, code, txCode string) (*IssuedToken, error) {
	now := s.now()
	l := slogx.FromContext(ctx)

	code = strings.TrimSpace(code)
	txCode = strings.TrimSpace(txCode)
	if code == "" {
		return nil, ErrInvalidCode
	}

	codeHash := cryptox.FingerprintToken(code)
	rec, err := s.Store.Codes().GetCodeByHash(ctx, codeHash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}

	if rec.State != domain.CodeStateIssued {
		if rec.State == domain.CodeStateRedeemed || rec.State == domain.CodeStateConsumed {
			l.Warn("pre-authorized code replayed", slog.String("code_id", rec.ID), slog.String("state", string(rec.State)))
		}
		return nil, ErrInvalidCode
	}
	if rec.Expired(now) {
		return nil, ErrExpiredCode
	}

	// Argon2id runs outside any store lock; RedeemCode re-checks the state.
	if err := s.checkTxCode(rec, txCode); err != nil {
		if errors.Is(err, ErrTransactionCodeMismatch) {
			l.Warn("transaction code mismatch", slog.String("code_id", rec.ID))
		}
		return nil, err
	}

	plain, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}
	nonce, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	tok := domain.AccessToken{
		ID:              idx.NewAt(now).String(),
		TokenHash:       cryptox.FingerprintToken(plain),
		CodeHash:        codeHash,
		CNonce:          nonce,
		CNonceExpiresAt: now.Add(s.nonceTTL()),
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.tokenTTL()),
	}

	if err := s.Store.Codes().RedeemCode(ctx, codeHash, tok, now); err != nil {
		if errors.Is(err, store.ErrStateConflict) || errors.Is(err, store.ErrNotFound) {
			l.Warn("pre-authorized code redeem lost", slog.String("code_id", rec.ID))
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("redeem code: %w", err)
	}

	rec.State = domain.CodeStateRedeemed
	rec.RedeemedAt = &now
	rec.ExpiresAt = tok.ExpiresAt

	l.Info("pre-authorized code redeemed", slog.String("code_id", rec.ID), slog.String("token_id", tok.ID))
	return &IssuedToken{
		AccessToken:     plain,
		ExpiresIn:       s.tokenTTL(),
		CNonce:          nonce,
		CNonceExpiresIn: s.nonceTTL(),
		Code:            rec,
	}, nil
}

// checkTxCode enforces the transaction code whenever one was set. Supplying
// a code for an offer that had none is also a mismatch.
func (s *CodeService) checkTxCode(rec domain.PreAuthCode, txCode string) error {
	if !rec.HasTxCode() {
		if txCode != "" {
			return ErrTransactionCodeMismatch
		}
		return nil
	}
	if txCode == "" {
		return ErrTransactionCodeMismatch
	}
	if err := cryptox.VerifyTxCode(txCode, rec.TxCodeHash); err != nil {
		if errors.Is(err, cryptox.ErrTxCodeMismatch) {
			return ErrTransactionCodeMismatch
		}
		return fmt.Errorf("verify tx code: %w", err)
	}
	return nil
}

// LookupToken validates a bearer token without changing anything.
func (s *CodeService) LookupToken(ctx context.Context, token string) (*domain.AccessToken, error) {
	tok, err := s.lookup(ctx, token, s.now())
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

func (s *CodeService) lookup(ctx context.Context, token string, now time.Time) (domain.AccessToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.AccessToken{}, ErrInvalidToken
	}

	tok, err := s.Store.Tokens().GetTokenByHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.AccessToken{}, ErrInvalidToken
		}
		return domain.AccessToken{}, err
	}
	if tok.Used() {
		return domain.AccessToken{}, ErrAlreadyUsed
	}
	if tok.Expired(now) {
		return domain.AccessToken{}, ErrExpiredToken
	}
	return tok, nil
}

// Consume marks the token used and its code CONSUMED. Concurrent consumers
// of one token get exactly one success; all others get ErrAlreadyUsed.
func (s *CodeService) Consume(ctx context.Context, token string) (*domain.PreAuthCode, error) {
	now := s.now()
	l := slogx.FromContext(ctx)

	tok, err := s.lookup(ctx, token, now)
	if err != nil {
		if errors.Is(err, ErrAlreadyUsed) {
			l.Warn("access token replayed")
		}
		return nil, err
	}

	code, err := s.Store.Tokens().ConsumeToken(ctx, tok.TokenHash, now)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrInvalidToken
		case errors.Is(err, store.ErrStateConflict):
			l.Warn("access token consume lost", slog.String("token_id", tok.ID))
			return nil, ErrAlreadyUsed
		default:
			return nil, fmt.Errorf("consume token: %w", err)
		}
	}

	l.Info("pre-authorized code consumed", slog.String("code_id", code.ID), slog.String("token_id", tok.ID))
	return &code, nil
}

// RotateNonce replaces the c_nonce of an unused token and returns the new
// value with its lifetime.
func (s *CodeService) RotateNonce(ctx context.Context, token string) (string, time.Duration, error) {
	now := s.now()

	tok, err := s.lookup(ctx, token, now)
	if err != nil {
		return "", 0, err
	}

	nonce, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", 0, err
	}
	if err := s.Store.Tokens().UpdateTokenNonce(ctx, tok.TokenHash, nonce, now.Add(s.nonceTTL())); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return "", 0, ErrInvalidToken
		case errors.Is(err, store.ErrStateConflict):
			return "", 0, ErrAlreadyUsed
		default:
			return "", 0, fmt.Errorf("rotate nonce: %w", err)
		}
	}
	return nonce, s.nonceTTL(), nil
}

// SweepExpired moves stale codes to EXPIRED and deletes expired tokens and
// terminal codes past retention. Expiry is enforced on every access anyway;
// the sweep only keeps the backend small. Each step runs even if an earlier
// one failed.
func (s *CodeService) SweepExpired(ctx context.Context) (SweepResult, error) {
	now := s.now()
	var (
		res  SweepResult
		errs []error
		err  error
	)

	if res.Expired, err = s.Store.Codes().ExpireStaleCodes(ctx, now); err != nil {
		errs = append(errs, fmt.Errorf("expire stale codes: %w", err))
	}
	if res.TokensDeleted, err = s.Store.Tokens().DeleteExpiredTokens(ctx, now); err != nil {
		errs = append(errs, fmt.Errorf("delete expired tokens: %w", err))
	}
	if res.CodesDeleted, err = s.Store.Codes().DeleteTerminalCodes(ctx, now.Add(-s.retention())); err != nil {
		errs = append(errs, fmt.Errorf("delete terminal codes: %w", err))
	}

	return res, errors.Join(errs...)
}
