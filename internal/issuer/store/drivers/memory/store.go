// Package memory is a process-local store driver. All state lives behind a
// single mutex, which makes every transition trivially atomic. It is meant for
// tests and single-instance development runs; restarts lose every code.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aussiebroadwan/vcissuer/internal/issuer/domain"
	"github.com/aussiebroadwan/vcissuer/internal/issuer/store"
)

type Store struct {
	mu     sync.Mutex
	codes  map[string]domain.PreAuthCode // by code hash
	tokens map[string]domain.AccessToken // by token hash
	closed bool
}

var _ store.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		codes:  make(map[string]domain.PreAuthCode),
		tokens: make(map[string]domain.AccessToken),
	}
}

func (s *Store) Codes() store.Codes   { return codesRepo{s} }
func (s *Store) Tokens() store.Tokens { return tokensRepo{s} }

func (s *Store) ApplyMigrations() error { return nil }

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var errClosed = errors.New("store: memory store closed")

// Ping fails once the store has been closed.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	return ctx.Err()
}

type codesRepo struct{ s *Store }

func (r codesRepo) CreateCode(_ context.Context, code domain.PreAuthCode) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.codes[code.CodeHash]; ok {
		return store.ErrAlreadyExists
	}
	r.s.codes[code.CodeHash] = code
	return nil
}

func (r codesRepo) GetCodeByHash(_ context.Context, hash string) (domain.PreAuthCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	code, ok := r.s.codes[hash]
	if !ok {
		return domain.PreAuthCode{}, store.ErrNotFound
	}
	return code, nil
}

func (r codesRepo) RedeemCode(_ context.Context, codeHash string, token domain.AccessToken, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	code, ok := r.s.codes[codeHash]
	if !ok {
		return store.ErrNotFound
	}
	if code.State != domain.CodeStateIssued || code.Expired(now) {
		return store.ErrStateConflict
	}
	if _, ok := r.s.tokens[token.TokenHash]; ok {
		return store.ErrAlreadyExists
	}

	redeemedAt := now
	code.State = domain.CodeStateRedeemed
	code.RedeemedAt = &redeemedAt
	code.ExpiresAt = token.ExpiresAt
	r.s.codes[codeHash] = code

	token.CodeHash = codeHash
	r.s.tokens[token.TokenHash] = token
	return nil
}

func (r codesRepo) ExpireStaleCodes(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for hash, code := range r.s.codes {
		if code.State.Terminal() || !code.ExpiresAt.Before(now) {
			continue
		}
		code.State = domain.CodeStateExpired
		r.s.codes[hash] = code
		n++
	}
	return n, nil
}

func (r codesRepo) DeleteTerminalCodes(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for hash, code := range r.s.codes {
		if !code.State.Terminal() || !code.ExpiresAt.Before(cutoff) {
			continue
		}
		delete(r.s.codes, hash)
		for th, tok := range r.s.tokens {
			if tok.CodeHash == hash {
				delete(r.s.tokens, th)
			}
		}
		n++
	}
	return n, nil
}

type tokensRepo struct{ s *Store }

func (r tokensRepo) GetTokenByHash(_ context.Context, hash string) (domain.AccessToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tok, ok := r.s.tokens[hash]
	if !ok {
		return domain.AccessToken{}, store.ErrNotFound
	}
	return tok, nil
}

func (r tokensRepo) ConsumeToken(_ context.Context, tokenHash string, now time.Time) (domain.PreAuthCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tok, ok := r.s.tokens[tokenHash]
	if !ok {
		return domain.PreAuthCode{}, store.ErrNotFound
	}
	if tok.Used() || tok.Expired(now) {
		return domain.PreAuthCode{}, store.ErrStateConflict
	}
	code, ok := r.s.codes[tok.CodeHash]
	if !ok || code.State != domain.CodeStateRedeemed {
		return domain.PreAuthCode{}, store.ErrStateConflict
	}

	usedAt := now
	tok.UsedAt = &usedAt
	r.s.tokens[tokenHash] = tok

	consumedAt := now
	code.State = domain.CodeStateConsumed
	code.ConsumedAt = &consumedAt
	r.s.codes[code.CodeHash] = code
	return code, nil
}

func (r tokensRepo) UpdateTokenNonce(_ context.Context, tokenHash, nonce string, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tok, ok := r.s.tokens[tokenHash]
	if !ok {
		return store.ErrNotFound
	}
	if tok.Used() {
		return store.ErrStateConflict
	}
	tok.CNonce = nonce
	tok.CNonceExpiresAt = expiresAt
	r.s.tokens[tokenHash] = tok
	return nil
}

func (r tokensRepo) DeleteExpiredTokens(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for hash, tok := range r.s.tokens {
		if tok.ExpiresAt.Before(now) {
			delete(r.s.tokens, hash)
			n++
		}
	}
	return n, nil
}
