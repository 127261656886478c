// Package storetest is the behaviour every store driver must share. Driver
// packages call Run from their own tests with a constructor for a fresh,
// migrated store.
package storetest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/vcissuer/internal/issuer/domain"
	"github.com/aussiebroadwan/vcissuer/internal/issuer/store"
	"github.com/aussiebroadwan/vcissuer/pkg/cryptox"
	"github.com/aussiebroadwan/vcissuer/pkg/idx"
)

// Base is the reference clock for fixtures. Drivers persist unix
// milliseconds, so every fixture time is millisecond aligned.
var Base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

const (
	codeTTL  = 5 * time.Minute
	tokenTTL = 5 * time.Minute
)

// NewCode returns an ISSUED code created at Base.
func NewCode() domain.PreAuthCode {
	return domain.PreAuthCode{
		ID:             idx.NewAt(Base).String(),
		CodeHash:       cryptox.FingerprintToken(cryptox.MustGenerateToken(cryptox.TokenSize128)),
		CredentialType: domain.LoyaltyConfigurationID,
		State:          domain.CodeStateIssued,
		CreatedAt:      Base,
		ExpiresAt:      Base.Add(codeTTL),
	}
}

// NewToken returns an unused token minted at now.
func NewToken(now time.Time) domain.AccessToken {
	return domain.AccessToken{
		ID:              idx.NewAt(now).String(),
		TokenHash:       cryptox.FingerprintToken(cryptox.MustGenerateToken(cryptox.TokenSize256)),
		CNonce:          cryptox.MustGenerateToken(cryptox.TokenSize128),
		CNonceExpiresAt: now.Add(tokenTTL),
		CreatedAt:       now,
		ExpiresAt:       now.Add(tokenTTL),
	}
}

// Run exercises the full driver contract.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("CreateAndGetCode", func(t *testing.T) { testCreateAndGetCode(t, newStore(t)) })
	t.Run("RedeemCode", func(t *testing.T) { testRedeemCode(t, newStore(t)) })
	t.Run("RedeemExpiredCode", func(t *testing.T) { testRedeemExpiredCode(t, newStore(t)) })
	t.Run("ConsumeToken", func(t *testing.T) { testConsumeToken(t, newStore(t)) })
	t.Run("ConsumeExpiredToken", func(t *testing.T) { testConsumeExpiredToken(t, newStore(t)) })
	t.Run("UpdateTokenNonce", func(t *testing.T) { testUpdateTokenNonce(t, newStore(t)) })
	t.Run("Sweep", func(t *testing.T) { testSweep(t, newStore(t)) })
	t.Run("ConcurrentRedeem", func(t *testing.T) { testConcurrentRedeem(t, newStore(t)) })
	t.Run("ConcurrentConsume", func(t *testing.T) { testConcurrentConsume(t, newStore(t)) })
	t.Run("Ping", func(t *testing.T) { require.NoError(t, newStore(t).Ping(context.Background())) })
}

func testCreateAndGetCode(t *testing.T, s store.Store) {
	ctx := context.Background()
	code := NewCode()
	code.TxCodeHash = "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA"

	require.NoError(t, s.Codes().CreateCode(ctx, code))

	got, err := s.Codes().GetCodeByHash(ctx, code.CodeHash)
	require.NoError(t, err)
	assert.Equal(t, code.ID, got.ID)
	assert.Equal(t, code.TxCodeHash, got.TxCodeHash)
	assert.Equal(t, code.CredentialType, got.CredentialType)
	assert.Equal(t, domain.CodeStateIssued, got.State)
	assert.True(t, code.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, code.ExpiresAt.Equal(got.ExpiresAt))
	assert.Nil(t, got.RedeemedAt)
	assert.Nil(t, got.ConsumedAt)

	err = s.Codes().CreateCode(ctx, code)
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	_, err = s.Codes().GetCodeByHash(ctx, "unknown")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testRedeemCode(t *testing.T, s store.Store) {
	ctx := context.Background()
	code := NewCode()
	require.NoError(t, s.Codes().CreateCode(ctx, code))

	now := Base.Add(time.Minute)
	tok := NewToken(now)
	require.NoError(t, s.Codes().RedeemCode(ctx, code.CodeHash, tok, now))

	got, err := s.Codes().GetCodeByHash(ctx, code.CodeHash)
	require.NoError(t, err)
	assert.Equal(t, domain.CodeStateRedeemed, got.State)
	require.NotNil(t, got.RedeemedAt)
	assert.True(t, now.Equal(*got.RedeemedAt))
	assert.True(t, tok.ExpiresAt.Equal(got.ExpiresAt), "code expiry follows the token")

	gotTok, err := s.Tokens().GetTokenByHash(ctx, tok.TokenHash)
	require.NoError(t, err)
	assert.Equal(t, code.CodeHash, gotTok.CodeHash)
	assert.Equal(t, tok.CNonce, gotTok.CNonce)
	assert.True(t, tok.CNonceExpiresAt.Equal(gotTok.CNonceExpiresAt))
	assert.False(t, gotTok.Used())

	err = s.Codes().RedeemCode(ctx, code.CodeHash, NewToken(now), now)
	assert.ErrorIs(t, err, store.ErrStateConflict)

	err = s.Codes().RedeemCode(ctx, "unknown", NewToken(now), now)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Tokens().GetTokenByHash(ctx, "unknown")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testRedeemExpiredCode(t *testing.T, s store.Store) {
	ctx := context.Background()
	code := NewCode()
	require.NoError(t, s.Codes().CreateCode(ctx, code))

	// Exactly at expiry is still valid; one millisecond later is not.
	late := code.ExpiresAt.Add(time.Millisecond)
	tok := NewToken(late)
	err := s.Codes().RedeemCode(ctx, code.CodeHash, tok, late)
	assert.ErrorIs(t, err, store.ErrStateConflict)

	got, err := s.Codes().GetCodeByHash(ctx, code.CodeHash)
	require.NoError(t, err)
	assert.Equal(t, domain.CodeStateIssued, got.State)

	_, err = s.Tokens().GetTokenByHash(ctx, tok.TokenHash)
	assert.ErrorIs(t, err, store.ErrNotFound, "a failed redeem must not leave a token behind")

	require.NoError(t, s.Codes().RedeemCode(ctx, code.CodeHash, NewToken(code.ExpiresAt), code.ExpiresAt))
}

func redeemed(t *testing.T, s store.Store) (domain.PreAuthCode, domain.AccessToken, time.Time) {
	t.Helper()
	ctx := context.Background()
	code := NewCode()
	require.NoError(t, s.Codes().CreateCode(ctx, code))
	now := Base.Add(time.Minute)
	tok := NewToken(now)
	require.NoError(t, s.Codes().RedeemCode(ctx, code.CodeHash, tok, now))
	return code, tok, now
}

func testConsumeToken(t *testing.T, s store.Store) {
	ctx := context.Background()
	code, tok, redeemedAt := redeemed(t, s)

	now := redeemedAt.Add(30 * time.Second)
	got, err := s.Tokens().ConsumeToken(ctx, tok.TokenHash, now)
	require.NoError(t, err)
	assert.Equal(t, code.ID, got.ID)
	assert.Equal(t, domain.CodeStateConsumed, got.State)
	require.NotNil(t, got.ConsumedAt)
	assert.True(t, now.Equal(*got.ConsumedAt))

	gotTok, err := s.Tokens().GetTokenByHash(ctx, tok.TokenHash)
	require.NoError(t, err)
	require.NotNil(t, gotTok.UsedAt)
	assert.True(t, now.Equal(*gotTok.UsedAt))

	_, err = s.Tokens().ConsumeToken(ctx, tok.TokenHash, now)
	assert.ErrorIs(t, err, store.ErrStateConflict)

	_, err = s.Tokens().ConsumeToken(ctx, "unknown", now)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testConsumeExpiredToken(t *testing.T, s store.Store) {
	ctx := context.Background()
	code, tok, _ := redeemed(t, s)

	late := tok.ExpiresAt.Add(time.Millisecond)
	_, err := s.Tokens().ConsumeToken(ctx, tok.TokenHash, late)
	assert.ErrorIs(t, err, store.ErrStateConflict)

	got, err := s.Codes().GetCodeByHash(ctx, code.CodeHash)
	require.NoError(t, err)
	assert.Equal(t, domain.CodeStateRedeemed, got.State)

	gotTok, err := s.Tokens().GetTokenByHash(ctx, tok.TokenHash)
	require.NoError(t, err)
	assert.False(t, gotTok.Used())
}

func testUpdateTokenNonce(t *testing.T, s store.Store) {
	ctx := context.Background()
	_, tok, now := redeemed(t, s)

	exp := now.Add(2 * time.Minute)
	require.NoError(t, s.Tokens().UpdateTokenNonce(ctx, tok.TokenHash, "fresh-nonce", exp))

	got, err := s.Tokens().GetTokenByHash(ctx, tok.TokenHash)
	require.NoError(t, err)
	assert.Equal(t, "fresh-nonce", got.CNonce)
	assert.True(t, exp.Equal(got.CNonceExpiresAt))

	_, err = s.Tokens().ConsumeToken(ctx, tok.TokenHash, now)
	require.NoError(t, err)

	err = s.Tokens().UpdateTokenNonce(ctx, tok.TokenHash, "later", exp)
	assert.ErrorIs(t, err, store.ErrStateConflict)

	err = s.Tokens().UpdateTokenNonce(ctx, "unknown", "x", exp)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testSweep(t *testing.T, s store.Store) {
	ctx := context.Background()

	stale := NewCode()
	require.NoError(t, s.Codes().CreateCode(ctx, stale))

	fresh := NewCode()
	fresh.ExpiresAt = Base.Add(time.Hour)
	require.NoError(t, s.Codes().CreateCode(ctx, fresh))

	consumedCode, consumedTok, now := redeemed(t, s)
	_, err := s.Tokens().ConsumeToken(ctx, consumedTok.TokenHash, now)
	require.NoError(t, err)

	sweepAt := Base.Add(30 * time.Minute)

	n, err := s.Codes().ExpireStaleCodes(ctx, sweepAt)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.Codes().GetCodeByHash(ctx, stale.CodeHash)
	require.NoError(t, err)
	assert.Equal(t, domain.CodeStateExpired, got.State)

	got, err = s.Codes().GetCodeByHash(ctx, fresh.CodeHash)
	require.NoError(t, err)
	assert.Equal(t, domain.CodeStateIssued, got.State)

	got, err = s.Codes().GetCodeByHash(ctx, consumedCode.CodeHash)
	require.NoError(t, err)
	assert.Equal(t, domain.CodeStateConsumed, got.State, "terminal codes are left alone")

	n, err = s.Codes().ExpireStaleCodes(ctx, sweepAt)
	require.NoError(t, err)
	assert.Zero(t, n)

	// Retention cutoff before the terminal codes expired removes nothing.
	n, err = s.Codes().DeleteTerminalCodes(ctx, Base)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.Codes().DeleteTerminalCodes(ctx, sweepAt)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = s.Codes().GetCodeByHash(ctx, stale.CodeHash)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Codes().GetCodeByHash(ctx, consumedCode.CodeHash)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Tokens().GetTokenByHash(ctx, consumedTok.TokenHash)
	assert.ErrorIs(t, err, store.ErrNotFound, "tokens go with their code")

	_, live, liveAt := redeemed(t, s)
	n, err = s.Tokens().DeleteExpiredTokens(ctx, liveAt)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.Tokens().DeleteExpiredTokens(ctx, live.ExpiresAt.Add(time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = s.Tokens().GetTokenByHash(ctx, live.TokenHash)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

const racers = 16

func testConcurrentRedeem(t *testing.T, s store.Store) {
	ctx := context.Background()
	code := NewCode()
	require.NoError(t, s.Codes().CreateCode(ctx, code))

	now := Base.Add(time.Minute)
	var (
		wg        sync.WaitGroup
		start     = make(chan struct{})
		wins      atomic.Int32
		conflicts atomic.Int32
		others    = make(chan error, racers)
	)
	for range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := s.Codes().RedeemCode(ctx, code.CodeHash, NewToken(now), now)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, store.ErrStateConflict):
				conflicts.Add(1)
			default:
				others <- err
			}
		}()
	}
	close(start)
	wg.Wait()
	close(others)

	for err := range others {
		t.Errorf("unexpected error: %v", err)
	}
	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(racers-1), conflicts.Load())
}

func testConcurrentConsume(t *testing.T, s store.Store) {
	ctx := context.Background()
	_, tok, now := redeemed(t, s)

	var (
		wg        sync.WaitGroup
		start     = make(chan struct{})
		wins      atomic.Int32
		conflicts atomic.Int32
		others    = make(chan error, racers)
	)
	for range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.Tokens().ConsumeToken(ctx, tok.TokenHash, now)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, store.ErrStateConflict):
				conflicts.Add(1)
			default:
				others <- err
			}
		}()
	}
	close(start)
	wg.Wait()
	close(others)

	for err := range others {
		t.Errorf("unexpected error: %v", err)
	}
	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(racers-1), conflicts.Load())
}
