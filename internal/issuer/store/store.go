package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/vcissuer/internal/issuer/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrStateConflict is returned when an atomic transition finds the record
	// in a state it cannot move from. The caller lost a race or the record
	// was already used or expired.
	ErrStateConflict = errors.New("store: state conflict")
)

// Store is the root data access interface. Concrete drivers (memory, sqlite,
// redis) implement this. Every multi-record transition is a single method on
// a sub-repository so each driver can make it atomic in its own way, and no
// caller ever holds a transaction open across signing or rendering.
type Store interface {
	Codes() Codes
	Tokens() Tokens

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backend is still reachable.
	Ping(ctx context.Context) error
}

type Codes interface {
	// CreateCode stores a freshly minted ISSUED code.
	CreateCode(ctx context.Context, code domain.PreAuthCode) error

	// GetCodeByHash fetches a code by the fingerprint of its plain value.
	GetCodeByHash(ctx context.Context, hash string) (domain.PreAuthCode, error)

	// RedeemCode moves the code ISSUED -> REDEEMED and stores the bound
	// token in one atomic step. The code must still be ISSUED and not past
	// its expiry at now. On success the code's expiry becomes the token's
	// expiry. Returns ErrNotFound for unknown codes and ErrStateConflict
	// when the transition is not allowed.
	RedeemCode(ctx context.Context, codeHash string, token domain.AccessToken, now time.Time) error

	// ExpireStaleCodes moves every ISSUED or REDEEMED code whose expiry is
	// before now to EXPIRED and returns how many moved.
	ExpireStaleCodes(ctx context.Context, now time.Time) (int64, error)

	// DeleteTerminalCodes removes CONSUMED and EXPIRED codes whose expiry is
	// before cutoff, together with their tokens.
	DeleteTerminalCodes(ctx context.Context, cutoff time.Time) (int64, error)
}

type Tokens interface {
	// GetTokenByHash fetches a token by the fingerprint of its plain value.
	GetTokenByHash(ctx context.Context, hash string) (domain.AccessToken, error)

	// ConsumeToken marks the token used and moves its code REDEEMED ->
	// CONSUMED in one atomic step, returning the updated code. The token
	// must be unused and not past its expiry at now. Returns ErrNotFound for
	// unknown tokens and ErrStateConflict otherwise.
	ConsumeToken(ctx context.Context, tokenHash string, now time.Time) (domain.PreAuthCode, error)

	// UpdateTokenNonce replaces the c_nonce of an unused token.
	UpdateTokenNonce(ctx context.Context, tokenHash, nonce string, expiresAt time.Time) error

	// DeleteExpiredTokens removes tokens whose expiry is before now.
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}
