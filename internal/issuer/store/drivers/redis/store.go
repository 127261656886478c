// Package redis is a store driver for deployments that run more than one
// issuer instance. Records are Redis hashes, expiry indexes are sorted sets
// scored by unix milliseconds, and every transition is a Lua script.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/vcissuer/internal/issuer/domain"
	"github.com/aussiebroadwan/vcissuer/internal/issuer/store"
)

const DefaultPrefix = "vcissuer"

type Store struct {
	client redis.UniversalClient
	prefix string
}

var _ store.Store = (*Store)(nil)

// NewStore connects to the server at url. Bare host:port addresses are
// accepted and treated as redis://.
func NewStore(url, prefix string) (*Store, error) {
	if !isRedisURL(url) {
		url = "redis://" + url
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis store: %w", err)
	}
	return NewStoreWithClient(redis.NewClient(opts), prefix), nil
}

// NewStoreWithClient wraps an existing client. The store takes ownership and
// closes it on Close.
func NewStoreWithClient(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func isRedisURL(address string) bool {
	return strings.HasPrefix(address, "redis://") ||
		strings.HasPrefix(address, "rediss://") ||
		strings.HasPrefix(address, "unix://")
}

func (s *Store) Codes() store.Codes   { return &codesRepo{s: s} }
func (s *Store) Tokens() store.Tokens { return &tokensRepo{s: s} }

// ApplyMigrations is a no-op; the key layout needs no schema.
func (s *Store) ApplyMigrations() error { return nil }

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) codePrefix() string  { return s.prefix + ":code:" }
func (s *Store) tokenPrefix() string { return s.prefix + ":token:" }

func (s *Store) codeKey(hash string) string  { return s.codePrefix() + hash }
func (s *Store) tokenKey(hash string) string { return s.tokenPrefix() + hash }

// activeKey indexes ISSUED and REDEEMED codes by expiry.
func (s *Store) activeKey() string { return s.prefix + ":codes:active" }

// terminalKey indexes CONSUMED and EXPIRED codes by expiry for retention.
func (s *Store) terminalKey() string { return s.prefix + ":codes:terminal" }

func (s *Store) tokensKey() string { return s.prefix + ":tokens" }

func mapStatus(status string) error {
	switch status {
	case statusOK:
		return nil
	case statusNotFound:
		return store.ErrNotFound
	case statusConflict:
		return store.ErrStateConflict
	case statusExists:
		return store.ErrAlreadyExists
	default:
		return fmt.Errorf("redis store: unexpected script status %q", status)
	}
}

func millis(t time.Time) string { return strconv.FormatInt(t.UnixMilli(), 10) }

func optionalMillis(t *time.Time) string {
	if t == nil {
		return ""
	}
	return millis(*t)
}

func parseMillis(fields map[string]string, name string) (time.Time, error) {
	ms, err := strconv.ParseInt(fields[name], 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("redis store: field %s: %w", name, err)
	}
	return time.UnixMilli(ms).UTC(), nil
}

func parseOptionalMillis(fields map[string]string, name string) (*time.Time, error) {
	if _, ok := fields[name]; !ok {
		return nil, nil
	}
	t, err := parseMillis(fields, name)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func mapCode(fields map[string]string) (domain.PreAuthCode, error) {
	code := domain.PreAuthCode{
		ID:             fields["id"],
		CodeHash:       fields["code_hash"],
		TxCodeHash:     fields["tx_code_hash"],
		CredentialType: fields["credential_type"],
		State:          domain.CodeState(fields["state"]),
	}
	var err error
	if code.CreatedAt, err = parseMillis(fields, "created_at"); err != nil {
		return domain.PreAuthCode{}, err
	}
	if code.ExpiresAt, err = parseMillis(fields, "expires_at"); err != nil {
		return domain.PreAuthCode{}, err
	}
	if code.RedeemedAt, err = parseOptionalMillis(fields, "redeemed_at"); err != nil {
		return domain.PreAuthCode{}, err
	}
	if code.ConsumedAt, err = parseOptionalMillis(fields, "consumed_at"); err != nil {
		return domain.PreAuthCode{}, err
	}
	return code, nil
}

func mapToken(fields map[string]string) (domain.AccessToken, error) {
	tok := domain.AccessToken{
		ID:        fields["id"],
		TokenHash: fields["token_hash"],
		CodeHash:  fields["code_hash"],
		CNonce:    fields["c_nonce"],
	}
	var err error
	if tok.CNonceExpiresAt, err = parseMillis(fields, "c_nonce_expires_at"); err != nil {
		return domain.AccessToken{}, err
	}
	if tok.CreatedAt, err = parseMillis(fields, "created_at"); err != nil {
		return domain.AccessToken{}, err
	}
	if tok.ExpiresAt, err = parseMillis(fields, "expires_at"); err != nil {
		return domain.AccessToken{}, err
	}
	if tok.UsedAt, err = parseOptionalMillis(fields, "used_at"); err != nil {
		return domain.AccessToken{}, err
	}
	return tok, nil
}

type codesRepo struct {
	s *Store
}

func (r *codesRepo) CreateCode(ctx context.Context, code domain.PreAuthCode) error {
	index := r.s.activeKey()
	if code.State.Terminal() {
		index = r.s.terminalKey()
	}
	status, err := createCodeScript.Run(ctx, r.s.client,
		[]string{r.s.codeKey(code.CodeHash), index},
		code.ID,
		code.CodeHash,
		code.TxCodeHash,
		code.CredentialType,
		string(code.State),
		millis(code.CreatedAt),
		millis(code.ExpiresAt),
		optionalMillis(code.RedeemedAt),
		optionalMillis(code.ConsumedAt),
	).Text()
	if err != nil {
		return err
	}
	return mapStatus(status)
}

func (r *codesRepo) GetCodeByHash(ctx context.Context, hash string) (domain.PreAuthCode, error) {
	fields, err := r.s.client.HGetAll(ctx, r.s.codeKey(hash)).Result()
	if err != nil {
		return domain.PreAuthCode{}, err
	}
	if len(fields) == 0 {
		return domain.PreAuthCode{}, store.ErrNotFound
	}
	return mapCode(fields)
}

func (r *codesRepo) RedeemCode(ctx context.Context, codeHash string, token domain.AccessToken, now time.Time) error {
	status, err := redeemCodeScript.Run(ctx, r.s.client,
		[]string{
			r.s.codeKey(codeHash),
			r.s.tokenKey(token.TokenHash),
			r.s.activeKey(),
			r.s.tokensKey(),
		},
		millis(now),
		millis(token.ExpiresAt),
		codeHash,
		token.ID,
		token.TokenHash,
		token.CNonce,
		millis(token.CNonceExpiresAt),
		millis(token.CreatedAt),
	).Text()
	if err != nil {
		return err
	}
	return mapStatus(status)
}

func (r *codesRepo) ExpireStaleCodes(ctx context.Context, now time.Time) (int64, error) {
	return expireStaleScript.Run(ctx, r.s.client,
		[]string{r.s.activeKey(), r.s.terminalKey()},
		millis(now),
		r.s.codePrefix(),
	).Int64()
}

func (r *codesRepo) DeleteTerminalCodes(ctx context.Context, cutoff time.Time) (int64, error) {
	return deleteTerminalScript.Run(ctx, r.s.client,
		[]string{r.s.terminalKey(), r.s.tokensKey()},
		millis(cutoff),
		r.s.codePrefix(),
		r.s.tokenPrefix(),
	).Int64()
}

type tokensRepo struct {
	s *Store
}

func (r *tokensRepo) GetTokenByHash(ctx context.Context, hash string) (domain.AccessToken, error) {
	fields, err := r.s.client.HGetAll(ctx, r.s.tokenKey(hash)).Result()
	if err != nil {
		return domain.AccessToken{}, err
	}
	if len(fields) == 0 {
		return domain.AccessToken{}, store.ErrNotFound
	}
	return mapToken(fields)
}

func (r *tokensRepo) ConsumeToken(ctx context.Context, tokenHash string, now time.Time) (domain.PreAuthCode, error) {
	// code_hash never changes once written, so reading it ahead of the
	// script is safe; the script re-checks that it still matches.
	codeHash, err := r.s.client.HGet(ctx, r.s.tokenKey(tokenHash), "code_hash").Result()
	if errors.Is(err, redis.Nil) {
		return domain.PreAuthCode{}, store.ErrNotFound
	}
	if err != nil {
		return domain.PreAuthCode{}, err
	}

	status, err := consumeTokenScript.Run(ctx, r.s.client,
		[]string{
			r.s.tokenKey(tokenHash),
			r.s.codeKey(codeHash),
			r.s.activeKey(),
			r.s.terminalKey(),
		},
		millis(now),
		codeHash,
	).Text()
	if err != nil {
		return domain.PreAuthCode{}, err
	}
	if err := mapStatus(status); err != nil {
		return domain.PreAuthCode{}, err
	}
	return r.s.Codes().GetCodeByHash(ctx, codeHash)
}

func (r *tokensRepo) UpdateTokenNonce(ctx context.Context, tokenHash, nonce string, expiresAt time.Time) error {
	status, err := updateNonceScript.Run(ctx, r.s.client,
		[]string{r.s.tokenKey(tokenHash)},
		nonce,
		millis(expiresAt),
	).Text()
	if err != nil {
		return err
	}
	return mapStatus(status)
}

func (r *tokensRepo) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	return deleteExpiredTokensScript.Run(ctx, r.s.client,
		[]string{r.s.tokensKey()},
		millis(now),
		r.s.tokenPrefix(),
	).Int64()
}
