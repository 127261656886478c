package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/vcissuer/internal/issuer/domain"
	"github.com/aussiebroadwan/vcissuer/internal/issuer/store"
)

type tokensRepo struct {
	s *Store
}

func (r *tokensRepo) GetTokenByHash(ctx context.Context, hash string) (domain.AccessToken, error) {
	row, err := r.s.q.getTokenByHash(ctx, hash)
	if err != nil {
		return domain.AccessToken{}, mapNotFound(err)
	}
	return mapToken(row), nil
}

func (r *tokensRepo) ConsumeToken(ctx context.Context, tokenHash string, now time.Time) (domain.PreAuthCode, error) {
	var consumed domain.PreAuthCode
	err := r.s.withTx(ctx, func(q *queries) error {
		n, err := q.markTokenUsed(ctx, tokenHash, toMillis(now))
		if err != nil {
			return err
		}
		if n == 0 {
			if _, err := q.getTokenByHash(ctx, tokenHash); err != nil {
				return mapNotFound(err)
			}
			return store.ErrStateConflict
		}

		n, err = q.consumeCodeForToken(ctx, tokenHash, toMillis(now))
		if err != nil {
			return err
		}
		if n == 0 {
			return store.ErrStateConflict // rollback clears used_at
		}

		tok, err := q.getTokenByHash(ctx, tokenHash)
		if err != nil {
			return err
		}
		row, err := q.getCodeByHash(ctx, tok.CodeHash)
		if err != nil {
			return err
		}
		consumed = mapCode(row)
		return nil
	})
	if err != nil {
		return domain.PreAuthCode{}, err
	}
	return consumed, nil
}

func (r *tokensRepo) UpdateTokenNonce(ctx context.Context, tokenHash, nonce string, expiresAt time.Time) error {
	n, err := r.s.q.updateTokenNonce(ctx, tokenHash, nonce, toMillis(expiresAt))
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.s.q.getTokenByHash(ctx, tokenHash); err != nil {
			return mapNotFound(err)
		}
		return store.ErrStateConflict
	}
	return nil
}

func (r *tokensRepo) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	return r.s.q.deleteExpiredTokens(ctx, toMillis(now))
}
