package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/vcissuer/internal/issuer/domain"
	"github.com/aussiebroadwan/vcissuer/internal/issuer/store"
)

type codesRepo struct {
	s *Store
}

func (r *codesRepo) CreateCode(ctx context.Context, code domain.PreAuthCode) error {
	err := r.s.q.createCode(ctx, codeRow{
		ID:             code.ID,
		CodeHash:       code.CodeHash,
		TxCodeHash:     code.TxCodeHash,
		CredentialType: code.CredentialType,
		State:          string(code.State),
		CreatedAt:      toMillis(code.CreatedAt),
		ExpiresAt:      toMillis(code.ExpiresAt),
		RedeemedAt:     mapOptionalTime(code.RedeemedAt),
		ConsumedAt:     mapOptionalTime(code.ConsumedAt),
	})
	return mapConstraint(err)
}

func (r *codesRepo) GetCodeByHash(ctx context.Context, hash string) (domain.PreAuthCode, error) {
	row, err := r.s.q.getCodeByHash(ctx, hash)
	if err != nil {
		return domain.PreAuthCode{}, mapNotFound(err)
	}
	return mapCode(row), nil
}

func (r *codesRepo) RedeemCode(ctx context.Context, codeHash string, token domain.AccessToken, now time.Time) error {
	return r.s.withTx(ctx, func(q *queries) error {
		n, err := q.redeemCode(ctx, redeemCodeParams{
			CodeHash:   codeHash,
			RedeemedAt: toMillis(now),
			ExpiresAt:  toMillis(token.ExpiresAt),
			Now:        toMillis(now),
		})
		if err != nil {
			return err
		}
		if n == 0 {
			if _, err := q.getCodeByHash(ctx, codeHash); err != nil {
				return mapNotFound(err)
			}
			return store.ErrStateConflict
		}

		err = q.createToken(ctx, tokenRow{
			ID:              token.ID,
			TokenHash:       token.TokenHash,
			CodeHash:        codeHash,
			CNonce:          token.CNonce,
			CNonceExpiresAt: toMillis(token.CNonceExpiresAt),
			CreatedAt:       toMillis(token.CreatedAt),
			ExpiresAt:       toMillis(token.ExpiresAt),
			UsedAt:          sql.NullInt64{},
		})
		return mapConstraint(err)
	})
}

func (r *codesRepo) ExpireStaleCodes(ctx context.Context, now time.Time) (int64, error) {
	return r.s.q.expireStaleCodes(ctx, toMillis(now))
}

func (r *codesRepo) DeleteTerminalCodes(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.s.q.deleteTerminalCodes(ctx, toMillis(cutoff))
}
