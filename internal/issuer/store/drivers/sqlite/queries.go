package sqlite

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so the same queries run
// inside and outside a transaction.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type queries struct {
	db DBTX
}

func newQueries(db DBTX) *queries { return &queries{db: db} }

type codeRow struct {
	ID             string
	CodeHash       string
	TxCodeHash     string
	CredentialType string
	State          string
	CreatedAt      int64
	ExpiresAt      int64
	RedeemedAt     sql.NullInt64
	ConsumedAt     sql.NullInt64
}

type tokenRow struct {
	ID              string
	TokenHash       string
	CodeHash        string
	CNonce          string
	CNonceExpiresAt int64
	CreatedAt       int64
	ExpiresAt       int64
	UsedAt          sql.NullInt64
}

const codeColumns = `id, code_hash, tx_code_hash, credential_type, state, created_at, expires_at, redeemed_at, consumed_at`

const tokenColumns = `id, token_hash, code_hash, c_nonce, c_nonce_expires_at, created_at, expires_at, used_at`

func scanCode(row *sql.Row) (codeRow, error) {
	var c codeRow
	err := row.Scan(
		&c.ID,
		&c.CodeHash,
		&c.TxCodeHash,
		&c.CredentialType,
		&c.State,
		&c.CreatedAt,
		&c.ExpiresAt,
		&c.RedeemedAt,
		&c.ConsumedAt,
	)
	return c, err
}

func scanToken(row *sql.Row) (tokenRow, error) {
	var t tokenRow
	err := row.Scan(
		&t.ID,
		&t.TokenHash,
		&t.CodeHash,
		&t.CNonce,
		&t.CNonceExpiresAt,
		&t.CreatedAt,
		&t.ExpiresAt,
		&t.UsedAt,
	)
	return t, err
}

const createCode = `INSERT INTO pre_auth_codes (` + codeColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *queries) createCode(ctx context.Context, c codeRow) error {
	_, err := q.db.ExecContext(ctx, createCode,
		c.ID,
		c.CodeHash,
		c.TxCodeHash,
		c.CredentialType,
		c.State,
		c.CreatedAt,
		c.ExpiresAt,
		c.RedeemedAt,
		c.ConsumedAt,
	)
	return err
}

const getCodeByHash = `SELECT ` + codeColumns + ` FROM pre_auth_codes WHERE code_hash = ?`

func (q *queries) getCodeByHash(ctx context.Context, hash string) (codeRow, error) {
	return scanCode(q.db.QueryRowContext(ctx, getCodeByHash, hash))
}

// redeemCode is the compare-and-set for ISSUED -> REDEEMED. Zero rows
// affected means the code is gone, already moved on, or past expiry.
const redeemCode = `UPDATE pre_auth_codes
SET state = 'REDEEMED', redeemed_at = ?, expires_at = ?
WHERE code_hash = ? AND state = 'ISSUED' AND expires_at >= ?`

type redeemCodeParams struct {
	CodeHash   string
	RedeemedAt int64
	ExpiresAt  int64
	Now        int64
}

func (q *queries) redeemCode(ctx context.Context, arg redeemCodeParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, redeemCode, arg.RedeemedAt, arg.ExpiresAt, arg.CodeHash, arg.Now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const consumeCodeForToken = `UPDATE pre_auth_codes
SET state = 'CONSUMED', consumed_at = ?
WHERE state = 'REDEEMED'
  AND code_hash = (SELECT code_hash FROM access_tokens WHERE token_hash = ?)`

func (q *queries) consumeCodeForToken(ctx context.Context, tokenHash string, consumedAt int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, consumeCodeForToken, consumedAt, tokenHash)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const expireStaleCodes = `UPDATE pre_auth_codes
SET state = 'EXPIRED'
WHERE state IN ('ISSUED', 'REDEEMED') AND expires_at < ?`

func (q *queries) expireStaleCodes(ctx context.Context, now int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, expireStaleCodes, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteTerminalCodes = `DELETE FROM pre_auth_codes
WHERE state IN ('CONSUMED', 'EXPIRED') AND expires_at < ?`

func (q *queries) deleteTerminalCodes(ctx context.Context, cutoff int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTerminalCodes, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createToken = `INSERT INTO access_tokens (` + tokenColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *queries) createToken(ctx context.Context, t tokenRow) error {
	_, err := q.db.ExecContext(ctx, createToken,
		t.ID,
		t.TokenHash,
		t.CodeHash,
		t.CNonce,
		t.CNonceExpiresAt,
		t.CreatedAt,
		t.ExpiresAt,
		t.UsedAt,
	)
	return err
}

const getTokenByHash = `SELECT ` + tokenColumns + ` FROM access_tokens WHERE token_hash = ?`

func (q *queries) getTokenByHash(ctx context.Context, hash string) (tokenRow, error) {
	return scanToken(q.db.QueryRowContext(ctx, getTokenByHash, hash))
}

const markTokenUsed = `UPDATE access_tokens
SET used_at = ?
WHERE token_hash = ? AND used_at IS NULL AND expires_at >= ?`

func (q *queries) markTokenUsed(ctx context.Context, tokenHash string, now int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, markTokenUsed, now, tokenHash, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const updateTokenNonce = `UPDATE access_tokens
SET c_nonce = ?, c_nonce_expires_at = ?
WHERE token_hash = ? AND used_at IS NULL`

func (q *queries) updateTokenNonce(ctx context.Context, tokenHash, nonce string, expiresAt int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTokenNonce, nonce, expiresAt, tokenHash)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteExpiredTokens = `DELETE FROM access_tokens WHERE expires_at < ?`

func (q *queries) deleteExpiredTokens(ctx context.Context, now int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpiredTokens, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
