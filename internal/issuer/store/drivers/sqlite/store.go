package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aussiebroadwan/vcissuer/internal/issuer/domain"
	"github.com/aussiebroadwan/vcissuer/internal/issuer/store"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Store struct {
	db  *sql.DB
	q   *queries
	dsn string
}

var _ store.Store = (*Store)(nil)

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// SQLite allows a single writer. One pooled connection turns lock
	// contention into pool waits instead of SQLITE_BUSY errors, and keeps
	// the per-connection pragmas below in force.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		`PRAGMA foreign_keys = ON;`,
		`PRAGMA busy_timeout = 5000;`,
	} {
		if _, err := db.ExecContext(context.Background(), pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return &Store{
		db:  db,
		q:   newQueries(db),
		dsn: dsn,
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Codes() store.Codes   { return &codesRepo{s: s} }
func (s *Store) Tokens() store.Tokens { return &tokensRepo{s: s} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// mapConstraint turns unique and primary key violations into
// store.ErrAlreadyExists.
func mapConstraint(err error) error {
	var serr *msqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return store.ErrAlreadyExists
		}
	}
	return err
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func mapOptionalTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func mapNullTimePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromMillis(n.Int64)
	return &t
}

func mapCode(row codeRow) domain.PreAuthCode {
	return domain.PreAuthCode{
		ID:             row.ID,
		CodeHash:       row.CodeHash,
		TxCodeHash:     row.TxCodeHash,
		CredentialType: row.CredentialType,
		State:          domain.CodeState(row.State),
		CreatedAt:      fromMillis(row.CreatedAt),
		ExpiresAt:      fromMillis(row.ExpiresAt),
		RedeemedAt:     mapNullTimePtr(row.RedeemedAt),
		ConsumedAt:     mapNullTimePtr(row.ConsumedAt),
	}
}

func mapToken(row tokenRow) domain.AccessToken {
	return domain.AccessToken{
		ID:              row.ID,
		TokenHash:       row.TokenHash,
		CodeHash:        row.CodeHash,
		CNonce:          row.CNonce,
		CNonceExpiresAt: fromMillis(row.CNonceExpiresAt),
		CreatedAt:       fromMillis(row.CreatedAt),
		ExpiresAt:       fromMillis(row.ExpiresAt),
		UsedAt:          mapNullTimePtr(row.UsedAt),
	}
}
