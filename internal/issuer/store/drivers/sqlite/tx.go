package sqlite

import "context"

// withTx executes fn within a transaction, automatically handling
// commit/rollback. Transactions stay private to the driver; callers only see
// the single-method transitions on the repositories.
func (s *Store) withTx(ctx context.Context, fn func(q *queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if err := fn(newQueries(tx)); err != nil {
		return err
	}

	return tx.Commit()
}
