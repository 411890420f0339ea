package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(context.Context, pgx.Tx) error) error {
	if pool == nil {
		return errors.New("postgres pool is nil")
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// LockPair takes a transaction-scoped advisory lock on the canonical unordered
// pair key. Every write path touching the same pair in either direction
// serializes here, so concurrent reciprocal likes cannot race past the
// reciprocity check and create two matches.
func LockPair(ctx context.Context, tx pgx.Tx, userIDA, userIDB, groupID int64) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if userIDA <= 0 || userIDB <= 0 {
		return fmt.Errorf("invalid pair lock payload")
	}

	if userIDA > userIDB {
		userIDA, userIDB = userIDB, userIDA
	}
	key := fmt.Sprintf("pair:%d:%d:%d", userIDA, userIDB, groupID)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		return fmt.Errorf("acquire pair lock: %w", err)
	}

	return nil
}
