package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS contact_rate_limits (
    client_key      TEXT PRIMARY KEY,
    count           INTEGER NOT NULL DEFAULT 0,
    window_reset_at TIMESTAMPTZ NOT NULL
)`

// PostgresStore shares windows between instances through a Postgres table.
// Each Consume runs in its own transaction with the row locked.
type PostgresStore struct {
	db TxBeginner
}

// TxBeginner is satisfied by *pgxpool.Pool and pgx.Tx.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

func NewPostgresStore(db TxBeginner) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the backing table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, createTableSQL)
		return err
	})
}

func (s *PostgresStore) Consume(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Record, bool, error) {
	var (
		rec     Record
		allowed bool
	)

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO contact_rate_limits (client_key, count, window_reset_at)
			VALUES ($1, 0, $2)
			ON CONFLICT (client_key) DO NOTHING`, key, now)
		if err != nil {
			return fmt.Errorf("ensure row: %w", err)
		}

		var current Record
		err = tx.QueryRow(ctx, `
			SELECT count, window_reset_at FROM contact_rate_limits
			WHERE client_key = $1 FOR UPDATE`, key).Scan(&current.Count, &current.ResetAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("row for %q vanished", key)
			}
			return fmt.Errorf("lock row: %w", err)
		}

		rec, allowed = decide(current, limit, window, now)
		if !allowed {
			return nil
		}

		_, err = tx.Exec(ctx, `
			UPDATE contact_rate_limits SET count = $2, window_reset_at = $3
			WHERE client_key = $1`, key, rec.Count, rec.ResetAt)
		if err != nil {
			return fmt.Errorf("update row: %w", err)
		}
		return nil
	})
	if err != nil {
		return Record{}, false, fmt.Errorf("postgres rate limit: %w", err)
	}

	return rec, allowed, nil
}

// DeleteExpired removes windows that ended before now.
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM contact_rate_limits WHERE window_reset_at < $1`, now)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})
	return n, err
}
