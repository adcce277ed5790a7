package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Ledger rows live in the same database as work items so a publish commit and
// its quota movement share one durable store (and one WAL).

// ReserveQuota atomically consumes cost units for the given reference day when
// the budget allows it. Returns false with no side effect when the reservation
// would exceed the budget.
func (s *Store) ReserveQuota(ctx context.Context, date string, cost, budget int64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin quota tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO quota_ledger (date, consumed_units) VALUES (?, 0)
         ON CONFLICT(date) DO NOTHING`,
		date,
	); err != nil {
		return false, fmt.Errorf("ensure ledger row: %w", err)
	}

	res, err := tx.ExecContext(
		ctx,
		`UPDATE quota_ledger
         SET consumed_units = consumed_units + ?
         WHERE date = ? AND consumed_units + ? <= ?`,
		cost,
		date,
		cost,
		budget,
	)
	if err != nil {
		return false, fmt.Errorf("reserve quota: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit quota reservation: %w", err)
	}
	return affected > 0, nil
}

// ReleaseQuota returns cost units to the given reference day, compensating for
// a publish that was reserved but did not complete. Never drives consumption
// below zero.
func (s *Store) ReleaseQuota(ctx context.Context, date string, cost int64) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE quota_ledger
         SET consumed_units = MAX(0, consumed_units - ?)
         WHERE date = ?`,
		cost,
		date,
	)
	if err != nil {
		return fmt.Errorf("release quota: %w", err)
	}
	return nil
}

// QuotaUsage reports the units consumed for the given reference day. Days with
// no ledger row have consumed nothing.
func (s *Store) QuotaUsage(ctx context.Context, date string) (int64, error) {
	var consumed int64
	err := s.db.QueryRowContext(
		ctx,
		`SELECT consumed_units FROM quota_ledger WHERE date = ?`,
		date,
	).Scan(&consumed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("read quota usage: %w", err)
	}
	return consumed, nil
}
