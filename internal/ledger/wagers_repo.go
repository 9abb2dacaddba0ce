package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SettleWager draws an outcome, applies the balance delta and records one
// history row, all inside a single transaction. Callers resolve the
// prediction before calling; a slow oracle never holds this transaction
// open.
func (s *Store) SettleWager(ctx context.Context, stake decimal.Decimal, predicted Direction) (*Settlement, error) {
	if !stake.IsPositive() {
		return nil, ErrInvalidStake
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin settle tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var raw string
	if err := tx.QueryRowContext(ctx, `SELECT balance FROM account WHERE id=1`).Scan(&raw); err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("corrupt balance %q: %w", raw, err)
	}

	if stake.GreaterThan(balance) {
		return nil, ErrInsufficientFunds
	}

	drawn := s.roller.Roll()
	won := Classify(drawn) == predicted
	delta := stake
	if !won {
		delta = stake.Neg()
	}
	newBalance := balance.Add(delta)

	if _, err := tx.ExecContext(ctx, `UPDATE account SET balance=? WHERE id=1`, newBalance.String()); err != nil {
		return nil, fmt.Errorf("apply delta: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO outcomes (drawn_value, created_at) VALUES (?, ?)
`, drawn, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return nil, fmt.Errorf("insert outcome: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit settle: %w", err)
	}
	return &Settlement{DrawnValue: drawn, Won: won, NewBalance: newBalance}, nil
}

// Balance returns a snapshot of the current balance.
func (s *Store) Balance(ctx context.Context) (decimal.Decimal, error) {
	var raw string
	if err := s.db.QueryRowContext(ctx, `SELECT balance FROM account WHERE id=1`).Scan(&raw); err != nil {
		return decimal.Zero, fmt.Errorf("read balance: %w", err)
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt balance %q: %w", raw, err)
	}
	return balance, nil
}

// RecentOutcomes returns up to n drawn values, most recent first.
func (s *Store) RecentOutcomes(ctx context.Context, n int) ([]int, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT drawn_value FROM outcomes ORDER BY id DESC LIMIT ?
`, n)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ResetAccount sets the balance back to the initial value. History is an
// audit trail and stays untouched.
func (s *Store) ResetAccount(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE account SET balance=? WHERE id=1`, s.initial.String()); err != nil {
		return fmt.Errorf("reset account: %w", err)
	}
	return nil
}
