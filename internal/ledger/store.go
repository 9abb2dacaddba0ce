// Package ledger owns the account balance and the append-only outcome
// history. SettleWager is the only mutating request path and runs as a
// single sqlite transaction, so the balance check and the balance delta
// are inseparable under concurrency.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// DefaultInitialBalance seeds a fresh account and is the target of
// ResetAccount.
var DefaultInitialBalance = decimal.NewFromInt(1000)

type Config struct {
	DBPath         string
	InitialBalance decimal.Decimal // zero value -> DefaultInitialBalance
	Roller         Roller          // nil -> CryptoRoller
}

// Store is the single source of truth for balance and settled outcomes.
type Store struct {
	db      *sql.DB
	initial decimal.Decimal
	roller  Roller
}

func Open(cfg Config) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("ledger: db path is required")
	}
	if cfg.InitialBalance.IsZero() {
		cfg.InitialBalance = DefaultInitialBalance
	}
	if cfg.Roller == nil {
		cfg.Roller = CryptoRoller{}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: a single connection is more stable
	db.SetMaxIdleConns(1)

	s := &Store{db: db, initial: cfg.InitialBalance, roller: cfg.Roller}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA foreign_keys=ON;`,
		`
CREATE TABLE IF NOT EXISTS account (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  balance TEXT NOT NULL
);`,
		`
CREATE TABLE IF NOT EXISTS outcomes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  drawn_value INTEGER NOT NULL,
  created_at TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_id_desc ON outcomes(id DESC);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate exec failed: %w", err)
		}
	}

	// Seed the singleton account row. INSERT OR IGNORE keeps a second
	// startup from touching an already-set balance.
	if _, err := s.db.ExecContext(ctx, `
INSERT OR IGNORE INTO account (id, balance) VALUES (1, ?)
`, s.initial.String()); err != nil {
		return fmt.Errorf("seed account: %w", err)
	}
	return nil
}
