package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/atmx/stockquest/internal/model"
)

// PostgresStore implements Journal using PostgreSQL.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed journal.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the journal table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS journal_entries (
			seq        BIGSERIAL   UNIQUE,
			id         UUID PRIMARY KEY,
			session_id TEXT        NOT NULL,
			side       TEXT        NOT NULL CHECK (side IN ('buy', 'sell')),
			symbol     TEXT        NOT NULL,
			quantity   BIGINT      NOT NULL CHECK (quantity > 0),
			price      NUMERIC     NOT NULL,
			total      NUMERIC     NOT NULL,
			timestamp  TIMESTAMPTZ NOT NULL
		);
		ALTER TABLE journal_entries ADD COLUMN IF NOT EXISTS seq BIGSERIAL UNIQUE;
		CREATE INDEX IF NOT EXISTS journal_entries_session_idx
			ON journal_entries (session_id, seq);`)
	if err != nil {
		return fmt.Errorf("ensure journal schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, sessionID string, tx model.Transaction) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO journal_entries (id, session_id, side, symbol, quantity, price, total, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7::NUMERIC, $8)`,
		tx.ID, sessionID, string(tx.Side), tx.Symbol, tx.Quantity,
		tx.Price.String(), tx.Total.String(), tx.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append journal entry %s: %w", tx.ID, err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, sessionID string) ([]model.Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::TEXT, side, symbol, quantity, price::TEXT, total::TEXT, timestamp
		 FROM journal_entries WHERE session_id = $1
		 ORDER BY seq DESC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// pgxRows is the subset of pgx.Rows used by scanTransactions.
type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanTransactions(rows pgxRows) ([]model.Transaction, error) {
	txs := []model.Transaction{}
	for rows.Next() {
		var tx model.Transaction
		var side, priceS, totalS string

		if err := rows.Scan(&tx.ID, &side, &tx.Symbol, &tx.Quantity,
			&priceS, &totalS, &tx.Timestamp); err != nil {
			return nil, err
		}

		tx.Side = model.Side(side)
		var err error
		if tx.Price, err = decimal.NewFromString(priceS); err != nil {
			return nil, fmt.Errorf("journal entry %s: price %q: %w", tx.ID, priceS, err)
		}
		if tx.Total, err = decimal.NewFromString(totalS); err != nil {
			return nil, fmt.Errorf("journal entry %s: total %q: %w", tx.ID, totalS, err)
		}

		txs = append(txs, tx)
	}
	return txs, rows.Err()
}
